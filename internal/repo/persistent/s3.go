package persistent

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/andreyxaxa/Spectra/pkg/s3client"
	"github.com/andreyxaxa/Spectra/pkg/types/errs"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

type S3BlobRepo struct {
	*s3client.S3Client
}

func NewS3BlobRepo(s3c *s3client.S3Client) *S3BlobRepo {
	return &S3BlobRepo{s3c}
}

func (r *S3BlobRepo) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := r.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(r.Bucket()),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return fmt.Errorf("S3BlobRepo - Put - r.Client.PutObject: %w", err)
	}

	return nil
}

func (r *S3BlobRepo) Get(ctx context.Context, key string) ([]byte, error) {
	result, err := r.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.Bucket()),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("S3BlobRepo - Get - key=%s: %w", key, errs.ErrBlobNotFound)
		}
		return nil, fmt.Errorf("S3BlobRepo - Get - r.Client.GetObject: %w", err)
	}
	defer result.Body.Close()

	b, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("S3BlobRepo - Get - io.ReadAll: %w", err)
	}

	return b, nil
}

func (r *S3BlobRepo) Exists(ctx context.Context, key string) (bool, error) {
	_, err := r.Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(r.Bucket()),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("S3BlobRepo - Exists - r.Client.HeadObject: %w", err)
	}

	return true, nil
}

// isNotFound covers GetObject (NoSuchKey) and HeadObject, which carries no body and surfaces a bare NotFound code.
func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}

	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}

	return false
}

package errs

import (
	"errors"
	"fmt"
)

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrBlobNotFound   = errors.New("blob not found")

	// Ingestion
	ErrEmptyPayload         = errors.New("empty payload")
	ErrInvalidUser          = errors.New("invalid user id")
	ErrStorageWriteFailed   = errors.New("storage write failed")
	ErrMetadataCreateFailed = errors.New("metadata create failed")
	ErrEventPublishFailed   = errors.New("event publish failed")

	// Processing
	ErrMalformedEvent        = errors.New("malformed event")
	ErrCodec                 = errors.New("unsupported image format")
	ErrThumbnailKeyMismatch  = errors.New("thumbnail key does not match storage key")
	ErrDeliveryAttemptsSpent = errors.New("delivery attempts exhausted")
)

// CodecError is returned by the image codec when the input cannot be decoded or encoded.
type CodecError struct {
	Err error
}

func (e *CodecError) Error() string {
	return fmt.Sprintf("codec: %v", e.Err)
}

func (e *CodecError) Unwrap() error {
	return e.Err
}

func (e *CodecError) Is(target error) bool {
	return target == ErrCodec
}

// PermanentError marks a failure that redelivery cannot fix.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent: %v", e.Err)
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

func Permanent(err error) error {
	if err == nil {
		return nil
	}

	return &PermanentError{Err: err}
}

func IsPermanent(err error) bool {
	var pe *PermanentError

	return errors.As(err, &pe)
}

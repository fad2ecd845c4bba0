package processor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/andreyxaxa/Spectra/pkg/types/errs"
	"github.com/disintegration/imaging"

	// webp decoder for originals; thumbnails of webp sources are written as png.
	_ "golang.org/x/image/webp"
)

type ImageProcessor struct{}

func New() *ImageProcessor {
	return &ImageProcessor{}
}

// Thumbnail fits data into width x height, cropping to fill, and encodes it in the format named by ext.
// Undecodable input and unencodable output are returned as *errs.CodecError.
func (p *ImageProcessor) Thumbnail(ctx context.Context, data []byte, width, height int, ext string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("ImageProcessor - Thumbnail: %w", err)
	}

	img, err := decodeImage(data)
	if err != nil {
		return nil, fmt.Errorf("ImageProcessor - Thumbnail - decodeImage: %w", err)
	}

	thumb := imaging.Thumbnail(img, width, height, imaging.Lanczos)

	// resampling is the slow part, don't encode for a caller that has gone
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("ImageProcessor - Thumbnail: %w", err)
	}

	res, err := encodeImage(thumb, OutputFormat(ext))
	if err != nil {
		return nil, fmt.Errorf("ImageProcessor - Thumbnail - encodeImage: %w", err)
	}

	return res, nil
}

// OutputFormat picks the encoder for an extension, png when imaging cannot write it (webp).
// The thumbnail key keeps the original extension either way.
func OutputFormat(ext string) imaging.Format {
	format, err := imaging.FormatFromExtension(strings.TrimPrefix(ext, "."))
	if err != nil {
		return imaging.PNG
	}

	return format
}

func decodeImage(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, &errs.CodecError{Err: fmt.Errorf("imaging.Decode: %w", err)}
	}

	return img, nil
}

func encodeImage(img image.Image, format imaging.Format) ([]byte, error) {
	var buf bytes.Buffer

	err := imaging.Encode(&buf, img, format)
	if err != nil {
		return nil, &errs.CodecError{Err: fmt.Errorf("imaging.Encode(%s): %w", format, err)}
	}

	return buf.Bytes(), nil
}

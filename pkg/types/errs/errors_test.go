package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPermanent(t *testing.T) {
	assert.Nil(t, Permanent(nil))

	err := fmt.Errorf("Handler - OnReceived: %w", Permanent(ErrBlobNotFound))
	assert.True(t, IsPermanent(err))
	assert.ErrorIs(t, err, ErrBlobNotFound)

	assert.False(t, IsPermanent(errors.New("connection reset")))
	assert.False(t, IsPermanent(nil))
}

func TestCodecError(t *testing.T) {
	cause := errors.New("image: unknown format")
	err := fmt.Errorf("ImageProcessor - Resize: %w", &CodecError{Err: cause})

	assert.ErrorIs(t, err, ErrCodec)
	assert.ErrorIs(t, err, cause)

	var ce *CodecError
	assert.True(t, errors.As(err, &ce))
	assert.Equal(t, "codec: image: unknown format", ce.Error())
}

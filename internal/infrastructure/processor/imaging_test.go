package processor

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/andreyxaxa/Spectra/pkg/types/errs"
	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePNG(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	return buf.Bytes()
}

func TestThumbnail_Size(t *testing.T) {
	p := New()

	out, err := p.Thumbnail(context.Background(), samplePNG(t, 640, 480), 150, 150, ".png")
	require.NoError(t, err)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 150, cfg.Width)
	assert.Equal(t, 150, cfg.Height)
}

func TestThumbnail_Deterministic(t *testing.T) {
	p := New()
	src := samplePNG(t, 300, 200)

	first, err := p.Thumbnail(context.Background(), src, 150, 150, ".png")
	require.NoError(t, err)
	second, err := p.Thumbnail(context.Background(), src, 150, 150, ".png")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestThumbnail_JPEGOutput(t *testing.T) {
	out, err := New().Thumbnail(context.Background(), samplePNG(t, 200, 200), 150, 150, ".JPG")
	require.NoError(t, err)

	_, format, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
}

func TestThumbnail_Garbage(t *testing.T) {
	_, err := New().Thumbnail(context.Background(), []byte("definitely not an image"), 150, 150, ".png")

	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrCodec)

	var codecErr *errs.CodecError
	assert.ErrorAs(t, err, &codecErr)
}

func TestThumbnail_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Thumbnail(ctx, samplePNG(t, 10, 10), 150, 150, ".png")
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, errs.ErrCodec)
}

func TestOutputFormat(t *testing.T) {
	assert.Equal(t, imaging.PNG, OutputFormat(".png"))
	assert.Equal(t, imaging.JPEG, OutputFormat(".jpeg"))
	assert.Equal(t, imaging.GIF, OutputFormat("gif"))
	assert.Equal(t, imaging.PNG, OutputFormat(".webp"))
	assert.Equal(t, imaging.PNG, OutputFormat(""))
}

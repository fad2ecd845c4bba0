package persistent

import (
	"context"
	"testing"

	"github.com/andreyxaxa/Spectra/pkg/types/errs"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSBlobRepo_PutGetExists(t *testing.T) {
	ctx := context.Background()
	r := NewAferoBlobRepo(afero.NewMemMapFs())

	ok, err := r.Exists(ctx, "u1/a-cat.png")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, r.Put(ctx, "u1/a-cat.png", []byte("png bytes"), "image/png"))

	ok, err = r.Exists(ctx, "u1/a-cat.png")
	require.NoError(t, err)
	assert.True(t, ok)

	b, err := r.Get(ctx, "u1/a-cat.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("png bytes"), b)
}

func TestFSBlobRepo_Overwrite(t *testing.T) {
	ctx := context.Background()
	r := NewAferoBlobRepo(afero.NewMemMapFs())

	require.NoError(t, r.Put(ctx, "u1/a-cat-thumb.png", []byte("first"), "image/png"))
	require.NoError(t, r.Put(ctx, "u1/a-cat-thumb.png", []byte("second"), "image/png"))

	b, err := r.Get(ctx, "u1/a-cat-thumb.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), b)

	files, err := afero.ReadDir(r.fs, "/u1")
	require.NoError(t, err)
	assert.Len(t, files, 1, "temp files must not be left behind")
}

func TestFSBlobRepo_GetMissing(t *testing.T) {
	_, err := NewAferoBlobRepo(afero.NewMemMapFs()).Get(context.Background(), "u1/missing.png")
	assert.ErrorIs(t, err, errs.ErrBlobNotFound)
}

func TestFSBlobRepo_KeyCannotEscapeRoot(t *testing.T) {
	ctx := context.Background()
	r := NewAferoBlobRepo(afero.NewMemMapFs())

	require.NoError(t, r.Put(ctx, "../../etc/passwd", []byte("x"), "application/octet-stream"))

	ok, err := afero.Exists(r.fs, "/etc/passwd")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Error(t, r.Put(ctx, "", []byte("x"), ""))
	assert.Error(t, r.Put(ctx, "/", []byte("x"), ""))
}

func TestFSBlobRepo_DirOnDisk(t *testing.T) {
	ctx := context.Background()

	r, err := NewFSBlobRepo(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, r.Put(ctx, "u1/a-dog.jpg", []byte("jpeg"), "image/jpeg"))

	b, err := r.Get(ctx, "u1/a-dog.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg"), b)

	ok, err := r.Exists(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok, "directories are not blobs")
}

func TestFSBlobRepo_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewAferoBlobRepo(afero.NewMemMapFs()).Put(ctx, "u1/a.png", []byte("x"), "")
	assert.ErrorIs(t, err, context.Canceled)
}

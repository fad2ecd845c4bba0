package persistent

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"

	"github.com/andreyxaxa/Spectra/pkg/types/errs"
	"github.com/google/uuid"
	"github.com/spf13/afero"
)

const _tmpSuffix = ".tmp-"

// FSBlobRepo keeps blobs as files under a root; keys map to relative paths.
// Content type is derived from the key on read, so it is not persisted.
type FSBlobRepo struct {
	fs afero.Fs
}

// NewFSBlobRepo roots the store at dir on the OS filesystem.
func NewFSBlobRepo(dir string) (*FSBlobRepo, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("NewFSBlobRepo - os.MkdirAll: %w", err)
	}

	return NewAferoBlobRepo(afero.NewBasePathFs(afero.NewOsFs(), dir)), nil
}

// NewAferoBlobRepo stores blobs on any afero filesystem, keys relative to its root.
func NewAferoBlobRepo(fsys afero.Fs) *FSBlobRepo {
	return &FSBlobRepo{fs: fsys}
}

// Put writes through a temp file and a rename so readers never observe a partial blob.
func (r *FSBlobRepo) Put(ctx context.Context, key string, data []byte, _ string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("FSBlobRepo - Put: %w", err)
	}

	name, err := cleanKey(key)
	if err != nil {
		return fmt.Errorf("FSBlobRepo - Put: %w", err)
	}

	err = r.fs.MkdirAll(path.Dir(name), 0o755)
	if err != nil {
		return fmt.Errorf("FSBlobRepo - Put - r.fs.MkdirAll: %w", err)
	}

	tmp := name + _tmpSuffix + uuid.NewString()

	err = afero.WriteFile(r.fs, tmp, data, 0o644)
	if err != nil {
		_ = r.fs.Remove(tmp)
		return fmt.Errorf("FSBlobRepo - Put - afero.WriteFile: %w", err)
	}

	err = r.fs.Rename(tmp, name)
	if err != nil {
		_ = r.fs.Remove(tmp)
		return fmt.Errorf("FSBlobRepo - Put - r.fs.Rename: %w", err)
	}

	return nil
}

func (r *FSBlobRepo) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("FSBlobRepo - Get: %w", err)
	}

	name, err := cleanKey(key)
	if err != nil {
		return nil, fmt.Errorf("FSBlobRepo - Get: %w", err)
	}

	b, err := afero.ReadFile(r.fs, name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("FSBlobRepo - Get - key=%s: %w", key, errs.ErrBlobNotFound)
		}
		return nil, fmt.Errorf("FSBlobRepo - Get - afero.ReadFile: %w", err)
	}

	return b, nil
}

func (r *FSBlobRepo) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("FSBlobRepo - Exists: %w", err)
	}

	name, err := cleanKey(key)
	if err != nil {
		return false, fmt.Errorf("FSBlobRepo - Exists: %w", err)
	}

	info, err := r.fs.Stat(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("FSBlobRepo - Exists - r.fs.Stat: %w", err)
	}

	return !info.IsDir(), nil
}

// cleanKey rejects keys that would escape the root.
func cleanKey(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("empty key")
	}

	name := path.Clean("/" + key)
	if name == "/" {
		return "", fmt.Errorf("invalid key %q", key)
	}

	return name, nil
}

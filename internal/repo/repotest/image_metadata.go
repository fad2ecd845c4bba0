// Package repotest provides in-process repositories for tests.
package repotest

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/andreyxaxa/Spectra/internal/entity"
	"github.com/andreyxaxa/Spectra/pkg/types/errs"
	"github.com/google/uuid"
)

type ImageMetadataRepo struct {
	mu     sync.RWMutex
	images map[uuid.UUID]*entity.Image
	now    func() time.Time
}

func NewImageMetadataRepo() *ImageMetadataRepo {
	return &ImageMetadataRepo{
		images: make(map[uuid.UUID]*entity.Image),
		now:    time.Now,
	}
}

func (r *ImageMetadataRepo) Create(ctx context.Context, image *entity.Image) (*entity.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("ImageMetadataRepo - Create: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.images {
		if existing.StorageKey == image.StorageKey {
			return nil, fmt.Errorf("ImageMetadataRepo - Create - duplicate storage key %s", image.StorageKey)
		}
	}

	created := clone(image)
	created.ID = uuid.New()
	created.CreatedAt = r.now().UTC()
	r.images[created.ID] = created

	return clone(created), nil
}

func (r *ImageMetadataRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("ImageMetadataRepo - GetByID: %w", err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	image, ok := r.images[id]
	if !ok {
		return nil, fmt.Errorf("ImageMetadataRepo - GetByID: %w", errs.ErrRecordNotFound)
	}

	return clone(image), nil
}

func (r *ImageMetadataRepo) UpdateFields(ctx context.Context, id uuid.UUID, tags, palette []string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("ImageMetadataRepo - UpdateFields: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	image, ok := r.images[id]
	if !ok {
		return fmt.Errorf("ImageMetadataRepo - UpdateFields: %w", errs.ErrRecordNotFound)
	}

	image.Tags = copyStrings(tags)
	image.Palette = copyStrings(palette)

	return nil
}

func (r *ImageMetadataRepo) UpdateThumbnail(ctx context.Context, id uuid.UUID, thumbnailKey string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("ImageMetadataRepo - UpdateThumbnail: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	image, ok := r.images[id]
	if !ok {
		return fmt.Errorf("ImageMetadataRepo - UpdateThumbnail: %w", errs.ErrRecordNotFound)
	}

	image.ThumbnailKey = &thumbnailKey

	return nil
}

// ListAll orders newest first, ties broken by id, to match the postgres store.
func (r *ImageMetadataRepo) ListAll(ctx context.Context, page entity.Page) (*entity.ImagePage, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("ImageMetadataRepo - ListAll: %w", err)
	}

	all := r.sorted(func(*entity.Image) bool { return true })

	items := make([]*entity.Image, 0, page.Size)
	if off := page.Offset(); off < len(all) {
		end := min(off+page.Size, len(all))
		items = append(items, all[off:end]...)
	}

	return &entity.ImagePage{
		Items:  items,
		Number: page.Number,
		Size:   page.Size,
		Total:  int64(len(all)),
	}, nil
}

func (r *ImageMetadataRepo) FindByAnyTag(ctx context.Context, tags []string) ([]*entity.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("ImageMetadataRepo - FindByAnyTag: %w", err)
	}

	if len(tags) == 0 {
		return []*entity.Image{}, nil
	}

	return r.sorted(func(image *entity.Image) bool {
		for _, tag := range image.Tags {
			if slices.Contains(tags, tag) {
				return true
			}
		}
		return false
	}), nil
}

func (r *ImageMetadataRepo) sorted(match func(*entity.Image) bool) []*entity.Image {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*entity.Image, 0, len(r.images))
	for _, image := range r.images {
		if match(image) {
			out = append(out, clone(image))
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})

	return out
}

func clone(image *entity.Image) *entity.Image {
	c := *image
	c.Tags = copyStrings(image.Tags)
	c.Palette = copyStrings(image.Palette)
	if image.ThumbnailKey != nil {
		key := *image.ThumbnailKey
		c.ThumbnailKey = &key
	}
	return &c
}

func copyStrings(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}

package entity

import (
	"time"

	"github.com/google/uuid"
)

// Image is the metadata record of one upload.
// StorageKey is immutable, ThumbnailKey stays nil until reconciliation.
type Image struct {
	ID uuid.UUID `json:"id"`

	UserID           string `json:"user_id"`
	OriginalFilename string `json:"original_filename"`

	StorageKey   string  `json:"storage_key"`
	ThumbnailKey *string `json:"thumbnail_key,omitempty"`

	Tags    []string `json:"tags"`
	Palette []string `json:"palette"`

	CreatedAt time.Time `json:"created_at"`
}

type Page struct {
	Number int
	Size   int
}

func (p Page) Offset() int {
	return p.Number * p.Size
}

type ImagePage struct {
	Items  []*Image
	Number int
	Size   int
	Total  int64
}

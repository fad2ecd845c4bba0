package response

import (
	"time"

	"github.com/andreyxaxa/Spectra/internal/entity"
)

type Image struct {
	ID               string   `json:"id"`
	UserID           string   `json:"userId"`
	OriginalFilename string   `json:"originalFilename"`
	StorageURL       string   `json:"storageUrl"`
	ThumbnailURL     *string  `json:"thumbnailUrl"`
	Tags             []string `json:"tags"`
	Palette          []string `json:"palette"`
	CreatedAt        string   `json:"createdAt"`
}

func NewImage(image *entity.Image) Image {
	return Image{
		ID:               image.ID.String(),
		UserID:           image.UserID,
		OriginalFilename: image.OriginalFilename,
		StorageURL:       image.StorageKey,
		ThumbnailURL:     image.ThumbnailKey,
		Tags:             orEmpty(image.Tags),
		Palette:          orEmpty(image.Palette),
		CreatedAt:        image.CreatedAt.Format(time.RFC3339),
	}
}

func NewImages(images []*entity.Image) []Image {
	out := make([]Image, 0, len(images))
	for _, image := range images {
		out = append(out, NewImage(image))
	}
	return out
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

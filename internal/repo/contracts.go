package repo

import (
	"context"
	"time"

	"github.com/andreyxaxa/Spectra/internal/entity"
	"github.com/google/uuid"
)

type (
	// BlobRepo is the Blob Store. Get returns errs.ErrBlobNotFound for absent keys.
	BlobRepo interface {
		Put(ctx context.Context, key string, data []byte, contentType string) error
		Get(ctx context.Context, key string) ([]byte, error)
		Exists(ctx context.Context, key string) (bool, error)
	}

	// ImageMetadataRepo is the Metadata Store. It assigns ID and CreatedAt on Create.
	ImageMetadataRepo interface {
		Create(ctx context.Context, image *entity.Image) (*entity.Image, error)
		GetByID(ctx context.Context, id uuid.UUID) (*entity.Image, error)
		UpdateFields(ctx context.Context, id uuid.UUID, tags, palette []string) error
		UpdateThumbnail(ctx context.Context, id uuid.UUID, thumbnailKey string) error
		ListAll(ctx context.Context, page entity.Page) (*entity.ImagePage, error)
		FindByAnyTag(ctx context.Context, tags []string) ([]*entity.Image, error)
	}

	OutboxRepo interface {
		Create(ctx context.Context, event *entity.OutboxEvent) error
		GetPendingEvents(ctx context.Context, limit int, maxRetries int) ([]*entity.OutboxEvent, error)
		MarkAsProcessingBatch(ctx context.Context, IDs uuid.UUIDs) error
		MarkAsProcessedBatch(ctx context.Context, IDs uuid.UUIDs) error
		MarkMaxRetriesAsFailed(ctx context.Context, maxRetries int) error
		IncrementRetryCountBatch(ctx context.Context, IDs uuid.UUIDs) error
		DeleteOldProcessedAndFailed(ctx context.Context, retention time.Duration) (int64, error)
	}

	Transactor interface {
		WithinTransaction(ctx context.Context, f func(ctx context.Context) error) error
	}
)

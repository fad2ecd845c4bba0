package usecase

import (
	"context"

	"github.com/andreyxaxa/Spectra/internal/dto"
	"github.com/andreyxaxa/Spectra/internal/entity"
	"github.com/google/uuid"
)

type (
	// ImageUseCase is the ingestion gateway and its read surface.
	ImageUseCase interface {
		Upload(ctx context.Context, userID, filename string, data []byte) (*entity.Image, error)
		FetchContent(ctx context.Context, id uuid.UUID) (*dto.Content, error)
		GetByID(ctx context.Context, id uuid.UUID) (*entity.Image, error)
		List(ctx context.Context, page entity.Page) (*entity.ImagePage, error)
		Search(ctx context.Context, tags []string) ([]*entity.Image, error)
		UpdateMetadata(ctx context.Context, id uuid.UUID, metadata dto.Metadata) (*entity.Image, error)
	}

	OutboxUseCase interface {
		ClaimPendingEvents(ctx context.Context, limit, maxRetries int) ([]*entity.OutboxEvent, error)
		MarkAsProcessedBatch(ctx context.Context, events []*entity.OutboxEvent) error
		IncrementRetryCountBatch(ctx context.Context, events []*entity.OutboxEvent) error
		MarkMaxRetriesAsFailed(ctx context.Context, maxRetries int) error
		CleanupOutbox(ctx context.Context) error
	}

	// ThumbnailUseCase handles image.received. Errors marked with errs.Permanent must not be redelivered.
	ThumbnailUseCase interface {
		OnReceived(ctx context.Context, event entity.ReceivedEvent) error
	}

	// ReconcileUseCase handles image.processed.
	ReconcileUseCase interface {
		OnProcessed(ctx context.Context, event entity.ProcessedEvent) error
	}
)

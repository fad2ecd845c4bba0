package image

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/andreyxaxa/Spectra/internal/entity"
	"github.com/andreyxaxa/Spectra/internal/infrastructure"
	"github.com/andreyxaxa/Spectra/pkg/types/errs"
	"github.com/google/uuid"
)

func (uc *ImageUseCase) uploadWithOutbox(ctx context.Context, record *entity.Image) (*entity.Image, error) {
	var created *entity.Image

	// record + outbox row in one transaction
	err := uc.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error

		created, err = uc.metadataRepo.Create(ctx, record)
		if err != nil {
			return fmt.Errorf("uc.metadataRepo.Create: %w", err)
		}

		event, err := newOutboxEvent(created)
		if err != nil {
			return fmt.Errorf("newOutboxEvent: %w", err)
		}

		err = uc.outboxRepo.Create(ctx, event)
		if err != nil {
			return fmt.Errorf("uc.outboxRepo.Create: %w", err)
		}

		return nil
	})
	if err != nil {
		uc.metrics.ObserveUpload(resultMetadataFailed)
		uc.logger.Warn("ImageUseCase - uploadWithOutbox - orphaned blob key=%s", record.StorageKey)
		return nil, fmt.Errorf("ImageUseCase - uploadWithOutbox - uc.transactor.WithinTransaction: %w: %w", errs.ErrMetadataCreateFailed, err)
	}

	uc.metrics.ObserveUpload(resultAccepted)

	return created, nil
}

func newOutboxEvent(record *entity.Image) (*entity.OutboxEvent, error) {
	b, err := json.Marshal(receivedEvent(record))
	if err != nil {
		return nil, fmt.Errorf("json.Marshal: %w", err)
	}

	return &entity.OutboxEvent{
		ID:          uuid.New(),
		AggregateID: record.ID,
		RoutingKey:  infrastructure.RoutingKeyReceived,
		Payload:     b,
		Status:      entity.OutboxPending,
		CreatedAt:   time.Now(),
		RetryCount:  0,
	}, nil
}

// ClaimPendingEvents locks a batch of pending rows and moves them to processing.
func (uc *ImageUseCase) ClaimPendingEvents(ctx context.Context, limit, maxRetries int) ([]*entity.OutboxEvent, error) {
	var events []*entity.OutboxEvent

	err := uc.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error

		events, err = uc.outboxRepo.GetPendingEvents(ctx, limit, maxRetries)
		if err != nil {
			return fmt.Errorf("uc.outboxRepo.GetPendingEvents: %w", err)
		}
		if len(events) == 0 {
			return nil
		}

		err = uc.outboxRepo.MarkAsProcessingBatch(ctx, eventIDs(events))
		if err != nil {
			return fmt.Errorf("uc.outboxRepo.MarkAsProcessingBatch: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ImageUseCase - ClaimPendingEvents - uc.transactor.WithinTransaction: %w", err)
	}

	return events, nil
}

func (uc *ImageUseCase) MarkAsProcessedBatch(ctx context.Context, events []*entity.OutboxEvent) error {
	err := uc.outboxRepo.MarkAsProcessedBatch(ctx, eventIDs(events))
	if err != nil {
		return fmt.Errorf("ImageUseCase - MarkAsProcessedBatch - uc.outboxRepo.MarkAsProcessedBatch: %w", err)
	}

	return nil
}

func (uc *ImageUseCase) IncrementRetryCountBatch(ctx context.Context, events []*entity.OutboxEvent) error {
	err := uc.outboxRepo.IncrementRetryCountBatch(ctx, eventIDs(events))
	if err != nil {
		return fmt.Errorf("ImageUseCase - IncrementRetryCountBatch - uc.outboxRepo.IncrementRetryCountBatch: %w", err)
	}

	return nil
}

func (uc *ImageUseCase) MarkMaxRetriesAsFailed(ctx context.Context, maxRetries int) error {
	err := uc.outboxRepo.MarkMaxRetriesAsFailed(ctx, maxRetries)
	if err != nil {
		return fmt.Errorf("ImageUseCase - MarkMaxRetriesAsFailed - uc.outboxRepo.MarkMaxRetriesAsFailed: %w", err)
	}

	return nil
}

func (uc *ImageUseCase) CleanupOutbox(ctx context.Context) error {
	count, err := uc.outboxRepo.DeleteOldProcessedAndFailed(ctx, uc.outboxRetention)
	if err != nil {
		return fmt.Errorf("ImageUseCase - CleanupOutbox - uc.outboxRepo.DeleteOldProcessedAndFailed: %w", err)
	}

	if count > 0 {
		uc.logger.Info("deleted old events, count = %d", count)
	}

	return nil
}

func eventIDs(events []*entity.OutboxEvent) uuid.UUIDs {
	IDs := make(uuid.UUIDs, 0, len(events))
	for _, event := range events {
		IDs = append(IDs, event.ID)
	}

	return IDs
}

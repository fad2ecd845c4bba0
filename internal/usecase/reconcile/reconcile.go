package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/andreyxaxa/Spectra/internal/entity"
	"github.com/andreyxaxa/Spectra/internal/repo"
	"github.com/andreyxaxa/Spectra/internal/storagekey"
	"github.com/andreyxaxa/Spectra/pkg/logger"
	"github.com/andreyxaxa/Spectra/pkg/types/errs"
	"github.com/google/uuid"
)

type UseCase struct {
	metadataRepo repo.ImageMetadataRepo
	logger       logger.Interface
}

func New(metadataRepo repo.ImageMetadataRepo, l logger.Interface) *UseCase {
	return &UseCase{
		metadataRepo: metadataRepo,
		logger:       l,
	}
}

// OnProcessed points the record at its thumbnail. Repeating the same event changes nothing.
func (uc *UseCase) OnProcessed(ctx context.Context, event entity.ProcessedEvent) error {
	if event.ImageID == uuid.Nil || event.ThumbnailLocation == "" {
		return errs.Permanent(fmt.Errorf("UseCase - OnProcessed - id=%s thumb=%q: %w", event.ImageID, event.ThumbnailLocation, errs.ErrMalformedEvent))
	}

	record, err := uc.metadataRepo.GetByID(ctx, event.ImageID)
	if err != nil {
		if errors.Is(err, errs.ErrRecordNotFound) {
			return errs.Permanent(fmt.Errorf("UseCase - OnProcessed - uc.metadataRepo.GetByID: %w", err))
		}
		return fmt.Errorf("UseCase - OnProcessed - uc.metadataRepo.GetByID: %w", err)
	}

	if want := storagekey.Thumbnail(record.StorageKey); event.ThumbnailLocation != want {
		return errs.Permanent(fmt.Errorf("UseCase - OnProcessed - got=%s want=%s: %w", event.ThumbnailLocation, want, errs.ErrThumbnailKeyMismatch))
	}

	if record.ThumbnailKey != nil && *record.ThumbnailKey == event.ThumbnailLocation {
		uc.logger.Debug("thumbnail already reconciled, id=%s", record.ID)
		return nil
	}

	err = uc.metadataRepo.UpdateThumbnail(ctx, record.ID, event.ThumbnailLocation)
	if err != nil {
		if errors.Is(err, errs.ErrRecordNotFound) {
			return errs.Permanent(fmt.Errorf("UseCase - OnProcessed - uc.metadataRepo.UpdateThumbnail: %w", err))
		}
		return fmt.Errorf("UseCase - OnProcessed - uc.metadataRepo.UpdateThumbnail: %w", err)
	}

	return nil
}

package thumbnail

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/andreyxaxa/Spectra/internal/entity"
	"github.com/andreyxaxa/Spectra/internal/infrastructure"
	"github.com/andreyxaxa/Spectra/internal/repo"
	"github.com/andreyxaxa/Spectra/internal/storagekey"
	"github.com/andreyxaxa/Spectra/pkg/logger"
	"github.com/andreyxaxa/Spectra/pkg/types/errs"
	"github.com/google/uuid"
)

type UseCase struct {
	blobRepo repo.BlobRepo
	codec    infrastructure.ImageCodec
	bus      infrastructure.EventBus
	logger   logger.Interface

	width      int
	height     int
	cpuTimeout time.Duration
}

func New(
	blobRepo repo.BlobRepo,
	codec infrastructure.ImageCodec,
	bus infrastructure.EventBus,
	l logger.Interface,
	width, height int,
	cpuTimeout time.Duration,
) *UseCase {
	return &UseCase{
		blobRepo:   blobRepo,
		codec:      codec,
		bus:        bus,
		logger:     l,
		width:      width,
		height:     height,
		cpuTimeout: cpuTimeout,
	}
}

// OnReceived writes the thumbnail next to the original and announces it.
// Redelivery regenerates identical bytes at the same key. Missing input and undecodable
// images come back as permanent errors, everything else is left for the broker to retry.
func (uc *UseCase) OnReceived(ctx context.Context, event entity.ReceivedEvent) error {
	source := event.StorageLocation
	if source == "" || event.ImageID == uuid.Nil {
		return errs.Permanent(fmt.Errorf("UseCase - OnReceived - id=%s key=%q: %w", event.ImageID, source, errs.ErrMalformedEvent))
	}

	// 1. source
	ok, err := uc.blobRepo.Exists(ctx, source)
	if err != nil {
		return fmt.Errorf("UseCase - OnReceived - uc.blobRepo.Exists: %w", err)
	}
	if !ok {
		return errs.Permanent(fmt.Errorf("UseCase - OnReceived - key=%s: %w", source, errs.ErrBlobNotFound))
	}

	data, err := uc.blobRepo.Get(ctx, source)
	if err != nil {
		if errors.Is(err, errs.ErrBlobNotFound) {
			return errs.Permanent(fmt.Errorf("UseCase - OnReceived - uc.blobRepo.Get: %w", err))
		}
		return fmt.Errorf("UseCase - OnReceived - uc.blobRepo.Get: %w", err)
	}

	// 2. derive
	thumbKey := storagekey.Thumbnail(source)

	cpuCtx, cpuCancel := context.WithTimeout(ctx, uc.cpuTimeout)
	thumb, err := uc.codec.Thumbnail(cpuCtx, data, uc.width, uc.height, path.Ext(thumbKey))
	cpuCancel()
	if err != nil {
		if errors.Is(err, errs.ErrCodec) {
			return errs.Permanent(fmt.Errorf("UseCase - OnReceived - uc.codec.Thumbnail: %w", err))
		}
		return fmt.Errorf("UseCase - OnReceived - uc.codec.Thumbnail: %w", err)
	}

	// 3. overwrite if present
	err = uc.blobRepo.Put(ctx, thumbKey, thumb, storagekey.ContentType(thumbKey))
	if err != nil {
		return fmt.Errorf("UseCase - OnReceived - uc.blobRepo.Put: %w", err)
	}

	// 4. announce
	err = uc.bus.PublishProcessed(ctx, entity.ProcessedEvent{
		ImageID:           event.ImageID,
		OriginalLocation:  source,
		ThumbnailLocation: thumbKey,
	})
	if err != nil {
		return fmt.Errorf("UseCase - OnReceived - uc.bus.PublishProcessed: %w", err)
	}

	uc.logger.Debug("thumbnail written, id=%s key=%s", event.ImageID, thumbKey)

	return nil
}

package image

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/andreyxaxa/Spectra/internal/dto"
	"github.com/andreyxaxa/Spectra/internal/entity"
	"github.com/andreyxaxa/Spectra/internal/infrastructure"
	"github.com/andreyxaxa/Spectra/internal/repo"
	"github.com/andreyxaxa/Spectra/internal/storagekey"
	"github.com/andreyxaxa/Spectra/pkg/logger"
	"github.com/andreyxaxa/Spectra/pkg/metrics"
	"github.com/andreyxaxa/Spectra/pkg/types/errs"
	"github.com/google/uuid"
)

// Upload results.
const (
	resultAccepted       = "accepted"
	resultRejected       = "rejected"
	resultStorageFailed  = "storage_failed"
	resultMetadataFailed = "metadata_failed"
	resultPublishFailed  = "publish_failed"
)

type ImageUseCase struct {
	blobRepo     repo.BlobRepo
	metadataRepo repo.ImageMetadataRepo
	bus          infrastructure.EventBus

	// nil unless the outbox is enabled
	outboxRepo      repo.OutboxRepo
	transactor      repo.Transactor
	outboxRetention time.Duration

	logger  logger.Interface
	metrics *metrics.Metrics
}

type Option func(*ImageUseCase)

// WithOutbox writes the received event into the outbox in the record's transaction
// instead of publishing it from the request.
func WithOutbox(outboxRepo repo.OutboxRepo, transactor repo.Transactor, retention time.Duration) Option {
	return func(uc *ImageUseCase) {
		uc.outboxRepo = outboxRepo
		uc.transactor = transactor
		uc.outboxRetention = retention
	}
}

func New(
	blobRepo repo.BlobRepo,
	metadataRepo repo.ImageMetadataRepo,
	bus infrastructure.EventBus,
	l logger.Interface,
	m *metrics.Metrics,
	opts ...Option,
) *ImageUseCase {
	uc := &ImageUseCase{
		blobRepo:     blobRepo,
		metadataRepo: metadataRepo,
		bus:          bus,
		logger:       l,
		metrics:      m,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

// Upload performs blob write, record create and event publish, strictly in that order.
// Nothing is retried or rolled back; a failure is reported with the step that failed.
func (uc *ImageUseCase) Upload(ctx context.Context, userID, filename string, data []byte) (*entity.Image, error) {
	if len(data) == 0 {
		uc.metrics.ObserveUpload(resultRejected)
		return nil, fmt.Errorf("ImageUseCase - Upload: %w", errs.ErrEmptyPayload)
	}

	if !storagekey.ValidUserID(userID) {
		uc.metrics.ObserveUpload(resultRejected)
		return nil, fmt.Errorf("ImageUseCase - Upload - user=%q: %w", userID, errs.ErrInvalidUser)
	}

	// once the first write starts the chain runs to the end, abandoning it halfway would orphan more state
	ctx = context.WithoutCancel(ctx)

	key := storagekey.Original(userID, uuid.New(), filename)

	// 1. blob
	err := uc.blobRepo.Put(ctx, key, data, storagekey.ContentType(key))
	if err != nil {
		uc.metrics.ObserveUpload(resultStorageFailed)
		return nil, fmt.Errorf("ImageUseCase - Upload - uc.blobRepo.Put: %w: %w", errs.ErrStorageWriteFailed, err)
	}

	record := &entity.Image{
		UserID:           userID,
		OriginalFilename: filename,
		StorageKey:       key,
		Tags:             []string{},
		Palette:          []string{},
	}

	if uc.outboxRepo != nil {
		return uc.uploadWithOutbox(ctx, record)
	}

	// 2. metadata
	created, err := uc.metadataRepo.Create(ctx, record)
	if err != nil {
		uc.metrics.ObserveUpload(resultMetadataFailed)
		uc.logger.Warn("ImageUseCase - Upload - orphaned blob key=%s", key)
		return nil, fmt.Errorf("ImageUseCase - Upload - uc.metadataRepo.Create: %w: %w", errs.ErrMetadataCreateFailed, err)
	}

	// 3. event
	err = uc.bus.PublishReceived(ctx, receivedEvent(created))
	if err != nil {
		uc.metrics.ObserveUpload(resultPublishFailed)
		uc.logger.Error(err, "ImageUseCase - Upload - record id=%s stays unprocessed", created.ID)
		return nil, fmt.Errorf("ImageUseCase - Upload - uc.bus.PublishReceived: %w: %w", errs.ErrEventPublishFailed, err)
	}

	uc.metrics.ObserveUpload(resultAccepted)

	return created, nil
}

func (uc *ImageUseCase) FetchContent(ctx context.Context, id uuid.UUID) (*dto.Content, error) {
	record, err := uc.metadataRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ImageUseCase - FetchContent - uc.metadataRepo.GetByID: %w", err)
	}

	data, err := uc.blobRepo.Get(ctx, record.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("ImageUseCase - FetchContent - uc.blobRepo.Get: %w", err)
	}

	return &dto.Content{
		Data:        data,
		ContentType: storagekey.ContentType(record.StorageKey),
	}, nil
}

func (uc *ImageUseCase) GetByID(ctx context.Context, id uuid.UUID) (*entity.Image, error) {
	record, err := uc.metadataRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ImageUseCase - GetByID - uc.metadataRepo.GetByID: %w", err)
	}

	return record, nil
}

func (uc *ImageUseCase) List(ctx context.Context, page entity.Page) (*entity.ImagePage, error) {
	images, err := uc.metadataRepo.ListAll(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("ImageUseCase - List - uc.metadataRepo.ListAll: %w", err)
	}

	return images, nil
}

// Search treats tags as a set: blanks are dropped and duplicates collapse.
func (uc *ImageUseCase) Search(ctx context.Context, tags []string) ([]*entity.Image, error) {
	tags = uniqueTags(tags)
	if len(tags) == 0 {
		return []*entity.Image{}, nil
	}

	images, err := uc.metadataRepo.FindByAnyTag(ctx, tags)
	if err != nil {
		return nil, fmt.Errorf("ImageUseCase - Search - uc.metadataRepo.FindByAnyTag: %w", err)
	}

	return images, nil
}

func (uc *ImageUseCase) UpdateMetadata(ctx context.Context, id uuid.UUID, metadata dto.Metadata) (*entity.Image, error) {
	err := uc.metadataRepo.UpdateFields(ctx, id, orEmpty(metadata.Tags), orEmpty(metadata.Palette))
	if err != nil {
		return nil, fmt.Errorf("ImageUseCase - UpdateMetadata - uc.metadataRepo.UpdateFields: %w", err)
	}

	record, err := uc.metadataRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ImageUseCase - UpdateMetadata - uc.metadataRepo.GetByID: %w", err)
	}

	return record, nil
}

func receivedEvent(record *entity.Image) entity.ReceivedEvent {
	return entity.ReceivedEvent{
		ImageID:         record.ID,
		UserID:          record.UserID,
		StorageLocation: record.StorageKey,
	}
}

func uniqueTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))

	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}

	return out
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

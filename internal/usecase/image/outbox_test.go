package image

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/andreyxaxa/Spectra/internal/entity"
	"github.com/andreyxaxa/Spectra/internal/infrastructure"
	"github.com/andreyxaxa/Spectra/pkg/logger"
	"github.com/andreyxaxa/Spectra/pkg/types/errs"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type outboxMock struct {
	mock.Mock
}

func (m *outboxMock) Create(ctx context.Context, event *entity.OutboxEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *outboxMock) GetPendingEvents(ctx context.Context, limit int, maxRetries int) ([]*entity.OutboxEvent, error) {
	args := m.Called(ctx, limit, maxRetries)
	events, _ := args.Get(0).([]*entity.OutboxEvent)
	return events, args.Error(1)
}

func (m *outboxMock) MarkAsProcessingBatch(ctx context.Context, IDs uuid.UUIDs) error {
	return m.Called(ctx, IDs).Error(0)
}

func (m *outboxMock) MarkAsProcessedBatch(ctx context.Context, IDs uuid.UUIDs) error {
	return m.Called(ctx, IDs).Error(0)
}

func (m *outboxMock) MarkMaxRetriesAsFailed(ctx context.Context, maxRetries int) error {
	return m.Called(ctx, maxRetries).Error(0)
}

func (m *outboxMock) IncrementRetryCountBatch(ctx context.Context, IDs uuid.UUIDs) error {
	return m.Called(ctx, IDs).Error(0)
}

func (m *outboxMock) DeleteOldProcessedAndFailed(ctx context.Context, retention time.Duration) (int64, error) {
	args := m.Called(ctx, retention)
	return args.Get(0).(int64), args.Error(1)
}

// inlineTransactor runs f directly and counts the calls.
type inlineTransactor struct {
	calls int
}

func (tx *inlineTransactor) WithinTransaction(ctx context.Context, f func(ctx context.Context) error) error {
	tx.calls++
	return f(ctx)
}

func newOutboxFixture() (*fixture, *outboxMock, *inlineTransactor) {
	f := newFixture()
	ob := &outboxMock{}
	tx := &inlineTransactor{}
	f.uc = New(f.blobs, f.meta, f.bus, logger.Nop(), nil, WithOutbox(ob, tx, 24*time.Hour))

	return f, ob, tx
}

func TestUploadWithOutbox_WritesRowInsteadOfPublishing(t *testing.T) {
	f, ob, tx := newOutboxFixture()

	ob.On("Create", mock.Anything, mock.AnythingOfType("*entity.OutboxEvent")).Return(nil).Once()

	record, err := f.uc.Upload(context.Background(), "u1", "cat.png", []byte("x"))
	require.NoError(t, err)

	assert.Equal(t, 1, tx.calls)
	f.bus.AssertNotCalled(t, "PublishReceived", mock.Anything, mock.Anything)
	ob.AssertExpectations(t)

	event := ob.Calls[0].Arguments.Get(1).(*entity.OutboxEvent)
	assert.Equal(t, record.ID, event.AggregateID)
	assert.Equal(t, infrastructure.RoutingKeyReceived, event.RoutingKey)
	assert.Equal(t, entity.OutboxPending, event.Status)

	var payload entity.ReceivedEvent
	require.NoError(t, json.Unmarshal(event.Payload, &payload))
	assert.Equal(t, record.ID, payload.ImageID)
	assert.Equal(t, record.StorageKey, payload.StorageLocation)
}

func TestUploadWithOutbox_RowFailure(t *testing.T) {
	f, ob, _ := newOutboxFixture()

	ob.On("Create", mock.Anything, mock.Anything).Return(errors.New("deadlock")).Once()

	_, err := f.uc.Upload(context.Background(), "u1", "cat.png", []byte("x"))
	assert.ErrorIs(t, err, errs.ErrMetadataCreateFailed)
}

func TestClaimPendingEvents(t *testing.T) {
	f, ob, tx := newOutboxFixture()
	ctx := context.Background()

	events := []*entity.OutboxEvent{{ID: uuid.New()}, {ID: uuid.New()}}

	ob.On("GetPendingEvents", mock.Anything, 100, 5).Return(events, nil).Once()
	ob.On("MarkAsProcessingBatch", mock.Anything, uuid.UUIDs{events[0].ID, events[1].ID}).Return(nil).Once()

	got, err := f.uc.ClaimPendingEvents(ctx, 100, 5)
	require.NoError(t, err)
	assert.Equal(t, events, got)
	assert.Equal(t, 1, tx.calls)
	ob.AssertExpectations(t)
}

func TestClaimPendingEvents_Empty(t *testing.T) {
	f, ob, _ := newOutboxFixture()

	ob.On("GetPendingEvents", mock.Anything, 10, 3).Return(nil, nil).Once()

	got, err := f.uc.ClaimPendingEvents(context.Background(), 10, 3)
	require.NoError(t, err)
	assert.Empty(t, got)
	ob.AssertNotCalled(t, "MarkAsProcessingBatch", mock.Anything, mock.Anything)
}

func TestCleanupOutbox(t *testing.T) {
	f, ob, _ := newOutboxFixture()

	ob.On("DeleteOldProcessedAndFailed", mock.Anything, 24*time.Hour).Return(int64(3), nil).Once()

	require.NoError(t, f.uc.CleanupOutbox(context.Background()))
	ob.AssertExpectations(t)
}

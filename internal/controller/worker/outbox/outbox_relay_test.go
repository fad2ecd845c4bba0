package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/andreyxaxa/Spectra/internal/entity"
	"github.com/andreyxaxa/Spectra/pkg/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOutbox struct {
	mu sync.Mutex

	pending     []*entity.OutboxEvent
	processed   []*entity.OutboxEvent
	retried     []*entity.OutboxEvent
	failedCalls int
	cleanups    int
}

func (f *fakeOutbox) ClaimPendingEvents(_ context.Context, limit, _ int) ([]*entity.OutboxEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := min(limit, len(f.pending))
	claimed := f.pending[:n]
	f.pending = f.pending[n:]

	return claimed, nil
}

func (f *fakeOutbox) MarkAsProcessedBatch(_ context.Context, events []*entity.OutboxEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.processed = append(f.processed, events...)
	return nil
}

func (f *fakeOutbox) IncrementRetryCountBatch(_ context.Context, events []*entity.OutboxEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retried = append(f.retried, events...)
	return nil
}

func (f *fakeOutbox) MarkMaxRetriesAsFailed(context.Context, int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failedCalls++
	return nil
}

func (f *fakeOutbox) CleanupOutbox(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleanups++
	return nil
}

func (f *fakeOutbox) snapshot() (processed, retried, failedCalls, cleanups int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.processed), len(f.retried), f.failedCalls, f.cleanups
}

type fakeSender struct {
	mu   sync.Mutex
	sent int
	err  error
}

func (s *fakeSender) SendEvents(_ context.Context, events []*entity.OutboxEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent += len(events)
	return nil
}

func pending(n int) []*entity.OutboxEvent {
	events := make([]*entity.OutboxEvent, 0, n)
	for range n {
		events = append(events, &entity.OutboxEvent{ID: uuid.New(), Status: entity.OutboxPending})
	}
	return events
}

func newRelay(ob *fakeOutbox, es *fakeSender) *OutboxRelay {
	return New(ob, es, logger.Nop(),
		5*time.Millisecond, 5*time.Millisecond, 5*time.Millisecond, time.Second, 2, 3)
}

func TestOutboxRelay_PublishesAllPending(t *testing.T) {
	ob := &fakeOutbox{pending: pending(5)}
	es := &fakeSender{}
	r := newRelay(ob, es)

	require.NoError(t, r.Start(context.Background()))
	require.Error(t, r.Start(context.Background()))

	require.Eventually(t, func() bool {
		processed, _, failedCalls, cleanups := ob.snapshot()
		return processed == 5 && failedCalls > 0 && cleanups > 0
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, r.Shutdown(context.Background()))

	_, retried, _, _ := ob.snapshot()
	assert.Zero(t, retried)
	assert.Equal(t, 5, es.sent)
}

func TestOutboxRelay_SendFailureSpendsRetry(t *testing.T) {
	ob := &fakeOutbox{pending: pending(2)}
	es := &fakeSender{err: errors.New("broker down")}
	r := newRelay(ob, es)

	require.NoError(t, r.Start(context.Background()))

	require.Eventually(t, func() bool {
		_, retried, _, _ := ob.snapshot()
		return retried == 2
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, r.Shutdown(context.Background()))

	processed, _, _, _ := ob.snapshot()
	assert.Zero(t, processed)
}

func TestOutboxRelay_ShutdownWithoutStart(t *testing.T) {
	r := newRelay(&fakeOutbox{}, &fakeSender{})
	assert.NoError(t, r.Shutdown(context.Background()))
}

package outbox

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/andreyxaxa/Spectra/internal/infrastructure"
	"github.com/andreyxaxa/Spectra/internal/usecase"
	"github.com/andreyxaxa/Spectra/pkg/logger"
)

type OutboxRelay struct {
	outbox usecase.OutboxUseCase
	es     infrastructure.EventsSender
	logger logger.Interface

	pollInterval        time.Duration
	cleanupInterval     time.Duration
	markFailedInterval  time.Duration
	processBatchTimeout time.Duration
	batchSize           int
	maxRetries          int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	started atomic.Bool
}

func New(
	outbox usecase.OutboxUseCase,
	es infrastructure.EventsSender,
	l logger.Interface,
	pollInterval time.Duration,
	cleanupInterval time.Duration,
	markFailedInterval time.Duration,
	processBatchTimeout time.Duration,
	batchSize int,
	maxRetries int,
) *OutboxRelay {
	return &OutboxRelay{
		outbox:              outbox,
		es:                  es,
		logger:              l,
		pollInterval:        pollInterval,
		cleanupInterval:     cleanupInterval,
		markFailedInterval:  markFailedInterval,
		processBatchTimeout: processBatchTimeout,
		batchSize:           batchSize,
		maxRetries:          maxRetries,
	}
}

func (r *OutboxRelay) Start(ctx context.Context) error {
	if !r.started.CompareAndSwap(false, true) {
		return fmt.Errorf("OutboxRelay - Start - relay already started")
	}

	r.ctx, r.cancel = context.WithCancel(ctx)

	// publish
	r.worker(r.pollInterval, func() {
		batchCtx, batchCancel := context.WithTimeout(r.ctx, r.processBatchTimeout)
		r.processEventsBatch(batchCtx)
		batchCancel()
	})

	// give up on rows past maxRetries
	r.worker(r.markFailedInterval, func() {
		err := r.outbox.MarkMaxRetriesAsFailed(r.ctx, r.maxRetries)
		if err != nil {
			r.logger.Error(err, "OutboxRelay - Start - worker - r.outbox.MarkMaxRetriesAsFailed")
		}
	})

	// drop finished rows past retention
	r.worker(r.cleanupInterval, func() {
		err := r.outbox.CleanupOutbox(r.ctx)
		if err != nil {
			r.logger.Error(err, "OutboxRelay - Start - worker - r.outbox.CleanupOutbox")
		}
	})

	return nil
}

// processEventsBatch claims pending rows, publishes them and records the result.
// Rows whose result is never recorded are claimed again once their lease expires.
func (r *OutboxRelay) processEventsBatch(ctx context.Context) {
	events, err := r.outbox.ClaimPendingEvents(ctx, r.batchSize, r.maxRetries)
	if err != nil {
		r.logger.Error(err, "OutboxRelay - processEventsBatch - r.outbox.ClaimPendingEvents")

		return
	}
	if len(events) == 0 {
		return
	}

	err = r.es.SendEvents(ctx, events)
	if err != nil {
		r.logger.Error(err, "OutboxRelay - processEventsBatch - r.es.SendEvents")

		// back to pending with one more retry spent
		incErr := r.outbox.IncrementRetryCountBatch(context.WithoutCancel(ctx), events)
		if incErr != nil {
			r.logger.Error(incErr, "OutboxRelay - processEventsBatch - r.outbox.IncrementRetryCountBatch")
		}
		return
	}

	err = r.outbox.MarkAsProcessedBatch(context.WithoutCancel(ctx), events)
	if err != nil {
		r.logger.Error(err, "OutboxRelay - processEventsBatch - r.outbox.MarkAsProcessedBatch")

		return
	}

	r.logger.Debug("outbox relayed %d events", len(events))
}

func (r *OutboxRelay) worker(interval time.Duration, task func()) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-r.ctx.Done():
				return
			case <-ticker.C:
				task()
			}
		}
	}()
}

func (r *OutboxRelay) Shutdown(ctx context.Context) error {
	if !r.started.Load() {
		return nil
	}

	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})

	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("OutboxRelay - Shutdown: %w", ctx.Err())
	}
}

package broker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/andreyxaxa/Spectra/internal/infrastructure"
	"github.com/andreyxaxa/Spectra/pkg/logger"
	"github.com/andreyxaxa/Spectra/pkg/metrics"
	"github.com/andreyxaxa/Spectra/pkg/types/errs"
)

const _readBackoff = time.Second

// Handler processes one delivery. A nil error acks, errs.Permanent acks and logs, anything else naks.
type Handler func(ctx context.Context, d infrastructure.Delivery) error

// Controller runs a pool of workers over one queue. Deliveries are settled only after the handler returns.
type Controller struct {
	queue   string
	ec      infrastructure.EventConsumer
	handler Handler
	logger  logger.Interface
	metrics *metrics.Metrics

	ackTimeout     time.Duration
	processTimeout time.Duration
	retry          RetryPolicy

	workers int
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	started atomic.Bool
}

func New(
	queue string,
	ec infrastructure.EventConsumer,
	handler Handler,
	l logger.Interface,
	m *metrics.Metrics,
	ackTimeout time.Duration,
	processTimeout time.Duration,
	retry RetryPolicy,
	workers int,
) *Controller {
	return &Controller{
		queue:          queue,
		ec:             ec,
		handler:        handler,
		logger:         l,
		metrics:        m,
		ackTimeout:     ackTimeout,
		processTimeout: processTimeout,
		retry:          retry,
		workers:        max(workers, 1),
	}
}

func (c *Controller) Start(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return fmt.Errorf("Controller - Start - controller already started")
	}

	c.ctx, c.cancel = context.WithCancel(ctx)

	// bounded in-flight deliveries
	tasks := make(chan infrastructure.Delivery, c.workers)

	for i := 0; i < c.workers; i++ {
		c.wg.Add(1)
		go c.worker(tasks)
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(tasks)

		for {
			select {
			case <-c.ctx.Done():
				return
			default:
			}

			d, err := c.ec.ReadEvent(c.ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || c.ctx.Err() != nil {
					return
				}
				c.logger.Error(err, "Controller - Start - c.ec.ReadEvent, queue=%s", c.queue)

				select {
				case <-c.ctx.Done():
					return
				case <-time.After(_readBackoff):
				}
				continue
			}

			select {
			case tasks <- d:
			case <-c.ctx.Done():
				// unsettled, the broker redelivers it
				return
			}
		}
	}()

	c.logger.Info("consumer started, queue=%s workers=%d", c.queue, c.workers)

	return nil
}

func (c *Controller) worker(tasks <-chan infrastructure.Delivery) {
	defer c.wg.Done()

	for d := range tasks {
		c.process(d)
	}
}

func (c *Controller) process(d infrastructure.Delivery) {
	started := time.Now()

	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()

		// in-flight work finishes on shutdown, bounded by processTimeout
		processCtx, processCancel := context.WithTimeout(context.WithoutCancel(c.ctx), c.processTimeout)
		defer processCancel()

		err = c.handler(processCtx, d)
	}()

	outcome := c.settle(d, err)
	c.metrics.ObserveDelivery(c.queue, outcome, started)
}

func (c *Controller) settle(d infrastructure.Delivery, err error) string {
	ackCtx, ackCancel := context.WithTimeout(context.WithoutCancel(c.ctx), c.ackTimeout)
	defer ackCancel()

	var outcome string

	switch {
	case err == nil:
		outcome = metrics.OutcomeAcked
	case errs.IsPermanent(err):
		outcome = metrics.OutcomeDropped
		c.logger.Error(err, "Controller - settle - dropped, queue=%s attempt=%d", c.queue, d.Attempt())
	case c.retry.exhausted(d.Attempt()):
		outcome = metrics.OutcomeExhausted
		c.logger.Error(fmt.Errorf("%w: %w", errs.ErrDeliveryAttemptsSpent, err),
			"Controller - settle - giving up, queue=%s attempt=%d", c.queue, d.Attempt())
	default:
		delay := c.retry.Delay(d.Attempt())
		c.logger.Warn("Controller - settle - requeue, queue=%s attempt=%d delay=%s: %v", c.queue, d.Attempt(), delay, err)

		if nakErr := d.Nak(ackCtx, delay); nakErr != nil {
			c.logger.Error(nakErr, "Controller - settle - d.Nak, queue=%s", c.queue)
		}

		return metrics.OutcomeRequeued
	}

	if ackErr := d.Ack(ackCtx); ackErr != nil {
		c.logger.Error(ackErr, "Controller - settle - d.Ack, queue=%s", c.queue)
	}

	return outcome
}

func (c *Controller) Shutdown(ctx context.Context) error {
	if !c.started.Load() {
		return nil
	}

	if c.cancel != nil {
		c.cancel()
	}

	done := make(chan struct{})

	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("Controller - Shutdown - queue=%s: %w", c.queue, ctx.Err())
	}

	err := c.ec.Close()
	if err != nil {
		return fmt.Errorf("Controller - Shutdown - c.ec.Close: %w", err)
	}

	return nil
}

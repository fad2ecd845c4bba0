package jetstream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andreyxaxa/Spectra/internal/infrastructure"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	_defaultFetchBatch   = 1
	_defaultFetchMaxWait = time.Second
)

// EventConsumer pulls from one durable consumer. ReadEvent is meant for a single reader goroutine.
type EventConsumer struct {
	consumer jetstream.Consumer

	fetchBatch   int
	fetchMaxWait time.Duration

	batch jetstream.MessageBatch
}

func NewEventConsumer(ctx context.Context, js jetstream.JetStream, stream, queue string, fetchBatch int) (*EventConsumer, error) {
	c, err := js.Consumer(ctx, stream, queue)
	if err != nil {
		return nil, fmt.Errorf("EventConsumer - New - js.Consumer(%s): %w", queue, err)
	}

	if fetchBatch <= 0 {
		fetchBatch = _defaultFetchBatch
	}

	return &EventConsumer{
		consumer:     c,
		fetchBatch:   fetchBatch,
		fetchMaxWait: _defaultFetchMaxWait,
	}, nil
}

func (ec *EventConsumer) ReadEvent(ctx context.Context) (infrastructure.Delivery, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("EventConsumer - ReadEvent: %w", err)
		}

		if ec.batch == nil {
			batch, err := ec.consumer.Fetch(ec.fetchBatch, jetstream.FetchMaxWait(ec.fetchMaxWait))
			if err != nil {
				if errors.Is(err, nats.ErrTimeout) {
					continue
				}
				return nil, fmt.Errorf("EventConsumer - ReadEvent - ec.consumer.Fetch: %w", err)
			}
			ec.batch = batch
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("EventConsumer - ReadEvent: %w", ctx.Err())
		case msg, ok := <-ec.batch.Messages():
			if ok {
				return &delivery{msg: msg}, nil
			}

			err := ec.batch.Error()
			ec.batch = nil
			if err != nil && !errors.Is(err, nats.ErrTimeout) {
				return nil, fmt.Errorf("EventConsumer - ReadEvent - batch.Error: %w", err)
			}
		}
	}
}

func (ec *EventConsumer) Close() error {
	return nil
}

type delivery struct {
	msg jetstream.Msg
}

func (d *delivery) RoutingKey() string { return d.msg.Subject() }

func (d *delivery) Body() []byte { return d.msg.Data() }

func (d *delivery) Header(key string) string {
	if d.msg.Headers() == nil {
		return ""
	}
	return d.msg.Headers().Get(key)
}

func (d *delivery) Attempt() int {
	meta, err := d.msg.Metadata()
	if err != nil {
		return 1
	}
	return int(meta.NumDelivered) //nolint:gosec
}

// Ack waits for the server to confirm, so a crash right after cannot cause a redelivery.
func (d *delivery) Ack(ctx context.Context) error {
	err := d.msg.DoubleAck(ctx)
	if err != nil {
		return fmt.Errorf("delivery - Ack - d.msg.DoubleAck: %w", err)
	}
	return nil
}

func (d *delivery) Nak(_ context.Context, delay time.Duration) error {
	var err error
	if delay > 0 {
		err = d.msg.NakWithDelay(delay)
	} else {
		err = d.msg.Nak()
	}
	if err != nil {
		return fmt.Errorf("delivery - Nak - d.msg.Nak: %w", err)
	}
	return nil
}

package jetstream

import (
	"context"
	"fmt"

	"github.com/andreyxaxa/Spectra/internal/infrastructure"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

type EventProducer struct {
	js jetstream.JetStream
}

func NewEventProducer(js jetstream.JetStream) *EventProducer {
	return &EventProducer{js: js}
}

// Publish waits for the stream ack of every message, in order.
func (p *EventProducer) Publish(ctx context.Context, msgs ...infrastructure.Message) error {
	for _, m := range msgs {
		msg := nats.NewMsg(m.RoutingKey)
		msg.Data = m.Body
		for k, v := range m.Headers {
			msg.Header.Set(k, v)
		}

		var opts []jetstream.PublishOpt
		if m.ID != "" {
			opts = append(opts, jetstream.WithMsgID(m.ID))
		}

		_, err := p.js.PublishMsg(ctx, msg, opts...)
		if err != nil {
			return fmt.Errorf("EventProducer - Publish - p.js.PublishMsg(%s): %w", m.RoutingKey, err)
		}
	}

	return nil
}

// Close is a no-op, the connection belongs to natsjs.NATS.
func (p *EventProducer) Close() error {
	return nil
}

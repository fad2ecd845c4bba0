// Package events encodes pipeline events and hands them to a broker publisher.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/andreyxaxa/Spectra/internal/entity"
	"github.com/andreyxaxa/Spectra/internal/infrastructure"
	"github.com/andreyxaxa/Spectra/pkg/metrics"
)

type Bus struct {
	publisher infrastructure.EventPublisher
	metrics   *metrics.Metrics
}

func NewBus(p infrastructure.EventPublisher, m *metrics.Metrics) *Bus {
	return &Bus{
		publisher: p,
		metrics:   m,
	}
}

func (b *Bus) PublishReceived(ctx context.Context, event entity.ReceivedEvent) error {
	msg, err := Encode(infrastructure.RoutingKeyReceived, event.ImageID.String(), event)
	if err != nil {
		return fmt.Errorf("Bus - PublishReceived - Encode: %w", err)
	}

	err = b.publish(ctx, msg)
	if err != nil {
		return fmt.Errorf("Bus - PublishReceived - b.publish: %w", err)
	}

	return nil
}

func (b *Bus) PublishProcessed(ctx context.Context, event entity.ProcessedEvent) error {
	msg, err := Encode(infrastructure.RoutingKeyProcessed, event.ImageID.String(), event)
	if err != nil {
		return fmt.Errorf("Bus - PublishProcessed - Encode: %w", err)
	}

	err = b.publish(ctx, msg)
	if err != nil {
		return fmt.Errorf("Bus - PublishProcessed - b.publish: %w", err)
	}

	return nil
}

// SendEvents relays outbox rows. The payload is already encoded; the row id becomes the message id
// so a broker with deduplication drops a batch resent after a partial failure.
func (b *Bus) SendEvents(ctx context.Context, events []*entity.OutboxEvent) error {
	if len(events) == 0 {
		return nil
	}

	msgs := make([]infrastructure.Message, 0, len(events))
	for _, event := range events {
		msgs = append(msgs, infrastructure.Message{
			RoutingKey: event.RoutingKey,
			Key:        event.AggregateID.String(),
			ID:         event.ID.String(),
			Body:       event.Payload,
			Headers: map[string]string{
				infrastructure.HeaderSchemaVersion: entity.EventSchemaVersion,
				infrastructure.HeaderEventID:       event.ID.String(),
			},
		})
	}

	err := b.publisher.Publish(ctx, msgs...)
	for _, msg := range msgs {
		b.metrics.ObservePublish(msg.RoutingKey, err)
	}
	if err != nil {
		return fmt.Errorf("Bus - SendEvents - b.publisher.Publish: %w", err)
	}

	return nil
}

func (b *Bus) Close() error {
	return b.publisher.Close()
}

func (b *Bus) publish(ctx context.Context, msg infrastructure.Message) error {
	err := b.publisher.Publish(ctx, msg)
	b.metrics.ObservePublish(msg.RoutingKey, err)

	return err
}

// Encode builds the wire message of an event.
func Encode(routingKey, key string, event any) (infrastructure.Message, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return infrastructure.Message{}, fmt.Errorf("json.Marshal: %w", err)
	}

	return infrastructure.Message{
		RoutingKey: routingKey,
		Key:        key,
		Body:       body,
		Headers: map[string]string{
			infrastructure.HeaderSchemaVersion: entity.EventSchemaVersion,
		},
	}, nil
}

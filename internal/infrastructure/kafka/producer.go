package kafka

import (
	"context"
	"fmt"

	"github.com/andreyxaxa/Spectra/internal/infrastructure"
	"github.com/segmentio/kafka-go"
)

const headerMessageID = "message-id"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type EventProducer struct {
	writer   messageWriter
	closer   func() error
	exchange string
}

func NewEventProducer(w *kafka.Writer, exchange string) *EventProducer {
	return &EventProducer{
		writer:   w,
		closer:   w.Close,
		exchange: exchange,
	}
}

func (ep *EventProducer) Publish(ctx context.Context, msgs ...infrastructure.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	toSend := make([]kafka.Message, 0, len(msgs))
	for _, m := range msgs {
		toSend = append(toSend, ep.toKafka(m))
	}

	err := ep.writer.WriteMessages(ctx, toSend...)
	if err != nil {
		return fmt.Errorf("EventProducer - Publish - ep.writer.WriteMessages: %w", err)
	}

	return nil
}

func (ep *EventProducer) Close() error {
	if ep.closer == nil {
		return nil
	}

	err := ep.closer()
	if err != nil {
		return fmt.Errorf("EventProducer - Close: %w", err)
	}

	return nil
}

func (ep *EventProducer) toKafka(m infrastructure.Message) kafka.Message {
	headers := make([]kafka.Header, 0, len(m.Headers)+1)
	for k, v := range m.Headers {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	if m.ID != "" {
		headers = append(headers, kafka.Header{Key: headerMessageID, Value: []byte(m.ID)})
	}

	return kafka.Message{
		Topic:   TopicName(ep.exchange, m.RoutingKey),
		Key:     []byte(m.Key),
		Value:   m.Body,
		Headers: headers,
	}
}

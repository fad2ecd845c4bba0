package infrastructure

import (
	"context"
	"time"

	"github.com/andreyxaxa/Spectra/internal/entity"
)

const (
	RoutingKeyReceived  = "image.received"
	RoutingKeyProcessed = "image.processed"

	HeaderSchemaVersion = "schema-version"
	HeaderEventID       = "event-id"
)

type (
	// Message is one broker publication. Key groups messages of one image, ID deduplicates retries.
	Message struct {
		RoutingKey string
		Key        string
		ID         string
		Body       []byte
		Headers    map[string]string
	}

	// Delivery is a received message awaiting exactly one of Ack or Nak.
	Delivery interface {
		RoutingKey() string
		Body() []byte
		Header(key string) string
		// Attempt starts at 1.
		Attempt() int
		Ack(ctx context.Context) error
		// Nak asks for redelivery no sooner than delay from now.
		Nak(ctx context.Context, delay time.Duration) error
	}

	EventConsumer interface {
		ReadEvent(ctx context.Context) (Delivery, error)
		Close() error
	}

	EventPublisher interface {
		Publish(ctx context.Context, msgs ...Message) error
		Close() error
	}

	// EventBus publishes the pipeline's typed events.
	EventBus interface {
		PublishReceived(ctx context.Context, event entity.ReceivedEvent) error
		PublishProcessed(ctx context.Context, event entity.ProcessedEvent) error
	}

	// EventsSender relays encoded outbox rows.
	EventsSender interface {
		SendEvents(ctx context.Context, events []*entity.OutboxEvent) error
	}

	// TopologyDeclarer creates the exchange, queues and bindings; declaring twice is a no-op.
	TopologyDeclarer interface {
		Declare(ctx context.Context, topology Topology) error
	}

	ImageCodec interface {
		Thumbnail(ctx context.Context, data []byte, width, height int, format string) ([]byte, error)
	}
)

type Binding struct {
	Queue      string
	RoutingKey string
}

type Topology struct {
	Exchange string
	Bindings []Binding
}

// Queue returns the queue bound to routingKey.
func (t Topology) Queue(routingKey string) (string, bool) {
	for _, b := range t.Bindings {
		if b.RoutingKey == routingKey {
			return b.Queue, true
		}
	}
	return "", false
}

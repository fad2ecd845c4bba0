package jetstream

import (
	"context"
	"fmt"
	"time"

	"github.com/andreyxaxa/Spectra/internal/infrastructure"
	"github.com/nats-io/nats.go/jetstream"
)

// TopologyDeclarer maps the exchange to a stream and each queue to a durable pull consumer
// filtered on its routing key.
type TopologyDeclarer struct {
	js         jetstream.JetStream
	ackWait    time.Duration
	maxDeliver int
}

func NewTopologyDeclarer(js jetstream.JetStream, ackWait time.Duration, maxDeliver int) *TopologyDeclarer {
	return &TopologyDeclarer{
		js:         js,
		ackWait:    ackWait,
		maxDeliver: maxDeliver,
	}
}

func (d *TopologyDeclarer) Declare(ctx context.Context, topology infrastructure.Topology) error {
	_, err := d.js.CreateOrUpdateStream(ctx, StreamConfig(topology))
	if err != nil {
		return fmt.Errorf("TopologyDeclarer - Declare - d.js.CreateOrUpdateStream: %w", err)
	}

	for _, b := range topology.Bindings {
		_, err = d.js.CreateOrUpdateConsumer(ctx, topology.Exchange, ConsumerConfig(b, d.ackWait, d.maxDeliver))
		if err != nil {
			return fmt.Errorf("TopologyDeclarer - Declare - d.js.CreateOrUpdateConsumer(%s): %w", b.Queue, err)
		}
	}

	return nil
}

// StreamConfig uses work-queue retention: a message leaves the stream once its queue acks it.
func StreamConfig(topology infrastructure.Topology) jetstream.StreamConfig {
	subjects := make([]string, 0, len(topology.Bindings))
	for _, b := range topology.Bindings {
		subjects = append(subjects, b.RoutingKey)
	}

	return jetstream.StreamConfig{
		Name:       topology.Exchange,
		Subjects:   subjects,
		Retention:  jetstream.WorkQueuePolicy,
		Storage:    jetstream.FileStorage,
		Duplicates: 2 * time.Minute,
	}
}

func ConsumerConfig(b infrastructure.Binding, ackWait time.Duration, maxDeliver int) jetstream.ConsumerConfig {
	return jetstream.ConsumerConfig{
		Durable:       b.Queue,
		FilterSubject: b.RoutingKey,
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverAllPolicy,
		AckWait:       ackWait,
		MaxDeliver:    maxDeliver,
	}
}

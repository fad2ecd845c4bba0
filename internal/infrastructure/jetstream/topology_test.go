package jetstream

import (
	"testing"
	"time"

	"github.com/andreyxaxa/Spectra/internal/infrastructure"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
)

var topology = infrastructure.Topology{
	Exchange: "spectra-exchange",
	Bindings: []infrastructure.Binding{
		{Queue: "image-processing-queue", RoutingKey: infrastructure.RoutingKeyReceived},
		{Queue: "image-processed-queue", RoutingKey: infrastructure.RoutingKeyProcessed},
	},
}

func TestStreamConfig(t *testing.T) {
	cfg := StreamConfig(topology)

	assert.Equal(t, "spectra-exchange", cfg.Name)
	assert.Equal(t, []string{"image.received", "image.processed"}, cfg.Subjects)
	assert.Equal(t, jetstream.WorkQueuePolicy, cfg.Retention)
	assert.Equal(t, jetstream.FileStorage, cfg.Storage)
}

func TestConsumerConfig(t *testing.T) {
	cfg := ConsumerConfig(topology.Bindings[0], 30*time.Second, 5)

	assert.Equal(t, "image-processing-queue", cfg.Durable)
	assert.Equal(t, "image.received", cfg.FilterSubject)
	assert.Equal(t, jetstream.AckExplicitPolicy, cfg.AckPolicy)
	assert.Equal(t, 30*time.Second, cfg.AckWait)
	assert.Equal(t, 5, cfg.MaxDeliver)
}

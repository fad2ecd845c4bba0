package kafka

import (
	"context"
	"fmt"

	"github.com/andreyxaxa/Spectra/internal/infrastructure"
	"github.com/andreyxaxa/Spectra/pkg/kafka/admin"
	"github.com/segmentio/kafka-go"
)

// TopicName maps an exchange binding onto a topic; the queue becomes the consumer group.
func TopicName(exchange, routingKey string) string {
	return exchange + "." + routingKey
}

type TopologyDeclarer struct {
	broker            string
	partitions        int
	replicationFactor int
}

func NewTopologyDeclarer(broker string, partitions, replicationFactor int) *TopologyDeclarer {
	return &TopologyDeclarer{
		broker:            broker,
		partitions:        partitions,
		replicationFactor: replicationFactor,
	}
}

func (d *TopologyDeclarer) Declare(ctx context.Context, topology infrastructure.Topology) error {
	err := admin.EnsureTopics(ctx, d.broker, TopicConfigs(topology, d.partitions, d.replicationFactor)...)
	if err != nil {
		return fmt.Errorf("TopologyDeclarer - Declare - admin.EnsureTopics: %w", err)
	}

	return nil
}

func TopicConfigs(topology infrastructure.Topology, partitions, replicationFactor int) []kafka.TopicConfig {
	topics := make([]kafka.TopicConfig, 0, len(topology.Bindings))
	for _, b := range topology.Bindings {
		topics = append(topics, kafka.TopicConfig{
			Topic:             TopicName(topology.Exchange, b.RoutingKey),
			NumPartitions:     partitions,
			ReplicationFactor: replicationFactor,
		})
	}

	return topics
}

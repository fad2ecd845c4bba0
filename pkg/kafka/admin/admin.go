package admin

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/segmentio/kafka-go"
)

// EnsureTopics creates topics on the cluster controller.
// Topics that already exist are left untouched.
func EnsureTopics(ctx context.Context, broker string, topics ...kafka.TopicConfig) error {
	conn, err := kafka.DialContext(ctx, "tcp", broker)
	if err != nil {
		return fmt.Errorf("Kafka Admin - EnsureTopics - kafka.DialContext: %w", err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("Kafka Admin - EnsureTopics - conn.Controller: %w", err)
	}

	var dialer kafka.Dialer

	ctrlConn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return fmt.Errorf("Kafka Admin - EnsureTopics - dialer.DialContext(controller): %w", err)
	}
	defer ctrlConn.Close()

	for _, topic := range topics {
		err = ctrlConn.CreateTopics(topic)
		if err != nil && !errors.Is(err, kafka.TopicAlreadyExists) {
			return fmt.Errorf("Kafka Admin - EnsureTopics - ctrlConn.CreateTopics(%s): %w", topic.Topic, err)
		}
	}

	return nil
}

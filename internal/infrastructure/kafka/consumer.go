package kafka

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/andreyxaxa/Spectra/internal/infrastructure"
	"github.com/andreyxaxa/Spectra/pkg/kafka/consumer"
	"github.com/segmentio/kafka-go"
)

const (
	headerAttempt = "attempt"
	// headerRetryAt holds the unix milliseconds before which a requeued copy is not handed out.
	headerRetryAt = "retry-at"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// EventConsumer reads one topic inside its queue's consumer group.
// Kafka has no negative ack, so Nak re-enqueues a copy with a bumped attempt header and settles the original.
// Offsets are committed per partition only up to the lowest delivery still in flight.
type EventConsumer struct {
	reader     messageReader
	requeue    messageWriter
	offsets    *offsetTracker
	closer     func() error
	routingKey string
	now        func() time.Time
}

func NewEventConsumer(c *consumer.Consumer, requeue *kafka.Writer, routingKey string) *EventConsumer {
	return newEventConsumer(c.Reader, requeue, c.Close, routingKey)
}

func newEventConsumer(r messageReader, requeue messageWriter, closer func() error, routingKey string) *EventConsumer {
	return &EventConsumer{
		reader:     r,
		requeue:    requeue,
		offsets:    newOffsetTracker(),
		closer:     closer,
		routingKey: routingKey,
		now:        time.Now,
	}
}

// ReadEvent holds a requeued copy back until its retry-at time, which stalls its partition meanwhile.
func (ec *EventConsumer) ReadEvent(ctx context.Context) (infrastructure.Delivery, error) {
	msg, err := ec.reader.FetchMessage(ctx)
	if err != nil {
		return nil, fmt.Errorf("EventConsumer - ReadEvent - ec.reader.FetchMessage: %w", err)
	}

	if wait := retryAt(msg.Headers).Sub(ec.now()); wait > 0 {
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			// left unsettled, the group redelivers it
			return nil, fmt.Errorf("EventConsumer - ReadEvent: %w", ctx.Err())
		case <-timer.C:
		}
	}

	gen := ec.offsets.track(msg)

	return &delivery{msg: msg, gen: gen, consumer: ec}, nil
}

func (ec *EventConsumer) Close() error {
	if ec.closer == nil {
		return nil
	}

	err := ec.closer()
	if err != nil {
		return fmt.Errorf("EventConsumer - Close: %w", err)
	}

	return nil
}

type delivery struct {
	msg      kafka.Message
	gen      int
	consumer *EventConsumer
}

func (d *delivery) RoutingKey() string { return d.consumer.routingKey }

func (d *delivery) Body() []byte { return d.msg.Value }

func (d *delivery) Header(key string) string {
	for _, h := range d.msg.Headers {
		if strings.EqualFold(h.Key, key) {
			return string(h.Value)
		}
	}
	return ""
}

func (d *delivery) Attempt() int {
	n, err := strconv.Atoi(d.Header(headerAttempt))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func (d *delivery) Ack(ctx context.Context) error {
	err := d.consumer.offsets.settle(ctx, d.msg, d.gen, d.consumer.reader.CommitMessages)
	if err != nil {
		return fmt.Errorf("delivery - Ack - CommitMessages: %w", err)
	}
	return nil
}

// Nak leaves the offset unsettled when the requeue write fails, so the group redelivers the original.
func (d *delivery) Nak(ctx context.Context, delay time.Duration) error {
	headers := withHeader(d.msg.Headers, headerAttempt, strconv.Itoa(d.Attempt()+1))
	if delay > 0 {
		at := d.consumer.now().Add(delay).UnixMilli()
		headers = withHeader(headers, headerRetryAt, strconv.FormatInt(at, 10))
	}

	retry := kafka.Message{
		Topic:   d.msg.Topic,
		Key:     d.msg.Key,
		Value:   d.msg.Value,
		Headers: headers,
	}

	err := d.consumer.requeue.WriteMessages(ctx, retry)
	if err != nil {
		return fmt.Errorf("delivery - Nak - WriteMessages: %w", err)
	}

	err = d.consumer.offsets.settle(ctx, d.msg, d.gen, d.consumer.reader.CommitMessages)
	if err != nil {
		return fmt.Errorf("delivery - Nak - CommitMessages: %w", err)
	}

	return nil
}

// withHeader replaces every key header with one carrying value.
func withHeader(headers []kafka.Header, key, value string) []kafka.Header {
	out := make([]kafka.Header, 0, len(headers)+1)
	for _, h := range headers {
		if strings.EqualFold(h.Key, key) {
			continue
		}
		out = append(out, h)
	}

	return append(out, kafka.Header{Key: key, Value: []byte(value)})
}

func retryAt(headers []kafka.Header) time.Time {
	for _, h := range headers {
		if !strings.EqualFold(h.Key, headerRetryAt) {
			continue
		}
		ms, err := strconv.ParseInt(string(h.Value), 10, 64)
		if err != nil {
			return time.Time{}
		}
		return time.UnixMilli(ms)
	}
	return time.Time{}
}

package kafka

import (
	"context"
	"sync"

	"github.com/segmentio/kafka-go"
)

type partitionKey struct {
	topic     string
	partition int
}

type partitionOffsets struct {
	gen     int
	next    int64
	pending []int64
	done    map[int64]struct{}
}

// offsetTracker commits a partition only up to its lowest unsettled offset,
// so a settled offset never moves the group past one still in flight.
type offsetTracker struct {
	mu         sync.Mutex
	partitions map[partitionKey]*partitionOffsets
}

func newOffsetTracker() *offsetTracker {
	return &offsetTracker{partitions: make(map[partitionKey]*partitionOffsets)}
}

// track registers a fetched message and returns the partition generation it belongs to.
// An offset at or below one already fetched means the partition was reassigned and replayed.
func (t *offsetTracker) track(msg kafka.Message) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := partitionKey{topic: msg.Topic, partition: msg.Partition}

	p, ok := t.partitions[key]
	if !ok {
		p = &partitionOffsets{done: make(map[int64]struct{})}
		t.partitions[key] = p
	} else if msg.Offset < p.next {
		p.gen++
		p.pending = nil
		p.done = make(map[int64]struct{})
	}

	p.pending = append(p.pending, msg.Offset)
	p.next = msg.Offset + 1

	return p.gen
}

// settle marks msg finished and commits the highest contiguous finished offset, if it advanced.
func (t *offsetTracker) settle(
	ctx context.Context,
	msg kafka.Message,
	gen int,
	commit func(ctx context.Context, msgs ...kafka.Message) error,
) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.partitions[partitionKey{topic: msg.Topic, partition: msg.Partition}]
	if !ok || p.gen != gen {
		// replayed after a rebalance, the new generation settles it
		return nil
	}

	p.done[msg.Offset] = struct{}{}

	upTo := int64(-1)
	for len(p.pending) > 0 {
		if _, finished := p.done[p.pending[0]]; !finished {
			break
		}
		upTo = p.pending[0]
		delete(p.done, upTo)
		p.pending = p.pending[1:]
	}

	if upTo < 0 {
		return nil
	}

	// commits stay ordered under the lock
	return commit(ctx, kafka.Message{Topic: msg.Topic, Partition: msg.Partition, Offset: upTo})
}

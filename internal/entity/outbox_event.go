package entity

import (
	"time"

	"github.com/google/uuid"
)

type OutboxEvent struct {
	ID          uuid.UUID    `json:"id"`
	AggregateID uuid.UUID    `json:"aggregate_id"`
	RoutingKey  string       `json:"routing_key"`
	Payload     []byte       `json:"payload"`
	Status      OutboxStatus `json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
	ProcessedAt *time.Time   `json:"processed_at,omitempty"`
	RetryCount  int          `json:"retry_count"`
}

// OutboxStatus moves pending -> processing -> processed, or back to pending on a failed send.
// Rows over the retry limit end in failed.
type OutboxStatus string

const (
	OutboxPending    OutboxStatus = "pending"
	OutboxProcessing OutboxStatus = "processing"
	OutboxProcessed  OutboxStatus = "processed"
	OutboxFailed     OutboxStatus = "failed"
)

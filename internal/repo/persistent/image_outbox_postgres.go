package persistent

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/andreyxaxa/Spectra/internal/entity"
	"github.com/andreyxaxa/Spectra/pkg/postgres"
	"github.com/andreyxaxa/Spectra/pkg/types/errs"
	"github.com/google/uuid"
)

const (
	// Table
	outboxTable = "images_outbox"

	// Columns
	outboxIDColumn          = "id"
	outboxAggregateIDColumn = "aggregate_id"
	outboxRoutingKeyColumn  = "routing_key"
	outboxPayloadColumn     = "payload"
	outboxStatusColumn      = "status"
	outboxCreatedAtColumn   = "created_at"
	outboxProcessedAtColumn = "processed_at"
	outboxRetryCountColumn  = "retry_count"
	outboxClaimedAtColumn   = "claimed_at"
)

// OutboxRepo stores outbox rows. A processing row whose claim is older than lease
// belongs to a relay that died or failed to record the result, and is claimed again.
type OutboxRepo struct {
	*postgres.Postgres

	lease time.Duration
	now   func() time.Time
}

func NewOutboxRepo(pg *postgres.Postgres, lease time.Duration) *OutboxRepo {
	return &OutboxRepo{Postgres: pg, lease: lease, now: time.Now}
}

func (r *OutboxRepo) Create(ctx context.Context, event *entity.OutboxEvent) error {
	sql, args, err := r.Builder.
		Insert(outboxTable).
		Columns(
			outboxIDColumn,
			outboxAggregateIDColumn,
			outboxRoutingKeyColumn,
			outboxPayloadColumn,
			outboxStatusColumn,
			outboxCreatedAtColumn,
			outboxRetryCountColumn,
		).
		Values(
			event.ID,
			event.AggregateID,
			event.RoutingKey,
			event.Payload,
			string(event.Status),
			event.CreatedAt,
			event.RetryCount,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("OutboxRepo - Create - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	_, err = executor.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("OutboxRepo - Create - executor.Exec: %w", err)
	}

	return nil
}

// GetPendingEvents locks the oldest pending rows, and processing rows past their lease,
// so that concurrent relays never pick the same event.
// It must run inside a transaction for the lock to hold until the rows are marked.
func (r *OutboxRepo) GetPendingEvents(ctx context.Context, limit int, maxRetries int) ([]*entity.OutboxEvent, error) {
	sql, args, err := pendingEventsQuery(r.Builder, limit, maxRetries, r.now().Add(-r.lease))
	if err != nil {
		return nil, fmt.Errorf("OutboxRepo - GetPendingEvents - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	rows, err := executor.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("OutboxRepo - GetPendingEvents - executor.Query: %w", err)
	}
	defer rows.Close()

	events := make([]*entity.OutboxEvent, 0, limit)
	for rows.Next() {
		var event entity.OutboxEvent
		err = rows.Scan(
			&event.ID,
			&event.AggregateID,
			&event.RoutingKey,
			&event.Payload,
			&event.Status,
			&event.CreatedAt,
			&event.ProcessedAt,
			&event.RetryCount,
		)
		if err != nil {
			return nil, fmt.Errorf("OutboxRepo - GetPendingEvents - rows.Scan: %w", err)
		}
		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("OutboxRepo - GetPendingEvents - rows.Err: %w", err)
	}

	return events, nil
}

// MarkAsProcessingBatch starts a lease on the rows. Taking over an expired claim spends a retry.
func (r *OutboxRepo) MarkAsProcessingBatch(ctx context.Context, IDs uuid.UUIDs) error {
	sql, args, err := markProcessingQuery(r.Builder, IDs, r.now())
	if err != nil {
		return fmt.Errorf("OutboxRepo - MarkAsProcessingBatch - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	tag, err := executor.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("OutboxRepo - MarkAsProcessingBatch - executor.Exec: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("OutboxRepo - MarkAsProcessingBatch: %w", errs.ErrRecordNotFound)
	}

	return nil
}

func (r *OutboxRepo) MarkAsProcessedBatch(ctx context.Context, IDs uuid.UUIDs) error {
	now := r.now()

	sql, args, err := r.Builder.
		Update(outboxTable).
		Set(outboxStatusColumn, string(entity.OutboxProcessed)).
		Set(outboxProcessedAtColumn, now).
		Where(squirrel.Eq{outboxIDColumn: IDs}).
		ToSql()
	if err != nil {
		return fmt.Errorf("OutboxRepo - MarkAsProcessedBatch - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	tag, err := executor.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("OutboxRepo - MarkAsProcessedBatch - executor.Exec: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("OutboxRepo - MarkAsProcessedBatch: %w", errs.ErrRecordNotFound)
	}

	return nil
}

func (r *OutboxRepo) MarkMaxRetriesAsFailed(ctx context.Context, maxRetries int) error {
	sql, args, err := markFailedQuery(r.Builder, maxRetries, r.now().Add(-r.lease))
	if err != nil {
		return fmt.Errorf("OutboxRepo - MarkMaxRetriesAsFailed - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	_, err = executor.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("OutboxRepo - MarkMaxRetriesAsFailed - executor.Exec: %w", err)
	}

	return nil
}

func (r *OutboxRepo) IncrementRetryCountBatch(ctx context.Context, IDs uuid.UUIDs) error {
	sql, args, err := r.Builder.
		Update(outboxTable).
		Set(outboxRetryCountColumn, squirrel.Expr(outboxRetryCountColumn+" + 1")).
		Set(outboxStatusColumn, string(entity.OutboxPending)).
		Set(outboxClaimedAtColumn, nil).
		Where(squirrel.Eq{outboxIDColumn: IDs}).
		ToSql()
	if err != nil {
		return fmt.Errorf("OutboxRepo - IncrementRetryCountBatch - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	tag, err := executor.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("OutboxRepo - IncrementRetryCountBatch - executor.Exec: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("OutboxRepo - IncrementRetryCountBatch: %w", errs.ErrRecordNotFound)
	}

	return nil
}

// DeleteOldProcessedAndFailed removes finished rows older than retention.
func (r *OutboxRepo) DeleteOldProcessedAndFailed(ctx context.Context, retention time.Duration) (int64, error) {
	sql, args, err := deleteFinishedQuery(r.Builder, r.now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("OutboxRepo - DeleteOldProcessedAndFailed - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)
	tag, err := executor.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("OutboxRepo - DeleteOldProcessedAndFailed - executor.Exec: %w", err)
	}

	return tag.RowsAffected(), nil
}

// claimable matches pending rows and processing rows claimed before leaseCutoff.
func claimable(leaseCutoff time.Time) squirrel.Or {
	return squirrel.Or{
		squirrel.Eq{outboxStatusColumn: string(entity.OutboxPending)},
		squirrel.And{
			squirrel.Eq{outboxStatusColumn: string(entity.OutboxProcessing)},
			squirrel.Lt{outboxClaimedAtColumn: leaseCutoff},
		},
	}
}

func pendingEventsQuery(b squirrel.StatementBuilderType, limit int, maxRetries int, leaseCutoff time.Time) (string, []any, error) {
	return b.
		Select(
			outboxIDColumn,
			outboxAggregateIDColumn,
			outboxRoutingKeyColumn,
			outboxPayloadColumn,
			outboxStatusColumn,
			outboxCreatedAtColumn,
			outboxProcessedAtColumn,
			outboxRetryCountColumn,
		).
		From(outboxTable).
		Where(squirrel.And{
			claimable(leaseCutoff),
			squirrel.Lt{outboxRetryCountColumn: maxRetries},
		}).
		OrderBy(outboxCreatedAtColumn + " ASC").
		Limit(uint64(limit)).
		Suffix("FOR UPDATE SKIP LOCKED").
		ToSql()
}

func markProcessingQuery(b squirrel.StatementBuilderType, IDs uuid.UUIDs, now time.Time) (string, []any, error) {
	return b.
		Update(outboxTable).
		Set(outboxRetryCountColumn, squirrel.Expr(
			outboxRetryCountColumn+" + CASE WHEN "+outboxStatusColumn+" = ? THEN 1 ELSE 0 END",
			string(entity.OutboxProcessing),
		)).
		Set(outboxStatusColumn, string(entity.OutboxProcessing)).
		Set(outboxClaimedAtColumn, now).
		Where(squirrel.Eq{outboxIDColumn: IDs}).
		ToSql()
}

func markFailedQuery(b squirrel.StatementBuilderType, maxRetries int, leaseCutoff time.Time) (string, []any, error) {
	return b.
		Update(outboxTable).
		Set(outboxStatusColumn, string(entity.OutboxFailed)).
		Where(squirrel.And{
			claimable(leaseCutoff),
			squirrel.GtOrEq{outboxRetryCountColumn: maxRetries},
		}).
		ToSql()
}

func deleteFinishedQuery(b squirrel.StatementBuilderType, before time.Time) (string, []any, error) {
	return b.
		Delete(outboxTable).
		Where(squirrel.And{
			squirrel.Eq{outboxStatusColumn: []string{string(entity.OutboxProcessed), string(entity.OutboxFailed)}},
			squirrel.Lt{outboxCreatedAtColumn: before},
		}).
		ToSql()
}

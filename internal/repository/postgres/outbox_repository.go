package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MarlyH/CorpsAPI-sub000/internal/domain"
)

var errOutboxMessageNotFound = errors.New("outbox message not found")

// OutboxRepository implements repository.OutboxRepository on PostgreSQL
type OutboxRepository struct {
	pool *pgxpool.Pool
}

// NewOutboxRepository creates a new OutboxRepository
func NewOutboxRepository(pool *pgxpool.Pool) *OutboxRepository {
	return &OutboxRepository{pool: pool}
}

// Create stores a message. Inside a transaction the insert runs in a
// savepoint, so a failure leaves the outer transaction usable.
func (r *OutboxRepository) Create(ctx context.Context, msg *domain.OutboxMessage) error {
	const stmt = `
		INSERT INTO outbox (
			id, channel, topic, partition_key, payload, status, attempts, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	args := []any{
		msg.ID,
		string(msg.Channel),
		msg.Topic,
		msg.Key,
		msg.Payload,
		string(msg.Status),
		msg.Attempts,
		msg.CreatedAt,
	}

	tx := txFromContext(ctx)
	if tx == nil {
		if _, err := r.pool.Exec(ctx, stmt, args...); err != nil {
			return fmt.Errorf("failed to create outbox message: %w", err)
		}
		return nil
	}

	sp, err := tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to open savepoint: %w", err)
	}
	if _, err := sp.Exec(ctx, stmt, args...); err != nil {
		_ = sp.Rollback(ctx)
		return fmt.Errorf("failed to create outbox message in transaction: %w", err)
	}
	return sp.Commit(ctx)
}

// GetPending returns messages still owed a delivery attempt, oldest first.
// Rows are locked with SKIP LOCKED so concurrent relays split the work when
// called inside a transaction.
func (r *OutboxRepository) GetPending(ctx context.Context, limit, maxAttempts int) ([]*domain.OutboxMessage, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT id::text, channel, topic, partition_key, payload, status,
		       attempts, COALESCE(last_error, ''), created_at, published_at
		FROM outbox
		WHERE status IN ('pending', 'failed') AND attempts < $2
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED`, limit, maxAttempts)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending messages: %w", err)
	}

	messages, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.OutboxMessage, error) {
		var (
			msg             domain.OutboxMessage
			channel, status string
		)
		err := row.Scan(
			&msg.ID,
			&channel,
			&msg.Topic,
			&msg.Key,
			&msg.Payload,
			&status,
			&msg.Attempts,
			&msg.LastError,
			&msg.CreatedAt,
			&msg.PublishedAt,
		)
		msg.Channel = domain.NotificationChannel(channel)
		msg.Status = domain.OutboxStatus(status)
		return &msg, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan outbox message: %w", err)
	}
	return messages, nil
}

// MarkAsPublished marks a message as successfully published
func (r *OutboxRepository) MarkAsPublished(ctx context.Context, id string, now time.Time) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE outbox SET
			status = 'published',
			attempts = attempts + 1,
			published_at = $2
		WHERE id = $1`, id, now)
	if err != nil {
		return fmt.Errorf("failed to mark message as published: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errOutboxMessageNotFound
	}
	return nil
}

// MarkAsFailed records a failed attempt
func (r *OutboxRepository) MarkAsFailed(ctx context.Context, id string, reason string) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE outbox SET
			status = 'failed',
			attempts = attempts + 1,
			last_error = $2
		WHERE id = $1`, id, reason)
	if err != nil {
		return fmt.Errorf("failed to mark message as failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errOutboxMessageNotFound
	}
	return nil
}

// DeletePublished deletes messages published before cutoff
func (r *OutboxRepository) DeletePublished(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := conn(ctx, r.pool).Exec(ctx,
		`DELETE FROM outbox WHERE status = 'published' AND published_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete published messages: %w", err)
	}
	return tag.RowsAffected(), nil
}

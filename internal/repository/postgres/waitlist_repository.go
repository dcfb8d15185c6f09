package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MarlyH/CorpsAPI-sub000/internal/domain"
)

// WaitlistRepository implements repository.WaitlistRepository on PostgreSQL
type WaitlistRepository struct {
	pool *pgxpool.Pool
}

// NewWaitlistRepository creates a new WaitlistRepository
func NewWaitlistRepository(pool *pgxpool.Pool) *WaitlistRepository {
	return &WaitlistRepository{pool: pool}
}

// Add inserts a waitlist entry
func (r *WaitlistRepository) Add(ctx context.Context, entry *domain.WaitlistEntry) error {
	_, err := conn(ctx, r.pool).Exec(ctx,
		`INSERT INTO waitlist_entries (event_id, user_id, created_at) VALUES ($1, $2, $3)`,
		entry.EventID, entry.UserID, entry.CreatedAt)
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok && constraint == constraintWaitlist {
			return domain.ErrAlreadyOnWaitlist
		}
		return fmt.Errorf("failed to add waitlist entry: %w", err)
	}
	return nil
}

// Exists reports whether the user is on the event's waitlist
func (r *WaitlistRepository) Exists(ctx context.Context, eventID, userID string) (bool, error) {
	var exists bool
	err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM waitlist_entries WHERE event_id = $1 AND user_id = $2)`,
		eventID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check waitlist: %w", err)
	}
	return exists, nil
}

// Remove deletes one entry, reporting whether it existed
func (r *WaitlistRepository) Remove(ctx context.Context, eventID, userID string) (bool, error) {
	tag, err := conn(ctx, r.pool).Exec(ctx,
		`DELETE FROM waitlist_entries WHERE event_id = $1 AND user_id = $2`, eventID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to remove waitlist entry: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListByEvent returns the event's entries oldest first
func (r *WaitlistRepository) ListByEvent(ctx context.Context, eventID string) ([]*domain.WaitlistEntry, error) {
	return r.list(ctx, `
		SELECT event_id::text, user_id, created_at FROM waitlist_entries
		WHERE event_id = $1
		ORDER BY created_at, user_id`, eventID)
}

// ListByUser returns the user's entries oldest first
func (r *WaitlistRepository) ListByUser(ctx context.Context, userID string) ([]*domain.WaitlistEntry, error) {
	return r.list(ctx, `
		SELECT event_id::text, user_id, created_at FROM waitlist_entries
		WHERE user_id = $1
		ORDER BY created_at, event_id`, userID)
}

// DeleteByEvent removes every entry of the event
func (r *WaitlistRepository) DeleteByEvent(ctx context.Context, eventID string) (int, error) {
	tag, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM waitlist_entries WHERE event_id = $1`, eventID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear waitlist: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *WaitlistRepository) list(ctx context.Context, query string, arg string) ([]*domain.WaitlistEntry, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query waitlist: %w", err)
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.WaitlistEntry, error) {
		var e domain.WaitlistEntry
		err := row.Scan(&e.EventID, &e.UserID, &e.CreatedAt)
		return &e, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan waitlist: %w", err)
	}
	return entries, nil
}

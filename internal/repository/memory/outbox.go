package memory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MarlyH/CorpsAPI-sub000/internal/domain"
)

var errOutboxMessageNotFound = errors.New("outbox message not found")

type outboxRepo struct {
	s *Store
}

func (r *outboxRepo) Create(ctx context.Context, msg *domain.OutboxMessage) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.outboxErr != nil {
		return fmt.Errorf("failed to create outbox message: %w", r.s.outboxErr)
	}
	if _, ok := r.s.outbox[msg.ID]; ok {
		return fmt.Errorf("failed to create outbox message: duplicate id %s", msg.ID)
	}
	r.s.outbox[msg.ID] = &outboxRow{msg: *msg, seq: r.s.nextSeq()}
	r.s.record(ctx, func() { delete(r.s.outbox, msg.ID) })
	return nil
}

func (r *outboxRepo) GetPending(ctx context.Context, limit, maxAttempts int) ([]*domain.OutboxMessage, error) {
	r.s.mu.Lock()
	var rows []*outboxRow
	for _, row := range r.s.outbox {
		if row.msg.Status != domain.OutboxStatusPublished && row.msg.Attempts < maxAttempts {
			rows = append(rows, row)
		}
	}
	r.s.mu.Unlock()

	sortBySeq(rows, func(r *outboxRow) int64 { return r.seq })
	rows = page(rows, limit, 0)

	out := make([]*domain.OutboxMessage, len(rows))
	for i, row := range rows {
		m := row.msg
		out[i] = &m
	}
	return out, nil
}

func (r *outboxRepo) MarkAsPublished(ctx context.Context, id string, now time.Time) error {
	return r.update(ctx, id, func(m *domain.OutboxMessage) {
		m.Status = domain.OutboxStatusPublished
		m.Attempts++
		m.PublishedAt = &now
	})
}

func (r *outboxRepo) MarkAsFailed(ctx context.Context, id string, reason string) error {
	return r.update(ctx, id, func(m *domain.OutboxMessage) {
		m.Status = domain.OutboxStatusFailed
		m.Attempts++
		m.LastError = reason
	})
}

func (r *outboxRepo) DeletePublished(ctx context.Context, cutoff time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for id, row := range r.s.outbox {
		if row.msg.Status == domain.OutboxStatusPublished && row.msg.PublishedAt != nil && row.msg.PublishedAt.Before(cutoff) {
			delete(r.s.outbox, id)
			n++
		}
	}
	return n, nil
}

func (r *outboxRepo) update(ctx context.Context, id string, change func(*domain.OutboxMessage)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	row, ok := r.s.outbox[id]
	if !ok {
		return errOutboxMessageNotFound
	}
	prev := row.msg
	change(&row.msg)
	r.s.record(ctx, func() { row.msg = prev })
	return nil
}

package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/MarlyH/CorpsAPI-sub000/internal/domain"
	"github.com/MarlyH/CorpsAPI-sub000/internal/repository"
)

type eventRepo struct {
	s *Store
}

func (r *eventRepo) Create(ctx context.Context, event *domain.Event) error {
	release := r.s.acquire(ctx, eventKey(event.ID))
	defer release()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.events[event.ID]; ok {
		return fmt.Errorf("failed to create event: duplicate id %s", event.ID)
	}
	cp := *event
	r.s.events[event.ID] = &cp
	r.s.record(ctx, func() { delete(r.s.events, event.ID) })
	return nil
}

func (r *eventRepo) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.events[id]
	if !ok {
		return nil, domain.ErrEventNotFound
	}
	cp := *e
	return &cp, nil
}

func (r *eventRepo) GetForUpdate(ctx context.Context, id string) (*domain.Event, error) {
	if txFrom(ctx) == nil {
		return nil, errTxRequired
	}
	r.s.acquire(ctx, eventKey(id))
	return r.GetByID(ctx, id)
}

func (r *eventRepo) List(ctx context.Context, filter repository.EventFilter) ([]*domain.Event, error) {
	events := r.selectEvents(func(e *domain.Event) bool {
		if filter.Status != "" && e.Status != filter.Status {
			return false
		}
		if filter.SessionType != "" && e.SessionType != filter.SessionType {
			return false
		}
		return filter.FromDate.IsZero() || !e.StartDate.Before(filter.FromDate)
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	return page(events, limit, filter.Offset), nil
}

func (r *eventRepo) ListDueForRelease(ctx context.Context, today time.Time, limit int) ([]*domain.Event, error) {
	return page(r.selectEvents(func(e *domain.Event) bool {
		return e.DueForRelease(today)
	}), limit, 0), nil
}

func (r *eventRepo) ListDueForConclusion(ctx context.Context, today time.Time, limit int) ([]*domain.Event, error) {
	return page(r.selectEvents(func(e *domain.Event) bool {
		return e.DueForConclusion(today)
	}), limit, 0), nil
}

func (r *eventRepo) ListReminderCandidates(ctx context.Context, window repository.ReminderWindow, limit int) ([]*domain.Event, error) {
	return page(r.selectEvents(func(e *domain.Event) bool {
		return e.Status == domain.EventStatusAvailable && !e.ReminderSent &&
			window.Contains(e.StartDate, e.StartTime)
	}), limit, 0), nil
}

func (r *eventRepo) CompareAndSetStatus(ctx context.Context, id string, from, to domain.EventStatus, now time.Time) (bool, error) {
	release := r.s.acquire(ctx, eventKey(id))
	defer release()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.events[id]
	if !ok || e.Status != from {
		return false, nil
	}
	prev := *e
	e.Status = to
	e.UpdatedAt = now
	r.s.record(ctx, func() { *r.s.events[id] = prev })
	return true, nil
}

func (r *eventRepo) ClaimReminder(ctx context.Context, id string, now time.Time) (bool, error) {
	release := r.s.acquire(ctx, eventKey(id))
	defer release()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.events[id]
	if !ok || e.ReminderSent {
		return false, nil
	}
	prev := *e
	e.ReminderSent = true
	e.UpdatedAt = now
	r.s.record(ctx, func() { *r.s.events[id] = prev })
	return true, nil
}

// selectEvents returns copies of matching events ordered by start
func (r *eventRepo) selectEvents(match func(*domain.Event) bool) []*domain.Event {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*domain.Event
	for _, e := range r.s.events {
		if match(e) {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.StartDate.Equal(b.StartDate) {
			return a.StartDate.Before(b.StartDate)
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		return a.ID < b.ID
	})
	return out
}

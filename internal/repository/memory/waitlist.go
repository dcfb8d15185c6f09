package memory

import (
	"context"

	"github.com/MarlyH/CorpsAPI-sub000/internal/domain"
)

type waitlistRepo struct {
	s *Store
}

func (r *waitlistRepo) Add(ctx context.Context, entry *domain.WaitlistEntry) error {
	release := r.s.acquire(ctx, eventKey(entry.EventID))
	defer release()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := waitKey{eventID: entry.EventID, userID: entry.UserID}
	if _, ok := r.s.waitlist[key]; ok {
		return domain.ErrAlreadyOnWaitlist
	}
	r.s.waitlist[key] = &waitRow{entry: *entry, seq: r.s.nextSeq()}
	r.s.record(ctx, func() { delete(r.s.waitlist, key) })
	return nil
}

func (r *waitlistRepo) Exists(ctx context.Context, eventID, userID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	_, ok := r.s.waitlist[waitKey{eventID: eventID, userID: userID}]
	return ok, nil
}

func (r *waitlistRepo) Remove(ctx context.Context, eventID, userID string) (bool, error) {
	release := r.s.acquire(ctx, eventKey(eventID))
	defer release()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := waitKey{eventID: eventID, userID: userID}
	row, ok := r.s.waitlist[key]
	if !ok {
		return false, nil
	}
	delete(r.s.waitlist, key)
	r.s.record(ctx, func() { r.s.waitlist[key] = row })
	return true, nil
}

func (r *waitlistRepo) ListByEvent(ctx context.Context, eventID string) ([]*domain.WaitlistEntry, error) {
	return r.selectEntries(func(e *domain.WaitlistEntry) bool { return e.EventID == eventID }), nil
}

func (r *waitlistRepo) ListByUser(ctx context.Context, userID string) ([]*domain.WaitlistEntry, error) {
	return r.selectEntries(func(e *domain.WaitlistEntry) bool { return e.UserID == userID }), nil
}

func (r *waitlistRepo) DeleteByEvent(ctx context.Context, eventID string) (int, error) {
	release := r.s.acquire(ctx, eventKey(eventID))
	defer release()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	removed := make(map[waitKey]*waitRow)
	for key, row := range r.s.waitlist {
		if key.eventID == eventID {
			removed[key] = row
			delete(r.s.waitlist, key)
		}
	}
	r.s.record(ctx, func() {
		for key, row := range removed {
			r.s.waitlist[key] = row
		}
	})
	return len(removed), nil
}

func (r *waitlistRepo) selectEntries(match func(*domain.WaitlistEntry) bool) []*domain.WaitlistEntry {
	r.s.mu.Lock()
	var rows []*waitRow
	for _, row := range r.s.waitlist {
		if match(&row.entry) {
			rows = append(rows, row)
		}
	}
	r.s.mu.Unlock()

	sortBySeq(rows, func(r *waitRow) int64 { return r.seq })
	out := make([]*domain.WaitlistEntry, len(rows))
	for i, row := range rows {
		e := row.entry
		out[i] = &e
	}
	return out
}

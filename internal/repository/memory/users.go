package memory

import (
	"context"
	"sort"
	"time"

	"github.com/MarlyH/CorpsAPI-sub000/internal/domain"
)

type userRepo struct {
	s *Store
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *userRepo) GetForUpdate(ctx context.Context, id string) (*domain.User, error) {
	if txFrom(ctx) == nil {
		return nil, errTxRequired
	}
	r.s.acquire(ctx, userKey(id))
	return r.GetByID(ctx, id)
}

func (r *userRepo) UpdateStrikes(ctx context.Context, id string, prev, next domain.StrikeState) (bool, error) {
	release := r.s.acquire(ctx, userKey(id))
	defer release()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok || u.Strikes.Count != prev.Count || !sameDate(u.Strikes.LastStrikeDate, prev.LastStrikeDate) {
		return false, nil
	}
	old := u.Strikes
	u.Strikes = next
	r.s.record(ctx, func() { r.s.users[id].Strikes = old })
	return true, nil
}

func (r *userRepo) ListWithStrikesAtLeast(ctx context.Context, min, limit, offset int) ([]*domain.User, error) {
	r.s.mu.Lock()
	var out []*domain.User
	for _, u := range r.s.users {
		if u.Strikes.Count >= min {
			cp := *u
			out = append(out, &cp)
		}
	}
	r.s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit <= 0 {
		limit = 50
	}
	return page(out, limit, offset), nil
}

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

type childRepo struct {
	s *Store
}

func (r *childRepo) GetByID(ctx context.Context, id string) (*domain.Child, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.children[id]
	if !ok {
		return nil, domain.ErrChildNotFound
	}
	cp := *c
	return &cp, nil
}

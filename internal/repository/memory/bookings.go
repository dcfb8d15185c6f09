package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/MarlyH/CorpsAPI-sub000/internal/domain"
)

type bookingRepo struct {
	s *Store
}

// Create mirrors the live-booking unique indexes of the SQL schema
func (r *bookingRepo) Create(ctx context.Context, booking *domain.Booking) error {
	release := r.s.acquire(ctx, eventKey(booking.EventID))
	defer release()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.bookings[booking.ID]; ok {
		return fmt.Errorf("failed to create booking: duplicate id %s", booking.ID)
	}
	if _, ok := r.s.tokens[booking.CheckInToken]; ok {
		return errors.New("failed to create booking: duplicate check-in token")
	}

	key, hasKey := booking.AttendeeKey()
	if booking.IsLive() {
		for _, row := range r.s.bookings {
			other := &row.booking
			if other.EventID != booking.EventID || !other.IsLive() {
				continue
			}
			if booking.SeatNumber != nil && other.SeatNumber != nil && *other.SeatNumber == *booking.SeatNumber {
				return domain.ErrSeatTaken
			}
			if otherKey, ok := other.AttendeeKey(); hasKey && ok && otherKey == key {
				return domain.ErrDuplicateBooking
			}
		}
	}

	r.s.bookings[booking.ID] = &bookingRow{booking: *booking, seq: r.s.nextSeq()}
	r.s.tokens[booking.CheckInToken] = booking.ID
	r.s.record(ctx, func() {
		delete(r.s.bookings, booking.ID)
		delete(r.s.tokens, booking.CheckInToken)
	})
	return nil
}

func (r *bookingRepo) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	row, ok := r.s.bookings[id]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	cp := row.booking
	return &cp, nil
}

func (r *bookingRepo) GetByCheckInToken(ctx context.Context, token string) (*domain.Booking, error) {
	r.s.mu.Lock()
	id, ok := r.s.tokens[token]
	r.s.mu.Unlock()
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *bookingRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Booking, error) {
	rows := r.selectRows(func(b *domain.Booking) bool { return b.UserID == userID })
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].seq > rows[j].seq })
	if limit <= 0 {
		limit = 50
	}
	return toBookings(page(rows, limit, offset)), nil
}

func (r *bookingRepo) ListByEvent(ctx context.Context, eventID string, statuses ...domain.BookingStatus) ([]*domain.Booking, error) {
	rows := r.selectRows(func(b *domain.Booking) bool {
		if b.EventID != eventID {
			return false
		}
		if len(statuses) == 0 {
			return true
		}
		for _, s := range statuses {
			if b.Status == s {
				return true
			}
		}
		return false
	})
	return toBookings(rows), nil
}

func (r *bookingRepo) TakenSeats(ctx context.Context, eventID string) ([]int, error) {
	rows := r.selectRows(func(b *domain.Booking) bool {
		return b.EventID == eventID && b.IsLive() && b.SeatNumber != nil
	})
	seats := make([]int, 0, len(rows))
	for _, row := range rows {
		seats = append(seats, *row.booking.SeatNumber)
	}
	sort.Ints(seats)
	return seats, nil
}

func (r *bookingRepo) IsSeatTaken(ctx context.Context, eventID string, seat int) (bool, error) {
	rows := r.selectRows(func(b *domain.Booking) bool {
		return b.EventID == eventID && b.IsLive() && b.SeatNumber != nil && *b.SeatNumber == seat
	})
	return len(rows) > 0, nil
}

func (r *bookingRepo) CountLiveSeated(ctx context.Context, eventID string) (int, error) {
	rows := r.selectRows(func(b *domain.Booking) bool {
		return b.EventID == eventID && b.IsLive() && b.SeatNumber != nil
	})
	return len(rows), nil
}

func (r *bookingRepo) HasLiveBooking(ctx context.Context, eventID string, attendee domain.AttendeeKey) (bool, error) {
	rows := r.selectRows(func(b *domain.Booking) bool {
		if b.EventID != eventID || !b.IsLive() {
			return false
		}
		key, ok := b.AttendeeKey()
		return ok && key == attendee
	})
	return len(rows) > 0, nil
}

func (r *bookingRepo) UpdateStatus(ctx context.Context, booking *domain.Booking, expected domain.BookingStatus) (bool, error) {
	release := r.s.acquire(ctx, eventKey(booking.EventID))
	defer release()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	row, ok := r.s.bookings[booking.ID]
	if !ok || row.booking.Status != expected {
		return false, nil
	}
	prev := row.booking
	row.booking.Status = booking.Status
	row.booking.SeatNumber = booking.SeatNumber
	row.booking.UpdatedAt = booking.UpdatedAt
	row.booking.CheckedInAt = booking.CheckedInAt
	row.booking.CheckedOutAt = booking.CheckedOutAt
	row.booking.CancelledAt = booking.CancelledAt
	r.s.record(ctx, func() { row.booking = prev })
	return true, nil
}

// selectRows returns copies of matching rows in insertion order
func (r *bookingRepo) selectRows(match func(*domain.Booking) bool) []*bookingRow {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*bookingRow
	for _, row := range r.s.bookings {
		if match(&row.booking) {
			cp := *row
			out = append(out, &cp)
		}
	}
	sortBySeq(out, func(r *bookingRow) int64 { return r.seq })
	return out
}

func toBookings(rows []*bookingRow) []*domain.Booking {
	out := make([]*domain.Booking, len(rows))
	for i, row := range rows {
		b := row.booking
		out[i] = &b
	}
	return out
}

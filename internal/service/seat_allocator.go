package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/MarlyH/CorpsAPI-sub000/internal/clock"
	"github.com/MarlyH/CorpsAPI-sub000/internal/domain"
	"github.com/MarlyH/CorpsAPI-sub000/internal/repository"
	"github.com/MarlyH/CorpsAPI-sub000/pkg/telemetry"
)

// SeatClaim is one request for one seat
type SeatClaim struct {
	SeatNumber int
	// Attendee is nil for walk-in reservations
	Attendee    domain.Attendee
	Reservation *domain.Reservation
}

// SeatAllocator grants and frees seats. Every call must run inside a
// transaction that already holds the event's row lock, which makes the
// check-then-insert sequence atomic per event.
type SeatAllocator struct {
	bookings repository.BookingRepository
	clock    clock.Clock
}

// NewSeatAllocator creates a new SeatAllocator
func NewSeatAllocator(bookings repository.BookingRepository, clk clock.Clock) *SeatAllocator {
	return &SeatAllocator{bookings: bookings, clock: clk}
}

// TryBook validates the claim against the locked event and inserts a Booked
// booking holding the seat. Checks run in order and stop at the first
// failure: lifecycle, bounds, seat occupancy, capacity, attendee duplicate.
func (a *SeatAllocator) TryBook(ctx context.Context, event *domain.Event, claim SeatClaim) (*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.seat_allocator.try_book")
	defer span.End()

	span.SetAttributes(
		attribute.String("event_id", event.ID),
		attribute.Int("seat_number", claim.SeatNumber),
	)

	if !event.AcceptsBookings() {
		return nil, domain.ErrEventNotAvailable
	}
	if claim.SeatNumber < 1 || claim.SeatNumber > event.TotalSeats {
		return nil, domain.ErrSeatOutOfBounds
	}

	taken, err := a.bookings.IsSeatTaken(ctx, event.ID, claim.SeatNumber)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if taken {
		return nil, domain.ErrSeatTaken
	}

	live, err := a.bookings.CountLiveSeated(ctx, event.ID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if live >= event.TotalSeats {
		return nil, domain.ErrNoSeatsAvailable
	}

	now := a.clock.Now()
	seat := claim.SeatNumber
	booking := &domain.Booking{
		ID:           uuid.NewString(),
		EventID:      event.ID,
		SeatNumber:   &seat,
		Status:       domain.BookingStatusBooked,
		CheckInToken: newCheckInToken(),
		Reservation:  claim.Reservation,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if claim.Attendee != nil {
		key := claim.Attendee.Key()
		dup, err := a.bookings.HasLiveBooking(ctx, event.ID, key)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		if dup {
			return nil, domain.ErrDuplicateBooking
		}

		booking.UserID = claim.Attendee.AccountID()
		if key.Kind == domain.AttendeeChild {
			booking.IsForChild = true
			booking.ChildID = key.ID
		}
	}

	if err := a.bookings.Create(ctx, booking); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.String("booking_id", booking.ID))
	return booking, nil
}

// Release moves a live booking to Cancelled or Striked, freeing its seat.
// It reports whether the event was full before the seat was freed.
func (a *SeatAllocator) Release(ctx context.Context, event *domain.Event, booking *domain.Booking, to domain.BookingStatus) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.seat_allocator.release")
	defer span.End()

	span.SetAttributes(
		attribute.String("event_id", event.ID),
		attribute.String("booking_id", booking.ID),
		attribute.String("to", string(to)),
	)

	if !to.ReleasesSeat() {
		return false, fmt.Errorf("%w: %s does not release a seat", domain.ErrInvalidStatus, to)
	}

	live, err := a.bookings.CountLiveSeated(ctx, event.ID)
	if err != nil {
		return false, err
	}
	held := booking.SeatNumber != nil && booking.IsLive()

	from := booking.Status
	if err := booking.TransitionTo(to, a.clock.Now()); err != nil {
		return false, err
	}

	ok, err := a.bookings.UpdateStatus(ctx, booking, from)
	if err != nil {
		telemetry.RecordError(span, err)
		return false, err
	}
	if !ok {
		return false, fmt.Errorf("%w: booking %s changed concurrently", domain.ErrInvalidTransition, booking.ID)
	}

	return held && live >= event.TotalSeats, nil
}

// newCheckInToken returns an unguessable door token. A v4 UUID carries 122
// random bits from crypto/rand.
func newCheckInToken() string {
	return uuid.NewString()
}

// rejectionReason names a booking rejection for metrics
func rejectionReason(err error) string {
	var elig *domain.EligibilityError
	if errors.As(err, &elig) {
		return elig.Reason.Error()
	}
	for _, known := range []error{
		domain.ErrEventNotAvailable,
		domain.ErrSeatOutOfBounds,
		domain.ErrSeatTaken,
		domain.ErrNoSeatsAvailable,
		domain.ErrDuplicateBooking,
		domain.ErrEventNotFound,
		domain.ErrChildNotFound,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return "other"
}

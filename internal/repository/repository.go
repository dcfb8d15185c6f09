package repository

import (
	"context"
	"time"

	"github.com/MarlyH/CorpsAPI-sub000/internal/domain"
)

// TxManager runs fn inside a transaction carried by the context. Repository
// calls made with the context fn receives join that transaction; a nested
// WithTx joins the outer one.
type TxManager interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventFilter narrows event listings
type EventFilter struct {
	Status      domain.EventStatus
	SessionType domain.SessionType
	// FromDate excludes events starting before this date when set
	FromDate time.Time
	Limit    int
	Offset   int
}

// ReminderWindow bounds event starts in venue-local calendar terms. Both ends
// are inclusive.
type ReminderWindow struct {
	FromDate time.Time
	FromTime domain.TimeOfDay
	ToDate   time.Time
	ToTime   domain.TimeOfDay
}

// Contains reports whether an event starting at date d and minute m is inside w
func (w ReminderWindow) Contains(d time.Time, m domain.TimeOfDay) bool {
	if d.Before(w.FromDate) || d.After(w.ToDate) {
		return false
	}
	if d.Equal(w.FromDate) && m < w.FromTime {
		return false
	}
	if d.Equal(w.ToDate) && m > w.ToTime {
		return false
	}
	return true
}

// EventRepository defines the interface for event data access
type EventRepository interface {
	Create(ctx context.Context, event *domain.Event) error
	GetByID(ctx context.Context, id string) (*domain.Event, error)

	// GetForUpdate loads the event and holds its row lock until the
	// surrounding transaction ends. All seat-affecting work on one event is
	// serialized behind this lock.
	GetForUpdate(ctx context.Context, id string) (*domain.Event, error)

	List(ctx context.Context, filter EventFilter) ([]*domain.Event, error)

	// ListDueForRelease returns Unavailable events whose available-from date is on or before today
	ListDueForRelease(ctx context.Context, today time.Time, limit int) ([]*domain.Event, error)

	// ListDueForConclusion returns Available events whose start date is before today
	ListDueForConclusion(ctx context.Context, today time.Time, limit int) ([]*domain.Event, error)

	// ListReminderCandidates returns Available events without a reminder whose
	// local start falls inside the window, earliest first
	ListReminderCandidates(ctx context.Context, window ReminderWindow, limit int) ([]*domain.Event, error)

	// CompareAndSetStatus moves the event from -> to. It reports false when
	// the stored status was no longer from.
	CompareAndSetStatus(ctx context.Context, id string, from, to domain.EventStatus, now time.Time) (bool, error)

	// ClaimReminder sets the reminder flag if it was unset
	ClaimReminder(ctx context.Context, id string, now time.Time) (bool, error)
}

// BookingRepository defines the interface for booking data access
type BookingRepository interface {
	// Create inserts the booking. Storage-level uniqueness violations map to
	// domain.ErrSeatTaken or domain.ErrDuplicateBooking.
	Create(ctx context.Context, booking *domain.Booking) error
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	GetByCheckInToken(ctx context.Context, token string) (*domain.Booking, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Booking, error)

	// ListByEvent returns the event's bookings in creation order, restricted
	// to the given statuses when any are passed
	ListByEvent(ctx context.Context, eventID string, statuses ...domain.BookingStatus) ([]*domain.Booking, error)

	// TakenSeats returns the seat numbers held by live bookings
	TakenSeats(ctx context.Context, eventID string) ([]int, error)
	IsSeatTaken(ctx context.Context, eventID string, seat int) (bool, error)
	CountLiveSeated(ctx context.Context, eventID string) (int, error)
	HasLiveBooking(ctx context.Context, eventID string, attendee domain.AttendeeKey) (bool, error)

	// UpdateStatus persists status, seat and timestamps of booking if the
	// stored status still equals expected
	UpdateStatus(ctx context.Context, booking *domain.Booking, expected domain.BookingStatus) (bool, error)
}

// UserRepository exposes the slice of the user record the engine owns
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// GetForUpdate locks the user row for the surrounding transaction
	GetForUpdate(ctx context.Context, id string) (*domain.User, error)

	// UpdateStrikes writes next if the stored strike state still equals prev
	UpdateStrikes(ctx context.Context, id string, prev, next domain.StrikeState) (bool, error)

	// ListWithStrikesAtLeast pages users whose count is >= min, ordered by id
	ListWithStrikesAtLeast(ctx context.Context, min, limit, offset int) ([]*domain.User, error)
}

// ChildRepository reads dependent records
type ChildRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Child, error)
}

// WaitlistRepository defines the interface for waitlist data access
type WaitlistRepository interface {
	// Add inserts the entry, returning domain.ErrAlreadyOnWaitlist on conflict
	Add(ctx context.Context, entry *domain.WaitlistEntry) error
	Exists(ctx context.Context, eventID, userID string) (bool, error)
	Remove(ctx context.Context, eventID, userID string) (bool, error)
	// ListByEvent returns entries oldest first
	ListByEvent(ctx context.Context, eventID string) ([]*domain.WaitlistEntry, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.WaitlistEntry, error)
	DeleteByEvent(ctx context.Context, eventID string) (int, error)
}

// OutboxRepository defines the interface for outbox data access
type OutboxRepository interface {
	// Create stores a message. Inside a transaction a failed insert must not
	// poison the transaction.
	Create(ctx context.Context, msg *domain.OutboxMessage) error

	// GetPending returns pending and failed messages with fewer than
	// maxAttempts attempts, oldest first
	GetPending(ctx context.Context, limit, maxAttempts int) ([]*domain.OutboxMessage, error)

	MarkAsPublished(ctx context.Context, id string, now time.Time) error
	MarkAsFailed(ctx context.Context, id string, reason string) error

	// DeletePublished removes messages published before cutoff
	DeletePublished(ctx context.Context, cutoff time.Time) (int64, error)
}

// Store bundles the repositories and their transaction manager
type Store struct {
	Tx       TxManager
	Events   EventRepository
	Bookings BookingRepository
	Users    UserRepository
	Children ChildRepository
	Waitlist WaitlistRepository
	Outbox   OutboxRepository
}

package domain

import (
	"fmt"
	"time"
)

// BookingStatus represents the status of a booking
type BookingStatus string

const (
	BookingStatusBooked     BookingStatus = "booked"
	BookingStatusCheckedIn  BookingStatus = "checked_in"
	BookingStatusCheckedOut BookingStatus = "checked_out"
	BookingStatusCancelled  BookingStatus = "cancelled"
	BookingStatusStriked    BookingStatus = "striked"
)

// IsValid checks if the status is a valid BookingStatus
func (s BookingStatus) IsValid() bool {
	switch s {
	case BookingStatusBooked, BookingStatusCheckedIn, BookingStatusCheckedOut,
		BookingStatusCancelled, BookingStatusStriked:
		return true
	}
	return false
}

// IsLive reports whether the booking counts against capacity
func (s BookingStatus) IsLive() bool {
	return s != BookingStatusCancelled && s != BookingStatusStriked
}

// IsTerminal reports whether no further transitions are possible
func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusCheckedOut || s == BookingStatusCancelled || s == BookingStatusStriked
}

// ReleasesSeat reports whether entering s frees the seat
func (s BookingStatus) ReleasesSeat() bool {
	return s == BookingStatusCancelled || s == BookingStatusStriked
}

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusBooked:    {BookingStatusCheckedIn, BookingStatusCancelled, BookingStatusStriked},
	BookingStatusCheckedIn: {BookingStatusCheckedOut, BookingStatusCancelled, BookingStatusStriked},
}

// CanTransition reports whether from -> to is a legal booking transition
func CanTransition(from, to BookingStatus) bool {
	for _, s := range bookingTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Reservation is walk-in metadata for attendees without an account
type Reservation struct {
	AttendeeName string `json:"attendee_name"`
	PhoneNumber  string `json:"phone_number"`
	GuardianName string `json:"guardian_name,omitempty"`
}

// Booking is one attendee's claim on one seat of one event
type Booking struct {
	ID      string
	EventID string
	// UserID is empty for walk-ins and after the account is deleted
	UserID       string
	ChildID      string
	IsForChild   bool
	SeatNumber   *int
	Status       BookingStatus
	CheckInToken string
	Reservation  *Reservation
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CheckedInAt  *time.Time
	CheckedOutAt *time.Time
	CancelledAt  *time.Time
}

// IsLive reports whether the booking holds capacity
func (b *Booking) IsLive() bool {
	return b.Status.IsLive()
}

// AttendeeKey returns the attendee identity, or false for walk-ins
func (b *Booking) AttendeeKey() (AttendeeKey, bool) {
	switch {
	case b.IsForChild && b.ChildID != "":
		return AttendeeKey{Kind: AttendeeChild, ID: b.ChildID}, true
	case !b.IsForChild && b.UserID != "":
		return AttendeeKey{Kind: AttendeeUser, ID: b.UserID}, true
	}
	return AttendeeKey{}, false
}

// TransitionTo applies a status change, stamping timestamps and releasing
// the seat for cancellations and strikes.
func (b *Booking) TransitionTo(to BookingStatus, now time.Time) error {
	if !CanTransition(b.Status, to) {
		return fmt.Errorf("%w: booking %s -> %s", ErrInvalidTransition, b.Status, to)
	}

	b.Status = to
	b.UpdatedAt = now
	switch to {
	case BookingStatusCheckedIn:
		b.CheckedInAt = &now
	case BookingStatusCheckedOut:
		b.CheckedOutAt = &now
	case BookingStatusCancelled:
		b.CancelledAt = &now
	}
	if to.ReleasesSeat() {
		b.SeatNumber = nil
	}
	return nil
}

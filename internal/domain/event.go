package domain

import (
	"fmt"
	"time"
)

// SessionType is the age classification of an event
type SessionType string

const (
	SessionKids   SessionType = "kids"
	SessionTeens  SessionType = "teens"
	SessionAdults SessionType = "adults"
)

// AgeBand is an inclusive-lower, exclusive-upper age range. Max of zero
// means no upper bound.
type AgeBand struct {
	Min int
	Max int
}

// Contains reports whether age falls inside the band
func (b AgeBand) Contains(age int) bool {
	return age >= b.Min && (b.Max <= 0 || age < b.Max)
}

var ageBands = map[SessionType]AgeBand{
	SessionKids:   {Min: 5, Max: 12},
	SessionTeens:  {Min: 12, Max: 16},
	SessionAdults: {Min: 16},
}

// AgeBand returns the band for the session type
func (s SessionType) AgeBand() (AgeBand, bool) {
	b, ok := ageBands[s]
	return b, ok
}

// IsValid checks if the session type is known
func (s SessionType) IsValid() bool {
	_, ok := ageBands[s]
	return ok
}

// EventStatus is the lifecycle phase of an event
type EventStatus string

const (
	EventStatusUnavailable EventStatus = "unavailable"
	EventStatusAvailable   EventStatus = "available"
	EventStatusConcluded   EventStatus = "concluded"
	EventStatusCancelled   EventStatus = "cancelled"
)

// IsValid checks if the status is a known EventStatus
func (s EventStatus) IsValid() bool {
	switch s {
	case EventStatusUnavailable, EventStatusAvailable, EventStatusConcluded, EventStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are possible
func (s EventStatus) IsTerminal() bool {
	return s == EventStatusConcluded || s == EventStatusCancelled
}

var eventTransitions = map[EventStatus][]EventStatus{
	EventStatusUnavailable: {EventStatusAvailable, EventStatusCancelled},
	EventStatusAvailable:   {EventStatusConcluded, EventStatusCancelled},
}

// CanTransitionEvent reports whether from -> to is a legal event transition
func CanTransitionEvent(from, to EventStatus) bool {
	for _, s := range eventTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// TimeOfDay is minutes after midnight
type TimeOfDay int

// ParseTimeOfDay parses "15:04"
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("%w: bad time %q", ErrInvalidSchedule, s)
	}
	return TimeOfDay(t.Hour()*60 + t.Minute()), nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// Duration returns the offset from midnight
func (t TimeOfDay) Duration() time.Duration {
	return time.Duration(t) * time.Minute
}

// Event is a time-boxed session with numbered seats
type Event struct {
	ID            string
	LocationID    string
	ManagerID     string
	Name          string
	Description   string
	SessionType   SessionType
	StartDate     time.Time
	StartTime     TimeOfDay
	EndTime       TimeOfDay
	AvailableFrom time.Time
	TotalSeats    int
	Status        EventStatus
	ReminderSent  bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Validate checks the invariants of a new event
func (e *Event) Validate() error {
	if !e.SessionType.IsValid() {
		return ErrInvalidSessionType
	}
	if e.TotalSeats <= 0 {
		return ErrInvalidSeatCount
	}
	if e.StartDate.IsZero() || e.AvailableFrom.IsZero() {
		return fmt.Errorf("%w: start date and available-from date are required", ErrInvalidSchedule)
	}
	if e.AvailableFrom.After(e.StartDate) {
		return fmt.Errorf("%w: available-from date is after the start date", ErrInvalidSchedule)
	}
	if e.StartTime >= e.EndTime {
		return fmt.Errorf("%w: start time must be before end time", ErrInvalidSchedule)
	}
	return nil
}

// DueForRelease reports whether the event should open for booking today
func (e *Event) DueForRelease(today time.Time) bool {
	return e.Status == EventStatusUnavailable && !today.Before(e.AvailableFrom)
}

// DueForConclusion reports whether the event's start date has passed
func (e *Event) DueForConclusion(today time.Time) bool {
	return e.Status == EventStatusAvailable && today.After(e.StartDate)
}

// AcceptsBookings reports whether seats can be granted
func (e *Event) AcceptsBookings() bool {
	return e.Status == EventStatusAvailable
}

// StartsAt is the event start instant in the venue zone
func (e *Event) StartsAt(loc *time.Location) time.Time {
	y, m, d := e.StartDate.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc).Add(e.StartTime.Duration())
}

// TransitionTo moves the event to status if the lifecycle allows it
func (e *Event) TransitionTo(status EventStatus, now time.Time) error {
	if !CanTransitionEvent(e.Status, status) {
		return fmt.Errorf("%w: event %s -> %s", ErrInvalidTransition, e.Status, status)
	}
	e.Status = status
	e.UpdatedAt = now
	return nil
}

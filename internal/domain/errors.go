package domain

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors
var (
	// Validation errors
	ErrInvalidUserID       = errors.New("invalid user id")
	ErrInvalidBookingID    = errors.New("invalid booking id")
	ErrInvalidEventID      = errors.New("invalid event id")
	ErrInvalidSeatNumber   = errors.New("seat number is required")
	ErrSeatOutOfBounds     = errors.New("seat out of bounds")
	ErrChildRequired       = errors.New("child id is required for a booking on behalf of a minor")
	ErrInvalidStatus       = errors.New("invalid booking status")
	ErrInvalidEventStatus  = errors.New("invalid event status")
	ErrInvalidStrikeCount  = errors.New("strike count cannot be negative")
	ErrInvalidSessionType  = errors.New("invalid session type")
	ErrInvalidSchedule     = errors.New("invalid event schedule")
	ErrInvalidSeatCount    = errors.New("total seats must be greater than zero")
	ErrInvalidReservation  = errors.New("walk-in reservation requires attendee name and phone number")
	ErrGuardianRequired    = errors.New("walk-in reservation for a kids session requires a guardian name")
	ErrInvalidCheckInToken = errors.New("invalid check-in token")
	ErrUnknownSweep        = errors.New("unknown sweep")

	// Conflict errors
	ErrSeatTaken         = errors.New("seat taken")
	ErrNoSeatsAvailable  = errors.New("no seats available")
	ErrDuplicateBooking  = errors.New("duplicate booking")
	ErrAlreadyOnWaitlist = errors.New("already on waitlist")
	ErrSeatsAvailable    = errors.New("seats still available")

	// Eligibility errors
	ErrUserSuspended  = errors.New("suspended")
	ErrAgeOutOfRange  = errors.New("age out of range")
	ErrUnknownSession = errors.New("internal error: unknown session type")

	// Not found errors
	ErrEventNotFound   = errors.New("event not found")
	ErrBookingNotFound = errors.New("booking not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrChildNotFound   = errors.New("child not found")
	ErrNotOnWaitlist   = errors.New("not on waitlist")

	// Authorization errors
	ErrNotBookingOwner = errors.New("booking does not belong to requester")
	ErrForbidden       = errors.New("requester is not allowed to perform this action")

	// State errors
	ErrEventNotAvailable  = errors.New("not available")
	ErrInvalidTransition  = errors.New("invalid transition")
	ErrEventClosed        = errors.New("event has concluded or been cancelled")
	ErrEventNotCheckingIn = errors.New("event is not open for check-in")
)

// EligibilityError is a denied booking attempt. It unwraps to
// ErrUserSuspended, ErrAgeOutOfRange or ErrUnknownSession.
type EligibilityError struct {
	Reason error
	// SuspendedUntil is set for suspensions with a known last strike date
	SuspendedUntil *time.Time
}

func (e *EligibilityError) Error() string {
	if e.SuspendedUntil != nil {
		return fmt.Sprintf("%s until %s", e.Reason, e.SuspendedUntil.Format(DateLayout))
	}
	return e.Reason.Error()
}

func (e *EligibilityError) Unwrap() error {
	return e.Reason
}

// DependencyError is a failure of an external collaborator
type DependencyError struct {
	Dependency string
	Err        error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s: %v", e.Dependency, e.Err)
}

func (e *DependencyError) Unwrap() error {
	return e.Err
}

// IsValidationError checks if the error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidUserID) ||
		errors.Is(err, ErrInvalidBookingID) ||
		errors.Is(err, ErrInvalidEventID) ||
		errors.Is(err, ErrInvalidSeatNumber) ||
		errors.Is(err, ErrSeatOutOfBounds) ||
		errors.Is(err, ErrChildRequired) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrInvalidEventStatus) ||
		errors.Is(err, ErrInvalidStrikeCount) ||
		errors.Is(err, ErrInvalidSessionType) ||
		errors.Is(err, ErrInvalidSchedule) ||
		errors.Is(err, ErrInvalidSeatCount) ||
		errors.Is(err, ErrInvalidReservation) ||
		errors.Is(err, ErrGuardianRequired) ||
		errors.Is(err, ErrInvalidCheckInToken) ||
		errors.Is(err, ErrUnknownSweep)
}

// IsConflictError checks if the error is a conflict error
func IsConflictError(err error) bool {
	return errors.Is(err, ErrSeatTaken) ||
		errors.Is(err, ErrNoSeatsAvailable) ||
		errors.Is(err, ErrDuplicateBooking) ||
		errors.Is(err, ErrAlreadyOnWaitlist) ||
		errors.Is(err, ErrSeatsAvailable)
}

// IsEligibilityError checks if the error is a user-facing eligibility denial.
// An unknown session type is a configuration problem and is not included.
func IsEligibilityError(err error) bool {
	return errors.Is(err, ErrUserSuspended) ||
		errors.Is(err, ErrAgeOutOfRange)
}

// IsNotFoundError checks if the error is a not found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrEventNotFound) ||
		errors.Is(err, ErrBookingNotFound) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrChildNotFound) ||
		errors.Is(err, ErrNotOnWaitlist)
}

// IsAuthorizationError checks if the error is an ownership or role mismatch
func IsAuthorizationError(err error) bool {
	return errors.Is(err, ErrNotBookingOwner) ||
		errors.Is(err, ErrForbidden)
}

// IsStateError checks if the error is a lifecycle or transition error
func IsStateError(err error) bool {
	return errors.Is(err, ErrEventNotAvailable) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrEventClosed) ||
		errors.Is(err, ErrEventNotCheckingIn)
}

// IsDependencyError checks if the error came from an external collaborator
func IsDependencyError(err error) bool {
	var dep *DependencyError
	return errors.As(err, &dep)
}

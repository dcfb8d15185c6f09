package domain

import "time"

const (
	// SuspensionThreshold is the strike count at which a user is suspended
	SuspensionThreshold = 3
	// SuspensionWindowDays is how long the last strike keeps a suspension alive
	SuspensionWindowDays = 90
)

// StrikeState is the attendance penalty record attached to a user
type StrikeState struct {
	Count          int        `json:"count"`
	LastStrikeDate *time.Time `json:"last_strike_date,omitempty"`
}

// AdjustBy adds delta (which may be negative) to the count. The count never
// drops below zero; a positive delta stamps today, and reaching zero clears
// the date.
func (s StrikeState) AdjustBy(delta int, today time.Time) StrikeState {
	next := s.Count + delta
	if next < 0 {
		next = 0
	}
	return s.withCount(next, delta > 0, today)
}

// SetTo overwrites the count. Raising it stamps today, zero clears the date.
func (s StrikeState) SetTo(count int, today time.Time) (StrikeState, error) {
	if count < 0 {
		return s, ErrInvalidStrikeCount
	}
	return s.withCount(count, count > s.Count, today), nil
}

func (s StrikeState) withCount(count int, added bool, today time.Time) StrikeState {
	next := StrikeState{Count: count, LastStrikeDate: s.LastStrikeDate}
	if added {
		d := calendarDate(today)
		next.LastStrikeDate = &d
	}
	if count == 0 {
		next.LastStrikeDate = nil
	}
	return next
}

// IsSuspended reports the suspension flag without changing anything. A
// count at the threshold with no recorded date stays suspended until an
// administrator intervenes.
func (s StrikeState) IsSuspended(asOf time.Time) bool {
	if s.Count < SuspensionThreshold {
		return false
	}
	if s.LastStrikeDate == nil {
		return true
	}
	return daysBetween(*s.LastStrikeDate, asOf) <= SuspensionWindowDays
}

// EvaluateAndMaybeClear returns the suspension flag and, once the window has
// lapsed with the count still at the threshold, the reset state. Callers
// persist next when changed is true.
func (s StrikeState) EvaluateAndMaybeClear(asOf time.Time) (suspended bool, next StrikeState, changed bool) {
	if s.Count >= SuspensionThreshold && s.LastStrikeDate != nil &&
		daysBetween(*s.LastStrikeDate, asOf) > SuspensionWindowDays {
		return false, StrikeState{}, true
	}
	return s.IsSuspended(asOf), s, false
}

// SuspendedUntil is the last day of the suspension, if one can be computed
func (s StrikeState) SuspendedUntil() *time.Time {
	if s.Count < SuspensionThreshold || s.LastStrikeDate == nil {
		return nil
	}
	until := calendarDate(*s.LastStrikeDate).AddDate(0, 0, SuspensionWindowDays)
	return &until
}

func calendarDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(calendarDate(to).Sub(calendarDate(from)).Hours() / 24)
}

package clock

import (
	"sync"
	"time"
)

// Clock supplies the current instant and the venue's calendar day.
type Clock interface {
	Now() time.Time
	// Today is the venue-local calendar date as midnight UTC, the same
	// representation Postgres DATE columns scan into.
	Today() time.Time
	Location() *time.Location
}

// DateOf returns the calendar date of t in loc as midnight UTC.
func DateOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type systemClock struct {
	loc *time.Location
}

// NewSystem returns a clock backed by time.Now for the given venue zone.
func NewSystem(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return systemClock{loc: loc}
}

func (c systemClock) Now() time.Time           { return time.Now().UTC() }
func (c systemClock) Today() time.Time         { return DateOf(time.Now(), c.loc) }
func (c systemClock) Location() *time.Location { return c.loc }

// Manual is a settable clock for tests.
type Manual struct {
	mu  sync.RWMutex
	now time.Time
	loc *time.Location
}

// NewManual returns a clock frozen at t until Set or Advance is called.
func NewManual(t time.Time, loc *time.Location) *Manual {
	if loc == nil {
		loc = time.UTC
	}
	return &Manual{now: t.UTC(), loc: loc}
}

// NewFixedDate freezes the clock at noon of the given venue-local date.
func NewFixedDate(year int, month time.Month, day int, loc *time.Location) *Manual {
	if loc == nil {
		loc = time.UTC
	}
	return NewManual(time.Date(year, month, day, 12, 0, 0, 0, loc), loc)
}

func (m *Manual) Now() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.now
}

func (m *Manual) Today() time.Time {
	return DateOf(m.Now(), m.loc)
}

func (m *Manual) Location() *time.Location {
	return m.loc
}

// Set moves the clock to t.
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	m.now = t.UTC()
	m.mu.Unlock()
}

// Advance moves the clock forward by d.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validEvent() *Event {
	return &Event{
		SessionType:   SessionTeens,
		StartDate:     day(2025, 6, 10),
		AvailableFrom: day(2025, 6, 1),
		StartTime:     TimeOfDay(15 * 60),
		EndTime:       TimeOfDay(17 * 60),
		TotalSeats:    20,
		Status:        EventStatusUnavailable,
	}
}

func TestEvent_Validate(t *testing.T) {
	assert.NoError(t, validEvent().Validate())

	e := validEvent()
	e.AvailableFrom = day(2025, 6, 11)
	assert.ErrorIs(t, e.Validate(), ErrInvalidSchedule)

	e = validEvent()
	e.AvailableFrom = e.StartDate
	assert.NoError(t, e.Validate())

	e = validEvent()
	e.TotalSeats = 0
	assert.ErrorIs(t, e.Validate(), ErrInvalidSeatCount)

	e = validEvent()
	e.SessionType = "toddlers"
	assert.ErrorIs(t, e.Validate(), ErrInvalidSessionType)

	e = validEvent()
	e.EndTime = e.StartTime
	assert.ErrorIs(t, e.Validate(), ErrInvalidSchedule)
}

func TestEvent_Lifecycle(t *testing.T) {
	e := validEvent()

	assert.False(t, e.DueForRelease(day(2025, 5, 31)))
	assert.True(t, e.DueForRelease(day(2025, 6, 1)))
	assert.False(t, e.DueForConclusion(day(2025, 6, 11)), "unavailable events do not conclude")

	require.NoError(t, e.TransitionTo(EventStatusAvailable, time.Now()))
	assert.True(t, e.AcceptsBookings())
	assert.False(t, e.DueForRelease(day(2025, 6, 2)))

	assert.False(t, e.DueForConclusion(day(2025, 6, 10)), "concludes the day after the start date")
	assert.True(t, e.DueForConclusion(day(2025, 6, 11)))

	require.NoError(t, e.TransitionTo(EventStatusConcluded, time.Now()))
	assert.ErrorIs(t, e.TransitionTo(EventStatusCancelled, time.Now()), ErrInvalidTransition)
	assert.ErrorIs(t, e.TransitionTo(EventStatusAvailable, time.Now()), ErrInvalidTransition)
}

func TestEvent_CancelFromAnyNonTerminal(t *testing.T) {
	for _, from := range []EventStatus{EventStatusUnavailable, EventStatusAvailable} {
		e := validEvent()
		e.Status = from
		assert.NoError(t, e.TransitionTo(EventStatusCancelled, time.Now()), "from %s", from)
	}
}

func TestEvent_StartsAt(t *testing.T) {
	loc, err := time.LoadLocation("Pacific/Auckland")
	require.NoError(t, err)

	e := validEvent()
	assert.Equal(t, time.Date(2025, 6, 10, 15, 0, 0, 0, loc), e.StartsAt(loc))
}

func TestTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("09:30")
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay(570), tod)
	assert.Equal(t, "09:30", tod.String())

	_, err = ParseTimeOfDay("25:00")
	assert.ErrorIs(t, err, ErrInvalidSchedule)
}

func TestAgeOn(t *testing.T) {
	dob := day(2010, 6, 15)
	assert.Equal(t, 14, AgeOn(dob, day(2025, 6, 14)))
	assert.Equal(t, 15, AgeOn(dob, day(2025, 6, 15)))
	assert.Equal(t, 0, AgeOn(dob, day(2009, 1, 1)))

	child := ChildAttendee{Child: &Child{ID: "c1", ParentUserID: "p1", FirstName: "Ana", LastName: "Li", DateOfBirth: dob}}
	assert.Equal(t, "p1", child.AccountID())
	assert.Equal(t, "Ana Li", child.DisplayName())
	assert.Equal(t, 15, child.Age(day(2025, 7, 1)))

	var a Attendee = UserAttendee{User: &User{ID: "u1", FirstName: "Sam"}}
	assert.Equal(t, AttendeeKey{Kind: AttendeeUser, ID: "u1"}, a.Key())
	assert.Equal(t, "Sam", a.DisplayName())
}

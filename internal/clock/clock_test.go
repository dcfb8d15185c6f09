package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToday_UsesVenueCalendarDay(t *testing.T) {
	auckland, err := time.LoadLocation("Pacific/Auckland")
	require.NoError(t, err)

	// 2025-03-10 20:00 UTC is already 2025-03-11 in Auckland
	c := NewManual(time.Date(2025, 3, 10, 20, 0, 0, 0, time.UTC), auckland)

	assert.Equal(t, time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC), c.Today())
	assert.Equal(t, auckland, c.Location())
}

func TestManual_AdvanceAcrossDST(t *testing.T) {
	auckland, err := time.LoadLocation("Pacific/Auckland")
	require.NoError(t, err)

	// NZ daylight saving ends 2025-04-06 03:00 local
	c := NewManual(time.Date(2025, 4, 5, 23, 30, 0, 0, auckland), auckland)
	assert.Equal(t, time.Date(2025, 4, 5, 0, 0, 0, 0, time.UTC), c.Today())

	c.Advance(time.Hour)
	assert.Equal(t, time.Date(2025, 4, 6, 0, 0, 0, 0, time.UTC), c.Today())

	// clocks go back an hour, so 24h after 00:30 is 23:30 the same day
	c.Advance(24 * time.Hour)
	assert.Equal(t, time.Date(2025, 4, 6, 0, 0, 0, 0, time.UTC), c.Today())
}

func TestNewFixedDate(t *testing.T) {
	c := NewFixedDate(2025, 1, 1, nil)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), c.Today())

	c.Set(time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), c.Today())
}

func TestSystemClock(t *testing.T) {
	c := NewSystem(nil)
	assert.Equal(t, time.UTC, c.Location())
	assert.WithinDuration(t, time.Now(), c.Now(), time.Second)
	assert.Equal(t, DateOf(time.Now(), time.UTC), c.Today())
}

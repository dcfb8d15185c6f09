package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckEligibility_TeensBand(t *testing.T) {
	tests := []struct {
		age  int
		want error
	}{
		{age: 11, want: ErrAgeOutOfRange},
		{age: 12, want: nil},
		{age: 13, want: nil},
		{age: 15, want: nil},
		{age: 16, want: ErrAgeOutOfRange},
	}

	for _, tt := range tests {
		err := CheckEligibility(tt.age, SessionTeens, false, StrikeState{})
		if tt.want == nil {
			assert.NoError(t, err, "age %d", tt.age)
			continue
		}
		assert.ErrorIs(t, err, tt.want, "age %d", tt.age)
		assert.True(t, IsEligibilityError(err))
	}
}

func TestCheckEligibility_Bands(t *testing.T) {
	assert.NoError(t, CheckEligibility(5, SessionKids, false, StrikeState{}))
	assert.ErrorIs(t, CheckEligibility(4, SessionKids, false, StrikeState{}), ErrAgeOutOfRange)
	assert.ErrorIs(t, CheckEligibility(12, SessionKids, false, StrikeState{}), ErrAgeOutOfRange)
	assert.NoError(t, CheckEligibility(16, SessionAdults, false, StrikeState{}))
	assert.NoError(t, CheckEligibility(87, SessionAdults, false, StrikeState{}))
	assert.ErrorIs(t, CheckEligibility(15, SessionAdults, false, StrikeState{}), ErrAgeOutOfRange)
}

func TestCheckEligibility_SuspensionWins(t *testing.T) {
	last := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	err := CheckEligibility(13, SessionTeens, false, StrikeState{Count: 3, LastStrikeDate: &last})
	require.Error(t, err)

	var elig *EligibilityError
	require.True(t, errors.As(err, &elig))
	assert.ErrorIs(t, err, ErrUserSuspended)
	require.NotNil(t, elig.SuspendedUntil)
	assert.Equal(t, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), *elig.SuspendedUntil)
	assert.Contains(t, err.Error(), "2025-04-01")

	// a suspended flag with too few strikes still denies, without an end date
	err = CheckEligibility(30, SessionKids, true, StrikeState{Count: 1})
	require.True(t, errors.As(err, &elig))
	assert.ErrorIs(t, err, ErrUserSuspended)
	assert.Nil(t, elig.SuspendedUntil)
}

func TestCheckEligibility_UnknownSession(t *testing.T) {
	err := CheckEligibility(20, SessionType("seniors"), false, StrikeState{})
	assert.ErrorIs(t, err, ErrUnknownSession)
	assert.False(t, IsEligibilityError(err))
}

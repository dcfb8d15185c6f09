package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MarlyH/CorpsAPI-sub000/internal/domain"
	"github.com/MarlyH/CorpsAPI-sub000/internal/dto"
)

func TestStrikeLedger_SuspensionWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addAdult("u")
	loc := f.clock.Location()

	f.clock.Set(time.Date(2025, time.January, 1, 9, 0, 0, 0, loc))
	user, err := f.ledger.AdjustBy(ctx, "u", 3)
	require.NoError(t, err)
	require.Equal(t, 3, user.Strikes.Count)

	check := func(day time.Time) (bool, domain.StrikeState) {
		f.clock.Set(day)
		u, err := f.repos.Users.GetByID(ctx, "u")
		require.NoError(t, err)
		suspended, err := f.ledger.Evaluate(ctx, u)
		require.NoError(t, err)
		return suspended, f.strikesOf("u")
	}

	suspended, state := check(time.Date(2025, time.March, 31, 18, 0, 0, 0, loc))
	assert.True(t, suspended)
	assert.Equal(t, 3, state.Count)

	suspended, state = check(time.Date(2025, time.April, 2, 8, 0, 0, 0, loc))
	assert.False(t, suspended)
	assert.Equal(t, domain.StrikeState{}, state)

	suspended, state = check(time.Date(2025, time.April, 3, 8, 0, 0, 0, loc))
	assert.False(t, suspended)
	assert.Equal(t, domain.StrikeState{}, state)
}

func TestStrikeLedger_AddStrikeStartsFreshAfterLapse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addAdult("u")
	last := date(2024, time.October, 1)
	f.setStrikes("u", 3, &last)

	user, err := f.ledger.AddStrike(ctx, "u", strikeSourceManual)
	require.NoError(t, err)
	assert.Equal(t, 1, user.Strikes.Count)
	assert.Equal(t, date(2025, time.March, 10), *user.Strikes.LastStrikeDate)
}

func TestStrikeService_AdjustAndSet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.addAdult("u")

	_, err := f.strikes.AdjustStrikes(ctx, u, "u", &dto.AdjustStrikesRequest{Delta: 1})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	resp, err := f.strikes.AdjustStrikes(ctx, staff, "u", &dto.AdjustStrikesRequest{Delta: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Count)
	assert.True(t, resp.Suspended)
	assert.Equal(t, "2025-03-10", resp.LastStrikeDate)
	assert.Equal(t, "2025-06-08", resp.SuspendedUntil)

	resp, err = f.strikes.AdjustStrikes(ctx, staff, "u", &dto.AdjustStrikesRequest{Delta: -5})
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Count)
	assert.Empty(t, resp.LastStrikeDate)
	assert.False(t, resp.Suspended)

	two := 2
	resp, err = f.strikes.SetStrikes(ctx, staff, "u", &dto.SetStrikesRequest{Count: &two})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, "2025-03-10", resp.LastStrikeDate)

	negative := -1
	_, err = f.strikes.SetStrikes(ctx, staff, "u", &dto.SetStrikesRequest{Count: &negative})
	assert.ErrorIs(t, err, domain.ErrInvalidStrikeCount)
	assert.Equal(t, 2, f.strikesOf("u").Count)

	_, err = f.strikes.SetStrikes(ctx, staff, "missing", &dto.SetStrikesRequest{Count: &two})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestStrikeService_GetStrikesOwnerOrStaff(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.addAdult("u")
	other := f.addAdult("other")

	resp, err := f.strikes.GetStrikes(ctx, u, "u")
	require.NoError(t, err)
	assert.Equal(t, "u", resp.UserID)

	_, err = f.strikes.GetStrikes(ctx, other, "u")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.strikes.GetStrikes(ctx, staff, "u")
	assert.NoError(t, err)
}

func TestStrikeService_ListSuspended(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	recent := date(2025, time.February, 20)
	lapsed := date(2024, time.December, 1)

	f.addAdult("active")
	f.setStrikes("active", 3, &recent)
	f.addAdult("expired")
	f.setStrikes("expired", 4, &lapsed)
	f.addAdult("undated")
	f.setStrikes("undated", 3, nil)
	f.addAdult("clean")

	list, err := f.strikes.ListSuspended(ctx, staff, 0, 0)
	require.NoError(t, err)

	var ids []string
	for _, r := range list {
		ids = append(ids, r.UserID)
	}
	assert.Equal(t, []string{"active", "undated"}, ids)
	assert.Equal(t, domain.StrikeState{}, f.strikesOf("expired"))
}

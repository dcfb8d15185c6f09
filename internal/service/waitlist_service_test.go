package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MarlyH/CorpsAPI-sub000/internal/domain"
)

func TestWaitlistJoin_OnlyWhenFull(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.addAdult("a")
	b := f.addAdult("b")
	event := f.addEvent(domain.SessionAdults, 1)

	_, err := f.waitlist.Join(ctx, b, event.ID)
	assert.ErrorIs(t, err, domain.ErrSeatsAvailable)

	_, err = f.bookings.CreateBooking(ctx, a, book(event.ID, 1))
	require.NoError(t, err)

	entry, err := f.waitlist.Join(ctx, b, event.ID)
	require.NoError(t, err)
	assert.Equal(t, "b", entry.UserID)

	_, err = f.waitlist.Join(ctx, b, event.ID)
	assert.ErrorIs(t, err, domain.ErrAlreadyOnWaitlist)

	mine, err := f.waitlist.ListMine(ctx, b)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, event.ID, mine[0].EventID)
}

func TestWaitlistJoin_ClosedEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.addAdult("b")
	event := f.addEvent(domain.SessionAdults, 1)

	_, err := f.events.CancelEvent(ctx, manager, event.ID)
	require.NoError(t, err)

	_, err = f.waitlist.Join(ctx, b, event.ID)
	assert.ErrorIs(t, err, domain.ErrEventClosed)

	_, err = f.waitlist.Join(ctx, b, "missing")
	assert.ErrorIs(t, err, domain.ErrEventNotFound)
}

func TestWaitlistLeave(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.addAdult("a")
	b := f.addAdult("b")
	event := f.addEvent(domain.SessionAdults, 1)

	assert.ErrorIs(t, f.waitlist.Leave(ctx, b, event.ID), domain.ErrNotOnWaitlist)

	_, err := f.bookings.CreateBooking(ctx, a, book(event.ID, 1))
	require.NoError(t, err)
	_, err = f.waitlist.Join(ctx, b, event.ID)
	require.NoError(t, err)

	require.NoError(t, f.waitlist.Leave(ctx, b, event.ID))
	assert.ErrorIs(t, f.waitlist.Leave(ctx, b, event.ID), domain.ErrNotOnWaitlist)
}

func TestDrainOnRelease_NotifiesEveryEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	holder := f.addAdult("holder")
	event := f.addEvent(domain.SessionAdults, 1)

	resp, err := f.bookings.CreateBooking(ctx, holder, book(event.ID, 1))
	require.NoError(t, err)
	for _, id := range []string{"w1", "w2", "w3"} {
		_, err := f.waitlist.Join(ctx, f.addAdult(id), event.ID)
		require.NoError(t, err)
	}

	_, err = f.bookings.CancelBooking(ctx, holder, resp.BookingID)
	require.NoError(t, err)

	for _, id := range []string{"w1", "w2", "w3"} {
		assert.Equal(t, []string{"A seat is available"}, f.pushTitles(id), id)
	}
	entries, err := f.repos.Waitlist.ListByEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCancel_NoDrainWhenEventWasNotFull(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.addAdult("a")
	f.addAdult("b")
	event := f.addEvent(domain.SessionAdults, 2)

	resp, err := f.bookings.CreateBooking(ctx, a, book(event.ID, 1))
	require.NoError(t, err)
	require.NoError(t, f.repos.Waitlist.Add(ctx, &domain.WaitlistEntry{EventID: event.ID, UserID: "b", CreatedAt: f.clock.Now()}))

	_, err = f.bookings.CancelBooking(ctx, a, resp.BookingID)
	require.NoError(t, err)

	assert.Empty(t, f.pushTitles("b"))
	onList, err := f.repos.Waitlist.Exists(ctx, event.ID, "b")
	require.NoError(t, err)
	assert.True(t, onList)
}

package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MarlyH/CorpsAPI-sub000/internal/domain"
)

func seat(n int) *int { return &n }

func newEvent(id string, seats int) *domain.Event {
	return &domain.Event{
		ID:            id,
		SessionType:   domain.SessionAdults,
		StartDate:     time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC),
		AvailableFrom: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		StartTime:     domain.TimeOfDay(600),
		EndTime:       domain.TimeOfDay(720),
		TotalSeats:    seats,
		Status:        domain.EventStatusAvailable,
	}
}

func newBooking(id, eventID, userID string, n int) *domain.Booking {
	return &domain.Booking{
		ID:           id,
		EventID:      eventID,
		UserID:       userID,
		SeatNumber:   seat(n),
		Status:       domain.BookingStatusBooked,
		CheckInToken: "tok-" + id,
	}
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	s := NewStore()
	repos := s.Repositories()
	ctx := context.Background()
	require.NoError(t, repos.Events.Create(ctx, newEvent("e1", 2)))

	boom := errors.New("boom")
	err := repos.Tx.WithTx(ctx, func(ctx context.Context) error {
		_, err := repos.Events.GetForUpdate(ctx, "e1")
		require.NoError(t, err)
		require.NoError(t, repos.Bookings.Create(ctx, newBooking("b1", "e1", "u1", 1)))
		require.NoError(t, repos.Waitlist.Add(ctx, &domain.WaitlistEntry{EventID: "e1", UserID: "u2"}))
		ok, err := repos.Events.CompareAndSetStatus(ctx, "e1", domain.EventStatusAvailable, domain.EventStatusCancelled, time.Now())
		require.NoError(t, err)
		require.True(t, ok)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = repos.Bookings.GetByID(ctx, "b1")
	assert.ErrorIs(t, err, domain.ErrBookingNotFound)
	_, err = repos.Bookings.GetByCheckInToken(ctx, "tok-b1")
	assert.ErrorIs(t, err, domain.ErrBookingNotFound)

	exists, err := repos.Waitlist.Exists(ctx, "e1", "u2")
	require.NoError(t, err)
	assert.False(t, exists)

	e, err := repos.Events.GetByID(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, domain.EventStatusAvailable, e.Status)
}

func TestGetForUpdate_RequiresTransaction(t *testing.T) {
	repos := NewStore().Repositories()
	_, err := repos.Events.GetForUpdate(context.Background(), "e1")
	assert.ErrorIs(t, err, errTxRequired)
	_, err = repos.Users.GetForUpdate(context.Background(), "u1")
	assert.ErrorIs(t, err, errTxRequired)
}

func TestGetForUpdate_SerializesPerEvent(t *testing.T) {
	s := NewStore()
	repos := s.Repositories()
	ctx := context.Background()
	require.NoError(t, repos.Events.Create(ctx, newEvent("e1", 100)))

	var (
		mu      sync.Mutex
		inside  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = repos.Tx.WithTx(ctx, func(ctx context.Context) error {
				_, err := repos.Events.GetForUpdate(ctx, "e1")
				assert.NoError(t, err)

				mu.Lock()
				inside++
				if inside > maxSeen {
					maxSeen = inside
				}
				mu.Unlock()

				time.Sleep(time.Millisecond)

				mu.Lock()
				inside--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
}

func TestBookingCreate_EnforcesLiveUniqueness(t *testing.T) {
	repos := NewStore().Repositories()
	ctx := context.Background()

	require.NoError(t, repos.Bookings.Create(ctx, newBooking("b1", "e1", "u1", 1)))
	assert.ErrorIs(t, repos.Bookings.Create(ctx, newBooking("b2", "e1", "u2", 1)), domain.ErrSeatTaken)
	assert.ErrorIs(t, repos.Bookings.Create(ctx, newBooking("b3", "e1", "u1", 2)), domain.ErrDuplicateBooking)

	// another event is independent
	require.NoError(t, repos.Bookings.Create(ctx, newBooking("b4", "e2", "u1", 1)))

	// a released seat can be reused
	b, err := repos.Bookings.GetByID(ctx, "b1")
	require.NoError(t, err)
	require.NoError(t, b.TransitionTo(domain.BookingStatusCancelled, time.Now()))
	ok, err := repos.Bookings.UpdateStatus(ctx, b, domain.BookingStatusBooked)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, repos.Bookings.Create(ctx, newBooking("b5", "e1", "u2", 1)))

	taken, err := repos.Bookings.TakenSeats(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, []int{1}, taken)

	n, err := repos.Bookings.CountLiveSeated(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestBookingUpdateStatus_CompareAndSet(t *testing.T) {
	repos := NewStore().Repositories()
	ctx := context.Background()
	require.NoError(t, repos.Bookings.Create(ctx, newBooking("b1", "e1", "u1", 1)))

	b, _ := repos.Bookings.GetByID(ctx, "b1")
	require.NoError(t, b.TransitionTo(domain.BookingStatusCheckedIn, time.Now()))

	ok, err := repos.Bookings.UpdateStatus(ctx, b, domain.BookingStatusBooked)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repos.Bookings.UpdateStatus(ctx, b, domain.BookingStatusBooked)
	require.NoError(t, err)
	assert.False(t, ok, "stale expected status")
}

func TestUserUpdateStrikes_CompareAndSet(t *testing.T) {
	s := NewStore()
	repos := s.Repositories()
	ctx := context.Background()

	last := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s.PutUser(&domain.User{ID: "u1", Strikes: domain.StrikeState{Count: 3, LastStrikeDate: &last}})

	sameDay := last
	ok, err := repos.Users.UpdateStrikes(ctx, "u1", domain.StrikeState{Count: 3, LastStrikeDate: &sameDay}, domain.StrikeState{})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repos.Users.UpdateStrikes(ctx, "u1", domain.StrikeState{Count: 3, LastStrikeDate: &last}, domain.StrikeState{})
	require.NoError(t, err)
	assert.False(t, ok)

	users, err := repos.Users.ListWithStrikesAtLeast(ctx, 3, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestWaitlist_OrderAndDelete(t *testing.T) {
	repos := NewStore().Repositories()
	ctx := context.Background()

	for _, u := range []string{"u3", "u1", "u2"} {
		require.NoError(t, repos.Waitlist.Add(ctx, &domain.WaitlistEntry{EventID: "e1", UserID: u}))
	}
	assert.ErrorIs(t, repos.Waitlist.Add(ctx, &domain.WaitlistEntry{EventID: "e1", UserID: "u1"}), domain.ErrAlreadyOnWaitlist)

	entries, err := repos.Waitlist.ListByEvent(ctx, "e1")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "u3", entries[0].UserID)
	assert.Equal(t, "u2", entries[2].UserID)

	removed, err := repos.Waitlist.Remove(ctx, "e1", "u3")
	require.NoError(t, err)
	assert.True(t, removed)

	n, err := repos.Waitlist.DeleteByEvent(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestOutbox_PendingLifecycle(t *testing.T) {
	s := NewStore()
	repos := s.Repositories()
	ctx := context.Background()
	now := time.Now()

	for _, id := range []string{"m1", "m2"} {
		msg, err := domain.NewOutboxMessage(id, domain.ChannelPush, "push", "u1", map[string]string{"k": id}, now)
		require.NoError(t, err)
		require.NoError(t, repos.Outbox.Create(ctx, msg))
	}

	require.NoError(t, repos.Outbox.MarkAsPublished(ctx, "m1", now))
	require.NoError(t, repos.Outbox.MarkAsFailed(ctx, "m2", "broker down"))

	pending, err := repos.Outbox.GetPending(ctx, 10, 2)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "m2", pending[0].ID)
	assert.Equal(t, 1, pending[0].Attempts)

	require.NoError(t, repos.Outbox.MarkAsFailed(ctx, "m2", "broker down"))
	pending, err = repos.Outbox.GetPending(ctx, 10, 2)
	require.NoError(t, err)
	assert.Empty(t, pending, "attempts exhausted")

	n, err := repos.Outbox.DeletePublished(ctx, now.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	s.FailOutboxWith(errors.New("disk full"))
	msg, _ := domain.NewOutboxMessage("m3", domain.ChannelEmail, "email", "", map[string]string{}, now)
	assert.Error(t, repos.Outbox.Create(ctx, msg))
	assert.Len(t, s.OutboxMessages(), 1)
}

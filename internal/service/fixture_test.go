package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/MarlyH/CorpsAPI-sub000/internal/clock"
	"github.com/MarlyH/CorpsAPI-sub000/internal/domain"
	"github.com/MarlyH/CorpsAPI-sub000/internal/repository"
	"github.com/MarlyH/CorpsAPI-sub000/internal/repository/memory"
)

type fixture struct {
	t     *testing.T
	mem   *memory.Store
	repos *repository.Store
	clock *clock.Manual

	ledger    *StrikeLedger
	waitlist  *WaitlistManager
	bookings  BookingService
	events    EventService
	strikes   StrikeService
	lifecycle LifecycleService
}

var staff = domain.Requester{UserID: "staff-1", Roles: []domain.Role{domain.RoleStaff}}
var manager = domain.Requester{UserID: "manager-1", Roles: []domain.Role{domain.RoleManager}}

// newFixture wires every service over an empty in-memory store with the
// clock frozen at noon on 2025-03-10 in Auckland
func newFixture(t *testing.T) *fixture {
	t.Helper()

	loc, err := time.LoadLocation("Pacific/Auckland")
	require.NoError(t, err)

	mem := memory.NewStore()
	repos := mem.Repositories()
	clk := clock.NewFixedDate(2025, time.March, 10, loc)

	notifier := NewOutboxNotifier(repos.Outbox, clk, NotifierConfig{})
	ledger := NewStrikeLedger(repos.Tx, repos.Users, clk)
	waitlist := NewWaitlistManager(repos, notifier, clk)
	allocator := NewSeatAllocator(repos.Bookings, clk)

	return &fixture{
		t:         t,
		mem:       mem,
		repos:     repos,
		clock:     clk,
		ledger:    ledger,
		waitlist:  waitlist,
		bookings:  NewBookingService(repos, allocator, ledger, waitlist, notifier, clk),
		events:    NewEventService(repos, notifier, clk),
		strikes:   NewStrikeService(ledger, repos.Users, clk),
		lifecycle: NewLifecycleService(repos, ledger, notifier, clk, &LifecycleConfig{BatchSize: 10, ReminderLead: 24 * time.Hour}),
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (f *fixture) addUser(id string, dob time.Time) domain.Requester {
	f.mem.PutUser(&domain.User{
		ID:          id,
		Email:       id + "@example.com",
		FirstName:   id,
		DateOfBirth: dob,
	})
	return domain.Requester{UserID: id, Roles: []domain.Role{domain.RoleUser}}
}

func (f *fixture) addAdult(id string) domain.Requester {
	return f.addUser(id, date(1990, time.May, 1))
}

func (f *fixture) addChild(id, parentID string, dob time.Time) {
	f.mem.PutChild(&domain.Child{ID: id, ParentUserID: parentID, FirstName: id, DateOfBirth: dob})
}

func (f *fixture) setStrikes(userID string, count int, last *time.Time) {
	u, err := f.repos.Users.GetByID(context.Background(), userID)
	require.NoError(f.t, err)
	u.Strikes = domain.StrikeState{Count: count, LastStrikeDate: last}
	f.mem.PutUser(u)
}

func (f *fixture) strikesOf(userID string) domain.StrikeState {
	u, err := f.repos.Users.GetByID(context.Background(), userID)
	require.NoError(f.t, err)
	return u.Strikes
}

// addEvent stores an Available event starting 2025-03-20 at 10:00
func (f *fixture) addEvent(session domain.SessionType, seats int) *domain.Event {
	return f.addEventOn(session, seats, date(2025, time.March, 20))
}

func (f *fixture) addEventOn(session domain.SessionType, seats int, start time.Time) *domain.Event {
	e := &domain.Event{
		ID:            uuid.NewString(),
		Name:          "Open session",
		SessionType:   session,
		StartDate:     start,
		StartTime:     domain.TimeOfDay(10 * 60),
		EndTime:       domain.TimeOfDay(12 * 60),
		AvailableFrom: date(2025, time.March, 1),
		TotalSeats:    seats,
		Status:        domain.EventStatusAvailable,
	}
	require.NoError(f.t, f.repos.Events.Create(context.Background(), e))
	return e
}

func (f *fixture) event(id string) *domain.Event {
	e, err := f.repos.Events.GetByID(context.Background(), id)
	require.NoError(f.t, err)
	return e
}

// pushTitles returns the titles of push notifications queued for userID
func (f *fixture) pushTitles(userID string) []string {
	var titles []string
	for _, msg := range f.mem.OutboxMessages() {
		if msg.Channel != domain.ChannelPush || msg.Key != userID {
			continue
		}
		var p domain.PushNotification
		require.NoError(f.t, json.Unmarshal(msg.Payload, &p))
		titles = append(titles, p.Title)
	}
	return titles
}

func (f *fixture) emailsTo(addr string) []domain.EmailNotification {
	var out []domain.EmailNotification
	for _, msg := range f.mem.OutboxMessages() {
		if msg.Channel != domain.ChannelEmail || msg.Key != addr {
			continue
		}
		var e domain.EmailNotification
		require.NoError(f.t, json.Unmarshal(msg.Payload, &e))
		out = append(out, e)
	}
	return out
}

package service

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/MarlyH/CorpsAPI-sub000/internal/clock"
	"github.com/MarlyH/CorpsAPI-sub000/internal/domain"
	"github.com/MarlyH/CorpsAPI-sub000/internal/dto"
	"github.com/MarlyH/CorpsAPI-sub000/internal/metrics"
	"github.com/MarlyH/CorpsAPI-sub000/internal/repository"
	"github.com/MarlyH/CorpsAPI-sub000/pkg/logger"
	"github.com/MarlyH/CorpsAPI-sub000/pkg/telemetry"
)

// WaitlistService defines the user-facing waitlist operations
type WaitlistService interface {
	// Join adds the requester to a full event's waitlist
	Join(ctx context.Context, requester domain.Requester, eventID string) (*dto.WaitlistEntryResponse, error)

	// Leave removes the requester from an event's waitlist
	Leave(ctx context.Context, requester domain.Requester, eventID string) error

	// ListMine returns the requester's waitlist entries
	ListMine(ctx context.Context, requester domain.Requester) ([]*dto.WaitlistEntryResponse, error)
}

// WaitlistManager implements WaitlistService and drains waitlists when
// seats free up
type WaitlistManager struct {
	tx       repository.TxManager
	events   repository.EventRepository
	bookings repository.BookingRepository
	waitlist repository.WaitlistRepository
	notifier Notifier
	clock    clock.Clock
}

// NewWaitlistManager creates a new WaitlistManager
func NewWaitlistManager(store *repository.Store, notifier Notifier, clk clock.Clock) *WaitlistManager {
	return &WaitlistManager{
		tx:       store.Tx,
		events:   store.Events,
		bookings: store.Bookings,
		waitlist: store.Waitlist,
		notifier: notifier,
		clock:    clk,
	}
}

// Join adds the requester to the waitlist. The event row lock orders the
// capacity check against concurrent cancellations.
func (m *WaitlistManager) Join(ctx context.Context, requester domain.Requester, eventID string) (*dto.WaitlistEntryResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.waitlist.join")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", eventID), attribute.String("user_id", requester.UserID))

	var entry *domain.WaitlistEntry
	err := m.tx.WithTx(ctx, func(ctx context.Context) error {
		event, err := m.events.GetForUpdate(ctx, eventID)
		if err != nil {
			return err
		}

		exists, err := m.waitlist.Exists(ctx, eventID, requester.UserID)
		if err != nil {
			return err
		}
		if exists {
			return domain.ErrAlreadyOnWaitlist
		}
		if event.Status.IsTerminal() {
			return domain.ErrEventClosed
		}

		live, err := m.bookings.CountLiveSeated(ctx, eventID)
		if err != nil {
			return err
		}
		if live < event.TotalSeats {
			return domain.ErrSeatsAvailable
		}

		entry = &domain.WaitlistEntry{
			EventID:   eventID,
			UserID:    requester.UserID,
			CreatedAt: m.clock.Now(),
		}
		return m.waitlist.Add(ctx, entry)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	metrics.RecordWaitlistJoin(ctx, eventID)
	return dto.WaitlistFromDomain(entry), nil
}

// Leave removes the requester's entry
func (m *WaitlistManager) Leave(ctx context.Context, requester domain.Requester, eventID string) error {
	ctx, span := telemetry.StartSpan(ctx, "service.waitlist.leave")
	defer span.End()

	removed, err := m.waitlist.Remove(ctx, eventID, requester.UserID)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	if !removed {
		return domain.ErrNotOnWaitlist
	}
	return nil
}

// ListMine returns the requester's entries
func (m *WaitlistManager) ListMine(ctx context.Context, requester domain.Requester) ([]*dto.WaitlistEntryResponse, error) {
	entries, err := m.waitlist.ListByUser(ctx, requester.UserID)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.WaitlistEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = dto.WaitlistFromDomain(e)
	}
	return out, nil
}

// DrainOnRelease notifies everyone waiting on event and empties its
// waitlist. It must run in the transaction that freed the seat. Every
// entry is notified, not just the oldest, and the first to book wins.
func (m *WaitlistManager) DrainOnRelease(ctx context.Context, event *domain.Event) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.waitlist.drain")
	defer span.End()

	entries, err := m.waitlist.ListByEvent(ctx, event.ID)
	if err != nil {
		telemetry.RecordError(span, err)
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}

	when := event.StartDate.Format(domain.DateLayout)
	for _, e := range entries {
		m.notifier.Notify(ctx, e.UserID,
			"A seat is available",
			fmt.Sprintf("A seat has opened up for %s on %s. Book now to claim it.", event.Name, when),
		)
	}

	removed, err := m.waitlist.DeleteByEvent(ctx, event.ID)
	if err != nil {
		telemetry.RecordError(span, err)
		return 0, err
	}

	logger.FromContext(ctx).Info("waitlist drained",
		zap.String("event_id", event.ID),
		zap.Int("notified", len(entries)),
	)
	metrics.RecordWaitlistDrain(ctx, event.ID, removed)
	return removed, nil
}

var _ WaitlistService = (*WaitlistManager)(nil)

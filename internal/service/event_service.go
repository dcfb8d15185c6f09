package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
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

// EventService defines the interface for event business logic
type EventService interface {
	// CreateEvent schedules a new event
	CreateEvent(ctx context.Context, requester domain.Requester, req *dto.CreateEventRequest) (*dto.EventResponse, error)

	// GetEvent retrieves an event with its live seat count
	GetEvent(ctx context.Context, eventID string) (*dto.EventResponse, error)

	// ListEvents retrieves events matching the query
	ListEvents(ctx context.Context, query *dto.ListEventsQuery) ([]*dto.EventResponse, error)

	// GetSeats returns the seat numbers held by live bookings
	GetSeats(ctx context.Context, eventID string) (*dto.SeatMapResponse, error)

	// CancelEvent cancels an event and every live booking on it
	CancelEvent(ctx context.Context, requester domain.Requester, eventID string) (*dto.CancelEventResponse, error)
}

// eventService implements EventService
type eventService struct {
	tx       repository.TxManager
	events   repository.EventRepository
	bookings repository.BookingRepository
	waitlist repository.WaitlistRepository
	notifier Notifier
	clock    clock.Clock
}

// NewEventService creates a new event service
func NewEventService(store *repository.Store, notifier Notifier, clk clock.Clock) EventService {
	return &eventService{
		tx:       store.Tx,
		events:   store.Events,
		bookings: store.Bookings,
		waitlist: store.Waitlist,
		notifier: notifier,
		clock:    clk,
	}
}

// CreateEvent validates the schedule and stores the event. An event whose
// available-from date has already arrived opens immediately.
func (s *eventService) CreateEvent(ctx context.Context, requester domain.Requester, req *dto.CreateEventRequest) (*dto.EventResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.event.create")
	defer span.End()

	if !requester.IsManager() {
		return nil, domain.ErrForbidden
	}

	startDate, err := parseDate(req.StartDate)
	if err != nil {
		return nil, err
	}
	availableFrom, err := parseDate(req.AvailableFrom)
	if err != nil {
		return nil, err
	}
	startTime, err := domain.ParseTimeOfDay(req.StartTime)
	if err != nil {
		return nil, err
	}
	endTime, err := domain.ParseTimeOfDay(req.EndTime)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	event := &domain.Event{
		ID:            uuid.NewString(),
		LocationID:    req.LocationID,
		ManagerID:     requester.UserID,
		Name:          strings.TrimSpace(req.Name),
		Description:   req.Description,
		SessionType:   domain.SessionType(strings.ToLower(req.SessionType)),
		StartDate:     startDate,
		StartTime:     startTime,
		EndTime:       endTime,
		AvailableFrom: availableFrom,
		TotalSeats:    req.TotalSeats,
		Status:        domain.EventStatusUnavailable,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := event.Validate(); err != nil {
		return nil, err
	}
	if event.DueForRelease(s.clock.Today()) {
		event.Status = domain.EventStatusAvailable
	}

	span.SetAttributes(attribute.String("event_id", event.ID), attribute.String("status", string(event.Status)))

	if err := s.events.Create(ctx, event); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	logger.FromContext(ctx).Info("event created",
		zap.String("event_id", event.ID),
		zap.String("session_type", string(event.SessionType)),
		zap.String("start_date", req.StartDate),
		zap.String("status", string(event.Status)),
	)
	return dto.EventFromDomain(event, 0), nil
}

// GetEvent retrieves an event with its live seat count
func (s *eventService) GetEvent(ctx context.Context, eventID string) (*dto.EventResponse, error) {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	taken, err := s.bookings.CountLiveSeated(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return dto.EventFromDomain(event, taken), nil
}

// ListEvents retrieves events matching the query
func (s *eventService) ListEvents(ctx context.Context, query *dto.ListEventsQuery) ([]*dto.EventResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.event.list")
	defer span.End()

	filter := repository.EventFilter{}
	if query != nil {
		filter.Limit, filter.Offset = normalizePage(query.Limit, query.Offset)
		if query.Status != "" {
			filter.Status = domain.EventStatus(strings.ToLower(query.Status))
			if !filter.Status.IsValid() {
				return nil, domain.ErrInvalidEventStatus
			}
		}
		if query.SessionType != "" {
			filter.SessionType = domain.SessionType(strings.ToLower(query.SessionType))
			if !filter.SessionType.IsValid() {
				return nil, domain.ErrInvalidSessionType
			}
		}
		if query.FromDate != "" {
			from, err := parseDate(query.FromDate)
			if err != nil {
				return nil, err
			}
			filter.FromDate = from
		}
	}

	events, err := s.events.List(ctx, filter)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	out := make([]*dto.EventResponse, len(events))
	for i, e := range events {
		taken, err := s.bookings.CountLiveSeated(ctx, e.ID)
		if err != nil {
			return nil, err
		}
		out[i] = dto.EventFromDomain(e, taken)
	}
	return out, nil
}

// GetSeats returns the taken seat numbers for the seat picker
func (s *eventService) GetSeats(ctx context.Context, eventID string) (*dto.SeatMapResponse, error) {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	taken, err := s.bookings.TakenSeats(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if taken == nil {
		taken = []int{}
	}
	return &dto.SeatMapResponse{EventID: event.ID, TotalSeats: event.TotalSeats, Taken: taken}, nil
}

// CancelEvent moves the event to Cancelled, cancels its Booked and
// CheckedIn bookings, removes its waitlist and notifies each booking user
func (s *eventService) CancelEvent(ctx context.Context, requester domain.Requester, eventID string) (*dto.CancelEventResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.event.cancel")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", eventID))

	if !requester.IsStaff() {
		return nil, domain.ErrForbidden
	}

	resp := &dto.CancelEventResponse{EventID: eventID}
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		event, err := s.events.GetForUpdate(ctx, eventID)
		if err != nil {
			return err
		}
		if event.Status.IsTerminal() {
			return domain.ErrEventClosed
		}

		now := s.clock.Now()
		from := event.Status
		if err := event.TransitionTo(domain.EventStatusCancelled, now); err != nil {
			return err
		}
		ok, err := s.events.CompareAndSetStatus(ctx, eventID, from, domain.EventStatusCancelled, now)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: event %s changed concurrently", domain.ErrInvalidTransition, eventID)
		}

		bookings, err := s.bookings.ListByEvent(ctx, eventID, domain.BookingStatusBooked, domain.BookingStatusCheckedIn)
		if err != nil {
			return err
		}

		for _, b := range bookings {
			prev := b.Status
			if err := b.TransitionTo(domain.BookingStatusCancelled, now); err != nil {
				return err
			}
			ok, err := s.bookings.UpdateStatus(ctx, b, prev)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: booking %s changed concurrently", domain.ErrInvalidTransition, b.ID)
			}
		}
		notify := distinctUsers(bookings)

		removed, err := s.waitlist.DeleteByEvent(ctx, eventID)
		if err != nil {
			return err
		}

		when := event.StartDate.Format(domain.DateLayout)
		for _, userID := range notify {
			s.notifier.Notify(ctx, userID, "Event cancelled",
				fmt.Sprintf("%s on %s has been cancelled. Your booking has been cancelled.", event.Name, when))
		}

		resp.Status = string(event.Status)
		resp.BookingsCancelled = len(bookings)
		resp.UsersNotified = len(notify)
		resp.WaitlistRemoved = removed
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	metrics.RecordSeatsReleased(ctx, eventID, "event_cancelled", resp.BookingsCancelled)
	logger.FromContext(ctx).Info("event cancelled",
		zap.String("event_id", eventID),
		zap.Int("bookings_cancelled", resp.BookingsCancelled),
		zap.Int("waitlist_removed", resp.WaitlistRemoved),
		zap.String("manager_id", requester.UserID),
	)
	return resp, nil
}

// parseDate reads a YYYY-MM-DD calendar date as midnight UTC
func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(domain.DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad date %q", domain.ErrInvalidSchedule, s)
	}
	return t, nil
}

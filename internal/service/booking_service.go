package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

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

const (
	attendeeKindWalkIn  = "walk_in"
	attendeeKindUnknown = "unknown"

	defaultPageSize = 20
	maxPageSize     = 100
)

// BookingService defines the interface for booking business logic
type BookingService interface {
	// CreateBooking books a seat for the requester or one of their children
	CreateBooking(ctx context.Context, requester domain.Requester, req *dto.CreateBookingRequest) (*dto.CreateBookingResponse, error)

	// ReserveForWalkIn books a seat for an attendee without an account
	ReserveForWalkIn(ctx context.Context, requester domain.Requester, eventID string, req *dto.WalkInRequest) (*dto.CreateBookingResponse, error)

	// CancelBooking cancels a booking and frees its seat
	CancelBooking(ctx context.Context, requester domain.Requester, bookingID string) (*dto.BookingResponse, error)

	// AdvanceStatus applies a staff status change
	AdvanceStatus(ctx context.Context, requester domain.Requester, bookingID string, req *dto.AdvanceStatusRequest) (*dto.BookingResponse, error)

	// LookupByToken resolves a check-in token to the door view
	LookupByToken(ctx context.Context, requester domain.Requester, token string) (*dto.BookingDetailResponse, error)

	// GetBooking retrieves a booking by ID
	GetBooking(ctx context.Context, requester domain.Requester, bookingID string) (*dto.BookingResponse, error)

	// ListMyBookings retrieves the requester's bookings, newest first
	ListMyBookings(ctx context.Context, requester domain.Requester, limit, offset int) ([]*dto.BookingResponse, error)
}

// bookingService implements BookingService
type bookingService struct {
	tx        repository.TxManager
	events    repository.EventRepository
	bookings  repository.BookingRepository
	users     repository.UserRepository
	children  repository.ChildRepository
	allocator *SeatAllocator
	ledger    *StrikeLedger
	waitlist  *WaitlistManager
	notifier  Notifier
	clock     clock.Clock
}

// NewBookingService creates a new booking service
func NewBookingService(
	store *repository.Store,
	allocator *SeatAllocator,
	ledger *StrikeLedger,
	waitlist *WaitlistManager,
	notifier Notifier,
	clk clock.Clock,
) BookingService {
	return &bookingService{
		tx:        store.Tx,
		events:    store.Events,
		bookings:  store.Bookings,
		users:     store.Users,
		children:  store.Children,
		allocator: allocator,
		ledger:    ledger,
		waitlist:  waitlist,
		notifier:  notifier,
		clock:     clk,
	}
}

// CreateBooking resolves the attendee, settles the strike ledger, then
// checks eligibility and grants the seat under the event lock
func (s *bookingService) CreateBooking(ctx context.Context, requester domain.Requester, req *dto.CreateBookingRequest) (*dto.CreateBookingResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.create")
	defer span.End()

	span.SetAttributes(
		attribute.String("event_id", req.EventID),
		attribute.Int("seat_number", req.SeatNumber),
		attribute.Bool("is_for_child", req.IsForChild),
	)

	if req.SeatNumber <= 0 {
		return nil, domain.ErrInvalidSeatNumber
	}

	user, err := s.users.GetByID(ctx, requester.UserID)
	if err != nil {
		return nil, err
	}
	attendee, err := s.resolveAttendee(ctx, user, req)
	if err != nil {
		return nil, err
	}

	suspended, err := s.ledger.Evaluate(ctx, user)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	today := s.clock.Today()
	var (
		event   *domain.Event
		booking *domain.Booking
	)
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		event, err = s.events.GetForUpdate(ctx, req.EventID)
		if err != nil {
			return err
		}
		if !event.AcceptsBookings() {
			return domain.ErrEventNotAvailable
		}
		if err := domain.CheckEligibility(attendee.Age(today), event.SessionType, suspended, user.Strikes); err != nil {
			return err
		}

		booking, err = s.allocator.TryBook(ctx, event, SeatClaim{
			SeatNumber: req.SeatNumber,
			Attendee:   attendee,
		})
		return err
	})
	if err != nil {
		metrics.RecordBookingRejected(ctx, req.EventID, rejectionReason(err))
		if !domain.IsConflictError(err) && !domain.IsEligibilityError(err) {
			telemetry.RecordError(span, err)
		}
		return nil, err
	}

	metrics.RecordBookingCreated(ctx, event.ID, string(attendee.Key().Kind))
	s.notifier.SendEmail(ctx, user.Email,
		fmt.Sprintf("Booking confirmed: %s", event.Name),
		fmt.Sprintf("%s is booked into %s on %s at %s, seat %d. Show this code at the door: %s",
			attendee.DisplayName(), event.Name, event.StartDate.Format(domain.DateLayout),
			event.StartTime, req.SeatNumber, booking.CheckInToken),
	)

	logger.FromContext(ctx).Info("booking created",
		zap.String("booking_id", booking.ID),
		zap.String("event_id", event.ID),
		zap.String("attendee", attendee.Key().String()),
	)
	return createdResponse(booking), nil
}

func (s *bookingService) resolveAttendee(ctx context.Context, user *domain.User, req *dto.CreateBookingRequest) (domain.Attendee, error) {
	if !req.IsForChild {
		return domain.UserAttendee{User: user}, nil
	}
	if req.ChildID == "" {
		return nil, domain.ErrChildRequired
	}

	child, err := s.children.GetByID(ctx, req.ChildID)
	if err != nil {
		return nil, err
	}
	if child.ParentUserID != user.ID {
		return nil, domain.ErrChildNotFound
	}
	return domain.ChildAttendee{Child: child}, nil
}

// ReserveForWalkIn books a seat without an attendee account. Staff vouch
// for the attendee, so eligibility and duplicate checks do not apply.
func (s *bookingService) ReserveForWalkIn(ctx context.Context, requester domain.Requester, eventID string, req *dto.WalkInRequest) (*dto.CreateBookingResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.walk_in")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", eventID), attribute.Int("seat_number", req.SeatNumber))

	if !requester.IsStaff() {
		return nil, domain.ErrForbidden
	}

	reservation := &domain.Reservation{
		AttendeeName: strings.TrimSpace(req.AttendeeName),
		PhoneNumber:  strings.TrimSpace(req.PhoneNumber),
		GuardianName: strings.TrimSpace(req.GuardianName),
	}
	if reservation.AttendeeName == "" || reservation.PhoneNumber == "" {
		return nil, domain.ErrInvalidReservation
	}

	var booking *domain.Booking
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		event, err := s.events.GetForUpdate(ctx, eventID)
		if err != nil {
			return err
		}
		if !event.AcceptsBookings() {
			return domain.ErrEventNotAvailable
		}
		if event.SessionType == domain.SessionKids && reservation.GuardianName == "" {
			return domain.ErrGuardianRequired
		}

		booking, err = s.allocator.TryBook(ctx, event, SeatClaim{
			SeatNumber:  req.SeatNumber,
			Reservation: reservation,
		})
		return err
	})
	if err != nil {
		metrics.RecordBookingRejected(ctx, eventID, rejectionReason(err))
		return nil, err
	}

	metrics.RecordBookingCreated(ctx, eventID, attendeeKindWalkIn)
	logger.FromContext(ctx).Info("walk-in reserved",
		zap.String("booking_id", booking.ID),
		zap.String("event_id", eventID),
		zap.String("staff_id", requester.UserID),
	)
	return createdResponse(booking), nil
}

// CancelBooking frees the seat and drains the waitlist if the event was full
func (s *bookingService) CancelBooking(ctx context.Context, requester domain.Requester, bookingID string) (*dto.BookingResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.cancel")
	defer span.End()

	span.SetAttributes(attribute.String("booking_id", bookingID))

	current, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if current.UserID != requester.UserID && !requester.IsStaff() {
		return nil, domain.ErrNotBookingOwner
	}

	var booking *domain.Booking
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		event, b, err := s.lockBooking(ctx, current)
		if err != nil {
			return err
		}
		if event.Status.IsTerminal() {
			return domain.ErrEventClosed
		}

		wasFull, err := s.allocator.Release(ctx, event, b, domain.BookingStatusCancelled)
		if err != nil {
			return err
		}

		s.notifier.Notify(ctx, b.UserID, "Booking cancelled",
			fmt.Sprintf("Your booking for %s on %s has been cancelled.", event.Name, event.StartDate.Format(domain.DateLayout)))

		if wasFull {
			if _, err := s.waitlist.DrainOnRelease(ctx, event); err != nil {
				return err
			}
		}
		booking = b
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	metrics.RecordSeatsReleased(ctx, booking.EventID, string(domain.BookingStatusCancelled), 1)
	return dto.FromDomain(booking), nil
}

// AdvanceStatus applies check-in, check-out, strike or cancel on behalf of staff
func (s *bookingService) AdvanceStatus(ctx context.Context, requester domain.Requester, bookingID string, req *dto.AdvanceStatusRequest) (*dto.BookingResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.advance_status")
	defer span.End()

	target := domain.BookingStatus(req.Status)
	span.SetAttributes(attribute.String("booking_id", bookingID), attribute.String("target", req.Status))

	if !requester.IsStaff() {
		return nil, domain.ErrForbidden
	}
	if !target.IsValid() || target == domain.BookingStatusBooked {
		return nil, domain.ErrInvalidStatus
	}

	current, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	var booking *domain.Booking
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		event, b, err := s.lockBooking(ctx, current)
		if err != nil {
			return err
		}
		if err := checkEventAllows(event, target); err != nil {
			return err
		}

		if !target.ReleasesSeat() {
			from := b.Status
			if err := b.TransitionTo(target, s.clock.Now()); err != nil {
				return err
			}
			ok, err := s.bookings.UpdateStatus(ctx, b, from)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: booking %s changed concurrently", domain.ErrInvalidTransition, b.ID)
			}
			booking = b
			return nil
		}

		wasFull, err := s.allocator.Release(ctx, event, b, target)
		if err != nil {
			return err
		}

		switch target {
		case domain.BookingStatusStriked:
			if b.UserID != "" {
				if _, err := s.ledger.AddStrike(ctx, b.UserID, strikeSourceManual); err != nil {
					return err
				}
			}
		case domain.BookingStatusCancelled:
			s.notifier.Notify(ctx, b.UserID, "Booking cancelled",
				fmt.Sprintf("Your booking for %s on %s has been cancelled by staff.", event.Name, event.StartDate.Format(domain.DateLayout)))
		}

		if wasFull {
			if _, err := s.waitlist.DrainOnRelease(ctx, event); err != nil {
				return err
			}
		}
		booking = b
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if target.ReleasesSeat() {
		metrics.RecordSeatsReleased(ctx, booking.EventID, string(target), 1)
	}
	logger.FromContext(ctx).Info("booking status changed",
		zap.String("booking_id", booking.ID),
		zap.String("status", string(booking.Status)),
		zap.String("staff_id", requester.UserID),
	)
	return dto.FromDomain(booking), nil
}

// lockBooking takes the event lock and re-reads the booking under it
func (s *bookingService) lockBooking(ctx context.Context, current *domain.Booking) (*domain.Event, *domain.Booking, error) {
	event, err := s.events.GetForUpdate(ctx, current.EventID)
	if err != nil {
		return nil, nil, err
	}
	b, err := s.bookings.GetByID(ctx, current.ID)
	if err != nil {
		return nil, nil, err
	}
	return event, b, nil
}

// checkEventAllows applies the event-phase rule for each booking transition
func checkEventAllows(event *domain.Event, target domain.BookingStatus) error {
	switch target {
	case domain.BookingStatusCheckedIn:
		if event.Status != domain.EventStatusAvailable {
			return domain.ErrEventNotCheckingIn
		}
	case domain.BookingStatusCheckedOut:
		if event.Status == domain.EventStatusCancelled {
			return domain.ErrEventClosed
		}
	default:
		if event.Status.IsTerminal() {
			return domain.ErrEventClosed
		}
	}
	return nil
}

// LookupByToken returns the booking, its event and who is attending
func (s *bookingService) LookupByToken(ctx context.Context, requester domain.Requester, token string) (*dto.BookingDetailResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.lookup_token")
	defer span.End()

	if !requester.IsStaff() {
		return nil, domain.ErrForbidden
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.ErrInvalidCheckInToken
	}

	b, err := s.bookings.GetByCheckInToken(ctx, token)
	if err != nil {
		return nil, err
	}
	event, err := s.events.GetByID(ctx, b.EventID)
	if err != nil {
		return nil, err
	}
	taken, err := s.bookings.CountLiveSeated(ctx, event.ID)
	if err != nil {
		return nil, err
	}
	attendee, err := s.describeAttendee(ctx, b)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	return &dto.BookingDetailResponse{
		Booking:  dto.FromDomain(b),
		Event:    dto.EventFromDomain(event, taken),
		Attendee: attendee,
	}, nil
}

func (s *bookingService) describeAttendee(ctx context.Context, b *domain.Booking) (*dto.AttendeeResponse, error) {
	today := s.clock.Today()

	if b.IsForChild && b.ChildID != "" {
		child, err := s.children.GetByID(ctx, b.ChildID)
		switch {
		case err == nil:
			a := domain.ChildAttendee{Child: child}
			age := a.Age(today)
			return &dto.AttendeeResponse{
				Kind:                  string(domain.AttendeeChild),
				Name:                  a.DisplayName(),
				Age:                   &age,
				EmergencyContactName:  child.EmergencyContactName,
				EmergencyContactPhone: child.EmergencyContactPhone,
			}, nil
		case !errors.Is(err, domain.ErrChildNotFound):
			return nil, err
		}
	}

	if !b.IsForChild && b.UserID != "" {
		user, err := s.users.GetByID(ctx, b.UserID)
		switch {
		case err == nil:
			a := domain.UserAttendee{User: user}
			age := a.Age(today)
			return &dto.AttendeeResponse{
				Kind:        string(domain.AttendeeUser),
				Name:        a.DisplayName(),
				Age:         &age,
				PhoneNumber: user.PhoneNumber,
			}, nil
		case !errors.Is(err, domain.ErrUserNotFound):
			return nil, err
		}
	}

	if r := b.Reservation; r != nil {
		return &dto.AttendeeResponse{
			Kind:         attendeeKindWalkIn,
			Name:         r.AttendeeName,
			PhoneNumber:  r.PhoneNumber,
			GuardianName: r.GuardianName,
		}, nil
	}
	return &dto.AttendeeResponse{Kind: attendeeKindUnknown}, nil
}

// GetBooking retrieves a booking visible to the requester
func (s *bookingService) GetBooking(ctx context.Context, requester domain.Requester, bookingID string) (*dto.BookingResponse, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.UserID != requester.UserID && !requester.IsStaff() {
		return nil, domain.ErrNotBookingOwner
	}
	return dto.FromDomain(b), nil
}

// ListMyBookings retrieves the requester's bookings
func (s *bookingService) ListMyBookings(ctx context.Context, requester domain.Requester, limit, offset int) ([]*dto.BookingResponse, error) {
	limit, offset = normalizePage(limit, offset)
	bookings, err := s.bookings.ListByUser(ctx, requester.UserID, limit, offset)
	if err != nil {
		return nil, err
	}
	return dto.FromDomainList(bookings), nil
}

func createdResponse(b *domain.Booking) *dto.CreateBookingResponse {
	resp := &dto.CreateBookingResponse{
		BookingID:    b.ID,
		EventID:      b.EventID,
		Status:       string(b.Status),
		CheckInToken: b.CheckInToken,
	}
	if b.SeatNumber != nil {
		resp.SeatNumber = *b.SeatNumber
	}
	return resp
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

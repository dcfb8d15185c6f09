package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"

	"github.com/MarlyH/CorpsAPI-sub000/internal/domain"
	"github.com/MarlyH/CorpsAPI-sub000/pkg/telemetry"
)

const bookingColumns = `
	id::text, event_id::text, COALESCE(user_id, ''), COALESCE(child_id::text, ''),
	is_for_child, seat_number, status, check_in_token,
	reservation_name, reservation_phone, reservation_guardian,
	created_at, updated_at, checked_in_at, checked_out_at, cancelled_at`

const liveStatusClause = `status NOT IN ('cancelled', 'striked')`

// BookingRepository implements repository.BookingRepository on PostgreSQL
type BookingRepository struct {
	pool *pgxpool.Pool
}

// NewBookingRepository creates a new BookingRepository
func NewBookingRepository(pool *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

// Create inserts a booking. The live-booking partial unique indexes back up
// the seat and attendee checks made under the event lock.
func (r *BookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.create")
	defer span.End()

	span.SetAttributes(
		attribute.String("booking_id", booking.ID),
		attribute.String("event_id", booking.EventID),
	)

	const stmt = `
		INSERT INTO bookings (
			id, event_id, user_id, child_id, is_for_child, seat_number, status,
			check_in_token, reservation_name, reservation_phone, reservation_guardian,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	var name, phone, guardian *string
	if res := booking.Reservation; res != nil {
		name = nullString(res.AttendeeName)
		phone = nullString(res.PhoneNumber)
		guardian = nullString(res.GuardianName)
	}

	_, err := conn(ctx, r.pool).Exec(ctx, stmt,
		booking.ID,
		booking.EventID,
		nullString(booking.UserID),
		nullString(booking.ChildID),
		booking.IsForChild,
		booking.SeatNumber,
		string(booking.Status),
		booking.CheckInToken,
		name,
		phone,
		guardian,
		booking.CreatedAt,
		booking.UpdatedAt,
	)
	if err != nil {
		telemetry.RecordError(span, err)
		if constraint, ok := uniqueViolation(err); ok {
			switch constraint {
			case constraintLiveSeat:
				return domain.ErrSeatTaken
			case constraintLiveUser, constraintLiveChild:
				return domain.ErrDuplicateBooking
			}
		}
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

// GetByID retrieves a booking by its ID
func (r *BookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.get_by_id")
	defer span.End()
	span.SetAttributes(attribute.String("booking_id", id))

	booking, err := scanBooking(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return booking, nil
}

// GetByCheckInToken retrieves a booking by its door token
func (r *BookingRepository) GetByCheckInToken(ctx context.Context, token string) (*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.get_by_token")
	defer span.End()

	booking, err := scanBooking(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE check_in_token = $1`, token))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return booking, nil
}

// ListByUser returns a user's bookings, newest first
func (r *BookingRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.list_by_user")
	defer span.End()

	if limit <= 0 {
		limit = defaultListLimit
	}
	return r.queryBookings(ctx, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE user_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`, userID, limit, offset)
}

// ListByEvent returns the event's bookings in creation order
func (r *BookingRepository) ListByEvent(ctx context.Context, eventID string, statuses ...domain.BookingStatus) ([]*domain.Booking, error) {
	if len(statuses) == 0 {
		return r.queryBookings(ctx, `
			SELECT `+bookingColumns+` FROM bookings
			WHERE event_id = $1
			ORDER BY created_at, id`, eventID)
	}

	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}
	return r.queryBookings(ctx, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE event_id = $1 AND status = ANY($2)
		ORDER BY created_at, id`, eventID, names)
}

// TakenSeats returns the seat numbers held by live bookings
func (r *BookingRepository) TakenSeats(ctx context.Context, eventID string) ([]int, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT seat_number FROM bookings
		WHERE event_id = $1 AND seat_number IS NOT NULL AND `+liveStatusClause+`
		ORDER BY seat_number`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to query taken seats: %w", err)
	}

	seats, err := pgx.CollectRows(rows, pgx.RowTo[int])
	if err != nil {
		return nil, fmt.Errorf("failed to scan taken seats: %w", err)
	}
	return seats, nil
}

// IsSeatTaken reports whether a live booking holds seat
func (r *BookingRepository) IsSeatTaken(ctx context.Context, eventID string, seat int) (bool, error) {
	var taken bool
	err := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE event_id = $1 AND seat_number = $2 AND `+liveStatusClause+`
		)`, eventID, seat).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("failed to check seat: %w", err)
	}
	return taken, nil
}

// CountLiveSeated counts live bookings holding a seat
func (r *BookingRepository) CountLiveSeated(ctx context.Context, eventID string) (int, error) {
	var n int
	err := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT COUNT(*) FROM bookings
		WHERE event_id = $1 AND seat_number IS NOT NULL AND `+liveStatusClause,
		eventID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count live bookings: %w", err)
	}
	return n, nil
}

// HasLiveBooking reports whether the attendee already holds a live booking on the event
func (r *BookingRepository) HasLiveBooking(ctx context.Context, eventID string, attendee domain.AttendeeKey) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE event_id = $1 AND user_id = $2 AND NOT is_for_child AND ` + liveStatusClause + `
		)`
	if attendee.Kind == domain.AttendeeChild {
		query = `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE event_id = $1 AND child_id = $2 AND is_for_child AND ` + liveStatusClause + `
		)`
	}

	var exists bool
	if err := conn(ctx, r.pool).QueryRow(ctx, query, eventID, attendee.ID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check attendee booking: %w", err)
	}
	return exists, nil
}

// UpdateStatus writes the booking's status, seat and timestamps if the row
// is still in expected
func (r *BookingRepository) UpdateStatus(ctx context.Context, booking *domain.Booking, expected domain.BookingStatus) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.update_status")
	defer span.End()

	span.SetAttributes(
		attribute.String("booking_id", booking.ID),
		attribute.String("from", string(expected)),
		attribute.String("to", string(booking.Status)),
	)

	tag, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE bookings SET
			status = $3,
			seat_number = $4,
			updated_at = $5,
			checked_in_at = $6,
			checked_out_at = $7,
			cancelled_at = $8
		WHERE id = $1 AND status = $2`,
		booking.ID,
		string(expected),
		string(booking.Status),
		booking.SeatNumber,
		booking.UpdatedAt,
		booking.CheckedInAt,
		booking.CheckedOutAt,
		booking.CancelledAt,
	)
	if err != nil {
		telemetry.RecordError(span, err)
		return false, fmt.Errorf("failed to update booking status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *BookingRepository) queryBookings(ctx context.Context, query string, args ...any) ([]*domain.Booking, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bookings: %w", err)
	}
	return bookings, nil
}

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var (
		b                     domain.Booking
		status                string
		name, phone, guardian *string
		checkedIn, checkedOut *time.Time
		cancelledAt           *time.Time
	)
	err := row.Scan(
		&b.ID,
		&b.EventID,
		&b.UserID,
		&b.ChildID,
		&b.IsForChild,
		&b.SeatNumber,
		&status,
		&b.CheckInToken,
		&name,
		&phone,
		&guardian,
		&b.CreatedAt,
		&b.UpdatedAt,
		&checkedIn,
		&checkedOut,
		&cancelledAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidUUID(err) {
			return nil, domain.ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to scan booking: %w", err)
	}

	b.Status = domain.BookingStatus(status)
	b.CheckedInAt = checkedIn
	b.CheckedOutAt = checkedOut
	b.CancelledAt = cancelledAt
	if name != nil || phone != nil || guardian != nil {
		b.Reservation = &domain.Reservation{
			AttendeeName: derefString(name),
			PhoneNumber:  derefString(phone),
			GuardianName: derefString(guardian),
		}
	}
	return &b, nil
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"

	"github.com/MarlyH/CorpsAPI-sub000/internal/domain"
	"github.com/MarlyH/CorpsAPI-sub000/internal/repository"
	"github.com/MarlyH/CorpsAPI-sub000/pkg/telemetry"
)

const eventColumns = `
	id::text, location_id, COALESCE(manager_id, ''), name, description, session_type,
	start_date, start_time, end_time, available_from, total_seats, status,
	reminder_sent, created_at, updated_at`

const defaultListLimit = 50

// EventRepository implements repository.EventRepository on PostgreSQL
type EventRepository struct {
	pool *pgxpool.Pool
}

// NewEventRepository creates a new EventRepository
func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

// Create inserts a new event
func (r *EventRepository) Create(ctx context.Context, event *domain.Event) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.event.create")
	defer span.End()
	span.SetAttributes(attribute.String("event_id", event.ID))

	const stmt = `
		INSERT INTO events (
			id, location_id, manager_id, name, description, session_type,
			start_date, start_time, end_time, available_from, total_seats,
			status, reminder_sent, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err := conn(ctx, r.pool).Exec(ctx, stmt,
		event.ID,
		event.LocationID,
		nullString(event.ManagerID),
		event.Name,
		event.Description,
		string(event.SessionType),
		event.StartDate,
		toPgTime(event.StartTime),
		toPgTime(event.EndTime),
		event.AvailableFrom,
		event.TotalSeats,
		string(event.Status),
		event.ReminderSent,
		event.CreatedAt,
		event.UpdatedAt,
	)
	if err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

// GetByID retrieves an event by its ID
func (r *EventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.event.get_by_id")
	defer span.End()

	row := conn(ctx, r.pool).QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
	event, err := scanEvent(row)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return event, nil
}

// GetForUpdate locks the event row until the surrounding transaction ends
func (r *EventRepository) GetForUpdate(ctx context.Context, id string) (*domain.Event, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.event.get_for_update")
	defer span.End()

	tx := txFromContext(ctx)
	if tx == nil {
		return nil, errTxRequired
	}

	event, err := scanEvent(tx.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return event, nil
}

// List returns events matching filter ordered by start
func (r *EventRepository) List(ctx context.Context, filter repository.EventFilter) ([]*domain.Event, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.event.list")
	defer span.End()

	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.SessionType != "" {
		args = append(args, string(filter.SessionType))
		where = append(where, fmt.Sprintf("session_type = $%d", len(args)))
	}
	if !filter.FromDate.IsZero() {
		args = append(args, filter.FromDate)
		where = append(where, fmt.Sprintf("start_date >= $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `SELECT ` + eventColumns + ` FROM events`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, limit, filter.Offset)
	query += fmt.Sprintf(` ORDER BY start_date, start_time, id LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	events, err := r.queryEvents(ctx, query, args...)
	if err != nil {
		telemetry.RecordError(span, err)
	}
	return events, err
}

// ListDueForRelease returns unavailable events whose available-from date has arrived
func (r *EventRepository) ListDueForRelease(ctx context.Context, today time.Time, limit int) ([]*domain.Event, error) {
	return r.queryEvents(ctx, `
		SELECT `+eventColumns+` FROM events
		WHERE status = 'unavailable' AND available_from <= $1
		ORDER BY available_from, id
		LIMIT $2`, today, limit)
}

// ListDueForConclusion returns available events whose start date is before today
func (r *EventRepository) ListDueForConclusion(ctx context.Context, today time.Time, limit int) ([]*domain.Event, error) {
	return r.queryEvents(ctx, `
		SELECT `+eventColumns+` FROM events
		WHERE status = 'available' AND start_date < $1
		ORDER BY start_date, id
		LIMIT $2`, today, limit)
}

// ListReminderCandidates returns available events that still need a reminder
// and start inside the window
func (r *EventRepository) ListReminderCandidates(ctx context.Context, window repository.ReminderWindow, limit int) ([]*domain.Event, error) {
	return r.queryEvents(ctx, `
		SELECT `+eventColumns+` FROM events
		WHERE status = 'available' AND NOT reminder_sent
		  AND (start_date, start_time) >= ($1, $2)
		  AND (start_date, start_time) <= ($3, $4)
		ORDER BY start_date, start_time, id
		LIMIT $5`, window.FromDate, toPgTime(window.FromTime), window.ToDate, toPgTime(window.ToTime), limit)
}

// CompareAndSetStatus moves the event from -> to if it is still in from
func (r *EventRepository) CompareAndSetStatus(ctx context.Context, id string, from, to domain.EventStatus, now time.Time) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.event.cas_status")
	defer span.End()
	span.SetAttributes(
		attribute.String("event_id", id),
		attribute.String("from", string(from)),
		attribute.String("to", string(to)),
	)

	tag, err := conn(ctx, r.pool).Exec(ctx,
		`UPDATE events SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`,
		id, string(from), string(to), now)
	if err != nil {
		telemetry.RecordError(span, err)
		return false, fmt.Errorf("failed to update event status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ClaimReminder sets the reminder flag if it was unset
func (r *EventRepository) ClaimReminder(ctx context.Context, id string, now time.Time) (bool, error) {
	tag, err := conn(ctx, r.pool).Exec(ctx,
		`UPDATE events SET reminder_sent = TRUE, updated_at = $2 WHERE id = $1 AND NOT reminder_sent`,
		id, now)
	if err != nil {
		return false, fmt.Errorf("failed to claim reminder: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *EventRepository) queryEvents(ctx context.Context, query string, args ...any) ([]*domain.Event, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []*domain.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}
	return events, nil
}

func scanEvent(row pgx.Row) (*domain.Event, error) {
	var (
		e                  domain.Event
		session, status    string
		startTime, endTime pgtype.Time
	)
	err := row.Scan(
		&e.ID,
		&e.LocationID,
		&e.ManagerID,
		&e.Name,
		&e.Description,
		&session,
		&e.StartDate,
		&startTime,
		&endTime,
		&e.AvailableFrom,
		&e.TotalSeats,
		&status,
		&e.ReminderSent,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidUUID(err) {
			return nil, domain.ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to scan event: %w", err)
	}
	e.SessionType = domain.SessionType(session)
	e.Status = domain.EventStatus(status)
	e.StartTime = fromPgTime(startTime)
	e.EndTime = fromPgTime(endTime)
	return &e, nil
}

func toPgTime(t domain.TimeOfDay) pgtype.Time {
	return pgtype.Time{Microseconds: t.Duration().Microseconds(), Valid: true}
}

func fromPgTime(t pgtype.Time) domain.TimeOfDay {
	return domain.TimeOfDay(time.Duration(t.Microseconds) * time.Microsecond / time.Minute)
}

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"

	"github.com/MarlyH/CorpsAPI-sub000/internal/domain"
	"github.com/MarlyH/CorpsAPI-sub000/pkg/telemetry"
)

const userColumns = `
	id, email, first_name, last_name, COALESCE(phone_number, ''), date_of_birth,
	attendance_strike_count, date_of_last_strike, created_at, updated_at`

// UserRepository implements repository.UserRepository on PostgreSQL. The
// users table is owned by the account service; only strike columns are
// written here.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return scanUser(conn(ctx, r.pool).QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetForUpdate locks the user row for the surrounding transaction
func (r *UserRepository) GetForUpdate(ctx context.Context, id string) (*domain.User, error) {
	tx := txFromContext(ctx)
	if tx == nil {
		return nil, errTxRequired
	}
	return scanUser(tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id))
}

// UpdateStrikes writes next if the stored strike columns still equal prev
func (r *UserRepository) UpdateStrikes(ctx context.Context, id string, prev, next domain.StrikeState) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.user.update_strikes")
	defer span.End()

	span.SetAttributes(
		attribute.String("user_id", id),
		attribute.Int("from", prev.Count),
		attribute.Int("to", next.Count),
	)

	tag, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE users SET
			attendance_strike_count = $4,
			date_of_last_strike = $5,
			updated_at = NOW()
		WHERE id = $1
		  AND attendance_strike_count = $2
		  AND date_of_last_strike IS NOT DISTINCT FROM $3::date`,
		id, prev.Count, prev.LastStrikeDate, next.Count, next.LastStrikeDate)
	if err != nil {
		telemetry.RecordError(span, err)
		return false, fmt.Errorf("failed to update strikes: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListWithStrikesAtLeast pages users whose strike count is at least min
func (r *UserRepository) ListWithStrikesAtLeast(ctx context.Context, min, limit, offset int) ([]*domain.User, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE attendance_strike_count >= $1
		ORDER BY id
		LIMIT $2 OFFSET $3`, min, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.FirstName,
		&u.LastName,
		&u.PhoneNumber,
		&u.DateOfBirth,
		&u.Strikes.Count,
		&u.Strikes.LastStrikeDate,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &u, nil
}

// ChildRepository implements repository.ChildRepository on PostgreSQL
type ChildRepository struct {
	pool *pgxpool.Pool
}

// NewChildRepository creates a new ChildRepository
func NewChildRepository(pool *pgxpool.Pool) *ChildRepository {
	return &ChildRepository{pool: pool}
}

// GetByID retrieves a child record
func (r *ChildRepository) GetByID(ctx context.Context, id string) (*domain.Child, error) {
	var c domain.Child
	err := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT id::text, parent_user_id, first_name, last_name, date_of_birth,
		       COALESCE(emergency_contact_name, ''), COALESCE(emergency_contact_phone, '')
		FROM children WHERE id = $1`, id).Scan(
		&c.ID,
		&c.ParentUserID,
		&c.FirstName,
		&c.LastName,
		&c.DateOfBirth,
		&c.EmergencyContactName,
		&c.EmergencyContactPhone,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidUUID(err) {
			return nil, domain.ErrChildNotFound
		}
		return nil, fmt.Errorf("failed to get child: %w", err)
	}
	return &c, nil
}

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

const (
	strikeSourceManual     = "manual"
	strikeSourceNoShow     = "no_show"
	strikeSourceAdjustment = "adjustment"

	suspendedPageSize = 100
)

// StrikeLedger owns every write to a user's strike state. Other services
// call it inside their own transactions; each method joins the caller's
// transaction when there is one.
type StrikeLedger struct {
	tx    repository.TxManager
	users repository.UserRepository
	clock clock.Clock
}

// NewStrikeLedger creates a new StrikeLedger
func NewStrikeLedger(tx repository.TxManager, users repository.UserRepository, clk clock.Clock) *StrikeLedger {
	return &StrikeLedger{tx: tx, users: users, clock: clk}
}

// Evaluate reports whether the user is suspended today. When the suspension
// window has lapsed the reset state is persisted and copied into user.
func (l *StrikeLedger) Evaluate(ctx context.Context, user *domain.User) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.strikes.evaluate")
	defer span.End()

	suspended, next, changed := user.Strikes.EvaluateAndMaybeClear(l.clock.Today())
	if !changed {
		return suspended, nil
	}

	ok, err := l.users.UpdateStrikes(ctx, user.ID, user.Strikes, next)
	if err != nil {
		telemetry.RecordError(span, err)
		return false, fmt.Errorf("failed to clear expired suspension: %w", err)
	}
	if !ok {
		// another request changed the ledger first; judge by what it wrote
		fresh, err := l.users.GetByID(ctx, user.ID)
		if err != nil {
			return false, err
		}
		user.Strikes = fresh.Strikes
		return fresh.Strikes.IsSuspended(l.clock.Today()), nil
	}

	logger.FromContext(ctx).Info("suspension expired",
		zap.String("user_id", user.ID),
		zap.Int("previous_count", user.Strikes.Count),
	)
	metrics.RecordSuspensionCleared(ctx)
	user.Strikes = next
	return suspended, nil
}

// AddStrike records one missed session against userID
func (l *StrikeLedger) AddStrike(ctx context.Context, userID, source string) (*domain.User, error) {
	return l.update(ctx, userID, source, func(s domain.StrikeState) (domain.StrikeState, error) {
		return s.AdjustBy(1, l.clock.Today()), nil
	})
}

// AdjustBy changes the count by delta, clamping at zero
func (l *StrikeLedger) AdjustBy(ctx context.Context, userID string, delta int) (*domain.User, error) {
	return l.update(ctx, userID, strikeSourceAdjustment, func(s domain.StrikeState) (domain.StrikeState, error) {
		return s.AdjustBy(delta, l.clock.Today()), nil
	})
}

// SetTo overwrites the count
func (l *StrikeLedger) SetTo(ctx context.Context, userID string, count int) (*domain.User, error) {
	return l.update(ctx, userID, strikeSourceAdjustment, func(s domain.StrikeState) (domain.StrikeState, error) {
		return s.SetTo(count, l.clock.Today())
	})
}

// update locks the user, settles any lapsed suspension, applies change and
// writes the result with a compare-and-set on the locked values.
func (l *StrikeLedger) update(ctx context.Context, userID, source string, change func(domain.StrikeState) (domain.StrikeState, error)) (*domain.User, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.strikes.update")
	defer span.End()

	span.SetAttributes(attribute.String("user_id", userID), attribute.String("source", source))

	var user *domain.User
	err := l.tx.WithTx(ctx, func(ctx context.Context) error {
		u, err := l.users.GetForUpdate(ctx, userID)
		if err != nil {
			return err
		}

		prev := u.Strikes
		_, base, _ := prev.EvaluateAndMaybeClear(l.clock.Today())
		next, err := change(base)
		if err != nil {
			return err
		}

		ok, err := l.users.UpdateStrikes(ctx, userID, prev, next)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("strike ledger for user %s changed while locked", userID)
		}

		if added := next.Count - base.Count; added > 0 {
			metrics.RecordStrikes(ctx, source, added)
		}
		u.Strikes = next
		user = u
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return user, nil
}

// ClearExpired evaluates every user at or above the threshold and persists
// lapsed suspensions. It returns how many were cleared and how many failed.
func (l *StrikeLedger) ClearExpired(ctx context.Context) (cleared, failed int, err error) {
	ctx, span := telemetry.StartSpan(ctx, "service.strikes.clear_expired")
	defer span.End()

	log := logger.FromContext(ctx)
	offset := 0
	for {
		users, err := l.users.ListWithStrikesAtLeast(ctx, domain.SuspensionThreshold, suspendedPageSize, offset)
		if err != nil {
			telemetry.RecordError(span, err)
			return cleared, failed, err
		}

		for _, u := range users {
			before := u.Strikes.Count
			if _, err := l.Evaluate(ctx, u); err != nil {
				failed++
				offset++
				log.Error("failed to evaluate suspension", zap.String("user_id", u.ID), zap.Error(err))
				continue
			}
			if u.Strikes.Count < before {
				// the row left the result set
				cleared++
				continue
			}
			offset++
		}

		if len(users) < suspendedPageSize {
			return cleared, failed, nil
		}
	}
}

// StrikeService defines the staff-facing strike operations
type StrikeService interface {
	// GetStrikes evaluates and returns a user's ledger
	GetStrikes(ctx context.Context, requester domain.Requester, userID string) (*dto.StrikeResponse, error)

	// AdjustStrikes changes a user's count by a signed delta
	AdjustStrikes(ctx context.Context, requester domain.Requester, userID string, req *dto.AdjustStrikesRequest) (*dto.StrikeResponse, error)

	// SetStrikes overwrites a user's count
	SetStrikes(ctx context.Context, requester domain.Requester, userID string, req *dto.SetStrikesRequest) (*dto.StrikeResponse, error)

	// ListSuspended returns users suspended as of today
	ListSuspended(ctx context.Context, requester domain.Requester, limit, offset int) ([]*dto.StrikeResponse, error)
}

// strikeService implements StrikeService
type strikeService struct {
	ledger *StrikeLedger
	users  repository.UserRepository
	clock  clock.Clock
}

// NewStrikeService creates a new strike service
func NewStrikeService(ledger *StrikeLedger, users repository.UserRepository, clk clock.Clock) StrikeService {
	return &strikeService{ledger: ledger, users: users, clock: clk}
}

// GetStrikes is open to staff and to the user themselves
func (s *strikeService) GetStrikes(ctx context.Context, requester domain.Requester, userID string) (*dto.StrikeResponse, error) {
	if requester.UserID != userID && !requester.IsStaff() {
		return nil, domain.ErrForbidden
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	suspended, err := s.ledger.Evaluate(ctx, user)
	if err != nil {
		return nil, err
	}
	return dto.StrikesFromDomain(user, user.Strikes, suspended), nil
}

// AdjustStrikes changes a user's count by a signed delta
func (s *strikeService) AdjustStrikes(ctx context.Context, requester domain.Requester, userID string, req *dto.AdjustStrikesRequest) (*dto.StrikeResponse, error) {
	if !requester.IsStaff() {
		return nil, domain.ErrForbidden
	}

	user, err := s.ledger.AdjustBy(ctx, userID, req.Delta)
	if err != nil {
		return nil, err
	}
	return s.respond(user), nil
}

// SetStrikes overwrites a user's count
func (s *strikeService) SetStrikes(ctx context.Context, requester domain.Requester, userID string, req *dto.SetStrikesRequest) (*dto.StrikeResponse, error) {
	if !requester.IsStaff() {
		return nil, domain.ErrForbidden
	}
	if req.Count == nil {
		return nil, domain.ErrInvalidStrikeCount
	}

	user, err := s.ledger.SetTo(ctx, userID, *req.Count)
	if err != nil {
		return nil, err
	}
	return s.respond(user), nil
}

// ListSuspended pages users at or above the threshold and keeps those still
// suspended after evaluation
func (s *strikeService) ListSuspended(ctx context.Context, requester domain.Requester, limit, offset int) ([]*dto.StrikeResponse, error) {
	if !requester.IsStaff() {
		return nil, domain.ErrForbidden
	}
	if limit <= 0 || limit > suspendedPageSize {
		limit = suspendedPageSize
	}
	if offset < 0 {
		offset = 0
	}

	users, err := s.users.ListWithStrikesAtLeast(ctx, domain.SuspensionThreshold, limit, offset)
	if err != nil {
		return nil, err
	}

	out := make([]*dto.StrikeResponse, 0, len(users))
	for _, u := range users {
		suspended, err := s.ledger.Evaluate(ctx, u)
		if err != nil {
			return nil, err
		}
		if suspended {
			out = append(out, dto.StrikesFromDomain(u, u.Strikes, true))
		}
	}
	return out, nil
}

func (s *strikeService) respond(u *domain.User) *dto.StrikeResponse {
	return dto.StrikesFromDomain(u, u.Strikes, u.Strikes.IsSuspended(s.clock.Today()))
}

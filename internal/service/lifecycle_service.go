package service

import (
	"context"
	"fmt"
	"sort"
	"time"

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

// Sweep names
const (
	SweepRelease     = "release"
	SweepConclude    = "conclude"
	SweepReminders   = "reminders"
	SweepSuspensions = "suspensions"
)

// LifecycleService runs the scheduled sweeps. Each sweep re-checks every
// row before changing it, so overlapping or repeated runs are harmless.
type LifecycleService interface {
	// RunSweep runs one sweep by name
	RunSweep(ctx context.Context, name string) (*dto.SweepResult, error)
}

// LifecycleConfig contains configuration for the sweeps
type LifecycleConfig struct {
	BatchSize    int
	ReminderLead time.Duration
}

// lifecycleService implements LifecycleService
type lifecycleService struct {
	tx       repository.TxManager
	events   repository.EventRepository
	bookings repository.BookingRepository
	ledger   *StrikeLedger
	notifier Notifier
	clock    clock.Clock
	cfg      LifecycleConfig
}

// NewLifecycleService creates a new lifecycle service
func NewLifecycleService(store *repository.Store, ledger *StrikeLedger, notifier Notifier, clk clock.Clock, cfg *LifecycleConfig) LifecycleService {
	c := LifecycleConfig{BatchSize: 100, ReminderLead: 24 * time.Hour}
	if cfg != nil {
		if cfg.BatchSize > 0 {
			c.BatchSize = cfg.BatchSize
		}
		if cfg.ReminderLead > 0 {
			c.ReminderLead = cfg.ReminderLead
		}
	}
	return &lifecycleService{
		tx:       store.Tx,
		events:   store.Events,
		bookings: store.Bookings,
		ledger:   ledger,
		notifier: notifier,
		clock:    clk,
		cfg:      c,
	}
}

// RunSweep runs one sweep by name and records its outcome
func (s *lifecycleService) RunSweep(ctx context.Context, name string) (*dto.SweepResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.lifecycle."+name)
	defer span.End()

	start := time.Now()
	var (
		res *dto.SweepResult
		err error
	)
	switch name {
	case SweepRelease:
		res, err = s.releaseDue(ctx)
	case SweepConclude:
		res, err = s.concludeDue(ctx)
	case SweepReminders:
		res, err = s.sendReminders(ctx)
	case SweepSuspensions:
		res, err = s.clearExpiredSuspensions(ctx)
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownSweep, name)
	}
	if err != nil {
		telemetry.RecordError(span, err)
		return res, err
	}

	span.SetAttributes(
		attribute.Int("processed", res.Processed),
		attribute.Int("skipped", res.Skipped),
		attribute.Int("failed", res.Failed),
	)
	metrics.RecordSweep(ctx, name, res.Failed, time.Since(start).Seconds())
	logger.FromContext(ctx).Info("sweep finished",
		zap.String("sweep", name),
		zap.Int("processed", res.Processed),
		zap.Int("skipped", res.Skipped),
		zap.Int("failed", res.Failed),
		zap.Duration("duration", time.Since(start)),
	)
	return res, nil
}

// releaseDue opens Unavailable events whose available-from date has arrived
func (s *lifecycleService) releaseDue(ctx context.Context) (*dto.SweepResult, error) {
	res := &dto.SweepResult{Sweep: SweepRelease}
	log := logger.FromContext(ctx)
	today := s.clock.Today()

	for {
		events, err := s.events.ListDueForRelease(ctx, today, s.cfg.BatchSize)
		if err != nil {
			return res, err
		}

		progressed := 0
		for _, e := range events {
			ok, err := s.events.CompareAndSetStatus(ctx, e.ID, domain.EventStatusUnavailable, domain.EventStatusAvailable, s.clock.Now())
			switch {
			case err != nil:
				res.Failed++
				log.Error("failed to release event", zap.String("event_id", e.ID), zap.Error(err))
			case !ok:
				res.Skipped++
			default:
				res.Processed++
				progressed++
			}
		}

		if len(events) < s.cfg.BatchSize || progressed == 0 {
			return res, nil
		}
	}
}

// concludeDue closes Available events whose start date has passed and adds
// one strike to each distinct user still holding a Booked booking
func (s *lifecycleService) concludeDue(ctx context.Context) (*dto.SweepResult, error) {
	res := &dto.SweepResult{Sweep: SweepConclude}
	log := logger.FromContext(ctx)

	for {
		events, err := s.events.ListDueForConclusion(ctx, s.clock.Today(), s.cfg.BatchSize)
		if err != nil {
			return res, err
		}

		progressed := 0
		for _, e := range events {
			done, err := s.concludeOne(ctx, e.ID)
			switch {
			case err != nil:
				res.Failed++
				log.Error("failed to conclude event", zap.String("event_id", e.ID), zap.Error(err))
			case !done:
				res.Skipped++
			default:
				res.Processed++
				progressed++
			}
		}

		if len(events) < s.cfg.BatchSize || progressed == 0 {
			return res, nil
		}
	}
}

func (s *lifecycleService) concludeOne(ctx context.Context, eventID string) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.lifecycle.conclude_event")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", eventID))

	var (
		done    bool
		noShows []string
	)
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		event, err := s.events.GetForUpdate(ctx, eventID)
		if err != nil {
			return err
		}
		if !event.DueForConclusion(s.clock.Today()) {
			return nil
		}

		ok, err := s.events.CompareAndSetStatus(ctx, eventID, domain.EventStatusAvailable, domain.EventStatusConcluded, s.clock.Now())
		if err != nil || !ok {
			return err
		}

		booked, err := s.bookings.ListByEvent(ctx, eventID, domain.BookingStatusBooked)
		if err != nil {
			return err
		}
		noShows = distinctUsers(booked)
		sort.Strings(noShows)

		for _, userID := range noShows {
			if _, err := s.ledger.AddStrike(ctx, userID, strikeSourceNoShow); err != nil {
				return fmt.Errorf("failed to strike user %s: %w", userID, err)
			}
		}
		done = true
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return false, err
	}

	if done && len(noShows) > 0 {
		logger.FromContext(ctx).Info("no-show strikes added",
			zap.String("event_id", eventID),
			zap.Int("users", len(noShows)),
		)
	}
	return done, nil
}

// sendReminders notifies booked users of events starting within the
// reminder lead. The reminder flag is claimed first so each event is
// announced once.
func (s *lifecycleService) sendReminders(ctx context.Context) (*dto.SweepResult, error) {
	res := &dto.SweepResult{Sweep: SweepReminders}
	log := logger.FromContext(ctx)

	now := s.clock.Now()
	loc := s.clock.Location()
	horizon := now.Add(s.cfg.ReminderLead)
	from := now.Truncate(time.Minute)
	if from.Before(now) {
		from = from.Add(time.Minute)
	}
	window := repository.ReminderWindow{
		FromDate: clock.DateOf(from, loc),
		FromTime: minuteOf(from.In(loc)),
		ToDate:   clock.DateOf(horizon, loc),
		ToTime:   minuteOf(horizon.In(loc)),
	}

	for {
		events, err := s.events.ListReminderCandidates(ctx, window, s.cfg.BatchSize)
		if err != nil {
			return res, err
		}

		progressed := 0
		for _, e := range events {
			startsAt := e.StartsAt(loc)
			if startsAt.Before(now) || startsAt.After(horizon) {
				res.Skipped++
				continue
			}

			sent, err := s.remindOne(ctx, e, startsAt)
			switch {
			case err != nil:
				res.Failed++
				log.Error("failed to send event reminder", zap.String("event_id", e.ID), zap.Error(err))
			case !sent:
				res.Skipped++
			default:
				res.Processed++
				progressed++
			}
		}

		if len(events) < s.cfg.BatchSize || progressed == 0 {
			return res, nil
		}
	}
}

func (s *lifecycleService) remindOne(ctx context.Context, event *domain.Event, startsAt time.Time) (bool, error) {
	var claimed bool
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		claimed, err = s.events.ClaimReminder(ctx, event.ID, s.clock.Now())
		if err != nil || !claimed {
			return err
		}

		live, err := s.bookings.ListByEvent(ctx, event.ID, domain.BookingStatusBooked, domain.BookingStatusCheckedIn)
		if err != nil {
			return err
		}

		body := fmt.Sprintf("%s starts at %s.", event.Name, startsAt.Format("Mon 2 Jan 15:04"))
		for _, userID := range distinctUsers(live) {
			s.notifier.Notify(ctx, userID, "Event reminder", body)
		}
		return nil
	})
	return claimed, err
}

// clearExpiredSuspensions resets users whose suspension window has lapsed
func (s *lifecycleService) clearExpiredSuspensions(ctx context.Context) (*dto.SweepResult, error) {
	cleared, failed, err := s.ledger.ClearExpired(ctx)
	return &dto.SweepResult{Sweep: SweepSuspensions, Processed: cleared, Failed: failed}, err
}

// minuteOf is the wall-clock minute of t
func minuteOf(t time.Time) domain.TimeOfDay {
	return domain.TimeOfDay(t.Hour()*60 + t.Minute())
}

// distinctUsers returns each non-empty booking user once, in booking order
func distinctUsers(bookings []*domain.Booking) []string {
	seen := make(map[string]bool, len(bookings))
	var out []string
	for _, b := range bookings {
		if b.UserID == "" || seen[b.UserID] {
			continue
		}
		seen[b.UserID] = true
		out = append(out, b.UserID)
	}
	return out
}

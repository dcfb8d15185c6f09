package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/MarlyH/CorpsAPI-sub000/internal/dto"
	"github.com/MarlyH/CorpsAPI-sub000/internal/service"
	"github.com/MarlyH/CorpsAPI-sub000/pkg/logger"
)

// SweepRunner runs one named lifecycle sweep
type SweepRunner interface {
	RunSweep(ctx context.Context, name string) (*dto.SweepResult, error)
}

// SchedulerConfig sets how often each sweep runs
type SchedulerConfig struct {
	ReleaseInterval  time.Duration
	ReminderInterval time.Duration
	// DailyInterval drives conclusion and suspension clearing
	DailyInterval time.Duration
	// RunOnStart runs every sweep once before the first tick
	RunOnStart bool
}

// DefaultSchedulerConfig returns default configuration
func DefaultSchedulerConfig() *SchedulerConfig {
	return &SchedulerConfig{
		ReleaseInterval:  time.Minute,
		ReminderInterval: 30 * time.Minute,
		DailyInterval:    24 * time.Hour,
		RunOnStart:       true,
	}
}

// SchedulerStats counts sweep runs since start
type SchedulerStats struct {
	Runs     int64
	Failures int64
}

// Scheduler drives the lifecycle sweeps on independent tickers. A slow
// sweep only delays its own next run.
type Scheduler struct {
	runner  SweepRunner
	config  *SchedulerConfig
	log     *logger.Logger
	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool

	runs     atomic.Int64
	failures atomic.Int64
}

// NewScheduler creates a new scheduler
func NewScheduler(runner SweepRunner, config *SchedulerConfig) *Scheduler {
	defaults := DefaultSchedulerConfig()
	if config == nil {
		config = defaults
	}
	if config.ReleaseInterval <= 0 {
		config.ReleaseInterval = defaults.ReleaseInterval
	}
	if config.ReminderInterval <= 0 {
		config.ReminderInterval = defaults.ReminderInterval
	}
	if config.DailyInterval <= 0 {
		config.DailyInterval = defaults.DailyInterval
	}

	return &Scheduler{
		runner: runner,
		config: config,
		log:    logger.Get(),
		stopCh: make(chan struct{}),
	}
}

// Start starts one loop per sweep
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.running = true
	s.mu.Unlock()

	s.log.Info("starting lifecycle scheduler",
		zap.Duration("release_interval", s.config.ReleaseInterval),
		zap.Duration("reminder_interval", s.config.ReminderInterval),
		zap.Duration("daily_interval", s.config.DailyInterval),
	)

	schedule := map[string]time.Duration{
		service.SweepRelease:     s.config.ReleaseInterval,
		service.SweepReminders:   s.config.ReminderInterval,
		service.SweepConclude:    s.config.DailyInterval,
		service.SweepSuspensions: s.config.DailyInterval,
	}
	for name, every := range schedule {
		s.wg.Add(1)
		go s.loop(ctx, name, every)
	}
	return nil
}

// Stop stops all loops and waits for running sweeps to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	s.log.Info("stopping lifecycle scheduler")
	close(s.stopCh)
	s.wg.Wait()
	s.log.Info("lifecycle scheduler stopped")
}

// GetStats returns run counters
func (s *Scheduler) GetStats() SchedulerStats {
	return SchedulerStats{
		Runs:     s.runs.Load(),
		Failures: s.failures.Load(),
	}
}

func (s *Scheduler) loop(ctx context.Context, name string, every time.Duration) {
	defer s.wg.Done()

	if s.config.RunOnStart {
		s.run(ctx, name)
	}

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.run(ctx, name)
		}
	}
}

func (s *Scheduler) run(ctx context.Context, name string) {
	s.runs.Add(1)
	if _, err := s.runner.RunSweep(ctx, name); err != nil {
		s.failures.Add(1)
		s.log.Error("sweep failed", zap.String("sweep", name), zap.Error(err))
	}
}

package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/MarlyH/CorpsAPI-sub000/internal/clock"
	"github.com/MarlyH/CorpsAPI-sub000/internal/domain"
	"github.com/MarlyH/CorpsAPI-sub000/internal/metrics"
	"github.com/MarlyH/CorpsAPI-sub000/internal/repository"
	"github.com/MarlyH/CorpsAPI-sub000/pkg/kafka"
	"github.com/MarlyH/CorpsAPI-sub000/pkg/logger"
	"github.com/MarlyH/CorpsAPI-sub000/pkg/telemetry"
)

// ErrAlreadyRunning is returned by Start on a running worker
var ErrAlreadyRunning = errors.New("worker already running")

// Publisher delivers one record to the broker
type Publisher interface {
	Produce(ctx context.Context, msg *kafka.Message) error
}

// OutboxWorkerConfig contains configuration for the outbox worker
type OutboxWorkerConfig struct {
	// PollInterval is the interval between polling for pending messages
	PollInterval time.Duration
	// BatchSize is the number of messages to fetch in each poll
	BatchSize int
	// MaxAttempts stops redelivery of a message after this many failures
	MaxAttempts int
	// CleanupInterval is the interval between cleanup of old published messages
	CleanupInterval time.Duration
	// Retention is how long published messages are kept
	Retention time.Duration
}

// DefaultOutboxWorkerConfig returns default configuration
func DefaultOutboxWorkerConfig() *OutboxWorkerConfig {
	return &OutboxWorkerConfig{
		PollInterval:    time.Second,
		BatchSize:       100,
		MaxAttempts:     5,
		CleanupInterval: time.Hour,
		Retention:       7 * 24 * time.Hour,
	}
}

// OutboxWorker relays queued notifications to Kafka. Delivery is at least
// once: a message is marked published only after the broker acknowledged it.
type OutboxWorker struct {
	tx        repository.TxManager
	outbox    repository.OutboxRepository
	publisher Publisher
	clock     clock.Clock
	config    *OutboxWorkerConfig
	log       *logger.Logger
	stopCh    chan struct{}
	wg        sync.WaitGroup
	mu        sync.Mutex
	running   bool
}

// NewOutboxWorker creates a new outbox worker
func NewOutboxWorker(
	tx repository.TxManager,
	outbox repository.OutboxRepository,
	publisher Publisher,
	clk clock.Clock,
	config *OutboxWorkerConfig,
) *OutboxWorker {
	defaults := DefaultOutboxWorkerConfig()
	if config == nil {
		config = defaults
	}
	if config.PollInterval <= 0 {
		config.PollInterval = defaults.PollInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = defaults.MaxAttempts
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = defaults.CleanupInterval
	}
	if config.Retention <= 0 {
		config.Retention = defaults.Retention
	}

	return &OutboxWorker{
		tx:        tx,
		outbox:    outbox,
		publisher: publisher,
		clock:     clk,
		config:    config,
		log:       logger.Get(),
		stopCh:    make(chan struct{}),
	}
}

// Start starts the outbox worker
func (w *OutboxWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return ErrAlreadyRunning
	}
	w.running = true
	w.mu.Unlock()

	w.log.Info("starting outbox worker",
		zap.Duration("poll_interval", w.config.PollInterval),
		zap.Int("batch_size", w.config.BatchSize),
	)

	w.wg.Add(2)
	go w.loop(ctx, w.config.PollInterval, func(ctx context.Context) {
		if _, err := w.ProcessPending(ctx); err != nil {
			w.log.Error("failed to relay outbox", zap.Error(err))
		}
	})
	go w.loop(ctx, w.config.CleanupInterval, w.cleanup)

	return nil
}

// Stop stops the outbox worker and waits for the current batch
func (w *OutboxWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	w.log.Info("stopping outbox worker")
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("outbox worker stopped")
}

// IsRunning reports whether the worker loops are active
func (w *OutboxWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *OutboxWorker) loop(ctx context.Context, every time.Duration, fn func(context.Context)) {
	defer w.wg.Done()

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}

// ProcessPending publishes one batch. The batch is claimed inside a
// transaction so concurrent relays never pick the same rows. It returns the
// number of messages the broker accepted.
func (w *OutboxWorker) ProcessPending(ctx context.Context) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "worker.outbox.process_pending")
	defer span.End()

	published := 0
	err := w.tx.WithTx(ctx, func(ctx context.Context) error {
		published = 0
		messages, err := w.outbox.GetPending(ctx, w.config.BatchSize, w.config.MaxAttempts)
		if err != nil {
			return err
		}

		for _, msg := range messages {
			if err := w.publish(ctx, msg); err != nil {
				metrics.RecordOutboxDelivery(ctx, msg.Topic, false)
				w.log.Warn("failed to publish outbox message",
					zap.String("message_id", msg.ID),
					zap.String("topic", msg.Topic),
					zap.Int("attempt", msg.Attempts+1),
					zap.Int("max_attempts", w.config.MaxAttempts),
					zap.Error(err),
				)
				if err := w.outbox.MarkAsFailed(ctx, msg.ID, err.Error()); err != nil {
					return err
				}
				continue
			}

			metrics.RecordOutboxDelivery(ctx, msg.Topic, true)
			if err := w.outbox.MarkAsPublished(ctx, msg.ID, w.clock.Now()); err != nil {
				return err
			}
			published++
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return 0, err
	}
	return published, nil
}

func (w *OutboxWorker) publish(ctx context.Context, msg *domain.OutboxMessage) error {
	return w.publisher.Produce(ctx, &kafka.Message{
		Topic: msg.Topic,
		Key:   []byte(msg.Key),
		Value: msg.Payload,
		Headers: map[string]string{
			"message_id":   msg.ID,
			"channel":      string(msg.Channel),
			"content_type": "application/json",
			"source":       "outbox-worker",
		},
		Timestamp: msg.CreatedAt,
	})
}

// cleanup deletes published messages past the retention window
func (w *OutboxWorker) cleanup(ctx context.Context) {
	cutoff := w.clock.Now().Add(-w.config.Retention)
	deleted, err := w.outbox.DeletePublished(ctx, cutoff)
	if err != nil {
		w.log.Error("failed to clean up outbox", zap.Error(err))
		return
	}
	if deleted > 0 {
		w.log.Info("cleaned up published outbox messages", zap.Int64("deleted", deleted))
	}
}

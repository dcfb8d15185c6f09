// Package app wires infrastructure for the API server and the lifecycle worker.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/MarlyH/CorpsAPI-sub000/internal/clock"
	"github.com/MarlyH/CorpsAPI-sub000/internal/di"
	"github.com/MarlyH/CorpsAPI-sub000/internal/metrics"
	"github.com/MarlyH/CorpsAPI-sub000/internal/repository"
	"github.com/MarlyH/CorpsAPI-sub000/internal/repository/memory"
	"github.com/MarlyH/CorpsAPI-sub000/internal/repository/postgres"
	"github.com/MarlyH/CorpsAPI-sub000/internal/worker"
	"github.com/MarlyH/CorpsAPI-sub000/migrations"
	"github.com/MarlyH/CorpsAPI-sub000/pkg/config"
	"github.com/MarlyH/CorpsAPI-sub000/pkg/database"
	"github.com/MarlyH/CorpsAPI-sub000/pkg/kafka"
	"github.com/MarlyH/CorpsAPI-sub000/pkg/logger"
	pkgredis "github.com/MarlyH/CorpsAPI-sub000/pkg/redis"
	"github.com/MarlyH/CorpsAPI-sub000/pkg/telemetry"
)

// Runtime is a fully wired process. Close releases every connection it opened.
type Runtime struct {
	Config    *config.Config
	Log       *logger.Logger
	Container *di.Container

	closers []func()
}

// Close releases resources in reverse order of acquisition
func (r *Runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
}

// Options selects the optional infrastructure a process needs
type Options struct {
	ServiceName string
	// WithRedis connects Redis for idempotency and readiness
	WithRedis bool
}

// Bootstrap initializes logging, tracing, storage and messaging, then builds
// the container. Redis and Kafka are optional: their absence disables
// idempotency or the outbox relay with a warning.
func Bootstrap(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	log, err := logger.Init(&logger.Config{
		Level:       cfg.Log.Level,
		ServiceName: opts.ServiceName,
		Development: cfg.Log.Development,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	rt := &Runtime{Config: cfg, Log: log}
	rt.closers = append(rt.closers, func() { _ = logger.Sync() })

	if err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    opts.ServiceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
		SampleRatio:    cfg.OTel.SampleRatio,
	}); err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	rt.closers = append(rt.closers, func() { _ = telemetry.Shutdown(context.Background()) })
	metrics.Init()

	loc, err := cfg.Venue.Location()
	if err != nil {
		rt.Close()
		return nil, err
	}

	var (
		db    *database.PostgresDB
		store *repository.Store
	)
	switch cfg.App.Storage {
	case "memory":
		log.Warn("using in-memory storage; data is lost on restart")
		store = memory.NewStore().Repositories()
	default:
		db, err = database.NewPostgres(ctx, database.FromConfig(&cfg.Database, cfg.OTel.Enabled))
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("database connection failed: %w", err)
		}
		rt.closers = append(rt.closers, db.Close)

		if cfg.Database.RunMigrations {
			if err := migrations.Apply(ctx, db.Pool()); err != nil {
				rt.Close()
				return nil, fmt.Errorf("migrations failed: %w", err)
			}
		}
		store = postgres.NewStore(db.Pool())
	}

	var redisClient *pkgredis.Client
	if opts.WithRedis {
		redisClient, err = pkgredis.NewClient(ctx, pkgredis.FromConfig(&cfg.Redis))
		if err != nil {
			log.Warn("redis unavailable, idempotency keys disabled", zap.Error(err))
			redisClient = nil
		} else {
			rt.closers = append(rt.closers, func() { _ = redisClient.Close() })
		}
	}

	var publisher worker.Publisher
	if cfg.Outbox.Enabled {
		producer, err := kafka.NewProducer(ctx, &kafka.ProducerConfig{
			Brokers:         cfg.Kafka.Brokers,
			ClientID:        cfg.Kafka.ClientID,
			ConnectAttempts: 3,
		})
		if err != nil {
			log.Warn("kafka unavailable, notifications stay queued in the outbox", zap.Error(err))
		} else {
			rt.closers = append(rt.closers, producer.Close)
			publisher = producer
		}
	}

	rt.Container = di.NewContainer(&di.ContainerConfig{
		DB:        db,
		Redis:     redisClient,
		Store:     store,
		Clock:     clock.NewSystem(loc),
		Publisher: publisher,
		Kafka:     cfg.Kafka,
		Scheduler: cfg.Scheduler,
		Outbox:    cfg.Outbox,
	})
	return rt, nil
}

// RunWorkers starts the scheduler (when enabled) and the outbox relay (when
// wired), blocks until ctx is done, then stops them.
func (r *Runtime) RunWorkers(ctx context.Context) error {
	c := r.Container

	if r.Config.Scheduler.Enabled {
		if err := c.Scheduler.Start(ctx); err != nil {
			return err
		}
		defer c.Scheduler.Stop()
	}
	if c.OutboxWorker != nil {
		if err := c.OutboxWorker.Start(ctx); err != nil {
			return err
		}
		defer c.OutboxWorker.Stop()
	}

	<-ctx.Done()
	return nil
}

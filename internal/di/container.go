package di

import (
	"github.com/MarlyH/CorpsAPI-sub000/internal/clock"
	"github.com/MarlyH/CorpsAPI-sub000/internal/handler"
	"github.com/MarlyH/CorpsAPI-sub000/internal/repository"
	"github.com/MarlyH/CorpsAPI-sub000/internal/service"
	"github.com/MarlyH/CorpsAPI-sub000/internal/worker"
	"github.com/MarlyH/CorpsAPI-sub000/pkg/config"
	"github.com/MarlyH/CorpsAPI-sub000/pkg/database"
	"github.com/MarlyH/CorpsAPI-sub000/pkg/redis"
)

// Container holds all dependencies for the booking engine
type Container struct {
	// Infrastructure
	DB    *database.PostgresDB
	Redis *redis.Client
	Store *repository.Store
	Clock clock.Clock

	// Services
	Notifier         service.Notifier
	StrikeLedger     *service.StrikeLedger
	Waitlist         *service.WaitlistManager
	BookingService   service.BookingService
	EventService     service.EventService
	StrikeService    service.StrikeService
	LifecycleService service.LifecycleService

	// Workers; OutboxWorker is nil without a publisher
	Scheduler    *worker.Scheduler
	OutboxWorker *worker.OutboxWorker

	// Handlers
	Handlers *handler.Handlers
}

// ContainerConfig contains configuration for building the container
type ContainerConfig struct {
	DB        *database.PostgresDB
	Redis     *redis.Client
	Store     *repository.Store
	Clock     clock.Clock
	Publisher worker.Publisher

	Kafka     config.KafkaConfig
	Scheduler config.SchedulerConfig
	Outbox    config.OutboxConfig
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *ContainerConfig) *Container {
	c := &Container{
		DB:    cfg.DB,
		Redis: cfg.Redis,
		Store: cfg.Store,
		Clock: cfg.Clock,
	}
	store := cfg.Store

	// Initialize services
	c.Notifier = service.NewOutboxNotifier(store.Outbox, c.Clock, service.NotifierConfig{
		PushTopic:  cfg.Kafka.PushTopic,
		EmailTopic: cfg.Kafka.EmailTopic,
	})
	c.StrikeLedger = service.NewStrikeLedger(store.Tx, store.Users, c.Clock)
	c.Waitlist = service.NewWaitlistManager(store, c.Notifier, c.Clock)
	allocator := service.NewSeatAllocator(store.Bookings, c.Clock)

	c.BookingService = service.NewBookingService(store, allocator, c.StrikeLedger, c.Waitlist, c.Notifier, c.Clock)
	c.EventService = service.NewEventService(store, c.Notifier, c.Clock)
	c.StrikeService = service.NewStrikeService(c.StrikeLedger, store.Users, c.Clock)
	c.LifecycleService = service.NewLifecycleService(store, c.StrikeLedger, c.Notifier, c.Clock, &service.LifecycleConfig{
		BatchSize:    cfg.Scheduler.BatchSize,
		ReminderLead: cfg.Scheduler.ReminderLead,
	})

	// Initialize workers
	c.Scheduler = worker.NewScheduler(c.LifecycleService, &worker.SchedulerConfig{
		ReleaseInterval:  cfg.Scheduler.ReleaseInterval,
		ReminderInterval: cfg.Scheduler.ReminderInterval,
		DailyInterval:    cfg.Scheduler.DailyInterval,
		RunOnStart:       true,
	})
	if cfg.Publisher != nil {
		c.OutboxWorker = worker.NewOutboxWorker(store.Tx, store.Outbox, cfg.Publisher, c.Clock, &worker.OutboxWorkerConfig{
			PollInterval: cfg.Outbox.PollInterval,
			BatchSize:    cfg.Outbox.BatchSize,
			MaxAttempts:  cfg.Outbox.MaxAttempts,
		})
	}

	// Initialize handlers
	checkers := map[string]handler.HealthChecker{"database": nil, "redis": nil}
	if c.DB != nil {
		checkers["database"] = c.DB
	}
	if c.Redis != nil {
		checkers["redis"] = c.Redis
	}
	c.Handlers = &handler.Handlers{
		Health:   handler.NewHealthHandler(checkers),
		Booking:  handler.NewBookingHandler(c.BookingService),
		Event:    handler.NewEventHandler(c.EventService),
		Waitlist: handler.NewWaitlistHandler(c.Waitlist),
		Strike:   handler.NewStrikeHandler(c.StrikeService),
		Admin:    handler.NewAdminHandler(c.LifecycleService),
	}

	return c
}

package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/MarlyH/CorpsAPI-sub000/internal/domain"
	"github.com/MarlyH/CorpsAPI-sub000/pkg/logger"
	"github.com/MarlyH/CorpsAPI-sub000/pkg/middleware"
	"github.com/MarlyH/CorpsAPI-sub000/pkg/telemetry"
)

// Handlers groups every HTTP handler the router mounts
type Handlers struct {
	Health   *HealthHandler
	Booking  *BookingHandler
	Event    *EventHandler
	Waitlist *WaitlistHandler
	Strike   *StrikeHandler
	Admin    *AdminHandler
}

// RouterConfig configures cross-cutting middleware
type RouterConfig struct {
	Auth middleware.AuthConfig
	// Idempotency is skipped when Redis is nil
	Redis          middleware.RedisClient
	IdempotencyTTL time.Duration
	Tracing        bool
}

// NewRouter mounts the API under /api/v1
func NewRouter(h *Handlers, cfg RouterConfig, log *logger.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	if cfg.Tracing {
		router.Use(telemetry.TracingMiddleware())
	}
	router.Use(middleware.RequestLogger(log))

	router.GET("/health", h.Health.Health)
	router.GET("/ready", h.Health.Ready)

	idempotent := func(c *gin.Context) { c.Next() }
	if cfg.Redis != nil {
		idempotent = middleware.Idempotency(middleware.IdempotencyConfig{
			Redis: cfg.Redis,
			TTL:   cfg.IdempotencyTTL,
		})
	}

	staffOnly := middleware.RequireRoles(string(domain.RoleStaff), string(domain.RoleManager), string(domain.RoleAdmin))
	managerOnly := middleware.RequireRoles(string(domain.RoleManager), string(domain.RoleAdmin))
	adminOnly := middleware.RequireRoles(string(domain.RoleAdmin))

	v1 := router.Group("/api/v1")
	v1.Use(middleware.JWTAuth(cfg.Auth))
	{
		bookings := v1.Group("/bookings")
		{
			bookings.POST("", idempotent, h.Booking.CreateBooking)
			bookings.GET("", h.Booking.ListMyBookings)
			bookings.GET("/token/:token", staffOnly, h.Booking.LookupByToken)
			bookings.GET("/:id", h.Booking.GetBooking)
			bookings.POST("/:id/cancel", h.Booking.CancelBooking)
			bookings.PATCH("/:id/status", staffOnly, h.Booking.AdvanceStatus)
		}

		events := v1.Group("/events")
		{
			events.POST("", managerOnly, h.Event.Create)
			events.GET("", h.Event.List)
			events.GET("/:id", h.Event.Get)
			events.GET("/:id/seats", h.Event.Seats)
			events.POST("/:id/cancel", staffOnly, h.Event.Cancel)
			events.POST("/:id/walk-ins", staffOnly, idempotent, h.Booking.ReserveForWalkIn)
			events.POST("/:id/waitlist", h.Waitlist.Join)
			events.DELETE("/:id/waitlist", h.Waitlist.Leave)
		}

		v1.GET("/waitlist", h.Waitlist.ListMine)

		users := v1.Group("/users")
		{
			users.GET("/suspended", staffOnly, h.Strike.ListSuspended)
			// owners may read their own ledger; the service enforces it
			users.GET("/:id/strikes", h.Strike.Get)
			users.POST("/:id/strikes/adjust", staffOnly, h.Strike.Adjust)
			users.PUT("/:id/strikes", staffOnly, h.Strike.Set)
		}

		v1.POST("/admin/sweeps/:name", adminOnly, h.Admin.RunSweep)
	}

	return router
}

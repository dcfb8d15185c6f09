package handler

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/MarlyH/CorpsAPI-sub000/internal/dto"
	"github.com/MarlyH/CorpsAPI-sub000/internal/service"
	"github.com/MarlyH/CorpsAPI-sub000/pkg/response"
	"github.com/MarlyH/CorpsAPI-sub000/pkg/telemetry"
)

// EventHandler handles event HTTP requests
type EventHandler struct {
	eventService service.EventService
}

// NewEventHandler creates a new event handler
func NewEventHandler(eventService service.EventService) *EventHandler {
	return &EventHandler{eventService: eventService}
}

// Create handles POST /events
func (h *EventHandler) Create(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.event.create")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	requester, ok := mustRequester(c, span)
	if !ok {
		return
	}

	var req dto.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, span, err)
		return
	}

	result, err := h.eventService.CreateEvent(ctx, requester, &req)
	if err != nil {
		fail(c, span, err)
		return
	}

	span.SetAttributes(attribute.String("event_id", result.ID))
	span.SetStatus(codes.Ok, "")
	response.Created(c, result)
}

// List handles GET /events
func (h *EventHandler) List(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.event.list")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var query dto.ListEventsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		bindError(c, span, err)
		return
	}

	result, err := h.eventService.ListEvents(ctx, &query)
	if err != nil {
		fail(c, span, err)
		return
	}

	span.SetAttributes(attribute.Int("count", len(result)))
	span.SetStatus(codes.Ok, "")
	response.OK(c, result)
}

// Get handles GET /events/:id
func (h *EventHandler) Get(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.event.get")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	eventID := c.Param("id")
	span.SetAttributes(attribute.String("event_id", eventID))

	result, err := h.eventService.GetEvent(ctx, eventID)
	if err != nil {
		fail(c, span, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.OK(c, result)
}

// Seats handles GET /events/:id/seats
func (h *EventHandler) Seats(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.event.seats")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	result, err := h.eventService.GetSeats(ctx, c.Param("id"))
	if err != nil {
		fail(c, span, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.OK(c, result)
}

// Cancel handles POST /events/:id/cancel
func (h *EventHandler) Cancel(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.event.cancel")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	requester, ok := mustRequester(c, span)
	if !ok {
		return
	}

	eventID := c.Param("id")
	span.SetAttributes(attribute.String("event_id", eventID))

	result, err := h.eventService.CancelEvent(ctx, requester, eventID)
	if err != nil {
		fail(c, span, err)
		return
	}

	span.SetAttributes(attribute.Int("bookings_cancelled", result.BookingsCancelled))
	span.SetStatus(codes.Ok, "")
	response.OK(c, result)
}

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

// BookingHandler handles booking HTTP requests
type BookingHandler struct {
	bookingService service.BookingService
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(bookingService service.BookingService) *BookingHandler {
	return &BookingHandler{bookingService: bookingService}
}

// CreateBooking handles POST /bookings
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.create")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	requester, ok := mustRequester(c, span)
	if !ok {
		return
	}

	var req dto.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, span, err)
		return
	}

	span.SetAttributes(
		attribute.String("user_id", requester.UserID),
		attribute.String("event_id", req.EventID),
		attribute.Int("seat_number", req.SeatNumber),
		attribute.Bool("is_for_child", req.IsForChild),
	)

	result, err := h.bookingService.CreateBooking(ctx, requester, &req)
	if err != nil {
		fail(c, span, err)
		return
	}

	span.SetAttributes(attribute.String("booking_id", result.BookingID))
	span.SetStatus(codes.Ok, "")
	response.Created(c, result)
}

// ReserveForWalkIn handles POST /events/:id/walk-ins
func (h *BookingHandler) ReserveForWalkIn(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.walk_in")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	requester, ok := mustRequester(c, span)
	if !ok {
		return
	}

	var req dto.WalkInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, span, err)
		return
	}

	eventID := c.Param("id")
	span.SetAttributes(
		attribute.String("event_id", eventID),
		attribute.Int("seat_number", req.SeatNumber),
	)

	result, err := h.bookingService.ReserveForWalkIn(ctx, requester, eventID, &req)
	if err != nil {
		fail(c, span, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Created(c, result)
}

// CancelBooking handles POST /bookings/:id/cancel
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.cancel")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	requester, ok := mustRequester(c, span)
	if !ok {
		return
	}

	bookingID := c.Param("id")
	span.SetAttributes(
		attribute.String("booking_id", bookingID),
		attribute.String("user_id", requester.UserID),
	)

	result, err := h.bookingService.CancelBooking(ctx, requester, bookingID)
	if err != nil {
		fail(c, span, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.OK(c, result)
}

// AdvanceStatus handles PATCH /bookings/:id/status
func (h *BookingHandler) AdvanceStatus(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.advance_status")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	requester, ok := mustRequester(c, span)
	if !ok {
		return
	}

	var req dto.AdvanceStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, span, err)
		return
	}

	bookingID := c.Param("id")
	span.SetAttributes(
		attribute.String("booking_id", bookingID),
		attribute.String("target_status", req.Status),
	)

	result, err := h.bookingService.AdvanceStatus(ctx, requester, bookingID, &req)
	if err != nil {
		fail(c, span, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.OK(c, result)
}

// LookupByToken handles GET /bookings/token/:token
func (h *BookingHandler) LookupByToken(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.lookup_token")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	requester, ok := mustRequester(c, span)
	if !ok {
		return
	}

	result, err := h.bookingService.LookupByToken(ctx, requester, c.Param("token"))
	if err != nil {
		fail(c, span, err)
		return
	}

	span.SetAttributes(attribute.String("booking_id", result.Booking.ID))
	span.SetStatus(codes.Ok, "")
	response.OK(c, result)
}

// GetBooking handles GET /bookings/:id
func (h *BookingHandler) GetBooking(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.get")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	requester, ok := mustRequester(c, span)
	if !ok {
		return
	}

	bookingID := c.Param("id")
	span.SetAttributes(attribute.String("booking_id", bookingID))

	result, err := h.bookingService.GetBooking(ctx, requester, bookingID)
	if err != nil {
		fail(c, span, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.OK(c, result)
}

// ListMyBookings handles GET /bookings
func (h *BookingHandler) ListMyBookings(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.list_mine")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	requester, ok := mustRequester(c, span)
	if !ok {
		return
	}

	limit, offset := pageParams(c)
	result, err := h.bookingService.ListMyBookings(ctx, requester, limit, offset)
	if err != nil {
		fail(c, span, err)
		return
	}

	span.SetAttributes(attribute.Int("count", len(result)))
	span.SetStatus(codes.Ok, "")
	response.OK(c, result)
}

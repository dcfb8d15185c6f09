package handler

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/MarlyH/CorpsAPI-sub000/internal/service"
	"github.com/MarlyH/CorpsAPI-sub000/pkg/response"
	"github.com/MarlyH/CorpsAPI-sub000/pkg/telemetry"
)

// WaitlistHandler handles waitlist HTTP requests
type WaitlistHandler struct {
	waitlistService service.WaitlistService
}

// NewWaitlistHandler creates a new waitlist handler
func NewWaitlistHandler(waitlistService service.WaitlistService) *WaitlistHandler {
	return &WaitlistHandler{waitlistService: waitlistService}
}

// Join handles POST /events/:id/waitlist
func (h *WaitlistHandler) Join(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.waitlist.join")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	requester, ok := mustRequester(c, span)
	if !ok {
		return
	}

	eventID := c.Param("id")
	span.SetAttributes(
		attribute.String("event_id", eventID),
		attribute.String("user_id", requester.UserID),
	)

	result, err := h.waitlistService.Join(ctx, requester, eventID)
	if err != nil {
		fail(c, span, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Created(c, result)
}

// Leave handles DELETE /events/:id/waitlist
func (h *WaitlistHandler) Leave(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.waitlist.leave")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	requester, ok := mustRequester(c, span)
	if !ok {
		return
	}

	if err := h.waitlistService.Leave(ctx, requester, c.Param("id")); err != nil {
		fail(c, span, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.NoContent(c)
}

// ListMine handles GET /waitlist
func (h *WaitlistHandler) ListMine(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.waitlist.list_mine")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	requester, ok := mustRequester(c, span)
	if !ok {
		return
	}

	result, err := h.waitlistService.ListMine(ctx, requester)
	if err != nil {
		fail(c, span, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.OK(c, result)
}

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

// StrikeHandler handles attendance strike HTTP requests
type StrikeHandler struct {
	strikeService service.StrikeService
}

// NewStrikeHandler creates a new strike handler
func NewStrikeHandler(strikeService service.StrikeService) *StrikeHandler {
	return &StrikeHandler{strikeService: strikeService}
}

// Get handles GET /users/:id/strikes
func (h *StrikeHandler) Get(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.strike.get")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	requester, ok := mustRequester(c, span)
	if !ok {
		return
	}

	userID := c.Param("id")
	span.SetAttributes(attribute.String("user_id", userID))

	result, err := h.strikeService.GetStrikes(ctx, requester, userID)
	if err != nil {
		fail(c, span, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.OK(c, result)
}

// Adjust handles POST /users/:id/strikes/adjust
func (h *StrikeHandler) Adjust(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.strike.adjust")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	requester, ok := mustRequester(c, span)
	if !ok {
		return
	}

	var req dto.AdjustStrikesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, span, err)
		return
	}

	userID := c.Param("id")
	span.SetAttributes(
		attribute.String("user_id", userID),
		attribute.Int("delta", req.Delta),
	)

	result, err := h.strikeService.AdjustStrikes(ctx, requester, userID, &req)
	if err != nil {
		fail(c, span, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.OK(c, result)
}

// Set handles PUT /users/:id/strikes
func (h *StrikeHandler) Set(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.strike.set")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	requester, ok := mustRequester(c, span)
	if !ok {
		return
	}

	var req dto.SetStrikesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, span, err)
		return
	}

	result, err := h.strikeService.SetStrikes(ctx, requester, c.Param("id"), &req)
	if err != nil {
		fail(c, span, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.OK(c, result)
}

// ListSuspended handles GET /users/suspended
func (h *StrikeHandler) ListSuspended(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.strike.list_suspended")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	requester, ok := mustRequester(c, span)
	if !ok {
		return
	}

	limit, offset := pageParams(c)
	result, err := h.strikeService.ListSuspended(ctx, requester, limit, offset)
	if err != nil {
		fail(c, span, err)
		return
	}

	span.SetAttributes(attribute.Int("count", len(result)))
	span.SetStatus(codes.Ok, "")
	response.OK(c, result)
}

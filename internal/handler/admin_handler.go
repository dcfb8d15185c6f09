package handler

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/MarlyH/CorpsAPI-sub000/internal/service"
	"github.com/MarlyH/CorpsAPI-sub000/pkg/response"
	"github.com/MarlyH/CorpsAPI-sub000/pkg/telemetry"
)

// AdminHandler handles admin HTTP requests
type AdminHandler struct {
	lifecycle service.LifecycleService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(lifecycle service.LifecycleService) *AdminHandler {
	return &AdminHandler{lifecycle: lifecycle}
}

// RunSweep handles POST /admin/sweeps/:name
func (h *AdminHandler) RunSweep(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.admin.run_sweep")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	name := c.Param("name")
	span.SetAttributes(attribute.String("sweep", name))

	result, err := h.lifecycle.RunSweep(ctx, name)
	if err != nil {
		fail(c, span, err)
		return
	}

	span.SetAttributes(
		attribute.Int("processed", result.Processed),
		attribute.Int("failed", result.Failed),
	)
	span.SetStatus(codes.Ok, "")
	response.OK(c, result)
}

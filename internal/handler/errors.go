package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/MarlyH/CorpsAPI-sub000/internal/domain"
	"github.com/MarlyH/CorpsAPI-sub000/pkg/logger"
	"github.com/MarlyH/CorpsAPI-sub000/pkg/middleware"
	"github.com/MarlyH/CorpsAPI-sub000/pkg/response"
)

// requesterFrom builds the caller from the claims stored by JWTAuth
func requesterFrom(c *gin.Context) (domain.Requester, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return domain.Requester{}, false
	}
	roles := middleware.GetRoles(c)
	r := domain.Requester{UserID: userID, Roles: make([]domain.Role, 0, len(roles))}
	for _, role := range roles {
		r.Roles = append(r.Roles, domain.Role(role))
	}
	return r, true
}

// mustRequester writes 401 when the context carries no caller
func mustRequester(c *gin.Context, span trace.Span) (domain.Requester, bool) {
	r, ok := requesterFrom(c)
	if !ok {
		span.SetStatus(codes.Error, "unauthorized")
		response.Unauthorized(c, "unauthorized")
	}
	return r, ok
}

func bindError(c *gin.Context, span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, "invalid request")
	response.BadRequest(c, err.Error())
}

// pageParams reads limit and offset query parameters; bad values fall back to zero
func pageParams(c *gin.Context) (int, int) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	return limit, offset
}

// fail records err on the span and writes the mapped response
func fail(c *gin.Context, span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	handleError(c, err)
}

// handleError maps domain errors to HTTP responses
func handleError(c *gin.Context, err error) {
	var elig *domain.EligibilityError

	switch {
	case errors.As(err, &elig) && domain.IsEligibilityError(err):
		var details map[string]interface{}
		if elig.SuspendedUntil != nil {
			details = map[string]interface{}{"suspended_until": elig.SuspendedUntil.Format(domain.DateLayout)}
		}
		code := "AGE_OUT_OF_RANGE"
		if errors.Is(err, domain.ErrUserSuspended) {
			code = "SUSPENDED"
		}
		response.Error(c, http.StatusUnprocessableEntity, code, err.Error(), details)
	case domain.IsValidationError(err):
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	case domain.IsConflictError(err):
		response.Error(c, http.StatusConflict, conflictCode(err), err.Error(), nil)
	case domain.IsNotFoundError(err):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case domain.IsAuthorizationError(err):
		response.Forbidden(c, err.Error())
	case domain.IsStateError(err):
		response.Error(c, http.StatusConflict, "INVALID_STATE", err.Error(), nil)
	case domain.IsDependencyError(err):
		logger.FromContext(c.Request.Context()).Error("dependency failure", zap.Error(err))
		response.Error(c, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "a dependency is unavailable, try again later", nil)
	default:
		logger.FromContext(c.Request.Context()).Error("unhandled error", zap.Error(err))
		response.InternalError(c)
	}
}

func conflictCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrSeatTaken):
		return "SEAT_TAKEN"
	case errors.Is(err, domain.ErrNoSeatsAvailable):
		return "NO_SEATS_AVAILABLE"
	case errors.Is(err, domain.ErrDuplicateBooking):
		return "DUPLICATE_BOOKING"
	case errors.Is(err, domain.ErrAlreadyOnWaitlist):
		return "ALREADY_ON_WAITLIST"
	default:
		return "CONFLICT"
	}
}

package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/MarlyH/CorpsAPI-sub000/internal/domain"
	"github.com/MarlyH/CorpsAPI-sub000/internal/dto"
	"github.com/MarlyH/CorpsAPI-sub000/pkg/logger"
	"github.com/MarlyH/CorpsAPI-sub000/pkg/middleware"
)

var testAuth = middleware.AuthConfig{Secret: []byte("test-secret"), Issuer: "corps-auth"}

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router    *gin.Engine
	bookings  *mockBookingService
	events    *mockEventService
	waitlist  *mockWaitlistService
	strikes   *mockStrikeService
	lifecycle *mockLifecycleService
}

func newTestServer(checkers map[string]HealthChecker) *testServer {
	s := &testServer{
		bookings:  &mockBookingService{},
		events:    &mockEventService{},
		waitlist:  &mockWaitlistService{},
		strikes:   &mockStrikeService{},
		lifecycle: &mockLifecycleService{},
	}
	s.router = NewRouter(&Handlers{
		Health:   NewHealthHandler(checkers),
		Booking:  NewBookingHandler(s.bookings),
		Event:    NewEventHandler(s.events),
		Waitlist: NewWaitlistHandler(s.waitlist),
		Strike:   NewStrikeHandler(s.strikes),
		Admin:    NewAdminHandler(s.lifecycle),
	}, RouterConfig{Auth: testAuth}, logger.Get())
	return s
}

func token(t *testing.T, subject string, roles ...string) string {
	t.Helper()
	claims := middleware.Claims{
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    testAuth.Issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testAuth.Secret)
	require.NoError(t, err)
	return signed
}

func (s *testServer) do(t *testing.T, method, path, bearer string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string                 `json:"code"`
		Message string                 `json:"message"`
		Details map[string]interface{} `json:"details"`
	} `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestCreateBooking_Created(t *testing.T) {
	s := newTestServer(nil)
	want := domain.Requester{UserID: "user-1", Roles: []domain.Role{domain.RoleUser}}
	s.bookings.On("CreateBooking", mock.Anything, want, &dto.CreateBookingRequest{EventID: "ev-1", SeatNumber: 4}).
		Return(&dto.CreateBookingResponse{BookingID: "b-1", EventID: "ev-1", SeatNumber: 4, Status: "booked", CheckInToken: "tok"}, nil)

	w := s.do(t, http.MethodPost, "/api/v1/bookings", token(t, "user-1", "user"),
		map[string]interface{}{"event_id": "ev-1", "seat_number": 4})

	require.Equal(t, http.StatusCreated, w.Code)
	var got dto.CreateBookingResponse
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &got))
	assert.Equal(t, "b-1", got.BookingID)
	assert.Equal(t, "tok", got.CheckInToken)
	s.bookings.AssertExpectations(t)
}

func TestCreateBooking_InvalidBody(t *testing.T) {
	s := newTestServer(nil)

	w := s.do(t, http.MethodPost, "/api/v1/bookings", token(t, "user-1"), map[string]interface{}{"event_id": "ev-1"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", decode(t, w).Error.Code)
	s.bookings.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateBooking_ErrorMapping(t *testing.T) {
	until := time.Date(2025, time.June, 8, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"seat taken", domain.ErrSeatTaken, http.StatusConflict, "SEAT_TAKEN"},
		{"full", domain.ErrNoSeatsAvailable, http.StatusConflict, "NO_SEATS_AVAILABLE"},
		{"duplicate", domain.ErrDuplicateBooking, http.StatusConflict, "DUPLICATE_BOOKING"},
		{"out of bounds", domain.ErrSeatOutOfBounds, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"suspended", &domain.EligibilityError{Reason: domain.ErrUserSuspended, SuspendedUntil: &until}, http.StatusUnprocessableEntity, "SUSPENDED"},
		{"age", &domain.EligibilityError{Reason: domain.ErrAgeOutOfRange}, http.StatusUnprocessableEntity, "AGE_OUT_OF_RANGE"},
		{"unknown session", &domain.EligibilityError{Reason: domain.ErrUnknownSession}, http.StatusInternalServerError, "INTERNAL_ERROR"},
		{"event missing", domain.ErrEventNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"child of someone else", domain.ErrChildNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"not available", domain.ErrEventNotAvailable, http.StatusConflict, "INVALID_STATE"},
		{"database down", &domain.DependencyError{Dependency: "postgres", Err: errors.New("conn refused")}, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(nil)
			s.bookings.On("CreateBooking", mock.Anything, mock.Anything, mock.Anything).Return(nil, tt.err)

			w := s.do(t, http.MethodPost, "/api/v1/bookings", token(t, "user-1"),
				map[string]interface{}{"event_id": "ev-1", "seat_number": 1})

			assert.Equal(t, tt.status, w.Code)
			env := decode(t, w)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.Code)
		})
	}
}

func TestSuspendedResponse_CarriesEndDate(t *testing.T) {
	s := newTestServer(nil)
	until := time.Date(2025, time.June, 8, 0, 0, 0, 0, time.UTC)
	s.bookings.On("CreateBooking", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, &domain.EligibilityError{Reason: domain.ErrUserSuspended, SuspendedUntil: &until})

	w := s.do(t, http.MethodPost, "/api/v1/bookings", token(t, "user-1"),
		map[string]interface{}{"event_id": "ev-1", "seat_number": 1})

	env := decode(t, w)
	assert.Equal(t, "2025-06-08", env.Error.Details["suspended_until"])
	assert.Equal(t, "suspended until 2025-06-08", env.Error.Message)
}

func TestRoutes_RequireToken(t *testing.T) {
	s := newTestServer(nil)

	w := s.do(t, http.MethodGet, "/api/v1/bookings", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRoutes_RoleGates(t *testing.T) {
	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPatch, "/api/v1/bookings/b-1/status"},
		{http.MethodGet, "/api/v1/bookings/token/abc"},
		{http.MethodPost, "/api/v1/events/ev-1/walk-ins"},
		{http.MethodPost, "/api/v1/events"},
		{http.MethodPost, "/api/v1/events/ev-1/cancel"},
		{http.MethodGet, "/api/v1/users/suspended"},
		{http.MethodPut, "/api/v1/users/u-1/strikes"},
		{http.MethodPost, "/api/v1/admin/sweeps/release"},
	}

	s := newTestServer(nil)
	userToken := token(t, "user-1", "user")
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := s.do(t, tt.method, tt.path, userToken, map[string]interface{}{})
			assert.Equal(t, http.StatusForbidden, w.Code)
		})
	}
}

func TestAdvanceStatus_Staff(t *testing.T) {
	s := newTestServer(nil)
	staff := domain.Requester{UserID: "staff-1", Roles: []domain.Role{domain.RoleStaff}}
	seat := 3
	s.bookings.On("AdvanceStatus", mock.Anything, staff, "b-1", &dto.AdvanceStatusRequest{Status: "checked_in"}).
		Return(&dto.BookingResponse{ID: "b-1", Status: "checked_in", SeatNumber: &seat}, nil)

	w := s.do(t, http.MethodPatch, "/api/v1/bookings/b-1/status", token(t, "staff-1", "staff"),
		map[string]string{"status": "checked_in"})

	require.Equal(t, http.StatusOK, w.Code)
	var got dto.BookingResponse
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &got))
	assert.Equal(t, "checked_in", got.Status)
}

func TestLookupByToken_RoutesBesideBookingID(t *testing.T) {
	s := newTestServer(nil)
	s.bookings.On("LookupByToken", mock.Anything, mock.Anything, "abc").
		Return(&dto.BookingDetailResponse{Booking: &dto.BookingResponse{ID: "b-1"}}, nil)
	s.bookings.On("GetBooking", mock.Anything, mock.Anything, "b-2").
		Return(&dto.BookingResponse{ID: "b-2"}, nil)

	staffToken := token(t, "staff-1", "staff")
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/v1/bookings/token/abc", staffToken, nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/v1/bookings/b-2", staffToken, nil).Code)
	s.bookings.AssertExpectations(t)
}

func TestListMyBookings_PassesPaging(t *testing.T) {
	s := newTestServer(nil)
	s.bookings.On("ListMyBookings", mock.Anything, mock.Anything, 10, 20).Return([]*dto.BookingResponse{}, nil)

	w := s.do(t, http.MethodGet, "/api/v1/bookings?limit=10&offset=20", token(t, "user-1"), nil)

	assert.Equal(t, http.StatusOK, w.Code)
	s.bookings.AssertExpectations(t)
}

func TestCancelBooking_NotOwner(t *testing.T) {
	s := newTestServer(nil)
	s.bookings.On("CancelBooking", mock.Anything, mock.Anything, "b-1").Return(nil, domain.ErrNotBookingOwner)

	w := s.do(t, http.MethodPost, "/api/v1/bookings/b-1/cancel", token(t, "user-2"), nil)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestEvents_CreateAndList(t *testing.T) {
	s := newTestServer(nil)
	s.events.On("CreateEvent", mock.Anything, mock.Anything, mock.Anything).
		Return(&dto.EventResponse{ID: "ev-1", Status: "unavailable"}, nil)
	s.events.On("ListEvents", mock.Anything, &dto.ListEventsQuery{SessionType: "kids"}).
		Return([]*dto.EventResponse{{ID: "ev-1"}}, nil)

	w := s.do(t, http.MethodPost, "/api/v1/events", token(t, "manager-1", "manager"), map[string]interface{}{
		"location_id": "hall", "name": "Kids club", "session_type": "kids",
		"start_date": "2025-03-22", "start_time": "10:00", "end_time": "12:00",
		"available_from": "2025-03-10", "total_seats": 20,
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/events?session_type=kids", token(t, "user-1"), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	s.events.AssertExpectations(t)
}

func TestEvents_StaffCancels(t *testing.T) {
	s := newTestServer(nil)
	s.events.On("CancelEvent", mock.Anything, domain.Requester{UserID: "staff-1", Roles: []domain.Role{domain.RoleStaff}}, "ev-1").
		Return(&dto.CancelEventResponse{EventID: "ev-1", Status: "cancelled"}, nil)

	w := s.do(t, http.MethodPost, "/api/v1/events/ev-1/cancel", token(t, "staff-1", "staff"), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	s.events.AssertExpectations(t)
}

func TestWaitlist_JoinAndLeave(t *testing.T) {
	s := newTestServer(nil)
	s.waitlist.On("Join", mock.Anything, mock.Anything, "ev-1").Return(nil, domain.ErrSeatsAvailable).Once()
	s.waitlist.On("Leave", mock.Anything, mock.Anything, "ev-1").Return(nil).Once()

	userToken := token(t, "user-1")
	w := s.do(t, http.MethodPost, "/api/v1/events/ev-1/waitlist", userToken, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodDelete, "/api/v1/events/ev-1/waitlist", userToken, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	s.waitlist.AssertExpectations(t)
}

func TestStrikes_OwnerReadsOwnLedger(t *testing.T) {
	s := newTestServer(nil)
	s.strikes.On("GetStrikes", mock.Anything, domain.Requester{UserID: "user-1", Roles: []domain.Role{}}, "user-1").
		Return(&dto.StrikeResponse{UserID: "user-1", Count: 1}, nil)

	w := s.do(t, http.MethodGet, "/api/v1/users/user-1/strikes", token(t, "user-1"), nil)

	assert.Equal(t, http.StatusOK, w.Code)
	s.strikes.AssertExpectations(t)
}

func TestAdminSweep(t *testing.T) {
	s := newTestServer(nil)
	s.lifecycle.On("RunSweep", mock.Anything, "release").Return(&dto.SweepResult{Sweep: "release", Processed: 2}, nil)
	s.lifecycle.On("RunSweep", mock.Anything, "vacuum").Return(nil, domain.ErrUnknownSweep)

	adminToken := token(t, "admin-1", "admin")
	w := s.do(t, http.MethodPost, "/api/v1/admin/sweeps/release", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got dto.SweepResult
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &got))
	assert.Equal(t, 2, got.Processed)

	w = s.do(t, http.MethodPost, "/api/v1/admin/sweeps/vacuum", adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReady(t *testing.T) {
	healthy := newTestServer(map[string]HealthChecker{"database": stubChecker{}, "redis": nil})
	w := healthy.do(t, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var ready ReadyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ready))
	assert.Equal(t, "not configured", ready.Components["redis"])

	sick := newTestServer(map[string]HealthChecker{"database": stubChecker{err: errors.New("down")}})
	w = sick.do(t, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	assert.Equal(t, http.StatusOK, sick.do(t, http.MethodGet, "/health", "", nil).Code)
}

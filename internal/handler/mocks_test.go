package handler

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/MarlyH/CorpsAPI-sub000/internal/domain"
	"github.com/MarlyH/CorpsAPI-sub000/internal/dto"
)

type mockBookingService struct {
	mock.Mock
}

func (m *mockBookingService) CreateBooking(ctx context.Context, r domain.Requester, req *dto.CreateBookingRequest) (*dto.CreateBookingResponse, error) {
	args := m.Called(ctx, r, req)
	res, _ := args.Get(0).(*dto.CreateBookingResponse)
	return res, args.Error(1)
}

func (m *mockBookingService) ReserveForWalkIn(ctx context.Context, r domain.Requester, eventID string, req *dto.WalkInRequest) (*dto.CreateBookingResponse, error) {
	args := m.Called(ctx, r, eventID, req)
	res, _ := args.Get(0).(*dto.CreateBookingResponse)
	return res, args.Error(1)
}

func (m *mockBookingService) CancelBooking(ctx context.Context, r domain.Requester, bookingID string) (*dto.BookingResponse, error) {
	args := m.Called(ctx, r, bookingID)
	res, _ := args.Get(0).(*dto.BookingResponse)
	return res, args.Error(1)
}

func (m *mockBookingService) AdvanceStatus(ctx context.Context, r domain.Requester, bookingID string, req *dto.AdvanceStatusRequest) (*dto.BookingResponse, error) {
	args := m.Called(ctx, r, bookingID, req)
	res, _ := args.Get(0).(*dto.BookingResponse)
	return res, args.Error(1)
}

func (m *mockBookingService) LookupByToken(ctx context.Context, r domain.Requester, token string) (*dto.BookingDetailResponse, error) {
	args := m.Called(ctx, r, token)
	res, _ := args.Get(0).(*dto.BookingDetailResponse)
	return res, args.Error(1)
}

func (m *mockBookingService) GetBooking(ctx context.Context, r domain.Requester, bookingID string) (*dto.BookingResponse, error) {
	args := m.Called(ctx, r, bookingID)
	res, _ := args.Get(0).(*dto.BookingResponse)
	return res, args.Error(1)
}

func (m *mockBookingService) ListMyBookings(ctx context.Context, r domain.Requester, limit, offset int) ([]*dto.BookingResponse, error) {
	args := m.Called(ctx, r, limit, offset)
	res, _ := args.Get(0).([]*dto.BookingResponse)
	return res, args.Error(1)
}

type mockEventService struct {
	mock.Mock
}

func (m *mockEventService) CreateEvent(ctx context.Context, r domain.Requester, req *dto.CreateEventRequest) (*dto.EventResponse, error) {
	args := m.Called(ctx, r, req)
	res, _ := args.Get(0).(*dto.EventResponse)
	return res, args.Error(1)
}

func (m *mockEventService) GetEvent(ctx context.Context, eventID string) (*dto.EventResponse, error) {
	args := m.Called(ctx, eventID)
	res, _ := args.Get(0).(*dto.EventResponse)
	return res, args.Error(1)
}

func (m *mockEventService) ListEvents(ctx context.Context, query *dto.ListEventsQuery) ([]*dto.EventResponse, error) {
	args := m.Called(ctx, query)
	res, _ := args.Get(0).([]*dto.EventResponse)
	return res, args.Error(1)
}

func (m *mockEventService) GetSeats(ctx context.Context, eventID string) (*dto.SeatMapResponse, error) {
	args := m.Called(ctx, eventID)
	res, _ := args.Get(0).(*dto.SeatMapResponse)
	return res, args.Error(1)
}

func (m *mockEventService) CancelEvent(ctx context.Context, r domain.Requester, eventID string) (*dto.CancelEventResponse, error) {
	args := m.Called(ctx, r, eventID)
	res, _ := args.Get(0).(*dto.CancelEventResponse)
	return res, args.Error(1)
}

type mockWaitlistService struct {
	mock.Mock
}

func (m *mockWaitlistService) Join(ctx context.Context, r domain.Requester, eventID string) (*dto.WaitlistEntryResponse, error) {
	args := m.Called(ctx, r, eventID)
	res, _ := args.Get(0).(*dto.WaitlistEntryResponse)
	return res, args.Error(1)
}

func (m *mockWaitlistService) Leave(ctx context.Context, r domain.Requester, eventID string) error {
	return m.Called(ctx, r, eventID).Error(0)
}

func (m *mockWaitlistService) ListMine(ctx context.Context, r domain.Requester) ([]*dto.WaitlistEntryResponse, error) {
	args := m.Called(ctx, r)
	res, _ := args.Get(0).([]*dto.WaitlistEntryResponse)
	return res, args.Error(1)
}

type mockStrikeService struct {
	mock.Mock
}

func (m *mockStrikeService) GetStrikes(ctx context.Context, r domain.Requester, userID string) (*dto.StrikeResponse, error) {
	args := m.Called(ctx, r, userID)
	res, _ := args.Get(0).(*dto.StrikeResponse)
	return res, args.Error(1)
}

func (m *mockStrikeService) AdjustStrikes(ctx context.Context, r domain.Requester, userID string, req *dto.AdjustStrikesRequest) (*dto.StrikeResponse, error) {
	args := m.Called(ctx, r, userID, req)
	res, _ := args.Get(0).(*dto.StrikeResponse)
	return res, args.Error(1)
}

func (m *mockStrikeService) SetStrikes(ctx context.Context, r domain.Requester, userID string, req *dto.SetStrikesRequest) (*dto.StrikeResponse, error) {
	args := m.Called(ctx, r, userID, req)
	res, _ := args.Get(0).(*dto.StrikeResponse)
	return res, args.Error(1)
}

func (m *mockStrikeService) ListSuspended(ctx context.Context, r domain.Requester, limit, offset int) ([]*dto.StrikeResponse, error) {
	args := m.Called(ctx, r, limit, offset)
	res, _ := args.Get(0).([]*dto.StrikeResponse)
	return res, args.Error(1)
}

type mockLifecycleService struct {
	mock.Mock
}

func (m *mockLifecycleService) RunSweep(ctx context.Context, name string) (*dto.SweepResult, error) {
	args := m.Called(ctx, name)
	res, _ := args.Get(0).(*dto.SweepResult)
	return res, args.Error(1)
}

type stubChecker struct {
	err error
}

func (s stubChecker) HealthCheck(ctx context.Context) error {
	return s.err
}

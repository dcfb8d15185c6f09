package dto

import (
	"time"

	"github.com/MarlyH/CorpsAPI-sub000/internal/domain"
)

// CreateBookingRequest represents a request to book a seat
type CreateBookingRequest struct {
	EventID    string `json:"event_id" binding:"required"`
	SeatNumber int    `json:"seat_number" binding:"required,min=1"`
	IsForChild bool   `json:"is_for_child"`
	ChildID    string `json:"child_id,omitempty"`
}

// WalkInRequest represents a staff reservation for an attendee without an account
type WalkInRequest struct {
	SeatNumber   int    `json:"seat_number" binding:"required,min=1"`
	AttendeeName string `json:"attendee_name" binding:"required"`
	PhoneNumber  string `json:"phone_number" binding:"required"`
	GuardianName string `json:"guardian_name,omitempty"`
}

// CreateBookingResponse represents a granted seat
type CreateBookingResponse struct {
	BookingID    string `json:"booking_id"`
	EventID      string `json:"event_id"`
	SeatNumber   int    `json:"seat_number"`
	Status       string `json:"status"`
	CheckInToken string `json:"check_in_token"`
}

// AdvanceStatusRequest represents a staff status change
type AdvanceStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// BookingResponse represents a booking in API response
type BookingResponse struct {
	ID           string              `json:"id"`
	EventID      string              `json:"event_id"`
	UserID       string              `json:"user_id,omitempty"`
	ChildID      string              `json:"child_id,omitempty"`
	IsForChild   bool                `json:"is_for_child"`
	SeatNumber   *int                `json:"seat_number"`
	Status       string              `json:"status"`
	CheckInToken string              `json:"check_in_token,omitempty"`
	Reservation  *domain.Reservation `json:"reservation,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	CheckedInAt  *time.Time          `json:"checked_in_at,omitempty"`
	CheckedOutAt *time.Time          `json:"checked_out_at,omitempty"`
	CancelledAt  *time.Time          `json:"cancelled_at,omitempty"`
}

// AttendeeResponse describes who occupies a seat
type AttendeeResponse struct {
	Kind                  string `json:"kind"`
	Name                  string `json:"name"`
	Age                   *int   `json:"age,omitempty"`
	PhoneNumber           string `json:"phone_number,omitempty"`
	GuardianName          string `json:"guardian_name,omitempty"`
	EmergencyContactName  string `json:"emergency_contact_name,omitempty"`
	EmergencyContactPhone string `json:"emergency_contact_phone,omitempty"`
}

// BookingDetailResponse is the door view of a check-in token
type BookingDetailResponse struct {
	Booking  *BookingResponse  `json:"booking"`
	Event    *EventResponse    `json:"event"`
	Attendee *AttendeeResponse `json:"attendee"`
}

// FromDomain converts domain Booking to BookingResponse
func FromDomain(b *domain.Booking) *BookingResponse {
	return &BookingResponse{
		ID:           b.ID,
		EventID:      b.EventID,
		UserID:       b.UserID,
		ChildID:      b.ChildID,
		IsForChild:   b.IsForChild,
		SeatNumber:   b.SeatNumber,
		Status:       string(b.Status),
		CheckInToken: b.CheckInToken,
		Reservation:  b.Reservation,
		CreatedAt:    b.CreatedAt,
		CheckedInAt:  b.CheckedInAt,
		CheckedOutAt: b.CheckedOutAt,
		CancelledAt:  b.CancelledAt,
	}
}

// FromDomainList converts a slice of bookings
func FromDomainList(bookings []*domain.Booking) []*BookingResponse {
	out := make([]*BookingResponse, len(bookings))
	for i, b := range bookings {
		out[i] = FromDomain(b)
	}
	return out
}

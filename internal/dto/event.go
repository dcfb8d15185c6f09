package dto

import (
	"github.com/MarlyH/CorpsAPI-sub000/internal/domain"
)

// CreateEventRequest represents a request to schedule an event. Dates use
// YYYY-MM-DD and times HH:MM in the venue's zone.
type CreateEventRequest struct {
	LocationID    string `json:"location_id" binding:"required"`
	Name          string `json:"name" binding:"required"`
	Description   string `json:"description"`
	SessionType   string `json:"session_type" binding:"required"`
	StartDate     string `json:"start_date" binding:"required"`
	StartTime     string `json:"start_time" binding:"required"`
	EndTime       string `json:"end_time" binding:"required"`
	AvailableFrom string `json:"available_from" binding:"required"`
	TotalSeats    int    `json:"total_seats" binding:"required,min=1"`
}

// ListEventsQuery filters event listings
type ListEventsQuery struct {
	Status      string `form:"status"`
	SessionType string `form:"session_type"`
	FromDate    string `form:"from_date"`
	Limit       int    `form:"limit"`
	Offset      int    `form:"offset"`
}

// EventResponse represents an event in API response
type EventResponse struct {
	ID             string `json:"id"`
	LocationID     string `json:"location_id"`
	ManagerID      string `json:"manager_id,omitempty"`
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	SessionType    string `json:"session_type"`
	StartDate      string `json:"start_date"`
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time"`
	AvailableFrom  string `json:"available_from"`
	TotalSeats     int    `json:"total_seats"`
	SeatsTaken     int    `json:"seats_taken"`
	SeatsAvailable int    `json:"seats_available"`
	Status         string `json:"status"`
}

// SeatMapResponse lists the seats held by live bookings
type SeatMapResponse struct {
	EventID    string `json:"event_id"`
	TotalSeats int    `json:"total_seats"`
	Taken      []int  `json:"taken"`
}

// CancelEventResponse summarizes a manual cancellation
type CancelEventResponse struct {
	EventID           string `json:"event_id"`
	Status            string `json:"status"`
	BookingsCancelled int    `json:"bookings_cancelled"`
	UsersNotified     int    `json:"users_notified"`
	WaitlistRemoved   int    `json:"waitlist_removed"`
}

// EventFromDomain converts an event and its live seat count
func EventFromDomain(e *domain.Event, seatsTaken int) *EventResponse {
	available := e.TotalSeats - seatsTaken
	if available < 0 {
		available = 0
	}
	return &EventResponse{
		ID:             e.ID,
		LocationID:     e.LocationID,
		ManagerID:      e.ManagerID,
		Name:           e.Name,
		Description:    e.Description,
		SessionType:    string(e.SessionType),
		StartDate:      e.StartDate.Format(domain.DateLayout),
		StartTime:      e.StartTime.String(),
		EndTime:        e.EndTime.String(),
		AvailableFrom:  e.AvailableFrom.Format(domain.DateLayout),
		TotalSeats:     e.TotalSeats,
		SeatsTaken:     seatsTaken,
		SeatsAvailable: available,
		Status:         string(e.Status),
	}
}

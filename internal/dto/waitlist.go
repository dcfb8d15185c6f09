package dto

import (
	"time"

	"github.com/MarlyH/CorpsAPI-sub000/internal/domain"
)

// WaitlistEntryResponse represents a waitlist entry
type WaitlistEntryResponse struct {
	EventID  string    `json:"event_id"`
	UserID   string    `json:"user_id"`
	JoinedAt time.Time `json:"joined_at"`
}

// WaitlistFromDomain converts a waitlist entry
func WaitlistFromDomain(e *domain.WaitlistEntry) *WaitlistEntryResponse {
	return &WaitlistEntryResponse{EventID: e.EventID, UserID: e.UserID, JoinedAt: e.CreatedAt}
}

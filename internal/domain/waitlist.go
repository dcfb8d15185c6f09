package domain

import "time"

// WaitlistEntry records a user's interest in a full event
type WaitlistEntry struct {
	EventID   string    `json:"event_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

package dto

import (
	"github.com/MarlyH/CorpsAPI-sub000/internal/domain"
)

// AdjustStrikesRequest changes a strike count by a signed delta
type AdjustStrikesRequest struct {
	Delta int `json:"delta" binding:"required"`
}

// SetStrikesRequest overwrites a strike count
type SetStrikesRequest struct {
	Count *int `json:"count" binding:"required"`
}

// StrikeResponse represents a user's strike ledger
type StrikeResponse struct {
	UserID         string `json:"user_id"`
	Name           string `json:"name,omitempty"`
	Email          string `json:"email,omitempty"`
	Count          int    `json:"count"`
	LastStrikeDate string `json:"last_strike_date,omitempty"`
	Suspended      bool   `json:"suspended"`
	SuspendedUntil string `json:"suspended_until,omitempty"`
}

// StrikesFromDomain builds the response for a user's evaluated ledger
func StrikesFromDomain(u *domain.User, state domain.StrikeState, suspended bool) *StrikeResponse {
	resp := &StrikeResponse{
		UserID:    u.ID,
		Name:      u.FullName(),
		Email:     u.Email,
		Count:     state.Count,
		Suspended: suspended,
	}
	if state.LastStrikeDate != nil {
		resp.LastStrikeDate = state.LastStrikeDate.Format(domain.DateLayout)
	}
	if until := state.SuspendedUntil(); suspended && until != nil {
		resp.SuspendedUntil = until.Format(domain.DateLayout)
	}
	return resp
}

// SweepResult summarizes one scheduler sweep
type SweepResult struct {
	Sweep     string `json:"sweep"`
	Processed int    `json:"processed"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
}

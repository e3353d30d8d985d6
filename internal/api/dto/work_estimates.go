package dto

import (
	"encoding/json"
	"field-route-service/internal/domain"
	"time"
)

type UpsertEstimateRequest struct {
	TicketID         string  `json:"ticket_id"`
	EstimatedMinutes *int    `json:"estimated_minutes"`
	Notes            *string `json:"notes,omitempty"`
}

// BulkUpsertRequest keeps items raw so one unreadable item cannot fail the batch.
type BulkUpsertRequest struct {
	Estimates []json.RawMessage `json:"estimates"`
}

type EstimateResponse struct {
	TicketID         string    `json:"ticket_id"`
	EstimatedMinutes int       `json:"estimated_minutes"`
	Notes            *string   `json:"notes"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func NewEstimateResponse(e *domain.WorkEstimate) EstimateResponse {
	return EstimateResponse{
		TicketID:         e.TicketID,
		EstimatedMinutes: e.EstimatedMinutes,
		Notes:            e.Notes,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}
}

type GetEstimateResponse struct {
	Estimate EstimateResponse `json:"estimate"`
}

type UpsertEstimateResponse struct {
	Estimate EstimateResponse `json:"estimate"`
	IsNew    bool             `json:"is_new"`
}

type ListEstimatesResponse struct {
	Estimates []EstimateResponse `json:"estimates"`
}

type BulkItemError struct {
	Index    int    `json:"index"`
	TicketID string `json:"ticket_id,omitempty"`
	Reason   string `json:"reason"`
}

type BulkUpsertResponse struct {
	Created int             `json:"created"`
	Updated int             `json:"updated"`
	Errors  []BulkItemError `json:"errors"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

package dto

import "field-route-service/internal/domain"

type OptimizeRequest struct {
	Date        string   `json:"date"`
	GarageID    string   `json:"garage_id"`
	TicketIDs   []string `json:"ticket_ids,omitempty"`
	StartTime   string   `json:"start_time,omitempty"`
	MaxPerRoute *int     `json:"max_per_route,omitempty"`
}

type OptimizeResponse struct {
	Routes  []domain.Route         `json:"routes"`
	Summary domain.Summary         `json:"summary"`
	Skipped []domain.SkippedTicket `json:"skipped"`
}

func NewOptimizeResponse(res *domain.OptimizationResult) OptimizeResponse {
	out := OptimizeResponse{
		Routes:  res.Routes,
		Summary: res.Summary,
		Skipped: res.Skipped,
	}
	if out.Routes == nil {
		out.Routes = []domain.Route{}
	}
	if out.Skipped == nil {
		out.Skipped = []domain.SkippedTicket{}
	}
	return out
}

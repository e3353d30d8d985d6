package dto

import "field-route-service/internal/domain"

type CalculateRequest struct {
	GarageID  string   `json:"garage_id"`
	TicketIDs []string `json:"ticket_ids"`
	StartTime string   `json:"start_time,omitempty"`
	Date      string   `json:"date,omitempty"`
}

type CalculateResponse struct {
	Route domain.Route `json:"route"`
}

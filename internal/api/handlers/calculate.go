package handlers

import (
	"context"
	"field-route-service/internal/api/dto"
	"field-route-service/internal/domain"
	"field-route-service/internal/services"
	"net/http"
)

type RouteCalculator interface {
	Calculate(ctx context.Context, in services.CalculateInput) (*domain.Route, error)
}

type CalculateHandler struct {
	Calculator RouteCalculator
}

// Calculate handles POST /calculate.
func (h *CalculateHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req dto.CalculateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	route, err := h.Calculator.Calculate(r.Context(), services.CalculateInput{
		GarageID:  req.GarageID,
		TicketIDs: req.TicketIDs,
		StartTime: req.StartTime,
		Date:      req.Date,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.CalculateResponse{Route: *route})
}

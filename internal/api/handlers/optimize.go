package handlers

import (
	"context"
	"field-route-service/internal/api/dto"
	"field-route-service/internal/domain"
	"field-route-service/internal/services"
	"net/http"
	"time"
)

// SyncOptimizer runs the optimizer inline under a deadline.
type SyncOptimizer interface {
	OptimizeSync(ctx context.Context, p services.OptimizeParams, timeout time.Duration) (*domain.OptimizationResult, error)
}

// JobEnqueuer hands an optimizer run to the background workers.
type JobEnqueuer interface {
	Enqueue(ctx context.Context, p services.OptimizeParams) (*services.EnqueueResult, error)
}

type OptimizeHandler struct {
	Optimizer   SyncOptimizer
	Jobs        JobEnqueuer
	SyncTimeout time.Duration
}

func toParams(req dto.OptimizeRequest) services.OptimizeParams {
	return services.OptimizeParams{
		Date:        req.Date,
		GarageID:    req.GarageID,
		TicketIDs:   req.TicketIDs,
		StartTime:   req.StartTime,
		MaxPerRoute: req.MaxPerRoute,
	}
}

// Optimize handles POST /optimize.
func (h *OptimizeHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	var req dto.OptimizeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.Optimizer.OptimizeSync(r.Context(), toParams(req), h.SyncTimeout)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.NewOptimizeResponse(res))
}

// OptimizeAsync handles POST /optimize/async.
func (h *OptimizeHandler) OptimizeAsync(w http.ResponseWriter, r *http.Request) {
	var req dto.OptimizeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.Jobs.Enqueue(r.Context(), toParams(req))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.EnqueueResponse{
		JobID:   res.JobID,
		Status:  string(res.Status),
		PollURL: res.PollURL,
	})
}

package handlers

import (
	"context"
	"field-route-service/internal/api/dto"
	"field-route-service/internal/domain"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type JobReader interface {
	Get(ctx context.Context, id string) (*domain.OptimizationJob, error)
}

type JobHandler struct {
	Jobs JobReader
}

// Get handles GET /jobs/{jobId}. A failed job is still a 200; its failure is part of the body.
func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	job, err := h.Jobs.Get(r.Context(), chi.URLParam(r, "jobId"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.NewJobResponse(job))
}

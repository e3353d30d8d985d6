package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"field-route-service/internal/api/dto"
	"field-route-service/internal/domain"
	"field-route-service/internal/services"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

type EstimateService interface {
	Upsert(ctx context.Context, in services.UpsertEstimateInput) (*services.UpsertEstimateResult, error)
	BulkUpsert(ctx context.Context, items []services.UpsertEstimateInput) (*services.BulkUpsertResult, error)
	GetByTicket(ctx context.Context, ticketID string) (*domain.WorkEstimate, error)
	GetByDate(ctx context.Context, date string) ([]*domain.WorkEstimate, error)
	DeleteByTicket(ctx context.Context, ticketID string) error
}

type WorkEstimateHandler struct {
	Estimates EstimateService
}

func toUpsertInput(req dto.UpsertEstimateRequest) services.UpsertEstimateInput {
	return services.UpsertEstimateInput{
		TicketID:         req.TicketID,
		EstimatedMinutes: req.EstimatedMinutes,
		Notes:            req.Notes,
	}
}

// GetByTicket handles GET /work-estimates/ticket/{ticketId}.
func (h *WorkEstimateHandler) GetByTicket(w http.ResponseWriter, r *http.Request) {
	est, err := h.Estimates.GetByTicket(r.Context(), chi.URLParam(r, "ticketId"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.GetEstimateResponse{Estimate: dto.NewEstimateResponse(est)})
}

// GetByDate handles GET /work-estimates/date/{date}. An empty day is an empty list.
func (h *WorkEstimateHandler) GetByDate(w http.ResponseWriter, r *http.Request) {
	list, err := h.Estimates.GetByDate(r.Context(), chi.URLParam(r, "date"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]dto.EstimateResponse, 0, len(list))
	for _, e := range list {
		out = append(out, dto.NewEstimateResponse(e))
	}

	writeJSON(w, r, http.StatusOK, dto.ListEstimatesResponse{Estimates: out})
}

// Upsert handles POST /work-estimates.
func (h *WorkEstimateHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req dto.UpsertEstimateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.Estimates.Upsert(r.Context(), toUpsertInput(req))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.UpsertEstimateResponse{
		Estimate: dto.NewEstimateResponse(res.Estimate),
		IsNew:    res.IsNew,
	})
}

// BulkUpsert handles POST /work-estimates/bulk.
// Per-item failures are reported in the body; only the batch size can fail the request.
func (h *WorkEstimateHandler) BulkUpsert(w http.ResponseWriter, r *http.Request) {
	var req dto.BulkUpsertRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	items := make([]services.UpsertEstimateInput, 0, len(req.Estimates))
	for _, raw := range req.Estimates {
		items = append(items, decodeBulkItem(raw))
	}

	res, err := h.Estimates.BulkUpsert(r.Context(), items)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := dto.BulkUpsertResponse{
		Created: res.Created,
		Updated: res.Updated,
		Errors:  make([]dto.BulkItemError, 0, len(res.Errors)),
	}
	for _, e := range res.Errors {
		out.Errors = append(out.Errors, dto.BulkItemError{Index: e.Index, TicketID: e.TicketID, Reason: e.Reason})
	}

	writeJSON(w, r, http.StatusOK, out)
}

// DeleteByTicket handles DELETE /work-estimates/ticket/{ticketId}.
func (h *WorkEstimateHandler) DeleteByTicket(w http.ResponseWriter, r *http.Request) {
	if err := h.Estimates.DeleteByTicket(r.Context(), chi.URLParam(r, "ticketId")); err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.MessageResponse{Message: "work estimate deleted"})
}

// decodeBulkItem reads one bulk item strictly. A failure is carried on the
// item so the service reports it at its index.
func decodeBulkItem(raw json.RawMessage) services.UpsertEstimateInput {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	var item dto.UpsertEstimateRequest
	err := dec.Decode(&item)
	if err == nil {
		return toUpsertInput(item)
	}

	// Keep the ticket id for the error entry when it is readable.
	var loose struct {
		TicketID any `json:"ticket_id"`
	}
	_ = json.Unmarshal(raw, &loose)
	ticketID, _ := loose.TicketID.(string)

	return services.UpsertEstimateInput{TicketID: ticketID, DecodeError: itemDecodeReason(err)}
}

func itemDecodeReason(err error) string {
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &typeErr) && typeErr.Field != "":
		return fmt.Sprintf("%s has the wrong type: got %s", typeErr.Field, typeErr.Value)
	case errors.As(err, &typeErr):
		return "estimate must be a json object"
	default:
		return strings.TrimPrefix(err.Error(), "json: ")
	}
}

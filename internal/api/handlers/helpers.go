package handlers

import (
	"encoding/json"
	"errors"
	"field-route-service/internal/api/dto"
	"field-route-service/internal/domain"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("encode failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("req_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, reason, msg string) {
	writeJSON(w, r, status, dto.ErrorResponse{Error: reason, Message: msg})
}

// writeServiceError maps a service error onto its HTTP status and stable reason.
// Internal details are logged, never returned.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	reason := domain.ReasonOf(err)

	msg := "internal error"
	var de *domain.Error
	if errors.As(err, &de) && reason != domain.ReasonInternal {
		msg = de.Message
	}

	var status int
	switch reason {
	case domain.ReasonValidation:
		status = http.StatusBadRequest
	case domain.ReasonNotFound:
		status = http.StatusNotFound
	case domain.ReasonProvider:
		status = http.StatusBadGateway
	case domain.ReasonTimeout:
		status = http.StatusGatewayTimeout
	default:
		status = http.StatusInternalServerError
	}

	if status >= http.StatusInternalServerError {
		zap.L().Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("req_id", middleware.GetReqID(r.Context())),
			zap.String("reason", reason),
			zap.Error(err),
		)
	}

	writeError(w, r, status, reason, msg)
}

// decodeJSON reads exactly one JSON object into dst and rejects unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			writeError(w, r, http.StatusBadRequest, domain.ReasonValidation, "request body is required")
		case errors.As(err, &maxErr):
			writeError(w, r, http.StatusBadRequest, domain.ReasonValidation, "request body too large")
		default:
			writeError(w, r, http.StatusBadRequest, domain.ReasonValidation, "invalid json body: "+err.Error())
		}
		return false
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeError(w, r, http.StatusBadRequest, domain.ReasonValidation, "request body must contain a single json object")
		return false
	}

	return true
}

// NotFound answers unknown paths and methods.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusNotFound, domain.ReasonNotFound, "route not found")
}

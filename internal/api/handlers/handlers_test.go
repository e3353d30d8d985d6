package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"field-route-service/internal/api/dto"
	"field-route-service/internal/domain"
	"field-route-service/internal/services"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubOptimizer struct {
	err     error
	timeout time.Duration
}

func (s *stubOptimizer) OptimizeSync(_ context.Context, _ services.OptimizeParams, timeout time.Duration) (*domain.OptimizationResult, error) {
	s.timeout = timeout
	if s.err != nil {
		return nil, s.err
	}
	return &domain.OptimizationResult{}, nil
}

func TestWriteServiceErrorMapping(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		reason  string
		message string
	}{
		{"validation", domain.Validationf("date must be YYYY-MM-DD"), http.StatusBadRequest, domain.ReasonValidation, "date must be YYYY-MM-DD"},
		{"not found", domain.NotFoundf("garage not found"), http.StatusNotFound, domain.ReasonNotFound, "garage not found"},
		{"provider", domain.ProviderErr(errors.New("503"), "travel-time provider failed"), http.StatusBadGateway, domain.ReasonProvider, "travel-time provider failed"},
		{"timeout", domain.TimeoutErr(context.DeadlineExceeded, "optimization timed out"), http.StatusGatewayTimeout, domain.ReasonTimeout, "optimization timed out"},
		{"internal", errors.New("pq: connection refused"), http.StatusInternalServerError, domain.ReasonInternal, "internal error"},
		{"wrapped internal", domain.Internalf(errors.New("boom"), "secret detail"), http.StatusInternalServerError, domain.ReasonInternal, "internal error"},
	}

	for _, tc := range cases {
		tc := tc // per-iteration copy (Go 1.22 loop semantics)
		t.Run(tc.name, func(t *testing.T) {
			stub := &stubOptimizer{err: tc.err}
			h := &OptimizeHandler{Optimizer: stub, SyncTimeout: 3 * time.Second}

			req := httptest.NewRequest(http.MethodPost, "/optimize", strings.NewReader(`{"date":"2025-03-14"}`))
			rec := httptest.NewRecorder()
			h.Optimize(rec, req)

			require.Equal(t, tc.status, rec.Code)
			var body dto.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.reason, body.Error)
			assert.Equal(t, tc.message, body.Message)
			assert.Equal(t, 3*time.Second, stub.timeout)
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	cases := []struct {
		name string
		body string
		ok   bool
	}{
		{"valid", `{"name":"a"}`, true},
		{"empty", ``, false},
		{"unknown field", `{"nom":"a"}`, false},
		{"trailing object", `{"name":"a"} {"name":"b"}`, false},
		{"too large", `{"name":"` + strings.Repeat("x", maxBodyBytes) + `"}`, false},
	}

	for _, tc := range cases {
		tc := tc // per-iteration copy (Go 1.22 loop semantics)
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()

			var p payload
			assert.Equal(t, tc.ok, decodeJSON(rec, req, &p))
			if !tc.ok {
				assert.Equal(t, http.StatusBadRequest, rec.Code)
			}
		})
	}
}

func TestJobResponseShape(t *testing.T) {
	reason, msg := domain.ReasonProvider, "travel-time provider failed"
	failed := dto.NewJobResponse(&domain.OptimizationJob{
		ID: "j1", Status: domain.JobFailed, ErrorReason: &reason, Error: &msg,
		Result: &domain.OptimizationResult{},
	})
	assert.Nil(t, failed.Result)
	require.NotNil(t, failed.Error)
	assert.Equal(t, reason, failed.Error.Reason)

	processing := dto.NewJobResponse(&domain.OptimizationJob{ID: "j2", Status: domain.JobProcessing})
	assert.Nil(t, processing.Result)
	assert.Nil(t, processing.Error)

	done := dto.NewJobResponse(&domain.OptimizationJob{ID: "j3", Status: domain.JobCompleted, Result: &domain.OptimizationResult{}})
	require.NotNil(t, done.Result)
	assert.NotNil(t, done.Result.Routes)
	assert.NotNil(t, done.Result.Skipped)
}

package api

import (
	"field-route-service/internal/api/handlers"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Deps are the services the HTTP layer talks to.
type Deps struct {
	Optimizer   handlers.SyncOptimizer
	Jobs        JobService
	Calculator  handlers.RouteCalculator
	Estimates   handlers.EstimateService
	SyncTimeout time.Duration
	JWTSecret   string
}

// JobService is the slice of the job manager the API needs.
type JobService interface {
	handlers.JobEnqueuer
	handlers.JobReader
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// Handlers stay unaware of concrete adapters.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.NotFound(handlers.NotFound)
	r.MethodNotAllowed(handlers.NotFound)

	optimize := &handlers.OptimizeHandler{
		Optimizer:   d.Optimizer,
		Jobs:        d.Jobs,
		SyncTimeout: d.SyncTimeout,
	}
	jobs := &handlers.JobHandler{Jobs: d.Jobs}
	calculate := &handlers.CalculateHandler{Calculator: d.Calculator}
	estimates := &handlers.WorkEstimateHandler{Estimates: d.Estimates}

	r.Get("/health", handlers.Health)

	r.Group(func(r chi.Router) {
		r.Use(RequireLevel(d.JWTSecret, 1))

		r.Post("/optimize", optimize.Optimize)
		r.Post("/optimize/async", optimize.OptimizeAsync)
		r.Get("/jobs/{jobId}", jobs.Get)
		r.Post("/calculate", calculate.Calculate)

		r.Post("/work-estimates", estimates.Upsert)
		r.Post("/work-estimates/bulk", estimates.BulkUpsert)
		r.Get("/work-estimates/ticket/{ticketId}", estimates.GetByTicket)
		r.Delete("/work-estimates/ticket/{ticketId}", estimates.DeleteByTicket)
		r.Get("/work-estimates/date/{date}", estimates.GetByDate)
	})

	return r
}

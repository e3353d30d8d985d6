package ports

import (
	"context"
	"field-route-service/internal/domain"
	"time"
)

// Port: read access to garages owned by fleet management.
type GarageRepository interface {
	// Return the garage or an error wrapping domain.ErrNotFound.
	GetGarage(ctx context.Context, id string) (*domain.Garage, error)
}

// Port: read access to tickets owned by the ticketing side.
type TicketRepository interface {
	// Return tickets scheduled on date, ordered by id.
	ListScheduled(ctx context.Context, date time.Time) ([]*domain.Ticket, error)
	// Return the tickets that exist among ids, keyed by id.
	GetTickets(ctx context.Context, ids []string) (map[string]*domain.Ticket, error)
	TicketExists(ctx context.Context, id string) (bool, error)
}

// Port: durable per-ticket work estimates.
type WorkEstimateRepository interface {
	// Insert or update the estimate for its ticket; isNew reports whether a row was created.
	UpsertEstimate(ctx context.Context, e domain.WorkEstimate) (_ *domain.WorkEstimate, isNew bool, err error)
	// Return the estimate or an error wrapping domain.ErrNotFound.
	GetEstimate(ctx context.Context, ticketID string) (*domain.WorkEstimate, error)
	// Return the estimates among ticketIDs, keyed by ticket id.
	GetEstimates(ctx context.Context, ticketIDs []string) (map[string]*domain.WorkEstimate, error)
	// Return estimates of tickets scheduled on date.
	ListEstimatesByDate(ctx context.Context, date time.Time) ([]*domain.WorkEstimate, error)
	// Delete the estimate; deleting a missing estimate is not an error.
	DeleteEstimate(ctx context.Context, ticketID string) error
}

// Port: durable optimization jobs with atomic per-row transitions.
type JobRepository interface {
	CreateJob(ctx context.Context, job *domain.OptimizationJob) error
	// Return the job or an error wrapping domain.ErrNotFound.
	GetJob(ctx context.Context, id string) (*domain.OptimizationJob, error)
	// Move a pending job to processing for workerID. Returns false if the job was not pending.
	ClaimJob(ctx context.Context, id, workerID string, now time.Time) (bool, error)
	// Complete a job still claimed by workerID. Returns false if the claim was lost.
	CompleteJob(ctx context.Context, id, workerID string, result *domain.OptimizationResult, now time.Time) (bool, error)
	// Fail a job still claimed by workerID. Returns false if the claim was lost.
	FailJob(ctx context.Context, id, workerID, reason, message string, now time.Time) (bool, error)
	// Return a job still claimed by workerID to pending. Returns false if the claim was lost.
	ReleaseJob(ctx context.Context, id, workerID string) (bool, error)
	// Return ids of pending jobs created before olderThan, oldest first.
	ListPendingJobs(ctx context.Context, olderThan time.Time, limit int) ([]string, error)
	// Fail processing jobs claimed before claimedBefore; returns how many were failed.
	ExpireStaleJobs(ctx context.Context, claimedBefore time.Time, reason, message string, now time.Time) (int, error)
}

// Port: transport of job ids from the request path to workers.
type JobQueue interface {
	Push(ctx context.Context, jobID string) error
	// Pop blocks up to wait for a job id; it returns "" when none arrived.
	Pop(ctx context.Context, wait time.Duration) (string, error)
}

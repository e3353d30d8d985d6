package domain

import (
	"encoding/json"
	"time"
)

type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

func (s JobStatus) Terminal() bool { return s == JobCompleted || s == JobFailed }

// OptimizationJob tracks one asynchronous optimizer run.
//
// Status moves pending -> processing -> completed|failed, each step exactly once.
// Result is set only when completed; Error and ErrorReason only when failed.
type OptimizationJob struct {
	ID          string
	Status      JobStatus
	GarageID    string
	Date        string
	InputParams json.RawMessage
	Result      *OptimizationResult
	Error       *string
	ErrorReason *string
	ClaimedBy   *string
	ClaimedAt   *time.Time
	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}

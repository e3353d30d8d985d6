package dto

import (
	"field-route-service/internal/domain"
	"time"
)

type EnqueueResponse struct {
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
	PollURL string `json:"poll_url"`
}

type JobError struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

type JobResponse struct {
	ID          string            `json:"id"`
	Status      string            `json:"status"`
	GarageID    string            `json:"garage_id"`
	Date        string            `json:"date"`
	Result      *OptimizeResponse `json:"result,omitempty"`
	Error       *JobError         `json:"error,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	StartedAt   *time.Time        `json:"started_at,omitempty"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
}

func NewJobResponse(j *domain.OptimizationJob) JobResponse {
	res := JobResponse{
		ID:          j.ID,
		Status:      string(j.Status),
		GarageID:    j.GarageID,
		Date:        j.Date,
		CreatedAt:   j.CreatedAt,
		StartedAt:   j.StartedAt,
		CompletedAt: j.CompletedAt,
	}

	if j.Status == domain.JobCompleted && j.Result != nil {
		r := NewOptimizeResponse(j.Result)
		res.Result = &r
	}

	if j.Status == domain.JobFailed {
		e := &JobError{Reason: domain.ReasonInternal}
		if j.ErrorReason != nil {
			e.Reason = *j.ErrorReason
		}
		if j.Error != nil {
			e.Message = *j.Error
		}
		res.Error = e
	}

	return res
}

package services

import (
	"context"
	"encoding/json"
	"errors"
	"field-route-service/internal/domain"
	"field-route-service/internal/ports"
	"fmt"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	ReasonLeaseExpired = "worker_lease_expired"
	sweepBatchSize     = 50
	popErrorBackoff    = time.Second
	finalizeTimeout    = 10 * time.Second
)

// OptimizationRunner is the optimizer as seen by the job manager.
type OptimizationRunner interface {
	Validate(p OptimizeParams) error
	Optimize(ctx context.Context, p OptimizeParams) (*domain.OptimizationResult, error)
}

type JobManagerConfig struct {
	Workers       int
	JobTimeout    time.Duration
	Lease         time.Duration
	SweepInterval time.Duration
	PendingGrace  time.Duration
	PopWait       time.Duration
}

type EnqueueResult struct {
	JobID   string           `json:"job_id"`
	Status  domain.JobStatus `json:"status"`
	PollURL string           `json:"poll_url"`
}

// JobManager owns optimization job rows: it enqueues, claims, runs and
// finalizes them. Workers and the sweeper race only through the
// repository's conditional transitions.
type JobManager struct {
	jobs     ports.JobRepository
	queue    ports.JobQueue
	runner   OptimizationRunner
	cfg      JobManagerConfig
	instance string
	now      func() time.Time
}

func NewJobManager(jobs ports.JobRepository, queue ports.JobQueue, runner OptimizationRunner, cfg JobManagerConfig) *JobManager {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 5 * time.Minute
	}
	if cfg.Lease <= cfg.JobTimeout {
		cfg.Lease = 2 * cfg.JobTimeout
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 30 * time.Second
	}
	if cfg.PendingGrace <= 0 {
		cfg.PendingGrace = time.Minute
	}
	if cfg.PopWait <= 0 {
		cfg.PopWait = 5 * time.Second
	}

	host, _ := os.Hostname()
	if host == "" {
		host = "worker"
	}

	return &JobManager{
		jobs:     jobs,
		queue:    queue,
		runner:   runner,
		cfg:      cfg,
		instance: fmt.Sprintf("%s-%s", host, uuid.NewString()[:8]),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Enqueue validates params, records a pending job and hands its id to the queue.
// An invalid request never creates a job.
func (m *JobManager) Enqueue(ctx context.Context, p OptimizeParams) (*EnqueueResult, error) {
	if err := m.runner.Validate(p); err != nil {
		return nil, err
	}

	params, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("enqueue: encode params: %w", err)
	}

	job := &domain.OptimizationJob{
		ID:          uuid.NewString(),
		Status:      domain.JobPending,
		GarageID:    strings.ToLower(strings.TrimSpace(p.GarageID)),
		Date:        strings.TrimSpace(p.Date),
		InputParams: params,
		CreatedAt:   m.now(),
	}
	if err := m.jobs.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("enqueue: %w", err)
	}

	if err := m.queue.Push(ctx, job.ID); err != nil {
		// The sweeper picks up pending jobs the queue never delivered.
		zap.L().Warn("job queue push failed; left for sweeper",
			zap.String("job_id", job.ID),
			zap.Error(err),
		)
	}

	zap.L().Info("optimization job enqueued", zap.String("job_id", job.ID))

	return &EnqueueResult{
		JobID:   job.ID,
		Status:  domain.JobPending,
		PollURL: "/jobs/" + job.ID,
	}, nil
}

// Get returns the job as stored. It never changes job state.
func (m *JobManager) Get(ctx context.Context, id string) (*domain.OptimizationJob, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.Validationf("job id must be a valid UUID")
	}
	return m.jobs.GetJob(ctx, parsed.String())
}

// Process claims and runs one job. A job that is no longer pending is skipped.
func (m *JobManager) Process(ctx context.Context, jobID, workerID string) error {
	log := zap.L().With(zap.String("job_id", jobID), zap.String("worker_id", workerID))

	claimed, err := m.jobs.ClaimJob(ctx, jobID, workerID, m.now())
	if err != nil {
		return fmt.Errorf("process job %s: claim: %w", jobID, err)
	}
	if !claimed {
		log.Debug("job not claimable; skipping")
		return nil
	}

	job, err := m.jobs.GetJob(ctx, jobID)
	if err != nil {
		return m.fail(ctx, jobID, workerID, fmt.Errorf("load claimed job: %w", err))
	}

	var p OptimizeParams
	if err := json.Unmarshal(job.InputParams, &p); err != nil {
		return m.fail(ctx, jobID, workerID, domain.Validationf("stored job params are unreadable: %v", err))
	}

	start := time.Now()
	result, runErr := m.run(ctx, p)
	if runErr != nil && ctx.Err() != nil {
		// The worker is stopping, not the job failing.
		return m.release(ctx, jobID, workerID)
	}
	if runErr != nil {
		log.Warn("optimization job failed",
			zap.String("reason", domain.ReasonOf(runErr)),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(runErr),
		)
		return m.fail(ctx, jobID, workerID, runErr)
	}

	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()

	ok, err := m.jobs.CompleteJob(fctx, jobID, workerID, result, m.now())
	if err != nil {
		return fmt.Errorf("process job %s: complete: %w", jobID, err)
	}
	if !ok {
		log.Warn("job claim lost before completion; result discarded")
		return nil
	}

	log.Info("optimization job completed",
		zap.Int("routes", result.Summary.TotalRoutes),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// run executes the optimizer under the job deadline and converts panics into errors.
func (m *JobManager) run(ctx context.Context, p OptimizeParams) (res *domain.OptimizationResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("optimizer panic",
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
			res, err = nil, domain.Internalf(nil, "optimizer panicked: %v", r)
		}
	}()

	jctx, cancel := context.WithTimeout(ctx, m.cfg.JobTimeout)
	defer cancel()

	return m.runner.Optimize(jctx, p)
}

// release returns an interrupted job to pending and re-queues it. The sweeper
// picks it up if the push is lost.
func (m *JobManager) release(ctx context.Context, jobID, workerID string) error {
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()

	ok, err := m.jobs.ReleaseJob(fctx, jobID, workerID)
	if err != nil {
		return fmt.Errorf("process job %s: release: %w", jobID, err)
	}
	if !ok {
		zap.L().Warn("job claim lost before release", zap.String("job_id", jobID))
		return nil
	}

	if err := m.queue.Push(fctx, jobID); err != nil {
		zap.L().Warn("re-queue of released job failed; sweeper will retry",
			zap.String("job_id", jobID), zap.Error(err))
	}
	zap.L().Info("job released on shutdown", zap.String("job_id", jobID), zap.String("worker_id", workerID))
	return nil
}

func (m *JobManager) fail(ctx context.Context, jobID, workerID string, cause error) error {
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()

	reason := domain.ReasonOf(cause)
	message := cause.Error()
	var de *domain.Error
	if errors.As(cause, &de) {
		message = de.Message
	}

	ok, err := m.jobs.FailJob(fctx, jobID, workerID, reason, message, m.now())
	if err != nil {
		return fmt.Errorf("process job %s: fail: %w", jobID, err)
	}
	if !ok {
		zap.L().Warn("job claim lost before failure was recorded", zap.String("job_id", jobID))
	}
	return nil
}

// Sweep expires jobs whose worker lease ran out and runs pending jobs the
// queue never delivered. It is safe to call from any number of processes.
func (m *JobManager) Sweep(ctx context.Context) error {
	now := m.now()

	expired, err := m.jobs.ExpireStaleJobs(ctx, now.Add(-m.cfg.Lease), ReasonLeaseExpired,
		"worker lease expired before the job finished", now)
	if err != nil {
		return fmt.Errorf("sweep: expire stale jobs: %w", err)
	}
	if expired > 0 {
		zap.L().Warn("expired stale optimization jobs", zap.Int("count", expired))
	}

	ids, err := m.jobs.ListPendingJobs(ctx, now.Add(-m.cfg.PendingGrace), sweepBatchSize)
	if err != nil {
		return fmt.Errorf("sweep: list pending jobs: %w", err)
	}

	sweeperID := m.instance + "-sweeper"
	for _, id := range ids {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := m.Process(ctx, id, sweeperID); err != nil {
			zap.L().Error("sweeper failed to process job", zap.String("job_id", id), zap.Error(err))
		}
	}

	return nil
}

// Run starts the workers and the sweeper and blocks until ctx is cancelled.
func (m *JobManager) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	for i := 0; i < m.cfg.Workers; i++ {
		workerID := fmt.Sprintf("%s-w%d", m.instance, i+1)
		g.Go(func() error {
			m.work(gctx, workerID)
			return nil
		})
	}

	g.Go(func() error {
		ticker := time.NewTicker(m.cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if err := m.Sweep(gctx); err != nil && gctx.Err() == nil {
					zap.L().Error("job sweep failed", zap.Error(err))
				}
			}
		}
	})

	zap.L().Info("job workers started", zap.Int("workers", m.cfg.Workers), zap.String("instance", m.instance))
	err := g.Wait()
	zap.L().Info("job workers stopped")
	return err
}

func (m *JobManager) work(ctx context.Context, workerID string) {
	for ctx.Err() == nil {
		id, err := m.queue.Pop(ctx, m.cfg.PopWait)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			zap.L().Error("job queue pop failed", zap.String("worker_id", workerID), zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(popErrorBackoff):
			}
			continue
		}
		if id == "" {
			continue
		}

		if err := m.Process(ctx, id, workerID); err != nil {
			zap.L().Error("job processing failed", zap.String("job_id", id), zap.Error(err))
		}
	}
}

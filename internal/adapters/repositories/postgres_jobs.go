package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"field-route-service/internal/domain"
	"field-route-service/internal/platform/obs"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// PostgreSQL-backed implementation of the JobRepository port.
//
// Every status transition is a single conditional UPDATE so concurrent
// workers and the sweeper cannot both move the same row.
type PostgresJobRepository struct{ DB *sqlx.DB }

func NewPostgresJobRepository(db *sqlx.DB) *PostgresJobRepository {
	return &PostgresJobRepository{DB: db}
}

type jobRow struct {
	ID          string     `db:"id"`
	Status      string     `db:"status"`
	GarageID    string     `db:"garage_id"`
	Date        time.Time  `db:"date"`
	InputParams []byte     `db:"input_params"`
	Result      []byte     `db:"result"`
	Error       *string    `db:"error"`
	ErrorReason *string    `db:"error_reason"`
	ClaimedBy   *string    `db:"claimed_by"`
	ClaimedAt   *time.Time `db:"claimed_at"`
	CreatedAt   time.Time  `db:"created_at"`
	StartedAt   *time.Time `db:"started_at"`
	CompletedAt *time.Time `db:"completed_at"`
}

func (r jobRow) toDomain() (*domain.OptimizationJob, error) {
	job := &domain.OptimizationJob{
		ID:          r.ID,
		Status:      domain.JobStatus(r.Status),
		GarageID:    r.GarageID,
		Date:        r.Date.Format(time.DateOnly),
		InputParams: json.RawMessage(r.InputParams),
		Error:       r.Error,
		ErrorReason: r.ErrorReason,
		ClaimedBy:   r.ClaimedBy,
		ClaimedAt:   r.ClaimedAt,
		CreatedAt:   r.CreatedAt,
		StartedAt:   r.StartedAt,
		CompletedAt: r.CompletedAt,
	}

	if len(r.Result) > 0 {
		var res domain.OptimizationResult
		if err := json.Unmarshal(r.Result, &res); err != nil {
			return nil, fmt.Errorf("decode job %s result: %w", r.ID, err)
		}
		job.Result = &res
	}

	return job, nil
}

func (s *PostgresJobRepository) CreateJob(ctx context.Context, job *domain.OptimizationJob) (err error) {
	defer obs.Time(ctx, "jobs.CreateJob")(&err)

	if s.DB == nil {
		return errors.New("postgres job repository: DB is nil")
	}

	query := `
	INSERT INTO optimization_jobs (id, status, garage_id, date, input_params, created_at)
	VALUES ($1, $2, $3, $4, $5, $6);
	`

	params := []byte(job.InputParams)
	if len(params) == 0 {
		params = []byte("{}")
	}

	_, err = s.DB.ExecContext(ctx, query,
		job.ID, string(job.Status), job.GarageID, job.Date, params, job.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create job id=%s: %w", job.ID, err)
	}

	return nil
}

func (s *PostgresJobRepository) GetJob(ctx context.Context, id string) (_ *domain.OptimizationJob, err error) {
	defer obs.Time(ctx, "jobs.GetJob")(&err)

	if s.DB == nil {
		return nil, errors.New("postgres job repository: DB is nil")
	}

	query := `
	SELECT id, status, garage_id, date, input_params, result, error, error_reason,
		claimed_by, claimed_at, created_at, started_at, completed_at
	FROM optimization_jobs
	WHERE id = $1;
	`

	var row jobRow
	if err := s.DB.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundf("job %s not found", id)
		}
		return nil, fmt.Errorf("get job: query optimization_jobs table: %w", err)
	}

	return row.toDomain()
}

func (s *PostgresJobRepository) ClaimJob(ctx context.Context, id, workerID string, now time.Time) (_ bool, err error) {
	defer obs.Time(ctx, "jobs.ClaimJob")(&err)

	query := `
	UPDATE optimization_jobs
	SET status = 'processing', claimed_by = $2, claimed_at = $3, started_at = $3
	WHERE id = $1 AND status = 'pending';
	`

	return s.execTransition(ctx, "claim job", query, id, workerID, now)
}

func (s *PostgresJobRepository) CompleteJob(
	ctx context.Context,
	id, workerID string,
	result *domain.OptimizationResult,
	now time.Time,
) (_ bool, err error) {
	defer obs.Time(ctx, "jobs.CompleteJob")(&err)

	payload, err := json.Marshal(result)
	if err != nil {
		return false, fmt.Errorf("complete job id=%s: encode result: %w", id, err)
	}

	query := `
	UPDATE optimization_jobs
	SET status = 'completed', result = $3, completed_at = $4
	WHERE id = $1 AND status = 'processing' AND claimed_by = $2;
	`

	return s.execTransition(ctx, "complete job", query, id, workerID, payload, now)
}

func (s *PostgresJobRepository) FailJob(
	ctx context.Context,
	id, workerID, reason, message string,
	now time.Time,
) (_ bool, err error) {
	defer obs.Time(ctx, "jobs.FailJob")(&err)

	query := `
	UPDATE optimization_jobs
	SET status = 'failed', error = $4, error_reason = $3, completed_at = $5
	WHERE id = $1 AND status = 'processing' AND claimed_by = $2;
	`

	return s.execTransition(ctx, "fail job", query, id, workerID, reason, message, now)
}

// Hand an interrupted job back to the sweeper.
func (s *PostgresJobRepository) ReleaseJob(ctx context.Context, id, workerID string) (_ bool, err error) {
	defer obs.Time(ctx, "jobs.ReleaseJob")(&err)

	query := `
	UPDATE optimization_jobs
	SET status = 'pending', claimed_by = NULL, claimed_at = NULL, started_at = NULL
	WHERE id = $1 AND status = 'processing' AND claimed_by = $2;
	`

	return s.execTransition(ctx, "release job", query, id, workerID)
}

// Return ids of pending jobs created before olderThan, oldest first.
func (s *PostgresJobRepository) ListPendingJobs(
	ctx context.Context,
	olderThan time.Time,
	limit int,
) (_ []string, err error) {
	defer obs.Time(ctx, "jobs.ListPendingJobs")(&err)

	if s.DB == nil {
		return nil, errors.New("postgres job repository: DB is nil")
	}

	query := `
	SELECT id
	FROM optimization_jobs
	WHERE status = 'pending' AND created_at < $1
	ORDER BY created_at
	LIMIT $2;
	`

	var ids []string
	if err := s.DB.SelectContext(ctx, &ids, query, olderThan, limit); err != nil {
		return nil, fmt.Errorf("list pending jobs: %w", err)
	}

	return ids, nil
}

// Fail processing jobs whose lease expired.
func (s *PostgresJobRepository) ExpireStaleJobs(
	ctx context.Context,
	claimedBefore time.Time,
	reason, message string,
	now time.Time,
) (_ int, err error) {
	defer obs.Time(ctx, "jobs.ExpireStaleJobs")(&err)

	if s.DB == nil {
		return 0, errors.New("postgres job repository: DB is nil")
	}

	query := `
	UPDATE optimization_jobs
	SET status = 'failed', error = $3, error_reason = $2, completed_at = $4
	WHERE status = 'processing' AND claimed_at < $1;
	`

	res, err := s.DB.ExecContext(ctx, query, claimedBefore, reason, message, now)
	if err != nil {
		return 0, fmt.Errorf("expire stale jobs: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expire stale jobs: rows affected: %w", err)
	}

	return int(n), nil
}

func (s *PostgresJobRepository) execTransition(ctx context.Context, op, query string, args ...any) (bool, error) {
	if s.DB == nil {
		return false, errors.New("postgres job repository: DB is nil")
	}

	res, err := s.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("%s id=%v: %w", op, args[0], err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: rows affected: %w", op, err)
	}

	return n == 1, nil
}

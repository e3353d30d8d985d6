package repositories

import (
	"context"
	"database/sql"
	"errors"
	"field-route-service/internal/domain"
	"field-route-service/internal/platform/obs"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// PostgreSQL-backed implementation of the WorkEstimateRepository port.
type PostgresWorkEstimateRepository struct{ DB *sqlx.DB }

func NewPostgresWorkEstimateRepository(db *sqlx.DB) *PostgresWorkEstimateRepository {
	return &PostgresWorkEstimateRepository{DB: db}
}

type estimateRow struct {
	TicketID         string    `db:"ticket_id"`
	EstimatedMinutes int       `db:"estimated_minutes"`
	Notes            *string   `db:"notes"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

func (r estimateRow) toDomain() *domain.WorkEstimate {
	return &domain.WorkEstimate{
		TicketID:         r.TicketID,
		EstimatedMinutes: r.EstimatedMinutes,
		Notes:            r.Notes,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

const estimateColumns = `ticket_id, estimated_minutes, notes, created_at, updated_at`

// Insert or update the estimate in a single statement.
// xmax is zero only for a freshly inserted row version.
func (s *PostgresWorkEstimateRepository) UpsertEstimate(
	ctx context.Context,
	e domain.WorkEstimate,
) (_ *domain.WorkEstimate, isNew bool, err error) {
	defer obs.Time(ctx, "estimates.UpsertEstimate")(&err)

	if s.DB == nil {
		return nil, false, errors.New("postgres work estimate repository: DB is nil")
	}
	if !domain.ValidEstimatedMinutes(e.EstimatedMinutes) {
		return nil, false, domain.Validationf(
			"estimated_minutes must be between %d and %d", domain.MinEstimatedMinutes, domain.MaxEstimatedMinutes,
		)
	}

	query := `
	INSERT INTO work_estimates (ticket_id, estimated_minutes, notes)
	VALUES ($1, $2, $3)
	ON CONFLICT (ticket_id) DO UPDATE
	SET estimated_minutes = EXCLUDED.estimated_minutes,
		notes = EXCLUDED.notes,
		updated_at = now()
	RETURNING ` + estimateColumns + `, (xmax = 0) AS is_new;
	`

	var row struct {
		estimateRow
		IsNew bool `db:"is_new"`
	}
	if err := s.DB.GetContext(ctx, &row, query, e.TicketID, e.EstimatedMinutes, e.Notes); err != nil {
		return nil, false, fmt.Errorf("upsert work estimate ticket_id=%s: %w", e.TicketID, err)
	}

	return row.toDomain(), row.IsNew, nil
}

func (s *PostgresWorkEstimateRepository) GetEstimate(ctx context.Context, ticketID string) (_ *domain.WorkEstimate, err error) {
	defer obs.Time(ctx, "estimates.GetEstimate")(&err)

	if s.DB == nil {
		return nil, errors.New("postgres work estimate repository: DB is nil")
	}

	var row estimateRow
	query := `SELECT ` + estimateColumns + ` FROM work_estimates WHERE ticket_id = $1;`
	if err := s.DB.GetContext(ctx, &row, query, ticketID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundf("work estimate for ticket %s not found", ticketID)
		}
		return nil, fmt.Errorf("get work estimate: query work_estimates table: %w", err)
	}

	return row.toDomain(), nil
}

// Return the estimates among ticketIDs, keyed by ticket id.
func (s *PostgresWorkEstimateRepository) GetEstimates(
	ctx context.Context,
	ticketIDs []string,
) (_ map[string]*domain.WorkEstimate, err error) {
	defer obs.Time(ctx, "estimates.GetEstimates")(&err)

	if s.DB == nil {
		return nil, errors.New("postgres work estimate repository: DB is nil")
	}

	out := make(map[string]*domain.WorkEstimate, len(ticketIDs))
	if len(ticketIDs) == 0 {
		return out, nil
	}

	var rows []estimateRow
	query := `SELECT ` + estimateColumns + ` FROM work_estimates WHERE ticket_id = ANY($1::uuid[]);`
	if err := s.DB.SelectContext(ctx, &rows, query, ticketIDs); err != nil {
		return nil, fmt.Errorf("get work estimates: query work_estimates table: %w", err)
	}

	for _, r := range rows {
		out[r.TicketID] = r.toDomain()
	}

	return out, nil
}

// Return estimates of tickets scheduled on date, ordered by ticket id.
func (s *PostgresWorkEstimateRepository) ListEstimatesByDate(
	ctx context.Context,
	date time.Time,
) (_ []*domain.WorkEstimate, err error) {
	defer obs.Time(ctx, "estimates.ListEstimatesByDate")(&err)

	if s.DB == nil {
		return nil, errors.New("postgres work estimate repository: DB is nil")
	}

	query := `
	SELECT we.ticket_id, we.estimated_minutes, we.notes, we.created_at, we.updated_at
	FROM work_estimates we
	JOIN tickets t ON t.id = we.ticket_id
	WHERE t.scheduled_date = $1
	ORDER BY we.ticket_id;
	`

	var rows []estimateRow
	if err := s.DB.SelectContext(ctx, &rows, query, date.Format(time.DateOnly)); err != nil {
		return nil, fmt.Errorf("list work estimates by date: %w", err)
	}

	estimates := make([]*domain.WorkEstimate, 0, len(rows))
	for _, r := range rows {
		estimates = append(estimates, r.toDomain())
	}

	return estimates, nil
}

func (s *PostgresWorkEstimateRepository) DeleteEstimate(ctx context.Context, ticketID string) (err error) {
	defer obs.Time(ctx, "estimates.DeleteEstimate")(&err)

	if s.DB == nil {
		return errors.New("postgres work estimate repository: DB is nil")
	}

	if _, err := s.DB.ExecContext(ctx, `DELETE FROM work_estimates WHERE ticket_id = $1;`, ticketID); err != nil {
		return fmt.Errorf("delete work estimate ticket_id=%s: %w", ticketID, err)
	}

	return nil
}

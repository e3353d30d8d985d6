package repositories

import (
	"context"
	"errors"
	"field-route-service/internal/domain"
	"field-route-service/internal/platform/obs"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// PostgreSQL-backed implementation of the TicketRepository port.
type PostgresTicketRepository struct{ DB *sqlx.DB }

func NewPostgresTicketRepository(db *sqlx.DB) *PostgresTicketRepository {
	return &PostgresTicketRepository{DB: db}
}

type ticketRow struct {
	ID            string     `db:"id"`
	ScheduledDate *time.Time `db:"scheduled_date"`
	Lat           *float64   `db:"lat"`
	Lon           *float64   `db:"lon"`
}

func (r ticketRow) toDomain() *domain.Ticket {
	t := &domain.Ticket{ID: r.ID}
	if r.ScheduledDate != nil {
		t.ScheduledDate = *r.ScheduledDate
	}
	if r.Lat != nil && r.Lon != nil {
		t.Location = &domain.Coordinates{Lat: *r.Lat, Lon: *r.Lon}
	}
	return t
}

// Return tickets scheduled on date, ordered by id.
func (s *PostgresTicketRepository) ListScheduled(ctx context.Context, date time.Time) (_ []*domain.Ticket, err error) {
	defer obs.Time(ctx, "tickets.ListScheduled")(&err)

	if s.DB == nil {
		return nil, errors.New("postgres ticket repository: DB is nil")
	}

	query := `
	SELECT id, scheduled_date, lat, lon
	FROM tickets
	WHERE scheduled_date = $1
	ORDER BY id;
	`

	var rows []ticketRow
	if err := s.DB.SelectContext(ctx, &rows, query, date.Format(time.DateOnly)); err != nil {
		return nil, fmt.Errorf("list scheduled tickets: query tickets table: %w", err)
	}

	tickets := make([]*domain.Ticket, 0, len(rows))
	for _, r := range rows {
		tickets = append(tickets, r.toDomain())
	}

	return tickets, nil
}

// Return the tickets that exist among ids, keyed by id.
func (s *PostgresTicketRepository) GetTickets(ctx context.Context, ids []string) (_ map[string]*domain.Ticket, err error) {
	defer obs.Time(ctx, "tickets.GetTickets")(&err)

	if s.DB == nil {
		return nil, errors.New("postgres ticket repository: DB is nil")
	}

	out := make(map[string]*domain.Ticket, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	query := `
	SELECT id, scheduled_date, lat, lon
	FROM tickets
	WHERE id = ANY($1::uuid[]);
	`

	var rows []ticketRow
	if err := s.DB.SelectContext(ctx, &rows, query, ids); err != nil {
		return nil, fmt.Errorf("get tickets: query tickets table: %w", err)
	}

	for _, r := range rows {
		out[r.ID] = r.toDomain()
	}

	return out, nil
}

func (s *PostgresTicketRepository) TicketExists(ctx context.Context, id string) (bool, error) {
	if s.DB == nil {
		return false, errors.New("postgres ticket repository: DB is nil")
	}

	var exists bool
	if err := s.DB.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM tickets WHERE id = $1);`, id); err != nil {
		return false, fmt.Errorf("ticket exists: query tickets table: %w", err)
	}

	return exists, nil
}

package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Initialize the PostgreSQL database schema.
//
// garages and tickets are owned by other services in production; they are
// created here so a standalone deployment and the seeding tool have somewhere to write.
func InitSchema(ctx context.Context, db *sqlx.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createGaragesQuery := `
	CREATE TABLE IF NOT EXISTS garages (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		lat DOUBLE PRECISION NOT NULL,
		lon DOUBLE PRECISION NOT NULL,
		radius_meters INTEGER NOT NULL DEFAULT 0,
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	);
	`

	createTicketsQuery := `
	CREATE TABLE IF NOT EXISTS tickets (
		id UUID PRIMARY KEY,
		scheduled_date DATE,
		lat DOUBLE PRECISION,
		lon DOUBLE PRECISION
	);
	`

	createWorkEstimatesQuery := `
	CREATE TABLE IF NOT EXISTS work_estimates (
		ticket_id UUID PRIMARY KEY REFERENCES tickets(id) ON DELETE CASCADE,
		estimated_minutes INTEGER NOT NULL CHECK (estimated_minutes BETWEEN 1 AND 480),
		notes TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	`

	createJobsQuery := `
	CREATE TABLE IF NOT EXISTS optimization_jobs (
		id UUID PRIMARY KEY,
		status TEXT NOT NULL CHECK (status IN ('pending', 'processing', 'completed', 'failed')),
		garage_id UUID NOT NULL,
		date DATE NOT NULL,
		input_params JSONB NOT NULL,
		result JSONB,
		error TEXT,
		error_reason TEXT,
		claimed_by TEXT,
		claimed_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		started_at TIMESTAMPTZ,
		completed_at TIMESTAMPTZ
	);
	`

	createTravelCacheQuery := `
	CREATE TABLE IF NOT EXISTS travel_time_cache (
		origin_key TEXT NOT NULL,
		destination_key TEXT NOT NULL,
		distance_meters INTEGER NOT NULL,
		duration_seconds INTEGER NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (origin_key, destination_key)
	);
	`

	statements := []string{
		createGaragesQuery,
		createTicketsQuery,
		createWorkEstimatesQuery,
		createJobsQuery,
		createTravelCacheQuery,
		`CREATE INDEX IF NOT EXISTS idx_tickets_scheduled_date ON tickets(scheduled_date);`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_status_created ON optimization_jobs(status, created_at);`,
	}

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

type GarageSeed struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Lat          float64 `json:"lat"`
	Lon          float64 `json:"lon"`
	RadiusMeters int     `json:"radius_meters"`
	IsActive     *bool   `json:"is_active"`
}

type TicketSeed struct {
	ID            string   `json:"id"`
	ScheduledDate string   `json:"scheduled_date"`
	Lat           *float64 `json:"lat"`
	Lon           *float64 `json:"lon"`
}

type EstimateSeed struct {
	TicketID         string  `json:"ticket_id"`
	EstimatedMinutes int     `json:"estimated_minutes"`
	Notes            *string `json:"notes"`
}

type SeedData struct {
	Garages       []GarageSeed   `json:"garages"`
	Tickets       []TicketSeed   `json:"tickets"`
	WorkEstimates []EstimateSeed `json:"work_estimates"`
}

// Validate checks seed rows before anything is written.
func (d SeedData) Validate() error {
	for i, g := range d.Garages {
		if _, err := uuid.Parse(g.ID); err != nil {
			return fmt.Errorf("garage at index %d: invalid id %q", i, g.ID)
		}
		if strings.TrimSpace(g.Name) == "" {
			return fmt.Errorf("garage at index %d: name cannot be empty", i)
		}
	}
	for i, t := range d.Tickets {
		if _, err := uuid.Parse(t.ID); err != nil {
			return fmt.Errorf("ticket at index %d: invalid id %q", i, t.ID)
		}
		if t.ScheduledDate != "" {
			if _, err := time.Parse(time.DateOnly, t.ScheduledDate); err != nil {
				return fmt.Errorf("ticket at index %d: invalid scheduled_date %q", i, t.ScheduledDate)
			}
		}
		if (t.Lat == nil) != (t.Lon == nil) {
			return fmt.Errorf("ticket at index %d: lat and lon must be set together", i)
		}
	}
	for i, e := range d.WorkEstimates {
		if _, err := uuid.Parse(e.TicketID); err != nil {
			return fmt.Errorf("work estimate at index %d: invalid ticket_id %q", i, e.TicketID)
		}
		if e.EstimatedMinutes < 1 || e.EstimatedMinutes > 480 {
			return fmt.Errorf("work estimate at index %d: estimated_minutes %d out of range", i, e.EstimatedMinutes)
		}
	}
	return nil
}

// Populate the database with garages, tickets and estimates from a JSON file.
func SeedFromJSON(ctx context.Context, db *sqlx.DB, jsonPath string) error {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return fmt.Errorf("seed: read %q: %w", jsonPath, err)
	}

	var data SeedData
	if err := json.Unmarshal(bytes, &data); err != nil {
		return fmt.Errorf("seed: parse json: %w", err)
	}

	if err := data.Validate(); err != nil {
		return fmt.Errorf("seed: %w", err)
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, g := range data.Garages {
		active := true
		if g.IsActive != nil {
			active = *g.IsActive
		}
		_, err := tx.ExecContext(ctx, `
		INSERT INTO garages (id, name, lat, lon, radius_meters, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
			lat = EXCLUDED.lat,
			lon = EXCLUDED.lon,
			radius_meters = EXCLUDED.radius_meters,
			is_active = EXCLUDED.is_active;
		`, g.ID, strings.TrimSpace(g.Name), g.Lat, g.Lon, g.RadiusMeters, active)
		if err != nil {
			return fmt.Errorf("seed: insert garage id=%s: %w", g.ID, err)
		}
	}

	for _, t := range data.Tickets {
		t := t // per-iteration copy (Go 1.22 loop semantics)
		var date *string
		if t.ScheduledDate != "" {
			date = &t.ScheduledDate
		}
		_, err := tx.ExecContext(ctx, `
		INSERT INTO tickets (id, scheduled_date, lat, lon)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET scheduled_date = EXCLUDED.scheduled_date,
			lat = EXCLUDED.lat,
			lon = EXCLUDED.lon;
		`, t.ID, date, t.Lat, t.Lon)
		if err != nil {
			return fmt.Errorf("seed: insert ticket id=%s: %w", t.ID, err)
		}
	}

	for _, e := range data.WorkEstimates {
		_, err := tx.ExecContext(ctx, `
		INSERT INTO work_estimates (ticket_id, estimated_minutes, notes)
		VALUES ($1, $2, $3)
		ON CONFLICT (ticket_id) DO UPDATE
		SET estimated_minutes = EXCLUDED.estimated_minutes,
			notes = EXCLUDED.notes,
			updated_at = now();
		`, e.TicketID, e.EstimatedMinutes, e.Notes)
		if err != nil {
			return fmt.Errorf("seed: insert work estimate ticket_id=%s: %w", e.TicketID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed: commit tx: %w", err)
	}

	return nil
}

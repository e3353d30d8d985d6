package cache

import (
	"context"
	"errors"
	"field-route-service/internal/platform/obs"
	"field-route-service/internal/ports"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// SQLTravelCache is a SQL-backed cache for origin->destination travel results.
// Keys are coordinate keys as rendered by domain.Coordinates.Key.
type SQLTravelCache struct {
	DB *sqlx.DB
}

func NewSQLTravelCache(db *sqlx.DB) *SQLTravelCache {
	return &SQLTravelCache{DB: db}
}

type travelRow struct {
	Destination     string `db:"destination_key"`
	DistanceMeters  int    `db:"distance_meters"`
	DurationSeconds int    `db:"duration_seconds"`
}

// Fetch cached travel results for one origin and multiple destinations.
func (s *SQLTravelCache) GetMany(
	ctx context.Context,
	origin string,
	destinations []string,
) (_ map[string]ports.TravelResult, err error) {
	defer obs.Time(ctx, "travel.cache.GetMany")(&err)

	if s.DB == nil {
		return nil, errors.New("travel cache: db is nil")
	}

	if origin == "" {
		return nil, errors.New("get travel cache: origin must not be empty")
	}

	seen := map[string]struct{}{}
	uniq := make([]string, 0, len(destinations))
	for _, d := range destinations {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}

		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		uniq = append(uniq, d)
	}

	if len(uniq) == 0 {
		return map[string]ports.TravelResult{}, nil
	}

	q := `
	SELECT destination_key, distance_meters, duration_seconds
	FROM travel_time_cache
	WHERE origin_key = $1
		AND destination_key = ANY($2::text[]);
	`

	var rows []travelRow
	if err := s.DB.SelectContext(ctx, &rows, q, origin, uniq); err != nil {
		return nil, fmt.Errorf("get travel cache: query travel_time_cache table: %w", err)
	}

	out := make(map[string]ports.TravelResult, len(rows))
	for _, r := range rows {
		out[r.Destination] = ports.TravelResult{
			DistanceMeters:  r.DistanceMeters,
			DurationSeconds: r.DurationSeconds,
		}
	}

	return out, nil
}

// Store many cached travel results for a single origin.
func (s *SQLTravelCache) PutMany(
	ctx context.Context,
	origin string,
	results map[string]ports.TravelResult,
) (err error) {
	defer obs.Time(ctx, "travel.cache.PutMany")(&err)

	if s.DB == nil {
		return errors.New("travel cache: db is nil")
	}

	if origin == "" {
		return errors.New("insert travel cache: origin must not be empty")
	}

	if len(results) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert travel cache: db begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PreparexContext(ctx, `
	INSERT INTO travel_time_cache (origin_key, destination_key, distance_meters, duration_seconds)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (origin_key, destination_key) DO UPDATE
	SET distance_meters = EXCLUDED.distance_meters,
		duration_seconds = EXCLUDED.duration_seconds,
		updated_at = now();
	`)
	if err != nil {
		return fmt.Errorf("insert travel cache: db prepare: %w", err)
	}
	defer stmt.Close()

	for dest, r := range results {
		if strings.TrimSpace(dest) == "" {
			return fmt.Errorf("insert travel cache: empty destination key")
		}

		if _, err := stmt.ExecContext(ctx, origin, dest, r.DistanceMeters, r.DurationSeconds); err != nil {
			return fmt.Errorf("insert travel cache dest=%q: %w", dest, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert travel cache commit: %w", err)
	}

	return nil
}

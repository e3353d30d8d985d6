package repositories

import (
	"context"
	"database/sql"
	"errors"
	"field-route-service/internal/domain"
	"field-route-service/internal/platform/obs"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// PostgreSQL-backed implementation of the GarageRepository port.
type PostgresGarageRepository struct{ DB *sqlx.DB }

func NewPostgresGarageRepository(db *sqlx.DB) *PostgresGarageRepository {
	return &PostgresGarageRepository{DB: db}
}

type garageRow struct {
	ID           string  `db:"id"`
	Name         string  `db:"name"`
	Lat          float64 `db:"lat"`
	Lon          float64 `db:"lon"`
	RadiusMeters int     `db:"radius_meters"`
	IsActive     bool    `db:"is_active"`
}

func (s *PostgresGarageRepository) GetGarage(ctx context.Context, id string) (_ *domain.Garage, err error) {
	defer obs.Time(ctx, "garages.GetGarage")(&err)

	if s.DB == nil {
		return nil, errors.New("postgres garage repository: DB is nil")
	}

	query := `
	SELECT id, name, lat, lon, radius_meters, is_active
	FROM garages
	WHERE id = $1;
	`

	var row garageRow
	if err := s.DB.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundf("garage %s not found", id)
		}
		return nil, fmt.Errorf("get garage: query garages table: %w", err)
	}

	return &domain.Garage{
		ID:           row.ID,
		Name:         row.Name,
		Location:     domain.Coordinates{Lat: row.Lat, Lon: row.Lon},
		RadiusMeters: row.RadiusMeters,
		IsActive:     row.IsActive,
	}, nil
}

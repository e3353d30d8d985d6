package ports

import (
	"context"
	"field-route-service/internal/domain"
	"time"
)

// Travel distance and duration between two locations.
type TravelResult struct {
	DistanceMeters  int
	DurationSeconds int
}

// Contract for retrieving travel distance and duration between coordinates.
// Implementations return an error wrapping domain.ErrProvider on rate-limit or
// network failure once their own retry budget is spent.
type TravelTimeProvider interface {
	// Return travel distance and estimated duration leaving origin at departAt.
	TravelTime(ctx context.Context, origin, destination domain.Coordinates, departAt time.Time) (TravelResult, error)
}

// Optional extension of TravelTimeProvider that supports batched lookups.
type TravelMatrixProvider interface {
	TravelTimeProvider
	// Return results from one origin to many destinations, index-aligned with destinations.
	TravelTimes(ctx context.Context, origin domain.Coordinates, destinations []domain.Coordinates, departAt time.Time) ([]TravelResult, error)
}

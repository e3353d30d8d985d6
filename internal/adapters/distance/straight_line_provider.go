package distance

import (
	"context"
	"field-route-service/internal/domain"
	"field-route-service/internal/ports"
	"math"
	"time"
)

const (
	defaultSpeedKmh     = 40.0
	defaultDetourFactor = 1.3
)

// StraightLineProvider estimates road travel from great-circle distance,
// a detour factor and an average speed. Used when no routing API is configured.
type StraightLineProvider struct {
	SpeedKmh     float64
	DetourFactor float64
}

func NewStraightLineProvider(speedKmh float64) *StraightLineProvider {
	if speedKmh <= 0 {
		speedKmh = defaultSpeedKmh
	}
	return &StraightLineProvider{SpeedKmh: speedKmh, DetourFactor: defaultDetourFactor}
}

func (s *StraightLineProvider) TravelTime(
	ctx context.Context,
	origin domain.Coordinates,
	destination domain.Coordinates,
	_ time.Time,
) (ports.TravelResult, error) {
	if err := ctx.Err(); err != nil {
		return ports.TravelResult{}, err
	}

	meters := origin.DistanceMeters(destination) * s.DetourFactor
	seconds := meters / (s.SpeedKmh * 1000 / 3600)

	return ports.TravelResult{
		DistanceMeters:  int(math.Round(meters)),
		DurationSeconds: int(math.Round(seconds)),
	}, nil
}

func (s *StraightLineProvider) TravelTimes(
	ctx context.Context,
	origin domain.Coordinates,
	destinations []domain.Coordinates,
	departAt time.Time,
) ([]ports.TravelResult, error) {
	out := make([]ports.TravelResult, len(destinations))
	for i, d := range destinations {
		r, err := s.TravelTime(ctx, origin, d, departAt)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

var _ ports.TravelMatrixProvider = (*StraightLineProvider)(nil)

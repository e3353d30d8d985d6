package distance

import (
	"context"
	"field-route-service/internal/domain"
	"field-route-service/internal/ports"
	"time"

	"golang.org/x/sync/semaphore"
)

// BoundedProvider caps the number of in-flight requests to the wrapped provider
// across every caller sharing the instance.
type BoundedProvider struct {
	inner ports.TravelTimeProvider
	sem   *semaphore.Weighted
}

func NewBoundedProvider(inner ports.TravelTimeProvider, limit int) *BoundedProvider {
	if limit < 1 {
		limit = 1
	}
	return &BoundedProvider{inner: inner, sem: semaphore.NewWeighted(int64(limit))}
}

func (b *BoundedProvider) TravelTime(
	ctx context.Context,
	origin domain.Coordinates,
	destination domain.Coordinates,
	departAt time.Time,
) (ports.TravelResult, error) {
	if err := b.sem.Acquire(ctx, 1); err != nil {
		return ports.TravelResult{}, err
	}
	defer b.sem.Release(1)

	return b.inner.TravelTime(ctx, origin, destination, departAt)
}

// TravelTimes uses the wrapped provider's batched path when available,
// otherwise it issues one bounded request per destination.
func (b *BoundedProvider) TravelTimes(
	ctx context.Context,
	origin domain.Coordinates,
	destinations []domain.Coordinates,
	departAt time.Time,
) ([]ports.TravelResult, error) {
	if mp, ok := b.inner.(ports.TravelMatrixProvider); ok {
		if err := b.sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		defer b.sem.Release(1)

		return mp.TravelTimes(ctx, origin, destinations, departAt)
	}

	out := make([]ports.TravelResult, len(destinations))
	for i, d := range destinations {
		r, err := b.TravelTime(ctx, origin, d, departAt)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

var _ ports.TravelMatrixProvider = (*BoundedProvider)(nil)

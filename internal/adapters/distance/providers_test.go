package distance

import (
	"context"
	"errors"
	"field-route-service/internal/domain"
	"field-route-service/internal/ports"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStraightLineProvider(t *testing.T) {
	p := NewStraightLineProvider(36)

	// ~11.1km north, x1.3 detour, at 10 m/s.
	got, err := p.TravelTime(context.Background(), origin, destA, time.Now())
	require.NoError(t, err)
	assert.InDelta(t, 14455, got.DistanceMeters, 20)
	assert.InDelta(t, 1446, got.DurationSeconds, 3)

	same, err := p.TravelTime(context.Background(), origin, origin, time.Now())
	require.NoError(t, err)
	assert.Zero(t, same.DurationSeconds)
}

func TestMockTravelProvider(t *testing.T) {
	m := NewMockTravelProvider()
	m.Set(origin, destA, ports.TravelResult{DistanceMeters: 10, DurationSeconds: 600})

	got, err := m.TravelTime(context.Background(), origin, destA, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 600, got.DurationSeconds)

	_, err = m.TravelTime(context.Background(), destA, origin, time.Now())
	assert.True(t, errors.Is(err, domain.ErrProvider))
	assert.Equal(t, 2, m.Calls())
}

type slowProvider struct {
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (s *slowProvider) TravelTime(context.Context, domain.Coordinates, domain.Coordinates, time.Time) (ports.TravelResult, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	return ports.TravelResult{DurationSeconds: 60}, nil
}

func TestBoundedProviderCapsInFlightRequests(t *testing.T) {
	inner := &slowProvider{}
	b := NewBoundedProvider(inner, 2)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := b.TravelTime(context.Background(), origin, destA, time.Now())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, inner.peak.Load(), int32(2))
}

func TestBoundedProviderFallsBackToPairwise(t *testing.T) {
	b := NewBoundedProvider(&slowProvider{}, 1)

	got, err := b.TravelTimes(context.Background(), origin, []domain.Coordinates{destA, destB}, time.Now())
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

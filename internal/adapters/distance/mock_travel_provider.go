package distance

import (
	"context"
	"field-route-service/internal/domain"
	"field-route-service/internal/ports"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// MockTravelProvider returns canned results keyed by "originKey|destinationKey".
// Pairs without a canned result fall back to Default when set.
type MockTravelProvider struct {
	mu      sync.RWMutex
	pairs   map[string]ports.TravelResult
	Default func(origin, destination domain.Coordinates) ports.TravelResult
	Err     error
	calls   atomic.Int64
}

func NewMockTravelProvider() *MockTravelProvider {
	return &MockTravelProvider{pairs: make(map[string]ports.TravelResult)}
}

func (m *MockTravelProvider) Set(origin, destination domain.Coordinates, r ports.TravelResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pairs[origin.Key()+"|"+destination.Key()] = r
}

func (m *MockTravelProvider) Calls() int { return int(m.calls.Load()) }

func (m *MockTravelProvider) TravelTime(
	ctx context.Context,
	origin domain.Coordinates,
	destination domain.Coordinates,
	_ time.Time,
) (ports.TravelResult, error) {
	m.calls.Add(1)

	if err := ctx.Err(); err != nil {
		return ports.TravelResult{}, err
	}
	if m.Err != nil {
		return ports.TravelResult{}, m.Err
	}
	if origin.Key() == destination.Key() {
		return ports.TravelResult{}, nil
	}

	m.mu.RLock()
	r, ok := m.pairs[origin.Key()+"|"+destination.Key()]
	m.mu.RUnlock()
	if ok {
		return r, nil
	}
	if m.Default != nil {
		return m.Default(origin, destination), nil
	}

	return ports.TravelResult{}, domain.ProviderErr(nil, "mock: no result for %s", fmt.Sprintf("%s|%s", origin.Key(), destination.Key()))
}

var _ ports.TravelTimeProvider = (*MockTravelProvider)(nil)

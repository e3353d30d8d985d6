package services

import (
	"errors"
	"field-route-service/internal/domain"
	"fmt"
	"math"
)

// NearestNeighborOrder orders stops with a greedy nearest-neighbor walk from startID.
//
// The algorithm minimizes immediate travel duration at each step.
// It does not attempt global route optimization (e.g., VRP solvers).
// Ties on duration go to the lexically smaller ticket id, so identical
// matrices always produce identical orders.
func NearestNeighborOrder(startID string, stops []domain.Stop, matrix TravelMatrix) ([]domain.Stop, error) {
	if startID == "" {
		return nil, errors.New("order stops: startID must be non-empty")
	}

	remaining := make(map[string]domain.Stop, len(stops))
	for _, s := range stops {
		remaining[s.TicketID] = s
	}

	ordered := make([]domain.Stop, 0, len(stops))
	current := startID

	for len(remaining) > 0 {
		var best string
		minDuration := math.MaxInt

		// Select next stop by minimum travel duration (greedy step).
		for id := range remaining {
			r, ok := matrix.Get(current, id)
			if !ok {
				return nil, fmt.Errorf("order stops: missing travel result from %q to %q", current, id)
			}
			if r.DurationSeconds < minDuration || (r.DurationSeconds == minDuration && id < best) {
				minDuration = r.DurationSeconds
				best = id
			}
		}

		ordered = append(ordered, remaining[best])
		delete(remaining, best)
		current = best
	}

	return ordered, nil
}

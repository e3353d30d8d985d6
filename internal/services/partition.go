package services

import (
	"errors"
	"field-route-service/internal/domain"
	"fmt"
	"slices"
	"strings"
)

// PartitionStops splits stops into route groups of at most maxPerRoute stops.
//
// Stops are sorted by compass bearing from the garage and cut into
// k = ceil(n/maxPerRoute) contiguous sectors, so each vehicle covers one
// wedge around the garage. Sector sizes differ by at most one.
func PartitionStops(garage domain.Coordinates, stops []domain.Stop, maxPerRoute int) ([]*domain.RouteGroup, error) {
	if maxPerRoute < 1 {
		return nil, errors.New("partition stops: maxPerRoute must be positive")
	}

	n := len(stops)
	if n == 0 {
		return []*domain.RouteGroup{}, nil
	}

	sorted := slices.Clone(stops)
	bearings := make(map[string]float64, n)
	for _, s := range sorted {
		bearings[s.TicketID] = garage.BearingDegrees(s.Location)
	}

	// Sort by bearing so each group receives a contiguous sector.
	slices.SortFunc(sorted, func(a, b domain.Stop) int {
		ba, bb := bearings[a.TicketID], bearings[b.TicketID]
		if ba < bb {
			return -1
		}
		if ba > bb {
			return 1
		}
		return strings.Compare(a.TicketID, b.TicketID)
	})

	k := (n + maxPerRoute - 1) / maxPerRoute

	groups := make([]*domain.RouteGroup, 0, k)
	start := 0
	for gi := 0; gi < k; gi++ {
		// Spread the remainder over the first groups.
		size := n / k
		if gi < n%k {
			size++
		}

		g := domain.NewRouteGroup(gi+1, maxPerRoute)
		if err := g.AddMultiple(sorted[start : start+size]); err != nil {
			return nil, fmt.Errorf("partition stops: %w", err)
		}
		groups = append(groups, g)
		start += size
	}

	return groups, nil
}

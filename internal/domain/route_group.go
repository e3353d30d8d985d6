package domain

import "fmt"

// RouteGroup is the set of stops assigned to one vehicle before ordering.
// Capacity is a hard ceiling on the number of stops.
type RouteGroup struct {
	Number   int
	Capacity int
	Stops    []Stop
}

func NewRouteGroup(number int, capacity int) *RouteGroup {
	return &RouteGroup{
		Number:   number,
		Capacity: capacity,
	}
}

// Add a single stop to the group.
func (g *RouteGroup) Add(stop Stop) error {
	if len(g.Stops) >= g.Capacity {
		return fmt.Errorf("add stop: route %d is at full capacity (capacity=%d)", g.Number, g.Capacity)
	}
	g.Stops = append(g.Stops, stop)
	return nil
}

// Add multiple stops to the group.
func (g *RouteGroup) AddMultiple(stops []Stop) error {
	for _, s := range stops {
		if err := g.Add(s); err != nil {
			return err
		}
	}

	return nil
}

func (g *RouteGroup) Full() bool { return len(g.Stops) >= g.Capacity }

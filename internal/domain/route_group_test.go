package domain

import (
	"testing"
)

func TestRouteGroupAddRespectsCapacity(t *testing.T) {
	// build test data
	stops := []Stop{
		{TicketID: "a", EstimatedMinutes: 30},
		{TicketID: "b", EstimatedMinutes: 45},
		{TicketID: "c", EstimatedMinutes: 60},
	}

	group := NewRouteGroup(1, 2)

	if err := group.AddMultiple(stops[:2]); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !group.Full() {
		t.Fatalf("group should be full after 2 stops")
	}

	if err := group.Add(stops[2]); err == nil {
		t.Fatalf("expected capacity error, got nil")
	}

	if len(group.Stops) != 2 {
		t.Errorf("stops = %d, want 2", len(group.Stops))
	}
}

func TestCoordinatesDistanceAndBearing(t *testing.T) {
	origin := Coordinates{Lat: 0, Lon: 0}
	north := Coordinates{Lat: 1, Lon: 0}
	east := Coordinates{Lat: 0, Lon: 1}

	d := origin.DistanceMeters(north)
	if d < 111000 || d > 111400 {
		t.Errorf("distance = %.0f, want ~111195", d)
	}

	if b := origin.BearingDegrees(north); b > 0.001 && b < 359.999 {
		t.Errorf("bearing north = %.3f, want 0", b)
	}
	if b := origin.BearingDegrees(east); b < 89.9 || b > 90.1 {
		t.Errorf("bearing east = %.3f, want 90", b)
	}

	if got := (Coordinates{Lat: 33.448376, Lon: -112.074036}).Key(); got != "33.44838,-112.07404" {
		t.Errorf("key = %q", got)
	}
}

func TestSummarize(t *testing.T) {
	res := OptimizationResult{
		Routes: []Route{
			{Stops: make([]RouteStop, 2), TotalDistanceMeters: 1000, TotalTravelMinutes: 10, TotalServiceMinutes: 60, TotalDurationMinutes: 70},
			{Stops: make([]RouteStop, 1), TotalDistanceMeters: 500, TotalTravelMinutes: 5, TotalServiceMinutes: 30, TotalDurationMinutes: 35},
		},
	}
	res.Summarize()

	if res.Summary.TotalStops != 3 || res.Summary.TotalRoutes != 2 {
		t.Fatalf("summary = %+v", res.Summary)
	}
	if res.Summary.TotalDistanceMeters != 1500 || res.Summary.TotalDurationMinutes != 105 {
		t.Fatalf("summary totals = %+v", res.Summary)
	}
}

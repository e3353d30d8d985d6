package domain

import "time"

// Stop is a single visit eligible for routing: a ticket with a known
// location and an estimated service duration.
type Stop struct {
	TicketID         string      `json:"ticket_id"`
	Location         Coordinates `json:"location"`
	EstimatedMinutes int         `json:"estimated_minutes"`
}

// Represents a single stop in a computed route.
// Travel values describe the leg that ends at this stop; cumulative values
// include every leg since the garage.
type RouteStop struct {
	Sequence                  int          `json:"sequence"`
	TicketID                  string       `json:"ticket_id"`
	Location                  *Coordinates `json:"location,omitempty"`
	EstimatedMinutes          int          `json:"estimated_minutes"`
	TravelMinutesFromPrevious int          `json:"travel_minutes_from_previous"`
	DistanceMetersFromPrev    int          `json:"distance_meters_from_previous"`
	CumulativeTravelMinutes   int          `json:"cumulative_travel_minutes"`
	CumulativeDistanceMeters  int          `json:"cumulative_distance"`
	ArrivalTime               time.Time    `json:"arrival_time"`
	DepartureTime             time.Time    `json:"departure_time"`
	Estimated                 bool         `json:"estimated,omitempty"`
	Warnings                  []string     `json:"warnings,omitempty"`
}

// Represents the planned route for a single vehicle.
// It is immutable planning data; totals include the return leg to the garage.
type Route struct {
	RouteNumber          int         `json:"route_number"`
	GarageID             string      `json:"garage_id"`
	StartTime            time.Time   `json:"start_time"`
	EndTime              time.Time   `json:"end_time"`
	Stops                []RouteStop `json:"stops"`
	ReturnTravelMinutes  int         `json:"return_travel_minutes"`
	TotalDistanceMeters  int         `json:"total_distance_meters"`
	TotalTravelMinutes   int         `json:"total_travel_minutes"`
	TotalServiceMinutes  int         `json:"total_service_minutes"`
	TotalDurationMinutes int         `json:"total_duration_minutes"`
}

// Skip reasons for tickets excluded from optimization.
const (
	SkipNotScheduled    = "not_scheduled"
	SkipMissingLocation = "missing_location"
	SkipMissingEstimate = "missing_estimate"
)

type SkippedTicket struct {
	TicketID string `json:"ticket_id"`
	Reason   string `json:"reason"`
}

type Summary struct {
	TotalStops           int `json:"total_stops"`
	TotalRoutes          int `json:"total_routes"`
	TotalDistanceMeters  int `json:"total_distance"`
	TotalTravelMinutes   int `json:"total_travel_minutes"`
	TotalServiceMinutes  int `json:"total_service_minutes"`
	TotalDurationMinutes int `json:"total_duration"`
}

// OptimizationResult is the complete output of one optimizer run.
type OptimizationResult struct {
	Routes  []Route         `json:"routes"`
	Summary Summary         `json:"summary"`
	Skipped []SkippedTicket `json:"skipped"`
}

// Summarize recomputes the summary from the routes.
func (r *OptimizationResult) Summarize() {
	s := Summary{TotalRoutes: len(r.Routes)}
	for _, rt := range r.Routes {
		s.TotalStops += len(rt.Stops)
		s.TotalDistanceMeters += rt.TotalDistanceMeters
		s.TotalTravelMinutes += rt.TotalTravelMinutes
		s.TotalServiceMinutes += rt.TotalServiceMinutes
		s.TotalDurationMinutes += rt.TotalDurationMinutes
	}
	r.Summary = s
}

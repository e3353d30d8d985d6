package services

import (
	"field-route-service/internal/domain"
	"field-route-service/internal/ports"
	"time"
)

// travelMinutes rounds a leg up to whole minutes so arrival times never run early.
func travelMinutes(seconds int) int {
	if seconds <= 0 {
		return 0
	}
	return (seconds + 59) / 60
}

// routeBuilder appends legs to a route and keeps the running clock and totals.
type routeBuilder struct {
	route domain.Route
	clock time.Time
}

func newRouteBuilder(number int, garageID string, startAt time.Time) *routeBuilder {
	return &routeBuilder{
		route: domain.Route{
			RouteNumber: number,
			GarageID:    garageID,
			StartTime:   startAt,
			Stops:       []domain.RouteStop{},
		},
		clock: startAt,
	}
}

// addStop appends a stop reached by leg and served for serviceMinutes.
func (b *routeBuilder) addStop(ticketID string, loc *domain.Coordinates, leg ports.TravelResult, serviceMinutes int) *domain.RouteStop {
	travel := travelMinutes(leg.DurationSeconds)
	arrival := b.clock.Add(time.Duration(travel) * time.Minute)
	departure := arrival.Add(time.Duration(serviceMinutes) * time.Minute)

	b.route.TotalTravelMinutes += travel
	b.route.TotalDistanceMeters += leg.DistanceMeters
	b.route.TotalServiceMinutes += serviceMinutes

	b.route.Stops = append(b.route.Stops, domain.RouteStop{
		Sequence:                  len(b.route.Stops) + 1,
		TicketID:                  ticketID,
		Location:                  loc,
		EstimatedMinutes:          serviceMinutes,
		TravelMinutesFromPrevious: travel,
		DistanceMetersFromPrev:    leg.DistanceMeters,
		CumulativeTravelMinutes:   b.route.TotalTravelMinutes,
		CumulativeDistanceMeters:  b.route.TotalDistanceMeters,
		ArrivalTime:               arrival,
		DepartureTime:             departure,
	})

	b.clock = departure
	return &b.route.Stops[len(b.route.Stops)-1]
}

// finish adds the return leg to the garage and closes the route.
func (b *routeBuilder) finish(back ports.TravelResult) domain.Route {
	if len(b.route.Stops) > 0 {
		travel := travelMinutes(back.DurationSeconds)
		b.route.ReturnTravelMinutes = travel
		b.route.TotalTravelMinutes += travel
		b.route.TotalDistanceMeters += back.DistanceMeters
		b.clock = b.clock.Add(time.Duration(travel) * time.Minute)
	}

	b.route.EndTime = b.clock
	b.route.TotalDurationMinutes = int(b.route.EndTime.Sub(b.route.StartTime) / time.Minute)
	return b.route
}

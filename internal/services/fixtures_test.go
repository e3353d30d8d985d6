package services

import (
	"context"
	"field-route-service/internal/adapters/distance"
	"field-route-service/internal/domain"
	"field-route-service/internal/ports"
	"field-route-service/internal/testutil"
	"fmt"
	"math"
	"time"
)

const (
	testGarageID = "aaaaaaaa-aaaa-4aaa-8aaa-aaaaaaaaaaaa"
	testDate     = "2025-03-14"
)

var testGarageLoc = domain.Coordinates{Lat: 40.0, Lon: -74.0}

func ticketID(i int) string { return fmt.Sprintf("00000000-0000-4000-8000-%012d", i) }

func intPtr(v int) *int { return &v }

type fixture struct {
	garages   *testutil.Garages
	tickets   *testutil.Tickets
	estimates *testutil.Estimates
	defaults  PlanDefaults
}

// newFixture seeds n located, estimated tickets on a ring around the garage.
func newFixture(n int) *fixture {
	day, _ := time.Parse(time.DateOnly, testDate)

	garages := testutil.NewGarages(&domain.Garage{
		ID: testGarageID, Name: "Main", Location: testGarageLoc, IsActive: true,
	})
	tickets := testutil.NewTickets()
	estimates := testutil.NewEstimates(tickets)

	for i := 1; i <= n; i++ {
		angle := 2 * math.Pi * float64(i) / float64(n)
		radius := 0.01 + 0.002*float64(i%5)
		loc := domain.Coordinates{
			Lat: testGarageLoc.Lat + radius*math.Cos(angle),
			Lon: testGarageLoc.Lon + radius*math.Sin(angle),
		}
		tickets.Add(&domain.Ticket{ID: ticketID(i), ScheduledDate: day, Location: &loc})
		_, _, _ = estimates.UpsertEstimate(context.Background(), domain.WorkEstimate{
			TicketID: ticketID(i), EstimatedMinutes: 30 + i%4*15,
		})
	}

	return &fixture{
		garages:   garages,
		tickets:   tickets,
		estimates: estimates,
		defaults: PlanDefaults{
			StartTime:      "08:00",
			MaxPerRoute:    10,
			ServiceMinutes: 30,
			FallbackTravel: 15,
			Location:       time.UTC,
		},
	}
}

func (f *fixture) optimizer(p ports.TravelTimeProvider) *Optimizer {
	if p == nil {
		p = distance.NewStraightLineProvider(40)
	}
	return NewOptimizer(f.garages, f.tickets, f.estimates, p, f.defaults, 4)
}

func (f *fixture) calculator(p ports.TravelTimeProvider) *Calculator {
	if p == nil {
		p = distance.NewStraightLineProvider(40)
	}
	c := NewCalculator(f.garages, f.tickets, f.estimates, p, f.defaults)
	c.now = func() time.Time { return time.Date(2025, 3, 14, 6, 0, 0, 0, time.UTC) }
	return c
}

// constantProvider answers every distinct pair with the same leg.
func constantProvider(seconds, meters int) *distance.MockTravelProvider {
	m := distance.NewMockTravelProvider()
	m.Default = func(_, _ domain.Coordinates) ports.TravelResult {
		return ports.TravelResult{DistanceMeters: meters, DurationSeconds: seconds}
	}
	return m
}

// blockingProvider waits for cancellation on every call.
type blockingProvider struct{}

func (blockingProvider) TravelTime(ctx context.Context, _, _ domain.Coordinates, _ time.Time) (ports.TravelResult, error) {
	<-ctx.Done()
	return ports.TravelResult{}, ctx.Err()
}

func (f *fixture) garagesWith(extra ...*domain.Garage) *testutil.Garages {
	all := append([]*domain.Garage{{ID: testGarageID, Name: "Main", Location: testGarageLoc, IsActive: true}}, extra...)
	return testutil.NewGarages(all...)
}

package services

import (
	"context"
	"field-route-service/internal/domain"
	"field-route-service/internal/platform/obs"
	"field-route-service/internal/ports"
	"fmt"
	"slices"

	"go.uber.org/zap"
)

// Optimizer turns the tickets scheduled on a date into capacity-bounded,
// nearest-neighbor ordered routes from one garage.
//
// It only reads storage and returns values; persisting results is the
// caller's concern.
type Optimizer struct {
	garages     ports.GarageRepository
	tickets     ports.TicketRepository
	estimates   ports.WorkEstimateRepository
	provider    ports.TravelTimeProvider
	defaults    PlanDefaults
	concurrency int
}

func NewOptimizer(
	garages ports.GarageRepository,
	tickets ports.TicketRepository,
	estimates ports.WorkEstimateRepository,
	provider ports.TravelTimeProvider,
	defaults PlanDefaults,
	concurrency int,
) *Optimizer {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Optimizer{
		garages:     garages,
		tickets:     tickets,
		estimates:   estimates,
		provider:    provider,
		defaults:    defaults.withFallbacks(),
		concurrency: concurrency,
	}
}

// Validate checks params exactly as Optimize does, without touching storage.
func (o *Optimizer) Validate(p OptimizeParams) error {
	_, err := normalizeOptimizeParams(p, o.defaults)
	return err
}

func (o *Optimizer) Optimize(ctx context.Context, p OptimizeParams) (_ *domain.OptimizationResult, err error) {
	defer obs.Time(ctx, "optimizer.Optimize")(&err)

	req, err := normalizeOptimizeParams(p, o.defaults)
	if err != nil {
		return nil, err
	}

	garage, err := resolveGarage(ctx, o.garages, req.GarageID)
	if err != nil {
		return nil, err
	}

	stops, skipped, err := o.loadStops(ctx, req)
	if err != nil {
		return nil, err
	}

	result := &domain.OptimizationResult{
		Routes:  []domain.Route{},
		Skipped: skipped,
	}

	if len(stops) == 0 {
		result.Summarize()
		return result, nil
	}

	groups, err := PartitionStops(garage.Location, stops, req.MaxPerRoute)
	if err != nil {
		return nil, fmt.Errorf("optimize: %w", err)
	}

	for _, g := range groups {
		route, err := o.planGroup(ctx, garage, g, req)
		if err != nil {
			return nil, err
		}
		result.Routes = append(result.Routes, route)
	}

	result.Summarize()

	zap.L().Info("optimization finished",
		zap.String("garage_id", garage.ID),
		zap.String("date", req.Date.Format(dateLayout)),
		zap.Int("routes", result.Summary.TotalRoutes),
		zap.Int("stops", result.Summary.TotalStops),
		zap.Int("skipped", len(result.Skipped)),
	)

	return result, nil
}

// planGroup orders one route group and annotates its timeline.
func (o *Optimizer) planGroup(
	ctx context.Context,
	garage *domain.Garage,
	g *domain.RouteGroup,
	req *optimizeRequest,
) (domain.Route, error) {
	nodes := make([]node, 0, len(g.Stops)+1)
	nodes = append(nodes, node{ID: garage.ID, Location: garage.Location})
	for _, s := range g.Stops {
		nodes = append(nodes, node{ID: s.TicketID, Location: s.Location})
	}

	matrix, err := buildTravelMatrix(ctx, o.provider, nodes, req.StartAt, o.concurrency)
	if err != nil {
		return domain.Route{}, fmt.Errorf("optimize route %d: %w", g.Number, err)
	}

	ordered, err := NearestNeighborOrder(garage.ID, g.Stops, matrix)
	if err != nil {
		return domain.Route{}, fmt.Errorf("optimize route %d: %w", g.Number, err)
	}

	b := newRouteBuilder(g.Number, garage.ID, req.StartAt)
	prev := garage.ID
	for _, s := range ordered {
		leg, _ := matrix.Get(prev, s.TicketID)
		loc := s.Location
		b.addStop(s.TicketID, &loc, leg, s.EstimatedMinutes)
		prev = s.TicketID
	}
	back, _ := matrix.Get(prev, garage.ID)

	return b.finish(back), nil
}

// loadStops resolves the candidate stops for the request and reports the rest as skipped.
func (o *Optimizer) loadStops(ctx context.Context, req *optimizeRequest) ([]domain.Stop, []domain.SkippedTicket, error) {
	scheduled, err := o.tickets.ListScheduled(ctx, req.Date)
	if err != nil {
		return nil, nil, fmt.Errorf("optimize: list scheduled tickets: %w", err)
	}

	skipped := []domain.SkippedTicket{}
	candidates := scheduled

	if len(req.TicketIDs) > 0 {
		byID := make(map[string]*domain.Ticket, len(scheduled))
		for _, t := range scheduled {
			byID[t.ID] = t
		}

		candidates = make([]*domain.Ticket, 0, len(req.TicketIDs))
		for _, id := range req.TicketIDs {
			t, ok := byID[id]
			if !ok {
				skipped = append(skipped, domain.SkippedTicket{TicketID: id, Reason: domain.SkipNotScheduled})
				continue
			}
			candidates = append(candidates, t)
		}
	}

	slices.SortFunc(candidates, func(a, b *domain.Ticket) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})

	ids := make([]string, 0, len(candidates))
	for _, t := range candidates {
		ids = append(ids, t.ID)
	}

	estimates, err := o.estimates.GetEstimates(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("optimize: load work estimates: %w", err)
	}

	stops := make([]domain.Stop, 0, len(candidates))
	for _, t := range candidates {
		if t.Location == nil || !t.Location.Valid() {
			skipped = append(skipped, domain.SkippedTicket{TicketID: t.ID, Reason: domain.SkipMissingLocation})
			continue
		}
		e, ok := estimates[t.ID]
		if !ok {
			skipped = append(skipped, domain.SkippedTicket{TicketID: t.ID, Reason: domain.SkipMissingEstimate})
			continue
		}
		stops = append(stops, domain.Stop{
			TicketID:         t.ID,
			Location:         *t.Location,
			EstimatedMinutes: e.EstimatedMinutes,
		})
	}

	return stops, skipped, nil
}

// resolveGarage returns the garage when it exists and is active.
func resolveGarage(ctx context.Context, repo ports.GarageRepository, id string) (*domain.Garage, error) {
	g, err := repo.GetGarage(ctx, id)
	if err != nil {
		return nil, err
	}
	if !g.IsActive {
		return nil, domain.NotFoundf("garage %s not found", id)
	}
	return g, nil
}

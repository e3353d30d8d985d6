package services

import (
	"context"
	"errors"
	"field-route-service/internal/domain"
	"field-route-service/internal/platform/obs"
	"field-route-service/internal/ports"
	"fmt"
	"slices"
	"strings"
	"time"
)

const (
	warnTicketNotFound  = "ticket not found; fallback travel time used"
	warnNoCoordinates   = "ticket has no coordinates; fallback travel time used"
	warnDefaultEstimate = "no work estimate; default service minutes used"
)

type CalculateInput struct {
	GarageID  string   `json:"garage_id" validate:"required,uuid"`
	TicketIDs []string `json:"ticket_ids" validate:"required,min=1,dive,uuid"`
	StartTime string   `json:"start_time,omitempty" validate:"omitempty,datetime=15:04"`
	Date      string   `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// Calculator times a caller-fixed stop order without reordering it.
// Unknown or unlocated tickets degrade to flagged fallback legs instead of failing.
type Calculator struct {
	garages   ports.GarageRepository
	tickets   ports.TicketRepository
	estimates ports.WorkEstimateRepository
	provider  ports.TravelTimeProvider
	defaults  PlanDefaults
	now       func() time.Time
}

func NewCalculator(
	garages ports.GarageRepository,
	tickets ports.TicketRepository,
	estimates ports.WorkEstimateRepository,
	provider ports.TravelTimeProvider,
	defaults PlanDefaults,
) *Calculator {
	return &Calculator{
		garages:   garages,
		tickets:   tickets,
		estimates: estimates,
		provider:  provider,
		defaults:  defaults.withFallbacks(),
		now:       time.Now,
	}
}

func (c *Calculator) Calculate(ctx context.Context, in CalculateInput) (_ *domain.Route, err error) {
	defer obs.Time(ctx, "calculator.Calculate")(&err)

	in.GarageID = strings.TrimSpace(in.GarageID)
	in.StartTime = strings.TrimSpace(in.StartTime)
	in.Date = strings.TrimSpace(in.Date)
	in.TicketIDs = slices.Clone(in.TicketIDs)
	for i := range in.TicketIDs {
		in.TicketIDs[i] = strings.ToLower(strings.TrimSpace(in.TicketIDs[i]))
	}
	if err := validate.Struct(in); err != nil {
		return nil, validationError(err)
	}

	startAt, err := c.startAt(in)
	if err != nil {
		return nil, err
	}

	garage, err := resolveGarage(ctx, c.garages, in.GarageID)
	if err != nil {
		return nil, err
	}

	tickets, err := c.tickets.GetTickets(ctx, dedupe(in.TicketIDs))
	if err != nil {
		return nil, fmt.Errorf("calculate: load tickets: %w", err)
	}
	estimates, err := c.estimates.GetEstimates(ctx, dedupe(in.TicketIDs))
	if err != nil {
		return nil, fmt.Errorf("calculate: load work estimates: %w", err)
	}

	fallback := ports.TravelResult{DurationSeconds: c.defaults.FallbackTravel * 60}

	b := newRouteBuilder(1, garage.ID, startAt)
	last := garage.Location

	for _, id := range in.TicketIDs {
		var warnings []string

		service := c.defaults.ServiceMinutes
		if e, ok := estimates[id]; ok {
			service = e.EstimatedMinutes
		} else {
			warnings = append(warnings, warnDefaultEstimate)
		}

		var loc *domain.Coordinates
		leg := fallback

		t, ok := tickets[id]
		switch {
		case !ok:
			warnings = append(warnings, warnTicketNotFound)
		case t.Location == nil || !t.Location.Valid():
			warnings = append(warnings, warnNoCoordinates)
		default:
			l := *t.Location
			loc = &l
			leg, err = c.provider.TravelTime(ctx, last, l, b.clock)
			if err != nil {
				return nil, providerFailure(err)
			}
			last = l
		}

		stop := b.addStop(id, loc, leg, service)
		if len(warnings) > 0 {
			stop.Estimated = true
			stop.Warnings = warnings
		}
	}

	back, err := c.provider.TravelTime(ctx, last, garage.Location, b.clock)
	if err != nil {
		return nil, providerFailure(err)
	}

	route := b.finish(back)
	return &route, nil
}

// startAt is the route departure: the requested (or current) day at start_time.
func (c *Calculator) startAt(in CalculateInput) (time.Time, error) {
	loc := c.defaults.Location

	day := c.now().In(loc)
	if in.Date != "" {
		d, err := time.ParseInLocation(dateLayout, in.Date, loc)
		if err != nil {
			return time.Time{}, domain.Validationf("date must be YYYY-MM-DD")
		}
		day = d
	}

	clock := in.StartTime
	if clock == "" {
		clock = c.defaults.StartTime
	}
	return startOfDay(day, clock)
}

// providerFailure keeps cancellation as-is and classifies anything else as a provider error.
func providerFailure(err error) error {
	if errors.Is(err, domain.ErrProvider) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return domain.ProviderErr(err, "travel-time lookup failed")
}

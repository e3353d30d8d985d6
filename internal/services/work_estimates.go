package services

import (
	"context"
	"errors"
	"field-route-service/internal/domain"
	"field-route-service/internal/platform/obs"
	"field-route-service/internal/ports"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	MaxBulkEstimates  = 100
	MaxNotesLength    = 2000
	bulkConcurrency   = 8
	bulkReasonMissing = "not found"
)

type UpsertEstimateInput struct {
	TicketID         string  `json:"ticket_id" validate:"required,uuid"`
	EstimatedMinutes *int    `json:"estimated_minutes" validate:"required,gte=1,lte=480"`
	Notes            *string `json:"notes,omitempty" validate:"omitempty,max=2000"`

	// DecodeError is set when the item could not be read from the request body.
	DecodeError string `json:"-"`
}

type UpsertEstimateResult struct {
	Estimate *domain.WorkEstimate
	IsNew    bool
}

type BulkItemError struct {
	Index    int    `json:"index"`
	TicketID string `json:"ticket_id,omitempty"`
	Reason   string `json:"reason"`
}

type BulkUpsertResult struct {
	Created int             `json:"created"`
	Updated int             `json:"updated"`
	Errors  []BulkItemError `json:"errors"`
}

// WorkEstimates manages the per-ticket service duration estimates.
type WorkEstimates struct {
	tickets   ports.TicketRepository
	estimates ports.WorkEstimateRepository
}

func NewWorkEstimates(tickets ports.TicketRepository, estimates ports.WorkEstimateRepository) *WorkEstimates {
	return &WorkEstimates{tickets: tickets, estimates: estimates}
}

func (s *WorkEstimates) Upsert(ctx context.Context, in UpsertEstimateInput) (_ *UpsertEstimateResult, err error) {
	defer obs.Time(ctx, "estimates.Upsert")(&err)

	if in.DecodeError != "" {
		return nil, domain.Validationf("%s", in.DecodeError)
	}

	in.TicketID = strings.ToLower(strings.TrimSpace(in.TicketID))
	if err := validate.Struct(in); err != nil {
		return nil, validationError(err)
	}

	exists, err := s.tickets.TicketExists(ctx, in.TicketID)
	if err != nil {
		return nil, fmt.Errorf("upsert estimate: %w", err)
	}
	if !exists {
		return nil, domain.NotFoundf("ticket %s not found", in.TicketID)
	}

	e, isNew, err := s.estimates.UpsertEstimate(ctx, domain.WorkEstimate{
		TicketID:         in.TicketID,
		EstimatedMinutes: *in.EstimatedMinutes,
		Notes:            in.Notes,
	})
	if err != nil {
		return nil, fmt.Errorf("upsert estimate: %w", err)
	}

	return &UpsertEstimateResult{Estimate: e, IsNew: isNew}, nil
}

// BulkUpsert applies every item independently. Item failures are reported by
// input index and never abort the rest of the batch.
func (s *WorkEstimates) BulkUpsert(ctx context.Context, items []UpsertEstimateInput) (_ *BulkUpsertResult, err error) {
	defer obs.Time(ctx, "estimates.BulkUpsert")(&err)

	if len(items) == 0 {
		return nil, domain.Validationf("estimates must contain at least 1 item")
	}
	if len(items) > MaxBulkEstimates {
		return nil, domain.Validationf("estimates must contain at most %d items, got %d", MaxBulkEstimates, len(items))
	}

	type outcome struct {
		isNew bool
		err   error
	}
	outcomes := make([]outcome, len(items))

	// Items for the same ticket run in input order so the last one wins.
	// Distinct tickets share nothing and run concurrently.
	var order []string
	byTicket := make(map[string][]int, len(items))
	for i, it := range items {
		key := strings.ToLower(strings.TrimSpace(it.TicketID))
		if _, ok := byTicket[key]; !ok {
			order = append(order, key)
		}
		byTicket[key] = append(byTicket[key], i)
	}

	var g errgroup.Group
	g.SetLimit(bulkConcurrency)
	for _, key := range order {
		indexes := byTicket[key]
		g.Go(func() error {
			for _, i := range indexes {
				res, err := s.Upsert(ctx, items[i])
				if err != nil {
					outcomes[i] = outcome{err: err}
					continue
				}
				outcomes[i] = outcome{isNew: res.IsNew}
			}
			return nil
		})
	}
	_ = g.Wait()

	result := &BulkUpsertResult{Errors: []BulkItemError{}}
	for i, o := range outcomes {
		if o.err == nil {
			if o.isNew {
				result.Created++
			} else {
				result.Updated++
			}
			continue
		}

		result.Errors = append(result.Errors, BulkItemError{
			Index:    i,
			TicketID: strings.TrimSpace(items[i].TicketID),
			Reason:   bulkReason(o.err),
		})
		if !errors.Is(o.err, domain.ErrValidation) && !errors.Is(o.err, domain.ErrNotFound) {
			zap.L().Error("bulk estimate item failed", zap.Int("index", i), zap.Error(o.err))
		}
	}

	return result, nil
}

func bulkReason(err error) string {
	var de *domain.Error
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return bulkReasonMissing
	case errors.As(err, &de) && errors.Is(err, domain.ErrValidation):
		return de.Message
	default:
		return "internal error"
	}
}

func (s *WorkEstimates) GetByTicket(ctx context.Context, ticketID string) (*domain.WorkEstimate, error) {
	id, err := parseTicketID(ticketID)
	if err != nil {
		return nil, err
	}
	return s.estimates.GetEstimate(ctx, id)
}

// GetByDate lists estimates of tickets scheduled on date; an empty day is an empty list.
func (s *WorkEstimates) GetByDate(ctx context.Context, date string) ([]*domain.WorkEstimate, error) {
	day, err := time.Parse(dateLayout, strings.TrimSpace(date))
	if err != nil {
		return nil, domain.Validationf("date must be YYYY-MM-DD")
	}

	list, err := s.estimates.ListEstimatesByDate(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("list estimates by date: %w", err)
	}
	if list == nil {
		list = []*domain.WorkEstimate{}
	}
	return list, nil
}

// DeleteByTicket removes the estimate; removing a missing estimate succeeds.
func (s *WorkEstimates) DeleteByTicket(ctx context.Context, ticketID string) error {
	id, err := parseTicketID(ticketID)
	if err != nil {
		return err
	}
	return s.estimates.DeleteEstimate(ctx, id)
}

func parseTicketID(raw string) (string, error) {
	id := strings.ToLower(strings.TrimSpace(raw))
	if err := validate.Var(id, "required,uuid"); err != nil {
		return "", domain.Validationf("ticket_id must be a valid UUID")
	}
	return id, nil
}

// Package testutil provides in-memory port implementations for service and handler tests.
package testutil

import (
	"context"
	"encoding/json"
	"field-route-service/internal/domain"
	"field-route-service/internal/ports"
	"slices"
	"sync"
	"time"
)

type Garages struct {
	mu   sync.RWMutex
	byID map[string]*domain.Garage
}

func NewGarages(gs ...*domain.Garage) *Garages {
	r := &Garages{byID: map[string]*domain.Garage{}}
	for _, g := range gs {
		r.byID[g.ID] = g
	}
	return r
}

func (r *Garages) GetGarage(_ context.Context, id string) (*domain.Garage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.byID[id]
	if !ok {
		return nil, domain.NotFoundf("garage %s not found", id)
	}
	cp := *g
	return &cp, nil
}

type Tickets struct {
	mu   sync.RWMutex
	byID map[string]*domain.Ticket
}

func NewTickets(ts ...*domain.Ticket) *Tickets {
	r := &Tickets{byID: map[string]*domain.Ticket{}}
	for _, t := range ts {
		r.byID[t.ID] = t
	}
	return r
}

func (r *Tickets) Add(t *domain.Ticket) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[t.ID] = t
}

func (r *Tickets) ListScheduled(_ context.Context, date time.Time) ([]*domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	day := date.Format(time.DateOnly)
	out := []*domain.Ticket{}
	for _, t := range r.byID {
		if !t.ScheduledDate.IsZero() && t.ScheduledDate.Format(time.DateOnly) == day {
			out = append(out, t)
		}
	}
	slices.SortFunc(out, func(a, b *domain.Ticket) int {
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	return out, nil
}

func (r *Tickets) GetTickets(_ context.Context, ids []string) (map[string]*domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := map[string]*domain.Ticket{}
	for _, id := range ids {
		if t, ok := r.byID[id]; ok {
			out[id] = t
		}
	}
	return out, nil
}

func (r *Tickets) TicketExists(_ context.Context, id string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byID[id]
	return ok, nil
}

type Estimates struct {
	mu      sync.RWMutex
	byID    map[string]*domain.WorkEstimate
	tickets *Tickets
}

func NewEstimates(tickets *Tickets, es ...*domain.WorkEstimate) *Estimates {
	r := &Estimates{byID: map[string]*domain.WorkEstimate{}, tickets: tickets}
	for _, e := range es {
		r.byID[e.TicketID] = e
	}
	return r
}

func (r *Estimates) UpsertEstimate(_ context.Context, e domain.WorkEstimate) (*domain.WorkEstimate, bool, error) {
	if !domain.ValidEstimatedMinutes(e.EstimatedMinutes) {
		return nil, false, domain.Validationf("estimated_minutes %d out of range", e.EstimatedMinutes)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	cur, ok := r.byID[e.TicketID]
	if ok {
		e.CreatedAt = cur.CreatedAt
	} else {
		e.CreatedAt = now
	}
	e.UpdatedAt = now
	r.byID[e.TicketID] = &e
	cp := e
	return &cp, !ok, nil
}

func (r *Estimates) GetEstimate(_ context.Context, ticketID string) (*domain.WorkEstimate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byID[ticketID]
	if !ok {
		return nil, domain.NotFoundf("work estimate for ticket %s not found", ticketID)
	}
	cp := *e
	return &cp, nil
}

func (r *Estimates) GetEstimates(_ context.Context, ids []string) (map[string]*domain.WorkEstimate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := map[string]*domain.WorkEstimate{}
	for _, id := range ids {
		if e, ok := r.byID[id]; ok {
			out[id] = e
		}
	}
	return out, nil
}

func (r *Estimates) ListEstimatesByDate(ctx context.Context, date time.Time) ([]*domain.WorkEstimate, error) {
	tickets, err := r.tickets.ListScheduled(ctx, date)
	if err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*domain.WorkEstimate{}
	for _, t := range tickets {
		if e, ok := r.byID[t.ID]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *Estimates) DeleteEstimate(_ context.Context, ticketID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, ticketID)
	return nil
}

// Jobs mirrors the conditional transitions of the SQL job repository.
type Jobs struct {
	mu   sync.Mutex
	byID map[string]*domain.OptimizationJob
}

func NewJobs() *Jobs { return &Jobs{byID: map[string]*domain.OptimizationJob{}} }

func (r *Jobs) CreateJob(_ context.Context, job *domain.OptimizationJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *job
	r.byID[job.ID] = &cp
	return nil
}

func (r *Jobs) GetJob(_ context.Context, id string) (*domain.OptimizationJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.byID[id]
	if !ok {
		return nil, domain.NotFoundf("job %s not found", id)
	}
	cp := *j
	if j.Result != nil {
		// Round-trip like a JSONB column.
		b, _ := json.Marshal(j.Result)
		var res domain.OptimizationResult
		_ = json.Unmarshal(b, &res)
		cp.Result = &res
	}
	return &cp, nil
}

func (r *Jobs) ClaimJob(_ context.Context, id, workerID string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.byID[id]
	if !ok || j.Status != domain.JobPending {
		return false, nil
	}
	j.Status = domain.JobProcessing
	j.ClaimedBy = &workerID
	j.ClaimedAt = &now
	j.StartedAt = &now
	return true, nil
}

func (r *Jobs) CompleteJob(_ context.Context, id, workerID string, result *domain.OptimizationResult, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.byID[id]
	if !ok || j.Status != domain.JobProcessing || j.ClaimedBy == nil || *j.ClaimedBy != workerID {
		return false, nil
	}
	j.Status = domain.JobCompleted
	j.Result = result
	j.CompletedAt = &now
	return true, nil
}

func (r *Jobs) FailJob(_ context.Context, id, workerID, reason, message string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.byID[id]
	if !ok || j.Status != domain.JobProcessing || j.ClaimedBy == nil || *j.ClaimedBy != workerID {
		return false, nil
	}
	j.Status = domain.JobFailed
	j.Error = &message
	j.ErrorReason = &reason
	j.CompletedAt = &now
	return true, nil
}

func (r *Jobs) ReleaseJob(_ context.Context, id, workerID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.byID[id]
	if !ok || j.Status != domain.JobProcessing || j.ClaimedBy == nil || *j.ClaimedBy != workerID {
		return false, nil
	}
	j.Status = domain.JobPending
	j.ClaimedBy = nil
	j.ClaimedAt = nil
	j.StartedAt = nil
	return true, nil
}

func (r *Jobs) ListPendingJobs(_ context.Context, olderThan time.Time, limit int) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pending := []*domain.OptimizationJob{}
	for _, j := range r.byID {
		if j.Status == domain.JobPending && j.CreatedAt.Before(olderThan) {
			pending = append(pending, j)
		}
	}
	slices.SortFunc(pending, func(a, b *domain.OptimizationJob) int { return a.CreatedAt.Compare(b.CreatedAt) })
	ids := []string{}
	for _, j := range pending {
		if len(ids) == limit {
			break
		}
		ids = append(ids, j.ID)
	}
	return ids, nil
}

func (r *Jobs) ExpireStaleJobs(_ context.Context, claimedBefore time.Time, reason, message string, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, j := range r.byID {
		if j.Status == domain.JobProcessing && j.ClaimedAt != nil && j.ClaimedAt.Before(claimedBefore) {
			j.Status = domain.JobFailed
			j.Error = &message
			j.ErrorReason = &reason
			j.CompletedAt = &now
			n++
		}
	}
	return n, nil
}

// SetCreatedAt backdates a job, for sweeper tests.
func (r *Jobs) SetCreatedAt(id string, t time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if j, ok := r.byID[id]; ok {
		j.CreatedAt = t
	}
}

var (
	_ ports.GarageRepository       = (*Garages)(nil)
	_ ports.TicketRepository       = (*Tickets)(nil)
	_ ports.WorkEstimateRepository = (*Estimates)(nil)
	_ ports.JobRepository          = (*Jobs)(nil)
)

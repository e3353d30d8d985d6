package services

import (
	"context"
	"errors"
	"field-route-service/internal/domain"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEstimateService(n int) *WorkEstimates {
	f := newFixture(n)
	return NewWorkEstimates(f.tickets, f.estimates)
}

func TestUpsertAcceptsFullRange(t *testing.T) {
	svc := newEstimateService(1)
	for m := domain.MinEstimatedMinutes; m <= domain.MaxEstimatedMinutes; m++ {
		_, err := svc.Upsert(context.Background(), UpsertEstimateInput{TicketID: ticketID(1), EstimatedMinutes: intPtr(m)})
		require.NoError(t, err, "minutes=%d", m)
	}
}

func TestUpsertRejectsOutOfRange(t *testing.T) {
	svc := newEstimateService(1)
	for _, m := range []int{0, 481, -5} {
		_, err := svc.Upsert(context.Background(), UpsertEstimateInput{TicketID: ticketID(1), EstimatedMinutes: intPtr(m)})
		assert.True(t, errors.Is(err, domain.ErrValidation), "minutes=%d", m)
	}

	e, err := svc.GetByTicket(context.Background(), ticketID(1))
	require.NoError(t, err)
	assert.NotEqual(t, 0, e.EstimatedMinutes, "rejected values are never stored")
}

func TestUpsertValidation(t *testing.T) {
	svc := newEstimateService(1)
	long := strings.Repeat("x", MaxNotesLength+1)

	cases := map[string]UpsertEstimateInput{
		"missing ticket":   {EstimatedMinutes: intPtr(30)},
		"malformed ticket": {TicketID: "ticket-1", EstimatedMinutes: intPtr(30)},
		"missing minutes":  {TicketID: ticketID(1)},
		"notes over limit": {TicketID: ticketID(1), EstimatedMinutes: intPtr(30), Notes: &long},
	}
	for name, in := range cases {
		in := in // per-iteration copy (Go 1.22 loop semantics)
		t.Run(name, func(t *testing.T) {
			_, err := svc.Upsert(context.Background(), in)
			assert.True(t, errors.Is(err, domain.ErrValidation), "got %v", err)
		})
	}
}

func TestUpsertReportsIsNew(t *testing.T) {
	f := newFixture(0)
	f.tickets.Add(&domain.Ticket{ID: ticketID(7)})
	svc := NewWorkEstimates(f.tickets, f.estimates)

	first, err := svc.Upsert(context.Background(), UpsertEstimateInput{TicketID: ticketID(7), EstimatedMinutes: intPtr(45)})
	require.NoError(t, err)
	assert.True(t, first.IsNew)

	notes := "gate code 1234"
	second, err := svc.Upsert(context.Background(), UpsertEstimateInput{TicketID: ticketID(7), EstimatedMinutes: intPtr(60), Notes: &notes})
	require.NoError(t, err)
	assert.False(t, second.IsNew)
	assert.Equal(t, 60, second.Estimate.EstimatedMinutes)
	assert.Equal(t, notes, *second.Estimate.Notes)
}

func TestUpsertUnknownTicket(t *testing.T) {
	svc := newEstimateService(1)

	_, err := svc.Upsert(context.Background(), UpsertEstimateInput{TicketID: ticketID(404), EstimatedMinutes: intPtr(30)})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestBulkUpsertMixedBatch(t *testing.T) {
	f := newFixture(0)
	f.tickets.Add(&domain.Ticket{ID: ticketID(1)})
	svc := NewWorkEstimates(f.tickets, f.estimates)

	res, err := svc.BulkUpsert(context.Background(), []UpsertEstimateInput{
		{TicketID: ticketID(1), EstimatedMinutes: intPtr(45)},
		{TicketID: ticketID(555), EstimatedMinutes: intPtr(60)},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 0, res.Updated)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 1, res.Errors[0].Index)
	assert.Equal(t, ticketID(555), res.Errors[0].TicketID)
	assert.Equal(t, "not found", res.Errors[0].Reason)
}

func TestBulkUpsertOrdersErrorsByIndex(t *testing.T) {
	svc := newEstimateService(3)

	items := []UpsertEstimateInput{
		{TicketID: ticketID(1), EstimatedMinutes: intPtr(0)},
		{TicketID: ticketID(2), EstimatedMinutes: intPtr(30)},
		{TicketID: "bad", EstimatedMinutes: intPtr(30)},
		{TicketID: ticketID(3), EstimatedMinutes: intPtr(30)},
		{TicketID: ticketID(900), EstimatedMinutes: intPtr(30)},
	}
	res, err := svc.BulkUpsert(context.Background(), items)
	require.NoError(t, err)

	assert.Equal(t, 0, res.Created)
	assert.Equal(t, 2, res.Updated)
	require.Len(t, res.Errors, 3)
	assert.Equal(t, []int{0, 2, 4}, []int{res.Errors[0].Index, res.Errors[1].Index, res.Errors[2].Index})
	assert.Equal(t, "not found", res.Errors[2].Reason)
}

func TestBulkUpsertRepeatedTicketLastWins(t *testing.T) {
	f := newFixture(0)
	f.tickets.Add(&domain.Ticket{ID: ticketID(1)})
	f.tickets.Add(&domain.Ticket{ID: ticketID(2)})
	svc := NewWorkEstimates(f.tickets, f.estimates)

	for run := 0; run < 50; run++ {
		items := []UpsertEstimateInput{}
		for m := 1; m <= 20; m++ {
			items = append(items,
				UpsertEstimateInput{TicketID: ticketID(1), EstimatedMinutes: intPtr(m)},
				UpsertEstimateInput{TicketID: strings.ToUpper(ticketID(2)), EstimatedMinutes: intPtr(100 + m)},
			)
		}

		res, err := svc.BulkUpsert(context.Background(), items)
		require.NoError(t, err)
		assert.Empty(t, res.Errors)
		assert.Equal(t, 40, res.Created+res.Updated)

		e1, err := svc.GetByTicket(context.Background(), ticketID(1))
		require.NoError(t, err)
		e2, err := svc.GetByTicket(context.Background(), ticketID(2))
		require.NoError(t, err)
		require.Equal(t, 20, e1.EstimatedMinutes, "run %d", run)
		require.Equal(t, 120, e2.EstimatedMinutes, "run %d", run)
	}
}

func TestBulkUpsertReportsUnreadableItems(t *testing.T) {
	f := newFixture(0)
	f.tickets.Add(&domain.Ticket{ID: ticketID(1)})
	svc := NewWorkEstimates(f.tickets, f.estimates)

	res, err := svc.BulkUpsert(context.Background(), []UpsertEstimateInput{
		{TicketID: ticketID(1), EstimatedMinutes: intPtr(45)},
		{DecodeError: "estimated_minutes must be a number"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Created)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 1, res.Errors[0].Index)
	assert.Equal(t, "estimated_minutes must be a number", res.Errors[0].Reason)
}

func TestBulkUpsertSizeLimits(t *testing.T) {
	svc := newEstimateService(1)

	_, err := svc.BulkUpsert(context.Background(), nil)
	assert.True(t, errors.Is(err, domain.ErrValidation))

	items := make([]UpsertEstimateInput, MaxBulkEstimates+1)
	for i := range items {
		items[i] = UpsertEstimateInput{TicketID: ticketID(1), EstimatedMinutes: intPtr(30)}
	}
	_, err = svc.BulkUpsert(context.Background(), items)
	assert.True(t, errors.Is(err, domain.ErrValidation))

	res, err := svc.BulkUpsert(context.Background(), items[:MaxBulkEstimates])
	require.NoError(t, err)
	assert.Equal(t, MaxBulkEstimates, res.Created+res.Updated)
}

func TestGetByDate(t *testing.T) {
	svc := newEstimateService(4)

	list, err := svc.GetByDate(context.Background(), testDate)
	require.NoError(t, err)
	assert.Len(t, list, 4)

	empty, err := svc.GetByDate(context.Background(), "2099-12-31")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	_, err = svc.GetByDate(context.Background(), "31/12/2099")
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestGetByTicket(t *testing.T) {
	svc := newEstimateService(1)

	e, err := svc.GetByTicket(context.Background(), ticketID(1))
	require.NoError(t, err)
	assert.Equal(t, ticketID(1), e.TicketID)

	_, err = svc.GetByTicket(context.Background(), ticketID(2))
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = svc.GetByTicket(context.Background(), "xyz")
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestDeleteByTicketIsIdempotent(t *testing.T) {
	svc := newEstimateService(1)

	require.NoError(t, svc.DeleteByTicket(context.Background(), ticketID(1)))
	require.NoError(t, svc.DeleteByTicket(context.Background(), ticketID(1)))

	_, err := svc.GetByTicket(context.Background(), ticketID(1))
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	err = svc.DeleteByTicket(context.Background(), "not-a-uuid")
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

package services

import (
	"context"
	"errors"
	"field-route-service/internal/adapters/queue"
	"field-route-service/internal/domain"
	"field-route-service/internal/testutil"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type panickingRunner struct{ *Optimizer }

func (panickingRunner) Optimize(context.Context, OptimizeParams) (*domain.OptimizationResult, error) {
	panic("index out of range")
}

type failingQueue struct{ queue.ChannelQueue }

func (*failingQueue) Push(context.Context, string) error { return errors.New("redis down") }

func newJobManager(t *testing.T, runner OptimizationRunner, q *queue.ChannelQueue) (*JobManager, *testutil.Jobs) {
	t.Helper()
	jobs := testutil.NewJobs()
	m := NewJobManager(jobs, q, runner, JobManagerConfig{
		Workers:       2,
		JobTimeout:    5 * time.Second,
		Lease:         time.Minute,
		SweepInterval: 20 * time.Millisecond,
		PendingGrace:  time.Minute,
		PopWait:       20 * time.Millisecond,
	})
	return m, jobs
}

func stopIDs(res *domain.OptimizationResult) []string {
	ids := []string{}
	for _, r := range res.Routes {
		for _, s := range r.Stops {
			ids = append(ids, s.TicketID)
		}
	}
	sort.Strings(ids)
	return ids
}

func TestEnqueueRejectsInvalidParams(t *testing.T) {
	f := newFixture(3)
	m, jobs := newJobManager(t, f.optimizer(nil), queue.NewChannelQueue(8))

	p := baseParams()
	p.MaxPerRoute = intPtr(0)

	_, err := m.Enqueue(context.Background(), p)
	assert.True(t, errors.Is(err, domain.ErrValidation))

	pending, err := jobs.ListPendingJobs(context.Background(), time.Now().Add(time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, pending, "invalid requests never create a job")
}

func TestEnqueueThenProcessCompletes(t *testing.T) {
	f := newFixture(6)
	q := queue.NewChannelQueue(8)
	m, _ := newJobManager(t, f.optimizer(nil), q)
	ctx := context.Background()

	p := baseParams()
	p.MaxPerRoute = intPtr(4)

	enq, err := m.Enqueue(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, domain.JobPending, enq.Status)
	assert.Equal(t, "/jobs/"+enq.JobID, enq.PollURL)

	job, err := m.Get(ctx, enq.JobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobPending, job.Status)
	assert.Nil(t, job.Result)

	id, err := q.Pop(ctx, time.Second)
	require.NoError(t, err)
	require.Equal(t, enq.JobID, id)

	require.NoError(t, m.Process(ctx, id, "worker-a"))

	job, err = m.Get(ctx, enq.JobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobCompleted, job.Status)
	require.NotNil(t, job.Result)
	assert.Nil(t, job.Error)
	assert.NotNil(t, job.StartedAt)
	assert.NotNil(t, job.CompletedAt)

	// The asynchronous result covers the same stops as the synchronous path.
	direct, err := f.optimizer(nil).Optimize(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, stopIDs(direct), stopIDs(job.Result))
	assert.Equal(t, direct.Summary, job.Result.Summary)
}

func TestProcessIsClaimedOnce(t *testing.T) {
	f := newFixture(2)
	m, _ := newJobManager(t, f.optimizer(nil), queue.NewChannelQueue(8))
	ctx := context.Background()

	enq, err := m.Enqueue(ctx, baseParams())
	require.NoError(t, err)

	require.NoError(t, m.Process(ctx, enq.JobID, "worker-a"))
	first, err := m.Get(ctx, enq.JobID)
	require.NoError(t, err)

	require.NoError(t, m.Process(ctx, enq.JobID, "worker-b"))
	second, err := m.Get(ctx, enq.JobID)
	require.NoError(t, err)

	assert.Equal(t, "worker-a", *second.ClaimedBy)
	assert.Equal(t, first.CompletedAt, second.CompletedAt, "terminal jobs are immutable")
}

func TestProcessRecordsOptimizerFailure(t *testing.T) {
	f := newFixture(2)
	provider := constantProvider(60, 100)
	provider.Err = errors.New("upstream 503")
	m, _ := newJobManager(t, f.optimizer(provider), queue.NewChannelQueue(8))
	ctx := context.Background()

	enq, err := m.Enqueue(ctx, baseParams())
	require.NoError(t, err)
	require.NoError(t, m.Process(ctx, enq.JobID, "worker-a"))

	job, err := m.Get(ctx, enq.JobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobFailed, job.Status)
	require.NotNil(t, job.ErrorReason)
	assert.Equal(t, domain.ReasonProvider, *job.ErrorReason)
	assert.Nil(t, job.Result)
}

func TestProcessReleasesJobWhenWorkerStops(t *testing.T) {
	f := newFixture(3)
	m, jobs := newJobManager(t, f.optimizer(blockingProvider{}), queue.NewChannelQueue(8))

	enq, err := m.Enqueue(context.Background(), baseParams())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)
	require.NoError(t, m.Process(ctx, enq.JobID, "worker-a"))

	job, err := m.Get(context.Background(), enq.JobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobPending, job.Status, "a stopping worker must not fail the job")
	assert.Nil(t, job.ClaimedBy)
	assert.Nil(t, job.Error)

	claimed, err := jobs.ClaimJob(context.Background(), enq.JobID, "worker-b", time.Now())
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestProcessRecordsNotFoundGarage(t *testing.T) {
	f := newFixture(2)
	m, _ := newJobManager(t, f.optimizer(nil), queue.NewChannelQueue(8))
	ctx := context.Background()

	p := baseParams()
	p.GarageID = "dddddddd-dddd-4ddd-8ddd-dddddddddddd"
	enq, err := m.Enqueue(ctx, p)
	require.NoError(t, err, "garage existence is checked by the worker")

	require.NoError(t, m.Process(ctx, enq.JobID, "worker-a"))
	job, err := m.Get(ctx, enq.JobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobFailed, job.Status)
	assert.Equal(t, domain.ReasonNotFound, *job.ErrorReason)
}

func TestProcessRecoversFromPanic(t *testing.T) {
	f := newFixture(2)
	m, _ := newJobManager(t, panickingRunner{f.optimizer(nil)}, queue.NewChannelQueue(8))
	ctx := context.Background()

	enq, err := m.Enqueue(ctx, baseParams())
	require.NoError(t, err)
	require.NoError(t, m.Process(ctx, enq.JobID, "worker-a"))

	job, err := m.Get(ctx, enq.JobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobFailed, job.Status)
	assert.Equal(t, domain.ReasonInternal, *job.ErrorReason)
	assert.Contains(t, *job.Error, "panicked")
}

func TestEnqueueSurvivesQueueFailure(t *testing.T) {
	f := newFixture(2)
	jobs := testutil.NewJobs()
	m := NewJobManager(jobs, &failingQueue{}, f.optimizer(nil), JobManagerConfig{PendingGrace: time.Millisecond})
	ctx := context.Background()

	enq, err := m.Enqueue(ctx, baseParams())
	require.NoError(t, err)

	jobs.SetCreatedAt(enq.JobID, time.Now().Add(-time.Hour))
	require.NoError(t, m.Sweep(ctx))

	job, err := m.Get(ctx, enq.JobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobCompleted, job.Status, "sweeper runs jobs the queue lost")
}

func TestSweepExpiresStaleClaims(t *testing.T) {
	f := newFixture(2)
	m, jobs := newJobManager(t, f.optimizer(nil), queue.NewChannelQueue(8))
	ctx := context.Background()

	enq, err := m.Enqueue(ctx, baseParams())
	require.NoError(t, err)

	claimed, err := jobs.ClaimJob(ctx, enq.JobID, "dead-worker", time.Now().Add(-2*time.Hour))
	require.NoError(t, err)
	require.True(t, claimed)

	require.NoError(t, m.Sweep(ctx))

	job, err := m.Get(ctx, enq.JobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobFailed, job.Status)
	assert.Equal(t, ReasonLeaseExpired, *job.ErrorReason)

	// The dead worker can no longer complete it.
	ok, err := jobs.CompleteJob(ctx, enq.JobID, "dead-worker", &domain.OptimizationResult{}, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetValidatesJobID(t *testing.T) {
	f := newFixture(0)
	m, _ := newJobManager(t, f.optimizer(nil), queue.NewChannelQueue(8))

	_, err := m.Get(context.Background(), "job-1")
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = m.Get(context.Background(), "eeeeeeee-eeee-4eee-8eee-eeeeeeeeeeee")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestRunProcessesQueuedJobs(t *testing.T) {
	f := newFixture(5)
	m, _ := newJobManager(t, f.optimizer(nil), queue.NewChannelQueue(8))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	ids := []string{}
	for i := 0; i < 3; i++ {
		enq, err := m.Enqueue(context.Background(), baseParams())
		require.NoError(t, err)
		ids = append(ids, enq.JobID)
	}

	for _, id := range ids {
		id := id // per-iteration copy (Go 1.22 loop semantics)
		require.Eventually(t, func() bool {
			job, err := m.Get(context.Background(), id)
			return err == nil && job.Status.Terminal()
		}, 5*time.Second, 10*time.Millisecond)

		job, err := m.Get(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, domain.JobCompleted, job.Status)
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}

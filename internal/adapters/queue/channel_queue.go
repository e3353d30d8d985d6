package queue

import (
	"context"
	"field-route-service/internal/ports"
	"time"
)

// ChannelQueue is an in-process JobQueue for single-instance deployments and tests.
// Push never blocks the request path: when the buffer is full the id is dropped
// and left for the sweeper.
type ChannelQueue struct {
	ch chan string
}

func NewChannelQueue(size int) *ChannelQueue {
	if size < 1 {
		size = 256
	}
	return &ChannelQueue{ch: make(chan string, size)}
}

func (q *ChannelQueue) Push(ctx context.Context, jobID string) error {
	select {
	case q.ch <- jobID:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

func (q *ChannelQueue) Pop(ctx context.Context, wait time.Duration) (string, error) {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case id := <-q.ch:
		return id, nil
	case <-timer.C:
		return "", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

var _ ports.JobQueue = (*ChannelQueue)(nil)

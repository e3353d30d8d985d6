package queue

import (
	"context"
	"errors"
	"field-route-service/internal/ports"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultKey = "field-route:optimization-jobs"

// RedisQueue is a FIFO list of job ids: LPUSH on enqueue, BRPOP on dequeue.
// Delivery is at-most-once; the job sweeper re-drives ids lost between pop and claim.
type RedisQueue struct {
	client *redis.Client
	key    string
}

// Connect dials Redis and verifies the connection.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	if addr == "" {
		return nil, errors.New("redis: address is empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: failed to ping server: %w", err)
	}

	return client, nil
}

func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	if key == "" {
		key = DefaultKey
	}
	return &RedisQueue{client: client, key: key}
}

func (q *RedisQueue) Push(ctx context.Context, jobID string) error {
	if err := q.client.LPush(ctx, q.key, jobID).Err(); err != nil {
		return fmt.Errorf("redis queue push %s: %w", jobID, err)
	}
	return nil
}

func (q *RedisQueue) Pop(ctx context.Context, wait time.Duration) (string, error) {
	res, err := q.client.BRPop(ctx, wait, q.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("redis queue pop: %w", err)
	}

	// BRPOP replies with [key, value].
	if len(res) != 2 {
		return "", fmt.Errorf("redis queue pop: unexpected reply %v", res)
	}

	return res[1], nil
}

var _ ports.JobQueue = (*RedisQueue)(nil)

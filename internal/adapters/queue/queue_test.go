package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisQueue(t *testing.T) (*miniredis.Miniredis, *RedisQueue) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return mr, NewRedisQueue(client, "")
}

func TestRedisQueueIsFIFO(t *testing.T) {
	_, q := setupRedisQueue(t)
	ctx := context.Background()

	require.NoError(t, q.Push(ctx, "job-1"))
	require.NoError(t, q.Push(ctx, "job-2"))

	first, err := q.Pop(ctx, time.Second)
	require.NoError(t, err)
	second, err := q.Pop(ctx, time.Second)
	require.NoError(t, err)

	assert.Equal(t, "job-1", first)
	assert.Equal(t, "job-2", second)
}

func TestRedisQueuePopEmptyReturnsBlank(t *testing.T) {
	mr, q := setupRedisQueue(t)

	id, err := q.Pop(context.Background(), 50*time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, id)
	assert.False(t, mr.Exists(DefaultKey))
}

func TestRedisQueuePushUsesConfiguredKey(t *testing.T) {
	mr, _ := setupRedisQueue(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	q := NewRedisQueue(client, "custom")

	require.NoError(t, q.Push(context.Background(), "job-9"))

	items, err := mr.List("custom")
	require.NoError(t, err)
	assert.Equal(t, []string{"job-9"}, items)
}

func TestConnectRejectsEmptyAddr(t *testing.T) {
	_, err := Connect(context.Background(), "", "", 0)
	assert.Error(t, err)
}

func TestConnectPingsServer(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := Connect(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	client.Close()
}

func TestChannelQueue(t *testing.T) {
	q := NewChannelQueue(1)
	ctx := context.Background()

	require.NoError(t, q.Push(ctx, "job-1"))
	err := q.Push(ctx, "job-2")
	assert.True(t, errors.Is(err, ErrQueueFull))

	id, err := q.Pop(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "job-1", id)

	id, err = q.Pop(ctx, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestChannelQueuePopHonorsCancellation(t *testing.T) {
	q := NewChannelQueue(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := q.Pop(ctx, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

package worker

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestQueue(t *testing.T) *Queue {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewQueue(client, "habitloop", nil, zerolog.Nop())
}

func TestQueueRoundTrip(t *testing.T) {
	queue := newTestQueue(t)
	ctx := context.Background()

	require.NoError(t, queue.EnqueueValidate(ctx, 42))

	task, err := queue.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, task)
	require.Equal(t, TaskValidate, task.Kind)
	require.Equal(t, uint(42), task.CheckInID)
	require.Zero(t, task.Attempt)
	require.False(t, task.EnqueuedAt.IsZero())
}

func TestQueueOrderingIsFIFO(t *testing.T) {
	queue := newTestQueue(t)
	ctx := context.Background()

	require.NoError(t, queue.EnqueueValidate(ctx, 1))
	require.NoError(t, queue.EnqueueRetry(ctx, 2))

	first, err := queue.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.Equal(t, TaskValidate, first.Kind)

	second, err := queue.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.Equal(t, TaskRetry, second.Kind)
	require.Equal(t, uint(2), second.LogID)
}

func TestQueueRequeueAdvancesAttempt(t *testing.T) {
	queue := newTestQueue(t)
	ctx := context.Background()

	require.NoError(t, queue.Requeue(ctx, Task{Kind: TaskValidate, CheckInID: 7, Attempt: 1}))

	task, err := queue.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.Equal(t, 2, task.Attempt)
}

func TestQueueUnconfigured(t *testing.T) {
	queue := NewQueue(nil, "", nil, zerolog.Nop())
	require.Error(t, queue.EnqueueValidate(context.Background(), 1))
}

func TestQueueWakeSignal(t *testing.T) {
	queue := newTestQueue(t)
	require.NoError(t, queue.EnqueueValidate(context.Background(), 1))

	select {
	case <-queue.Wake():
	default:
		t.Fatal("expected a wake signal after enqueue")
	}
}

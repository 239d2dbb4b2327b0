package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerManagerRunsTasks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	manager := NewWorkerManager(2, 16)

	done := make(chan error)
	go func() { done <- manager.Run(ctx) }()

	var sum atomic.Int64
	results := make(chan int, 10)
	for i := 1; i <= 10; i++ {
		value := i
		task := NewTask(func(ctx context.Context) (int, error) {
			return value, nil
		}).Callback(func(result int, err error) {
			sum.Add(int64(result))
			results <- result
		})
		require.NoError(t, manager.Add(task))
	}
	for i := 0; i < 10; i++ {
		<-results
	}
	assert.EqualValues(t, 55, sum.Load())

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.ErrorIs(t, manager.Add(NewTask(func(ctx context.Context) (int, error) { return 0, nil })), ErrStopped)
}

func TestWorkerManagerRejectsWhenFull(t *testing.T) {
	manager := NewWorkerManager(1, 1)
	noop := NewTask(func(ctx context.Context) (struct{}, error) { return struct{}{}, nil })

	require.NoError(t, manager.Add(noop))
	assert.Equal(t, 1, manager.Pending())
	assert.ErrorIs(t, manager.Add(noop), ErrQueueFull)
}

func TestWorkerManagerDrainsOnShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	manager := NewWorkerManager(1, 8)

	var executed atomic.Int32
	for i := 0; i < 5; i++ {
		require.NoError(t, manager.Add(NewTask(func(ctx context.Context) (bool, error) {
			executed.Add(1)
			return true, nil
		})))
	}
	cancel()
	_ = manager.Run(ctx)
	assert.EqualValues(t, 5, executed.Load())
}

func TestTaskTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	manager := NewWorkerManager(1, 1)
	go manager.Run(ctx)

	errCh := make(chan error, 1)
	task := NewTask(func(ctx context.Context) (bool, error) {
		<-ctx.Done()
		return false, ctx.Err()
	}).WithTimeout(50 * time.Millisecond).Callback(func(result bool, err error) {
		errCh <- err
	})
	require.NoError(t, manager.Add(task))

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(5 * time.Second):
		t.Fatal("task was not cancelled by its timeout")
	}
}

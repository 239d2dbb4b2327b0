package runner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunnerStopsAllWhenOneReturns(t *testing.T) {
	manager := NewRunnerManager()
	stopped := make(chan string, 2)

	require.NoError(t, manager.Add("waiting", func(ctx context.Context) error {
		<-ctx.Done()
		stopped <- "waiting"
		return ctx.Err()
	}))
	require.NoError(t, manager.Add("failing", func(ctx context.Context) error {
		return errors.New("boom")
	}))

	err := manager.Run(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "failing: boom")
	assert.Equal(t, "waiting", <-stopped)
}

func TestRunnerStopsOnParentCancel(t *testing.T) {
	manager := NewRunnerManager()
	require.NoError(t, manager.Add("waiting", func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.NoError(t, manager.Run(ctx))
}

func TestRunnerRejectsSecondRun(t *testing.T) {
	manager := NewRunnerManager()
	require.NoError(t, manager.Add("noop", func(ctx context.Context) error { return nil }))
	require.NoError(t, manager.Run(context.Background()))

	assert.ErrorIs(t, manager.Run(context.Background()), ErrManagerAlreadyStarted)
	assert.ErrorIs(t, manager.Add("late", func(ctx context.Context) error { return nil }), ErrManagerAlreadyStarted)
}

package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dennishilgert/fnexec/pkg/logger"
)

var (
	ErrManagerAlreadyStarted = errors.New("runner manager already started")

	log = logger.NewLogger("fnexec.runner")
)

// Runner is a long running task. It must return once ctx is done.
type Runner func(ctx context.Context) error

type namedRunner struct {
	name string
	run  Runner
}

type RunnerManager interface {
	// Add registers a named runner. Runners cannot be added once Run started.
	Add(name string, runner Runner) error
	// Run starts all runners and waits for them. The first runner to return
	// cancels the others.
	Run(ctx context.Context) error
}

type runnerManager struct {
	runners []namedRunner
	lock    sync.Mutex
	running atomic.Bool
}

// NewRunnerManager creates a new RunnerManager.
func NewRunnerManager() RunnerManager {
	return &runnerManager{}
}

func (r *runnerManager) Add(name string, runner Runner) error {
	if r.running.Load() {
		return ErrManagerAlreadyStarted
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	r.runners = append(r.runners, namedRunner{name: name, run: runner})
	return nil
}

func (r *runnerManager) Run(ctx context.Context) error {
	if !r.running.CompareAndSwap(false, true) {
		return ErrManagerAlreadyStarted
	}
	r.lock.Lock()
	runners := append([]namedRunner(nil), r.runners...)
	r.lock.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, len(runners))
	for _, runner := range runners {
		go func(runner namedRunner) {
			defer cancel()

			log.Debugf("starting %s", runner.name)
			err := runner.run(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Errorf("%s stopped with error: %v", runner.name, err)
				errCh <- fmt.Errorf("%s: %w", runner.name, err)
				return
			}
			log.Debugf("%s stopped", runner.name)
			errCh <- nil
		}(runner)
	}

	errs := make([]error, 0)
	for range runners {
		if err := <-errCh; err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

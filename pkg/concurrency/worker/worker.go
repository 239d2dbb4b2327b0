package worker

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrQueueFull = errors.New("task queue is full")
	ErrStopped   = errors.New("worker manager is stopped")
)

type TaskExecutor interface {
	Timeout() time.Duration
	Execute(ctx context.Context)
}

type Task[T any] struct {
	timeout  time.Duration
	executor func(ctx context.Context) (T, error)
	callback func(result T, err error)
}

// NewTask creates a new Task.
func NewTask[T any](executor func(ctx context.Context) (T, error)) *Task[T] {
	return &Task[T]{
		executor: executor,
	}
}

// WithTimeout bounds the execution of the task. Zero means no bound.
func (t *Task[T]) WithTimeout(timeout time.Duration) *Task[T] {
	t.timeout = timeout
	return t
}

// Callback adds a callback function to the task.
func (t *Task[T]) Callback(callback func(result T, err error)) *Task[T] {
	t.callback = callback
	return t
}

func (t *Task[T]) Timeout() time.Duration {
	return t.timeout
}

// Execute runs the task and passes its result to the callback.
func (t *Task[T]) Execute(ctx context.Context) {
	result, err := t.executor(ctx)
	if t.callback != nil {
		t.callback(result, err)
	}
}

type WorkerManager interface {
	// Run starts the workers and blocks until ctx is done and the queue is drained.
	Run(ctx context.Context) error

	// Add queues a task without blocking. It fails with ErrQueueFull when
	// the queue is at capacity and with ErrStopped after shutdown.
	Add(task TaskExecutor) error

	// Pending returns the number of queued tasks.
	Pending() int
}

type workerManager struct {
	workerCount int
	taskCh      chan TaskExecutor
	closed      bool
	lock        sync.RWMutex
}

// NewWorkerManager creates a new WorkerManager with a bounded queue.
func NewWorkerManager(workerCount int, queueSize int) WorkerManager {
	if workerCount <= 0 {
		workerCount = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	return &workerManager{
		workerCount: workerCount,
		taskCh:      make(chan TaskExecutor, queueSize),
	}
}

func (w *workerManager) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	wg.Add(w.workerCount)
	for i := 0; i < w.workerCount; i++ {
		go func() {
			defer wg.Done()
			w.worker()
		}()
	}

	<-ctx.Done()

	w.lock.Lock()
	w.closed = true
	close(w.taskCh)
	w.lock.Unlock()

	// Queued tasks still run so that nothing accepted is lost on shutdown.
	wg.Wait()
	return ctx.Err()
}

func (w *workerManager) Add(task TaskExecutor) error {
	w.lock.RLock()
	defer w.lock.RUnlock()

	if w.closed {
		return ErrStopped
	}
	select {
	case w.taskCh <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

func (w *workerManager) Pending() int {
	return len(w.taskCh)
}

func (w *workerManager) worker() {
	for task := range w.taskCh {
		ctx, cancel := context.Background(), context.CancelFunc(func() {})
		if task.Timeout() > 0 {
			ctx, cancel = context.WithTimeout(ctx, task.Timeout())
		}
		task.Execute(ctx)
		cancel()
	}
}

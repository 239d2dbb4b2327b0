// Package recorder ships invocation records to external sinks without
// blocking the invocation path.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dennishilgert/fnexec/internal/app/executor"
	"github.com/dennishilgert/fnexec/pkg/concurrency/worker"
	"github.com/dennishilgert/fnexec/pkg/logger"
)

var log = logger.NewLogger("fnexec.recorder")

const (
	DefaultWorkerCount = 2
	DefaultQueueSize   = 1024
	DefaultSinkTimeout = 5 * time.Second
)

// Sink persists or publishes invocation records.
type Sink interface {
	Name() string
	Store(ctx context.Context, record executor.Record) error
	Close() error
}

type Options struct {
	WorkerCount int
	QueueSize   int
	SinkTimeout time.Duration
}

type Recorder interface {
	executor.Recorder

	// Run processes queued records until ctx is done, then drains the queue
	// and closes the sinks.
	Run(ctx context.Context) error
}

type recorder struct {
	sinks   []Sink
	workers worker.WorkerManager
	timeout time.Duration
}

// NewRecorder creates an asynchronous recorder fanning out to all sinks.
func NewRecorder(opts Options, sinks ...Sink) Recorder {
	workerCount := opts.WorkerCount
	if workerCount <= 0 {
		workerCount = DefaultWorkerCount
	}
	queueSize := opts.QueueSize
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	timeout := opts.SinkTimeout
	if timeout <= 0 {
		timeout = DefaultSinkTimeout
	}
	return &recorder{
		sinks:   sinks,
		workers: worker.NewWorkerManager(workerCount, queueSize),
		timeout: timeout,
	}
}

// Record queues the record for every sink. A full queue drops the record.
func (r *recorder) Record(ctx context.Context, record executor.Record) {
	for _, sink := range r.sinks {
		sink := sink
		task := worker.NewTask(func(ctx context.Context) (string, error) {
			return sink.Name(), sink.Store(ctx, record)
		}).WithTimeout(r.timeout).Callback(func(name string, err error) {
			if err != nil {
				log.Warnf("failed to record invocation %s in %s: %v", record.InvocationId, name, err)
			}
		})
		if err := r.workers.Add(task); err != nil {
			log.Warnf("dropping record of invocation %s for %s: %v", record.InvocationId, sink.Name(), err)
		}
	}
}

func (r *recorder) Run(ctx context.Context) error {
	if len(r.sinks) == 0 {
		<-ctx.Done()
		return nil
	}
	names := make([]string, 0, len(r.sinks))
	for _, sink := range r.sinks {
		names = append(names, sink.Name())
	}
	log.Infof("recording invocations to %v", names)

	if err := r.workers.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	errs := make([]error, 0)
	for _, sink := range r.sinks {
		if err := sink.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close sink %s: %w", sink.Name(), err))
		}
	}
	return errors.Join(errs...)
}

type logSink struct{}

// NewLogSink creates a sink writing records to the invocation log.
func NewLogSink() Sink {
	return logSink{}
}

func (logSink) Name() string {
	return "log"
}

func (logSink) Store(ctx context.Context, record executor.Record) error {
	logger.ForInvocation(log, record.InvocationId, record.Function).WithFields(map[string]any{
		"outcome":    record.Outcome,
		"durationMs": record.DurationMs,
	}).Debug("invocation recorded")
	return nil
}

func (logSink) Close() error {
	return nil
}

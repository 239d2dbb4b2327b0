package controller

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Stats is a snapshot of the concurrency ceiling.
type Stats struct {
	Capacity int64 `json:"capacity"`
	Running  int64 `json:"running"`
	Queued   int64 `json:"queued"`
}

// slots is the global concurrency ceiling. Waiters are served in arrival order.
type slots struct {
	sem      *semaphore.Weighted
	capacity int64
	running  atomic.Int64
	queued   atomic.Int64
}

func newSlots(capacity int64) *slots {
	return &slots{
		sem:      semaphore.NewWeighted(capacity),
		capacity: capacity,
	}
}

// acquire blocks until a slot is free or ctx is done. The returned release
// function is safe to call more than once.
func (s *slots) acquire(ctx context.Context) (func(), error) {
	s.queued.Add(1)
	err := s.sem.Acquire(ctx, 1)
	s.queued.Add(-1)
	if err != nil {
		return nil, err
	}
	s.running.Add(1)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.running.Add(-1)
			s.sem.Release(1)
		})
	}, nil
}

func (s *slots) stats() Stats {
	return Stats{
		Capacity: s.capacity,
		Running:  s.running.Load(),
		Queued:   s.queued.Load(),
	}
}

// Package worker runs blocking work (identity provider calls, metering
// requests, backoff sleeps) on a bounded set of goroutines and hands the
// caller a Future to await.
package worker

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"

	"github.com/rhuss/lakegate/pkg/observability"
)

// Pool bounds the number of tasks executing concurrently.
type Pool struct {
	name string
	size int64
	sem  *semaphore.Weighted
}

// NewPool creates a pool that runs at most size tasks at once.
// A size <= 0 is treated as 1.
func NewPool(name string, size int) *Pool {
	if size <= 0 {
		size = 1
	}
	return &Pool{
		name: name,
		size: int64(size),
		sem:  semaphore.NewWeighted(int64(size)),
	}
}

// Size returns the maximum number of concurrent tasks.
func (p *Pool) Size() int { return int(p.size) }

// Future is the pending result of a task submitted to a Pool.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Submit schedules fn on the pool and returns immediately. Waiting for a
// free slot happens on the task's own goroutine; if ctx is done before a
// slot frees up, the future resolves with the context error and fn never runs.
func Submit[T any](ctx context.Context, p *Pool, fn func(context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}

	go func() {
		defer close(f.done)

		if err := p.sem.Acquire(ctx, 1); err != nil {
			f.err = fmt.Errorf("acquire %s worker: %w", p.name, err)
			return
		}
		defer p.sem.Release(1)

		observability.WorkersBusy.WithLabelValues(p.name).Inc()
		defer observability.WorkersBusy.WithLabelValues(p.name).Dec()

		defer func() {
			if r := recover(); r != nil {
				f.err = fmt.Errorf("%s task panicked: %v", p.name, r)
			}
		}()

		f.val, f.err = fn(ctx)
	}()

	return f
}

// Await blocks until the task completes or ctx is done. Abandoning a
// future does not stop the task; it runs to completion in the background.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Done returns a channel closed when the task has finished.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Package pool provides a fixed-size worker pool with a bounded task queue.
// It bounds how many search invocations execute concurrently: up to size
// tasks run at once, a bounded backlog queues behind them, and submission
// blocks (or honors context cancellation) once the backlog is full. Work is
// never silently discarded.
package pool

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned when a task is submitted to a closed pool.
var ErrClosed = errors.New("pool closed")

// Pool executes submitted tasks on a fixed set of worker goroutines.
type Pool struct {
	tasks chan func()
	wg    sync.WaitGroup

	// mu is held shared by submitters for the duration of the enqueue so
	// Close can never close the task channel under an in-flight send.
	mu     sync.RWMutex
	closed bool
}

// New starts a pool of size workers with a task backlog of the same size.
// Sizes below 1 are coerced to 1.
func New(size int) *Pool {
	if size < 1 {
		size = 1
	}
	p := &Pool{tasks: make(chan func(), size)}
	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go func() {
			defer p.wg.Done()
			for task := range p.tasks {
				task()
			}
		}()
	}
	return p
}

// Submit enqueues task for execution. It blocks while the backlog is full and
// returns early if ctx is done or the pool has been closed.
func (p *Pool) Submit(ctx context.Context, task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}

	select {
	case p.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting tasks and waits for queued and running tasks to
// finish. Safe to call once; subsequent Submit calls fail with ErrClosed.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	p.wg.Wait()
}

// Run submits fn to the pool and waits for its result, so callers get
// bounded-concurrency execution with ordinary call semantics. If the pool or
// context gives up before fn starts, the zero T and the reason are returned;
// once fn is running it always runs to completion.
func Run[T any](ctx context.Context, p *Pool, fn func() (T, error)) (T, error) {
	type outcome struct {
		val T
		err error
	}
	ch := make(chan outcome, 1)

	err := p.Submit(ctx, func() {
		v, e := fn()
		ch <- outcome{val: v, err: e}
	})
	if err != nil {
		var zero T
		return zero, err
	}

	select {
	case out := <-ch:
		return out.val, out.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

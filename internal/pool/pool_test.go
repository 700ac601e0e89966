package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestRun_ReturnsValueAndError(t *testing.T) {
	p := New(2)
	defer p.Close()

	v, err := Run(context.Background(), p, func() (int, error) { return 42, nil })
	if err != nil || v != 42 {
		t.Fatalf("Run = (%d, %v); want (42, nil)", v, err)
	}

	wantErr := errors.New("boom")
	_, err = Run(context.Background(), p, func() (int, error) { return 0, wantErr })
	if !errors.Is(err, wantErr) {
		t.Fatalf("Run err = %v; want %v", err, wantErr)
	}
}

func TestPool_BoundsConcurrency(t *testing.T) {
	const size = 4
	const tasks = 32

	p := New(size)
	defer p.Close()

	var cur, max atomic.Int64
	var wg sync.WaitGroup
	wg.Add(tasks)
	for i := 0; i < tasks; i++ {
		go func() {
			defer wg.Done()
			_, _ = Run(context.Background(), p, func() (struct{}, error) {
				n := cur.Add(1)
				for {
					m := max.Load()
					if n <= m || max.CompareAndSwap(m, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				cur.Add(-1)
				return struct{}{}, nil
			})
		}()
	}
	wg.Wait()

	if got := max.Load(); got > size {
		t.Fatalf("observed %d concurrent tasks; pool size is %d", got, size)
	}
}

func TestSubmit_HonorsContextWhenQueueFull(t *testing.T) {
	p := New(1)
	defer p.Close()

	started := make(chan struct{})
	release := make(chan struct{})
	// Occupy the single worker, then fill the backlog.
	_ = p.Submit(context.Background(), func() {
		close(started)
		<-release
	})
	<-started
	_ = p.Submit(context.Background(), func() {})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := p.Submit(ctx, func() {})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Submit err = %v; want deadline exceeded", err)
	}
	close(release)
}

func TestClose_DrainsQueuedTasks(t *testing.T) {
	p := New(2)

	var done atomic.Int64
	for i := 0; i < 10; i++ {
		if err := p.Submit(context.Background(), func() { done.Add(1) }); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	p.Close()

	if got := done.Load(); got != 10 {
		t.Fatalf("completed %d tasks; want 10", got)
	}
	if err := p.Submit(context.Background(), func() {}); !errors.Is(err, ErrClosed) {
		t.Fatalf("Submit after Close = %v; want ErrClosed", err)
	}
	p.Close() // idempotent
}

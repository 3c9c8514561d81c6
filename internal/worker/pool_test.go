package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestPoolExecutesSubmittedTasks(t *testing.T) {
	p := NewPool(4, 16, zerolog.Nop())
	defer p.Shutdown(context.Background())

	const tasks = 10
	var executed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < tasks; i++ {
		wg.Add(1)
		err := p.Submit(func(ctx context.Context) {
			defer wg.Done()
			executed.Add(1)
		})
		if err != nil {
			t.Fatalf("submit failed: %v", err)
		}
	}
	wg.Wait()

	if got := executed.Load(); got != tasks {
		t.Errorf("executed %d tasks, want %d", got, tasks)
	}
}

func TestSubmitRejectsWhenQueueFull(t *testing.T) {
	p := NewPool(1, 1, zerolog.Nop())

	started := make(chan struct{})
	release := make(chan struct{})

	// Occupy the single worker.
	if err := p.Submit(func(ctx context.Context) {
		close(started)
		<-release
	}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	<-started

	// Fill the single queue slot.
	if err := p.Submit(func(ctx context.Context) {}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	if err := p.Submit(func(ctx context.Context) {}); !errors.Is(err, ErrQueueFull) {
		t.Errorf("submit error = %v, want ErrQueueFull", err)
	}

	close(release)
	p.Shutdown(context.Background())
}

func TestSubmitAfterShutdown(t *testing.T) {
	p := NewPool(1, 1, zerolog.Nop())
	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}

	if err := p.Submit(func(ctx context.Context) {}); !errors.Is(err, ErrPoolClosed) {
		t.Errorf("submit error = %v, want ErrPoolClosed", err)
	}
}

func TestShutdownWaitsForInFlightTask(t *testing.T) {
	p := NewPool(1, 1, zerolog.Nop())

	started := make(chan struct{})
	var finished atomic.Bool
	if err := p.Submit(func(ctx context.Context) {
		close(started)
		time.Sleep(50 * time.Millisecond)
		finished.Store(true)
	}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	<-started

	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}
	if !finished.Load() {
		t.Error("shutdown returned before the in-flight task finished")
	}
}

func TestShutdownCancelsStragglers(t *testing.T) {
	p := NewPool(1, 1, zerolog.Nop())

	started := make(chan struct{})
	var cancelled atomic.Bool
	if err := p.Submit(func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		cancelled.Store(true)
	}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := p.Shutdown(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("shutdown error = %v, want context.DeadlineExceeded", err)
	}
	if !cancelled.Load() {
		t.Error("in-flight task was not cancelled after the shutdown deadline")
	}
}

func TestTaskPanicDoesNotKillWorker(t *testing.T) {
	p := NewPool(1, 4, zerolog.Nop())
	defer p.Shutdown(context.Background())

	if err := p.Submit(func(ctx context.Context) {
		panic("boom")
	}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	done := make(chan struct{})
	if err := p.Submit(func(ctx context.Context) {
		close(done)
	}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not survive a panicking task")
	}
}

// Package worker provides the bounded admission pool that schedules
// coordinator executions. A fixed number of workers drain a bounded queue;
// a full queue rejects further submissions instead of growing or dropping
// work silently.
package worker

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

var (
	// ErrQueueFull is returned by Submit when the admission queue is at
	// capacity. Callers surface this as backpressure.
	ErrQueueFull = errors.New("admission queue is full")

	// ErrPoolClosed is returned by Submit after Shutdown has begun.
	ErrPoolClosed = errors.New("worker pool is shut down")
)

// Task is one unit of work. The context is cancelled when the pool shuts
// down, so blocking operations inside the task unwind promptly.
type Task func(ctx context.Context)

// Pool runs tasks on a fixed set of workers fed from a bounded queue.
type Pool struct {
	queue   chan Task
	stop    chan struct{}
	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	log     zerolog.Logger

	mu     sync.Mutex
	closed bool
}

// NewPool creates and starts a pool with the given worker count and queue
// capacity.
func NewPool(workers, queueSize int, log zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		queue:   make(chan Task, queueSize),
		stop:    make(chan struct{}),
		baseCtx: ctx,
		cancel:  cancel,
		log:     log,
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	return p
}

// Submit enqueues a task. It never blocks: a full queue returns ErrQueueFull
// immediately so the admission boundary can report backpressure.
func (p *Pool) Submit(t Task) error {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return ErrPoolClosed
	}

	select {
	case p.queue <- t:
		return nil
	default:
		return ErrQueueFull
	}
}

// Shutdown stops intake, waits for in-flight tasks up to the deadline of
// ctx, then cancels the task context so stragglers unwind. Queued tasks
// that never started are lost; that loss is an accepted property of the
// engine, not silent (it is logged).
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	close(p.stop)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	p.cancel()
	<-done

	if dropped := len(p.queue); dropped > 0 {
		p.log.Warn().Int("dropped", dropped).Msg("queued tasks abandoned on shutdown")
	}
	return err
}

func (p *Pool) worker(idx int) {
	defer p.wg.Done()
	for {
		// Fast-exit check so a closed stop channel wins over queued work.
		select {
		case <-p.stop:
			return
		default:
		}

		select {
		case <-p.stop:
			return
		case t := <-p.queue:
			p.run(idx, t)
		}
	}
}

// run executes one task, containing panics so a faulty task never takes the
// worker down with it.
func (p *Pool) run(idx int, t Task) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error().Int("worker", idx).Interface("panic", r).Msg("task panicked")
		}
	}()
	t(p.baseCtx)
}

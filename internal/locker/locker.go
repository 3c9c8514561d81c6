// Package locker provides keyed mutual exclusion over an unbounded account
// id space using a fixed pool of lock stripes. Distinct ids may hash to the
// same stripe; that only adds incidental contention, never incorrect access.
package locker

import (
	"context"
	"errors"
	"hash/fnv"
	"time"

	"github.com/google/uuid"
)

// ErrAcquireTimeout is returned when a stripe could not be taken within the
// caller's timeout.
var ErrAcquireTimeout = errors.New("lock acquire timed out")

// Manager maps account ids to a fixed number of lock stripes. Each stripe is
// a capacity-1 channel so that acquisition can be bounded by a timeout and
// aborted by context cancellation, which sync.Mutex cannot do.
//
// Stripes are not reentrant: acquiring the same stripe twice from one
// goroutine deadlocks. Callers locking a pair of ids must check Stripe for
// aliasing and take the shared stripe only once.
type Manager struct {
	stripes []chan struct{}
}

// New creates a Manager with n stripes. n is typically a small multiple of
// the worker pool size.
func New(n int) *Manager {
	if n <= 0 {
		panic("locker: stripe count must be positive")
	}
	stripes := make([]chan struct{}, n)
	for i := range stripes {
		stripes[i] = make(chan struct{}, 1)
	}
	return &Manager{stripes: stripes}
}

// Stripe returns the stripe index for an account id. The mapping is a
// stable FNV-1a hash, so every coordinator in the process agrees on it.
func (m *Manager) Stripe(id uuid.UUID) int {
	h := fnv.New32a()
	h.Write(id[:])
	return int(h.Sum32() % uint32(len(m.stripes)))
}

// Acquire takes the stripe for id, waiting at most timeout. It returns nil
// once the stripe is held, ErrAcquireTimeout if the wait expired, or the
// context error if ctx was cancelled first. It never blocks indefinitely.
func (m *Manager) Acquire(ctx context.Context, id uuid.UUID, timeout time.Duration) error {
	stripe := m.stripes[m.Stripe(id)]

	select {
	case stripe <- struct{}{}:
		return nil
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case stripe <- struct{}{}:
		return nil
	case <-timer.C:
		return ErrAcquireTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees the stripe for id. It must be called exactly once per
// successful Acquire, on every exit path of the caller. Releasing a stripe
// that is not held is a programming error and panics, mirroring
// sync.Mutex.Unlock.
func (m *Manager) Release(id uuid.UUID) {
	stripe := m.stripes[m.Stripe(id)]
	select {
	case <-stripe:
	default:
		panic("locker: release of unheld stripe")
	}
}

package versioning

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/epicgrid/epicgrid/internal/tracker"
)

// ErrSubtreeBusy is returned when another propagation holds the lock on
// the same subtree root and it could not be acquired within the retry
// budget.
var ErrSubtreeBusy = errors.New("another propagation is updating this subtree")

// rootLocks serializes propagations per subtree root. Two propagations
// on overlapping subtrees rooted at different issues can still
// interleave; locking the root covers the common case (two clients
// dragging the same epic) without a global lock.
type rootLocks struct {
	mu   sync.Mutex
	held map[tracker.IssueID]bool
}

func newRootLocks() *rootLocks {
	return &rootLocks{held: make(map[tracker.IssueID]bool)}
}

func (l *rootLocks) tryAcquire(id tracker.IssueID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[id] {
		return false
	}
	l.held[id] = true
	return true
}

func (l *rootLocks) release(id tracker.IssueID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, id)
}

// acquire blocks until the root lock is obtained, retrying with constant
// backoff, or fails with ErrSubtreeBusy once the budget is exhausted.
func (l *rootLocks) acquire(ctx context.Context, id tracker.IssueID) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(25*time.Millisecond), 40),
		ctx,
	)
	return backoff.Retry(func() error {
		if l.tryAcquire(id) {
			return nil
		}
		return ErrSubtreeBusy
	}, policy)
}

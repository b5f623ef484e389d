// Package jobs runs non-urgent derived work in the background,
// fire-and-forget relative to the triggering request. Failures are
// logged, never surfaced to the original caller.
package jobs

import (
	"context"
	"log"
	"sync"
)

// Runner executes submitted jobs on their own goroutines. Wait blocks
// until everything submitted so far has finished — used at shutdown and
// in tests.
type Runner struct {
	wg   sync.WaitGroup
	logf func(format string, args ...any)
}

// NewRunner creates a Runner logging through the standard logger.
func NewRunner() *Runner {
	return &Runner{logf: log.Printf}
}

// Submit starts a job in the background. A panic or error in the job is
// logged under its name and otherwise ignored.
func (r *Runner) Submit(name string, job func(ctx context.Context) error) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if p := recover(); p != nil {
				r.logf("WARNING: background job %s panicked: %v", name, p)
			}
		}()
		if err := job(context.Background()); err != nil {
			r.logf("WARNING: background job %s: %v", name, err)
		}
	}()
}

// Wait blocks until all submitted jobs have completed.
func (r *Runner) Wait() {
	r.wg.Wait()
}

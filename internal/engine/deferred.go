package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/stackfn-io/stackfn/internal/logging"
)

const defaultParallelism = 10

type task struct {
	addr string
	run  func(context.Context) error
}

// Queue collects the asynchronous build obligations registered while a
// declaration pass runs. Registration is cheap and synchronous; the work
// only happens when DrainAll is called, once, after the pass has declared
// everything.
type Queue struct {
	mu      sync.Mutex
	tasks   []*task
	drained bool
}

func NewQueue() *Queue {
	return &Queue{}
}

// Register enqueues a deferred task for the declaration at addr.
// It fails once the queue has been drained: a drained queue belongs to a
// finished pass and must not pick up new work.
func (q *Queue) Register(addr string, fn func(context.Context) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.drained {
		return fmt.Errorf("cannot register deferred task for %s: pass already drained", addr)
	}
	q.tasks = append(q.tasks, &task{addr: addr, run: fn})
	return nil
}

// Len returns the number of registered, not yet drained tasks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// DrainAll runs every registered task concurrently and waits for all of
// them to settle. A failing task never cancels its siblings: every
// misconfigured function should surface in a single pass. Failures are
// aggregated with the owning declaration's address; an empty queue drains
// successfully. Draining a second time is an error.
func (q *Queue) DrainAll(ctx context.Context) error {
	q.mu.Lock()
	if q.drained {
		q.mu.Unlock()
		return errors.New("deferred tasks already drained")
	}
	q.drained = true
	tasks := q.tasks
	q.tasks = nil
	q.mu.Unlock()

	if len(tasks) == 0 {
		return nil
	}
	logging.Debug("draining deferred tasks", "count", len(tasks))

	var (
		mu   sync.Mutex
		errs []error
		wg   sync.WaitGroup
	)
	sem := make(chan struct{}, defaultParallelism)

	for _, t := range tasks {
		wg.Add(1)
		go func(t *task) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			start := time.Now()
			if err := t.run(ctx); err != nil {
				logging.Debug("deferred task failed", "address", t.addr, "duration", time.Since(start))
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", t.addr, err))
				mu.Unlock()
				return
			}
			logging.Debug("deferred task completed", "address", t.addr, "duration", time.Since(start))
		}(t)
	}
	wg.Wait()

	if len(errs) > 0 {
		return fmt.Errorf("%d deferred build(s) failed: %w", len(errs), errors.Join(errs...))
	}
	return nil
}

// Package queue provides the shared work queue drained by the factor search
// workers. The queue is filled once, before any consumer starts, and is
// never repopulated.
package queue

import (
	"context"
	"errors"
	"time"

	"github.com/agbru/factorcalc/internal/factor"
)

// ErrPollTimeout is returned by Poll when no item arrives before the timeout.
var ErrPollTimeout = errors.New("queue: poll timed out")

// WorkQueue is a thread-safe FIFO of work items. Each item is handed to
// exactly one caller of Poll; the channel receive is the claim. The channel
// stays open: a consumer that finds it empty waits for the poll timeout and
// then decides from Empty whether to stop.
type WorkQueue struct {
	items chan factor.WorkItem
	total int
}

// New creates a queue preloaded with items, in order.
func New(items []factor.WorkItem) *WorkQueue {
	q := &WorkQueue{
		items: make(chan factor.WorkItem, len(items)),
		total: len(items),
	}
	for _, it := range items {
		q.items <- it
	}
	return q
}

// Poll claims the next item, waiting at most timeout for one to become
// available. It returns ErrPollTimeout if the wait expires and ctx.Err() if
// the context ends first. A non-positive timeout makes Poll non-blocking.
func (q *WorkQueue) Poll(ctx context.Context, timeout time.Duration) (factor.WorkItem, error) {
	if err := ctx.Err(); err != nil {
		return factor.WorkItem{}, err
	}
	if timeout <= 0 {
		select {
		case it := <-q.items:
			return it, nil
		default:
			return factor.WorkItem{}, ErrPollTimeout
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case it := <-q.items:
		return it, nil
	case <-ctx.Done():
		return factor.WorkItem{}, ctx.Err()
	case <-timer.C:
		return factor.WorkItem{}, ErrPollTimeout
	}
}

// Empty reports whether no items remain. The answer may be stale as soon as
// it is returned when other consumers are polling; callers re-check it after
// every unsuccessful Poll.
func (q *WorkQueue) Empty() bool {
	return len(q.items) == 0
}

// Len returns the number of unclaimed items.
func (q *WorkQueue) Len() int {
	return len(q.items)
}

// Total returns the number of items the queue was created with.
func (q *WorkQueue) Total() int {
	return q.total
}

package orchestration

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/agbru/factorcalc/internal/factor"
)

// slowReporter consumes updates with a delay, simulating a sluggish terminal.
func slowReporter(delay time.Duration) ProgressReporter {
	return ProgressReporterFunc(func(wg *sync.WaitGroup, ch <-chan ProgressUpdate, _ int, _ io.Writer) {
		defer wg.Done()
		for range ch {
			time.Sleep(delay)
		}
	})
}

// TestOrchestrationNoDeadlock_MixedBehaviors verifies that FindFactorPairs
// completes under combinations of scan speed, reporter speed and pool size.
func TestOrchestrationNoDeadlock_MixedBehaviors(t *testing.T) {
	slowScan := func(it factor.WorkItem) []factor.FactorPair {
		time.Sleep(time.Millisecond)
		return it.Scan()
	}
	panicScan := func(it factor.WorkItem) []factor.FactorPair {
		if it.Start%2 == 0 {
			panic("simulated failure")
		}
		return it.Scan()
	}

	testCases := []struct {
		name     string
		number   int
		threads  int
		chunk    int
		scan     func(factor.WorkItem) []factor.FactorPair
		reporter ProgressReporter
	}{
		{name: "instant", number: 1_000_000, threads: 4, chunk: 10},
		{name: "slow_scan", number: 10_000, threads: 3, chunk: 5, scan: slowScan},
		{name: "slow_reporter_flood", number: 1_000_000, threads: 8, chunk: 1, reporter: slowReporter(10 * time.Microsecond)},
		{name: "every_other_worker_panics", number: 10_000, threads: 4, chunk: 1, scan: panicScan},
		{name: "single_worker", number: 999_999, threads: 1, chunk: 3},
		{name: "workers_exceed_chunks", number: 4, threads: 32, chunk: 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			opts := Options{PollTimeout: 5 * time.Millisecond, scanItem: tc.scan}

			done := make(chan struct{})
			go func() {
				defer close(done)
				_, _ = FindFactorPairs(ctx, tc.number, tc.threads, tc.chunk, opts, tc.reporter, io.Discard)
			}()

			select {
			case <-done:
				// Success - no deadlock
			case <-time.After(10 * time.Second):
				t.Fatal("DEADLOCK: FindFactorPairs did not complete within timeout")
			}
		})
	}
}

// TestOrchestrationNoDeadlock_ContextCancellation verifies that cancelling
// the context while workers are busy does not cause a deadlock, even with a
// reporter that has stopped reading.
func TestOrchestrationNoDeadlock_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	stuck := make(chan struct{})
	reporter := ProgressReporterFunc(func(wg *sync.WaitGroup, ch <-chan ProgressUpdate, _ int, _ io.Writer) {
		defer wg.Done()
		<-stuck
		for range ch {
		}
	})
	opts := Options{
		PollTimeout: time.Second,
		scanItem: func(it factor.WorkItem) []factor.FactorPair {
			time.Sleep(2 * time.Millisecond)
			return it.Scan()
		},
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = FindFactorPairs(ctx, 1_000_000, 2, 1, opts, reporter, io.Discard)
	}()

	// Cancel after a short delay, then let the reporter drain.
	time.Sleep(50 * time.Millisecond)
	cancel()
	close(stuck)

	select {
	case <-done:
		// Success
	case <-time.After(5 * time.Second):
		t.Fatal("DEADLOCK after context cancellation")
	}
}

// TestOrchestrationNoDeadlock_LongPollTimeout checks that cancellation
// releases a worker stuck in a long poll on an empty queue, and that the
// scan, already complete, is not reported as interrupted.
func TestOrchestrationNoDeadlock_LongPollTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scanned := make(chan struct{})
	opts := Options{
		PollTimeout: time.Hour,
		beforePoll:  lineUpOnLastItem(2),
		scanItem: func(it factor.WorkItem) []factor.FactorPair {
			defer close(scanned)
			return it.Scan()
		},
	}

	type outcome struct {
		res SearchResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := FindFactorPairs(ctx, 36, 2, 6, opts, nil, nil)
		done <- outcome{res, err}
	}()

	<-scanned
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case o := <-done:
		if o.err != nil {
			t.Errorf("complete scan reported %v", o.err)
		}
		if !o.res.Complete() {
			t.Errorf("scanned %d of %d chunks", o.res.Scanned, o.res.Chunks)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("cancellation did not release the waiting worker")
	}
}

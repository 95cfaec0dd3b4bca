package orchestration

import (
	"context"
	"errors"
	"io"
	"math"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/prometheus/client_golang/prometheus"

	apperrors "github.com/agbru/factorcalc/internal/errors"
	"github.com/agbru/factorcalc/internal/factor"
	"github.com/agbru/factorcalc/internal/metrics"
)

func sorted(pairs []factor.FactorPair) []factor.FactorPair {
	out := append([]factor.FactorPair(nil), pairs...)
	factor.SortPairs(out)
	return out
}

func pairs(ab ...int) []factor.FactorPair {
	out := make([]factor.FactorPair, 0, len(ab)/2)
	for i := 0; i+1 < len(ab); i += 2 {
		out = append(out, factor.FactorPair{Factor1: ab[i], Factor2: ab[i+1]})
	}
	return out
}

// fastOptions keeps the tail of each test short: a worker that loses the
// race for the last item waits at most one poll timeout.
func fastOptions() Options {
	return Options{PollTimeout: 10 * time.Millisecond}
}

// TestFindFactorPairs verifies the aggregated result against known answers.
func TestFindFactorPairs(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		number    int
		threads   int
		chunkSize int
		want      []factor.FactorPair
	}{
		{"36 with 4 workers", 36, 4, 2, pairs(1, 36, 2, 18, 3, 12, 4, 9, 6, 6)},
		{"100 single worker single chunk", 100, 1, 100, pairs(1, 100, 2, 50, 4, 25, 5, 20, 10, 10)},
		{"one", 1, 1, 1, pairs(1, 1)},
		{"prime", 13, 3, 1, pairs(1, 13)},
		{"perfect square chunk 1", 36, 3, 1, pairs(1, 36, 2, 18, 3, 12, 4, 9, 6, 6)},
		{"more workers than chunks", 36, 64, 5, pairs(1, 36, 2, 18, 3, 12, 4, 9, 6, 6)},
		{"chunk larger than range", 97, 2, 1000, pairs(1, 97)},
		{"chunk math.MaxInt", 36, 2, math.MaxInt, pairs(1, 36, 2, 18, 3, 12, 4, 9, 6, 6)},
		{"chunk math.MaxInt-2", 36, 2, math.MaxInt - 2, pairs(1, 36, 2, 18, 3, 12, 4, 9, 6, 6)},
		{"chunk math.MaxInt/2", 100, 3, math.MaxInt / 2, pairs(1, 100, 2, 50, 4, 25, 5, 20, 10, 10)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res, err := FindFactorPairs(context.Background(), tt.number, tt.threads, tt.chunkSize, fastOptions(), nil, nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := sorted(res.Pairs); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("pairs = %v, want %v", got, tt.want)
			}
			if !res.Complete() {
				t.Errorf("scanned %d of %d chunks", res.Scanned, res.Chunks)
			}
			if len(res.Workers) != tt.threads {
				t.Errorf("got %d worker reports, want %d", len(res.Workers), tt.threads)
			}
		})
	}
}

func TestFindFactorPairs_InvalidInputs(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name                   string
		number, threads, chunk int
		wantField              string
	}{
		{"zero number", 0, 1, 1, "number"},
		{"zero threads", 10, 0, 1, "threads"},
		{"negative chunk", 10, 1, -1, "chunk"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := FindFactorPairs(context.Background(), tt.number, tt.threads, tt.chunk, Options{}, nil, nil)
			var vErr apperrors.ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if vErr.Field != tt.wantField {
				t.Errorf("field = %q, want %q", vErr.Field, tt.wantField)
			}
		})
	}
}

// TestFindFactorPairs_WorkerReports checks that the per-worker accounting
// adds up and that every worker ends terminated.
func TestFindFactorPairs_WorkerReports(t *testing.T) {
	t.Parallel()
	res, err := FindFactorPairs(context.Background(), 1_000_000, 4, 7, fastOptions(), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	chunks, found := 0, 0
	for i, w := range res.Workers {
		if w.ID != i {
			t.Errorf("report %d has ID %d", i, w.ID)
		}
		if w.State != StateTerminated {
			t.Errorf("worker %d state = %s, want terminated", w.ID, w.State)
		}
		if w.Err != nil {
			t.Errorf("worker %d unexpected error: %v", w.ID, w.Err)
		}
		chunks += w.Chunks
		found += w.Pairs
	}
	if chunks != res.Chunks || res.Chunks != len(factor.Partition(1_000_000, 7)) {
		t.Errorf("workers scanned %d chunks, search had %d", chunks, res.Chunks)
	}
	if found != len(res.Pairs) {
		t.Errorf("workers reported %d pairs, aggregate has %d", found, len(res.Pairs))
	}
	if res.Duration <= 0 {
		t.Error("duration should be positive")
	}
}

// TestFindFactorPairs_WorkerPanic verifies that a failing worker is isolated:
// its siblings drain the queue and only the pairs of the failed item are lost.
func TestFindFactorPairs_WorkerPanic(t *testing.T) {
	t.Parallel()
	opts := fastOptions()
	opts.scanItem = func(it factor.WorkItem) []factor.FactorPair {
		if it.Start == 3 {
			panic("boom")
		}
		return it.Scan()
	}

	res, err := FindFactorPairs(context.Background(), 36, 4, 1, opts, nil, nil)

	var wErr apperrors.WorkerError
	if !errors.As(err, &wErr) {
		t.Fatalf("expected WorkerError, got %v", err)
	}
	if apperrors.ExitCodeFor(err) != apperrors.ExitErrorPartial {
		t.Errorf("exit code = %d, want %d", apperrors.ExitCodeFor(err), apperrors.ExitErrorPartial)
	}
	want := pairs(1, 36, 2, 18, 4, 9, 6, 6)
	if got := sorted(res.Pairs); !reflect.DeepEqual(got, want) {
		t.Errorf("pairs = %v, want %v", got, want)
	}

	failed := 0
	for _, w := range res.Workers {
		if w.Err != nil {
			failed++
			if w.ID != wErr.WorkerID || w.State != StateTerminated {
				t.Errorf("unexpected failed report %+v", w)
			}
		}
	}
	if failed != 1 {
		t.Errorf("%d workers failed, want 1", failed)
	}
}

// TestFindFactorPairs_CanceledBeforeStart ensures a dead context yields an
// empty partial result and a CancellationError, not a hang.
func TestFindFactorPairs_CanceledBeforeStart(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := FindFactorPairs(ctx, 36, 2, 1, fastOptions(), nil, nil)

	var cErr apperrors.CancellationError
	if !errors.As(err, &cErr) {
		t.Fatalf("expected CancellationError, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error should wrap context.Canceled: %v", err)
	}
	if len(res.Pairs) != 0 || res.Scanned != 0 {
		t.Errorf("expected nothing scanned, got %d pairs and %d chunks", len(res.Pairs), res.Scanned)
	}
	if res.Chunks != 6 {
		t.Errorf("Chunks = %d, want 6", res.Chunks)
	}
}

// TestFindFactorPairs_CanceledMidway checks that partial results are
// returned and that each of them is a correct pair.
func TestFindFactorPairs_CanceledMidway(t *testing.T) {
	t.Parallel()
	const n = 1_000_000
	opts := fastOptions()
	opts.scanItem = func(it factor.WorkItem) []factor.FactorPair {
		time.Sleep(5 * time.Millisecond)
		return it.Scan()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	res, err := FindFactorPairs(ctx, n, 2, 10, opts, nil, nil)

	var cErr apperrors.CancellationError
	if !errors.As(err, &cErr) {
		t.Fatalf("expected CancellationError, got %v", err)
	}
	if apperrors.ExitCodeFor(err) != apperrors.ExitErrorTimeout {
		t.Errorf("a deadline should map to the timeout exit code, got %d", apperrors.ExitCodeFor(err))
	}
	if res.Complete() || res.Scanned == 0 {
		t.Errorf("expected a partial scan, got %d of %d", res.Scanned, res.Chunks)
	}
	seen := make(map[int]bool)
	for _, p := range res.Pairs {
		if p.Factor1*p.Factor2 != n || seen[p.Factor1] {
			t.Errorf("invalid or duplicate pair %v", p)
		}
		seen[p.Factor1] = true
	}
}

func TestFindFactorPairs_ShutdownTimeout(t *testing.T) {
	t.Parallel()
	opts := fastOptions()
	opts.ShutdownTimeout = 30 * time.Millisecond
	opts.scanItem = func(it factor.WorkItem) []factor.FactorPair {
		time.Sleep(5 * time.Millisecond)
		return it.Scan()
	}

	res, err := FindFactorPairs(context.Background(), 10_000, 2, 1, opts, nil, nil)

	var tErr apperrors.TimeoutError
	if !errors.As(err, &tErr) {
		t.Fatalf("expected TimeoutError, got %v", err)
	}
	if tErr.Limit != opts.ShutdownTimeout {
		t.Errorf("Limit = %s, want %s", tErr.Limit, opts.ShutdownTimeout)
	}
	if res.Complete() {
		t.Error("search should be partial")
	}
	for _, w := range res.Workers {
		if w.State != StateTerminated {
			t.Errorf("worker %d not terminated after shutdown: %s", w.ID, w.State)
		}
	}
}

// lineUpOnLastItem returns a beforePoll hook that holds the first n polls
// until all n workers have seen the queue non-empty, so that all but one of
// them lose the race for a single remaining item.
func lineUpOnLastItem(n int) func(int) {
	var (
		arrived sync.WaitGroup
		calls   atomic.Int32
	)
	arrived.Add(n)
	return func(int) {
		if calls.Add(1) <= int32(n) {
			arrived.Done()
			arrived.Wait()
		}
	}
}

// TestFindFactorPairs_PollTimeout checks that a worker losing the last item
// waits out the poll timeout before re-checking the queue, so the setting
// bounds the tail of the search.
func TestFindFactorPairs_PollTimeout(t *testing.T) {
	t.Parallel()
	const long = 400 * time.Millisecond

	run := func(timeout time.Duration) SearchResult {
		opts := Options{PollTimeout: timeout, beforePoll: lineUpOnLastItem(2)}
		// 36 in one chunk of 6: a single work item for two workers.
		res, err := FindFactorPairs(context.Background(), 36, 2, 6, opts, nil, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !res.Complete() || len(res.Pairs) != 5 {
			t.Fatalf("incomplete result: %+v", res)
		}
		if res.Workers[0].Chunks+res.Workers[1].Chunks != 1 {
			t.Fatalf("the single item must be claimed once: %+v", res.Workers)
		}
		return res
	}

	if d := run(long).Duration; d < long {
		t.Errorf("losing worker returned after %s, want at least the %s poll timeout", d, long)
	}
	if d := run(time.Millisecond).Duration; d >= long {
		t.Errorf("short poll timeout still took %s", d)
	}
}

// TestFindFactorPairs_Progress verifies that the reporter sees one update per
// chunk and that the last one reports completion.
func TestFindFactorPairs_Progress(t *testing.T) {
	t.Parallel()
	var (
		mu      sync.Mutex
		updates []ProgressUpdate
		total   int
	)
	reporter := ProgressReporterFunc(func(wg *sync.WaitGroup, ch <-chan ProgressUpdate, totalChunks int, _ io.Writer) {
		defer wg.Done()
		mu.Lock()
		total = totalChunks
		mu.Unlock()
		for u := range ch {
			mu.Lock()
			updates = append(updates, u)
			mu.Unlock()
		}
	})

	res, err := FindFactorPairs(context.Background(), 10_000, 3, 4, fastOptions(), reporter, io.Discard)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if total != res.Chunks {
		t.Errorf("reporter told %d chunks, want %d", total, res.Chunks)
	}
	if len(updates) != res.Chunks {
		t.Fatalf("got %d updates, want %d", len(updates), res.Chunks)
	}
	maxDone := 0
	for _, u := range updates {
		if u.Total != res.Chunks || u.WorkerID < 0 || u.WorkerID >= 3 {
			t.Errorf("malformed update %+v", u)
		}
		if u.Done > maxDone {
			maxDone = u.Done
		}
	}
	if maxDone != res.Chunks {
		t.Errorf("highest Done = %d, want %d", maxDone, res.Chunks)
	}
}

func gatherValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		m := mf.GetMetric()[0]
		switch {
		case m.GetCounter() != nil:
			return m.GetCounter().GetValue()
		case m.GetGauge() != nil:
			return m.GetGauge().GetValue()
		case m.GetHistogram() != nil:
			return float64(m.GetHistogram().GetSampleCount())
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

func TestFindFactorPairs_Metrics(t *testing.T) {
	t.Parallel()
	m := metrics.NewSearchMetrics()
	opts := fastOptions()
	opts.Metrics = m

	res, err := FindFactorPairs(context.Background(), 3600, 4, 3, opts, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reg := m.Registry()
	if got := gatherValue(t, reg, "factorcalc_chunks_processed_total"); got != float64(res.Chunks) {
		t.Errorf("chunks counter = %v, want %d", got, res.Chunks)
	}
	if got := gatherValue(t, reg, "factorcalc_factor_pairs_found_total"); got != float64(len(res.Pairs)) {
		t.Errorf("pairs counter = %v, want %d", got, len(res.Pairs))
	}
	if got := gatherValue(t, reg, "factorcalc_active_workers"); got != 0 {
		t.Errorf("active workers = %v after join, want 0", got)
	}
	if got := gatherValue(t, reg, "factorcalc_search_duration_seconds"); got != 1 {
		t.Errorf("duration samples = %v, want 1", got)
	}
}

// TestFindFactorPairs_MetricsPartialSearch checks that an interrupted search
// is still counted in the duration histogram.
func TestFindFactorPairs_MetricsPartialSearch(t *testing.T) {
	t.Parallel()
	m := metrics.NewSearchMetrics()
	opts := fastOptions()
	opts.Metrics = m
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := FindFactorPairs(ctx, 3600, 2, 1, opts, nil, nil)
	if err == nil || res.Complete() {
		t.Fatalf("expected a partial search, got err=%v scanned=%d/%d", err, res.Scanned, res.Chunks)
	}
	if got := gatherValue(t, m.Registry(), "factorcalc_search_duration_seconds"); got != 1 {
		t.Errorf("duration samples = %v, want 1", got)
	}
}

func TestWorkerState_String(t *testing.T) {
	t.Parallel()
	tests := map[WorkerState]string{
		StateRunning:        "running",
		StateProcessingItem: "processing",
		StateTerminated:     "terminated",
		WorkerState(9):      "WorkerState(9)",
	}
	for state, want := range tests {
		if got := state.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}

// TestFindFactorPairs_PropertyBased checks concurrency invariance and
// idempotence: the result set never depends on the worker count or chunk
// size, and two runs agree.
func TestFindFactorPairs_PropertyBased(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 60
	properties := gopter.NewProperties(parameters)

	opts := Options{PollTimeout: time.Millisecond}

	properties.Property("result equals the sequential enumeration", prop.ForAll(
		func(number, threads, chunkSize int) bool {
			res, err := FindFactorPairs(context.Background(), number, threads, chunkSize, opts, nil, nil)
			if err != nil {
				return false
			}
			return reflect.DeepEqual(sorted(res.Pairs), factor.Expected(number))
		},
		gen.IntRange(1, 200_000),
		gen.IntRange(1, 16),
		gen.IntRange(1, 64),
	))

	properties.Property("two runs yield the same set", prop.ForAll(
		func(number, threads, chunkSize int) bool {
			a, errA := FindFactorPairs(context.Background(), number, threads, chunkSize, opts, nil, nil)
			b, errB := FindFactorPairs(context.Background(), number, threads, chunkSize, opts, nil, nil)
			if errA != nil || errB != nil {
				return false
			}
			return reflect.DeepEqual(sorted(a.Pairs), sorted(b.Pairs))
		},
		gen.IntRange(1, 50_000),
		gen.IntRange(1, 8),
		gen.IntRange(1, 32),
	))

	properties.TestingRun(t)
}

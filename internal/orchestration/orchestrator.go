package orchestration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/agbru/factorcalc/internal/config"
	apperrors "github.com/agbru/factorcalc/internal/errors"
	"github.com/agbru/factorcalc/internal/factor"
	"github.com/agbru/factorcalc/internal/logging"
	"github.com/agbru/factorcalc/internal/metrics"
	"github.com/agbru/factorcalc/internal/parallel"
	"github.com/agbru/factorcalc/internal/queue"
)

// ProgressBufferMultiplier defines the buffer size multiplier for the progress
// channel. A larger buffer reduces the likelihood of blocking workers when the
// UI is slow to consume updates.
const ProgressBufferMultiplier = 5

const tracerName = "github.com/agbru/factorcalc/internal/orchestration"

// WorkerState is the lifecycle state of a single worker.
type WorkerState int

const (
	// StateRunning means the worker is waiting on the queue.
	StateRunning WorkerState = iota
	// StateProcessingItem means the worker is scanning a claimed item.
	StateProcessingItem
	// StateTerminated means the worker has left its loop.
	StateTerminated
)

// String returns the state name used in logs and reports.
func (s WorkerState) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateProcessingItem:
		return "processing"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("WorkerState(%d)", int(s))
	}
}

// WorkerReport summarizes what one worker did.
type WorkerReport struct {
	ID     int
	Chunks int
	Pairs  int
	State  WorkerState
	// Err is set when the worker stopped on an unexpected failure.
	Err error
}

// SearchResult is the aggregate of a factor search.
type SearchResult struct {
	// Pairs holds every pair found, concatenated in worker order. Within one
	// worker the pairs follow increasing Factor1; across workers there is no
	// order.
	Pairs []factor.FactorPair
	// Chunks is the number of work items the range was split into.
	Chunks int
	// Scanned is the number of work items actually scanned. It is lower than
	// Chunks only when the search was interrupted.
	Scanned int
	// Workers holds one report per worker, indexed by worker ID.
	Workers  []WorkerReport
	Duration time.Duration
}

// Complete reports whether every work item was scanned.
func (r SearchResult) Complete() bool {
	return r.Scanned == r.Chunks
}

// Options tunes a search. The zero value is usable.
type Options struct {
	// PollTimeout bounds each wait of a worker on the queue.
	// Defaults to config.DefaultPollTimeout.
	PollTimeout time.Duration
	// ShutdownTimeout bounds the wait for all workers to finish.
	// Defaults to config.DefaultShutdownTimeout.
	ShutdownTimeout time.Duration
	// Logger receives lifecycle and per-poll debug events. Defaults to a
	// disabled logger.
	Logger logging.Logger
	// Metrics, when non-nil, is updated as work progresses.
	Metrics *metrics.SearchMetrics
	// Tracer creates the search and worker spans. Defaults to the global
	// OpenTelemetry tracer provider.
	Tracer trace.Tracer

	// scanItem replaces factor.WorkItem.Scan in tests.
	scanItem func(factor.WorkItem) []factor.FactorPair
	// beforePoll, when set, runs after a worker saw a non-empty queue and
	// before it polls. Tests use it to line workers up on the last item.
	beforePoll func(workerID int)
}

func (o Options) withDefaults() Options {
	if o.PollTimeout <= 0 {
		o.PollTimeout = config.DefaultPollTimeout
	}
	if o.ShutdownTimeout <= 0 {
		o.ShutdownTimeout = config.DefaultShutdownTimeout
	}
	if o.Logger == nil {
		o.Logger = logging.NopLogger()
	}
	if o.Tracer == nil {
		o.Tracer = otel.Tracer(tracerName)
	}
	if o.scanItem == nil {
		o.scanItem = factor.WorkItem.Scan
	}
	return o
}

// worker holds the private state of one worker. Its fields are written only
// by the owning goroutine and read only after the pool has been joined.
type worker struct {
	id     int
	state  WorkerState
	chunks int
	pairs  []factor.FactorPair
	err    error
}

type searchPool struct {
	queue    *queue.WorkQueue
	opts     Options
	progress chan<- ProgressUpdate
	workers  []worker
	scanned  atomic.Int64
	errs     parallel.ErrorCollector
}

// FindFactorPairs finds every pair (a, b) with a*b = number and a <= b.
//
// The range [1, floor(sqrt(number))] is partitioned into work items of at
// most chunkSize candidates, preloaded into a shared queue and drained by
// exactly numThreads workers. Once all workers have terminated, their local
// lists are concatenated. The result is not sorted.
//
// A failing worker never stops its siblings. The returned error is non-nil
// when the result may be incomplete, and the partial result is returned
// alongside it:
//   - apperrors.CancellationError when ctx ends before the queue is drained;
//   - apperrors.TimeoutError when the workers outlive opts.ShutdownTimeout;
//   - apperrors.WorkerError (joined) for each worker that panicked.
//
// Parameters:
//   - ctx: The context for cancellation. Workers stop at their next poll.
//   - number, numThreads, chunkSize: The search inputs, all at least 1.
//   - opts: Tuning and instrumentation.
//   - reporter: Receives progress updates (nil means NullProgressReporter).
//   - out: The writer handed to the reporter.
//
// Returns:
//   - SearchResult: The aggregated pairs and per-worker reports.
//   - error: A ValidationError for bad inputs, or one of the errors above.
func FindFactorPairs(ctx context.Context, number, numThreads, chunkSize int, opts Options, reporter ProgressReporter, out io.Writer) (SearchResult, error) {
	if err := validateInputs(number, numThreads, chunkSize); err != nil {
		return SearchResult{}, err
	}
	opts = opts.withDefaults()
	if reporter == nil {
		reporter = NullProgressReporter{}
	}
	if out == nil {
		out = io.Discard
	}

	start := time.Now()
	ctx, span := opts.Tracer.Start(ctx, "FindFactorPairs", trace.WithAttributes(
		attribute.Int("factor.number", number),
		attribute.Int("factor.threads", numThreads),
		attribute.Int("factor.chunk_size", chunkSize),
	))
	defer span.End()

	items := factor.Partition(number, chunkSize)
	opts.Logger.Info("starting factor search",
		logging.Int("number", number),
		logging.Int("threads", numThreads),
		logging.Int("chunks", len(items)),
		logging.Duration("poll_timeout", opts.PollTimeout),
	)

	progressChan := make(chan ProgressUpdate, numThreads*ProgressBufferMultiplier)
	var displayWg sync.WaitGroup
	displayWg.Add(1)
	go reporter.DisplayProgress(&displayWg, progressChan, len(items), out)

	p := &searchPool{
		queue:    queue.New(items),
		opts:     opts,
		progress: progressChan,
		workers:  make([]worker, numThreads),
	}

	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	// No WithContext: a failed worker must not cancel its siblings.
	var g errgroup.Group
	g.SetLimit(numThreads)
	for i := range p.workers {
		w := &p.workers[i]
		w.id = i
		g.Go(func() error {
			p.run(workerCtx, w)
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()

	waitErr := awaitWorkers(ctx, done, opts.ShutdownTimeout)
	if waitErr != nil {
		// Workers stop at their next poll; a claimed item is always
		// finished, so this wait is bounded by one chunk scan.
		cancelWorkers()
		<-done
	}
	close(progressChan)
	displayWg.Wait()

	result := p.aggregate(len(items))
	result.Duration = time.Since(start)
	opts.Metrics.ObserveSearch(result.Duration)

	if errors.Is(waitErr, errInterrupted) {
		waitErr = nil
	}
	if waitErr == nil && !result.Complete() && ctx.Err() != nil {
		waitErr = apperrors.CancellationError{Operation: "factor search", Cause: ctx.Err()}
	}
	err := waitErr
	if workerErrs := p.errs.Joined(); workerErrs != nil {
		err = errors.Join(waitErr, workerErrs)
	}

	span.SetAttributes(
		attribute.Int("factor.pairs", len(result.Pairs)),
		attribute.Int("factor.scanned", result.Scanned),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "search incomplete")
		opts.Logger.Error("factor search incomplete", err,
			logging.Int("scanned", result.Scanned),
			logging.Int("chunks", result.Chunks),
			logging.Int("failed_workers", p.errs.Count()),
		)
	} else {
		opts.Logger.Info("factor search finished",
			logging.Int("pairs", len(result.Pairs)),
			logging.Duration("duration", result.Duration),
		)
	}
	return result, err
}

func validateInputs(number, numThreads, chunkSize int) error {
	switch {
	case number < 1:
		return apperrors.ValidationError{Field: "number", Message: fmt.Sprintf("must be at least 1, got %d", number)}
	case numThreads < 1:
		return apperrors.ValidationError{Field: "threads", Message: fmt.Sprintf("must be at least 1, got %d", numThreads)}
	case chunkSize < 1:
		return apperrors.ValidationError{Field: "chunk", Message: fmt.Sprintf("must be at least 1, got %d", chunkSize)}
	}
	return nil
}

// awaitWorkers waits for done, the shutdown limit or the end of ctx,
// whichever comes first. Only the limit yields an error here; a cancelled
// ctx is classified by the caller once the scanned count is known.
func awaitWorkers(ctx context.Context, done <-chan struct{}, limit time.Duration) error {
	timer := time.NewTimer(limit)
	defer timer.Stop()

	select {
	case <-done:
		return nil
	case <-timer.C:
		return apperrors.TimeoutError{Operation: "worker shutdown", Limit: limit}
	case <-ctx.Done():
		return errInterrupted
	}
}

// errInterrupted marks a wait cut short by the caller's context. It never
// leaves FindFactorPairs.
var errInterrupted = errors.New("interrupted")

// run is the worker loop: poll, scan, repeat until the queue is observed
// empty after a poll, or ctx ends.
func (p *searchPool) run(ctx context.Context, w *worker) {
	ctx, span := p.opts.Tracer.Start(ctx, "worker", trace.WithAttributes(attribute.Int("worker.id", w.id)))
	defer span.End()

	p.opts.Metrics.WorkerStarted()
	w.state = StateRunning
	defer func() {
		if r := recover(); r != nil {
			w.err = apperrors.WorkerError{WorkerID: w.id, Cause: fmt.Errorf("panic: %v", r)}
			p.errs.SetError(w.err)
			span.RecordError(w.err)
			span.SetStatus(codes.Error, "worker panicked")
			p.opts.Logger.Error("worker failed", w.err, logging.Int("worker", w.id), logging.Int("chunks", w.chunks))
		}
		w.state = StateTerminated
		p.opts.Metrics.WorkerStopped(w.err != nil)
		span.SetAttributes(
			attribute.Int("worker.chunks", w.chunks),
			attribute.Int("worker.pairs", len(w.pairs)),
		)
		p.opts.Logger.Debug("worker terminated",
			logging.Int("worker", w.id),
			logging.Int("chunks", w.chunks),
			logging.Int("pairs", len(w.pairs)),
		)
	}()

	for !p.queue.Empty() {
		if p.opts.beforePoll != nil {
			p.opts.beforePoll(w.id)
		}
		item, err := p.queue.Poll(ctx, p.opts.PollTimeout)
		switch {
		case err == nil:
			p.opts.Logger.Debug("claimed work item",
				logging.Int("worker", w.id),
				logging.Time("at", time.Now()),
				logging.String("item", item.String()),
			)
			w.state = StateProcessingItem
			found := p.opts.scanItem(item)
			w.pairs = append(w.pairs, found...)
			w.chunks++
			w.state = StateRunning
			p.opts.Metrics.ChunkProcessed(len(found))
			p.reportProgress(ctx, w.id)
		case errors.Is(err, queue.ErrPollTimeout):
			// The loop condition re-checks emptiness.
			p.opts.Logger.Debug("no work item claimed",
				logging.Int("worker", w.id),
				logging.Time("at", time.Now()),
				logging.Err(err),
			)
		default:
			p.opts.Logger.Debug("worker interrupted",
				logging.Int("worker", w.id),
				logging.Time("at", time.Now()),
				logging.Err(err),
			)
			return
		}
	}
}

func (p *searchPool) reportProgress(ctx context.Context, workerID int) {
	update := ProgressUpdate{
		WorkerID: workerID,
		Done:     int(p.scanned.Add(1)),
		Total:    p.queue.Total(),
	}
	select {
	case p.progress <- update:
	case <-ctx.Done():
	}
}

// aggregate concatenates the local lists in worker order. It must only be
// called once every worker has terminated.
func (p *searchPool) aggregate(total int) SearchResult {
	res := SearchResult{
		Chunks:  total,
		Workers: make([]WorkerReport, len(p.workers)),
	}
	for i := range p.workers {
		w := &p.workers[i]
		res.Pairs = append(res.Pairs, w.pairs...)
		res.Scanned += w.chunks
		res.Workers[i] = WorkerReport{
			ID:     w.id,
			Chunks: w.chunks,
			Pairs:  len(w.pairs),
			State:  w.state,
			Err:    w.err,
		}
	}
	return res
}

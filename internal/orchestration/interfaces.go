//go:generate mockgen -source=interfaces.go -destination=mocks/mock_interfaces.go -package=mocks

package orchestration

import (
	"io"
	"sync"
)

// ProgressUpdate reports how many work items have been scanned so far.
// Done is cumulative across all workers, so a reporter only ever needs the
// latest update.
type ProgressUpdate struct {
	// WorkerID identifies the worker that finished the item.
	WorkerID int
	// Done is the number of work items scanned by the whole pool.
	Done int
	// Total is the number of work items the search started with.
	Total int
}

// ProgressReporter defines the interface for displaying search progress.
// This interface decouples the orchestration layer from the presentation
// layer: the worker pool only publishes updates, and implementations decide
// how (or whether) to render them.
type ProgressReporter interface {
	// DisplayProgress consumes updates until progressChan is closed.
	// It is started in its own goroutine and must call wg.Done on return.
	//
	// Parameters:
	//   - wg: A WaitGroup to signal when display is complete.
	//   - progressChan: Channel receiving progress updates from the workers.
	//   - totalChunks: The number of work items in the search.
	//   - out: The writer for progress output.
	DisplayProgress(wg *sync.WaitGroup, progressChan <-chan ProgressUpdate, totalChunks int, out io.Writer)
}

// ProgressReporterFunc is a function adapter that implements ProgressReporter.
type ProgressReporterFunc func(wg *sync.WaitGroup, progressChan <-chan ProgressUpdate, totalChunks int, out io.Writer)

// DisplayProgress calls the underlying function.
func (f ProgressReporterFunc) DisplayProgress(wg *sync.WaitGroup, progressChan <-chan ProgressUpdate, totalChunks int, out io.Writer) {
	f(wg, progressChan, totalChunks, out)
}

// NullProgressReporter is a no-op implementation of ProgressReporter.
// It drains the progress channel without displaying anything.
// Useful for quiet mode or testing.
type NullProgressReporter struct{}

// DisplayProgress drains the channel without output.
func (NullProgressReporter) DisplayProgress(wg *sync.WaitGroup, progressChan <-chan ProgressUpdate, _ int, _ io.Writer) {
	defer wg.Done()
	for range progressChan {
		// Drain channel silently
	}
}

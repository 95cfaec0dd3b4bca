//go:generate mockgen -source=ui.go -destination=mocks/mock_ui.go -package=mocks

package cli

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/briandowns/spinner"

	"github.com/agbru/factorcalc/internal/format"
	"github.com/agbru/factorcalc/internal/orchestration"
)

const (
	// ProgressRefreshRate defines the refresh frequency of the progress bar.
	ProgressRefreshRate = 200 * time.Millisecond
	// ProgressBarWidth defines the width in characters of the progress bar.
	ProgressBarWidth = 40
)

// Spinner is an interface that abstracts the behavior of a terminal spinner.
// This allows for the decoupling of the `DisplayProgress` function from a
// specific spinner implementation, facilitating easier testing and maintenance.
type Spinner interface {
	// Start begins the spinner animation.
	Start()
	// Stop halts the spinner animation.
	Stop()
	// UpdateSuffix sets the text that is displayed after the spinner.
	//
	// Parameters:
	//   - suffix: The text string to display.
	UpdateSuffix(suffix string)
}

// realSpinner is a wrapper for the `spinner.Spinner` that implements the
// `Spinner` interface.
type realSpinner struct {
	s *spinner.Spinner
}

// Start begins the spinner animation.
func (rs *realSpinner) Start() {
	rs.s.Start()
}

// Stop halts the spinner animation.
func (rs *realSpinner) Stop() {
	rs.s.Stop()
}

// UpdateSuffix sets the text that is displayed after the spinner.
func (rs *realSpinner) UpdateSuffix(suffix string) {
	rs.s.Lock()
	rs.s.Suffix = suffix
	rs.s.Unlock()
}

var newSpinner = func(options ...spinner.Option) Spinner {
	// Using the same interval as ProgressRefreshRate to synchronize
	s := spinner.New(spinner.CharSets[11], ProgressRefreshRate, options...)
	return &realSpinner{s}
}

// FormatProgressLine builds the spinner suffix for the current progress:
// bar, percentage, chunk counter and ETA.
func FormatProgressLine(p *format.ChunkProgress) string {
	return fmt.Sprintf(" %s %5.1f%% [%d/%d] chunks, ETA %s",
		format.FormatProgressBar(p.Fraction(), ProgressBarWidth),
		p.Fraction()*100,
		p.Done(), p.Total(),
		format.FormatETA(p.ETA()))
}

// DisplayProgress renders a spinner with a progress bar until progressChan
// is closed. Updates are coalesced: the display is refreshed on a ticker
// rather than on every update.
//
// Parameters:
//   - wg: Marked done when the display has stopped.
//   - progressChan: Channel receiving progress updates from the workers.
//   - totalChunks: The number of work items in the search.
//   - out: The writer for the spinner.
func DisplayProgress(wg *sync.WaitGroup, progressChan <-chan orchestration.ProgressUpdate, totalChunks int, out io.Writer) {
	defer wg.Done()
	if totalChunks <= 0 {
		for range progressChan {
		}
		return
	}

	state := format.NewChunkProgress(totalChunks)
	s := newSpinner(spinner.WithWriter(out))
	s.UpdateSuffix(FormatProgressLine(state))
	s.Start()

	ticker := time.NewTicker(ProgressRefreshRate)
	defer ticker.Stop()

	for {
		select {
		case update, ok := <-progressChan:
			if !ok {
				s.Stop()
				fmt.Fprintf(out, "%s\n", FormatProgressLine(state))
				return
			}
			if update.Done > state.Done() {
				state.Update(update.Done)
			}
		case <-ticker.C:
			s.UpdateSuffix(FormatProgressLine(state))
		}
	}
}

// CLIProgressReporter implements orchestration.ProgressReporter for CLI output.
type CLIProgressReporter struct{}

// Verify that CLIProgressReporter implements orchestration.ProgressReporter.
var _ orchestration.ProgressReporter = CLIProgressReporter{}

// DisplayProgress displays a spinner and progress bar for the running search.
func (CLIProgressReporter) DisplayProgress(wg *sync.WaitGroup, progressChan <-chan orchestration.ProgressUpdate, totalChunks int, out io.Writer) {
	DisplayProgress(wg, progressChan, totalChunks, out)
}

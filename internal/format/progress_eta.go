package format

import (
	"fmt"
	"strings"
	"time"
)

// ChunkProgress tracks how many work items of a search have been scanned
// and estimates the remaining time from the average rate so far.
// It is not safe for concurrent use; a single progress consumer owns it.
type ChunkProgress struct {
	total     int
	done      int
	startTime time.Time
	now       func() time.Time
}

// NewChunkProgress creates a tracker for total work items, starting now.
func NewChunkProgress(total int) *ChunkProgress {
	return &ChunkProgress{total: total, startTime: time.Now(), now: time.Now}
}

// Update records the number of completed items. Values outside [0, total]
// are clamped.
func (p *ChunkProgress) Update(done int) {
	switch {
	case done < 0:
		done = 0
	case done > p.total:
		done = p.total
	}
	p.done = done
}

// Done returns the number of completed items.
func (p *ChunkProgress) Done() int { return p.done }

// Total returns the number of items in the search.
func (p *ChunkProgress) Total() int { return p.total }

// Fraction returns completion in [0, 1]. An empty search counts as complete.
func (p *ChunkProgress) Fraction() float64 {
	if p.total <= 0 {
		return 1
	}
	return float64(p.done) / float64(p.total)
}

// ETA extrapolates the remaining time from the elapsed time and the
// completed fraction. It returns 0 until at least one item is done.
func (p *ChunkProgress) ETA() time.Duration {
	frac := p.Fraction()
	if p.done == 0 || frac >= 1 {
		return 0
	}
	elapsed := p.now().Sub(p.startTime)
	return time.Duration(float64(elapsed) * (1 - frac) / frac)
}

// FormatETA renders an ETA for display; zero renders as "calculating...".
func FormatETA(eta time.Duration) string {
	switch {
	case eta <= 0:
		return "calculating..."
	case eta < time.Second:
		return "< 1s"
	case eta < time.Minute:
		return fmt.Sprintf("%ds", int(eta.Seconds()))
	case eta < time.Hour:
		return fmt.Sprintf("%dm%02ds", int(eta.Minutes()), int(eta.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%02dm", int(eta.Hours()), int(eta.Minutes())%60)
	}
}

// FormatProgressBar renders a fixed-width bar for a fraction in [0, 1].
func FormatProgressBar(fraction float64, width int) string {
	if fraction > 1 {
		fraction = 1
	}
	if fraction < 0 {
		fraction = 0
	}
	filled := int(fraction * float64(width))
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

package cli

import (
	"fmt"
	"io"
	"runtime"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/agbru/factorcalc/internal/config"
	"github.com/agbru/factorcalc/internal/factor"
	"github.com/agbru/factorcalc/internal/format"
	"github.com/agbru/factorcalc/internal/metrics"
	"github.com/agbru/factorcalc/internal/orchestration"
	"github.com/agbru/factorcalc/internal/sysmon"
	"github.com/agbru/factorcalc/internal/ui"
)

// PrintExecutionConfig displays the search parameters and environment.
//
// Parameters:
//   - cfg: The resolved application configuration.
//   - out: The writer for standard output.
func PrintExecutionConfig(cfg config.AppConfig, out io.Writer) {
	chunks := len(factor.Partition(cfg.N, cfg.ChunkSize))
	fmt.Fprintf(out, "--- Execution Configuration ---\n")
	fmt.Fprintf(out, "Searching factor pairs of %s%d%s with %s%d%s workers and chunks of %s%d%s (%d work items).\n",
		ui.ColorMagenta(), cfg.N, ui.ColorReset(),
		ui.ColorCyan(), cfg.Threads, ui.ColorReset(),
		ui.ColorCyan(), cfg.ChunkSize, ui.ColorReset(),
		chunks)
	fmt.Fprintf(out, "Poll timeout %s%s%s, overall timeout %s%s%s.\n",
		ui.ColorYellow(), cfg.PollTimeout, ui.ColorReset(), ui.ColorYellow(), cfg.Timeout, ui.ColorReset())
	fmt.Fprintf(out, "Environment: %s%d%s logical processors, Go %s%s%s.\n",
		ui.ColorCyan(), runtime.NumCPU(), ui.ColorReset(), ui.ColorCyan(), runtime.Version(), ui.ColorReset())
	fmt.Fprintf(out, "\n--- Starting Execution ---\n")
}

// DisplaySystemStats prints a one-line host utilization summary.
func DisplaySystemStats(stats sysmon.Stats, out io.Writer) {
	fmt.Fprintf(out, "System: %s%s%s\n", ui.ColorCyan(), stats, ui.ColorReset())
}

// DisplayResult prints the header naming number followed by one "(a, b)"
// line per pair, in the order given.
func DisplayResult(out io.Writer, number int, pairs []factor.FactorPair) {
	fmt.Fprintf(out, "Factor pairs for %d:\n", number)
	DisplayQuietResult(out, pairs)
}

// DisplayQuietResult prints only the pairs, one per line.
func DisplayQuietResult(out io.Writer, pairs []factor.FactorPair) {
	fmt.Fprint(out, FormatPairs(pairs))
}

// FormatPairs returns the pairs one per line, each line newline-terminated.
func FormatPairs(pairs []factor.FactorPair) string {
	var b strings.Builder
	for _, p := range pairs {
		b.WriteString(p.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// DisplayResultTable renders the per-worker report of a search as a table,
// followed by a summary line.
func DisplayResultTable(out io.Writer, res orchestration.SearchResult) {
	styles := ui.CurrentTableStyles()
	headers := []string{"Worker", "Chunks", "Pairs", "State", "Error"}

	rows := make([][]string, 0, len(res.Workers))
	for _, w := range res.Workers {
		errText := "-"
		if w.Err != nil {
			errText = w.Err.Error()
		}
		rows = append(rows, []string{
			strconv.Itoa(w.ID),
			strconv.Itoa(w.Chunks),
			strconv.Itoa(w.Pairs),
			w.State.String(),
			errText,
		})
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	lines := make([]string, 0, len(rows)+1)
	header := make([]string, len(headers))
	for i, h := range headers {
		header[i] = styles.Header.Width(widths[i] + 2).Render(h)
	}
	lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, header...))
	for r, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			style := styles.Cell
			if i == len(row)-1 && res.Workers[r].Err != nil {
				style = styles.Error
			}
			cells[i] = style.Width(widths[i] + 2).Render(cell)
		}
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}

	fmt.Fprintf(out, "\n--- Worker Report ---\n")
	fmt.Fprintln(out, styles.Box.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)))
	fmt.Fprintf(out, "Scanned %s%d/%d%s work items, found %s%d%s pairs in %s%s%s.\n",
		ui.ColorCyan(), res.Scanned, res.Chunks, ui.ColorReset(),
		ui.ColorGreen(), len(res.Pairs), ui.ColorReset(),
		ui.ColorYellow(), format.FormatExecutionDuration(res.Duration), ui.ColorReset())
}

// DisplayMemoryStats shows memory statistics after a search.
func DisplayMemoryStats(snap metrics.MemorySnapshot, out io.Writer) {
	fmt.Fprintf(out, "\nMemory Stats:\n")
	fmt.Fprintf(out, "  Heap in use:     %s\n", format.FormatBytes(snap.HeapAlloc))
	fmt.Fprintf(out, "  Total allocated: %s\n", format.FormatBytes(snap.TotalAlloc))
	fmt.Fprintf(out, "  GC cycles:       %d\n", snap.NumGC)
	fmt.Fprintf(out, "  GC pause total:  %.2fms\n", float64(snap.PauseTotalNs)/1e6)
	fmt.Fprintf(out, "  Goroutines:      %d\n", snap.NumGoroutine)
}

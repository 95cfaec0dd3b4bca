// # Naming Conventions
//
// Functions in this package follow consistent naming patterns based on their behavior:
//
//   - Display* functions write formatted output to an [io.Writer].
//     They handle presentation logic and colorization.
//     Examples: [DisplayResult], [DisplayQuietResult], [DisplayProgress].
//
//   - Format* functions return a formatted string without performing I/O.
//     They are pure functions suitable for composition.
//     Examples: [FormatPairs], [FormatProgressLine].
//
//   - Write* functions write data to files on the filesystem.
//     They handle file creation, directory setup, and error handling.
//     Examples: [WriteResultToFile].

package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/agbru/factorcalc/internal/orchestration"
	"github.com/agbru/factorcalc/internal/ui"
)

// OutputConfig holds configuration for result output.
type OutputConfig struct {
	// OutputFile is the path to save the result (empty for no file output).
	OutputFile string
	// Quiet mode prints the pairs only.
	Quiet bool
	// Verbose adds the worker report table.
	Verbose bool
}

// WriteResultToFile writes a search result to a file, creating parent
// directories as needed. Pairs are written in the order given; callers sort
// them first.
//
// Parameters:
//   - path: The destination file.
//   - number: The searched number.
//   - res: The search result.
//
// Returns:
//   - error: An error if the file cannot be written.
func WriteResultToFile(path string, number int, res orchestration.SearchResult) error {
	if path == "" {
		return nil
	}

	// Ensure directory exists
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	complete := "yes"
	if !res.Complete() {
		complete = "no"
	}
	fmt.Fprintf(file, "# Factor Search Result\n")
	fmt.Fprintf(file, "# Generated: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(file, "# N: %d\n", number)
	fmt.Fprintf(file, "# Workers: %d\n", len(res.Workers))
	fmt.Fprintf(file, "# Work items: %d/%d\n", res.Scanned, res.Chunks)
	fmt.Fprintf(file, "# Complete: %s\n", complete)
	fmt.Fprintf(file, "# Duration: %s\n", res.Duration)
	fmt.Fprintf(file, "\n")
	DisplayResult(file, number, res.Pairs)

	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

// DisplayResultWithConfig displays a result with the given output configuration.
// This is a unified function that handles all output modes.
//
// Parameters:
//   - out: The output writer.
//   - number: The searched number.
//   - res: The search result, pairs already sorted.
//   - config: Output configuration.
//
// Returns:
//   - error: An error if file output fails.
func DisplayResultWithConfig(out io.Writer, number int, res orchestration.SearchResult, config OutputConfig) error {
	if config.Quiet {
		DisplayQuietResult(out, res.Pairs)
	} else {
		DisplayResult(out, number, res.Pairs)
		if config.Verbose {
			DisplayResultTable(out, res)
		}
	}

	if config.OutputFile != "" {
		if err := WriteResultToFile(config.OutputFile, number, res); err != nil {
			return err
		}
		if !config.Quiet {
			fmt.Fprintf(out, "\n%s✓ Result saved to: %s%s%s\n",
				ui.ColorGreen(), ui.ColorCyan(), config.OutputFile, ui.ColorReset())
		}
	}
	return nil
}

// Package config parses the factorcalc configuration from command-line
// flags, FACTORCALC_* environment variables and an optional YAML/JSON file.
//
// Resolution order (highest priority first):
//  1. CLI flags
//  2. Environment variables (FACTORCALC_N, FACTORCALC_THREADS, ...)
//  3. Config file given by -config or FACTORCALC_CONFIG
//  4. Defaults
package config

import (
	"flag"
	"fmt"
	"io"
	"time"

	apperrors "github.com/agbru/factorcalc/internal/errors"
)

// EnvPrefix is prepended to every environment variable key.
const EnvPrefix = "FACTORCALC_"

const (
	// DefaultPollTimeout bounds each wait on the shared queue.
	DefaultPollTimeout = time.Second
	// DefaultShutdownTimeout is the safety ceiling on joining the workers.
	DefaultShutdownTimeout = time.Hour
	// DefaultTimeout bounds the whole search.
	DefaultTimeout = time.Hour
	// DefaultLogLevel keeps the terminal clean unless something goes wrong.
	DefaultLogLevel = "warn"
)

// AppConfig aggregates the application's configuration parameters.
// N, Threads and ChunkSize set to zero mean "ask interactively".
type AppConfig struct {
	// N is the number whose factor pairs are searched.
	N int
	// Threads is the number of concurrent workers.
	Threads int
	// ChunkSize is the maximum number of candidate divisors per work item.
	ChunkSize int
	// PollTimeout bounds each dequeue attempt of a worker.
	PollTimeout time.Duration
	// ShutdownTimeout bounds the wait for all workers to terminate.
	ShutdownTimeout time.Duration
	// Timeout bounds the whole search, including the shutdown wait.
	Timeout time.Duration
	// Quiet prints only the factor pairs.
	Quiet bool
	// Verbose adds the worker report, memory and system statistics.
	Verbose bool
	// NoColor disables ANSI colors.
	NoColor bool
	// OutputFile, when set, receives a copy of the result.
	OutputFile string
	// LogLevel is a zerolog level name.
	LogLevel string
	// MetricsAddr, when set, serves Prometheus metrics on this address.
	MetricsAddr string
	// ConfigFile is the optional YAML/JSON configuration file.
	ConfigFile string
	// Completion, when set, prints a shell completion script and exits.
	Completion string
	// ShowVersion prints the version and exits.
	ShowVersion bool
}

// Default returns the configuration used when nothing is specified.
func Default() AppConfig {
	return AppConfig{
		PollTimeout:     DefaultPollTimeout,
		ShutdownTimeout: DefaultShutdownTimeout,
		Timeout:         DefaultTimeout,
		LogLevel:        DefaultLogLevel,
	}
}

// MissingInputs lists, in prompt order, which of number, threads and chunk
// size still need to be read interactively.
func (c AppConfig) MissingInputs() []string {
	var missing []string
	if c.N == 0 {
		missing = append(missing, "number")
	}
	if c.Threads == 0 {
		missing = append(missing, "threads")
	}
	if c.ChunkSize == 0 {
		missing = append(missing, "chunk")
	}
	return missing
}

// ParseConfig parses command-line arguments, then applies the config file
// and environment overrides for every flag not set explicitly.
//
// Parameters:
//   - programName: The name used in the usage message.
//   - args: The command-line arguments, without the program name.
//   - errWriter: Receives usage and flag parsing errors.
//
// Returns:
//   - AppConfig: The resolved configuration.
//   - error: flag.ErrHelp when -h was given, or a ConfigError.
func ParseConfig(programName string, args []string, errWriter io.Writer) (AppConfig, error) {
	cfg := Default()
	fs := flag.NewFlagSet(programName, flag.ContinueOnError)
	fs.SetOutput(errWriter)
	fs.Usage = func() {
		fmt.Fprintf(errWriter, "Usage: %s [options]\n\n", programName)
		fmt.Fprintf(errWriter, "Finds all factor pairs (a, b) with a*b = N using a pool of workers.\n")
		fmt.Fprintf(errWriter, "Values left at 0 are asked for interactively.\n\nOptions:\n")
		fs.PrintDefaults()
	}

	fs.IntVar(&cfg.N, "n", 0, "The natural number to factor.")
	fs.IntVar(&cfg.Threads, "threads", 0, "Number of concurrent workers.")
	fs.IntVar(&cfg.Threads, "t", 0, "Number of concurrent workers (shorthand).")
	fs.IntVar(&cfg.ChunkSize, "chunk", 0, "Candidate divisors per work item.")
	fs.IntVar(&cfg.ChunkSize, "c", 0, "Candidate divisors per work item (shorthand).")
	fs.DurationVar(&cfg.PollTimeout, "poll-timeout", DefaultPollTimeout, "Maximum wait of a worker on the work queue.")
	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", DefaultShutdownTimeout, "Maximum wait for all workers to finish.")
	fs.DurationVar(&cfg.Timeout, "timeout", DefaultTimeout, "Maximum duration of the whole search.")
	fs.BoolVar(&cfg.Quiet, "quiet", false, "Print only the factor pairs.")
	fs.BoolVar(&cfg.Quiet, "q", false, "Print only the factor pairs (shorthand).")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "Print the worker report and resource statistics.")
	fs.BoolVar(&cfg.Verbose, "v", false, "Print the worker report and resource statistics (shorthand).")
	fs.BoolVar(&cfg.NoColor, "no-color", false, "Disable colored output.")
	fs.StringVar(&cfg.OutputFile, "output", "", "Write the result to this file.")
	fs.StringVar(&cfg.OutputFile, "o", "", "Write the result to this file (shorthand).")
	fs.StringVar(&cfg.LogLevel, "log-level", DefaultLogLevel, "Log level: debug, info, warn, error, disabled.")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090).")
	fs.StringVar(&cfg.ConfigFile, "config", "", "YAML or JSON configuration file.")
	fs.BoolVar(&cfg.ShowVersion, "version", false, "Print the version and exit.")
	fs.BoolVar(&cfg.ShowVersion, "V", false, "Print the version and exit (shorthand).")
	fs.StringVar(&cfg.Completion, "completion", "", "Print a completion script for bash, zsh, fish or powershell.")

	if err := fs.Parse(args); err != nil {
		return AppConfig{}, err
	}
	if fs.NArg() > 0 {
		return AppConfig{}, apperrors.NewConfigError("unexpected arguments: %v", fs.Args())
	}

	if !isFlagSet(fs, "config") {
		cfg.ConfigFile = getEnvString("CONFIG", cfg.ConfigFile)
	}
	if cfg.ConfigFile != "" {
		fc, err := LoadFile(cfg.ConfigFile)
		if err != nil {
			return AppConfig{}, apperrors.NewConfigError("config file %s: %v", cfg.ConfigFile, err)
		}
		if err := applyFileConfig(&cfg, fc, fs); err != nil {
			return AppConfig{}, err
		}
	}
	applyEnvOverrides(&cfg, fs)

	if err := cfg.Validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// Validate rejects values that can never be used. Zero inputs are valid
// here: they are resolved by prompting.
func (c AppConfig) Validate() error {
	switch {
	case c.N < 0:
		return apperrors.NewConfigError("-n must be a natural number, got %d", c.N)
	case c.Threads < 0:
		return apperrors.NewConfigError("-threads must be positive, got %d", c.Threads)
	case c.ChunkSize < 0:
		return apperrors.NewConfigError("-chunk must be positive, got %d", c.ChunkSize)
	case c.PollTimeout <= 0:
		return apperrors.NewConfigError("-poll-timeout must be positive, got %s", c.PollTimeout)
	case c.ShutdownTimeout <= 0:
		return apperrors.NewConfigError("-shutdown-timeout must be positive, got %s", c.ShutdownTimeout)
	case c.Timeout <= 0:
		return apperrors.NewConfigError("-timeout must be positive, got %s", c.Timeout)
	}
	return nil
}

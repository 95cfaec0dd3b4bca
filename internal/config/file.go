package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "github.com/agbru/factorcalc/internal/errors"
)

// FileConfig is the structure of the optional configuration file.
// Durations are written as Go duration strings ("1s", "1h30m").
type FileConfig struct {
	Search      SearchConfig `yaml:"search" json:"search"`
	Output      OutputConfig `yaml:"output" json:"output"`
	Timeout     string       `yaml:"timeout" json:"timeout"`
	LogLevel    string       `yaml:"log_level" json:"log_level"`
	MetricsAddr string       `yaml:"metrics_addr" json:"metrics_addr"`
}

// SearchConfig holds the search parameters.
type SearchConfig struct {
	Number          int    `yaml:"number" json:"number"`
	Threads         int    `yaml:"threads" json:"threads"`
	ChunkSize       int    `yaml:"chunk_size" json:"chunk_size"`
	PollTimeout     string `yaml:"poll_timeout" json:"poll_timeout"`
	ShutdownTimeout string `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// OutputConfig holds presentation settings.
type OutputConfig struct {
	File    string `yaml:"file" json:"file"`
	Quiet   bool   `yaml:"quiet" json:"quiet"`
	Verbose bool   `yaml:"verbose" json:"verbose"`
	NoColor bool   `yaml:"no_color" json:"no_color"`
}

// LoadFile reads a configuration file, choosing the decoder by extension.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var fc FileConfig
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	return &fc, nil
}

// applyFileConfig copies non-zero file values into cfg for every flag that
// was not set explicitly.
func applyFileConfig(cfg *AppConfig, fc *FileConfig, fs *flag.FlagSet) error {
	setInt := func(dst *int, v int, flags ...string) {
		if v != 0 && !isFlagSetAny(fs, flags...) {
			*dst = v
		}
	}
	setString := func(dst *string, v string, flags ...string) {
		if v != "" && !isFlagSetAny(fs, flags...) {
			*dst = v
		}
	}
	setBool := func(dst *bool, v bool, flags ...string) {
		if v && !isFlagSetAny(fs, flags...) {
			*dst = true
		}
	}
	setDuration := func(dst *time.Duration, v, key string, flags ...string) error {
		if v == "" || isFlagSetAny(fs, flags...) {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return apperrors.NewConfigError("config file: invalid %s %q: %v", key, v, err)
		}
		*dst = d
		return nil
	}

	setInt(&cfg.N, fc.Search.Number, "n")
	setInt(&cfg.Threads, fc.Search.Threads, "threads", "t")
	setInt(&cfg.ChunkSize, fc.Search.ChunkSize, "chunk", "c")
	if err := setDuration(&cfg.PollTimeout, fc.Search.PollTimeout, "search.poll_timeout", "poll-timeout"); err != nil {
		return err
	}
	if err := setDuration(&cfg.ShutdownTimeout, fc.Search.ShutdownTimeout, "search.shutdown_timeout", "shutdown-timeout"); err != nil {
		return err
	}
	if err := setDuration(&cfg.Timeout, fc.Timeout, "timeout", "timeout"); err != nil {
		return err
	}
	setString(&cfg.OutputFile, fc.Output.File, "output", "o")
	setBool(&cfg.Quiet, fc.Output.Quiet, "quiet", "q")
	setBool(&cfg.Verbose, fc.Output.Verbose, "verbose", "v")
	setBool(&cfg.NoColor, fc.Output.NoColor, "no-color")
	setString(&cfg.LogLevel, fc.LogLevel, "log-level")
	setString(&cfg.MetricsAddr, fc.MetricsAddr, "metrics-addr")
	return nil
}

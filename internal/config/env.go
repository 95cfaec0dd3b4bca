// This file contains environment variable utilities for configuration override.

package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"
)

// getEnvString returns the value of the environment variable with the given key
// (prefixed with EnvPrefix), or the default value if not set.
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		return val
	}
	return defaultVal
}

// isFlagSet checks if a flag was explicitly set on the command line.
func isFlagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// isFlagSetAny checks if any of the specified flags were explicitly set.
// This is useful for aliased flags where either the short or long form may be used.
func isFlagSetAny(fs *flag.FlagSet, names ...string) bool {
	for _, name := range names {
		if isFlagSet(fs, name) {
			return true
		}
	}
	return false
}

// envOverride declares a single environment variable override.
// Each entry maps an env key (without the FACTORCALC_ prefix) to the CLI flag
// name(s) it corresponds to and a function that applies the env value.
type envOverride struct {
	envKey string
	flags  []string
	apply  func(*AppConfig, string)
}

func intSetter(dst func(*AppConfig) *int) func(*AppConfig, string) {
	return func(c *AppConfig, v string) {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			*dst(c) = parsed
		}
	}
}

func durationSetter(dst func(*AppConfig) *time.Duration) func(*AppConfig, string) {
	return func(c *AppConfig, v string) {
		if parsed, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			*dst(c) = parsed
		}
	}
}

func boolSetter(dst func(*AppConfig) *bool) func(*AppConfig, string) {
	return func(c *AppConfig, v string) {
		p := dst(c)
		*p = parseBoolEnv(v, *p)
	}
}

// envOverrides is the declarative table of all environment variable overrides.
var envOverrides = []envOverride{
	{"N", []string{"n"}, intSetter(func(c *AppConfig) *int { return &c.N })},
	{"THREADS", []string{"threads", "t"}, intSetter(func(c *AppConfig) *int { return &c.Threads })},
	{"CHUNK", []string{"chunk", "c"}, intSetter(func(c *AppConfig) *int { return &c.ChunkSize })},

	{"POLL_TIMEOUT", []string{"poll-timeout"}, durationSetter(func(c *AppConfig) *time.Duration { return &c.PollTimeout })},
	{"SHUTDOWN_TIMEOUT", []string{"shutdown-timeout"}, durationSetter(func(c *AppConfig) *time.Duration { return &c.ShutdownTimeout })},
	{"TIMEOUT", []string{"timeout"}, durationSetter(func(c *AppConfig) *time.Duration { return &c.Timeout })},

	{"OUTPUT", []string{"output", "o"}, func(c *AppConfig, v string) { c.OutputFile = v }},
	{"LOG_LEVEL", []string{"log-level"}, func(c *AppConfig, v string) { c.LogLevel = v }},
	{"METRICS_ADDR", []string{"metrics-addr"}, func(c *AppConfig, v string) { c.MetricsAddr = v }},

	{"QUIET", []string{"quiet", "q"}, boolSetter(func(c *AppConfig) *bool { return &c.Quiet })},
	{"VERBOSE", []string{"verbose", "v"}, boolSetter(func(c *AppConfig) *bool { return &c.Verbose })},
	{"NO_COLOR", []string{"no-color"}, boolSetter(func(c *AppConfig) *bool { return &c.NoColor })},
}

// parseBoolEnv parses a boolean environment variable value.
// Accepts "true", "1", "yes" as true; "false", "0", "no" as false (case-insensitive).
// Returns defaultVal if the value is not recognized.
func parseBoolEnv(val string, defaultVal bool) bool {
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return defaultVal
}

// applyEnvOverrides applies environment variable values to the configuration
// for any flags that were not explicitly set on the command line.
// Malformed numeric or duration values are ignored.
func applyEnvOverrides(config *AppConfig, fs *flag.FlagSet) {
	for _, o := range envOverrides {
		if isFlagSetAny(fs, o.flags...) {
			continue
		}
		if val := os.Getenv(EnvPrefix + o.envKey); val != "" {
			o.apply(config, val)
		}
	}
}

package apperrors

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/agbru/factorcalc/internal/ui"
)

// Application exit codes define the standard exit statuses for the application.
// These codes are used to signal the outcome of the program execution to the OS.
const (
	ExitSuccess       = 0   // Indicates successful execution.
	ExitErrorGeneric  = 1   // Indicates a generic error.
	ExitErrorTimeout  = 2   // Indicates the search exceeded its time limit.
	ExitErrorPartial  = 3   // Indicates a worker failed and the result may be incomplete.
	ExitErrorConfig   = 4   // Indicates a configuration error.
	ExitErrorCanceled = 130 // Indicates the operation was canceled (e.g., SIGINT).
)

// ConfigError represents a user configuration error, such as invalid flags or
// values. It indicates that the application cannot proceed due to incorrect user input.
type ConfigError struct {
	// Message explains the specific configuration error.
	Message string
}

// Error returns the error message for a ConfigError.
func (e ConfigError) Error() string { return e.Message }

// NewConfigError creates a new ConfigError with a formatted message.
//
// Parameters:
//   - format: A format string (see fmt.Sprintf).
//   - a: Arguments to be formatted into the string.
//
// Returns:
//   - error: A new ConfigError instance containing the formatted message.
func NewConfigError(format string, a ...any) error {
	return ConfigError{Message: fmt.Sprintf(format, a...)}
}

// ValidationError represents an input validation failure, such as a
// non-positive or non-numeric value typed at a prompt. It identifies which
// field failed validation and provides a human-readable explanation.
type ValidationError struct {
	// Field is the name of the field that failed validation.
	Field string
	// Message explains the validation failure.
	Message string
	// Cause is the underlying error, if any (e.g. io.EOF from the prompt).
	Cause error
}

// Error returns a formatted message describing the validation failure.
func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error for %q: %s", e.Field, e.Message)
}

// Unwrap returns the underlying cause.
func (e ValidationError) Unwrap() error { return e.Cause }

// CancellationError reports that an operation was interrupted before it
// could finish. Cause is normally context.Canceled or
// context.DeadlineExceeded.
type CancellationError struct {
	// Operation is the name of the interrupted operation.
	Operation string
	// Cause is the context error that triggered the cancellation.
	Cause error
}

// Error returns a formatted message describing the cancellation.
func (e CancellationError) Error() string {
	return fmt.Sprintf("operation %q was interrupted: %v", e.Operation, e.Cause)
}

// Unwrap returns the context error that caused the cancellation.
func (e CancellationError) Unwrap() error { return e.Cause }

// WorkerError encapsulates an unexpected failure inside a single worker,
// such as a recovered panic. Sibling workers are never affected by it.
type WorkerError struct {
	// WorkerID identifies the failing worker.
	WorkerID int
	// Cause is the underlying failure.
	Cause error
}

// Error returns a formatted message naming the failing worker.
func (e WorkerError) Error() string {
	return fmt.Sprintf("worker %d failed: %v", e.WorkerID, e.Cause)
}

// Unwrap returns the original failure, allowing for error chain inspection.
func (e WorkerError) Unwrap() error { return e.Cause }

// TimeoutError represents an exceeded wait. It captures the operation
// name and the duration limit that was exceeded.
type TimeoutError struct {
	// Operation is the name of the operation that timed out.
	Operation string
	// Limit is the duration after which the operation was considered timed out.
	Limit time.Duration
}

// Error returns a formatted message describing the timeout.
func (e TimeoutError) Error() string {
	return fmt.Sprintf("operation %q timed out after %s", e.Operation, e.Limit)
}

// WrapError wraps an error with additional context using fmt.Errorf and %w.
// This allows the wrapped error to be unwrapped with errors.Unwrap() and
// checked with errors.Is() and errors.As().
//
// Parameters:
//   - err: The error to wrap.
//   - format: A format string for the context message.
//   - args: Arguments for the format string.
//
// Returns:
//   - error: The wrapped error, or nil if err is nil.
func WrapError(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// IsContextError checks if the error is a context cancellation or deadline exceeded error.
func IsContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// ExitCodeFor maps an error returned by the search to a process exit code.
// A nil error maps to ExitSuccess.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var (
		timeoutErr TimeoutError
		cancelErr  CancellationError
		workerErr  WorkerError
		configErr  ConfigError
		validErr   ValidationError
	)
	switch {
	case errors.As(err, &timeoutErr), errors.Is(err, context.DeadlineExceeded):
		return ExitErrorTimeout
	case errors.As(err, &cancelErr), errors.Is(err, context.Canceled):
		return ExitErrorCanceled
	case errors.As(err, &workerErr):
		return ExitErrorPartial
	case errors.As(err, &configErr), errors.As(err, &validErr):
		return ExitErrorConfig
	default:
		return ExitErrorGeneric
	}
}

// HandleSearchError prints a colored description of a search error and
// returns the corresponding exit code. The results printed before this call
// remain valid: a failed search only ever yields fewer factor pairs, never
// wrong ones.
//
// Parameters:
//   - err: The error returned by the search.
//   - duration: How long the search ran before failing.
//   - out: The writer for the error message.
//
// Returns:
//   - int: The exit code matching the error class.
func HandleSearchError(err error, duration time.Duration, out io.Writer) int {
	if err == nil {
		return ExitSuccess
	}
	code := ExitCodeFor(err)
	var label string
	switch code {
	case ExitErrorTimeout:
		label = "Search timed out"
	case ExitErrorCanceled:
		label = "Search canceled"
	case ExitErrorPartial:
		label = "Search incomplete"
	default:
		label = "Search failed"
	}
	fmt.Fprintf(out, "%s%s after %s: %v%s\n", ui.ColorRed(), label, duration.Round(time.Millisecond), err, ui.ColorReset())
	if code != ExitErrorGeneric && code != ExitErrorConfig {
		fmt.Fprintf(out, "%sThe factor pairs shown above are correct but may be incomplete.%s\n", ui.ColorYellow(), ui.ColorReset())
	}
	return code
}

package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/agbru/factorcalc/internal/cli"
	"github.com/agbru/factorcalc/internal/config"
	apperrors "github.com/agbru/factorcalc/internal/errors"
	"github.com/agbru/factorcalc/internal/logging"
	"github.com/agbru/factorcalc/internal/ui"
)

// Application represents the factorcalc application instance.
type Application struct {
	Config    config.AppConfig
	ErrWriter io.Writer
	// In is read when a search input is missing from flags, environment
	// and config file.
	In io.Reader
}

// AppOption configures an Application during construction.
type AppOption func(*Application)

// WithInput sets the reader used to prompt for missing inputs.
func WithInput(r io.Reader) AppOption {
	return func(a *Application) { a.In = r }
}

// New creates a new Application instance by parsing command-line arguments.
// args[0] is the program name.
func New(args []string, errWriter io.Writer, opts ...AppOption) (*Application, error) {
	app := &Application{ErrWriter: errWriter, In: os.Stdin}
	for _, opt := range opts {
		opt(app)
	}

	programName := "factorcalc"
	var cmdArgs []string
	if len(args) > 0 {
		programName = args[0]
		cmdArgs = args[1:]
	}

	cfg, err := config.ParseConfig(programName, cmdArgs, errWriter)
	if err != nil {
		return nil, err
	}
	app.Config = cfg
	return app, nil
}

// Run executes the application based on the configured mode and returns the
// process exit code.
func (a *Application) Run(ctx context.Context, out io.Writer) int {
	if a.Config.Completion != "" {
		return a.runCompletion(out)
	}
	if a.Config.ShowVersion {
		PrintVersion(out)
		return apperrors.ExitSuccess
	}

	zerolog.SetGlobalLevel(logging.ParseLevel(a.Config.LogLevel))
	ui.InitTheme(a.Config.NoColor)

	cfg, err := cli.NewPrompter(a.In, out).PromptMissing(a.Config)
	if err != nil {
		fmt.Fprintf(a.ErrWriter, "Error: %v\n", err)
		return apperrors.ExitErrorConfig
	}
	a.Config = cfg

	return a.runSearch(ctx, out)
}

// runCompletion generates shell completion scripts.
func (a *Application) runCompletion(out io.Writer) int {
	if err := cli.GenerateCompletion(out, a.Config.Completion); err != nil {
		fmt.Fprintf(a.ErrWriter, "Error generating completion: %v\n", err)
		return apperrors.ExitErrorConfig
	}
	return apperrors.ExitSuccess
}

// newLogger builds the console logger shared by the search and the metrics
// server. Verbosity is controlled by the zerolog global level.
func (a *Application) newLogger() logging.Logger {
	cw := zerolog.ConsoleWriter{Out: a.ErrWriter, TimeFormat: "15:04:05.000", NoColor: a.Config.NoColor}
	return logging.NewZerologAdapter(zerolog.New(cw).With().Timestamp().Str("component", "factorcalc").Logger())
}

// IsHelpError checks if the error is a help flag error (--help was used).
func IsHelpError(err error) bool {
	return errors.Is(err, flag.ErrHelp)
}

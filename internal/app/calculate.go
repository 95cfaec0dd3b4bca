package app

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/agbru/factorcalc/internal/cli"
	apperrors "github.com/agbru/factorcalc/internal/errors"
	"github.com/agbru/factorcalc/internal/factor"
	"github.com/agbru/factorcalc/internal/logging"
	"github.com/agbru/factorcalc/internal/metrics"
	"github.com/agbru/factorcalc/internal/orchestration"
	"github.com/agbru/factorcalc/internal/sysmon"
)

// runSearch orchestrates one factor search: lifecycle, optional metrics
// endpoint, the worker pool and the presentation of the (possibly partial)
// result.
func (a *Application) runSearch(ctx context.Context, out io.Writer) int {
	// Setup lifecycle (timeout + signals)
	ctx, cancelTimeout := context.WithTimeout(ctx, a.Config.Timeout)
	defer cancelTimeout()
	ctx, stopSignals := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	logger := a.newLogger()
	searchMetrics := metrics.NewSearchMetrics()
	if a.Config.MetricsAddr != "" {
		stopServer := a.startMetricsServer(ctx, searchMetrics, logger)
		defer stopServer()
	}

	if !a.Config.Quiet {
		cli.PrintExecutionConfig(a.Config, out)
		if a.Config.Verbose {
			cli.DisplaySystemStats(sysmon.Sample(), out)
		}
	}

	// Choose progress reporter based on quiet mode
	var reporter orchestration.ProgressReporter
	progressOut := out
	if a.Config.Quiet {
		progressOut = io.Discard
		reporter = orchestration.NullProgressReporter{}
	} else {
		reporter = cli.CLIProgressReporter{}
	}

	collector := metrics.NewMemoryCollector()
	before := collector.Snapshot()

	opts := orchestration.Options{
		PollTimeout:     a.Config.PollTimeout,
		ShutdownTimeout: a.Config.ShutdownTimeout,
		Logger:          logger,
		Metrics:         searchMetrics,
	}
	res, searchErr := orchestration.FindFactorPairs(ctx, a.Config.N, a.Config.Threads, a.Config.ChunkSize, opts, reporter, progressOut)
	factor.SortPairs(res.Pairs)

	outputCfg := cli.OutputConfig{
		OutputFile: a.Config.OutputFile,
		Quiet:      a.Config.Quiet,
		Verbose:    a.Config.Verbose,
	}
	if err := cli.DisplayResultWithConfig(out, a.Config.N, res, outputCfg); err != nil {
		fmt.Fprintf(a.ErrWriter, "Error saving result: %v\n", err)
		if searchErr == nil {
			return apperrors.ExitErrorGeneric
		}
	}
	if a.Config.Verbose && !a.Config.Quiet {
		cli.DisplayMemoryStats(collector.Snapshot().Since(before), out)
	}

	return apperrors.HandleSearchError(searchErr, res.Duration, a.ErrWriter)
}

// startMetricsServer serves searchMetrics until the returned stop function
// is called or ctx ends. stop waits for the server to shut down.
func (a *Application) startMetricsServer(ctx context.Context, m *metrics.SearchMetrics, logger logging.Logger) func() {
	serverCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := metrics.Serve(serverCtx, a.Config.MetricsAddr, m, logger); err != nil {
			logger.Error("metrics server failed", err, logging.String("addr", a.Config.MetricsAddr))
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

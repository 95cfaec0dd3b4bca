package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/agbru/factorcalc/internal/logging"
)

const shutdownGrace = 5 * time.Second

// Serve exposes m on addr under /metrics until ctx ends, then shuts the
// server down gracefully. It returns nil on a clean shutdown.
func Serve(ctx context.Context, addr string, m *SearchMetrics, logger logging.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", secure(m.Handler()))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics server listening", logging.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Debug("metrics server stopped")
	return nil
}

package metrics

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/agbru/factorcalc/internal/logging"
)

func TestSearchMetrics_Counters(t *testing.T) {
	t.Parallel()
	m := NewSearchMetrics()

	m.WorkerStarted()
	m.WorkerStarted()
	m.ChunkProcessed(2)
	m.ChunkProcessed(0)
	m.WorkerStopped(false)
	m.WorkerStopped(true)

	if got := testutil.ToFloat64(m.chunks); got != 2 {
		t.Errorf("chunks = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.pairs); got != 2 {
		t.Errorf("pairs = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.activeWorkers); got != 0 {
		t.Errorf("active workers = %v, want 0", got)
	}
	if got := testutil.ToFloat64(m.workerFailures); got != 1 {
		t.Errorf("worker failures = %v, want 1", got)
	}
}

func TestSearchMetrics_NilSafe(t *testing.T) {
	t.Parallel()
	var m *SearchMetrics
	m.WorkerStarted()
	m.ChunkProcessed(3)
	m.WorkerStopped(true)
	m.ObserveSearch(time.Second)
}

func TestSearchMetrics_Handler(t *testing.T) {
	t.Parallel()
	m := NewSearchMetrics()
	m.ChunkProcessed(1)
	m.ObserveSearch(10 * time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	body := rec.Body.String()

	for _, want := range []string{
		"factorcalc_chunks_processed_total 1",
		"factorcalc_factor_pairs_found_total 1",
		"factorcalc_search_duration_seconds_count 1",
		"go_goroutines",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output should contain %q", want)
		}
	}
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("cannot reserve a port: %v", err)
	}
	addr := l.Addr().String()
	l.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, addr, NewSearchMetrics(), logging.NopLogger()) }()

	var resp *http.Response
	for i := 0; i < 50; i++ {
		resp, err = http.Get("http://" + addr + "/metrics")
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		cancel()
		t.Fatalf("metrics endpoint never came up: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve returned %v, want nil", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
}

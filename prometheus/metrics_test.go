package prometheus

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsAreIndependent(t *testing.T) {
	a := NewMetrics()
	b := NewMetrics()

	a.CommandsDelivered.Inc()

	if got := testutil.ToFloat64(a.CommandsDelivered); got != 1 {
		t.Errorf("Expected 1 delivered command, got %v", got)
	}
	if got := testutil.ToFloat64(b.CommandsDelivered); got != 0 {
		t.Errorf("Expected separate registries, got %v", got)
	}
}

func TestTrackPending(t *testing.T) {
	m := NewMetrics()
	var pending atomic.Bool

	m.TrackPending(pending.Load)
	m.TrackPending(pending.Load)

	if got := testutil.ToFloat64(m.PendingCommandList); got != 0 {
		t.Errorf("Expected gauge 0, got %v", got)
	}

	pending.Store(true)
	if got := testutil.ToFloat64(m.PendingCommandList); got != 1 {
		t.Errorf("Expected gauge 1, got %v", got)
	}

	var nilMetrics *Metrics
	nilMetrics.TrackPending(pending.Load)
	nilMetrics.ObserveRequest("/x", "GET", 200, time.Now())
}

func TestPromHTTPHandler(t *testing.T) {
	m := NewMetrics()
	m.EventsReceived.WithLabelValues("/eventListener/v5", "202").Inc()
	m.ObserveRequest("/eventListener/v5", "POST", 202, time.Now())

	w := httptest.NewRecorder()
	m.PromHTTPHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	body, _ := io.ReadAll(w.Body)
	for _, name := range []string{"ves_events_received_total", "ves_request_duration_seconds", "go_goroutines"} {
		if !strings.Contains(string(body), name) {
			t.Errorf("Expected %s in exposition", name)
		}
	}
}

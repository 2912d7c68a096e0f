package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Payload(3)
	m.SwapDecoded("V2")
	m.SwapDecoded("V2")
	m.DecodeFailures(2)
	m.Duplicate()
	m.Alerts(4)
	m.EnrichmentFailure("balance")

	if got := testutil.ToFloat64(m.logs); got != 3 {
		t.Fatalf("expected 3 logs, got %v", got)
	}
	if got := testutil.ToFloat64(m.swapsDecoded.WithLabelValues("V2")); got != 2 {
		t.Fatalf("expected 2 swaps, got %v", got)
	}
	if got := testutil.ToFloat64(m.decodeFailures); got != 2 {
		t.Fatalf("expected 2 failures, got %v", got)
	}
	if got := testutil.ToFloat64(m.alerts); got != 4 {
		t.Fatalf("expected 4 alerts, got %v", got)
	}
	if got := testutil.ToFloat64(m.enrichmentFailures.WithLabelValues("balance")); got != 1 {
		t.Fatalf("expected 1 enrichment failure, got %v", got)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.Payload(1)
	m.SwapDecoded("V3")
	m.Duplicate()
	m.Reorg()
	m.NotifyError()
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg).Reorg()

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "buyscope_reorgs_total 1") {
		t.Fatalf("metric missing from output:\n%s", rec.Body.String())
	}
}

package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersIncrement(t *testing.T) {
	m := New("test", prometheus.NewRegistry())

	m.ObserveOrder("create", "confirmed")
	m.ObserveOrder("create", "confirmed")
	m.ObserveLedger("decrement", "insufficient_stock")
	m.ObserveCache("menu", true)
	m.ObserveCache("menu", false)
	m.ObserveCompensationFailure()

	if got := testutil.ToFloat64(m.Orders.WithLabelValues("create", "confirmed")); got != 2 {
		t.Errorf("orders = %v", got)
	}
	if got := testutil.ToFloat64(m.LedgerOps.WithLabelValues("decrement", "insufficient_stock")); got != 1 {
		t.Errorf("ledger ops = %v", got)
	}
	if got := testutil.ToFloat64(m.CacheLookups.WithLabelValues("menu", "miss")); got != 1 {
		t.Errorf("cache misses = %v", got)
	}
	if got := testutil.ToFloat64(m.CompensationFailures); got != 1 {
		t.Errorf("compensation failures = %v", got)
	}
}

func TestNilMetricsAreNoop(t *testing.T) {
	var m *Metrics
	m.ObserveOrder("create", "failed")
	m.ObserveCache("order", true)
	m.ObserveCompensationFailure()

	h := m.Middleware("x", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("code = %d", rec.Code)
	}
}

func TestMiddlewareRecordsStatus(t *testing.T) {
	m := New("mw", prometheus.NewRegistry())
	h := m.Middleware("orders", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/orders", nil))

	if got := testutil.ToFloat64(m.Requests.WithLabelValues("orders", http.StatusText(http.StatusCreated))); got != 1 {
		t.Errorf("requests = %v", got)
	}
}

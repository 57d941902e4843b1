package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHandlerExposesRecordedSeries(t *testing.T) {
	m := New()
	m.ObserveRequest(http.MethodGet, "/api/v1/inventory/", http.StatusOK, 15*time.Millisecond)
	m.InventoryOperation("confirm")
	m.LockOverride()
	m.CacheResult("hit")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`painperdu_http_requests_total{method="GET",route="/api/v1/inventory/",status="200"} 1`,
		`painperdu_inventory_operations_total{operation="confirm"} 1`,
		`painperdu_inventory_lock_overrides_total 1`,
		`painperdu_statistics_cache_total{result="hit"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in metrics output", want)
		}
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveRequest(http.MethodGet, "/", http.StatusOK, time.Millisecond)
	m.InventoryOperation("create")
	m.CacheResult("miss")
}

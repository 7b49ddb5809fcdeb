package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestOpsHandler(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "roombook_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	healthy := PingerFunc(func(context.Context) error { return nil })
	failing := PingerFunc(func(context.Context) error { return errors.New("connection refused") })

	t.Run("liveness always succeeds", func(t *testing.T) {
		t.Parallel()
		h := NewOpsHandler(OpsConfig{Gatherer: reg, Checks: map[string]Pinger{"db": failing}, Logger: discardLogger()})
		if rec := serve(t, h, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("readiness reports failing checks", func(t *testing.T) {
		t.Parallel()
		h := NewOpsHandler(OpsConfig{Gatherer: reg, Checks: map[string]Pinger{"db": healthy, "redis": failing}, Logger: discardLogger()})
		rec := serve(t, h, http.MethodGet, "/readyz", "")
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", rec.Code)
		}
		var resp healthResponse
		decode(t, rec, &resp)
		if resp.Checks["db"] != "ok" || resp.Checks["redis"] != "connection refused" {
			t.Fatalf("unexpected checks %+v", resp.Checks)
		}
	})

	t.Run("metrics are exposed", func(t *testing.T) {
		t.Parallel()
		h := NewOpsHandler(OpsConfig{Gatherer: reg, Logger: discardLogger()})
		rec := serve(t, h, http.MethodGet, "/metrics", "")
		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "roombook_test_total 1") {
			t.Fatalf("unexpected metrics output %d %s", rec.Code, rec.Body.String())
		}
	})
}

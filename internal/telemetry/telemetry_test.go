package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel"
)

func TestMetrics(t *testing.T) {
	m := NewMetrics()

	m.ObserveRequest("GET", "/health", 200, 5*time.Millisecond)
	m.ObserveRequest("GET", "/health", 200, 7*time.Millisecond)
	m.ObserveRequest("POST", "/soroban/simulate", 400, time.Millisecond)
	m.CountError("VALIDATION_ERROR")
	m.CountRateLimited()
	m.CountRateLimited()

	if got := testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/health", "200")); got != 2 {
		t.Errorf("health requests = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.errorsTotal.WithLabelValues("VALIDATION_ERROR")); got != 1 {
		t.Errorf("validation errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.rateLimitRejections); got != 2 {
		t.Errorf("rate limit rejections = %v, want 2", got)
	}
}

func TestMetrics_IsolatedRegistries(t *testing.T) {
	a, b := NewMetrics(), NewMetrics()
	a.CountError("INTERNAL_ERROR")

	if got := testutil.ToFloat64(b.errorsTotal.WithLabelValues("INTERNAL_ERROR")); got != 0 {
		t.Errorf("second registry saw %v errors, want 0", got)
	}
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()
	m.ObserveRequest("GET", "/soroban/config", 200, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	for _, want := range []string{
		"shelterflex_http_requests_total",
		`route="/soroban/config"`,
		"shelterflex_http_request_duration_seconds",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}

func TestInitTracer(t *testing.T) {
	prev := otel.GetTracerProvider()
	defer otel.SetTracerProvider(prev)

	var buf bytes.Buffer
	shutdown, err := InitTracer("shelterflex-test", "0.0.1", &buf, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("InitTracer() error = %v", err)
	}

	_, span := otel.Tracer("test").Start(context.Background(), "unit-span")
	span.End()

	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error = %v", err)
	}
	if !strings.Contains(buf.String(), "unit-span") {
		t.Errorf("expected span in exporter output, got: %s", buf.String())
	}

	var exported struct {
		Name     string
		Resource []struct {
			Key   string
			Value struct{ Value any }
		}
	}
	if err := json.NewDecoder(&buf).Decode(&exported); err != nil {
		t.Fatalf("decode exported span: %v", err)
	}
	attrs := map[string]any{}
	for _, kv := range exported.Resource {
		attrs[kv.Key] = kv.Value.Value
	}
	if attrs["service.name"] != "shelterflex-test" {
		t.Errorf("service.name = %v, want shelterflex-test", attrs["service.name"])
	}
	if attrs["service.version"] != "0.0.1" {
		t.Errorf("service.version = %v, want 0.0.1", attrs["service.version"])
	}
}

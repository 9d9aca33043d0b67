package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestMetricsMiddlewareRecordsRequests(t *testing.T) {
	m := NewMetrics()

	router := chi.NewRouter()
	router.Use(m.Middleware)
	router.Get("/test", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	metricsReq := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	metricsRec := httptest.NewRecorder()
	m.Handler().ServeHTTP(metricsRec, metricsReq)

	body := metricsRec.Body.String()
	if !strings.Contains(body, `oikos_http_requests_total{code="418",route="/test"} 1`) {
		t.Fatalf("expected request counter in output, got:\n%s", body)
	}
	if !strings.Contains(body, "oikos_http_request_duration_seconds") {
		t.Fatalf("expected duration histogram in output")
	}
}

func TestMetricsObserveBillingRun(t *testing.T) {
	m := NewMetrics()
	m.ObserveBillingRun("created", 3)
	m.ObserveBillingRun("skipped", 0)
	m.ObserveJob("billing:monthly_charges", "ok")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	if !strings.Contains(body, `oikos_billing_runs_total{result="created"} 1`) {
		t.Fatalf("expected billing run counter, got:\n%s", body)
	}
	if !strings.Contains(body, "oikos_charges_created_total 3") {
		t.Fatalf("expected charges created counter, got:\n%s", body)
	}
	if !strings.Contains(body, `oikos_jobs_total{result="ok",task="billing:monthly_charges"} 1`) {
		t.Fatalf("expected jobs counter, got:\n%s", body)
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveBillingRun("created", 1)
	m.ObserveJob("x", "ok")

	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected passthrough, got %d", rec.Code)
	}
}

package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddleware_RecordsRoutePattern(t *testing.T) {
	RegisterServerMetrics()

	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	r.Get("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	for _, path := range []string{"/healthz", "/metrics", "/metrics"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, http.NoBody))
	}

	if got := testutil.ToFloat64(scrapeTotal.WithLabelValues("GET", "/healthz", "503")); got < 1 {
		t.Errorf("healthz 503 count = %f", got)
	}
	if got := testutil.ToFloat64(scrapeTotal.WithLabelValues("GET", "/metrics", "200")); got < 2 {
		t.Errorf("metrics 200 count = %f", got)
	}
	if testutil.CollectAndCount(scrapeDuration) == 0 {
		t.Error("expected duration observations")
	}
}

func TestMiddleware_UnmatchedRoute(t *testing.T) {
	RegisterServerMetrics()

	r := chi.NewRouter()
	r.Use(Middleware())
	// A mux without routes skips its middleware stack entirely.
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/nope", http.NoBody))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rr.Code)
	}
	if got := testutil.ToFloat64(scrapeTotal.WithLabelValues("GET", "unknown", "404")); got < 1 {
		t.Errorf("unknown 404 count = %f", got)
	}
}

func TestRegister_Idempotent(t *testing.T) {
	RegisterEmbeddingMetrics()
	RegisterEmbeddingMetrics()
	RegisterPipelineMetrics()
	RegisterPipelineMetrics()
}

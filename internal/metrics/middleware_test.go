package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestHTTP(t *testing.T) *HTTP {
	t.Helper()
	m, err := NewHTTP(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewHTTP: %v", err)
	}
	return m
}

func TestMetricsMiddleware_RecordsRoutePattern(t *testing.T) {
	m := newTestHTTP(t)
	r := chi.NewRouter()
	r.Use(m.Middleware())
	r.Get("/v1/indexes/{name}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/indexes/hotels", http.NoBody)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if v := testutil.ToFloat64(m.requests.WithLabelValues("GET", "/v1/indexes/{name}", "200")); v != 1 {
		t.Errorf("expected 1 request for the route pattern, got %f", v)
	}
	if testutil.CollectAndCount(m.duration) == 0 {
		t.Error("expected http_request_duration_seconds to have observations")
	}
}

func TestMetricsMiddleware_DifferentStatusCodes(t *testing.T) {
	m := newTestHTTP(t)
	r := chi.NewRouter()
	r.Use(m.Middleware())

	r.Get("/ok", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/notfound", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Get("/timeout", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusGatewayTimeout)
	})

	tests := []struct {
		path           string
		expectedStatus string
	}{
		{"/ok", "200"},
		{"/notfound", "404"},
		{"/timeout", "504"},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, http.NoBody)
			r.ServeHTTP(httptest.NewRecorder(), req)

			if v := testutil.ToFloat64(m.requests.WithLabelValues("GET", tc.path, tc.expectedStatus)); v < 1 {
				t.Errorf("expected requests_total for %s with status %s >= 1, got %f", tc.path, tc.expectedStatus, v)
			}
		})
	}
}

func TestNewHTTP_ReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := NewHTTP(reg)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	b, err := NewHTTP(reg)
	if err != nil {
		t.Fatalf("second registration should reuse collectors: %v", err)
	}
	if a.requests != b.requests {
		t.Error("expected the same counter vector")
	}
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", "unknown"},
		{"/v1/indexes", "/v1/indexes"},
		{"/health", "/health"},
	}
	for _, tc := range tests {
		if got := normalizePath(tc.input); got != tc.expected {
			t.Errorf("normalizePath(%q) = %q, want %q", tc.input, got, tc.expected)
		}
	}
}

func TestPoll_Observe(t *testing.T) {
	m, err := NewPoll(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewPoll: %v", err)
	}
	m.Observe(PollAccepted, 3)
	m.Observe(PollTimeout, 10)

	if v := testutil.ToFloat64(m.outcomes.WithLabelValues(PollAccepted)); v != 1 {
		t.Errorf("expected 1 accepted loop, got %f", v)
	}
	if testutil.CollectAndCount(m.attempts) != 2 {
		t.Error("expected attempts histograms for both outcomes")
	}

	var nilPoll *Poll
	nilPoll.Observe(PollCanceled, 1)
}

func TestEmbedding_Records(t *testing.T) {
	m, err := NewEmbedding(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewEmbedding: %v", err)
	}
	m.Success("openai", "small", 20*time.Millisecond, 4, 4)
	m.Failure("openai", "small", "api_error")

	if v := testutil.ToFloat64(m.requests.WithLabelValues("openai", "small", "success")); v != 1 {
		t.Errorf("expected 1 success, got %f", v)
	}
	if v := testutil.ToFloat64(m.tokens.WithLabelValues("openai", "small", "total")); v != 4 {
		t.Errorf("expected 4 tokens, got %f", v)
	}
	if v := testutil.ToFloat64(m.errors.WithLabelValues("openai", "small", "api_error")); v != 1 {
		t.Errorf("expected 1 error, got %f", v)
	}
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Embedding records embedding provider calls. A nil *Embedding records nothing.
type Embedding struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	tokens   *prometheus.CounterVec
	errors   *prometheus.CounterVec
}

// NewEmbedding registers embedding metrics on reg.
func NewEmbedding(reg prometheus.Registerer) (*Embedding, error) {
	m := &Embedding{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_requests_total",
			Help:      "Total number of embedding requests",
		}, []string{"provider", "model", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "embedding_request_duration_seconds",
			Help:      "Embedding request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"provider", "model"}),
		tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_tokens_total",
			Help:      "Total embedding tokens consumed",
		}, []string{"provider", "model", "type"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_errors_total",
			Help:      "Total embedding errors",
		}, []string{"provider", "model", "error_type"}),
	}
	if err := registerOrReuse(reg, &m.requests); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.duration); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.tokens); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.errors); err != nil {
		return nil, err
	}
	return m, nil
}

// Success records a completed request and its token usage.
func (m *Embedding) Success(provider, model string, d time.Duration, promptTokens, totalTokens int) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(provider, model, "success").Inc()
	m.duration.WithLabelValues(provider, model).Observe(d.Seconds())
	if totalTokens > 0 {
		m.tokens.WithLabelValues(provider, model, "prompt").Add(float64(promptTokens))
		m.tokens.WithLabelValues(provider, model, "total").Add(float64(totalTokens))
	}
}

// Failure records a failed request by error kind.
func (m *Embedding) Failure(provider, model, errorType string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(provider, model, "error").Inc()
	m.errors.WithLabelValues(provider, model, errorType).Inc()
}

package metrics

import "github.com/prometheus/client_golang/prometheus"

// Poll outcomes.
const (
	PollAccepted = "accepted"
	PollTimeout  = "timeout"
	PollCanceled = "canceled"
	PollAborted  = "aborted"
)

// Poll records consistency polling loops. A nil *Poll records nothing.
type Poll struct {
	attempts *prometheus.HistogramVec
	outcomes *prometheus.CounterVec
}

// NewPoll registers poll metrics on reg.
func NewPoll(reg prometheus.Registerer) (*Poll, error) {
	m := &Poll{
		attempts: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "poll_attempts",
			Help:      "Query attempts per polling loop",
			Buckets:   []float64{1, 2, 3, 5, 10, 20, 50, 100, 250, 600},
		}, []string{"outcome"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_outcomes_total",
			Help:      "Polling loops by outcome",
		}, []string{"outcome"}),
	}
	if err := registerOrReuse(reg, &m.attempts); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.outcomes); err != nil {
		return nil, err
	}
	return m, nil
}

// Observe records one finished loop.
func (m *Poll) Observe(outcome string, attempts int) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(outcome).Observe(float64(attempts))
	m.outcomes.WithLabelValues(outcome).Inc()
}

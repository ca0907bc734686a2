package vecsearch

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver   string // "fts", "redis", "valkey" or "embedded"
	url      string
	username string
	addrs    []string
	password string
	lag      time.Duration

	httpClient *http.Client
	embedder   Embedder

	poll             Policy
	readinessTimeout time.Duration

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithFTS connects the client to a full-text search REST endpoint,
// e.g. http://localhost:8094.
func WithFTS(url, username, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = driverFTS
		c.url = url
		c.username = username
		c.password = password
	})
}

// WithRedis configures the client to connect to a Redis instance with the
// query engine.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = driverRedis
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithValkey configures the client to connect to a Valkey instance with
// valkey-search.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = driverValkey
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithEmbedded runs an in-process index. Writes become searchable after lag.
func WithEmbedded(lag time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = driverEmbedded
		c.lag = lag
	})
}

// WithHTTPClient overrides the HTTP client used by the FTS backend.
func WithHTTPClient(hc *http.Client) Option {
	return optionFunc(func(c *clientConfig) {
		c.httpClient = hc
	})
}

// WithEmbedder sets the text embedding provider used by VectorQueryFromText.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithPollPolicy sets the default policy of WaitUntil and WaitForCount.
// Defaults: 100ms interval, 60s timeout, unbounded attempts.
func WithPollPolicy(p Policy) Option {
	return optionFunc(func(c *clientConfig) {
		c.poll = p
	})
}

// WithReadinessTimeout bounds the connectivity check done by New.
// Default: 10s.
func WithReadinessTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.readinessTimeout = d
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts, durations and
// poll outcomes) on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}

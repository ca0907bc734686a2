package vecsearch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/vecsearch/internal/db"
	"github.com/kailas-cloud/vecsearch/internal/db/embedded"
	"github.com/kailas-cloud/vecsearch/internal/db/fts"
	dbRedis "github.com/kailas-cloud/vecsearch/internal/db/redis"
	domdoc "github.com/kailas-cloud/vecsearch/internal/domain/document"
	domindex "github.com/kailas-cloud/vecsearch/internal/domain/index"
	"github.com/kailas-cloud/vecsearch/internal/domain/search/request"
	"github.com/kailas-cloud/vecsearch/internal/domain/search/result"
	"github.com/kailas-cloud/vecsearch/internal/domain/search/vector"
	"github.com/kailas-cloud/vecsearch/internal/metrics"
	documentrepo "github.com/kailas-cloud/vecsearch/internal/repository/document"
	indexrepo "github.com/kailas-cloud/vecsearch/internal/repository/index"
	searchrepo "github.com/kailas-cloud/vecsearch/internal/repository/search"
	documentuc "github.com/kailas-cloud/vecsearch/internal/usecase/document"
	embeddinguc "github.com/kailas-cloud/vecsearch/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/vecsearch/internal/usecase/health"
	indexuc "github.com/kailas-cloud/vecsearch/internal/usecase/index"
	searchuc "github.com/kailas-cloud/vecsearch/internal/usecase/search"
)

const defaultReadinessTimeout = 10 * time.Second

const (
	driverFTS      = "fts"
	driverRedis    = "redis"
	driverValkey   = "valkey"
	driverEmbedded = "embedded"
)

// Internal interfaces, swapped for mocks in tests.
type indexUseCase interface {
	Upsert(ctx context.Context, def domindex.Definition) error
	Get(ctx context.Context, name string) (domindex.Definition, error)
	List(ctx context.Context) ([]domindex.Definition, error)
	Drop(ctx context.Context, name string) error
}

type searchUseCase interface {
	Execute(ctx context.Context, index string, req request.Request, opts request.Options) (*result.Set, error)
	Poll(
		ctx context.Context, index string, req request.Request, opts request.Options,
		policy searchuc.Policy, accept searchuc.Predicate,
	) (*result.Set, error)
}

type documentUseCase interface {
	Write(ctx context.Context, source string, docs []domdoc.Document) error
}

type prober interface {
	VectorQuery(ctx context.Context, field, text string) (vector.Query, error)
}

// Client is the vecsearch SDK entry point.
type Client struct {
	store     db.Store
	indexSvc  indexUseCase
	searchSvc searchUseCase
	docSvc    documentUseCase
	healthSvc healthUseCase
	prober    prober
	poll      Policy
	obs       *observer
}

// New creates a Client and waits until the backend answers.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		poll:             DefaultPolicy(),
		readinessTimeout: defaultReadinessTimeout,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.driver == "" {
		return nil, errors.New("vecsearch: backend required (use WithFTS, WithRedis, WithValkey or WithEmbedded)")
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}
	var pollMetrics *metrics.Poll
	if cfg.metricsReg != nil {
		if pollMetrics, err = metrics.NewPoll(cfg.metricsReg); err != nil {
			return nil, fmt.Errorf("vecsearch: %w", err)
		}
	}

	store, err := createStore(cfg)
	if err != nil {
		return nil, err
	}

	if err := store.WaitForReady(ctx, cfg.readinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("vecsearch: backend not ready: %w", err)
	}

	return wireClient(store, cfg, obs, pollMetrics), nil
}

func createStore(cfg *clientConfig) (db.Store, error) {
	switch cfg.driver {
	case driverFTS:
		s, err := fts.NewStore(fts.Config{
			URL:        cfg.url,
			Username:   cfg.username,
			Password:   cfg.password,
			HTTPClient: cfg.httpClient,
		})
		if err != nil {
			return nil, fmt.Errorf("vecsearch: create fts store: %w", err)
		}
		return s, nil
	case driverRedis, driverValkey:
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
			Flavor:   dbRedis.Flavor(cfg.driver),
		})
		if err != nil {
			return nil, fmt.Errorf("vecsearch: create %s store: %w", cfg.driver, err)
		}
		return s, nil
	case driverEmbedded:
		return embedded.NewStore(embedded.Config{Lag: cfg.lag}), nil
	default:
		return nil, fmt.Errorf("vecsearch: unknown driver %q", cfg.driver)
	}
}

func wireClient(store db.Store, cfg *clientConfig, obs *observer, pollMetrics *metrics.Poll) *Client {
	c := &Client{
		store:     store,
		indexSvc:  indexuc.New(indexrepo.New(store)),
		searchSvc: searchuc.New(searchrepo.New(store), nil, pollMetrics),
		poll:      cfg.poll,
		obs:       obs,
	}
	if w, ok := store.(db.DocumentWriter); ok {
		c.docSvc = documentuc.New(documentrepo.New(w))
	}

	// Pass nil interfaces (not typed nil pointers) when no embedder is set.
	var checker healthuc.EmbeddingChecker
	if cfg.embedder != nil {
		emb := &embedderAdapter{inner: cfg.embedder}
		c.prober = embeddinguc.NewProber(emb)
		checker = emb
	}
	c.healthSvc = healthuc.New(store, checker, nil)
	return c
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks backend connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Indexes returns the index management service.
func (c *Client) Indexes() *IndexService {
	return &IndexService{svc: c.indexSvc, obs: c.obs}
}

// Search returns the search service for a given index.
func (c *Client) Search(index string) *SearchService {
	return &SearchService{
		index: index,
		svc:   c.searchSvc,
		poll:  c.poll,
		obs:   c.obs,
	}
}

// Documents returns the document service for a given source. Backends that
// index an external source reject writes with ErrNotSupported.
func (c *Client) Documents(source string) *DocumentService {
	return &DocumentService{source: source, svc: c.docSvc, obs: c.obs}
}

// VectorQueryFromText embeds text with the configured Embedder and returns a
// probe against field.
func (c *Client) VectorQueryFromText(ctx context.Context, field, text string) (_ VectorQuery, err error) {
	start := time.Now()
	defer func() { c.obs.observe("embed.probe", start, err, "field", field) }()

	if c.prober == nil {
		return VectorQuery{}, fmt.Errorf("%w: embedder not configured (use WithEmbedder)", ErrNotSupported)
	}
	q, err := c.prober.VectorQuery(ctx, field, text)
	if err != nil {
		return VectorQuery{}, fmt.Errorf("vector query from text: %w", err)
	}
	return q, nil
}

package redis

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/rueidis"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecsearch/internal/db"
)

// Compile-time checks.
var (
	_ db.Store          = (*Store)(nil)
	_ db.DocumentWriter = (*Store)(nil)
)

// Flavor selects the search module dialect.
type Flavor string

const (
	// FlavorRedis targets Redis 8+ with the built-in query engine (TEXT + BM25).
	FlavorRedis Flavor = "redis"
	// FlavorValkey targets valkey-search: TAG, NUMERIC and VECTOR fields only.
	FlavorValkey Flavor = "valkey"
)

// Config holds connection parameters for a Redis/Valkey store.
type Config struct {
	Addrs    []string
	Username string
	Password string
	DB       int
	Flavor   Flavor
	Logger   *zap.Logger
}

// Store implements db.Store via rueidis FT.* commands.
type Store struct {
	client rueidis.Client
	flavor Flavor
	logger *zap.Logger

	mu      sync.RWMutex
	schemas map[string]*indexMeta
}

// NewStore creates a Redis/Valkey store via rueidis.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}
	flavor := cfg.Flavor
	if flavor == "" {
		flavor = FlavorRedis
	}
	if flavor != FlavorRedis && flavor != FlavorValkey {
		return nil, fmt.Errorf("unknown flavor %q", flavor)
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
		AlwaysRESP2:  true, // FT.SEARCH result parsing expects RESP2 array format
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return newStore(client, flavor, cfg.Logger), nil
}

func newStore(client rueidis.Client, flavor Flavor, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{client: client, flavor: flavor, logger: logger, schemas: make(map[string]*indexMeta)}
}

// Flavor reports the configured dialect.
func (s *Store) Flavor() Flavor { return s.flavor }

// SupportsTextSearch reports whether TEXT fields and full-text operators are available.
func (s *Store) SupportsTextSearch() bool { return s.flavor == FlavorRedis }

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	cmd := s.client.B().Ping().Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close shuts down the client.
func (s *Store) Close() {
	s.client.Close()
}

// WaitForReady polls Ping until the store responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for database: %w", ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

func (s *Store) do(ctx context.Context, cmd rueidis.Completed) rueidis.RedisResult {
	return s.client.Do(ctx, cmd)
}

func (s *Store) b() rueidis.Builder {
	return s.client.B()
}

// isRedisErr checks if err is a Redis server error containing substr (case-insensitive).
func isRedisErr(err error, substr string) bool {
	re, ok := rueidis.IsRedisErr(err)
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(re.Error()), strings.ToLower(substr))
}

// isUnknownIndex matches both the Redis and valkey-search wording.
func isUnknownIndex(err error) bool {
	return isRedisErr(err, "unknown index name") || isRedisErr(err, "no such index") ||
		isRedisErr(err, "not found")
}

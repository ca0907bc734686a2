package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecsearch/internal/config"
	"github.com/kailas-cloud/vecsearch/internal/db"
	"github.com/kailas-cloud/vecsearch/internal/db/embedded"
	"github.com/kailas-cloud/vecsearch/internal/db/fts"
	dbRedis "github.com/kailas-cloud/vecsearch/internal/db/redis"
	"github.com/kailas-cloud/vecsearch/internal/domain"
	logpkg "github.com/kailas-cloud/vecsearch/internal/logger"
	"github.com/kailas-cloud/vecsearch/internal/metrics"
	documentrepo "github.com/kailas-cloud/vecsearch/internal/repository/document"
	indexrepo "github.com/kailas-cloud/vecsearch/internal/repository/index"
	searchrepo "github.com/kailas-cloud/vecsearch/internal/repository/search"
	chiTransport "github.com/kailas-cloud/vecsearch/internal/transport/chi"
	openaiEmb "github.com/kailas-cloud/vecsearch/internal/transport/openai"
	documentuc "github.com/kailas-cloud/vecsearch/internal/usecase/document"
	embeddinguc "github.com/kailas-cloud/vecsearch/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/vecsearch/internal/usecase/health"
	indexuc "github.com/kailas-cloud/vecsearch/internal/usecase/index"
	searchuc "github.com/kailas-cloud/vecsearch/internal/usecase/search"
	"github.com/kailas-cloud/vecsearch/internal/version"
)

func main() {
	// .env is optional; real environment variables win.
	if err := config.LoadDotEnv(".env"); err != nil {
		panic("failed to load .env: " + err.Error())
	}

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting vecsearch gateway",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("backend", cfg.Backend.Driver),
	)

	store, err := openStore(cfg.Backend, logger)
	if err != nil {
		logger.Fatal("Failed to create backend store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Backend.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Backend not ready", zap.Error(err))
	}
	logger.Info("Connected to backend")

	reg := prometheus.DefaultRegisterer
	httpMetrics, err := metrics.NewHTTP(reg)
	if err != nil {
		logger.Fatal("Failed to register HTTP metrics", zap.Error(err))
	}
	pollMetrics, err := metrics.NewPoll(reg)
	if err != nil {
		logger.Fatal("Failed to register poll metrics", zap.Error(err))
	}

	deps := chiTransport.Deps{
		Indexes: indexuc.New(indexrepo.New(store)),
		Search:  searchuc.New(searchrepo.New(store), logger, pollMetrics),
		Poll: searchuc.Policy{
			Interval:    cfg.Poll.Interval(),
			Timeout:     cfg.Poll.Timeout(),
			MaxAttempts: cfg.Poll.MaxAttempts,
		},
		Logger: logger,
	}
	if w, ok := store.(db.DocumentWriter); ok {
		deps.Documents = documentuc.New(documentrepo.New(w))
	}

	// Pass nil interfaces (not typed nil pointers) when embedding is off.
	var embeddingChecker healthuc.EmbeddingChecker
	if cfg.Embedding.Enabled() {
		embMetrics, err := metrics.NewEmbedding(reg)
		if err != nil {
			logger.Fatal("Failed to register embedding metrics", zap.Error(err))
		}
		embedder := buildEmbedder(cfg.Embedding, embMetrics, logger)
		deps.Prober = embeddinguc.NewProber(embedder)
		embeddingChecker = embedder
		logger.Info("Embedder created",
			zap.String("model", cfg.Embedding.Model),
			zap.Int("dimensions", cfg.Embedding.Dimensions),
		)
	}
	deps.Health = healthuc.New(store, embeddingChecker, logger)

	handler := chiTransport.NewRouter(chiTransport.NewServer(deps), chiTransport.RouterConfig{
		APIKeys:  cfg.Auth.APIKeys,
		Metrics:  httpMetrics,
		Gatherer: prometheus.DefaultGatherer,
		Logger:   logger,
	})

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// openStore connects the configured backend.
func openStore(cfg config.BackendConfig, logger *zap.Logger) (db.Store, error) {
	switch cfg.Driver {
	case config.DriverFTS:
		return fts.NewStore(fts.Config{
			URL:      cfg.URL,
			Username: cfg.Username,
			Password: cfg.Password,
		})
	case config.DriverRedis, config.DriverValkey:
		return dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Addrs,
			Username: cfg.Username,
			Password: cfg.Password,
			Flavor:   dbRedis.Flavor(cfg.Driver),
			Logger:   logger,
		})
	case config.DriverEmbedded:
		return embedded.NewStore(embedded.Config{
			Lag:    time.Duration(cfg.IndexingLagMS) * time.Millisecond,
			Logger: logger,
		}), nil
	default:
		return nil, fmt.Errorf("unknown backend driver %q", cfg.Driver)
	}
}

// buildEmbedder assembles the decorator chain: OpenAI -> Instrumented -> Instruction.
func buildEmbedder(cfg config.EmbeddingConfig, m *metrics.Embedding, logger *zap.Logger) *domain.InstructionEmbedder {
	const provider = "openai"
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		Provider:   provider,
		Metrics:    m,
		Logger:     logger,
	})
	instrumented := embeddinguc.NewInstrumentedEmbedder(base, provider, cfg.Model, logger)
	return domain.NewInstructionEmbedder(instrumented, cfg.QueryInstruction)
}

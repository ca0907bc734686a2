package health

import (
	"context"

	"go.uber.org/zap"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded means queries work but text-to-vector embedding does not.
	Degraded Status = "degraded"
	// Unhealthy means the search backend is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names used as Report.Checks keys.
const (
	ComponentStore     = "store"
	ComponentEmbedding = "embedding"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	store     StorePinger
	embedding EmbeddingChecker
	logger    *zap.Logger
}

// New creates a Service. embedding and logger can be nil.
func New(store StorePinger, embedding EmbeddingChecker, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, embedding: embedding, logger: logger}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, 2)
	status := Healthy

	if err := s.store.Ping(ctx); err != nil {
		s.logger.Warn("store health check failed", zap.Error(err))
		checks[ComponentStore] = CheckError
		status = Unhealthy
	} else {
		checks[ComponentStore] = CheckOK
	}

	if s.embedding != nil {
		if err := s.embedding.HealthCheck(ctx); err != nil {
			s.logger.Warn("embedding health check failed", zap.Error(err))
			checks[ComponentEmbedding] = CheckError
			if status == Healthy {
				status = Degraded
			}
		} else {
			checks[ComponentEmbedding] = CheckOK
		}
	}

	return Report{Status: status, Checks: checks}
}

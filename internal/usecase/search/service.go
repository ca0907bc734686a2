package search

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecsearch/internal/domain"
	domindex "github.com/kailas-cloud/vecsearch/internal/domain/index"
	"github.com/kailas-cloud/vecsearch/internal/domain/search/request"
	"github.com/kailas-cloud/vecsearch/internal/domain/search/result"
	"github.com/kailas-cloud/vecsearch/internal/metrics"
)

// Service executes composed search requests and polls for eventually
// consistent results.
type Service struct {
	repo    Repository
	logger  *zap.Logger
	metrics *metrics.Poll
	newID   func() string
}

// New creates a search service. logger and pollMetrics may be nil.
func New(repo Repository, logger *zap.Logger, pollMetrics *metrics.Poll) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, logger: logger, metrics: pollMetrics, newID: uuid.NewString}
}

// Execute validates the request, normalizes opts and performs exactly one
// round trip. Unknown indexes fail with domain.ErrIndexNotFound, transport
// and server failures with domain.ErrService.
func (s *Service) Execute(
	ctx context.Context, index string, req request.Request, opts request.Options,
) (*result.Set, error) {
	norm, err := validate(index, req, opts)
	if err != nil {
		return nil, err
	}
	return s.execute(ctx, index, req, norm)
}

func (s *Service) execute(
	ctx context.Context, index string, req request.Request, opts request.Options,
) (*result.Set, error) {
	set, err := s.repo.Search(ctx, index, req, opts, s.newID())
	if err != nil {
		return nil, fmt.Errorf("execute %s query: %w", req.Kind(), err)
	}
	return set, nil
}

func validate(index string, req request.Request, opts request.Options) (request.Options, error) {
	if err := domindex.ValidateName(index); err != nil {
		return request.Options{}, err
	}
	if req.IsZero() {
		return request.Options{}, fmt.Errorf("%w: search request has no clause", domain.ErrInvalidArgument)
	}
	return opts.Normalize()
}

package document

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/vecsearch/internal/domain"
	domdoc "github.com/kailas-cloud/vecsearch/internal/domain/document"
)

// DefaultMaxBatchSize caps the documents accepted by one Write.
const DefaultMaxBatchSize = 1000

// Service writes documents into index sources.
type Service struct {
	repo         Repository
	maxBatchSize int
}

// New creates a document service.
func New(repo Repository) *Service {
	return &Service{repo: repo, maxBatchSize: DefaultMaxBatchSize}
}

// WithMaxBatchSize overrides the per-call document limit.
func (s *Service) WithMaxBatchSize(n int) *Service {
	if n > 0 {
		s.maxBatchSize = n
	}
	return s
}

// Write validates the batch and stores it. Documents become searchable
// asynchronously, once every index built on source has consumed them.
func (s *Service) Write(ctx context.Context, source string, docs []domdoc.Document) error {
	if source == "" {
		return fmt.Errorf("%w: source name is required", domain.ErrInvalidArgument)
	}
	if len(docs) == 0 {
		return nil
	}
	if len(docs) > s.maxBatchSize {
		return fmt.Errorf("%w: batch has %d documents, max %d", domain.ErrInvalidArgument, len(docs), s.maxBatchSize)
	}
	seen := make(map[string]struct{}, len(docs))
	for i, d := range docs {
		if d.ID() == "" {
			return fmt.Errorf("%w: document %d is not initialized", domain.ErrInvalidArgument, i)
		}
		if _, dup := seen[d.ID()]; dup {
			return fmt.Errorf("%w: duplicate document ID %q", domain.ErrInvalidArgument, d.ID())
		}
		seen[d.ID()] = struct{}{}
	}

	if err := s.repo.Write(ctx, source, docs); err != nil {
		return fmt.Errorf("write %d documents to %q: %w", len(docs), source, err)
	}
	return nil
}

package index

import (
	"context"
	"fmt"

	domindex "github.com/kailas-cloud/vecsearch/internal/domain/index"
)

// Service manages index definitions on the search service. Every call is a
// single round trip: no caching, no retry.
type Service struct {
	repo Repository
}

// New creates an index service.
func New(repo Repository) *Service {
	return &Service{repo: repo}
}

// Upsert validates def and creates or replaces the index. Invalid
// definitions never reach the backend.
func (s *Service) Upsert(ctx context.Context, def domindex.Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	if err := s.repo.Upsert(ctx, def); err != nil {
		return fmt.Errorf("upsert index: %w", err)
	}
	return nil
}

// List returns every index definition.
func (s *Service) List(ctx context.Context) ([]domindex.Definition, error) {
	defs, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list indexes: %w", err)
	}
	return defs, nil
}

// Get returns one definition or domain.ErrIndexNotFound.
func (s *Service) Get(ctx context.Context, name string) (domindex.Definition, error) {
	if err := domindex.ValidateName(name); err != nil {
		return domindex.Definition{}, err
	}
	def, err := s.repo.Get(ctx, name)
	if err != nil {
		return domindex.Definition{}, fmt.Errorf("get index: %w", err)
	}
	return def, nil
}

// Drop deletes the index. Dropping a missing index fails with domain.ErrIndexNotFound.
func (s *Service) Drop(ctx context.Context, name string) error {
	if err := domindex.ValidateName(name); err != nil {
		return err
	}
	if err := s.repo.Drop(ctx, name); err != nil {
		return fmt.Errorf("drop index: %w", err)
	}
	return nil
}

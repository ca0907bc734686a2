package vecsearch

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// IndexService manages index definitions.
type IndexService struct {
	svc indexUseCase
	obs *observer
}

// Upsert creates the index or replaces the one with the same name.
func (s *IndexService) Upsert(ctx context.Context, def IndexDefinition) (err error) {
	start := time.Now()
	defer func() { s.obs.observe("index.upsert", start, err, "index", def.Name) }()

	if err = s.svc.Upsert(ctx, def); err != nil {
		return fmt.Errorf("upsert index: %w", err)
	}
	return nil
}

// Ensure creates the index only if no index with that name exists, and
// returns the stored definition either way.
func (s *IndexService) Ensure(ctx context.Context, def IndexDefinition) (_ IndexDefinition, err error) {
	start := time.Now()
	defer func() { s.obs.observe("index.ensure", start, err, "index", def.Name) }()

	existing, err := s.svc.Get(ctx, def.Name)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrIndexNotFound) {
		return IndexDefinition{}, fmt.Errorf("ensure index: %w", err)
	}
	if err = s.svc.Upsert(ctx, def); err != nil {
		return IndexDefinition{}, fmt.Errorf("ensure index: %w", err)
	}
	stored, err := s.svc.Get(ctx, def.Name)
	if err != nil {
		return IndexDefinition{}, fmt.Errorf("ensure index: %w", err)
	}
	return stored, nil
}

// Get returns the stored definition or ErrIndexNotFound.
func (s *IndexService) Get(ctx context.Context, name string) (_ IndexDefinition, err error) {
	start := time.Now()
	defer func() { s.obs.observe("index.get", start, err, "index", name) }()

	def, err := s.svc.Get(ctx, name)
	if err != nil {
		return IndexDefinition{}, fmt.Errorf("get index: %w", err)
	}
	return def, nil
}

// List returns every index definition.
func (s *IndexService) List(ctx context.Context) (_ []IndexDefinition, err error) {
	start := time.Now()
	defer func() { s.obs.observe("index.list", start, err) }()

	defs, err := s.svc.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list indexes: %w", err)
	}
	return defs, nil
}

// Drop deletes the index. Dropping a missing index fails with ErrIndexNotFound.
func (s *IndexService) Drop(ctx context.Context, name string) (err error) {
	start := time.Now()
	defer func() { s.obs.observe("index.drop", start, err, "index", name) }()

	if err = s.svc.Drop(ctx, name); err != nil {
		return fmt.Errorf("drop index: %w", err)
	}
	return nil
}

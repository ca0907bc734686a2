package index

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/vecsearch/internal/db"
	"github.com/kailas-cloud/vecsearch/internal/domain"
	domindex "github.com/kailas-cloud/vecsearch/internal/domain/index"
)

// store is the consumer interface for index lifecycle (ISP).
type store interface {
	UpsertIndex(ctx context.Context, spec *db.IndexSpec) error
	GetIndex(ctx context.Context, name string) (*db.IndexSpec, error)
	ListIndexes(ctx context.Context) ([]db.IndexSpec, error)
	DropIndex(ctx context.Context, name string) error
}

// Repo implements usecase/index.Repository.
type Repo struct {
	store store
}

// New creates an index repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Upsert creates or replaces the index definition on the backend.
func (r *Repo) Upsert(ctx context.Context, def domindex.Definition) error {
	spec := toSpec(def)
	if err := r.store.UpsertIndex(ctx, &spec); err != nil {
		return fmt.Errorf("upsert index %q: %w", def.Name, translate(ctx, err))
	}
	return nil
}

// Get fetches one definition.
func (r *Repo) Get(ctx context.Context, name string) (domindex.Definition, error) {
	spec, err := r.store.GetIndex(ctx, name)
	if err != nil {
		return domindex.Definition{}, fmt.Errorf("get index %q: %w", name, translate(ctx, err))
	}
	return fromSpec(spec), nil
}

// List returns every definition the backend knows.
func (r *Repo) List(ctx context.Context) ([]domindex.Definition, error) {
	specs, err := r.store.ListIndexes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list indexes: %w", translate(ctx, err))
	}
	defs := make([]domindex.Definition, 0, len(specs))
	for i := range specs {
		defs = append(defs, fromSpec(&specs[i]))
	}
	return defs, nil
}

// Drop deletes the index.
func (r *Repo) Drop(ctx context.Context, name string) error {
	if err := r.store.DropIndex(ctx, name); err != nil {
		return fmt.Errorf("drop index %q: %w", name, translate(ctx, err))
	}
	return nil
}

func toSpec(def domindex.Definition) db.IndexSpec {
	return db.IndexSpec{
		Name:       def.Name,
		Type:       def.Type,
		SourceType: def.SourceType,
		SourceName: def.SourceName,
		UUID:       def.UUID,
		Params:     def.Params,
	}
}

func fromSpec(spec *db.IndexSpec) domindex.Definition {
	return domindex.Definition{
		Name:       spec.Name,
		Type:       spec.Type,
		SourceType: spec.SourceType,
		SourceName: spec.SourceName,
		UUID:       spec.UUID,
		Params:     spec.Params,
	}
}

// translate maps backend failures onto domain sentinels. Errors caused by
// the caller's own cancellation pass through unchanged.
func translate(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, db.ErrIndexNotFound):
		return domain.ErrIndexNotFound
	case errors.Is(err, db.ErrNotSupported):
		return fmt.Errorf("%w: %w", domain.ErrNotSupported, err)
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		return err
	default:
		return domain.NewServiceError(db.StatusOf(err), err)
	}
}

package index

import (
	"context"

	domindex "github.com/kailas-cloud/vecsearch/internal/domain/index"
)

// Repository defines the storage contract for index lifecycle.
type Repository interface {
	Upsert(ctx context.Context, def domindex.Definition) error
	Get(ctx context.Context, name string) (domindex.Definition, error)
	List(ctx context.Context) ([]domindex.Definition, error)
	Drop(ctx context.Context, name string) error
}

package document

import (
	"context"

	domdoc "github.com/kailas-cloud/vecsearch/internal/domain/document"
)

// Repository defines the storage contract for source documents.
type Repository interface {
	Write(ctx context.Context, source string, docs []domdoc.Document) error
}

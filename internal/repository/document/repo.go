package document

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/vecsearch/internal/db"
	"github.com/kailas-cloud/vecsearch/internal/domain"
	domdoc "github.com/kailas-cloud/vecsearch/internal/domain/document"
)

// Repo implements usecase/document.Repository over a db.DocumentWriter.
type Repo struct {
	writer db.DocumentWriter
}

// New creates a document repository. A nil writer means the backend does
// not accept documents.
func New(writer db.DocumentWriter) *Repo {
	return &Repo{writer: writer}
}

// Write stores docs in source.
func (r *Repo) Write(ctx context.Context, source string, docs []domdoc.Document) error {
	if r.writer == nil {
		return fmt.Errorf("%w: backend does not accept document writes", domain.ErrNotSupported)
	}
	out := make([]db.Document, len(docs))
	for i, d := range docs {
		out[i] = db.Document{ID: d.ID(), Fields: d.Fields()}
	}
	if err := r.writer.WriteDocuments(ctx, source, out); err != nil {
		return translate(ctx, err)
	}
	return nil
}

func translate(ctx context.Context, err error) error {
	switch {
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		return err
	case errors.Is(err, db.ErrNotSupported):
		return fmt.Errorf("%w: %w", domain.ErrNotSupported, err)
	default:
		return domain.NewServiceError(db.StatusOf(err), err)
	}
}

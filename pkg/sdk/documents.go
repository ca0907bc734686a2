package vecsearch

import (
	"context"
	"fmt"
	"time"

	domdoc "github.com/kailas-cloud/vecsearch/internal/domain/document"
)

// DocumentService writes documents into one index source.
type DocumentService struct {
	source string
	svc    documentUseCase
	obs    *observer
}

// Write stores docs in the source. They become searchable once every index
// fed by the source has consumed them; use SearchService.WaitUntil to
// observe that.
func (s *DocumentService) Write(ctx context.Context, docs []Document) (err error) {
	start := time.Now()
	defer func() { s.obs.observe("document.write", start, err, "source", s.source, "count", len(docs)) }()

	if s.svc == nil {
		return fmt.Errorf("write documents: %w: backend does not accept document writes", ErrNotSupported)
	}
	internal := make([]domdoc.Document, len(docs))
	for i, d := range docs {
		doc, err := domdoc.New(d.ID, d.Fields)
		if err != nil {
			return fmt.Errorf("write documents: document %d: %w", i, err)
		}
		internal[i] = doc
	}
	if err = s.svc.Write(ctx, s.source, internal); err != nil {
		return fmt.Errorf("write documents: %w", err)
	}
	return nil
}

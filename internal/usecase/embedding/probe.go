package embedding

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/vecsearch/internal/domain"
	"github.com/kailas-cloud/vecsearch/internal/domain/search/vector"
)

// Prober turns query text into vector probes.
type Prober struct {
	embedder domain.Embedder
}

// NewProber creates a Prober. A nil embedder makes every call fail with
// domain.ErrNotSupported.
func NewProber(embedder domain.Embedder) *Prober {
	return &Prober{embedder: embedder}
}

// VectorQuery embeds text and returns a probe against field with the
// default candidate count.
func (p *Prober) VectorQuery(ctx context.Context, field, text string) (vector.Query, error) {
	if p == nil || p.embedder == nil {
		return vector.Query{}, fmt.Errorf("%w: no embedder configured", domain.ErrNotSupported)
	}
	res, err := p.embedder.Embed(ctx, text)
	if err != nil {
		return vector.Query{}, fmt.Errorf("embed probe for %q: %w", field, err)
	}
	q, err := vector.NewQuery(field, res.Embedding)
	if err != nil {
		return vector.Query{}, fmt.Errorf("probe for %q: %w", field, err)
	}
	return q, nil
}

package search

import (
	"context"

	"github.com/kailas-cloud/vecsearch/internal/domain/search/request"
	"github.com/kailas-cloud/vecsearch/internal/domain/search/result"
)

// Repository runs one query round trip against the search service.
type Repository interface {
	Search(
		ctx context.Context, index string,
		req request.Request, opts request.Options, clientContextID string,
	) (*result.Set, error)
}

package search

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/vecsearch/internal/db"
	"github.com/kailas-cloud/vecsearch/internal/domain"
	"github.com/kailas-cloud/vecsearch/internal/domain/search/request"
	"github.com/kailas-cloud/vecsearch/internal/domain/search/result"
)

// store is the consumer interface for search operations (ISP).
type store interface {
	Search(ctx context.Context, q *db.Query) (*db.SearchResult, error)
}

// Repo implements usecase/search.Repository.
type Repo struct {
	store store
}

// New creates a search repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Search renders the request for the backend, runs it once and converts the reply.
// opts must already be normalized.
func (r *Repo) Search(
	ctx context.Context, index string,
	req request.Request, opts request.Options, clientContextID string,
) (*result.Set, error) {
	q := buildQuery(index, req, opts, clientContextID)

	sr, err := r.store.Search(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", index, translate(ctx, err))
	}
	return toSet(sr, clientContextID), nil
}

func buildQuery(index string, req request.Request, opts request.Options, clientContextID string) *db.Query {
	q := &db.Query{
		IndexName:        index,
		Lexical:          req.SearchQuery(),
		Size:             opts.Limit,
		From:             opts.Skip,
		Fields:           opts.Fields,
		Explain:          opts.Explain,
		IncludeLocations: opts.IncludeLocations,
		Timeout:          opts.Timeout,
		ClientContextID:  clientContextID,
	}
	if h := opts.Highlight; h != nil {
		q.Highlight = &db.Highlight{Style: h.Style, Fields: h.Fields}
	}
	if vs := req.VectorSearch(); vs != nil {
		q.KNNOperator = string(vs.Operator())
		for _, vq := range vs.Queries() {
			q.KNN = append(q.KNN, db.KNNProbe{
				Field:  vq.Field(),
				Vector: vq.Vector(),
				K:      vq.NumCandidates(),
				Boost:  vq.Boost(),
			})
		}
	}
	return q
}

func toSet(sr *db.SearchResult, clientContextID string) *result.Set {
	set := &result.Set{Rows: []result.Row{}}
	set.Meta.ClientContextID = clientContextID
	if sr == nil {
		return set
	}

	set.Meta.Took = sr.Took
	set.Meta.TotalHits = sr.Total
	set.Meta.MaxScore = sr.MaxScore
	set.Meta.Status = result.Status{
		Total:      sr.Status.Total,
		Successful: sr.Status.Successful,
		Failed:     sr.Status.Failed,
		Errors:     sr.Status.Errors,
	}

	set.Rows = make([]result.Row, 0, len(sr.Hits))
	for i := range sr.Hits {
		set.Rows = append(set.Rows, toRow(&sr.Hits[i]))
	}
	return set
}

func toRow(h *db.SearchHit) result.Row {
	row := result.Row{
		Index:       h.Index,
		ID:          h.ID,
		Score:       h.Score,
		Fragments:   h.Fragments,
		Fields:      h.Fields,
		Explanation: h.Explanation,
	}
	if len(h.Locations) > 0 {
		row.Locations = make([]result.Location, len(h.Locations))
		for i, l := range h.Locations {
			row.Locations[i] = result.Location{
				Field:          l.Field,
				Term:           l.Term,
				Position:       l.Pos,
				Start:          l.Start,
				End:            l.End,
				ArrayPositions: l.ArrayPositions,
			}
		}
	}
	return row
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

package chi

import (
	"context"
	"fmt"
	"time"

	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/kailas-cloud/vecsearch/internal/domain"
	domindex "github.com/kailas-cloud/vecsearch/internal/domain/index"
	"github.com/kailas-cloud/vecsearch/internal/domain/search/request"
	"github.com/kailas-cloud/vecsearch/internal/domain/search/result"
	"github.com/kailas-cloud/vecsearch/internal/domain/search/vector"
	searchuc "github.com/kailas-cloud/vecsearch/internal/usecase/search"
)

// buildRequest composes the search request in the order the body names:
// the primary clause first, the other one as augmentation.
func (s *Server) buildRequest(ctx context.Context, body *QueryRequest) (request.Request, request.Options, error) {
	var lexical query.Query
	if len(body.Query) > 0 {
		q, err := query.ParseQuery(body.Query)
		if err != nil {
			return request.Request{}, request.Options{}, fmt.Errorf("%w: query: %w", domain.ErrInvalidArgument, err)
		}
		lexical = q
	}

	var vs *vector.Search
	if len(body.KNN) > 0 {
		probes, err := s.probes(ctx, body.KNN)
		if err != nil {
			return request.Request{}, request.Options{}, err
		}
		search, err := vector.NewSearch(probes, vector.Operator(body.KNNOperator))
		if err != nil {
			return request.Request{}, request.Options{}, err
		}
		vs = &search
	}

	req, err := compose(body.Primary, lexical, vs)
	if err != nil {
		return request.Request{}, request.Options{}, err
	}

	opts := request.Options{
		Limit:            body.Limit,
		Skip:             body.Skip,
		Fields:           body.Fields,
		Explain:          body.Explain,
		IncludeLocations: body.IncludeLocations,
		Timeout:          time.Duration(body.QueryTimeoutMS) * time.Millisecond,
	}
	if body.Highlight != nil {
		opts.Highlight = &request.Highlight{Style: body.Highlight.Style, Fields: body.Highlight.Fields}
	}
	return req, opts, nil
}

func compose(primary string, lexical query.Query, vs *vector.Search) (request.Request, error) {
	if primary == "" {
		primary = PrimaryQuery
		if lexical == nil {
			primary = PrimaryKNN
		}
	}
	switch primary {
	case PrimaryQuery:
		if lexical == nil {
			return request.Request{}, fmt.Errorf("%w: primary clause %q is missing", domain.ErrInvalidArgument, primary)
		}
		req, err := request.NewLexical(lexical)
		if err != nil || vs == nil {
			return req, err
		}
		return req.WithVectorSearch(*vs)
	case PrimaryKNN:
		if vs == nil {
			return request.Request{}, fmt.Errorf("%w: query or knn is required", domain.ErrInvalidArgument)
		}
		req, err := request.NewVector(*vs)
		if err != nil || lexical == nil {
			return req, err
		}
		return req.WithSearchQuery(lexical)
	default:
		return request.Request{}, fmt.Errorf("%w: primary must be %q or %q, got %q",
			domain.ErrInvalidArgument, PrimaryQuery, PrimaryKNN, primary)
	}
}

func (s *Server) probes(ctx context.Context, in []KNNProbe) ([]vector.Query, error) {
	out := make([]vector.Query, len(in))
	for i, p := range in {
		q, err := s.probe(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("knn[%d]: %w", i, err)
		}
		out[i] = q
	}
	return out, nil
}

func (s *Server) probe(ctx context.Context, p KNNProbe) (vector.Query, error) {
	var (
		q   vector.Query
		err error
	)
	switch {
	case len(p.Vector) > 0 && p.Text != "":
		return vector.Query{}, fmt.Errorf("%w: set either vector or text, not both", domain.ErrInvalidArgument)
	case p.Text != "":
		if s.prober == nil {
			return vector.Query{}, fmt.Errorf("%w: no embedding provider configured for text probes", domain.ErrNotSupported)
		}
		q, err = s.prober.VectorQuery(ctx, p.Field, p.Text)
	default:
		var v []float32
		if v, err = vector.ParseVector(p.Vector); err != nil {
			return vector.Query{}, err
		}
		q, err = vector.NewQuery(p.Field, v)
	}
	if err != nil {
		return vector.Query{}, err
	}
	if p.K != 0 {
		if q, err = q.WithNumCandidates(p.K); err != nil {
			return vector.Query{}, err
		}
	}
	if p.Boost != 0 {
		if q, err = q.WithBoost(p.Boost); err != nil {
			return vector.Query{}, err
		}
	}
	return q, nil
}

func predicateFrom(body *WaitRequest) (searchuc.Predicate, error) {
	switch {
	case body.ExpectRows != nil && body.MinRows != nil:
		return nil, fmt.Errorf("%w: set either expect_rows or min_rows, not both", domain.ErrInvalidArgument)
	case body.ExpectRows != nil:
		if *body.ExpectRows < 0 {
			return nil, fmt.Errorf("%w: expect_rows must be >= 0", domain.ErrInvalidArgument)
		}
		return searchuc.RowCountEquals(*body.ExpectRows), nil
	case body.MinRows != nil:
		if *body.MinRows < 0 {
			return nil, fmt.Errorf("%w: min_rows must be >= 0", domain.ErrInvalidArgument)
		}
		return searchuc.RowCountAtLeast(*body.MinRows), nil
	default:
		return nil, fmt.Errorf("%w: expect_rows or min_rows is required", domain.ErrInvalidArgument)
	}
}

func indexToResponse(d domindex.Definition) IndexResponse {
	return IndexResponse{
		Name:       d.Name,
		Type:       d.Type,
		SourceType: d.SourceType,
		SourceName: d.SourceName,
		UUID:       d.UUID,
		Params:     d.Params,
	}
}

func setToResponse(set *result.Set) QueryResponse {
	resp := QueryResponse{Rows: make([]RowResponse, 0, set.Len())}
	if set == nil {
		return resp
	}
	for i := range set.Rows {
		resp.Rows = append(resp.Rows, rowToResponse(&set.Rows[i]))
	}
	m := set.Meta
	resp.Meta = MetaResponse{
		TookMS:    float64(m.Took) / float64(time.Millisecond),
		TotalHits: m.TotalHits,
		MaxScore:  m.MaxScore,
		Status: StatusResponse{
			Total:      m.Status.Total,
			Successful: m.Status.Successful,
			Failed:     m.Status.Failed,
			Errors:     m.Status.Errors,
		},
		ClientContextID: m.ClientContextID,
	}
	return resp
}

func rowToResponse(r *result.Row) RowResponse {
	out := RowResponse{
		Index:       r.Index,
		ID:          r.ID,
		Score:       r.Score,
		Fragments:   r.Fragments,
		Fields:      r.Fields,
		Explanation: r.Explanation,
	}
	if len(r.Locations) > 0 {
		out.Locations = make([]LocationResponse, len(r.Locations))
		for i, l := range r.Locations {
			out.Locations[i] = LocationResponse{
				Field:          l.Field,
				Term:           l.Term,
				Position:       l.Position,
				Start:          l.Start,
				End:            l.End,
				ArrayPositions: l.ArrayPositions,
			}
		}
	}
	return out
}

package embedded

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/vecsearch/internal/db"
)

const defaultSize = 10

// search runs the lexical clause and every KNN probe concurrently and merges
// them. Lexical-only queries are paged by bleve itself.
func (m *memIndex) search(ctx context.Context, q *db.Query) (*db.SearchResult, error) {
	if q.Lexical == nil && !q.HasKNN() {
		return nil, errors.New("query has neither a lexical nor a vector clause")
	}
	if q.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.Timeout)
		defer cancel()
	}

	m.mu.RLock()
	closed := m.closed
	m.mu.RUnlock()
	if closed {
		return nil, errIndexClosed
	}

	size := q.Size
	if size <= 0 {
		size = defaultSize
	}
	if !q.HasKNN() {
		return m.lexical(ctx, q, size, q.From)
	}

	var (
		lex    *db.SearchResult
		probes = make([][]knnHit, len(q.KNN))
	)
	g, gctx := errgroup.WithContext(ctx)
	if q.Lexical != nil {
		g.Go(func() error {
			var err error
			lex, err = m.lexical(gctx, q, q.From+size, 0)
			return err
		})
	}
	for i, p := range q.KNN {
		g.Go(func() error {
			hits, err := m.knn(gctx, p)
			if err != nil {
				return err
			}
			probes[i] = hits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := merge(q, lex, combineProbes(probes, q.KNNOperator), size)
	if err := m.fillFields(ctx, q, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (m *memIndex) lexical(ctx context.Context, q *db.Query, size, from int) (*db.SearchResult, error) {
	req := bleve.NewSearchRequestOptions(q.Lexical, size, from, q.Explain)
	req.Fields = q.Fields
	req.IncludeLocations = q.IncludeLocations
	if h := q.Highlight; h != nil {
		if h.Style == "" {
			req.Highlight = bleve.NewHighlight()
		} else {
			req.Highlight = bleve.NewHighlightWithStyle(h.Style)
		}
		req.Highlight.Fields = h.Fields
	}

	sr, err := m.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, err
	}

	res := &db.SearchResult{
		Total:    sr.Total,
		MaxScore: sr.MaxScore,
		Took:     sr.Took,
		Status:   db.SearchStatus{Total: 1, Successful: 1},
		Hits:     make([]db.SearchHit, 0, len(sr.Hits)),
	}
	if sr.Status != nil {
		res.Status = db.SearchStatus{
			Total:      sr.Status.Total,
			Failed:     sr.Status.Failed,
			Successful: sr.Status.Successful,
		}
		if len(sr.Status.Errors) > 0 {
			res.Status.Errors = make(map[string]string, len(sr.Status.Errors))
			for k, e := range sr.Status.Errors {
				res.Status.Errors[k] = e.Error()
			}
		}
	}
	for _, h := range sr.Hits {
		res.Hits = append(res.Hits, db.SearchHit{
			Index:       m.spec.Name,
			ID:          h.ID,
			Score:       h.Score,
			Locations:   flattenLocations(h.Locations),
			Fragments:   h.Fragments,
			Fields:      h.Fields,
			Explanation: explanationJSON(h.Expl),
		})
	}
	return res, nil
}

// fillFields loads stored fields for rows that came only from vector probes.
func (m *memIndex) fillFields(ctx context.Context, q *db.Query, res *db.SearchResult) error {
	if len(q.Fields) == 0 {
		return nil
	}
	var ids []string
	for _, h := range res.Hits {
		if h.Fields == nil {
			ids = append(ids, h.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	req := bleve.NewSearchRequestOptions(bleve.NewDocIDQuery(ids), len(ids), 0, false)
	req.Fields = q.Fields
	sr, err := m.index.SearchInContext(ctx, req)
	if err != nil {
		return fmt.Errorf("load fields: %w", err)
	}
	byID := make(map[string]map[string]any, len(sr.Hits))
	for _, h := range sr.Hits {
		byID[h.ID] = h.Fields
	}
	for i := range res.Hits {
		if res.Hits[i].Fields == nil {
			res.Hits[i].Fields = byID[res.Hits[i].ID]
		}
	}
	return nil
}

// merge unions lexical and vector hits, summing the scores of documents found
// by both, then applies paging.
func merge(q *db.Query, lex *db.SearchResult, knn []knnHit, size int) *db.SearchResult {
	type entry struct {
		hit  db.SearchHit
		expl []json.RawMessage
	}
	byID := make(map[string]*entry)
	var order []string

	res := &db.SearchResult{Status: db.SearchStatus{Total: 1, Successful: 1}}
	if lex != nil {
		res.Status = lex.Status
		for _, h := range lex.Hits {
			e := &entry{hit: h}
			if h.Explanation != nil {
				e.expl = append(e.expl, h.Explanation)
			}
			byID[h.ID] = e
			order = append(order, h.ID)
		}
	}
	for _, k := range knn {
		e, ok := byID[k.id]
		if !ok {
			e = &entry{hit: db.SearchHit{Index: q.IndexName, ID: k.id}}
			byID[k.id] = e
			order = append(order, k.id)
		}
		e.hit.Score += k.score
		if q.Explain {
			e.expl = append(e.expl, k.explanation())
		}
	}

	hits := make([]db.SearchHit, 0, len(order))
	for _, id := range order {
		e := byID[id]
		if q.Explain {
			e.hit.Explanation = sumExplanation(e.hit.Score, e.expl)
		}
		hits = append(hits, e.hit)
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})

	res.Total = uint64(len(hits))
	if len(hits) > 0 {
		res.MaxScore = hits[0].Score
	}
	from := min(q.From, len(hits))
	to := min(from+size, len(hits))
	res.Hits = hits[from:to]
	return res
}

func explanationJSON(e *search.Explanation) json.RawMessage {
	if e == nil {
		return nil
	}
	b, err := json.Marshal(e)
	if err != nil {
		return nil
	}
	return b
}

func sumExplanation(score float64, parts []json.RawMessage) json.RawMessage {
	if len(parts) == 1 {
		return parts[0]
	}
	b, err := json.Marshal(map[string]any{
		"value":    score,
		"message":  "sum of:",
		"children": parts,
	})
	if err != nil {
		return nil
	}
	return b
}

func flattenLocations(m search.FieldTermLocationMap) []db.TermLocation {
	if len(m) == 0 {
		return nil
	}
	var out []db.TermLocation
	for field, terms := range m {
		for term, locs := range terms {
			for _, l := range locs {
				if l == nil {
					continue
				}
				out = append(out, db.TermLocation{
					Field:          field,
					Term:           term,
					Pos:            l.Pos,
					Start:          l.Start,
					End:            l.End,
					ArrayPositions: l.ArrayPositions,
				})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Field != out[j].Field {
			return out[i].Field < out[j].Field
		}
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].Term < out[j].Term
	})
	return out
}

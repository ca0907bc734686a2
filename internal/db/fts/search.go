package fts

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/kailas-cloud/vecsearch/internal/db"
)

// matchNone is the lexical placeholder for vector-only requests.
var matchNone = json.RawMessage(`{"match_none":{}}`)

type knnBody struct {
	Field  string    `json:"field"`
	Vector []float32 `json:"vector"`
	K      int       `json:"k"`
	Boost  float64   `json:"boost,omitempty"`
}

type highlightBody struct {
	Style  string   `json:"style,omitempty"`
	Fields []string `json:"fields,omitempty"`
}

type ctlBody struct {
	Timeout int64 `json:"timeout"`
}

type queryBody struct {
	Query            json.RawMessage `json:"query"`
	KNN              []knnBody       `json:"knn,omitempty"`
	KNNOperator      string          `json:"knn_operator,omitempty"`
	Size             int             `json:"size"`
	From             int             `json:"from"`
	Fields           []string        `json:"fields,omitempty"`
	Explain          bool            `json:"explain,omitempty"`
	IncludeLocations bool            `json:"includeLocations,omitempty"`
	Highlight        *highlightBody  `json:"highlight,omitempty"`
	Ctl              *ctlBody        `json:"ctl,omitempty"`
	ClientContextID  string          `json:"client_context_id,omitempty"`
}

type location struct {
	Pos            uint64   `json:"pos"`
	Start          uint64   `json:"start"`
	End            uint64   `json:"end"`
	ArrayPositions []uint64 `json:"array_positions"`
}

type hitReply struct {
	Index       string                           `json:"index"`
	ID          string                           `json:"id"`
	Score       float64                          `json:"score"`
	Explanation json.RawMessage                  `json:"explanation"`
	Locations   map[string]map[string][]location `json:"locations"`
	Fragments   map[string][]string              `json:"fragments"`
	Fields      map[string]any                   `json:"fields"`
}

type statusReply struct {
	Total      int               `json:"total"`
	Failed     int               `json:"failed"`
	Successful int               `json:"successful"`
	Errors     map[string]string `json:"errors"`
}

type queryReply struct {
	Status    statusReply `json:"status"`
	Hits      []hitReply  `json:"hits"`
	TotalHits uint64      `json:"total_hits"`
	MaxScore  float64     `json:"max_score"`
	Took      int64       `json:"took"`
}

// Search runs one query round trip against /api/index/{name}/query.
func (s *Store) Search(ctx context.Context, q *db.Query) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	body, err := buildQueryBody(q)
	if err != nil {
		return nil, &db.Error{Op: db.OpQuery, Err: err}
	}

	var reply queryReply
	path := "/api/index/" + url.PathEscape(q.IndexName) + "/query"
	if err := s.call(ctx, db.OpQuery, http.MethodPost, path, body, &reply); err != nil {
		return nil, err
	}
	if reply.Status.Failed > 0 && len(reply.Hits) == 0 {
		return nil, &db.Error{Op: db.OpQuery, Err: fmt.Errorf("%d of %d partitions failed: %v",
			reply.Status.Failed, reply.Status.Total, reply.Status.Errors)}
	}
	return convertReply(q.IndexName, &reply), nil
}

func buildQueryBody(q *db.Query) (*queryBody, error) {
	body := &queryBody{
		Query:            matchNone,
		Size:             q.Size,
		From:             q.From,
		Fields:           q.Fields,
		Explain:          q.Explain,
		IncludeLocations: q.IncludeLocations,
		ClientContextID:  q.ClientContextID,
	}
	if q.Lexical != nil {
		raw, err := json.Marshal(q.Lexical)
		if err != nil {
			return nil, fmt.Errorf("encode query: %w", err)
		}
		body.Query = raw
	}
	for _, p := range q.KNN {
		body.KNN = append(body.KNN, knnBody{Field: p.Field, Vector: p.Vector, K: p.K, Boost: p.Boost})
	}
	if len(q.KNN) > 0 {
		body.KNNOperator = q.KNNOperator
	}
	if q.Highlight != nil {
		body.Highlight = &highlightBody{Style: q.Highlight.Style, Fields: q.Highlight.Fields}
	}
	if q.Timeout > 0 {
		body.Ctl = &ctlBody{Timeout: q.Timeout.Milliseconds()}
	}
	return body, nil
}

func convertReply(indexName string, reply *queryReply) *db.SearchResult {
	res := &db.SearchResult{
		Total:    reply.TotalHits,
		MaxScore: reply.MaxScore,
		Took:     time.Duration(reply.Took),
		Status: db.SearchStatus{
			Total:      reply.Status.Total,
			Failed:     reply.Status.Failed,
			Successful: reply.Status.Successful,
			Errors:     reply.Status.Errors,
		},
		Hits: make([]db.SearchHit, 0, len(reply.Hits)),
	}
	for i := range reply.Hits {
		h := &reply.Hits[i]
		idx := h.Index
		if idx == "" {
			idx = indexName
		}
		res.Hits = append(res.Hits, db.SearchHit{
			Index:       idx,
			ID:          h.ID,
			Score:       h.Score,
			Locations:   flattenLocations(h.Locations),
			Fragments:   h.Fragments,
			Fields:      h.Fields,
			Explanation: h.Explanation,
		})
	}
	return res
}

// flattenLocations turns field -> term -> []location into a stable list.
func flattenLocations(m map[string]map[string][]location) []db.TermLocation {
	if len(m) == 0 {
		return nil
	}
	var out []db.TermLocation
	for field, terms := range m {
		for term, locs := range terms {
			for _, l := range locs {
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

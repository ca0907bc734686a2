package db

import (
	"encoding/json"
	"time"

	"github.com/blevesearch/bleve/v2/search/query"
)

// KNN operators.
const (
	KNNOperatorOr  = "or"
	KNNOperatorAnd = "and"
)

// KNNProbe is one vector-similarity clause.
type KNNProbe struct {
	Field  string
	Vector []float32
	K      int
	Boost  float64
}

// Highlight requests match fragments.
type Highlight struct {
	Style  string
	Fields []string
}

// Query is the backend-neutral input for a single search round trip.
// Lexical is nil for vector-only queries; KNN is empty for lexical-only ones.
type Query struct {
	IndexName        string
	Lexical          query.Query
	KNN              []KNNProbe
	KNNOperator      string
	Size             int
	From             int
	Fields           []string
	Explain          bool
	IncludeLocations bool
	Highlight        *Highlight
	Timeout          time.Duration
	ClientContextID  string
}

// HasKNN reports whether the query carries a vector clause.
func (q *Query) HasKNN() bool { return len(q.KNN) > 0 }

// TermLocation is a single term occurrence.
type TermLocation struct {
	Field          string
	Term           string
	Pos            uint64
	Start          uint64
	End            uint64
	ArrayPositions []uint64
}

// SearchHit is a single document hit from a search.
type SearchHit struct {
	Index       string
	ID          string
	Score       float64
	Locations   []TermLocation
	Fragments   map[string][]string
	Fields      map[string]any
	Explanation json.RawMessage
}

// SearchStatus reports partition outcomes.
type SearchStatus struct {
	Total      int
	Failed     int
	Successful int
	Errors     map[string]string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total    uint64
	MaxScore float64
	Took     time.Duration
	Status   SearchStatus
	Hits     []SearchHit
}

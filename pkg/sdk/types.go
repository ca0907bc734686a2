package vecsearch

import (
	"encoding/json"

	"github.com/blevesearch/bleve/v2/search/query"

	domindex "github.com/kailas-cloud/vecsearch/internal/domain/index"
	"github.com/kailas-cloud/vecsearch/internal/domain/search/request"
	"github.com/kailas-cloud/vecsearch/internal/domain/search/result"
	"github.com/kailas-cloud/vecsearch/internal/domain/search/vector"
	searchuc "github.com/kailas-cloud/vecsearch/internal/usecase/search"
)

// VectorQuery is a single KNN probe: a field, a vector, a candidate count
// and an optional boost.
type VectorQuery = vector.Query

// VectorSearch is one or more probes combined by an Operator.
type VectorSearch = vector.Search

// Operator combines per-probe result sets.
type Operator = vector.Operator

// Operator constants.
const (
	OperatorOr  = vector.OperatorOr
	OperatorAnd = vector.OperatorAnd
)

// SearchRequest is a lexical, vector or hybrid request. Augmenting returns a
// new value; the receiver is never changed.
type SearchRequest = request.Request

// RequestKind reports which clauses a SearchRequest carries.
type RequestKind = request.Kind

// Request kinds.
const (
	KindLexical = request.KindLexical
	KindVector  = request.KindVector
	KindHybrid  = request.KindHybrid
)

// SearchOptions controls paging, projection, highlighting and the per-query
// server timeout.
type SearchOptions = request.Options

// Highlight asks for match fragments.
type Highlight = request.Highlight

// ResultSet is the ranked response of one search round trip.
type ResultSet = result.Set

// Row is one ranked hit.
type Row = result.Row

// IndexDefinition describes a search index; Params stays opaque.
type IndexDefinition = domindex.Definition

// IndexBuilder assembles an IndexDefinition.
type IndexBuilder = domindex.Builder

// Index types.
const (
	IndexTypeFulltext = domindex.TypeFulltext
	IndexTypeAlias    = domindex.TypeAlias
)

// Policy bounds WaitUntil: the interval between attempts, the overall
// deadline and an optional attempt cap.
type Policy = searchuc.Policy

// Predicate decides whether a polled result is acceptable.
type Predicate = searchuc.Predicate

// Document is a source document written for indexing.
type Document struct {
	ID     string
	Fields map[string]any
}

// NewVectorQuery creates a probe with the default candidate count.
func NewVectorQuery(field string, v []float32) (VectorQuery, error) {
	return vector.NewQuery(field, v)
}

// NewVectorSearch combines probes with op ("" means OperatorOr).
func NewVectorSearch(probes []VectorQuery, op Operator) (VectorSearch, error) {
	return vector.NewSearch(probes, op)
}

// NewSearchRequest starts a request from a lexical clause (a bleve query) or
// a vector clause (VectorQuery or VectorSearch).
func NewSearchRequest(clause any) (SearchRequest, error) {
	return request.New(clause)
}

// NewLexicalRequest starts a request from a bleve query.
func NewLexicalRequest(q query.Query) (SearchRequest, error) {
	return request.NewLexical(q)
}

// NewVectorRequest starts a request from a vector search.
func NewVectorRequest(vs VectorSearch) (SearchRequest, error) {
	return request.NewVector(vs)
}

// ParseQuery decodes a bleve query from its JSON form.
func ParseQuery(data json.RawMessage) (query.Query, error) {
	return query.ParseQuery(data)
}

// NewIndex starts building an index definition.
func NewIndex(name string) *IndexBuilder {
	return domindex.NewBuilder(name)
}

// DecodeIndex decodes an index definition from its JSON form.
func DecodeIndex(data []byte) (IndexDefinition, error) {
	return domindex.DecodeDefinition(data)
}

// WithTypeKey returns a copy of template whose single mapping type is renamed
// to key. Use it to give each run of a fixture its own document type.
func WithTypeKey(template IndexDefinition, key string) (IndexDefinition, error) {
	return domindex.WithTypeKey(template, key)
}

// RowCountEquals accepts results with exactly n rows.
func RowCountEquals(n int) Predicate { return searchuc.RowCountEquals(n) }

// RowCountAtLeast accepts results with at least n rows.
func RowCountAtLeast(n int) Predicate { return searchuc.RowCountAtLeast(n) }

// DefaultPolicy returns the default polling policy.
func DefaultPolicy() Policy { return searchuc.DefaultPolicy() }

package request

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/kailas-cloud/vecsearch/internal/domain"
	"github.com/kailas-cloud/vecsearch/internal/domain/search/vector"
)

// Request is a validated search request: exactly one primary clause plus at
// most one augmentation of the other kind. Values are immutable; transitions
// return a new Request.
type Request struct {
	kind    Kind
	lexical query.Query
	vector  vector.Search
}

// New classifies clause and creates a Lexical or Vector request.
// Vector values are checked first: a vector.Query or vector.Search (or a
// pointer to one) yields KindVector, any other non-nil bleve query yields
// KindLexical. Everything else fails with domain.ErrClauseType.
func New(clause any) (Request, error) {
	if vs, ok, err := asVectorSearch(clause); ok {
		if err != nil {
			return Request{}, err
		}
		return Request{kind: KindVector, vector: vs}, nil
	}
	q, err := asLexical(clause)
	if err != nil {
		return Request{}, err
	}
	return Request{kind: KindLexical, lexical: q}, nil
}

// NewLexical creates a Lexical request from a bleve query.
func NewLexical(q query.Query) (Request, error) {
	return New(q)
}

// NewVector creates a Vector request from a vector search.
func NewVector(vs vector.Search) (Request, error) {
	return New(vs)
}

// WithVectorSearch augments a Lexical request with a vector clause.
func (r Request) WithVectorSearch(v any) (Request, error) {
	if r.kind != KindLexical {
		return Request{}, fmt.Errorf("%w: %s request already has a vector clause", domain.ErrClauseConflict, r.kind)
	}
	vs, ok, err := asVectorSearch(v)
	if !ok {
		return Request{}, fmt.Errorf("%w: vector augmentation needs a vector query or search, got %T", domain.ErrClauseType, v)
	}
	if err != nil {
		return Request{}, err
	}
	return Request{kind: KindHybrid, lexical: r.lexical, vector: vs}, nil
}

// WithSearchQuery augments a Vector request with a lexical clause.
func (r Request) WithSearchQuery(q any) (Request, error) {
	if r.kind != KindVector {
		return Request{}, fmt.Errorf("%w: %s request already has a lexical clause", domain.ErrClauseConflict, r.kind)
	}
	if _, ok, _ := asVectorSearch(q); ok {
		return Request{}, fmt.Errorf("%w: lexical augmentation got a vector clause", domain.ErrClauseType)
	}
	lq, err := asLexical(q)
	if err != nil {
		return Request{}, err
	}
	return Request{kind: KindHybrid, lexical: lq, vector: r.vector}, nil
}

// Kind returns the clause composition.
func (r Request) Kind() Kind { return r.kind }

// IsZero reports whether r was never constructed.
func (r Request) IsZero() bool { return r.kind == "" }

// SearchQuery returns the lexical clause, nil for KindVector.
func (r Request) SearchQuery() query.Query { return r.lexical }

// VectorSearch returns the vector clause, nil for KindLexical.
func (r Request) VectorSearch() *vector.Search {
	if r.vector.IsZero() {
		return nil
	}
	vs := r.vector
	return &vs
}

// Equivalent reports whether both requests carry the same clauses, regardless
// of which one was primary when they were built.
func (r Request) Equivalent(o Request) bool {
	if r.kind != o.kind {
		return false
	}
	if (r.lexical == nil) != (o.lexical == nil) {
		return false
	}
	if r.lexical != nil {
		a, errA := json.Marshal(r.lexical)
		b, errB := json.Marshal(o.lexical)
		if errA != nil || errB != nil || string(a) != string(b) {
			return false
		}
	}
	return r.vector.Equal(o.vector)
}

// asVectorSearch reports ok=true when v is one of the vector clause types.
func asVectorSearch(v any) (vector.Search, bool, error) {
	switch c := v.(type) {
	case vector.Search:
		return checkSearch(c)
	case *vector.Search:
		if c == nil {
			return vector.Search{}, true, fmt.Errorf("%w: nil vector search", domain.ErrClauseType)
		}
		return checkSearch(*c)
	case vector.Query:
		return checkSearch(vector.FromQuery(c))
	case *vector.Query:
		if c == nil {
			return vector.Search{}, true, fmt.Errorf("%w: nil vector query", domain.ErrClauseType)
		}
		return checkSearch(vector.FromQuery(*c))
	default:
		return vector.Search{}, false, nil
	}
}

func checkSearch(vs vector.Search) (vector.Search, bool, error) {
	if vs.IsZero() {
		return vector.Search{}, true, fmt.Errorf("%w: empty vector search", domain.ErrClauseType)
	}
	for _, q := range vs.Queries() {
		if q.IsZero() {
			return vector.Search{}, true, fmt.Errorf("%w: uninitialized vector query", domain.ErrClauseType)
		}
	}
	return vs, true, nil
}

func asLexical(v any) (query.Query, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: clause is nil", domain.ErrClauseType)
	}
	q, ok := v.(query.Query)
	if !ok {
		return nil, fmt.Errorf("%w: %T is neither a search query nor a vector search", domain.ErrClauseType, v)
	}
	if rv := reflect.ValueOf(q); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return nil, fmt.Errorf("%w: clause is a nil %T", domain.ErrClauseType, v)
	}
	return q, nil
}

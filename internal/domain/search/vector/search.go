package vector

import (
	"fmt"
	"slices"

	"github.com/kailas-cloud/vecsearch/internal/domain"
)

// Operator combines the per-probe result sets of a Search.
type Operator string

// Operator constants.
const (
	// OperatorOr unions the probe results.
	OperatorOr Operator = "or"
	// OperatorAnd keeps documents every probe returned.
	OperatorAnd Operator = "and"
)

// IsValid checks if the operator is one of the supported values.
func (o Operator) IsValid() bool {
	return o == OperatorOr || o == OperatorAnd
}

// Search is an ordered, non-empty set of probes plus a combining operator.
type Search struct {
	queries  []Query
	operator Operator
}

// FromQuery wraps a single probe with the default operator.
func FromQuery(q Query) Search {
	return Search{queries: []Query{q}, operator: OperatorOr}
}

// NewSearch validates and creates a multi-probe search. Empty op means OperatorOr.
func NewSearch(qs []Query, op Operator) (Search, error) {
	if len(qs) == 0 {
		return Search{}, fmt.Errorf("%w: vector search needs at least one query", domain.ErrInvalidArgument)
	}
	for i, q := range qs {
		if q.IsZero() {
			return Search{}, fmt.Errorf("%w: vector query %d is not initialized", domain.ErrInvalidArgument, i)
		}
	}
	if op == "" {
		op = OperatorOr
	}
	if !op.IsValid() {
		return Search{}, fmt.Errorf("%w: unknown vector operator %q", domain.ErrInvalidArgument, op)
	}
	return Search{queries: slices.Clone(qs), operator: op}, nil
}

// Queries returns a copy of the probes in construction order.
func (s Search) Queries() []Query { return slices.Clone(s.queries) }

// Operator returns the combining operator.
func (s Search) Operator() Operator { return s.operator }

// Len returns the number of probes.
func (s Search) Len() int { return len(s.queries) }

// IsZero reports whether s holds no probes.
func (s Search) IsZero() bool { return len(s.queries) == 0 }

// Equal reports whether both searches carry the same probes in the same order.
func (s Search) Equal(o Search) bool {
	if s.operator != o.operator || len(s.queries) != len(o.queries) {
		return false
	}
	for i := range s.queries {
		if !s.queries[i].equal(o.queries[i]) {
			return false
		}
	}
	return true
}

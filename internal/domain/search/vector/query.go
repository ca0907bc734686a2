package vector

import (
	"fmt"
	"math"
	"slices"

	"github.com/kailas-cloud/vecsearch/internal/domain"
)

// DefaultNumCandidates is the k used when the caller does not set one.
const DefaultNumCandidates = 3

// Query is a single vector-similarity probe against one vector field.
type Query struct {
	field         string
	vector        []float32
	numCandidates int
	boost         float64
}

// NewQuery validates and creates a probe with the default candidate count.
func NewQuery(field string, v []float32) (Query, error) {
	if field == "" {
		return Query{}, fmt.Errorf("%w: vector field name is required", domain.ErrInvalidArgument)
	}
	if len(v) == 0 {
		return Query{}, fmt.Errorf("%w: query vector must be a non-empty sequence of numbers", domain.ErrInvalidArgument)
	}
	for i, f := range v {
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			return Query{}, fmt.Errorf("%w: vector element %d is not a finite number", domain.ErrInvalidArgument, i)
		}
	}
	return Query{
		field:         field,
		vector:        slices.Clone(v),
		numCandidates: DefaultNumCandidates,
	}, nil
}

// WithNumCandidates returns a copy of q that retrieves n nearest neighbours.
func (q Query) WithNumCandidates(n int) (Query, error) {
	if n < 1 {
		return Query{}, fmt.Errorf("%w: num candidates must be >= 1, got %d", domain.ErrInvalidArgument, n)
	}
	q.numCandidates = n
	return q, nil
}

// WithBoost returns a copy of q whose scores are multiplied by b.
func (q Query) WithBoost(b float64) (Query, error) {
	if b <= 0 || math.IsNaN(b) || math.IsInf(b, 0) {
		return Query{}, fmt.Errorf("%w: boost must be a positive number", domain.ErrInvalidArgument)
	}
	q.boost = b
	return q, nil
}

// Field returns the target vector field.
func (q Query) Field() string { return q.field }

// Vector returns a copy of the probe vector.
func (q Query) Vector() []float32 { return slices.Clone(q.vector) }

// Dims returns the probe dimensionality.
func (q Query) Dims() int { return len(q.vector) }

// NumCandidates returns k.
func (q Query) NumCandidates() int { return q.numCandidates }

// Boost returns the score multiplier, 0 when unset.
func (q Query) Boost() float64 { return q.boost }

// IsZero reports whether q was never constructed via NewQuery.
func (q Query) IsZero() bool { return q.field == "" }

func (q Query) equal(o Query) bool {
	return q.field == o.field &&
		q.numCandidates == o.numCandidates &&
		q.boost == o.boost &&
		slices.Equal(q.vector, o.vector)
}

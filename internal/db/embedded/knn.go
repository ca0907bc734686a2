package embedded

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/blevesearch/bleve/v2/search"

	"github.com/kailas-cloud/vecsearch/internal/db"
)

const defaultK = 3

type knnPart struct {
	field      string
	similarity string
	value      float64
}

// knnHit is a document matched by one or more vector probes.
type knnHit struct {
	id    string
	score float64
	parts []knnPart
}

func (h knnHit) explanation() json.RawMessage {
	children := make([]*search.Explanation, 0, len(h.parts))
	for _, p := range h.parts {
		children = append(children, &search.Explanation{
			Value:   p.value,
			Message: fmt.Sprintf("knn(field=%s, similarity=%s)", p.field, p.similarity),
		})
	}
	e := children[0]
	if len(children) > 1 {
		e = &search.Explanation{Value: h.score, Message: "sum of:", Children: children}
	}
	return explanationJSON(e)
}

// knn scores every stored vector of the probed field and keeps the top K.
func (m *memIndex) knn(ctx context.Context, p db.KNNProbe) ([]knnHit, error) {
	f, ok := m.vecs[p.Field]
	if !ok {
		return nil, fmt.Errorf("field %q is not a vector field", p.Field)
	}
	if len(p.Vector) != f.Dims {
		return nil, fmt.Errorf("field %q expects %d dims, got %d", p.Field, f.Dims, len(p.Vector))
	}
	k := p.K
	if k <= 0 {
		k = defaultK
	}
	boost := p.Boost
	if boost <= 0 {
		boost = 1
	}

	m.mu.RLock()
	hits := make([]knnHit, 0, len(m.vectors[p.Field]))
	for id, v := range m.vectors[p.Field] {
		s := similarity(f.Similarity, p.Vector, v) * boost
		hits = append(hits, knnHit{id: id, score: s, parts: []knnPart{{field: p.Field, similarity: f.Similarity, value: s}}})
	}
	m.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sortHits(hits)
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// combineProbes merges per-probe results: "and" keeps documents every probe
// matched, anything else keeps the union. Scores are summed.
func combineProbes(probes [][]knnHit, operator string) []knnHit {
	if len(probes) == 1 {
		return probes[0]
	}
	byID := make(map[string]*knnHit)
	seen := make(map[string]int)
	var order []string
	for _, hits := range probes {
		for _, h := range hits {
			acc, ok := byID[h.id]
			if !ok {
				cp := knnHit{id: h.id}
				acc = &cp
				byID[h.id] = acc
				order = append(order, h.id)
			}
			acc.score += h.score
			acc.parts = append(acc.parts, h.parts...)
			seen[h.id]++
		}
	}

	out := make([]knnHit, 0, len(order))
	for _, id := range order {
		if operator == db.KNNOperatorAnd && seen[id] < len(probes) {
			continue
		}
		out = append(out, *byID[id])
	}
	sortHits(out)
	return out
}

func sortHits(hits []knnHit) {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].id < hits[j].id
	})
}

// similarity is higher-is-better for every metric.
func similarity(metric string, a, b []float32) float64 {
	switch metric {
	case db.SimilarityDotProduct:
		return dot(a, b)
	case db.SimilarityCosine:
		na, nb := math.Sqrt(dot(a, a)), math.Sqrt(dot(b, b))
		if na == 0 || nb == 0 {
			return 0
		}
		return dot(a, b) / (na * nb)
	default:
		var sum float64
		for i := range a {
			d := float64(a[i]) - float64(b[i])
			sum += d * d
		}
		return 1 / (1 + math.Sqrt(sum))
	}
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

package search

import (
	"context"
	"testing"

	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/kailas-cloud/vecsearch/internal/db"
	"github.com/kailas-cloud/vecsearch/internal/domain/search/request"
	"github.com/kailas-cloud/vecsearch/internal/domain/search/vector"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	searchFn func(ctx context.Context, q *db.Query) (*db.SearchResult, error)
}

func (m *mockStore) Search(ctx context.Context, q *db.Query) (*db.SearchResult, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	repo := New(ms)
	return repo, ms
}

func testVector() []float32 {
	return []float32{0.1, 0.2, 0.3}
}

func mustVectorQuery(t *testing.T, field string, k int) vector.Query {
	t.Helper()
	q, err := vector.NewQuery(field, testVector())
	if err != nil {
		t.Fatalf("NewQuery: %v", err)
	}
	if q, err = q.WithNumCandidates(k); err != nil {
		t.Fatalf("WithNumCandidates: %v", err)
	}
	return q
}

func mustHybrid(t *testing.T) request.Request {
	t.Helper()
	mq := query.NewMatchQuery("ocean")
	mq.SetField("description")
	req, err := request.New(mq)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	vs, err := vector.NewSearch([]vector.Query{
		mustVectorQuery(t, "embedding", 5),
		mustVectorQuery(t, "embedding_alt", 2),
	}, vector.OperatorAnd)
	if err != nil {
		t.Fatalf("NewSearch: %v", err)
	}
	if req, err = req.WithVectorSearch(vs); err != nil {
		t.Fatalf("WithVectorSearch: %v", err)
	}
	return req
}

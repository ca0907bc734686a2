package vecsearch

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	domdoc "github.com/kailas-cloud/vecsearch/internal/domain/document"
	domindex "github.com/kailas-cloud/vecsearch/internal/domain/index"
	"github.com/kailas-cloud/vecsearch/internal/domain/search/request"
	"github.com/kailas-cloud/vecsearch/internal/domain/search/result"
	"github.com/kailas-cloud/vecsearch/internal/domain/search/vector"
	healthuc "github.com/kailas-cloud/vecsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/vecsearch/internal/usecase/search"
)

func matchAll(t *testing.T) SearchRequest {
	t.Helper()
	req, err := NewLexicalRequest(query.NewMatchAllQuery())
	if err != nil {
		t.Fatalf("NewLexicalRequest: %v", err)
	}
	return req
}

// --- IndexService ---

func TestIndexService_Upsert(t *testing.T) {
	def := NewIndex("hotels").Source("travel", "").MustBuild()
	mock := &mockIndexUC{
		upsertFn: func(_ context.Context, got domindex.Definition) error {
			if got.Name != "hotels" || got.SourceName != "travel" {
				t.Errorf("unexpected definition %+v", got)
			}
			return nil
		},
	}

	svc := &IndexService{svc: mock}
	if err := svc.Upsert(context.Background(), def); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestIndexService_Ensure(t *testing.T) {
	def := NewIndex("hotels").MustBuild()

	t.Run("existing index is returned untouched", func(t *testing.T) {
		mock := &mockIndexUC{
			getFn: func(_ context.Context, _ string) (domindex.Definition, error) {
				return domindex.Definition{Name: "hotels", UUID: "u1"}, nil
			},
			upsertFn: func(context.Context, domindex.Definition) error {
				t.Error("upsert must not be called for an existing index")
				return nil
			},
		}
		got, err := (&IndexService{svc: mock}).Ensure(context.Background(), def)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.UUID != "u1" {
			t.Errorf("UUID = %q, want u1", got.UUID)
		}
	})

	t.Run("missing index is created", func(t *testing.T) {
		created := false
		mock := &mockIndexUC{
			getFn: func(_ context.Context, _ string) (domindex.Definition, error) {
				if created {
					return domindex.Definition{Name: "hotels", UUID: "u2"}, nil
				}
				return domindex.Definition{}, ErrIndexNotFound
			},
			upsertFn: func(context.Context, domindex.Definition) error {
				created = true
				return nil
			},
		}
		got, err := (&IndexService{svc: mock}).Ensure(context.Background(), def)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !created || got.UUID != "u2" {
			t.Errorf("created=%v, UUID=%q", created, got.UUID)
		}
	})

	t.Run("other errors are returned", func(t *testing.T) {
		mock := &mockIndexUC{
			getFn: func(_ context.Context, _ string) (domindex.Definition, error) {
				return domindex.Definition{}, ErrService
			},
		}
		_, err := (&IndexService{svc: mock}).Ensure(context.Background(), def)
		if !errors.Is(err, ErrService) {
			t.Fatalf("expected ErrService, got %v", err)
		}
	})
}

func TestIndexService_GetListDrop(t *testing.T) {
	mock := &mockIndexUC{
		getFn: func(_ context.Context, _ string) (domindex.Definition, error) {
			return domindex.Definition{}, ErrIndexNotFound
		},
		listFn: func(context.Context) ([]domindex.Definition, error) {
			return []domindex.Definition{{Name: "a"}, {Name: "b"}}, nil
		},
		dropFn: func(_ context.Context, name string) error {
			if name != "a" {
				t.Errorf("drop name = %q, want a", name)
			}
			return nil
		},
	}
	svc := &IndexService{svc: mock}
	ctx := context.Background()

	if _, err := svc.Get(ctx, "zzz"); !errors.Is(err, ErrIndexNotFound) {
		t.Errorf("Get: expected ErrIndexNotFound, got %v", err)
	}
	defs, err := svc.List(ctx)
	if err != nil || len(defs) != 2 {
		t.Errorf("List: got %d defs, err %v", len(defs), err)
	}
	if err := svc.Drop(ctx, "a"); err != nil {
		t.Errorf("Drop: %v", err)
	}
}

// --- SearchService ---

func TestSearchService_Execute(t *testing.T) {
	req := matchAll(t)
	mock := &mockSearchUC{
		executeFn: func(_ context.Context, index string, got request.Request, opts request.Options) (*result.Set, error) {
			if index != "hotels" {
				t.Errorf("index = %q, want hotels", index)
			}
			if !got.Equivalent(req) || opts.Limit != 5 {
				t.Errorf("unexpected request %v / %+v", got.Kind(), opts)
			}
			return &result.Set{Rows: []result.Row{{ID: "h1"}}}, nil
		},
	}

	svc := &SearchService{index: "hotels", svc: mock}
	set, err := svc.Execute(context.Background(), req, SearchOptions{Limit: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if set.Len() != 1 {
		t.Errorf("Len = %d, want 1", set.Len())
	}
}

func TestSearchService_WaitUsesDefaultPolicy(t *testing.T) {
	policy := Policy{Interval: 5 * time.Millisecond, Timeout: time.Second, MaxAttempts: 7}
	mock := &mockSearchUC{
		pollFn: func(
			_ context.Context, _ string, _ request.Request, _ request.Options,
			got searchuc.Policy, accept searchuc.Predicate,
		) (*result.Set, error) {
			if got != policy {
				t.Errorf("policy = %+v, want %+v", got, policy)
			}
			set := &result.Set{Rows: make([]result.Row, 3)}
			if !accept(set) {
				t.Error("WaitForCount(3) must accept three rows")
			}
			if accept(&result.Set{Rows: make([]result.Row, 4)}) {
				t.Error("WaitForCount(3) must reject four rows")
			}
			return set, nil
		},
	}

	svc := &SearchService{index: "hotels", svc: mock, poll: policy}
	if _, err := svc.WaitForCount(context.Background(), matchAll(t), SearchOptions{}, 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSearchService_WaitTimeout(t *testing.T) {
	pollErr := &PollError{Index: "hotels", Attempts: 4, LastRows: 2}
	mock := &mockSearchUC{
		pollFn: func(
			context.Context, string, request.Request, request.Options, searchuc.Policy, searchuc.Predicate,
		) (*result.Set, error) {
			return nil, pollErr
		},
	}
	reg := prometheus.NewRegistry()
	obs, err := newObserver(nil, reg)
	if err != nil {
		t.Fatalf("newObserver: %v", err)
	}

	svc := &SearchService{index: "hotels", svc: mock, obs: obs}
	_, err = svc.WaitUntil(context.Background(), matchAll(t), SearchOptions{}, RowCountAtLeast(3))
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	var pe *PollError
	if !errors.As(err, &pe) || pe.Attempts != 4 {
		t.Fatalf("expected *PollError with 4 attempts, got %v", err)
	}
	got := testutil.ToFloat64(obs.metrics.operations.WithLabelValues("search.wait", "timeout"))
	if got != 1 {
		t.Errorf("timeout counter = %v, want 1", got)
	}
}

// --- DocumentService ---

func TestDocumentService_Write(t *testing.T) {
	var gotSource string
	var gotDocs []domdoc.Document
	mock := &mockDocumentUC{
		writeFn: func(_ context.Context, source string, docs []domdoc.Document) error {
			gotSource, gotDocs = source, docs
			return nil
		},
	}

	svc := &DocumentService{source: "travel", svc: mock}
	err := svc.Write(context.Background(), []Document{
		{ID: "h1", Fields: map[string]any{"name": "Sea Breeze"}},
		{ID: "h2", Fields: map[string]any{"name": "Le Marais"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotSource != "travel" || len(gotDocs) != 2 || gotDocs[1].ID() != "h2" {
		t.Errorf("unexpected write %q %v", gotSource, gotDocs)
	}
}

func TestDocumentService_WriteErrors(t *testing.T) {
	ctx := context.Background()

	noWriter := &DocumentService{source: "travel"}
	if err := noWriter.Write(ctx, []Document{{ID: "h1", Fields: map[string]any{"a": 1}}}); !errors.Is(err, ErrNotSupported) {
		t.Errorf("expected ErrNotSupported, got %v", err)
	}

	mock := &mockDocumentUC{writeFn: func(context.Context, string, []domdoc.Document) error {
		t.Error("invalid documents must not reach the use case")
		return nil
	}}
	svc := &DocumentService{source: "travel", svc: mock}
	if err := svc.Write(ctx, []Document{{ID: "bad id", Fields: map[string]any{"a": 1}}}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

// --- Client ---

func TestClient_VectorQueryFromText(t *testing.T) {
	c := &Client{prober: &mockProber{
		vectorQueryFn: func(_ context.Context, field, text string) (vector.Query, error) {
			if text != "sea view" {
				t.Errorf("text = %q", text)
			}
			return vector.NewQuery(field, []float32{1, 2, 3})
		},
	}}

	q, err := c.VectorQueryFromText(context.Background(), "embedding", "sea view")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Field() != "embedding" || q.Dims() != 3 {
		t.Errorf("unexpected probe %s/%d", q.Field(), q.Dims())
	}

	if _, err := (&Client{}).VectorQueryFromText(context.Background(), "embedding", "x"); !errors.Is(err, ErrNotSupported) {
		t.Errorf("without embedder: expected ErrNotSupported, got %v", err)
	}
}

func TestClient_Health(t *testing.T) {
	c := &Client{healthSvc: &mockHealthUC{checkFn: func(context.Context) healthuc.Report {
		return healthuc.Report{
			Status: healthuc.Degraded,
			Checks: map[string]healthuc.CheckResult{
				healthuc.ComponentStore:     healthuc.CheckOK,
				healthuc.ComponentEmbedding: healthuc.CheckError,
			},
		}
	}}}

	h := c.Health(context.Background())
	if h.Status != "degraded" || h.Checks["embedding"] != "error" || h.Checks["store"] != "ok" {
		t.Errorf("unexpected health %+v", h)
	}
}

func TestEmbedderAdapter_WrapsProviderError(t *testing.T) {
	a := &embedderAdapter{inner: &mockEmbedder{embedFn: func(context.Context, string) (EmbeddingResult, error) {
		return EmbeddingResult{}, errors.New("quota")
	}}}
	if _, err := a.Embed(context.Background(), "x"); !errors.Is(err, ErrEmbeddingProviderError) {
		t.Errorf("expected ErrEmbeddingProviderError, got %v", err)
	}
}

func TestStatusLabel(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{&PollError{}, "timeout"},
		{ErrService, "error"},
	}
	for _, tc := range tests {
		if got := status(tc.err); got != tc.want {
			t.Errorf("status(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestWithTypeKey(t *testing.T) {
	def := NewIndex("places").Params(json.RawMessage(placesParams)).MustBuild()

	got, err := WithTypeKey(def, "run7")
	if err != nil {
		t.Fatalf("WithTypeKey: %v", err)
	}
	var params struct {
		Mapping struct {
			Types map[string]json.RawMessage `json:"types"`
		} `json:"mapping"`
	}
	if err := json.Unmarshal(got.Params, &params); err != nil {
		t.Fatalf("unmarshal params: %v", err)
	}
	if _, ok := params.Mapping.Types["run7"]; !ok || len(params.Mapping.Types) != 1 {
		t.Errorf("types = %v, want only run7", params.Mapping.Types)
	}
	if !strings.Contains(string(def.Params), `"place"`) {
		t.Error("template must not be modified")
	}
}

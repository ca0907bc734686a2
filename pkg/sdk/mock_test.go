package vecsearch

import (
	"context"

	domdoc "github.com/kailas-cloud/vecsearch/internal/domain/document"
	domindex "github.com/kailas-cloud/vecsearch/internal/domain/index"
	"github.com/kailas-cloud/vecsearch/internal/domain/search/request"
	"github.com/kailas-cloud/vecsearch/internal/domain/search/result"
	"github.com/kailas-cloud/vecsearch/internal/domain/search/vector"
	healthuc "github.com/kailas-cloud/vecsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/vecsearch/internal/usecase/search"
)

// --- indexUseCase mock ---

type mockIndexUC struct {
	upsertFn func(ctx context.Context, def domindex.Definition) error
	getFn    func(ctx context.Context, name string) (domindex.Definition, error)
	listFn   func(ctx context.Context) ([]domindex.Definition, error)
	dropFn   func(ctx context.Context, name string) error
}

func (m *mockIndexUC) Upsert(ctx context.Context, def domindex.Definition) error {
	return m.upsertFn(ctx, def)
}

func (m *mockIndexUC) Get(ctx context.Context, name string) (domindex.Definition, error) {
	return m.getFn(ctx, name)
}

func (m *mockIndexUC) List(ctx context.Context) ([]domindex.Definition, error) {
	return m.listFn(ctx)
}

func (m *mockIndexUC) Drop(ctx context.Context, name string) error {
	return m.dropFn(ctx, name)
}

// --- searchUseCase mock ---

type mockSearchUC struct {
	executeFn func(ctx context.Context, index string, req request.Request, opts request.Options) (*result.Set, error)
	pollFn    func(
		ctx context.Context, index string, req request.Request, opts request.Options,
		policy searchuc.Policy, accept searchuc.Predicate,
	) (*result.Set, error)
}

func (m *mockSearchUC) Execute(
	ctx context.Context, index string, req request.Request, opts request.Options,
) (*result.Set, error) {
	return m.executeFn(ctx, index, req, opts)
}

func (m *mockSearchUC) Poll(
	ctx context.Context, index string, req request.Request, opts request.Options,
	policy searchuc.Policy, accept searchuc.Predicate,
) (*result.Set, error) {
	return m.pollFn(ctx, index, req, opts, policy, accept)
}

// --- documentUseCase mock ---

type mockDocumentUC struct {
	writeFn func(ctx context.Context, source string, docs []domdoc.Document) error
}

func (m *mockDocumentUC) Write(ctx context.Context, source string, docs []domdoc.Document) error {
	return m.writeFn(ctx, source, docs)
}

// --- prober mock ---

type mockProber struct {
	vectorQueryFn func(ctx context.Context, field, text string) (vector.Query, error)
}

func (m *mockProber) VectorQuery(ctx context.Context, field, text string) (vector.Query, error) {
	return m.vectorQueryFn(ctx, field, text)
}

// --- healthUseCase mock ---

type mockHealthUC struct {
	checkFn func(ctx context.Context) healthuc.Report
}

func (m *mockHealthUC) Check(ctx context.Context) healthuc.Report {
	return m.checkFn(ctx)
}

// --- Embedder mock ---

type mockEmbedder struct {
	embedFn func(ctx context.Context, text string) (EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	return m.embedFn(ctx, text)
}

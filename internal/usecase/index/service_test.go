package index

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/kailas-cloud/vecsearch/internal/domain"
	domindex "github.com/kailas-cloud/vecsearch/internal/domain/index"
)

// --- Mocks ---

type mockRepo struct {
	upserted   []domindex.Definition
	getResult  domindex.Definition
	listResult []domindex.Definition
	upsertErr  error
	getErr     error
	listErr    error
	dropErr    error
	calls      int
}

func (m *mockRepo) Upsert(_ context.Context, def domindex.Definition) error {
	m.calls++
	m.upserted = append(m.upserted, def)
	return m.upsertErr
}

func (m *mockRepo) Get(_ context.Context, _ string) (domindex.Definition, error) {
	m.calls++
	return m.getResult, m.getErr
}

func (m *mockRepo) List(_ context.Context) ([]domindex.Definition, error) {
	m.calls++
	return m.listResult, m.listErr
}

func (m *mockRepo) Drop(_ context.Context, _ string) error {
	m.calls++
	return m.dropErr
}

// --- Tests ---

func TestUpsert_FillsDefaults(t *testing.T) {
	repo := &mockRepo{}
	svc := New(repo)

	def := domindex.Definition{Name: "hotels", SourceName: "travel", Params: json.RawMessage(`{}`)}
	if err := svc.Upsert(context.Background(), def); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.upserted) != 1 {
		t.Fatalf("expected one upsert, got %d", len(repo.upserted))
	}
	got := repo.upserted[0]
	if got.Type != domindex.TypeFulltext || got.SourceType != domindex.DefaultSourceTyp {
		t.Errorf("expected defaults, got %+v", got)
	}
}

func TestUpsert_InvalidNeverReachesBackend(t *testing.T) {
	tests := []struct {
		name string
		def  domindex.Definition
	}{
		{"empty name", domindex.Definition{}},
		{"bad name", domindex.Definition{Name: "1hotels"}},
		{"bad params", domindex.Definition{Name: "hotels", Params: json.RawMessage(`{`)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockRepo{}
			err := New(repo).Upsert(context.Background(), tt.def)
			if !errors.Is(err, domain.ErrInvalidArgument) {
				t.Fatalf("expected ErrInvalidArgument, got %v", err)
			}
			if repo.calls != 0 {
				t.Errorf("backend called %d times", repo.calls)
			}
		})
	}
}

func TestUpsert_PropagatesServiceError(t *testing.T) {
	repo := &mockRepo{upsertErr: domain.NewServiceError(500, errors.New("boom"))}
	err := New(repo).Upsert(context.Background(), domindex.Definition{Name: "hotels"})
	if !errors.Is(err, domain.ErrService) {
		t.Fatalf("expected ErrService, got %v", err)
	}
}

func TestGet(t *testing.T) {
	repo := &mockRepo{getResult: domindex.Definition{Name: "hotels", UUID: "u1"}}
	def, err := New(repo).Get(context.Background(), "hotels")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if def.UUID != "u1" {
		t.Errorf("unexpected definition %+v", def)
	}
}

func TestGet_NotFound(t *testing.T) {
	repo := &mockRepo{getErr: domain.ErrIndexNotFound}
	if _, err := New(repo).Get(context.Background(), "missing"); !errors.Is(err, domain.ErrIndexNotFound) {
		t.Fatalf("expected ErrIndexNotFound, got %v", err)
	}
}

func TestGet_InvalidName(t *testing.T) {
	repo := &mockRepo{}
	if _, err := New(repo).Get(context.Background(), ""); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if repo.calls != 0 {
		t.Error("backend must not be called")
	}
}

func TestList(t *testing.T) {
	repo := &mockRepo{listResult: []domindex.Definition{{Name: "a"}, {Name: "b"}}}
	defs, err := New(repo).List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(defs) != 2 {
		t.Errorf("expected 2 definitions, got %d", len(defs))
	}
}

func TestList_Error(t *testing.T) {
	repo := &mockRepo{listErr: domain.NewServiceError(0, errors.New("refused"))}
	if _, err := New(repo).List(context.Background()); !errors.Is(err, domain.ErrService) {
		t.Fatalf("expected ErrService, got %v", err)
	}
}

func TestDrop(t *testing.T) {
	repo := &mockRepo{}
	if err := New(repo).Drop(context.Background(), "hotels"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	repo.dropErr = domain.ErrIndexNotFound
	if err := New(repo).Drop(context.Background(), "hotels"); !errors.Is(err, domain.ErrIndexNotFound) {
		t.Fatalf("expected ErrIndexNotFound on second drop, got %v", err)
	}
}

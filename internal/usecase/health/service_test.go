package health

import (
	"context"
	"errors"
	"testing"
)

// --- Mocks ---

type mockStorePinger struct {
	err error
}

func (m *mockStorePinger) Ping(_ context.Context) error { return m.err }

type mockEmbeddingChecker struct {
	err error
}

func (m *mockEmbeddingChecker) HealthCheck(_ context.Context) error { return m.err }

// --- Tests ---

func TestCheck(t *testing.T) {
	down := errors.New("conn refused")
	tests := []struct {
		name          string
		store         error
		embedding     EmbeddingChecker
		wantStatus    Status
		wantStore     CheckResult
		wantEmbedding CheckResult
	}{
		{"all healthy", nil, &mockEmbeddingChecker{}, Healthy, CheckOK, CheckOK},
		{"store down", down, &mockEmbeddingChecker{}, Unhealthy, CheckError, CheckOK},
		{"embedding down", nil, &mockEmbeddingChecker{err: down}, Degraded, CheckOK, CheckError},
		{"both down", down, &mockEmbeddingChecker{err: down}, Unhealthy, CheckError, CheckError},
		{"no embedder", nil, nil, Healthy, CheckOK, ""},
		{"no embedder, store down", down, nil, Unhealthy, CheckError, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := New(&mockStorePinger{err: tc.store}, tc.embedding, nil).Check(context.Background())

			if r.Status != tc.wantStatus {
				t.Errorf("expected %q, got %q", tc.wantStatus, r.Status)
			}
			if r.Checks[ComponentStore] != tc.wantStore {
				t.Errorf("expected store %q, got %q", tc.wantStore, r.Checks[ComponentStore])
			}
			got, ok := r.Checks[ComponentEmbedding]
			if tc.wantEmbedding == "" {
				if ok {
					t.Error("embedding check should be absent when embedding is nil")
				}
				return
			}
			if got != tc.wantEmbedding {
				t.Errorf("expected embedding %q, got %q", tc.wantEmbedding, got)
			}
		})
	}
}

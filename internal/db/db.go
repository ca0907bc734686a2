package db

import (
	"context"
	"encoding/json"
	"time"
)

// Store is the main database facade combining all sub-interfaces.
//
//nolint:interfacebloat // facade by design -- consumers use narrow sub-interfaces (ISP)
type Store interface {
	Pinger
	IndexManager
	Searcher
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks backend connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// IndexSpec is the backend view of an index definition. Params stay opaque
// until a backend decodes the mapping it understands.
type IndexSpec struct {
	Name       string          `json:"name"`
	Type       string          `json:"type"`
	SourceType string          `json:"sourceType,omitempty"`
	SourceName string          `json:"sourceName,omitempty"`
	UUID       string          `json:"uuid,omitempty"`
	Params     json.RawMessage `json:"params,omitempty"`
}

// IndexManager provides index lifecycle operations.
type IndexManager interface {
	UpsertIndex(ctx context.Context, spec *IndexSpec) error
	GetIndex(ctx context.Context, name string) (*IndexSpec, error)
	ListIndexes(ctx context.Context) ([]IndexSpec, error)
	DropIndex(ctx context.Context, name string) error
}

// Searcher executes composed queries.
type Searcher interface {
	Search(ctx context.Context, q *Query) (*SearchResult, error)
}

// Document is a source document written for indexing.
type Document struct {
	ID     string
	Fields map[string]any
}

// DocumentWriter is implemented by backends that own their document source.
type DocumentWriter interface {
	WriteDocuments(ctx context.Context, source string, docs []Document) error
}

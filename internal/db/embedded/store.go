// Package embedded is an in-process search backend built on bleve. Documents
// written to a source become searchable only after a configurable lag, which
// reproduces the eventual-consistency window of a remote search service.
package embedded

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecsearch/internal/db"
)

const jobQueueSize = 1024

var errClosed = errors.New("embedded store is closed")

// Config configures the embedded store.
type Config struct {
	// Lag delays every indexing job. Zero applies writes as soon as the
	// background worker picks them up.
	Lag    time.Duration
	Logger *zap.Logger
}

// job is a batch of documents due for indexing into one index.
type job struct {
	due  time.Time
	idx  *memIndex
	docs []db.Document
}

// Store keeps index definitions, their bleve indexes and the document sources
// they are fed from.
type Store struct {
	lag    time.Duration
	logger *zap.Logger

	mu      sync.RWMutex
	indexes map[string]*memIndex
	sources map[string]map[string]db.Document

	jobs      chan job
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewStore creates the store and starts its indexing worker.
func NewStore(cfg Config) *Store {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		lag:     max(cfg.Lag, 0),
		logger:  logger,
		indexes: make(map[string]*memIndex),
		sources: make(map[string]map[string]db.Document),
		jobs:    make(chan job, jobQueueSize),
		done:    make(chan struct{}),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

// Ping fails only once the store is closed.
func (s *Store) Ping(_ context.Context) error {
	select {
	case <-s.done:
		return errClosed
	default:
		return nil
	}
}

// WaitForReady returns immediately: the store is ready once constructed.
func (s *Store) WaitForReady(ctx context.Context, _ time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.Ping(ctx)
}

// Close stops the worker and closes every bleve index. Pending jobs are dropped.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.wg.Wait()

		s.mu.Lock()
		defer s.mu.Unlock()
		for name, idx := range s.indexes {
			if err := idx.close(); err != nil {
				s.logger.Warn("close index", zap.String("index", name), zap.Error(err))
			}
		}
		s.indexes = make(map[string]*memIndex)
	})
}

// UpsertIndex replaces any index with the same name and schedules a backfill
// from the index source.
func (s *Store) UpsertIndex(ctx context.Context, spec *db.IndexSpec) error {
	if spec == nil || spec.Name == "" {
		return fmt.Errorf("index name is required")
	}
	stored := *spec
	stored.UUID = uuid.NewString()

	idx, err := newMemIndex(stored)
	if err != nil {
		return &db.Error{Op: db.OpBleveOpen, Err: err}
	}

	s.mu.Lock()
	old := s.indexes[spec.Name]
	s.indexes[spec.Name] = idx
	backfill := s.sourceDocs(sourceOf(&stored))
	s.mu.Unlock()

	if old != nil {
		if err := old.close(); err != nil {
			s.logger.Warn("close replaced index", zap.String("index", spec.Name), zap.Error(err))
		}
	}
	if len(backfill) > 0 {
		return s.enqueue(ctx, idx, backfill)
	}
	return nil
}

// GetIndex returns a copy of the stored definition.
func (s *Store) GetIndex(_ context.Context, name string) (*db.IndexSpec, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.indexes[name]
	if !ok {
		return nil, db.ErrIndexNotFound
	}
	spec := idx.spec
	return &spec, nil
}

// ListIndexes returns all definitions sorted by name.
func (s *Store) ListIndexes(_ context.Context) ([]db.IndexSpec, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]db.IndexSpec, 0, len(s.indexes))
	for _, idx := range s.indexes {
		out = append(out, idx.spec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// DropIndex removes the index. Source documents are kept.
func (s *Store) DropIndex(_ context.Context, name string) error {
	s.mu.Lock()
	idx, ok := s.indexes[name]
	delete(s.indexes, name)
	s.mu.Unlock()
	if !ok {
		return db.ErrIndexNotFound
	}
	if err := idx.close(); err != nil {
		return &db.Error{Op: db.OpBleveOpen, Err: err}
	}
	return nil
}

// WriteDocuments stores documents in the source immediately and schedules
// them for indexing into every index fed by that source.
func (s *Store) WriteDocuments(ctx context.Context, source string, docs []db.Document) error {
	if len(docs) == 0 {
		return nil
	}
	if source == "" {
		return fmt.Errorf("source is required")
	}
	for i, doc := range docs {
		if doc.ID == "" {
			return fmt.Errorf("document %d: id is required", i)
		}
	}

	s.mu.Lock()
	src, ok := s.sources[source]
	if !ok {
		src = make(map[string]db.Document)
		s.sources[source] = src
	}
	for _, doc := range docs {
		src[doc.ID] = doc
	}
	var targets []*memIndex
	for _, idx := range s.indexes {
		if sourceOf(&idx.spec) == source {
			targets = append(targets, idx)
		}
	}
	s.mu.Unlock()

	for _, idx := range targets {
		if err := s.enqueue(ctx, idx, docs); err != nil {
			return err
		}
	}
	return nil
}

// Search runs the query against the named index.
func (s *Store) Search(ctx context.Context, q *db.Query) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	s.mu.RLock()
	idx, ok := s.indexes[q.IndexName]
	s.mu.RUnlock()
	if !ok {
		return nil, db.ErrIndexNotFound
	}

	start := time.Now()
	res, err := idx.search(ctx, q)
	if err != nil {
		return nil, &db.Error{Op: db.OpBleveSearch, Err: err}
	}
	res.Took = time.Since(start)
	return res, nil
}

func (s *Store) enqueue(ctx context.Context, idx *memIndex, docs []db.Document) error {
	j := job{due: time.Now().Add(s.lag), idx: idx, docs: docs}
	select {
	case s.jobs <- j:
		return nil
	case <-s.done:
		return errClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run applies jobs in arrival order once each is due. Lag is constant, so
// due times never decrease along the queue.
func (s *Store) run() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case j := <-s.jobs:
			if wait := time.Until(j.due); wait > 0 {
				t := time.NewTimer(wait)
				select {
				case <-s.done:
					t.Stop()
					return
				case <-t.C:
				}
			}
			n, err := j.idx.apply(j.docs)
			if err != nil {
				s.logger.Warn("apply documents",
					zap.String("index", j.idx.spec.Name), zap.Int("indexed", n), zap.Int("docs", len(j.docs)),
					zap.Error(err))
				continue
			}
			s.logger.Debug("documents indexed",
				zap.String("index", j.idx.spec.Name), zap.Int("indexed", n), zap.Int("docs", len(j.docs)))
		}
	}
}

// sourceDocs snapshots a source; the caller holds s.mu.
func (s *Store) sourceDocs(source string) []db.Document {
	src := s.sources[source]
	if len(src) == 0 {
		return nil
	}
	docs := make([]db.Document, 0, len(src))
	for _, d := range src {
		docs = append(docs, d)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs
}

// sourceOf is the source an index is fed from; an index without a source
// name reads from the source named after itself.
func sourceOf(spec *db.IndexSpec) string {
	if spec.SourceName != "" {
		return spec.SourceName
	}
	return spec.Name
}

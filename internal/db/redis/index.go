package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/redis/rueidis"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecsearch/internal/db"
)

const metaKeyPrefix = "vecsearch:index:"

func metaKey(name string) string { return metaKeyPrefix + name }

// UpsertIndex replaces the FT index and its stored definition.
// FT.CREATE cannot alter a schema in place, so an existing index is dropped
// first. Documents under the prefix are kept and re-indexed by the server.
//
// Replacement is not atomic: when FT.CREATE rejects the new definition the
// previous index is already gone and the name is left unknown. A failure to
// store the definition drops the freshly created index again.
func (s *Store) UpsertIndex(ctx context.Context, spec *db.IndexSpec) error {
	ft, meta, err := translateSpec(spec, s.flavor)
	if err != nil {
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	args, err := buildCreateArgs(ft)
	if err != nil {
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}

	drop := s.b().Arbitrary("FT.DROPINDEX").Args(spec.Name).Build()
	if err := s.do(ctx, drop).Error(); err != nil && !isUnknownIndex(err) {
		return &db.Error{Op: db.OpDropIndex, Err: err}
	}
	s.forget(spec.Name)

	create := s.b().Arbitrary("FT.CREATE").Args(args...).Build()
	if err := s.do(ctx, create).Error(); err != nil {
		// previous definition is gone with the dropped index
		s.cleanup(ctx, spec.Name, db.OpDel, s.b().Del().Key(metaKey(spec.Name)).Build())
		if isRedisErr(err, "index already exists") {
			return db.ErrIndexExists
		}
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}

	stored := *spec
	stored.UUID = uuid.NewString()
	cmd := s.b().Hset().Key(metaKey(spec.Name)).FieldValue().
		FieldValue("name", stored.Name).
		FieldValue("type", stored.Type).
		FieldValue("sourceType", stored.SourceType).
		FieldValue("sourceName", stored.SourceName).
		FieldValue("uuid", stored.UUID).
		FieldValue("params", string(stored.Params)).
		Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		s.cleanup(ctx, spec.Name, db.OpDropIndex, s.b().Arbitrary("FT.DROPINDEX").Args(spec.Name).Build())
		return &db.Error{Op: db.OpHSet, Err: err}
	}

	meta.spec = stored
	s.remember(meta)
	return nil
}

// GetIndex returns the stored definition of a single index.
func (s *Store) GetIndex(ctx context.Context, name string) (*db.IndexSpec, error) {
	cmd := s.b().Hgetall().Key(metaKey(name)).Build()
	m, err := s.do(ctx, cmd).AsStrMap()
	if err != nil {
		return nil, &db.Error{Op: db.OpHGetAll, Err: err}
	}
	spec, ok := specFromHash(m)
	if !ok {
		return nil, db.ErrIndexNotFound
	}
	return spec, nil
}

// ListIndexes returns every index that has a stored definition.
// FT indexes created outside this store are skipped.
func (s *Store) ListIndexes(ctx context.Context) ([]db.IndexSpec, error) {
	cmd := s.b().Arbitrary("FT._LIST").Build()
	names, err := s.do(ctx, cmd).AsStrSlice()
	if err != nil {
		return nil, &db.Error{Op: db.OpList, Err: err}
	}
	if len(names) == 0 {
		return []db.IndexSpec{}, nil
	}
	sort.Strings(names)

	cmds := make([]rueidis.Completed, len(names))
	for i, n := range names {
		cmds[i] = s.b().Hgetall().Key(metaKey(n)).Build()
	}

	out := make([]db.IndexSpec, 0, len(names))
	for i, res := range s.client.DoMulti(ctx, cmds...) {
		m, err := res.AsStrMap()
		if err != nil {
			return nil, &db.Error{Op: db.OpHGetAll, Err: fmt.Errorf("index %s: %w", names[i], err)}
		}
		if spec, ok := specFromHash(m); ok {
			out = append(out, *spec)
		}
	}
	return out, nil
}

// DropIndex removes the FT index and its stored definition. Documents stay.
func (s *Store) DropIndex(ctx context.Context, name string) error {
	s.forget(name)

	cmd := s.b().Arbitrary("FT.DROPINDEX").Args(name).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isUnknownIndex(err) {
			s.cleanup(ctx, name, db.OpDel, s.b().Del().Key(metaKey(name)).Build())
			return db.ErrIndexNotFound
		}
		return &db.Error{Op: db.OpDropIndex, Err: err}
	}

	if err := s.do(ctx, s.b().Del().Key(metaKey(name)).Build()).Error(); err != nil {
		return &db.Error{Op: db.OpDel, Err: err}
	}
	return nil
}

// cleanup runs a command that undoes a partial step and logs its failure.
func (s *Store) cleanup(ctx context.Context, name, op string, cmd rueidis.Completed) {
	if err := s.do(ctx, cmd).Error(); err != nil {
		s.logger.Warn("index cleanup failed",
			zap.String("index", name), zap.String("op", op), zap.Error(err))
	}
}

// lookupMeta returns the cached translation, loading the stored definition on a miss.
func (s *Store) lookupMeta(ctx context.Context, name string) (*indexMeta, error) {
	s.mu.RLock()
	meta, ok := s.schemas[name]
	s.mu.RUnlock()
	if ok {
		return meta, nil
	}

	spec, err := s.GetIndex(ctx, name)
	if err != nil {
		return nil, err
	}
	_, meta, err = translateSpec(spec, s.flavor)
	if err != nil {
		return nil, &db.Error{Op: db.OpIndexInfo, Err: err}
	}
	s.remember(meta)
	return meta, nil
}

func (s *Store) remember(meta *indexMeta) {
	s.mu.Lock()
	s.schemas[meta.spec.Name] = meta
	s.mu.Unlock()
}

func (s *Store) forget(name string) {
	s.mu.Lock()
	delete(s.schemas, name)
	s.mu.Unlock()
}

func specFromHash(m map[string]string) (*db.IndexSpec, bool) {
	if len(m) == 0 || m["name"] == "" {
		return nil, false
	}
	spec := &db.IndexSpec{
		Name:       m["name"],
		Type:       m["type"],
		SourceType: m["sourceType"],
		SourceName: m["sourceName"],
		UUID:       m["uuid"],
	}
	if p := m["params"]; p != "" && json.Valid([]byte(p)) {
		spec.Params = json.RawMessage(p)
	}
	return spec, true
}

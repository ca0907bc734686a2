package fts

import (
	"context"
	"net/http"
	"net/url"
	"sort"

	"github.com/kailas-cloud/vecsearch/internal/db"
)

type putIndexReply struct {
	Status string `json:"status"`
	UUID   string `json:"uuid"`
}

type getIndexReply struct {
	Status   string        `json:"status"`
	IndexDef *db.IndexSpec `json:"indexDef"`
}

type listIndexesReply struct {
	Status    string `json:"status"`
	IndexDefs *struct {
		IndexDefs map[string]db.IndexSpec `json:"indexDefs"`
	} `json:"indexDefs"`
}

// UpsertIndex creates or replaces an index definition.
func (s *Store) UpsertIndex(ctx context.Context, spec *db.IndexSpec) error {
	var reply putIndexReply
	path := "/api/index/" + url.PathEscape(spec.Name)
	if err := s.call(ctx, db.OpPutIndex, http.MethodPut, path, spec, &reply); err != nil {
		return err
	}
	return statusOK(db.OpPutIndex, reply.Status)
}

// GetIndex returns a single index definition.
func (s *Store) GetIndex(ctx context.Context, name string) (*db.IndexSpec, error) {
	var reply getIndexReply
	if err := s.call(ctx, db.OpGetIndex, http.MethodGet, "/api/index/"+url.PathEscape(name), nil, &reply); err != nil {
		return nil, err
	}
	if err := statusOK(db.OpGetIndex, reply.Status); err != nil {
		return nil, err
	}
	if reply.IndexDef == nil {
		return nil, db.ErrIndexNotFound
	}
	return reply.IndexDef, nil
}

// ListIndexes returns all index definitions sorted by name.
func (s *Store) ListIndexes(ctx context.Context) ([]db.IndexSpec, error) {
	var reply listIndexesReply
	if err := s.call(ctx, db.OpGetIndex, http.MethodGet, "/api/index", nil, &reply); err != nil {
		return nil, err
	}
	if err := statusOK(db.OpGetIndex, reply.Status); err != nil {
		return nil, err
	}

	out := make([]db.IndexSpec, 0)
	if reply.IndexDefs == nil {
		return out, nil
	}
	for name, spec := range reply.IndexDefs.IndexDefs {
		if spec.Name == "" {
			spec.Name = name
		}
		out = append(out, spec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// DropIndex deletes an index definition.
func (s *Store) DropIndex(ctx context.Context, name string) error {
	var reply putIndexReply
	if err := s.call(ctx, db.OpDeleteIndex, http.MethodDelete, "/api/index/"+url.PathEscape(name), nil, &reply); err != nil {
		return err
	}
	return statusOK(db.OpDeleteIndex, reply.Status)
}

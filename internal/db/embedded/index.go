package embedded

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/kailas-cloud/vecsearch/internal/db"
)

var errIndexClosed = errors.New("index closed")

// memIndex is one definition backed by a mem-only bleve index plus the
// vectors bleve does not index.
type memIndex struct {
	spec   db.IndexSpec
	schema *db.FieldSchema
	vecs   map[string]db.MappedField
	index  bleve.Index

	mu      sync.RWMutex
	closed  bool
	vectors map[string]map[string][]float32 // field -> doc id -> vector
}

func newMemIndex(spec db.IndexSpec) (*memIndex, error) {
	schema, err := db.ParseFieldSchema(spec.Params)
	if err != nil {
		return nil, err
	}
	idx, err := bleve.NewMemOnly(buildMapping(schema))
	if err != nil {
		return nil, fmt.Errorf("create index %q: %w", spec.Name, err)
	}
	vecs := schema.VectorFields()
	vectors := make(map[string]map[string][]float32, len(vecs))
	for name := range vecs {
		vectors[name] = make(map[string][]float32)
	}
	return &memIndex{
		spec:    spec,
		schema:  schema,
		vecs:    vecs,
		index:   idx,
		vectors: vectors,
	}, nil
}

// buildMapping renders the parsed schema as a bleve mapping. Vector fields are
// left out: bleve only sees the lexical part of a document.
func buildMapping(schema *db.FieldSchema) *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()
	im.TypeField = schema.TypeField

	if !schema.DefaultEnabled {
		im.DefaultMapping.Enabled = false
	} else if len(schema.Default) > 0 {
		dm := documentMapping(schema.Default)
		dm.Dynamic = schema.Dynamic
		im.DefaultMapping = dm
	}
	for name, fields := range schema.Types {
		dm := documentMapping(fields)
		dm.Dynamic = false
		im.AddDocumentMapping(name, dm)
	}
	return im
}

func documentMapping(fields []db.MappedField) *mapping.DocumentMapping {
	dm := bleve.NewDocumentMapping()
	for _, f := range fields {
		fm := fieldMapping(f)
		if fm == nil {
			continue
		}
		parent, leaf := subMapping(dm, f.Name)
		parent.AddFieldMappingsAt(leaf, fm)
	}
	return dm
}

func fieldMapping(f db.MappedField) *mapping.FieldMapping {
	var fm *mapping.FieldMapping
	switch f.Type {
	case db.FieldText:
		fm = bleve.NewTextFieldMapping()
		fm.Analyzer = f.Analyzer
		fm.IncludeTermVectors = true
	case db.FieldKeyword:
		fm = bleve.NewKeywordFieldMapping()
		fm.IncludeTermVectors = true
	case db.FieldNumber:
		fm = bleve.NewNumericFieldMapping()
	case db.FieldBoolean:
		fm = bleve.NewBooleanFieldMapping()
	default:
		return nil
	}
	fm.Store = f.Store
	return fm
}

// subMapping walks a dotted path, creating nested document mappings, and
// returns the mapping that owns the last segment.
func subMapping(dm *mapping.DocumentMapping, path string) (*mapping.DocumentMapping, string) {
	parts := strings.Split(path, ".")
	cur := dm
	for _, p := range parts[:len(parts)-1] {
		next, ok := cur.Properties[p]
		if !ok {
			next = bleve.NewDocumentMapping()
			cur.AddSubDocumentMapping(p, next)
		}
		cur = next
	}
	return cur, parts[len(parts)-1]
}

// apply indexes the documents this index accepts and returns how many it took.
// A document with a malformed vector is skipped and reported in the returned
// error; the rest of the batch is still indexed. Vectors are committed only
// once the bleve batch has been applied.
func (m *memIndex) apply(docs []db.Document) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, errIndexClosed
	}

	batch := m.index.NewBatch()
	staged := make(map[string]map[string][]float32, len(docs))
	var skipped []error
	for _, doc := range docs {
		docType, _ := lookupPath(doc.Fields, m.schema.TypeField).(string)
		if !m.schema.Accepts(docType) {
			continue
		}
		fields, vecs, err := m.split(doc)
		if err != nil {
			skipped = append(skipped, err)
			continue
		}
		if err := batch.Index(doc.ID, fields); err != nil {
			skipped = append(skipped, &db.Error{Op: db.OpBleveIndex, Err: fmt.Errorf("document %s: %w", doc.ID, err)})
			continue
		}
		staged[doc.ID] = vecs
	}
	if err := m.index.Batch(batch); err != nil {
		return 0, &db.Error{Op: db.OpBleveIndex, Err: err}
	}
	for id, vecs := range staged {
		for name := range m.vecs {
			if vec, ok := vecs[name]; ok {
				m.vectors[name][id] = vec
			} else {
				delete(m.vectors[name], id)
			}
		}
	}
	return len(staged), errors.Join(skipped...)
}

// split separates doc's vector fields from the fields bleve indexes. Vector
// fields missing from doc are absent from the returned map.
func (m *memIndex) split(doc db.Document) (map[string]any, map[string][]float32, error) {
	fields := make(map[string]any, len(doc.Fields))
	for k, v := range doc.Fields {
		fields[k] = v
	}
	vecs := make(map[string][]float32, len(m.vecs))
	for name, f := range m.vecs {
		raw := lookupPath(doc.Fields, name)
		if raw == nil {
			continue
		}
		vec, err := toVector(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("document %s field %s: %w", doc.ID, name, err)
		}
		if len(vec) != f.Dims {
			return nil, nil, fmt.Errorf("document %s field %s: expected %d dims, got %d", doc.ID, name, f.Dims, len(vec))
		}
		vecs[name] = vec
		if !strings.Contains(name, ".") {
			delete(fields, name)
		}
	}
	return fields, vecs, nil
}

func (m *memIndex) close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	return m.index.Close()
}

// lookupPath resolves a dotted path in nested maps.
func lookupPath(fields map[string]any, path string) any {
	if v, ok := fields[path]; ok {
		return v
	}
	cur := fields
	parts := strings.Split(path, ".")
	for i, p := range parts {
		v, ok := cur[p]
		if !ok {
			return nil
		}
		if i == len(parts)-1 {
			return v
		}
		if cur, ok = v.(map[string]any); !ok {
			return nil
		}
	}
	return nil
}

func toVector(raw any) ([]float32, error) {
	var out []float32
	switch v := raw.(type) {
	case []float32:
		out = append(out, v...)
	case []float64:
		out = make([]float32, len(v))
		for i, f := range v {
			out[i] = float32(f)
		}
	case []any:
		out = make([]float32, len(v))
		for i, el := range v {
			switch n := el.(type) {
			case float64:
				out[i] = float32(n)
			case float32:
				out[i] = n
			case int:
				out[i] = float32(n)
			default:
				return nil, fmt.Errorf("element %d is %T, not a number", i, el)
			}
		}
	default:
		return nil, fmt.Errorf("vector must be a numeric array, got %T", raw)
	}
	for i, f := range out {
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			return nil, fmt.Errorf("element %d is not finite", i)
		}
	}
	return out, nil
}

package db

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Field types recognised in index mappings.
const (
	FieldText    = "text"
	FieldKeyword = "keyword"
	FieldNumber  = "number"
	FieldBoolean = "boolean"
	FieldVector  = "vector"
)

// Vector similarity metrics recognised in index mappings.
const (
	SimilarityDotProduct = "dot_product"
	SimilarityL2         = "l2_norm"
	SimilarityCosine     = "cosine"
)

// DefaultTypeField is the document property that selects a type mapping.
const DefaultTypeField = "type"

// MappedField is one indexed field extracted from params.mapping.
type MappedField struct {
	Name       string
	Type       string
	Analyzer   string
	Store      bool
	Dims       int
	Similarity string
}

// FieldSchema is the subset of an index mapping that backends without a
// native mapping language need: which document types are indexed and how.
type FieldSchema struct {
	TypeField      string
	Types          map[string][]MappedField
	Default        []MappedField
	DefaultEnabled bool
	Dynamic        bool
}

// Accepts reports whether a document with the given type value is indexed.
func (s *FieldSchema) Accepts(docType string) bool {
	if _, ok := s.Types[docType]; ok {
		return true
	}
	return s.DefaultEnabled
}

// TypeNames returns the mapped type names sorted.
func (s *FieldSchema) TypeNames() []string {
	names := make([]string, 0, len(s.Types))
	for n := range s.Types {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Fields returns every mapped field across types, deduplicated by name.
func (s *FieldSchema) Fields() []MappedField {
	seen := make(map[string]bool)
	var out []MappedField
	add := func(fs []MappedField) {
		for _, f := range fs {
			if seen[f.Name] {
				continue
			}
			seen[f.Name] = true
			out = append(out, f)
		}
	}
	add(s.Default)
	for _, n := range s.TypeNames() {
		add(s.Types[n])
	}
	return out
}

// VectorFields returns the vector fields keyed by name.
func (s *FieldSchema) VectorFields() map[string]MappedField {
	out := make(map[string]MappedField)
	for _, f := range s.Fields() {
		if f.Type == FieldVector {
			out[f.Name] = f
		}
	}
	return out
}

type rawParams struct {
	DocConfig struct {
		Mode      string `json:"mode"`
		TypeField string `json:"type_field"`
	} `json:"doc_config"`
	Mapping *struct {
		DefaultMapping *rawDocMapping           `json:"default_mapping"`
		Types          map[string]rawDocMapping `json:"types"`
	} `json:"mapping"`
}

type rawDocMapping struct {
	Enabled    *bool                    `json:"enabled"`
	Dynamic    *bool                    `json:"dynamic"`
	Properties map[string]rawDocMapping `json:"properties"`
	Fields     []rawFieldMapping        `json:"fields"`
}

type rawFieldMapping struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Analyzer   string `json:"analyzer"`
	Store      bool   `json:"store"`
	Dims       int    `json:"dims"`
	Similarity string `json:"similarity"`
}

func (m *rawDocMapping) enabled() bool { return m.Enabled == nil || *m.Enabled }

// ParseFieldSchema extracts field definitions from an opaque params blob.
// Nested properties are flattened with dotted paths.
func ParseFieldSchema(params json.RawMessage) (*FieldSchema, error) {
	schema := &FieldSchema{TypeField: DefaultTypeField, Types: make(map[string][]MappedField)}
	if len(params) == 0 {
		schema.Dynamic = true
		schema.DefaultEnabled = true
		return schema, nil
	}

	var raw rawParams
	if err := json.Unmarshal(params, &raw); err != nil {
		return nil, fmt.Errorf("decode params: %w", err)
	}
	if raw.DocConfig.TypeField != "" {
		schema.TypeField = raw.DocConfig.TypeField
	}
	if raw.Mapping == nil {
		schema.Dynamic = true
		schema.DefaultEnabled = true
		return schema, nil
	}

	dm := raw.Mapping.DefaultMapping
	if dm == nil {
		schema.Dynamic = true
		schema.DefaultEnabled = true
	}
	if dm != nil && dm.enabled() {
		schema.DefaultEnabled = true
		fields, err := collectFields("", dm)
		if err != nil {
			return nil, err
		}
		schema.Default = fields
		schema.Dynamic = dm.Dynamic == nil || *dm.Dynamic
	}
	for name, tm := range raw.Mapping.Types {
		if !tm.enabled() {
			continue
		}
		fields, err := collectFields("", &tm)
		if err != nil {
			return nil, fmt.Errorf("type %q: %w", name, err)
		}
		schema.Types[name] = fields
	}
	return schema, nil
}

func collectFields(prefix string, m *rawDocMapping) ([]MappedField, error) {
	var out []MappedField
	props := make([]string, 0, len(m.Properties))
	for p := range m.Properties {
		props = append(props, p)
	}
	sort.Strings(props)

	for _, p := range props {
		sub := m.Properties[p]
		if !sub.enabled() {
			continue
		}
		path := p
		if prefix != "" {
			path = prefix + "." + p
		}
		for _, f := range sub.Fields {
			name := f.Name
			if name == "" {
				name = p
			}
			if prefix != "" {
				name = prefix + "." + name
			}
			typ := f.Type
			if typ == "" {
				typ = FieldText
			}
			if typ == FieldVector && f.Dims <= 0 {
				return nil, fmt.Errorf("vector field %q requires positive dims", name)
			}
			sim := f.Similarity
			if typ == FieldVector && sim == "" {
				sim = SimilarityL2
			}
			out = append(out, MappedField{
				Name:       name,
				Type:       typ,
				Analyzer:   f.Analyzer,
				Store:      f.Store,
				Dims:       f.Dims,
				Similarity: sim,
			})
		}
		nested, err := collectFields(path, &sub)
		if err != nil {
			return nil, err
		}
		out = append(out, nested...)
	}
	return out, nil
}

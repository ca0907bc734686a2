package redis

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/vecsearch/internal/db"
)

// distanceMetric used by FT.SEARCH vector similarity queries.
type distanceMetric string

const (
	distanceL2     distanceMetric = "L2"
	distanceIP     distanceMetric = "IP"
	distanceCosine distanceMetric = "COSINE"
)

// vectorAlgorithm selects the indexing algorithm for vector fields in FT.CREATE.
type vectorAlgorithm string

const (
	vectorHNSW vectorAlgorithm = "HNSW"
	vectorFlat vectorAlgorithm = "FLAT"
)

// fieldType enumerates supported FT index field types.
type fieldType int

const (
	fieldNumeric fieldType = iota
	fieldTag
	fieldText
	fieldVector
)

// ftField describes a single field in an FT index schema.
type ftField struct {
	Name string
	Type fieldType

	// VECTOR options
	VectorAlgo     vectorAlgorithm
	VectorDim      int
	VectorDistance distanceMetric
	VectorM        int // HNSW M parameter: max edges per node
}

// ftIndex is a complete FT.CREATE definition.
type ftIndex struct {
	Name     string
	Prefixes []string
	Filter   string
	Fields   []ftField
}

// indexMeta is the cached translation of a stored index definition.
type indexMeta struct {
	spec      db.IndexSpec
	prefix    string
	typeField string
	fields    map[string]db.MappedField
}

func (m *indexMeta) fieldType(name string) string {
	if f, ok := m.fields[name]; ok {
		return f.Type
	}
	return ""
}

func (m *indexMeta) metric(field string) distanceMetric {
	return metricFor(m.fields[field].Similarity)
}

// keyPrefix is where documents for a source live: "{source}:".
func keyPrefix(spec *db.IndexSpec) string {
	src := spec.SourceName
	if src == "" {
		src = spec.Name
	}
	return src + ":"
}

func metricFor(similarity string) distanceMetric {
	switch similarity {
	case db.SimilarityDotProduct:
		return distanceIP
	case db.SimilarityCosine:
		return distanceCosine
	default:
		return distanceL2
	}
}

// translateSpec derives the FT.CREATE schema from the opaque mapping.
func translateSpec(spec *db.IndexSpec, flavor Flavor) (*ftIndex, *indexMeta, error) {
	schema, err := db.ParseFieldSchema(spec.Params)
	if err != nil {
		return nil, nil, err
	}

	meta := &indexMeta{
		spec:      *spec,
		prefix:    keyPrefix(spec),
		typeField: schema.TypeField,
		fields:    make(map[string]db.MappedField),
	}
	idx := &ftIndex{Name: spec.Name, Prefixes: []string{meta.prefix}}

	for _, f := range schema.Fields() {
		ff := ftField{Name: f.Name}
		switch f.Type {
		case db.FieldText:
			ff.Type = fieldText
			if flavor == FlavorValkey {
				ff.Type = fieldTag
			}
		case db.FieldKeyword, db.FieldBoolean:
			ff.Type = fieldTag
		case db.FieldNumber:
			ff.Type = fieldNumeric
		case db.FieldVector:
			ff.Type = fieldVector
			ff.VectorAlgo = vectorHNSW
			ff.VectorDim = f.Dims
			ff.VectorDistance = metricFor(f.Similarity)
		default:
			return nil, nil, fmt.Errorf("%w: field %q has type %q", db.ErrNotSupported, f.Name, f.Type)
		}
		if ff.Type == fieldTag && f.Type == db.FieldText {
			f.Type = db.FieldKeyword
		}
		meta.fields[f.Name] = f
		idx.Fields = append(idx.Fields, ff)
	}

	types := schema.TypeNames()
	if len(types) > 0 {
		if _, ok := meta.fields[schema.TypeField]; !ok {
			idx.Fields = append(idx.Fields, ftField{Name: schema.TypeField, Type: fieldTag})
			meta.fields[schema.TypeField] = db.MappedField{Name: schema.TypeField, Type: db.FieldKeyword}
		}
		if flavor == FlavorRedis {
			conds := make([]string, len(types))
			for i, t := range types {
				conds[i] = fmt.Sprintf("@%s==%q", schema.TypeField, t)
			}
			idx.Filter = strings.Join(conds, " || ")
		}
	}
	if len(idx.Fields) == 0 {
		return nil, nil, fmt.Errorf("%w: index mapping declares no fields", db.ErrNotSupported)
	}
	return idx, meta, nil
}

func buildCreateArgs(idx *ftIndex) ([]string, error) {
	if idx.Name == "" {
		return nil, errors.New("index name is required")
	}
	if len(idx.Fields) == 0 {
		return nil, errors.New("at least one field is required")
	}

	args := []string{idx.Name, "ON", "HASH"}

	if len(idx.Prefixes) > 0 {
		args = append(args, "PREFIX", strconv.Itoa(len(idx.Prefixes)))
		args = append(args, idx.Prefixes...)
	}
	if idx.Filter != "" {
		args = append(args, "FILTER", idx.Filter)
	}

	args = append(args, "SCHEMA")

	for i := range idx.Fields {
		fieldArgs, err := buildFieldArgs(&idx.Fields[i])
		if err != nil {
			return nil, err
		}
		args = append(args, fieldArgs...)
	}

	return args, nil
}

func buildFieldArgs(f *ftField) ([]string, error) {
	if f.Name == "" {
		return nil, errors.New("field name is required")
	}

	args := []string{f.Name}

	switch f.Type {
	case fieldNumeric:
		args = append(args, "NUMERIC")
	case fieldText:
		args = append(args, "TEXT")
	case fieldTag:
		args = append(args, "TAG")
	case fieldVector:
		vectorArgs, err := buildVectorFieldArgs(f)
		if err != nil {
			return nil, err
		}
		args = append(args, vectorArgs...)
	default:
		return nil, errors.New("unknown field type")
	}

	return args, nil
}

func buildVectorFieldArgs(f *ftField) ([]string, error) {
	if f.VectorDim <= 0 {
		return nil, errors.New("vector DIM must be positive")
	}

	algo := f.VectorAlgo
	if algo == "" {
		algo = vectorFlat
	}
	distance := f.VectorDistance
	if distance == "" {
		distance = distanceCosine
	}

	attrs := []string{
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(f.VectorDim),
		"DISTANCE_METRIC", string(distance),
	}
	if algo == vectorHNSW && f.VectorM > 0 {
		attrs = append(attrs, "M", strconv.Itoa(f.VectorM))
	}

	result := make([]string, 0, 3+len(attrs))
	result = append(result, "VECTOR", string(algo), strconv.Itoa(len(attrs)))
	result = append(result, attrs...)

	return result, nil
}

package index

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/kailas-cloud/vecsearch/internal/domain"
)

// Index types and source types understood by the service.
const (
	TypeFulltext     = "fulltext-index"
	TypeAlias        = "fulltext-alias"
	SourceCouchbase  = "couchbase"
	SourceGocbcore   = "gocbcore"
	SourceNil        = "nil"
	DefaultSourceTyp = SourceGocbcore
)

var nameRegex = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

// Definition describes a search index. Params is the opaque mapping and
// analyzer blob; the core never interprets it.
type Definition struct {
	Name       string          `json:"name"`
	Type       string          `json:"type"`
	SourceType string          `json:"sourceType,omitempty"`
	SourceName string          `json:"sourceName,omitempty"`
	UUID       string          `json:"uuid,omitempty"`
	Params     json.RawMessage `json:"params,omitempty"`
}

// Validate checks the name and fills defaults. Name: ^[A-Za-z][A-Za-z0-9_-]*$, max 128.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("%w: index name is required", domain.ErrInvalidArgument)
	}
	if len(d.Name) > 128 {
		return fmt.Errorf("%w: index name too long (max 128)", domain.ErrInvalidArgument)
	}
	if !nameRegex.MatchString(d.Name) {
		return fmt.Errorf("%w: index name %q must start with a letter and contain only letters, digits, '_' or '-'",
			domain.ErrInvalidArgument, d.Name)
	}
	if d.Type == "" {
		d.Type = TypeFulltext
	}
	if d.SourceType == "" {
		d.SourceType = DefaultSourceTyp
	}
	if len(d.Params) > 0 && !json.Valid(d.Params) {
		return fmt.Errorf("%w: index params must be valid JSON", domain.ErrInvalidArgument)
	}
	return nil
}

// ValidateName checks an index name without a full definition.
func ValidateName(name string) error {
	d := Definition{Name: name}
	return d.Validate()
}

// DecodeDefinition reads a JSON definition fixture.
func DecodeDefinition(data []byte) (Definition, error) {
	var d Definition
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&d); err != nil {
		return Definition{}, fmt.Errorf("%w: decode index definition: %w", domain.ErrInvalidArgument, err)
	}
	return d, nil
}

// WithTypeKey returns a copy of template whose single params.mapping.types
// entry is renamed to key. Definitions without type mappings are returned
// unchanged.
func WithTypeKey(template Definition, key string) (Definition, error) {
	if key == "" {
		return Definition{}, fmt.Errorf("%w: type key is required", domain.ErrInvalidArgument)
	}
	out := template
	if len(template.Params) == 0 {
		return out, nil
	}

	var params map[string]json.RawMessage
	if err := json.Unmarshal(template.Params, &params); err != nil {
		return Definition{}, fmt.Errorf("%w: params: %w", domain.ErrInvalidArgument, err)
	}
	rawMapping, ok := params["mapping"]
	if !ok {
		return out, nil
	}
	var mapping map[string]json.RawMessage
	if err := json.Unmarshal(rawMapping, &mapping); err != nil {
		return Definition{}, fmt.Errorf("%w: params.mapping: %w", domain.ErrInvalidArgument, err)
	}
	rawTypes, ok := mapping["types"]
	if !ok {
		return out, nil
	}
	var types map[string]json.RawMessage
	if err := json.Unmarshal(rawTypes, &types); err != nil {
		return Definition{}, fmt.Errorf("%w: params.mapping.types: %w", domain.ErrInvalidArgument, err)
	}
	switch len(types) {
	case 0:
		return out, nil
	case 1:
	default:
		return Definition{}, fmt.Errorf("%w: template has %d type mappings, expected one", domain.ErrInvalidArgument, len(types))
	}

	renamed := make(map[string]json.RawMessage, 1)
	for _, body := range types {
		renamed[key] = body
	}

	var err error
	if mapping["types"], err = json.Marshal(renamed); err != nil {
		return Definition{}, fmt.Errorf("encode types: %w", err)
	}
	if params["mapping"], err = json.Marshal(mapping); err != nil {
		return Definition{}, fmt.Errorf("encode mapping: %w", err)
	}
	if out.Params, err = json.Marshal(params); err != nil {
		return Definition{}, fmt.Errorf("encode params: %w", err)
	}
	return out, nil
}

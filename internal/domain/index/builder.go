package index

import "encoding/json"

// Builder is a fluent builder for index definitions.
type Builder struct {
	def Definition
}

// NewBuilder starts building a full-text index definition.
func NewBuilder(name string) *Builder {
	return &Builder{def: Definition{Name: name, Type: TypeFulltext}}
}

// Type overrides the index type.
func (b *Builder) Type(t string) *Builder {
	b.def.Type = t
	return b
}

// Source sets the backing document source.
func (b *Builder) Source(name, sourceType string) *Builder {
	b.def.SourceName = name
	b.def.SourceType = sourceType
	return b
}

// UUID pins the definition to an existing revision.
func (b *Builder) UUID(uuid string) *Builder {
	b.def.UUID = uuid
	return b
}

// Params sets the opaque mapping blob.
func (b *Builder) Params(raw json.RawMessage) *Builder {
	b.def.Params = append(json.RawMessage(nil), raw...)
	return b
}

// Build validates and returns the definition.
func (b *Builder) Build() (Definition, error) {
	def := b.def
	if err := def.Validate(); err != nil {
		return Definition{}, err
	}
	return def, nil
}

// MustBuild calls Build and panics on error.
func (b *Builder) MustBuild() Definition {
	def, err := b.Build()
	if err != nil {
		panic(err)
	}
	return def
}

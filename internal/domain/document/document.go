package document

import (
	"fmt"
	"maps"
	"regexp"

	"github.com/kailas-cloud/vecsearch/internal/domain"
)

var idRegex = regexp.MustCompile(`^[a-zA-Z0-9_:.-]+$`)

// MaxIDLength is the longest accepted document ID.
const MaxIDLength = 256

// Document is a source record fed to every index built on its source
// (immutable value object).
type Document struct {
	id     string
	fields map[string]any
}

// New validates and creates a Document.
// ID: ^[a-zA-Z0-9_:.-]+$, 1-256 chars. Fields must be non-empty.
func New(id string, fields map[string]any) (Document, error) {
	if id == "" {
		return Document{}, fmt.Errorf("%w: document ID is required", domain.ErrInvalidArgument)
	}
	if len(id) > MaxIDLength {
		return Document{}, fmt.Errorf("%w: document ID too long (max %d)", domain.ErrInvalidArgument, MaxIDLength)
	}
	if !idRegex.MatchString(id) {
		return Document{}, fmt.Errorf("%w: document ID %q may contain only letters, digits, '_', ':', '.' and '-'",
			domain.ErrInvalidArgument, id)
	}
	if len(fields) == 0 {
		return Document{}, fmt.Errorf("%w: document %q has no fields", domain.ErrInvalidArgument, id)
	}
	return Document{id: id, fields: maps.Clone(fields)}, nil
}

// ID returns the document ID.
func (d Document) ID() string { return d.id }

// Fields returns a shallow copy of the document fields.
func (d Document) Fields() map[string]any { return maps.Clone(d.fields) }

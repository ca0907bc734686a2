package request

import (
	"fmt"
	"slices"
	"time"

	"github.com/kailas-cloud/vecsearch/internal/domain"
)

// Result window limits.
const (
	DefaultLimit = 10
	MaxLimit     = 10000
)

// Highlight styles understood by the service.
const (
	HighlightHTML = "html"
	HighlightANSI = "ansi"
)

// Highlight asks the service for match fragments.
type Highlight struct {
	Style  string
	Fields []string
}

// Options tune a single query execution. The zero value means service defaults.
type Options struct {
	Limit            int
	Skip             int
	Fields           []string
	Explain          bool
	IncludeLocations bool
	Highlight        *Highlight
	Timeout          time.Duration
}

// Normalize validates o and fills defaults. Limit=0 becomes DefaultLimit.
func (o Options) Normalize() (Options, error) {
	if o.Limit < 0 {
		return Options{}, fmt.Errorf("%w: limit must be >= 0, got %d", domain.ErrInvalidArgument, o.Limit)
	}
	if o.Limit > MaxLimit {
		return Options{}, fmt.Errorf("%w: limit must be <= %d, got %d", domain.ErrInvalidArgument, MaxLimit, o.Limit)
	}
	if o.Skip < 0 {
		return Options{}, fmt.Errorf("%w: skip must be >= 0, got %d", domain.ErrInvalidArgument, o.Skip)
	}
	if o.Timeout < 0 {
		return Options{}, fmt.Errorf("%w: timeout must be >= 0", domain.ErrInvalidArgument)
	}
	if o.Limit == 0 {
		o.Limit = DefaultLimit
	}
	for _, f := range o.Fields {
		if f == "" {
			return Options{}, fmt.Errorf("%w: empty projected field name", domain.ErrInvalidArgument)
		}
	}
	o.Fields = slices.Clone(o.Fields)
	if o.Highlight != nil {
		h := *o.Highlight
		switch h.Style {
		case "", HighlightHTML, HighlightANSI:
		default:
			return Options{}, fmt.Errorf("%w: unknown highlight style %q", domain.ErrInvalidArgument, h.Style)
		}
		h.Fields = slices.Clone(h.Fields)
		o.Highlight = &h
	}
	return o, nil
}

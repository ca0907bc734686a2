package request

import (
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/vecsearch/internal/domain"
)

func TestOptions_NormalizeDefaults(t *testing.T) {
	o, err := Options{}.Normalize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.Limit != DefaultLimit {
		t.Errorf("Limit = %d, want %d", o.Limit, DefaultLimit)
	}
	if o.Skip != 0 || o.Explain || o.IncludeLocations || o.Highlight != nil {
		t.Errorf("unexpected defaults: %+v", o)
	}
}

func TestOptions_NormalizeKeepsValues(t *testing.T) {
	in := Options{
		Limit:            5,
		Skip:             2,
		Fields:           []string{"name"},
		Explain:          true,
		IncludeLocations: true,
		Highlight:        &Highlight{Style: HighlightHTML, Fields: []string{"name"}},
		Timeout:          time.Second,
	}
	o, err := in.Normalize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.Limit != 5 || o.Skip != 2 || !o.Explain || !o.IncludeLocations || o.Timeout != time.Second {
		t.Errorf("values changed: %+v", o)
	}
	in.Fields[0] = "changed"
	in.Highlight.Style = HighlightANSI
	if o.Fields[0] != "name" || o.Highlight.Style != HighlightHTML {
		t.Error("normalized options must not alias the input")
	}
}

func TestOptions_NormalizeErrors(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"negative limit", Options{Limit: -1}},
		{"limit too large", Options{Limit: MaxLimit + 1}},
		{"negative skip", Options{Skip: -3}},
		{"negative timeout", Options{Timeout: -time.Second}},
		{"empty field", Options{Fields: []string{""}}},
		{"bad style", Options{Highlight: &Highlight{Style: "markdown"}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := tc.opts.Normalize(); !errors.Is(err, domain.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}
}

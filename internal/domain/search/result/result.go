package result

import (
	"encoding/json"
	"time"
)

// Location is one occurrence of a matched term inside a stored field.
type Location struct {
	Field          string
	Term           string
	Position       uint64
	Start          uint64
	End            uint64
	ArrayPositions []uint64
}

// Row is a single ranked hit.
type Row struct {
	Index       string
	ID          string
	Score       float64
	Locations   []Location
	Fragments   map[string][]string
	Fields      map[string]any
	Explanation json.RawMessage
}

// Field returns a projected field value, nil when absent.
func (r *Row) Field(name string) any {
	if r.Fields == nil {
		return nil
	}
	return r.Fields[name]
}

// Status summarises partition outcomes reported by the service.
type Status struct {
	Total      int
	Successful int
	Failed     int
	Errors     map[string]string
}

// Meta is per-response metadata.
type Meta struct {
	Took            time.Duration
	TotalHits       uint64
	MaxScore        float64
	Status          Status
	ClientContextID string
}

// Set is the ordered outcome of one query execution.
type Set struct {
	Rows []Row
	Meta Meta
}

// Len returns the number of rows, 0 for a nil set.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Rows)
}

// IDs returns row identifiers in rank order.
func (s *Set) IDs() []string {
	if s == nil {
		return nil
	}
	ids := make([]string, len(s.Rows))
	for i := range s.Rows {
		ids[i] = s.Rows[i].ID
	}
	return ids
}

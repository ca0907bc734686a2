package result

import "testing"

func TestSet_Len(t *testing.T) {
	var nilSet *Set
	if nilSet.Len() != 0 {
		t.Errorf("nil set Len() = %d", nilSet.Len())
	}

	s := &Set{Rows: []Row{{ID: "a"}, {ID: "b"}}}
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}
}

func TestSet_IDs(t *testing.T) {
	s := &Set{Rows: []Row{{ID: "b", Score: 2}, {ID: "a", Score: 1}}}
	ids := s.IDs()
	if len(ids) != 2 || ids[0] != "b" || ids[1] != "a" {
		t.Errorf("IDs() = %v, want rank order", ids)
	}

	var nilSet *Set
	if nilSet.IDs() != nil {
		t.Error("nil set should have nil IDs")
	}
}

func TestRow_Field(t *testing.T) {
	r := Row{Fields: map[string]any{"name": "Hotel"}}
	if r.Field("name") != "Hotel" {
		t.Errorf("Field(name) = %v", r.Field("name"))
	}
	if r.Field("missing") != nil {
		t.Error("missing field should be nil")
	}

	var empty Row
	if empty.Field("name") != nil {
		t.Error("row without fields should return nil")
	}
}

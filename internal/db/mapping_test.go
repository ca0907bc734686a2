package db

import (
	"encoding/json"
	"errors"
	"os"
	"testing"
)

func TestParseFieldSchema_Fixture(t *testing.T) {
	data, err := os.ReadFile("../domain/index/testdata/hotel_index.json")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	var spec IndexSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		t.Fatalf("decode: %v", err)
	}

	schema, err := ParseFieldSchema(spec.Params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if schema.TypeField != "type" {
		t.Errorf("TypeField = %q", schema.TypeField)
	}
	if names := schema.TypeNames(); len(names) != 1 || names[0] != "hotel" {
		t.Errorf("TypeNames() = %v", names)
	}
	if !schema.Accepts("hotel") || schema.Accepts("motel") {
		t.Error("only the hotel type should be accepted")
	}
	if len(schema.Default) != 0 {
		t.Errorf("disabled default mapping should contribute no fields, got %v", schema.Default)
	}

	byName := make(map[string]MappedField)
	for _, f := range schema.Fields() {
		byName[f.Name] = f
	}
	if byName["name"].Type != FieldText || !byName["name"].Store {
		t.Errorf("name field = %+v", byName["name"])
	}
	if byName["rating"].Type != FieldNumber {
		t.Errorf("rating field = %+v", byName["rating"])
	}
	if byName["city"].Analyzer != "keyword" {
		t.Errorf("city analyzer = %q", byName["city"].Analyzer)
	}

	vecs := schema.VectorFields()
	emb, ok := vecs["embedding"]
	if !ok || emb.Dims != 3 || emb.Similarity != SimilarityDotProduct {
		t.Errorf("embedding field = %+v", emb)
	}
}

func TestParseFieldSchema_Empty(t *testing.T) {
	schema, err := ParseFieldSchema(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !schema.Dynamic || !schema.DefaultEnabled || schema.TypeField != DefaultTypeField {
		t.Errorf("unexpected schema: %+v", schema)
	}
}

func TestParseFieldSchema_NestedAndDefaults(t *testing.T) {
	params := json.RawMessage(`{
		"mapping": {
			"default_mapping": {
				"dynamic": false,
				"properties": {
					"address": {"properties": {"city": {"fields": [{"name": "city"}]}}},
					"vec": {"fields": [{"name": "vec", "type": "vector", "dims": 2}]}
				}
			}
		}
	}`)
	schema, err := ParseFieldSchema(params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if schema.Dynamic {
		t.Error("expected non-dynamic default mapping")
	}
	fields := schema.Fields()
	if len(fields) != 2 {
		t.Fatalf("fields = %+v", fields)
	}
	if fields[0].Name != "address.city" || fields[0].Type != FieldText {
		t.Errorf("nested field = %+v", fields[0])
	}
	if fields[1].Similarity != SimilarityL2 {
		t.Errorf("default similarity = %q", fields[1].Similarity)
	}
}

func TestParseFieldSchema_Errors(t *testing.T) {
	if _, err := ParseFieldSchema(json.RawMessage(`{"mapping": 5}`)); err == nil {
		t.Error("expected decode error")
	}
	bad := json.RawMessage(`{"mapping":{"types":{"t":{"properties":{"v":{"fields":[{"type":"vector"}]}}}}}}`)
	if _, err := ParseFieldSchema(bad); err == nil {
		t.Error("expected dims error")
	}
}

func TestError_Unwrap(t *testing.T) {
	inner := errors.New("boom")
	err := &Error{Op: OpSearch, Err: inner}
	if !errors.Is(err, inner) {
		t.Error("expected inner error")
	}
	if err.Error() != "FT.SEARCH: boom" {
		t.Errorf("Error() = %q", err.Error())
	}
	se := &StatusError{Status: 500, Body: "oops"}
	if se.Error() != "unexpected status 500: oops" {
		t.Errorf("StatusError = %q", se.Error())
	}
}

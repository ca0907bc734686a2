package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/vecsearch/internal/db"
)

// WriteDocuments stores documents as hashes under "{source}:{id}" in a single
// DoMulti round-trip. Numeric arrays are encoded as FLOAT32 vector blobs.
func (s *Store) WriteDocuments(ctx context.Context, source string, docs []db.Document) error {
	if len(docs) == 0 {
		return nil
	}
	if source == "" {
		return fmt.Errorf("source is required")
	}

	cmds := make([]rueidis.Completed, len(docs))
	for i, doc := range docs {
		if doc.ID == "" {
			return fmt.Errorf("document %d: id is required", i)
		}
		cmd := s.b().Hset().Key(source + ":" + doc.ID).FieldValue()
		for k, v := range doc.Fields {
			enc, err := encodeValue(v)
			if err != nil {
				return fmt.Errorf("document %s field %s: %w", doc.ID, k, err)
			}
			cmd = cmd.FieldValue(k, enc)
		}
		cmds[i] = cmd.Build()
	}

	results := s.client.DoMulti(ctx, cmds...)
	for i, res := range results {
		if err := res.Error(); err != nil {
			return &db.Error{Op: db.OpHSet, Err: fmt.Errorf("document %s: %w", docs[i].ID, err)}
		}
	}
	return nil
}

func encodeValue(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case bool:
		return strconv.FormatBool(x), nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32), nil
	case []float32:
		return vectorToBytes(x), nil
	case []float64:
		vec := make([]float32, len(x))
		for i, f := range x {
			vec[i] = float32(f)
		}
		return vectorToBytes(vec), nil
	case []any:
		vec := make([]float32, len(x))
		for i, el := range x {
			f, ok := el.(float64)
			if !ok {
				return marshalValue(v)
			}
			vec[i] = float32(f)
		}
		return vectorToBytes(vec), nil
	default:
		return marshalValue(v)
	}
}

func marshalValue(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

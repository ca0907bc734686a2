package vector

import (
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/vecsearch/internal/domain"
)

// ParseVector converts an untyped payload value into a probe vector.
// Decoded JSON arrays, []float64 and []float32 are accepted. Objects, scalars,
// nil and empty sequences are rejected.
func ParseVector(raw any) ([]float32, error) {
	switch v := raw.(type) {
	case []float32:
		if len(v) == 0 {
			return nil, emptyVector()
		}
		out := make([]float32, len(v))
		copy(out, v)
		return out, nil
	case []float64:
		if len(v) == 0 {
			return nil, emptyVector()
		}
		out := make([]float32, len(v))
		for i, f := range v {
			out[i] = float32(f)
		}
		return out, nil
	case []any:
		if len(v) == 0 {
			return nil, emptyVector()
		}
		out := make([]float32, len(v))
		for i, el := range v {
			f, err := toFloat(el)
			if err != nil {
				return nil, fmt.Errorf("%w: vector element %d: %w", domain.ErrInvalidArgument, i, err)
			}
			out[i] = f
		}
		return out, nil
	case json.RawMessage:
		var decoded any
		if err := json.Unmarshal(v, &decoded); err != nil {
			return nil, fmt.Errorf("%w: vector is not valid JSON: %w", domain.ErrInvalidArgument, err)
		}
		return ParseVector(decoded)
	case nil:
		return nil, fmt.Errorf("%w: vector is required", domain.ErrInvalidArgument)
	default:
		return nil, fmt.Errorf("%w: vector must be an array of numbers, got %T", domain.ErrInvalidArgument, raw)
	}
}

func toFloat(v any) (float32, error) {
	switch n := v.(type) {
	case float64:
		return float32(n), nil
	case float32:
		return n, nil
	case int:
		return float32(n), nil
	case int64:
		return float32(n), nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("parse %q: %w", n, err)
		}
		return float32(f), nil
	default:
		return 0, fmt.Errorf("expected number, got %T", v)
	}
}

func emptyVector() error {
	return fmt.Errorf("%w: vector must not be empty", domain.ErrInvalidArgument)
}

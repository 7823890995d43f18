package neokit

import (
	"bytes"
	"encoding/json"
	"errors"
)

// UnmarshalParams decodes a JSON object into query parameters. Integral
// numbers become int64 and the rest float64, so the server stores INTEGER
// where the caller wrote an integer.
func UnmarshalParams(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var params map[string]any
	if err := dec.Decode(&params); err != nil {
		return nil, err
	}

	if dec.More() {
		return nil, errors.New("unexpected data after JSON object")
	}

	if params == nil {
		return map[string]any{}, nil
	}

	NormalizeNumbers(params)

	return params, nil
}

// NormalizeNumbers replaces json.Number values in v, recursing into maps and
// slices in place.
func NormalizeNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n
		}

		f, _ := t.Float64()

		return f
	case []any:
		for i := range t {
			t[i] = NormalizeNumbers(t[i])
		}

		return t
	case map[string]any:
		for k := range t {
			t[k] = NormalizeNumbers(t[k])
		}

		return t
	default:
		return v
	}
}

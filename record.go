package neokit

import (
	"bytes"
	"encoding/json"
	"maps"
	"slices"
)

// Record is one result row: values in column order.
type Record struct {
	Keys   []string
	Values []any
}

// NewRecord pairs keys with values. Missing values are nil.
func NewRecord(keys []string, values ...any) Record {
	vals := make([]any, len(keys))
	copy(vals, values)

	return Record{Keys: slices.Clone(keys), Values: vals}
}

// Get returns the value of a column.
func (r Record) Get(key string) (any, bool) {
	i := slices.Index(r.Keys, key)
	if i < 0 || i >= len(r.Values) {
		return nil, false
	}

	return r.Values[i], true
}

// AsMap returns the record as an unordered map.
func (r Record) AsMap() map[string]any {
	m := make(map[string]any, len(r.Keys))
	for i, key := range r.Keys {
		if i < len(r.Values) {
			m[key] = r.Values[i]
		}
	}

	return m
}

// MarshalJSON encodes the record as an object, preserving column order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('{')

	for i, key := range r.Keys {
		if i > 0 {
			buf.WriteByte(',')
		}

		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}

		var value any
		if i < len(r.Values) {
			value = r.Values[i]
		}

		v, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}

		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// Flatten expands nodes, relationships and maps so their properties are
// addressable as "alias.property" (e.g. "p.name" for RETURN p).
// Column order is kept; expanded properties are sorted by name.
func (r Record) Flatten() Record {
	out := Record{}

	for i, key := range r.Keys {
		var value any
		if i < len(r.Values) {
			value = r.Values[i]
		}

		flattenValue(&out, key, value)
	}

	return out
}

func flattenValue(out *Record, key string, value any) {
	add := func(k string, v any) {
		out.Keys = append(out.Keys, k)
		out.Values = append(out.Values, v)
	}

	switch v := value.(type) {
	case Node:
		add(key+".elementId", v.ElementID)
		add(key+".labels", v.Labels)

		for _, prop := range slices.Sorted(maps.Keys(v.Properties)) {
			add(key+"."+prop, v.Properties[prop])
		}

	case Relationship:
		add(key+".elementId", v.ElementID)
		add(key+".type", v.Type)

		for _, prop := range slices.Sorted(maps.Keys(v.Properties)) {
			add(key+"."+prop, v.Properties[prop])
		}

	case Path:
		add(key+".nodes", v.Nodes)
		add(key+".relationships", v.Relationships)

	case map[string]any:
		for _, k := range slices.Sorted(maps.Keys(v)) {
			add(key+"."+k, v[k])
		}

	default:
		add(key, v)
	}
}

// Records converts a slice of records into plain maps, e.g. for JSON output.
func Records(records []Record) []map[string]any {
	out := make([]map[string]any, len(records))
	for i, r := range records {
		out[i] = r.AsMap()
	}

	return out
}

package tools

import (
	"bytes"
	"encoding/json"
	"math"
	"slices"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/rlch/neokit"
)

// Object returns an object schema over props. Names listed in required must
// be present.
func Object(props map[string]*jsonschema.Schema, required ...string) *jsonschema.Schema {
	if props == nil {
		props = map[string]*jsonschema.Schema{}
	}

	return &jsonschema.Schema{
		Type:       "object",
		Properties: props,
		Required:   required,
	}
}

// String returns a string property schema.
func String(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: description}
}

// Integer returns an integer property schema.
func Integer(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "integer", Description: description}
}

// Map returns a free-form object property schema.
func Map(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "object", Description: description}
}

// decodeArguments parses raw JSON arguments, checks them against the tool
// schema and applies defaults. Integers, including those nested in free-form
// params, arrive as int64 so the server sees INTEGER rather than FLOAT.
func decodeArguments(tool Tool, resolved *jsonschema.Resolved, raw json.RawMessage) (map[string]any, error) {
	args := map[string]any{}

	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
		decoded, err := neokit.UnmarshalParams(trimmed)
		if err != nil {
			return nil, &neokit.ParameterError{Tool: tool.Name, Reason: "arguments must be a JSON object", Err: err}
		}

		args = decoded
	}

	for _, name := range tool.Schema.Required {
		if v, ok := args[name]; !ok || v == nil {
			return nil, &neokit.ParameterError{Tool: tool.Name, Param: name, Reason: "required"}
		}
	}

	if err := resolved.Validate(args); err != nil {
		return nil, &neokit.ParameterError{Tool: tool.Name, Err: err}
	}

	for name, value := range tool.Defaults {
		if _, ok := args[name]; !ok {
			args[name] = value
		}
	}

	for name, prop := range tool.Schema.Properties {
		if !isType(prop, "integer") {
			continue
		}

		if f, ok := args[name].(float64); ok {
			if f != math.Trunc(f) {
				return nil, &neokit.ParameterError{Tool: tool.Name, Param: name, Reason: "must be an integer"}
			}

			args[name] = int64(f)
		}
	}

	return args, nil
}

func isType(s *jsonschema.Schema, typ string) bool {
	if s == nil {
		return false
	}

	return s.Type == typ || slices.Contains(s.Types, typ)
}

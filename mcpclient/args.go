package mcpclient

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ParseArg converts a raw string into the value a schema type asks for.
// Unknown types stay strings.
func ParseArg(raw, typ string) (any, error) {
	raw = strings.TrimSpace(raw)

	switch typ {
	case "integer":
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not an integer", raw)
		}

		return n, nil

	case "number":
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", raw)
		}

		return f, nil

	case "boolean":
		switch strings.ToLower(raw) {
		case "true", "yes", "y", "1":
			return true, nil
		case "false", "no", "n", "0":
			return false, nil
		default:
			return nil, fmt.Errorf("%q is not a boolean", raw)
		}

	case "object", "array":
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("%q is not valid JSON: %w", raw, err)
		}

		return v, nil

	default:
		return raw, nil
	}
}

// BuildArguments turns "name=value" pairs into tool arguments typed by the
// tool's params. Names not in params are passed as strings.
func BuildArguments(params []Param, pairs []string) (map[string]any, error) {
	types := make(map[string]string, len(params))
	for _, p := range params {
		types[p.Name] = p.Type
	}

	args := make(map[string]any, len(pairs))

	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("argument %q: want name=value", pair)
		}

		v, err := ParseArg(raw, types[name])
		if err != nil {
			return nil, fmt.Errorf("argument %s: %w", name, err)
		}

		args[name] = v
	}

	return args, nil
}

// MissingRequired lists required params absent from args.
func MissingRequired(params []Param, args map[string]any) []string {
	var missing []string

	for _, p := range params {
		if _, ok := args[p.Name]; p.Required && !ok {
			missing = append(missing, p.Name)
		}
	}

	return missing
}

var templateParam = regexp.MustCompile(`\{([^{}]+)\}`)

// TemplateParams returns the placeholder names of a URI template in order.
func TemplateParams(uriTemplate string) []string {
	matches := templateParam.FindAllStringSubmatch(uriTemplate, -1)

	names := make([]string, len(matches))
	for i, m := range matches {
		names[i] = m[1]
	}

	return names
}

// ExpandTemplate substitutes values into a URI template. Every placeholder
// must have a value.
func ExpandTemplate(uriTemplate string, values map[string]string) (string, error) {
	var missing []string

	out := templateParam.ReplaceAllStringFunc(uriTemplate, func(m string) string {
		name := m[1 : len(m)-1]

		v, ok := values[name]
		if !ok {
			missing = append(missing, name)

			return m
		}

		return v
	})

	if len(missing) > 0 {
		return "", fmt.Errorf("template %s: missing %s", uriTemplate, strings.Join(missing, ", "))
	}

	return out, nil
}

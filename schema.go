package neokit

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// GraphSchema describes the labels, relationship types and properties found
// in a database.
type GraphSchema struct {
	Nodes         map[string][]Property `json:"nodes"`
	Relationships map[string][]Property `json:"relationships"`
	Patterns      []Pattern             `json:"patterns"`
}

// Property is one property key with the value types observed for it.
type Property struct {
	Name      string   `json:"name"`
	Types     []string `json:"types"`
	Mandatory bool     `json:"mandatory"`
}

// Pattern is a relationship type observed between two labels.
type Pattern struct {
	From string `json:"from"`
	Type string `json:"type"`
	To   string `json:"to"`
}

func (p Pattern) String() string {
	return fmt.Sprintf("(:%s)-[:%s]->(:%s)", p.From, p.Type, p.To)
}

// DefaultPatternSample bounds how many relationships are scanned for patterns.
const DefaultPatternSample = 1000

const (
	nodePropertiesQuery = `CALL db.schema.nodeTypeProperties()
YIELD nodeLabels, propertyName, propertyTypes, mandatory
RETURN nodeLabels, propertyName, propertyTypes, mandatory`

	relPropertiesQuery = `CALL db.schema.relTypeProperties()
YIELD relType, propertyName, propertyTypes, mandatory
RETURN relType, propertyName, propertyTypes, mandatory`

	patternsQuery = `MATCH (a)-[r]->(b)
WITH a, r, b LIMIT $sample
RETURN DISTINCT head(labels(a)) AS from, type(r) AS type, head(labels(b)) AS to`
)

// IntrospectSchema reads the schema procedures and samples relationship
// patterns in one read session.
func IntrospectSchema(ctx context.Context, p SessionProvider) (*GraphSchema, error) {
	schema := &GraphSchema{
		Nodes:         make(map[string][]Property),
		Relationships: make(map[string][]Property),
	}

	err := p.WithSession(ctx, AccessRead, func(r Runner) error {
		nodes, err := Execute(ctx, r, Request{Text: nodePropertiesQuery})
		if err != nil {
			return fmt.Errorf("node properties: %w", err)
		}

		for _, rec := range nodes {
			labels, _ := rec.Get("nodeLabels")
			for _, label := range toStrings(labels) {
				addProperty(schema.Nodes, cleanName(label), rec)
			}
		}

		rels, err := Execute(ctx, r, Request{Text: relPropertiesQuery})
		if err != nil {
			return fmt.Errorf("relationship properties: %w", err)
		}

		for _, rec := range rels {
			relType, _ := rec.Get("relType")
			name, _ := relType.(string)
			addProperty(schema.Relationships, cleanName(name), rec)
		}

		patterns, err := Execute(ctx, r, Request{Text: patternsQuery, Params: map[string]any{"sample": DefaultPatternSample}})
		if err != nil {
			return fmt.Errorf("relationship patterns: %w", err)
		}

		for _, rec := range patterns {
			m := rec.AsMap()
			from, _ := m["from"].(string)
			typ, _ := m["type"].(string)
			to, _ := m["to"].(string)

			if from == "" || typ == "" || to == "" {
				continue
			}

			schema.Patterns = append(schema.Patterns, Pattern{From: from, Type: typ, To: to})
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, props := range schema.Nodes {
		sortProperties(props)
	}

	for _, props := range schema.Relationships {
		sortProperties(props)
	}

	slices.SortFunc(schema.Patterns, func(a, b Pattern) int {
		return strings.Compare(a.String(), b.String())
	})

	return schema, nil
}

func addProperty(into map[string][]Property, owner string, rec Record) {
	if owner == "" {
		return
	}

	if _, ok := into[owner]; !ok {
		into[owner] = []Property{}
	}

	name, _ := rec.Get("propertyName")
	propName, _ := name.(string)

	if propName == "" {
		return
	}

	types, _ := rec.Get("propertyTypes")
	mandatory, _ := rec.Get("mandatory")
	required, _ := mandatory.(bool)

	into[owner] = append(into[owner], Property{
		Name:      propName,
		Types:     toStrings(types),
		Mandatory: required,
	})
}

func sortProperties(props []Property) {
	slices.SortFunc(props, func(a, b Property) int {
		return strings.Compare(a.Name, b.Name)
	})
}

// cleanName strips the ":`Label`" decoration used by the schema procedures.
func cleanName(s string) string {
	s = strings.TrimPrefix(s, ":")
	s = strings.Trim(s, `"`)
	s = strings.Trim(s, "`")

	return s
}

func toStrings(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}

		return out
	case string:
		return []string{t}
	default:
		return nil
	}
}

// String renders the schema in the compact form used in LLM prompts.
func (s *GraphSchema) String() string {
	var b strings.Builder

	b.WriteString("Node properties:\n")
	writeOwners(&b, s.Nodes)

	b.WriteString("\nRelationship properties:\n")
	writeOwners(&b, s.Relationships)

	b.WriteString("\nThe relationships:\n")

	for _, p := range s.Patterns {
		b.WriteString(p.String())
		b.WriteByte('\n')
	}

	return b.String()
}

func writeOwners(b *strings.Builder, owners map[string][]Property) {
	names := make([]string, 0, len(owners))
	for name := range owners {
		names = append(names, name)
	}

	slices.Sort(names)

	for _, name := range names {
		props := owners[name]
		if len(props) == 0 {
			continue
		}

		parts := make([]string, len(props))
		for i, p := range props {
			typ := "ANY"
			if len(p.Types) > 0 {
				typ = strings.ToUpper(strings.TrimSuffix(p.Types[0], "NotNull"))
			}

			parts[i] = p.Name + ": " + typ
		}

		fmt.Fprintf(b, "%s {%s}\n", name, strings.Join(parts, ", "))
	}
}

package cypher

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/rlch/neokit"
)

// ErrUnboundParameter is wrapped by Validate when a placeholder has no value.
var ErrUnboundParameter = errors.New("cypher: unbound parameter")

// Parameters returns the distinct placeholder names in query, in order of
// first appearance. Backtick-quoted names are returned without backticks.
func Parameters(query string) ([]string, error) {
	tokens, err := Tokenize(query)
	if err != nil {
		return nil, err
	}

	var names []string

	for _, t := range tokens {
		if t.Type != tokParameter {
			continue
		}

		name := strings.Trim(strings.TrimPrefix(t.Value, "$"), "`")
		if !slices.Contains(names, name) {
			names = append(names, name)
		}
	}

	return names, nil
}

// Unbound returns the placeholders in query that params does not bind.
func Unbound(query string, params map[string]any) ([]string, error) {
	names, err := Parameters(query)
	if err != nil {
		return nil, err
	}

	var missing []string

	for _, name := range names {
		if _, ok := params[name]; !ok {
			missing = append(missing, name)
		}
	}

	return missing, nil
}

// Validate checks that every placeholder in req.Text is bound in req.Params.
// It returns a *neokit.QueryError so callers fail before contacting the server.
func Validate(req neokit.Request) error {
	if strings.TrimSpace(req.Text) == "" {
		return &neokit.QueryError{Query: req.Text, Message: "empty query"}
	}

	missing, err := Unbound(req.Text, req.Params)
	if err != nil {
		return &neokit.QueryError{Query: req.Text, Message: "cannot tokenize query", Err: err}
	}

	if len(missing) > 0 {
		return &neokit.QueryError{
			Query:   req.Text,
			Message: fmt.Sprintf("missing value for $%s", strings.Join(missing, ", $")),
			Err:     ErrUnboundParameter,
		}
	}

	return nil
}

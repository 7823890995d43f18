package tools

import (
	"context"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/rlch/neokit"
)

// Generic Cypher tool names.
const (
	ReadCypherTool  = "read-cypher"
	WriteCypherTool = "write-cypher"
)

func cypherSchema() *jsonschema.Schema {
	return Object(map[string]*jsonschema.Schema{
		"query":  String("The Cypher query to execute"),
		"params": Map("Parameters for the query"),
	}, "query")
}

// bindQuery runs the caller's own query text with its params.
func bindQuery(tool string) BindFunc {
	return func(_ context.Context, _ neokit.Request, args map[string]any) (neokit.Request, error) {
		text, ok := args["query"].(string)
		if !ok || text == "" {
			return neokit.Request{}, &neokit.ParameterError{Tool: tool, Param: "query", Reason: "must be a non-empty string"}
		}

		params, _ := args["params"].(map[string]any)

		return neokit.NewRequest(text, params), nil
	}
}

// ReadCypher runs an arbitrary read-only query.
func ReadCypher() Tool {
	return Tool{
		Name:        ReadCypherTool,
		Title:       "Read Cypher",
		Description: "Execute a read-only Cypher query against the graph. Queries with write clauses are refused.",
		Schema:      cypherSchema(),
		ReadOnly:    true,
		Bind:        bindQuery(ReadCypherTool),
	}
}

// WriteCypher runs an arbitrary query and reports its update counters.
func WriteCypher() Tool {
	return Tool{
		Name:        WriteCypherTool,
		Title:       "Write Cypher",
		Description: "Execute a Cypher query that may modify the graph. Returns the update counters and any records.",
		Schema:      cypherSchema(),
		Bind:        bindQuery(WriteCypherTool),
		Shape: func(_ context.Context, _ map[string]any, res *neokit.EagerResult) (any, error) {
			return map[string]any{
				"counters": res.Summary.Counters,
				"records":  neokit.Records(res.Records),
				"summary":  fmt.Sprint(res.Summary.Counters),
			}, nil
		},
	}
}

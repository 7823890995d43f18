package mcpserver_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlch/neokit"
	"github.com/rlch/neokit/mcpserver"
	"github.com/rlch/neokit/neokittest"
	"github.com/rlch/neokit/tools"
)

const statsQuery = "RETURN COUNT {()} AS nodes, COUNT {()-[]-()} AS relationships"

func newServer(t *testing.T, db *neokittest.Database) *mcpserver.Server {
	t.Helper()

	reg := tools.NewRegistry(db)
	reg.MustRegister(
		tools.GraphStatistics(),
		tools.SearchMoviesByTitle(),
		tools.MovieInformation(),
		tools.ReadCypher(),
	)

	return mcpserver.New(neokit.MCPConfig{Name: "test", Version: "v0.0.1"}, reg, db)
}

func connect(t *testing.T, srv *mcpserver.Server) *mcp.ClientSession {
	t.Helper()

	ctx := context.Background()
	clientTransport, serverTransport := mcp.NewInMemoryTransports()

	ss, err := srv.MCP().Connect(ctx, serverTransport, nil)
	require.NoError(t, err)

	t.Cleanup(func() { _ = ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)

	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	t.Cleanup(func() { _ = cs.Close() })

	return cs
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)

	tc, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok, "content is %T", res.Content[0])

	return tc.Text
}

func TestServer_ListTools(t *testing.T) {
	cs := connect(t, newServer(t, neokittest.New()))

	res, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}

	assert.ElementsMatch(t, []string{
		tools.GraphStatisticsTool,
		tools.SearchMoviesTitleTool,
		tools.MovieInformationTool,
		tools.ReadCypherTool,
	}, names)

	for _, tool := range res.Tools {
		if tool.Name == tools.ReadCypherTool {
			require.NotNil(t, tool.Annotations)
			assert.True(t, tool.Annotations.ReadOnlyHint)
		}
	}
}

func TestServer_CallTool(t *testing.T) {
	db := neokittest.New().On(statsQuery, neokit.NewRecord([]string{"nodes", "relationships"}, int64(10), int64(20)))
	cs := connect(t, newServer(t, db))

	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: tools.GraphStatisticsTool})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.JSONEq(t, `{"nodes": 10, "relationships": 20}`, text(t, res))
}

func TestServer_CallToolErrors(t *testing.T) {
	db := neokittest.New()
	cs := connect(t, newServer(t, db))
	ctx := context.Background()

	// Missing required argument.
	res, err := cs.CallTool(ctx, &mcp.CallToolParams{Name: tools.SearchMoviesTitleTool, Arguments: map[string]any{}})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "title")

	// Write clause through the read-only tool.
	res, err = cs.CallTool(ctx, &mcp.CallToolParams{
		Name:      tools.ReadCypherTool,
		Arguments: map[string]any{"query": "CREATE (n:X)"},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "CREATE")

	assert.Empty(t, db.Runs(), "no query should reach the database")

	// Unknown tools are rejected by the protocol layer.
	_, err = cs.CallTool(ctx, &mcp.CallToolParams{Name: "nope"})
	require.Error(t, err)
}

func TestServer_Resources(t *testing.T) {
	db := neokittest.New().
		On("CALL db.schema.nodeTypeProperties()\nYIELD nodeLabels, propertyName, propertyTypes, mandatory\nRETURN nodeLabels, propertyName, propertyTypes, mandatory",
			neokit.NewRecord([]string{"nodeLabels", "propertyName", "propertyTypes", "mandatory"}, []any{"Movie"}, "title", []any{"String"}, true)).
		On(tools.MovieInformation().Template.Text,
			neokit.NewRecord([]string{"title", "released", "runtime", "plot"}, "Toy Story", "1995-11-22", int64(81), "Toys come alive."))

	cs := connect(t, newServer(t, db))
	ctx := context.Background()

	resources, err := cs.ListResources(ctx, nil)
	require.NoError(t, err)
	require.Len(t, resources.Resources, 1)
	assert.Equal(t, mcpserver.SchemaURI, resources.Resources[0].URI)

	templates, err := cs.ListResourceTemplates(ctx, nil)
	require.NoError(t, err)
	require.Len(t, templates.ResourceTemplates, 1)
	assert.Equal(t, mcpserver.MovieURITemplate, templates.ResourceTemplates[0].URITemplate)

	schema, err := cs.ReadResource(ctx, &mcp.ReadResourceParams{URI: mcpserver.SchemaURI})
	require.NoError(t, err)
	require.Len(t, schema.Contents, 1)

	var got neokit.GraphSchema
	require.NoError(t, json.Unmarshal([]byte(schema.Contents[0].Text), &got))
	assert.Equal(t, []neokit.Property{{Name: "title", Types: []string{"String"}, Mandatory: true}}, got.Nodes["Movie"])

	movie, err := cs.ReadResource(ctx, &mcp.ReadResourceParams{URI: "neo4j://movies/862"})
	require.NoError(t, err)
	require.Len(t, movie.Contents, 1)
	assert.True(t, strings.HasPrefix(movie.Contents[0].Text, "# Toy Story (1995-11-22)"))

	runs := db.Runs()
	assert.Equal(t, "862", runs[len(runs)-1].Params["tmdbId"])
}

func TestServer_HTTP(t *testing.T) {
	db := neokittest.New().On(statsQuery, neokit.NewRecord([]string{"nodes", "relationships"}, int64(1), int64(0)))
	srv := newServer(t, db)

	ts := httptest.NewServer(srv.Handler("/mcp"))
	defer ts.Close()

	ctx := context.Background()
	client := mcp.NewClient(&mcp.Implementation{Name: "http-client", Version: "v0.0.1"}, nil)

	cs, err := client.Connect(ctx, &mcp.StreamableClientTransport{Endpoint: ts.URL + "/mcp"}, nil)
	require.NoError(t, err)

	defer func() { _ = cs.Close() }()

	res, err := cs.CallTool(ctx, &mcp.CallToolParams{Name: tools.GraphStatisticsTool})
	require.NoError(t, err)
	assert.JSONEq(t, `{"nodes": 1, "relationships": 0}`, text(t, res))

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `neokit_mcp_tool_calls_total{outcome="ok",tool="graph_statistics"} 1`)

	health, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	_ = health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)
}

func TestServer_ServeUnknownTransport(t *testing.T) {
	srv := newServer(t, neokittest.New())

	err := srv.Serve(context.Background(), neokit.MCPConfig{Transport: "carrier-pigeon"})

	var terr *mcpserver.UnknownTransportError
	require.ErrorAs(t, err, &terr)
}

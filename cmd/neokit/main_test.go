package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rlch/neokit"
	"github.com/rlch/neokit/neokittest"
	"github.com/rlch/neokit/tools"
)

func TestParseParams(t *testing.T) {
	got, err := parseParams([]string{
		"location=London",
		"age=30",
		"score=4.5",
		"ok=true",
		"ids=[1, 2]",
		`quoted="30"`,
		"expr=a=b",
		"empty=",
	})
	require.NoError(t, err)

	want := map[string]any{
		"location": "London",
		"age":      int64(30),
		"score":    4.5,
		"ok":       true,
		"ids":      []any{int64(1), int64(2)},
		"quoted":   "30",
		"expr":     "a=b",
		"empty":    "",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("parseParams mismatch (-want +got):\n%s", diff)
	}

	_, err = parseParams([]string{"noequals"})
	require.Error(t, err)
}

func TestRunStatements(t *testing.T) {
	const (
		create = "CREATE (:Person {name: $name})"
		match  = "MATCH (p:Person) WHERE p.name = $name RETURN p.name AS name"
	)

	db := neokittest.New().
		OnSummary(create, neokit.Summary{Counters: neokit.Counters{NodesCreated: 1}}).
		On(match, neokit.NewRecord([]string{"name"}, "Ann"))

	records, summary, err := runStatements(context.Background(), db, neokit.AccessWrite,
		[]string{create, match}, map[string]any{"name": "Ann", "unused": 1})
	require.NoError(t, err)

	assert.Equal(t, []neokit.Record{neokit.NewRecord([]string{"name"}, "Ann")}, records)
	assert.False(t, summary.Counters.ContainsUpdates(), "summary of the last statement")

	runs := db.Runs()
	require.Len(t, runs, 2)
	assert.Equal(t, map[string]any{"name": "Ann"}, runs[0].Params)
	assert.Equal(t, []neokit.AccessMode{neokit.AccessWrite}, db.Modes())
}

func TestCreateInTransaction(t *testing.T) {
	db := neokittest.New().OnSummary(createPersonQuery, neokit.Summary{Counters: neokit.Counters{NodesCreated: 1, PropertiesSet: 2}})

	counters, err := createInTransaction(context.Background(), db,
		neokit.Request{Text: createPersonQuery, Params: map[string]any{"name": "Alice", "age": 30}})
	require.NoError(t, err)
	assert.Equal(t, 1, counters.NodesCreated)

	boom := errors.New("boom")
	db.Fail(createPersonQuery, boom)

	_, err = createInTransaction(context.Background(), db, neokit.Request{Text: createPersonQuery})
	require.ErrorIs(t, err, boom)
}

func TestCheckEnvironment(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")

	vars := map[string]string{}
	getenv := func(k string) string { return vars[k] }

	connected := 0
	connect := func(context.Context) error {
		connected++

		return nil
	}

	statuses := func(checks []check) []checkStatus {
		out := make([]checkStatus, len(checks))
		for i, c := range checks {
			out[i] = c.Status
		}

		return out
	}

	// No .env: everything after it is skipped.
	checks := checkEnvironment(context.Background(), envFile, getenv, connect)
	assert.Equal(t, []checkStatus{checkFail, checkSkip, checkSkip, checkSkip}, statuses(checks))
	assert.Zero(t, connected)

	require.NoError(t, os.WriteFile(envFile, []byte("NEO4J_URI=bolt://x\n"), 0o600))
	vars[neokit.EnvNeo4jURI] = "bolt://x"

	checks = checkEnvironment(context.Background(), envFile, getenv, connect)
	assert.Equal(t, []checkStatus{checkPass, checkFail, checkSkip, checkSkip}, statuses(checks))
	assert.Contains(t, checks[1].Detail, "NEO4J_USERNAME, NEO4J_PASSWORD")

	vars[neokit.EnvNeo4jUsername] = "neo4j"
	vars[neokit.EnvNeo4jPassword] = "secret"
	vars[neokit.EnvOpenAIKey] = "sk-test"

	checks = checkEnvironment(context.Background(), envFile, getenv, connect)
	assert.Equal(t, []checkStatus{checkPass, checkPass, checkPass, checkPass}, statuses(checks))
	assert.Equal(t, 1, connected)

	checks = checkEnvironment(context.Background(), envFile, getenv, func(context.Context) error {
		return &neokit.ConnectionError{URI: "bolt://x", Err: errors.New("refused")}
	})
	assert.Equal(t, checkFail, checks[2].Status)
	assert.Contains(t, checks[2].Detail, "refused")

	var buf bytes.Buffer
	assert.True(t, writeChecks(&buf, checks))
	assert.Equal(t, len(checks), strings.Count(buf.String(), "\n"))
}

func TestNewRegistry(t *testing.T) {
	names := func(r *tools.Registry) []string {
		var out []string
		for _, tool := range r.List() {
			out = append(out, tool.Name)
		}

		return out
	}

	base := []string{
		tools.GraphStatisticsTool,
		tools.SearchMoviesTitleTool,
		tools.MovieInformationTool,
		tools.ReadCypherTool,
		tools.WriteCypherTool,
	}

	r, err := newRegistry(neokittest.New(), neokit.OpenAIConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, base, names(r))

	r, err = newRegistry(neokittest.New(), neokit.OpenAIConfig{
		APIKey:         "sk-test",
		Model:          "gpt-4o",
		EmbeddingModel: neokit.DefaultEmbeddingModel,
	}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, append(base, tools.SearchMoviesPlotTool, tools.CatchAllMovieQueryTool), names(r))

	_, err = newRegistry(neokittest.New(), neokit.OpenAIConfig{APIKey: "sk-test", EmbeddingModel: "no-such-model"}, zap.NewNop())
	require.ErrorIs(t, err, tools.ErrUnknownEmbeddingModel)
}

func TestApp_Commands(t *testing.T) {
	app := newApp()

	var got []string
	for _, c := range app.Commands {
		got = append(got, c.Name)
	}

	assert.Equal(t, []string{"connect", "run", "tx", "load", "export", "schema", "env", "mcp"}, got)
}

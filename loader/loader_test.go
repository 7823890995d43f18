package loader_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlch/neokit"
	"github.com/rlch/neokit/loader"
	"github.com/rlch/neokit/neokittest"
)

const employees = `id,name,gov_id,location,company,position
1,Ann,GOV-1,London,Acme,Engineer
2,Bob,GOV-2,Paris,Acme,Manager
3,Cat,GOV-3,London,Globex,Analyst
`

func created(n int) neokit.Summary {
	return neokit.Summary{Counters: neokit.Counters{NodesCreated: n}}
}

func TestLoader_LoadReader(t *testing.T) {
	db := neokittest.New().OnSummary(loader.DefaultQuery, created(3))

	l, err := loader.New(db)
	require.NoError(t, err)

	res, err := l.LoadReader(context.Background(), "employees.csv", strings.NewReader(employees))
	require.NoError(t, err)

	c := res.Snapshot()
	assert.Equal(t, 3, c.Total)
	assert.Equal(t, 3, c.Created)
	assert.Equal(t, 9, c.Counters.NodesCreated)
	assert.True(t, res.Ok())
	assert.Equal(t, []string{"employees.csv"}, res.Files)

	runs := db.Runs()
	require.Len(t, runs, 3)

	want := map[string]any{
		"id": "1", "name": "Ann", "gov_id": "GOV-1",
		"location": "London", "company": "Acme", "position": "Engineer",
	}
	if diff := cmp.Diff(want, runs[0].Params); diff != "" {
		t.Errorf("params mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, []neokit.AccessMode{neokit.AccessWrite}, db.Modes(), "one write session per file")
}

func TestLoader_Unchanged(t *testing.T) {
	db := neokittest.New()

	l, err := loader.New(db)
	require.NoError(t, err)

	res, err := l.LoadReader(context.Background(), "e.csv", strings.NewReader(employees))
	require.NoError(t, err)
	assert.Equal(t, 3, res.Snapshot().Unchanged)
}

func TestLoader_Filter(t *testing.T) {
	db := neokittest.New().OnSummary(loader.DefaultQuery, created(1))

	var events []loader.Event

	l, err := loader.New(db,
		loader.WithFilter(`location == "London" && row > 1`),
		loader.WithHandler(loader.HandlerFunc(func(_ context.Context, e loader.Event, _ *loader.Result) error {
			events = append(events, e)

			return nil
		})),
	)
	require.NoError(t, err)

	res, err := l.LoadReader(context.Background(), "e.csv", strings.NewReader(employees))
	require.NoError(t, err)

	c := res.Snapshot()
	assert.Equal(t, 1, c.Created)
	assert.Equal(t, 2, c.Skipped)

	require.Len(t, db.Runs(), 1)
	assert.Equal(t, "Cat", db.Runs()[0].Params["name"])

	actions := make([]loader.Action, len(events))
	for i, e := range events {
		actions[i] = e.Action
	}

	assert.Equal(t, []loader.Action{loader.ActionSkipped, loader.ActionSkipped, loader.ActionRun, loader.ActionCreated}, actions)
	assert.Equal(t, "Cat", events[2].Params["name"])
	assert.Equal(t, "e.csv:3", events[2].ID())
}

func TestLoader_RunEvents(t *testing.T) {
	db := neokittest.New()

	var events []loader.Event

	l, err := loader.New(db,
		loader.WithHandler(loader.HandlerFunc(func(_ context.Context, e loader.Event, _ *loader.Result) error {
			events = append(events, e)

			return nil
		})),
	)
	require.NoError(t, err)

	res, err := l.LoadReader(context.Background(), "e.csv", strings.NewReader(employees))
	require.NoError(t, err)

	var got []string
	for _, e := range events {
		got = append(got, string(e.Action)+" "+e.ID())
	}

	want := []string{
		"run e.csv:1", "unchanged e.csv:1",
		"run e.csv:2", "unchanged e.csv:2",
		"run e.csv:3", "unchanged e.csv:3",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, 3, res.Snapshot().Total, "run events are not counted")

	// A handler refusing the run event stops the load before the query.
	stop := errors.New("stop")
	l, err = loader.New(db, loader.WithHandler(loader.HandlerFunc(func(_ context.Context, e loader.Event, _ *loader.Result) error {
		if e.Action == loader.ActionRun {
			return stop
		}

		return nil
	})))
	require.NoError(t, err)

	before := len(db.Runs())
	_, err = l.LoadReader(context.Background(), "e.csv", strings.NewReader(employees))
	require.ErrorIs(t, err, stop)
	assert.Len(t, db.Runs(), before)
}

func TestLoader_InvalidFilter(t *testing.T) {
	_, err := loader.New(neokittest.New(), loader.WithFilter(`location ==`))
	require.ErrorContains(t, err, "filter")
}

func TestLoader_CustomQuery(t *testing.T) {
	const query = "MERGE (:City {name: $location})"

	db := neokittest.New().OnSummary(query, created(1))

	l, err := loader.New(db, loader.WithQuery(query))
	require.NoError(t, err)
	assert.Equal(t, []string{"location"}, l.Params())

	_, err = l.LoadReader(context.Background(), "e.csv", strings.NewReader(employees))
	require.NoError(t, err)

	for _, run := range db.Runs() {
		assert.Len(t, run.Params, 1, "only referenced columns are bound")
	}

	_, err = loader.New(db, loader.WithQuery("MERGE (:City)"))
	require.Error(t, err)
}

func TestLoader_MissingColumn(t *testing.T) {
	l, err := loader.New(neokittest.New())
	require.NoError(t, err)

	_, err = l.LoadReader(context.Background(), "e.csv", strings.NewReader("id,name\n1,Ann\n"))
	require.ErrorContains(t, err, "gov_id")
}

func TestLoader_StopOnError(t *testing.T) {
	db := neokittest.New().Fail(loader.DefaultQuery, &neokit.QueryError{Code: "Neo.ClientError.Schema.ConstraintValidationFailed"})

	l, err := loader.New(db, loader.WithStopOnError(2))
	require.NoError(t, err)

	res, err := l.LoadReader(context.Background(), "e.csv", strings.NewReader(employees))
	require.NoError(t, err)

	c := res.Snapshot()
	assert.Equal(t, 2, c.Errors)
	assert.Len(t, db.Runs(), 2)
	assert.False(t, res.Ok())

	require.Len(t, res.Failures, 2)
	assert.Equal(t, 2, res.Failures[1].Row)
	assert.True(t, errors.Is(res.Failures[0].Err, neokit.ErrQuery))
}

func TestLoader_MalformedRow(t *testing.T) {
	db := neokittest.New().OnSummary(loader.DefaultQuery, created(1))

	l, err := loader.New(db)
	require.NoError(t, err)

	data := "id,name,gov_id,location,company,position\n1,Ann\n2,Bob,GOV-2,Paris,Acme,Manager\n"

	res, err := l.LoadReader(context.Background(), "e.csv", strings.NewReader(data))
	require.NoError(t, err)

	c := res.Snapshot()
	assert.Equal(t, 1, c.Errors)
	assert.Equal(t, 1, c.Created)
}

func TestLoader_LoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.csv"), []byte(employees), 0o600))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "a.csv"), []byte(employees), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))

	files, err := loader.Discover(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "b.csv"), filepath.Join(dir, "sub", "a.csv")}, files)

	db := neokittest.New().OnSummary(loader.DefaultQuery, created(1))

	l, err := loader.New(db)
	require.NoError(t, err)

	res, err := l.LoadDir(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 6, res.Snapshot().Total)
	assert.Len(t, res.Files, 2)

	_, err = l.LoadDir(context.Background(), t.TempDir())
	require.ErrorContains(t, err, "no .csv files")
}

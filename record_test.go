package neokit_test

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/rlch/neokit"
)

func TestRecord_Get(t *testing.T) {
	rec := neokit.NewRecord([]string{"a", "b"}, 1)

	if v, ok := rec.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %v, %v", v, ok)
	}

	if v, ok := rec.Get("b"); !ok || v != nil {
		t.Errorf("Get(b) = %v, %v, want nil, true", v, ok)
	}

	if _, ok := rec.Get("c"); ok {
		t.Error("Get(c) ok = true, want false")
	}
}

func TestRecord_MarshalJSON(t *testing.T) {
	rec := neokit.NewRecord([]string{"z", "a", "m"}, "last", 1, []any{true})

	got, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	want := `{"z":"last","a":1,"m":[true]}`
	if string(got) != want {
		t.Errorf("Marshal() = %s, want %s", got, want)
	}
}

func TestRecord_Flatten(t *testing.T) {
	tests := []struct {
		name string
		rec  neokit.Record
		want neokit.Record
	}{
		{
			name: "primitives",
			rec:  neokit.NewRecord([]string{"name", "age"}, "Alice", int64(30)),
			want: neokit.NewRecord([]string{"name", "age"}, "Alice", int64(30)),
		},
		{
			name: "node",
			rec: neokit.NewRecord([]string{"p"}, neokit.Node{
				ElementID:  "4:x:1",
				Labels:     []string{"Person"},
				Properties: map[string]any{"name": "Alice", "age": int64(30)},
			}),
			want: neokit.NewRecord(
				[]string{"p.elementId", "p.labels", "p.age", "p.name"},
				"4:x:1", []string{"Person"}, int64(30), "Alice",
			),
		},
		{
			name: "relationship",
			rec: neokit.NewRecord([]string{"r"}, neokit.Relationship{
				ElementID:  "5:x:1",
				Type:       "ACTED_IN",
				Properties: map[string]any{"roles": []any{"Neo"}},
			}),
			want: neokit.NewRecord(
				[]string{"r.elementId", "r.type", "r.roles"},
				"5:x:1", "ACTED_IN", []any{"Neo"},
			),
		},
		{
			name: "map",
			rec:  neokit.NewRecord([]string{"m"}, map[string]any{"b": 2, "a": 1}),
			want: neokit.NewRecord([]string{"m.a", "m.b"}, 1, 2),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, tt.rec.Flatten()); diff != "" {
				t.Errorf("Flatten() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRequest_With(t *testing.T) {
	base := neokit.NewRequest("RETURN $x", map[string]any{"x": 1})
	next := base.With("y", 2)

	if _, ok := base.Params["y"]; ok {
		t.Error("With() mutated the original request")
	}

	want := map[string]any{"x": 1, "y": 2}
	if diff := cmp.Diff(want, next.Params); diff != "" {
		t.Errorf("With() mismatch (-want +got):\n%s", diff)
	}
}

func TestCounters(t *testing.T) {
	var total neokit.Counters
	if total.ContainsUpdates() {
		t.Error("zero counters report updates")
	}

	total.Add(neokit.Counters{NodesCreated: 1, PropertiesSet: 2})
	total.Add(neokit.Counters{NodesCreated: 1, RelationshipsCreated: 1})

	want := neokit.Counters{NodesCreated: 2, PropertiesSet: 2, RelationshipsCreated: 1}
	if diff := cmp.Diff(want, total); diff != "" {
		t.Errorf("Add() mismatch (-want +got):\n%s", diff)
	}

	if !total.ContainsUpdates() {
		t.Error("ContainsUpdates() = false, want true")
	}
}

func TestCounters_String(t *testing.T) {
	tests := []struct {
		name     string
		counters neokit.Counters
		want     string
	}{
		{
			name:     "data write",
			counters: neokit.Counters{NodesCreated: 1, PropertiesSet: 2},
			want:     "nodes_created=1 nodes_deleted=0 relationships_created=0 relationships_deleted=0 properties_set=2 labels_added=0",
		},
		{
			name:     "schema write",
			counters: neokit.Counters{ConstraintsAdded: 1, IndexesRemoved: 2},
			want:     "nodes_created=0 nodes_deleted=0 relationships_created=0 relationships_deleted=0 properties_set=0 labels_added=0 indexes_removed=2 constraints_added=1",
		},
		{
			name:     "labels removed",
			counters: neokit.Counters{LabelsRemoved: 3},
			want:     "nodes_created=0 nodes_deleted=0 relationships_created=0 relationships_deleted=0 properties_set=0 labels_added=0 labels_removed=3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.counters.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

package neokit_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/rlch/neokit"
)

func people() []neokit.Record {
	keys := []string{"name", "age"}

	return []neokit.Record{
		neokit.NewRecord(keys, "Alice", int64(30)),
		neokit.NewRecord(keys, "Bob", int64(25)),
		neokit.NewRecord(keys, "Carol", int64(41)),
	}
}

func TestResult_Collect(t *testing.T) {
	ctx := context.Background()
	res := neokit.NewStaticResult([]string{"name", "age"}, people(), neokit.Summary{})

	got, err := res.Collect(ctx)
	if err != nil {
		t.Fatalf("Collect() error: %v", err)
	}

	if diff := cmp.Diff(people(), got); diff != "" {
		t.Errorf("Collect() mismatch (-want +got):\n%s", diff)
	}

	// The cursor is not restartable.
	_, err = res.Collect(ctx)
	if !errors.Is(err, neokit.ErrResultConsumed) {
		t.Errorf("second Collect() = %v, want ErrResultConsumed", err)
	}
}

func TestResult_CollectEmpty(t *testing.T) {
	res := neokit.NewStaticResult([]string{"n"}, nil, neokit.Summary{})

	got, err := res.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect() error: %v", err)
	}

	if got == nil || len(got) != 0 {
		t.Errorf("Collect() = %#v, want empty non-nil slice", got)
	}
}

func TestResult_PrefixThenRest(t *testing.T) {
	ctx := context.Background()
	res := neokit.NewStaticResult([]string{"name", "age"}, people(), neokit.Summary{})

	if !res.Next(ctx) {
		t.Fatal("Next() = false, want true")
	}

	first := res.Record()
	if name, _ := first.Get("name"); name != "Alice" {
		t.Errorf("first name = %v, want Alice", name)
	}

	rest, err := res.Collect(ctx)
	if err != nil {
		t.Fatalf("Collect() error: %v", err)
	}

	if diff := cmp.Diff(people()[1:], rest); diff != "" {
		t.Errorf("Collect() mismatch (-want +got):\n%s", diff)
	}
}

func TestResult_All(t *testing.T) {
	ctx := context.Background()
	res := neokit.NewStaticResult([]string{"name", "age"}, people(), neokit.Summary{})

	var names []any

	for rec, err := range res.All(ctx) {
		if err != nil {
			t.Fatalf("All() error: %v", err)
		}

		name, _ := rec.Get("name")
		names = append(names, name)

		if len(names) == 2 {
			break
		}
	}

	if diff := cmp.Diff([]any{"Alice", "Bob"}, names); diff != "" {
		t.Errorf("All() mismatch (-want +got):\n%s", diff)
	}
}

func TestResult_Single(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		records []neokit.Record
		want    neokit.Record
		wantErr error
	}{
		{
			name:    "one",
			records: people()[:1],
			want:    people()[0],
		},
		{
			name:    "none",
			records: nil,
			wantErr: neokit.ErrNoRecords,
		},
		{
			name:    "many",
			records: people(),
			wantErr: neokit.ErrMultipleRecords,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := neokit.NewStaticResult([]string{"name", "age"}, tt.records, neokit.Summary{})

			got, err := res.Single(ctx)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Single() error = %v, want %v", err, tt.wantErr)
			}

			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Single() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResult_Consume(t *testing.T) {
	ctx := context.Background()
	summary := neokit.Summary{
		QueryType: neokit.QueryTypeWrite,
		Counters:  neokit.Counters{NodesCreated: 3},
	}

	res := neokit.NewStaticResult([]string{"name", "age"}, people(), summary)

	got, err := res.Consume(ctx)
	if err != nil {
		t.Fatalf("Consume() error: %v", err)
	}

	if diff := cmp.Diff(summary, got); diff != "" {
		t.Errorf("Consume() mismatch (-want +got):\n%s", diff)
	}

	if res.Next(ctx) {
		t.Error("Next() after Consume() = true, want false")
	}

	again, err := res.Consume(ctx)
	if err != nil || again.Counters.NodesCreated != 3 {
		t.Errorf("second Consume() = %v, %v", again, err)
	}
}

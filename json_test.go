package neokit_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/rlch/neokit"
)

func TestUnmarshalParams(t *testing.T) {
	got, err := neokit.UnmarshalParams([]byte(`{"n": 5, "f": 1.5, "big": 9007199254740993, "nested": {"ids": [1, 2.5]}, "s": "x"}`))
	require.NoError(t, err)

	want := map[string]any{
		"n":      int64(5),
		"f":      1.5,
		"big":    int64(9007199254740993),
		"nested": map[string]any{"ids": []any{int64(1), 2.5}},
		"s":      "x",
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("UnmarshalParams() mismatch (-want +got):\n%s", diff)
	}

	empty, err := neokit.UnmarshalParams([]byte(`null`))
	require.NoError(t, err)
	require.Empty(t, empty)

	_, err = neokit.UnmarshalParams([]byte(`[1]`))
	require.Error(t, err)

	_, err = neokit.UnmarshalParams([]byte(`{} {}`))
	require.Error(t, err)
}

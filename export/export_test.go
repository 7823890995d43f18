package export_test

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlch/neokit"
	"github.com/rlch/neokit/export"
)

func employees() []neokit.Record {
	return []neokit.Record{
		neokit.NewRecord([]string{"name", "company", "position"}, "Ann", "Acme", "Engineer"),
		neokit.NewRecord([]string{"name", "company", "position", "tags"}, "Bob, Jr.", "Acme", nil, []any{"a", "b"}),
	}
}

func TestRows(t *testing.T) {
	header, rows := export.Rows(employees())

	assert.Equal(t, []string{"name", "company", "position", "tags"}, header)

	want := [][]string{
		{"Ann", "Acme", "Engineer", ""},
		{"Bob, Jr.", "Acme", "", `["a","b"]`},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestRows_Node(t *testing.T) {
	rec := neokit.NewRecord([]string{"p"}, neokit.Node{
		ElementID:  "4:x:1",
		Labels:     []string{"Person"},
		Properties: map[string]any{"name": "Ann"},
	})

	header, rows := export.Rows([]neokit.Record{rec})
	assert.Contains(t, header, "p.name")
	assert.Contains(t, rows[0], "Ann")
}

func TestWrite_CSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.Write(&buf, export.FormatCSV, employees()))

	want := "name,company,position,tags\nAnn,Acme,Engineer,\n\"Bob, Jr.\",Acme,,\"[\"\"a\"\",\"\"b\"\"]\"\n"
	assert.Equal(t, want, buf.String())
}

func TestWrite_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.Write(&buf, export.FormatJSON, employees()[:1]))
	assert.JSONEq(t, `[{"name": "Ann", "company": "Acme", "position": "Engineer"}]`, buf.String())

	buf.Reset()
	require.NoError(t, export.Write(&buf, export.FormatJSON, nil))
	assert.JSONEq(t, `[]`, buf.String())

	buf.Reset()
	require.NoError(t, export.Write(&buf, export.FormatJSONL, employees()))
	assert.Equal(t, 2, bytes.Count(buf.Bytes(), []byte("\n")))
}

func TestWrite_Table(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.Write(&buf, export.FormatTable, employees()))

	out := buf.String()
	assert.Contains(t, out, "Engineer")
	assert.Contains(t, out, "(2 records)")

	buf.Reset()
	require.NoError(t, export.Write(&buf, export.FormatTable, nil))
	assert.Equal(t, "(no records)\n", buf.String())
}

func TestParseFormat(t *testing.T) {
	f, err := export.ParseFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, export.FormatJSON, f)

	_, err = export.ParseFormat("xml")
	require.Error(t, err)

	assert.Equal(t, export.FormatCSV, export.DefaultFormat(&bytes.Buffer{}))
}

// Package export writes query records as a table, CSV or JSON.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-isatty"

	"github.com/rlch/neokit"
)

// Format is an output format.
type Format string

// Output formats.
const (
	FormatTable Format = "table"
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
	FormatJSONL Format = "jsonl"
)

// Formats lists the supported formats.
var Formats = []Format{FormatTable, FormatCSV, FormatJSON, FormatJSONL}

// ParseFormat validates a format name. An empty name selects DefaultFormat
// for stdout.
func ParseFormat(name string) (Format, error) {
	if name == "" {
		return DefaultFormat(os.Stdout), nil
	}

	f := Format(strings.ToLower(name))
	if !slices.Contains(Formats, f) {
		return "", fmt.Errorf("export: unknown format %q", name)
	}

	return f, nil
}

// DefaultFormat is a table on a terminal and CSV otherwise.
func DefaultFormat(w io.Writer) Format {
	if f, ok := w.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return FormatTable
	}

	return FormatCSV
}

// Write renders records to w. Table and CSV output flatten graph values
// into "alias.property" columns.
func Write(w io.Writer, format Format, records []neokit.Record) error {
	switch format {
	case FormatTable:
		return writeTable(w, records)
	case FormatCSV:
		return writeCSV(w, records)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		if records == nil {
			records = []neokit.Record{}
		}

		return enc.Encode(records)
	case FormatJSONL:
		enc := json.NewEncoder(w)

		for _, r := range records {
			if err := enc.Encode(r); err != nil {
				return err
			}
		}

		return nil
	default:
		return fmt.Errorf("export: unknown format %q", format)
	}
}

// Rows flattens records into a header and string cells. Columns appear in
// first-seen order; a record without a column gets an empty cell.
func Rows(records []neokit.Record) ([]string, [][]string) {
	var header []string

	flat := make([]neokit.Record, len(records))

	for i, r := range records {
		flat[i] = r.Flatten()

		for _, k := range flat[i].Keys {
			if !slices.Contains(header, k) {
				header = append(header, k)
			}
		}
	}

	rows := make([][]string, len(flat))

	for i, r := range flat {
		row := make([]string, len(header))

		for j, k := range header {
			if v, ok := r.Get(k); ok {
				row[j] = Cell(v)
			}
		}

		rows[i] = row
	}

	return header, rows
}

// Cell renders one value as text. Lists, maps and graph values are JSON.
func Cell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool, int, int32, int64, float32, float64:
		return fmt.Sprint(t)
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}

		return string(data)
	}
}

func writeCSV(w io.Writer, records []neokit.Record) error {
	header, rows := Rows(records)

	cw := csv.NewWriter(w)

	if len(header) > 0 {
		if err := cw.Write(header); err != nil {
			return err
		}
	}

	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("export: csv: %w", err)
	}

	return nil
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#018BFF")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderColor = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
)

func writeTable(w io.Writer, records []neokit.Record) error {
	header, rows := Rows(records)

	if len(header) == 0 {
		_, err := fmt.Fprintln(w, "(no records)")

		return err
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderColor).
		Headers(header...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}

			return cellStyle
		})

	_, err := fmt.Fprintf(w, "%s\n(%d %s)\n", t.String(), len(rows), plural(len(rows), "record"))

	return err
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}

	return word + "s"
}

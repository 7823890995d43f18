package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/rlch/neokit"
)

// Formatter renders row events and the final result.
type Formatter interface {
	Format(event Event, result *Result) error
	Summary(result *Result) error
}

// FormatHandler is a Handler that delegates to a Formatter.
type FormatHandler struct {
	formatter Formatter
}

// NewFormatHandler creates a handler that formats events.
func NewFormatHandler(f Formatter) *FormatHandler {
	return &FormatHandler{formatter: f}
}

// Event formats the event.
func (h *FormatHandler) Event(_ context.Context, event Event, result *Result) error {
	return h.formatter.Format(event, result)
}

// Summary renders the final summary.
func (h *FormatHandler) Summary(result *Result) error {
	return h.formatter.Summary(result)
}

// -----------------------------------------------------------------------------
// Dots Formatter
// -----------------------------------------------------------------------------

// DotsFormatter prints one character per row.
type DotsFormatter struct {
	w     io.Writer
	count int
}

// NewDotsFormatter creates a dots formatter.
func NewDotsFormatter(w io.Writer) *DotsFormatter {
	return &DotsFormatter{w: w}
}

const lineWidth = 80

// Format prints "." for created, "-" for unchanged, "S" for skipped and
// "E" for failed rows.
func (d *DotsFormatter) Format(event Event, _ *Result) error {
	var char string

	switch event.Action {
	case ActionCreated:
		char = "."
	case ActionUnchanged:
		char = "-"
	case ActionSkipped:
		char = "S"
	case ActionError:
		char = "E"
	case ActionRun:
		return nil
	}

	_, err := fmt.Fprint(d.w, char)
	d.count++

	if d.count%lineWidth == 0 {
		_, _ = fmt.Fprintln(d.w)
	}

	return err
}

// Summary prints failures and the totals.
func (d *DotsFormatter) Summary(result *Result) error {
	if d.count > 0 && d.count%lineWidth != 0 {
		_, _ = fmt.Fprintln(d.w)
	}

	_, _ = fmt.Fprintln(d.w)

	writeFailures(d.w, result)
	writeTotals(d.w, result)

	return nil
}

func writeFailures(w io.Writer, result *Result) {
	result.mu.RLock()
	failures := append([]RowError(nil), result.Failures...)
	result.mu.RUnlock()

	for _, f := range failures {
		_, _ = fmt.Fprintf(w, "ERROR %s:%d: %v\n", f.File, f.Row, f.Err)
	}

	if len(failures) > 0 {
		_, _ = fmt.Fprintln(w)
	}
}

func writeTotals(w io.Writer, result *Result) {
	c := result.Snapshot()

	status := "OK"
	if !result.Ok() {
		status = "FAIL"
	}

	_, _ = fmt.Fprintf(w, "%s %d rows, %d created, %d unchanged, %d skipped, %d errors in %s\n",
		status, c.Total, c.Created, c.Unchanged, c.Skipped, c.Errors,
		result.Elapsed().Round(time.Millisecond),
	)
	_, _ = fmt.Fprintf(w, "  %s\n", c.Counters)
}

// -----------------------------------------------------------------------------
// Verbose Formatter
// -----------------------------------------------------------------------------

// VerboseFormatter prints every row and its counters.
type VerboseFormatter struct {
	w io.Writer
}

// NewVerboseFormatter creates a verbose formatter.
func NewVerboseFormatter(w io.Writer) *VerboseFormatter {
	return &VerboseFormatter{w: w}
}

// Format prints each event as it occurs.
func (v *VerboseFormatter) Format(event Event, _ *Result) error {
	switch event.Action {
	case ActionRun:
		_, _ = fmt.Fprintf(v.w, "=== ROW     %s\n", event.ID())
	case ActionCreated:
		_, _ = fmt.Fprintf(v.w, "--- CREATED: %s (%s)\n", event.ID(), event.Elapsed)
		_, _ = fmt.Fprintf(v.w, "    %s\n", event.Counters)
	case ActionUnchanged:
		_, _ = fmt.Fprintf(v.w, "--- UNCHANGED: %s (%s)\n", event.ID(), event.Elapsed)
	case ActionSkipped:
		_, _ = fmt.Fprintf(v.w, "--- SKIP: %s\n", event.ID())
	case ActionError:
		_, _ = fmt.Fprintf(v.w, "--- ERROR: %s (%s)\n", event.ID(), event.Elapsed)
		_, _ = fmt.Fprintf(v.w, "    %v\n", event.Error)
	}

	return nil
}

// Summary prints the totals.
func (v *VerboseFormatter) Summary(result *Result) error {
	_, _ = fmt.Fprintln(v.w)
	writeTotals(v.w, result)

	return nil
}

// -----------------------------------------------------------------------------
// JSON Formatter
// -----------------------------------------------------------------------------

// JSONFormatter outputs newline-delimited JSON events.
type JSONFormatter struct {
	enc *json.Encoder
}

// NewJSONFormatter creates a JSON formatter.
func NewJSONFormatter(w io.Writer) *JSONFormatter {
	return &JSONFormatter{enc: json.NewEncoder(w)}
}

type jsonEvent struct {
	Time     string           `json:"time"`
	Action   string           `json:"action"`
	File     string           `json:"file"`
	Row      int              `json:"row"`
	Params   map[string]any   `json:"params,omitempty"`
	Elapsed  float64          `json:"elapsed,omitempty"`
	Counters *neokit.Counters `json:"counters,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// Format outputs a JSON event.
func (j *JSONFormatter) Format(event Event, _ *Result) error {
	je := jsonEvent{
		Time:   event.Time.Format(time.RFC3339Nano),
		Action: string(event.Action),
		File:   event.File,
		Row:    event.Row,
		Params: event.Params,
	}

	if event.Action.IsTerminal() {
		je.Elapsed = event.Elapsed.Seconds()
	}

	if event.Counters.ContainsUpdates() {
		counters := event.Counters
		je.Counters = &counters
	}

	if event.Error != nil {
		je.Error = event.Error.Error()
	}

	return j.enc.Encode(je)
}

type jsonSummary struct {
	Action    string          `json:"action"`
	Total     int             `json:"total"`
	Created   int             `json:"created"`
	Unchanged int             `json:"unchanged"`
	Skipped   int             `json:"skipped"`
	Errors    int             `json:"errors"`
	Counters  neokit.Counters `json:"counters"`
	Elapsed   float64         `json:"elapsed"`
	Ok        bool            `json:"ok"`
}

// Summary outputs the final JSON summary.
func (j *JSONFormatter) Summary(result *Result) error {
	c := result.Snapshot()

	return j.enc.Encode(jsonSummary{
		Action:    "summary",
		Total:     c.Total,
		Created:   c.Created,
		Unchanged: c.Unchanged,
		Skipped:   c.Skipped,
		Errors:    c.Errors,
		Counters:  c.Counters,
		Elapsed:   result.Elapsed().Seconds(),
		Ok:        result.Ok(),
	})
}

// -----------------------------------------------------------------------------
// Progress Formatter
// -----------------------------------------------------------------------------

var (
	progressStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#018BFF")).Bold(true)
	okStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
	failStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Bold(true)
)

// ProgressFormatter redraws a single status line. Meant for terminals.
type ProgressFormatter struct {
	w        io.Writer
	interval time.Duration
	last     time.Time
}

// NewProgressFormatter creates a progress formatter.
func NewProgressFormatter(w io.Writer) *ProgressFormatter {
	return &ProgressFormatter{w: w, interval: 100 * time.Millisecond}
}

// Format redraws the status line at most every interval.
func (p *ProgressFormatter) Format(event Event, result *Result) error {
	if !event.Action.IsTerminal() || time.Since(p.last) < p.interval {
		return nil
	}

	p.last = time.Now()
	p.draw(result)

	return nil
}

func (p *ProgressFormatter) draw(result *Result) {
	c := result.Snapshot()

	_, _ = fmt.Fprintf(p.w, "\r%s %d rows  %d created  %d unchanged  %d skipped  %d errors",
		progressStyle.Render("loading"), c.Total, c.Created, c.Unchanged, c.Skipped, c.Errors)
}

// Summary draws the final line, then failures and totals.
func (p *ProgressFormatter) Summary(result *Result) error {
	p.draw(result)
	_, _ = fmt.Fprint(p.w, "\n\n")

	writeFailures(p.w, result)

	if result.Ok() {
		_, _ = fmt.Fprint(p.w, okStyle.Render("done")+" ")
	} else {
		_, _ = fmt.Fprint(p.w, failStyle.Render("failed")+" ")
	}

	writeTotals(p.w, result)

	return nil
}

// NewFormatter creates a formatter by name: dots, verbose, json or
// progress. "auto" and "" pick progress on a terminal, dots otherwise.
func NewFormatter(name string, w io.Writer) Formatter {
	switch name {
	case "verbose":
		return NewVerboseFormatter(w)
	case "json":
		return NewJSONFormatter(w)
	case "progress":
		return NewProgressFormatter(w)
	case "", "auto":
		if IsTerminal(w) {
			return NewProgressFormatter(w)
		}

		return NewDotsFormatter(w)
	default:
		return NewDotsFormatter(w)
	}
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

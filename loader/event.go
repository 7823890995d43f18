// Package loader imports CSV rows into the graph, running one parameterized
// write query per row and reporting progress as events.
package loader

import (
	"fmt"
	"time"

	"github.com/rlch/neokit"
)

// Action is what happened to a row.
type Action string

// Row actions.
const (
	ActionRun       Action = "run"
	ActionCreated   Action = "created"
	ActionUnchanged Action = "unchanged"
	ActionSkipped   Action = "skipped"
	ActionError     Action = "error"
)

// IsTerminal reports whether the action finishes a row.
func (a Action) IsTerminal() bool {
	return a == ActionCreated || a == ActionUnchanged || a == ActionSkipped || a == ActionError
}

// Event is emitted for each row as it is processed.
type Event struct {
	Time     time.Time
	Action   Action
	File     string
	Row      int // 1-based, header excluded
	Params   map[string]any
	Elapsed  time.Duration
	Counters neokit.Counters
	Error    error
}

// ID returns "file:row".
func (e Event) ID() string {
	return fmt.Sprintf("%s:%d", e.File, e.Row)
}

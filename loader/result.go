package loader

import (
	"sync"
	"time"

	"github.com/rlch/neokit"
)

// Result accumulates row outcomes during a load.
type Result struct {
	mu sync.RWMutex

	StartTime time.Time
	EndTime   time.Time

	Files     []string
	Total     int
	Created   int
	Unchanged int
	Skipped   int
	Errors    int

	// Counters sums the update counters of every row.
	Counters neokit.Counters

	Failures []RowError
}

// RowError is one row that could not be loaded.
type RowError struct {
	File   string
	Row    int
	Params map[string]any
	Err    error
}

// NewResult creates a Result started now.
func NewResult() *Result {
	return &Result{StartTime: time.Now()}
}

// Add records a terminal event.
func (r *Result) Add(event Event) {
	if !event.Action.IsTerminal() {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.Total++
	r.Counters.Add(event.Counters)

	switch event.Action {
	case ActionCreated:
		r.Created++
	case ActionUnchanged:
		r.Unchanged++
	case ActionSkipped:
		r.Skipped++
	case ActionError:
		r.Errors++
		r.Failures = append(r.Failures, RowError{
			File:   event.File,
			Row:    event.Row,
			Params: event.Params,
			Err:    event.Error,
		})
	case ActionRun:
		// Not terminal
	}
}

func (r *Result) addFile(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Files = append(r.Files, name)
}

// Finish marks the load complete.
func (r *Result) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.EndTime = time.Now()
}

// Elapsed returns the load time so far.
func (r *Result) Elapsed() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.EndTime.IsZero() {
		return time.Since(r.StartTime)
	}

	return r.EndTime.Sub(r.StartTime)
}

// Ok reports whether every row loaded.
func (r *Result) Ok() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.Errors == 0
}

// Counts is a point-in-time copy of the tallies.
type Counts struct {
	Total, Created, Unchanged, Skipped, Errors int
	Counters                                   neokit.Counters
}

// Snapshot copies the current tallies.
func (r *Result) Snapshot() Counts {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return Counts{
		Total:     r.Total,
		Created:   r.Created,
		Unchanged: r.Unchanged,
		Skipped:   r.Skipped,
		Errors:    r.Errors,
		Counters:  r.Counters,
	}
}

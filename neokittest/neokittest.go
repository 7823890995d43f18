// Package neokittest provides an in-memory neokit database for tests.
package neokittest

import (
	"context"
	"sync"

	"github.com/rlch/neokit"
)

// Responder produces the records, summary or error for a request.
type Responder func(req neokit.Request) ([]neokit.Record, neokit.Summary, error)

// Database is an in-memory neokit.Transactional. Queries are answered from
// canned results keyed by query text; unknown queries return no records.
// It records every request it runs.
type Database struct {
	mu        sync.Mutex
	results   map[string][]neokit.Record
	summaries map[string]neokit.Summary
	errs      map[string]error
	responder Responder

	runs   []neokit.Request
	modes  []neokit.AccessMode
	closed bool
}

// New returns an empty Database.
func New() *Database {
	return &Database{
		results:   make(map[string][]neokit.Record),
		summaries: make(map[string]neokit.Summary),
		errs:      make(map[string]error),
	}
}

// On sets the records returned for query.
func (d *Database) On(query string, records ...neokit.Record) *Database {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.results[query] = records

	return d
}

// OnSummary sets the summary returned for query.
func (d *Database) OnSummary(query string, summary neokit.Summary) *Database {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.summaries[query] = summary

	return d
}

// Fail makes query fail with err.
func (d *Database) Fail(query string, err error) *Database {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.errs[query] = err

	return d
}

// Respond answers every query with fn, overriding canned results.
func (d *Database) Respond(fn Responder) *Database {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.responder = fn

	return d
}

// Runs returns every request run so far.
func (d *Database) Runs() []neokit.Request {
	d.mu.Lock()
	defer d.mu.Unlock()

	return append([]neokit.Request(nil), d.runs...)
}

// Modes returns the access mode of every session opened so far.
func (d *Database) Modes() []neokit.AccessMode {
	d.mu.Lock()
	defer d.mu.Unlock()

	return append([]neokit.AccessMode(nil), d.modes...)
}

// Closed reports whether Close was called.
func (d *Database) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.closed
}

// Name returns "memory".
func (d *Database) Name() string { return "memory" }

// VerifyConnectivity always succeeds.
func (d *Database) VerifyConnectivity(context.Context) error { return nil }

// Close marks the database closed.
func (d *Database) Close(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closed = true

	return nil
}

// WithSession runs fn with a session on d.
func (d *Database) WithSession(_ context.Context, mode neokit.AccessMode, fn func(neokit.Runner) error) error {
	d.mu.Lock()
	d.modes = append(d.modes, mode)
	d.mu.Unlock()

	return fn(runner{d})
}

// WithTransaction runs fn like WithSession; there is no rollback.
func (d *Database) WithTransaction(ctx context.Context, mode neokit.AccessMode, fn func(neokit.Runner) error) error {
	return d.WithSession(ctx, mode, fn)
}

// ExecuteQuery runs req and materializes the result.
func (d *Database) ExecuteQuery(ctx context.Context, req neokit.Request, mode neokit.AccessMode) (*neokit.EagerResult, error) {
	res := &neokit.EagerResult{}

	err := d.WithSession(ctx, mode, func(r neokit.Runner) error {
		result, err := r.Run(ctx, req)
		if err != nil {
			return err
		}

		res.Keys, _ = result.Keys()

		if res.Records, err = result.Collect(ctx); err != nil {
			return err
		}

		res.Summary, err = result.Consume(ctx)

		return err
	})
	if err != nil {
		return nil, err
	}

	return res, nil
}

func (d *Database) run(req neokit.Request) (*neokit.Result, error) {
	d.mu.Lock()
	d.runs = append(d.runs, req)
	responder := d.responder
	records, summary, err := d.results[req.Text], d.summaries[req.Text], d.errs[req.Text]
	d.mu.Unlock()

	if responder != nil {
		records, summary, err = responder(req)
	}

	if err != nil {
		return nil, err
	}

	summary.Query = req

	var keys []string
	if len(records) > 0 {
		keys = records[0].Keys
	}

	return neokit.NewStaticResult(keys, records, summary), nil
}

type runner struct{ d *Database }

func (r runner) Run(_ context.Context, req neokit.Request) (*neokit.Result, error) {
	return r.d.run(req)
}

var _ neokit.Transactional = (*Database)(nil)

package loader

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/boyter/gocodewalker"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rlch/neokit"
	"github.com/rlch/neokit/cypher"
)

// DefaultQuery loads one employee row: a person, where they live and where
// they work.
const DefaultQuery = `MERGE (p:Person {id: toInteger($id), name: $name, governmentId: $gov_id})
MERGE (l:Location {name: $location})
MERGE (c:Company {name: $company})
MERGE (p)-[:LIVES_IN]->(l)
MERGE (p)-[:WORKS_AT {position: $position}]->(c)`

// Loader runs a write query for every row of a CSV file. Column values are
// bound to the query parameters of the same name.
type Loader struct {
	provider  neokit.SessionProvider
	query     string
	params    []string
	handler   Handler
	maxErrors int
	where     string
	filter    *vm.Program
	logger    *zap.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithQuery replaces DefaultQuery.
func WithQuery(query string) Option {
	return func(l *Loader) {
		l.query = query
	}
}

// WithHandler sets the event handler.
func WithHandler(h Handler) Option {
	return func(l *Loader) {
		l.handler = h
	}
}

// WithStopOnError stops after n failed rows. Zero never stops.
func WithStopOnError(n int) Option {
	return func(l *Loader) {
		l.maxErrors = n
	}
}

// WithFilter only loads rows for which the expr-lang expression is true.
// Columns are variables holding strings, and row holds the row number,
// e.g. `location == "London" && row > 10`.
func WithFilter(expression string) Option {
	return func(l *Loader) {
		l.where = expression
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New creates a Loader. The query must use at least one parameter.
func New(provider neokit.SessionProvider, opts ...Option) (*Loader, error) {
	l := &Loader{
		provider: provider,
		query:    DefaultQuery,
		logger:   zap.NewNop(),
	}

	for _, opt := range opts {
		opt(l)
	}

	params, err := cypher.Parameters(l.query)
	if err != nil {
		return nil, fmt.Errorf("loader: query: %w", err)
	}

	if len(params) == 0 {
		return nil, errors.New("loader: query has no parameters to bind columns to")
	}

	l.params = params

	if strings.TrimSpace(l.where) != "" {
		program, err := expr.Compile(l.where, expr.AsBool(), expr.AllowUndefinedVariables())
		if err != nil {
			return nil, fmt.Errorf("loader: filter: %w", err)
		}

		l.filter = program
	}

	return l, nil
}

// Params returns the query parameters columns are bound to.
func (l *Loader) Params() []string {
	return slices.Clone(l.params)
}

// LoadFile loads one CSV file.
func (l *Loader) LoadFile(ctx context.Context, path string) (*Result, error) {
	return l.LoadFiles(ctx, []string{path})
}

// LoadDir loads every .csv file under root, honouring .gitignore and
// .ignore files. Files load in path order.
func (l *Loader) LoadDir(ctx context.Context, root string) (*Result, error) {
	files, err := Discover(root)
	if err != nil {
		return nil, err
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("loader: no .csv files under %s", root)
	}

	return l.LoadFiles(ctx, files)
}

// LoadFiles loads files in order into one Result.
func (l *Loader) LoadFiles(ctx context.Context, paths []string) (*Result, error) {
	result := NewResult()
	handler := l.newHandler()
	runID := uuid.NewString()

	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return result, fmt.Errorf("loader: %w", err)
		}

		err = l.load(ctx, runID, path, f, handler, result)
		_ = f.Close()

		if errors.Is(err, ErrMaxErrors) {
			break
		}

		if err != nil {
			return result, err
		}
	}

	result.Finish()

	return result, nil
}

// LoadReader loads CSV data from r. name identifies the source in events.
func (l *Loader) LoadReader(ctx context.Context, name string, r io.Reader) (*Result, error) {
	result := NewResult()

	err := l.load(ctx, uuid.NewString(), name, r, l.newHandler(), result)
	if err != nil && !errors.Is(err, ErrMaxErrors) {
		return result, err
	}

	result.Finish()

	return result, nil
}

func (l *Loader) newHandler() Handler {
	handlers := []Handler{ResultHandler{}}
	if l.handler != nil {
		handlers = append(handlers, l.handler)
	}

	if l.maxErrors > 0 {
		handlers = append(handlers, NewStopOnErrorHandler(l.maxErrors))
	}

	return NewMultiHandler(handlers...)
}

func (l *Loader) load(ctx context.Context, runID, name string, r io.Reader, handler Handler, result *Result) error {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("loader: %s: header: %w", name, err)
	}

	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	if missing := missingColumns(header, l.params); len(missing) > 0 {
		return fmt.Errorf("loader: %s: missing columns for parameters: %s", name, strings.Join(missing, ", "))
	}

	result.addFile(name)

	logger := l.logger.With(zap.String("run", runID), zap.String("file", name))
	logger.Debug("Loading file", zap.Strings("columns", header))

	start := time.Now()

	err = l.provider.WithSession(ctx, neokit.AccessWrite, func(runner neokit.Runner) error {
		for row := 1; ; row++ {
			if err := ctx.Err(); err != nil {
				return err
			}

			fields, err := reader.Read()
			if errors.Is(err, io.EOF) {
				return nil
			}

			var parseErr *csv.ParseError
			if err != nil && !errors.As(err, &parseErr) {
				return fmt.Errorf("loader: %s: %w", name, err)
			}

			event, err := l.row(ctx, runner, handler, result, name, row, header, fields, err)
			if err != nil {
				return err
			}

			if err := handler.Event(ctx, event, result); err != nil {
				return err
			}
		}
	})

	c := result.Snapshot()
	logger.Info("Loaded file",
		zap.Int("rows", c.Total),
		zap.Int("errors", c.Errors),
		zap.Duration("elapsed", time.Since(start)))

	return err
}

// row loads one record and returns its terminal event. A run event goes to
// handler just before the query executes; a handler error stops the load.
func (l *Loader) row(
	ctx context.Context,
	runner neokit.Runner,
	handler Handler,
	result *Result,
	name string,
	row int,
	header, fields []string,
	parseErr error,
) (Event, error) {
	start := time.Now()
	event := Event{Time: start, File: name, Row: row}

	if parseErr != nil {
		event.Action = ActionError
		event.Error = parseErr

		return event, nil
	}

	columns := make(map[string]string, len(header))
	for i, col := range header {
		if i < len(fields) {
			columns[col] = fields[i]
		}
	}

	if l.filter != nil {
		keep, err := l.keep(columns, row)
		if err != nil {
			event.Action = ActionError
			event.Error = err

			return event, nil
		}

		if !keep {
			event.Action = ActionSkipped

			return event, nil
		}
	}

	params := make(map[string]any, len(l.params))
	for _, p := range l.params {
		params[p] = columns[p]
	}

	event.Params = params

	if err := handler.Event(ctx, Event{Time: start, Action: ActionRun, File: name, Row: row, Params: params}, result); err != nil {
		return event, err
	}

	summary, err := l.run(ctx, runner, neokit.Request{Text: l.query, Params: params})

	event.Elapsed = time.Since(start)
	event.Time = time.Now()

	switch {
	case err != nil:
		event.Action = ActionError
		event.Error = err
	case summary.Counters.ContainsUpdates():
		event.Action = ActionCreated
		event.Counters = summary.Counters
	default:
		event.Action = ActionUnchanged
	}

	return event, nil
}

func (l *Loader) run(ctx context.Context, runner neokit.Runner, req neokit.Request) (neokit.Summary, error) {
	res, err := runner.Run(ctx, req)
	if err != nil {
		return neokit.Summary{}, err
	}

	return res.Consume(ctx)
}

func (l *Loader) keep(columns map[string]string, row int) (bool, error) {
	env := make(map[string]any, len(columns)+1)
	for k, v := range columns {
		env[k] = v
	}

	env["row"] = row

	out, err := expr.Run(l.filter, env)
	if err != nil {
		return false, fmt.Errorf("filter: %w", err)
	}

	keep, _ := out.(bool)

	return keep, nil
}

func missingColumns(header, params []string) []string {
	var missing []string

	for _, p := range params {
		if !slices.Contains(header, p) {
			missing = append(missing, p)
		}
	}

	return missing
}

// Discover returns the .csv files under root, sorted. Ignore files are
// respected.
func Discover(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}

	if !info.IsDir() {
		return []string{root}, nil
	}

	queue := make(chan *gocodewalker.File, 100)

	walker := gocodewalker.NewFileWalker(root, queue)
	walker.AllowListExtensions = []string{"csv"}

	var walkErr error

	walker.SetErrorHandler(func(e error) bool {
		walkErr = e

		return true
	})

	var (
		files []string
		wg    sync.WaitGroup
	)

	wg.Add(1)

	go func() {
		defer wg.Done()

		for f := range queue {
			files = append(files, filepath.Clean(f.Location))
		}
	}()

	if err := walker.Start(); err != nil {
		return nil, err
	}

	wg.Wait()

	slices.Sort(files)

	return files, walkErr
}

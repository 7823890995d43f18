// Package tools maps named, schema-described tools onto parameterized Cypher
// queries. A Registry validates incoming arguments against each tool's JSON
// schema, binds them into a query, runs exactly one query through a
// neokit.SessionProvider and shapes the records into a response payload.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"go.uber.org/zap"

	"github.com/rlch/neokit"
	"github.com/rlch/neokit/cypher"
)

// Registration errors.
var (
	ErrInvalidTool   = errors.New("tools: invalid tool")
	ErrDuplicateTool = errors.New("tools: duplicate tool")
)

// BindFunc maps validated arguments onto the request that will be executed.
type BindFunc func(ctx context.Context, tmpl neokit.Request, args map[string]any) (neokit.Request, error)

// ShapeFunc turns an executed query into the response payload.
type ShapeFunc func(ctx context.Context, args map[string]any, res *neokit.EagerResult) (any, error)

// Tool is a named operation backed by one Cypher query.
type Tool struct {
	Name        string
	Title       string
	Description string

	// Schema describes the arguments. It must be an object schema; nil
	// accepts an empty object.
	Schema *jsonschema.Schema

	// Defaults fill optional arguments the caller left out.
	Defaults map[string]any

	// Template is the query run for each call. Its fixed Params are merged
	// under the arguments.
	Template neokit.Request

	// Computed names placeholders that Bind supplies itself.
	Computed []string

	// ReadOnly tools run in read sessions and refuse queries with write clauses.
	ReadOnly bool

	Bind  BindFunc
	Shape ShapeFunc
}

// Response is the outcome of one dispatch.
type Response struct {
	Tool    string
	Payload any
	JSON    json.RawMessage
	Text    string
	Summary neokit.Summary
}

type entry struct {
	tool     Tool
	resolved *jsonschema.Resolved
}

// Registry holds tools by name, in registration order.
type Registry struct {
	provider neokit.SessionProvider
	logger   *zap.Logger

	mu    sync.RWMutex
	tools map[string]*entry
	order []string
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry creates an empty registry that runs queries through provider.
func NewRegistry(provider neokit.SessionProvider, opts ...Option) *Registry {
	r := &Registry{
		provider: provider,
		logger:   zap.NewNop(),
		tools:    make(map[string]*entry),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Register adds a tool. The schema must resolve, and every placeholder in the
// template must be bound by a schema property, a fixed template parameter or
// a Computed name.
func (r *Registry) Register(tool Tool) error {
	if tool.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidTool)
	}

	if tool.Schema == nil {
		tool.Schema = Object(nil)
	}

	if tool.Schema.Type != "object" {
		return fmt.Errorf("%w: %s: schema type must be object, got %q", ErrInvalidTool, tool.Name, tool.Schema.Type)
	}

	resolved, err := tool.Schema.Resolve(nil)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidTool, tool.Name, err)
	}

	if tool.Template.Text == "" && tool.Bind == nil {
		return fmt.Errorf("%w: %s: no query template and no Bind", ErrInvalidTool, tool.Name)
	}

	if tool.Template.Text != "" {
		unbound, err := unboundPlaceholders(tool)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidTool, tool.Name, err)
		}

		if len(unbound) > 0 {
			return fmt.Errorf("%w: %s: placeholders not bound by the schema: $%s",
				ErrInvalidTool, tool.Name, strings.Join(unbound, ", $"))
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tools[tool.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, tool.Name)
	}

	r.tools[tool.Name] = &entry{tool: tool, resolved: resolved}
	r.order = append(r.order, tool.Name)

	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(tools ...Tool) {
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
}

func unboundPlaceholders(tool Tool) ([]string, error) {
	names, err := cypher.Parameters(tool.Template.Text)
	if err != nil {
		return nil, err
	}

	var unbound []string

	for _, name := range names {
		if _, ok := tool.Schema.Properties[name]; ok {
			continue
		}

		if _, ok := tool.Template.Params[name]; ok {
			continue
		}

		if slices.Contains(tool.Computed, name) {
			continue
		}

		unbound = append(unbound, name)
	}

	return unbound, nil
}

// Lookup returns a registered tool.
func (r *Registry) Lookup(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.tools[name]
	if !ok {
		return Tool{}, false
	}

	return e.tool, true
}

// List returns every tool in registration order.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Tool, len(r.order))
	for i, name := range r.order {
		out[i] = r.tools[name].tool
	}

	return out
}

// Dispatch validates arguments for the named tool, executes its query and
// returns the shaped payload. Unknown names fail with
// *neokit.ToolNotFoundError and bad arguments with *neokit.ParameterError,
// both before any query runs.
func (r *Registry) Dispatch(ctx context.Context, name string, arguments json.RawMessage) (*Response, error) {
	r.mu.RLock()
	e, ok := r.tools[name]
	r.mu.RUnlock()

	if !ok {
		return nil, &neokit.ToolNotFoundError{Name: name}
	}

	tool := e.tool

	args, err := decodeArguments(tool, e.resolved, arguments)
	if err != nil {
		return nil, err
	}

	bind := tool.Bind
	if bind == nil {
		bind = BindArgs
	}

	req, err := bind(ctx, tool.Template, args)
	if err != nil {
		return nil, err
	}

	if tool.ReadOnly {
		clauses, err := cypher.WriteClauses(req.Text)
		if err != nil {
			return nil, &neokit.ParameterError{Tool: tool.Name, Reason: "cannot tokenize query", Err: err}
		}

		if len(clauses) > 0 {
			return nil, &neokit.ParameterError{
				Tool:   tool.Name,
				Reason: "read-only tool refuses write clauses: " + strings.Join(clauses, ", "),
			}
		}
	}

	mode := neokit.AccessWrite
	if tool.ReadOnly {
		mode = neokit.AccessRead
	}

	start := time.Now()

	res, err := r.execute(ctx, mode, req)
	if err != nil {
		Notify(ctx, LevelError, "%s failed: %v", tool.Name, err)

		return nil, err
	}

	r.logger.Debug("Dispatched tool",
		zap.String("tool", tool.Name),
		zap.Int("records", len(res.Records)),
		zap.Duration("elapsed", time.Since(start)))

	shape := tool.Shape
	if shape == nil {
		shape = ShapeRecords
	}

	payload, err := shape(ctx, args, res)
	if err != nil {
		return nil, err
	}

	return newResponse(tool.Name, payload, res.Summary)
}

func (r *Registry) execute(ctx context.Context, mode neokit.AccessMode, req neokit.Request) (*neokit.EagerResult, error) {
	res := &neokit.EagerResult{}

	err := r.provider.WithSession(ctx, mode, func(run neokit.Runner) error {
		result, err := run.Run(ctx, req)
		if err != nil {
			return err
		}

		if res.Keys, err = result.Keys(); err != nil {
			return err
		}

		if res.Records, err = result.Collect(ctx); err != nil {
			return err
		}

		res.Summary, err = result.Consume(ctx)

		return err
	})
	if err != nil {
		return nil, err
	}

	res.Summary.Query = req

	return res, nil
}

func newResponse(tool string, payload any, summary neokit.Summary) (*Response, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("tools: %s: encode payload: %w", tool, err)
	}

	resp := &Response{Tool: tool, Payload: payload, JSON: data, Summary: summary}

	if s, ok := payload.(string); ok {
		resp.Text = s
	} else {
		pretty, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("tools: %s: encode payload: %w", tool, err)
		}

		resp.Text = string(pretty)
	}

	return resp, nil
}

// BindArgs is the default binding: arguments become parameters by name,
// over the template's fixed parameters.
func BindArgs(_ context.Context, tmpl neokit.Request, args map[string]any) (neokit.Request, error) {
	req := neokit.NewRequest(tmpl.Text, tmpl.Params)
	if req.Params == nil {
		req.Params = make(map[string]any, len(args))
	}

	for k, v := range args {
		req.Params[k] = v
	}

	return req, nil
}

// ShapeRecords is the default shaping: one map per record.
func ShapeRecords(_ context.Context, _ map[string]any, res *neokit.EagerResult) (any, error) {
	return neokit.Records(res.Records), nil
}

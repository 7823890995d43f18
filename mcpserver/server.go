// Package mcpserver exposes a tools.Registry and the graph schema over the
// Model Context Protocol.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/rlch/neokit"
	"github.com/rlch/neokit/tools"
)

// Resource URIs.
const (
	SchemaURI        = "neo4j://schema"
	MovieURITemplate = "neo4j://movies/{tmdbId}"

	moviePrefix = "neo4j://movies/"
)

// Server bridges a tools.Registry to an MCP server.
type Server struct {
	mcp      *mcp.Server
	registry *tools.Registry
	provider neokit.SessionProvider
	logger   *zap.Logger
	metrics  *Metrics
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records tool calls on m.
func WithMetrics(m *Metrics) Option {
	return func(s *Server) {
		if m != nil {
			s.metrics = m
		}
	}
}

// New creates a server named by cfg that serves every tool in registry.
// provider backs the schema resource.
func New(cfg neokit.MCPConfig, registry *tools.Registry, provider neokit.SessionProvider, opts ...Option) *Server {
	s := &Server{
		registry: registry,
		provider: provider,
		logger:   zap.NewNop(),
		metrics:  NewMetrics(),
	}

	for _, opt := range opts {
		opt(s)
	}

	name := cfg.Name
	if name == "" {
		name = neokit.DefaultMCPName
	}

	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	s.mcp = mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, nil)

	for _, tool := range registry.List() {
		s.mcp.AddTool(&mcp.Tool{
			Name:        tool.Name,
			Title:       tool.Title,
			Description: tool.Description,
			InputSchema: tool.Schema,
			Annotations: annotations(tool),
		}, s.handle(tool.Name))
	}

	s.mcp.AddResource(&mcp.Resource{
		URI:         SchemaURI,
		Name:        "schema",
		Title:       "Graph schema",
		Description: "Node labels, relationship types and their properties, with sampled relationship patterns.",
		MIMEType:    "application/json",
	}, s.readSchema)

	if _, ok := registry.Lookup(tools.MovieInformationTool); ok {
		s.mcp.AddResourceTemplate(&mcp.ResourceTemplate{
			URITemplate: MovieURITemplate,
			Name:        "movie",
			Title:       "Movie",
			Description: "Details of a movie by TMDB ID, as markdown.",
			MIMEType:    "text/markdown",
		}, s.readMovie)
	}

	return s
}

// MCP returns the underlying MCP server.
func (s *Server) MCP() *mcp.Server {
	return s.mcp
}

// Metrics returns the server metrics.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Run serves a single session over transport until it closes or ctx is done.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	return s.mcp.Run(ctx, transport)
}

// RunStdio serves one client over stdin and stdout.
func (s *Server) RunStdio(ctx context.Context) error {
	s.logger.Info("Serving MCP over stdio")

	return s.Run(ctx, &mcp.StdioTransport{})
}

func annotations(tool tools.Tool) *mcp.ToolAnnotations {
	a := &mcp.ToolAnnotations{Title: tool.Title, ReadOnlyHint: tool.ReadOnly}
	if tool.ReadOnly {
		a.IdempotentHint = true
	} else {
		destructive := true
		a.DestructiveHint = &destructive
	}

	return a
}

func (s *Server) handle(name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		logger := s.logger.With(zap.String("tool", name), zap.String("call", uuid.NewString()))
		ctx = tools.WithNotifier(ctx, &sessionNotifier{session: req.Session, logger: logger})

		start := time.Now()

		resp, err := s.registry.Dispatch(ctx, name, req.Params.Arguments)
		if err != nil {
			s.metrics.observeCall(name, outcome(err), time.Since(start))
			logger.Warn("Tool call failed", zap.Error(err))

			return errorResult(err), nil
		}

		s.metrics.observeCall(name, "ok", time.Since(start))
		logger.Debug("Tool call finished", zap.Duration("elapsed", time.Since(start)))

		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: resp.Text}},
		}, nil
	}
}

// errorResult reports a tool failure to the client without failing the
// protocol request.
func errorResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
		IsError: true,
	}
}

func outcome(err error) string {
	switch {
	case errors.Is(err, neokit.ErrParameter):
		return "invalid_params"
	case errors.Is(err, neokit.ErrToolNotFound):
		return "not_found"
	case errors.Is(err, neokit.ErrConnection):
		return "connection_error"
	case errors.Is(err, neokit.ErrQuery):
		return "query_error"
	default:
		return "error"
	}
}

func (s *Server) readSchema(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	schema, err := neokit.IntrospectSchema(ctx, s.provider)
	if err != nil {
		s.metrics.observeRead(SchemaURI, "error")
		s.logger.Warn("Schema introspection failed", zap.Error(err))

		return nil, err
	}

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, err
	}

	s.metrics.observeRead(SchemaURI, "ok")

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

func (s *Server) readMovie(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	id := strings.TrimPrefix(req.Params.URI, moviePrefix)
	if id == "" || id == req.Params.URI || strings.Contains(id, "/") {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	args, err := json.Marshal(map[string]string{"tmdbId": id})
	if err != nil {
		return nil, err
	}

	resp, err := s.registry.Dispatch(ctx, tools.MovieInformationTool, args)
	if err != nil {
		s.metrics.observeRead(MovieURITemplate, "error")

		return nil, fmt.Errorf("read %s: %w", req.Params.URI, err)
	}

	s.metrics.observeRead(MovieURITemplate, "ok")

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/markdown",
			Text:     resp.Text,
		}},
	}, nil
}

// sessionNotifier forwards tool notices to the client's log stream.
type sessionNotifier struct {
	session *mcp.ServerSession
	logger  *zap.Logger
}

func (n *sessionNotifier) Notify(ctx context.Context, level tools.Level, message string) {
	n.logger.Debug("Notice", zap.String("level", string(level)), zap.String("message", message))

	if n.session == nil {
		return
	}

	err := n.session.Log(ctx, &mcp.LoggingMessageParams{
		Level:  mcp.LoggingLevel(level),
		Logger: "neokit",
		Data:   message,
	})
	if err != nil {
		n.logger.Debug("Failed to forward notice", zap.Error(err))
	}
}

// Package mcpclient is a small MCP client for listing and calling the tools
// and resources of a server.
package mcpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

// DefaultEndpoint is where the server listens by default.
const DefaultEndpoint = "http://localhost:8000/mcp"

// ErrNoContent is returned when a tool or resource returns nothing readable.
var ErrNoContent = errors.New("mcpclient: no text content")

// Client is a connected MCP session.
type Client struct {
	session *mcp.ClientSession
	logger  *zap.Logger
}

type options struct {
	logger     *zap.Logger
	httpClient *http.Client
	onLog      func(level, message string)
}

// Option configures Connect.
type Option func(*options)

// WithLogger sets the client logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithHTTPClient sets the HTTP client used by the streamable transport.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithLogHandler receives log messages the server sends while tools run.
func WithLogHandler(fn func(level, message string)) Option {
	return func(o *options) {
		o.onLog = fn
	}
}

// Connect opens a session to a streamable HTTP endpoint.
func Connect(ctx context.Context, endpoint string, opts ...Option) (*Client, error) {
	o := newOptions(opts)

	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	transport := &mcp.StreamableClientTransport{Endpoint: endpoint, HTTPClient: o.httpClient}

	c, err := connect(ctx, transport, o)
	if err != nil {
		return nil, fmt.Errorf("mcpclient: connect %s: %w", endpoint, err)
	}

	return c, nil
}

// ConnectTransport opens a session over any transport, e.g. in-memory or a
// command's stdio.
func ConnectTransport(ctx context.Context, transport mcp.Transport, opts ...Option) (*Client, error) {
	return connect(ctx, transport, newOptions(opts))
}

func newOptions(opts []Option) options {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	return o
}

func connect(ctx context.Context, transport mcp.Transport, o options) (*Client, error) {
	var copts *mcp.ClientOptions
	if o.onLog != nil {
		copts = &mcp.ClientOptions{
			LoggingMessageHandler: func(_ context.Context, req *mcp.LoggingMessageRequest) {
				o.onLog(string(req.Params.Level), fmt.Sprint(req.Params.Data))
			},
		}
	}

	client := mcp.NewClient(&mcp.Implementation{Name: "neokit", Version: "dev"}, copts)

	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, err
	}

	if o.onLog != nil {
		err := session.SetLoggingLevel(ctx, &mcp.SetLoggingLevelParams{Level: "debug"})
		if err != nil {
			o.logger.Debug("Server does not accept a logging level", zap.Error(err))
		}
	}

	c := &Client{session: session, logger: o.logger}

	if info := c.ServerInfo(); info != nil {
		o.logger.Debug("Connected", zap.String("server", info.Name), zap.String("version", info.Version),
			zap.String("session", session.ID()))
	}

	return c, nil
}

// Close ends the session.
func (c *Client) Close() error {
	return c.session.Close()
}

// SessionID returns the transport session id, if the transport has one.
func (c *Client) SessionID() string {
	return c.session.ID()
}

// ServerInfo returns the server name and version.
func (c *Client) ServerInfo() *mcp.Implementation {
	res := c.session.InitializeResult()
	if res == nil {
		return nil
	}

	return res.ServerInfo
}

// Param describes one tool argument.
type Param struct {
	Name        string
	Type        string
	Description string
	Required    bool
}

// ToolInfo is a tool and its arguments in schema order.
type ToolInfo struct {
	Name        string
	Title       string
	Description string
	ReadOnly    bool
	Params      []Param
}

// Tools lists the server's tools.
func (c *Client) Tools(ctx context.Context) ([]ToolInfo, error) {
	var out []ToolInfo

	for tool, err := range c.session.Tools(ctx, nil) {
		if err != nil {
			return nil, err
		}

		params, err := schemaParams(tool.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("mcpclient: tool %s: %w", tool.Name, err)
		}

		info := ToolInfo{
			Name:        tool.Name,
			Title:       tool.Title,
			Description: tool.Description,
			Params:      params,
		}

		if tool.Annotations != nil {
			info.ReadOnly = tool.Annotations.ReadOnlyHint
		}

		out = append(out, info)
	}

	return out, nil
}

type inputSchema struct {
	Properties map[string]struct {
		Type        any    `json:"type"`
		Description string `json:"description"`
	} `json:"properties"`
	Required []string `json:"required"`
}

// schemaParams reads the argument list from a tool input schema. Required
// arguments come first, each group sorted by name.
func schemaParams(schema any) ([]Param, error) {
	if schema == nil {
		return nil, nil
	}

	data, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}

	var s inputSchema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}

	params := make([]Param, 0, len(s.Properties))

	for name, prop := range s.Properties {
		params = append(params, Param{
			Name:        name,
			Type:        schemaType(prop.Type),
			Description: prop.Description,
			Required:    slices.Contains(s.Required, name),
		})
	}

	slices.SortFunc(params, func(a, b Param) int {
		if a.Required != b.Required {
			if a.Required {
				return -1
			}

			return 1
		}

		return strings.Compare(a.Name, b.Name)
	})

	return params, nil
}

func schemaType(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && s != "null" {
				return s
			}
		}
	}

	return "string"
}

// Resources lists direct resources and resource templates.
func (c *Client) Resources(ctx context.Context) ([]*mcp.Resource, []*mcp.ResourceTemplate, error) {
	var resources []*mcp.Resource

	for r, err := range c.session.Resources(ctx, nil) {
		if err != nil {
			return nil, nil, err
		}

		resources = append(resources, r)
	}

	var templates []*mcp.ResourceTemplate

	for t, err := range c.session.ResourceTemplates(ctx, nil) {
		if err != nil {
			return nil, nil, err
		}

		templates = append(templates, t)
	}

	return resources, templates, nil
}

// CallResult is the text a tool returned.
type CallResult struct {
	Text    string
	IsError bool
}

// Call invokes a tool. A tool-level failure is reported with IsError set,
// not as an error.
func (c *Client) Call(ctx context.Context, name string, args map[string]any) (*CallResult, error) {
	if args == nil {
		args = map[string]any{}
	}

	res, err := c.session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Called tool", zap.String("tool", name), zap.Bool("isError", res.IsError))

	return &CallResult{Text: contentText(res.Content), IsError: res.IsError}, nil
}

// Read fetches a resource and returns its text.
func (c *Client) Read(ctx context.Context, uri string) (string, error) {
	res, err := c.session.ReadResource(ctx, &mcp.ReadResourceParams{URI: uri})
	if err != nil {
		return "", err
	}

	var parts []string

	for _, content := range res.Contents {
		if content.Text != "" {
			parts = append(parts, content.Text)
		}
	}

	if len(parts) == 0 {
		return "", ErrNoContent
	}

	return strings.Join(parts, "\n"), nil
}

func contentText(contents []mcp.Content) string {
	var parts []string

	for _, c := range contents {
		switch v := c.(type) {
		case *mcp.TextContent:
			parts = append(parts, v.Text)
		case *mcp.ImageContent:
			parts = append(parts, "[image "+v.MIMEType+"]")
		case *mcp.EmbeddedResource:
			if v.Resource != nil {
				parts = append(parts, v.Resource.Text)
			}
		}
	}

	return strings.Join(parts, "\n")
}

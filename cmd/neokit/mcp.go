package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/rlch/neokit"
	"github.com/rlch/neokit/mcpclient"
	"github.com/rlch/neokit/mcpserver"
	"github.com/rlch/neokit/tools"
)

// ErrMissingArguments is returned by "mcp call" when required arguments are absent.
var ErrMissingArguments = errors.New("missing required arguments")

func mcpCommand(st *state) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve the movie graph over MCP, or talk to an MCP server",
		Commands: []*cli.Command{
			serveCommand(st),
			toolsCommand(st),
			resourcesCommand(st),
			callCommand(st),
			readCommand(st),
			interactiveCommand(st),
		},
	}
}

func serveCommand(st *state) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the MCP server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "transport",
				Aliases: []string{"t"},
				Usage:   "http or stdio",
			},
			&cli.StringFlag{
				Name:  "addr",
				Usage: "listen address for http",
			},
			&cli.StringFlag{
				Name:  "path",
				Usage: "endpoint path for http",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := st.cfg.MCP

			if v := cmd.String("transport"); v != "" {
				cfg.Transport = v
			}

			if v := cmd.String("addr"); v != "" {
				cfg.Addr = v
			}

			if v := cmd.String("path"); v != "" {
				cfg.Path = v
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			return st.withDatabase(ctx, func(db neokit.Database) error {
				registry, err := newRegistry(db, st.cfg.OpenAI, st.logger)
				if err != nil {
					return err
				}

				srv := mcpserver.New(cfg, registry, db,
					mcpserver.WithLogger(st.logger),
					mcpserver.WithMetrics(mcpserver.NewMetrics()))

				st.logger.Info("Starting MCP server",
					zap.String("name", cfg.Name),
					zap.String("transport", cfg.Transport),
					zap.String("addr", cfg.Addr),
					zap.Int("tools", len(registry.List())))

				err = srv.Serve(ctx, cfg)
				if errors.Is(err, context.Canceled) {
					return nil
				}

				return err
			})
		},
	}
}

// newRegistry registers the movie tools and the generic Cypher tools. The
// plot search and catch-all tools need an OpenAI key.
func newRegistry(db neokit.SessionProvider, cfg neokit.OpenAIConfig, logger *zap.Logger) (*tools.Registry, error) {
	registry := tools.NewRegistry(db, tools.WithLogger(logger))
	registry.MustRegister(
		tools.GraphStatistics(),
		tools.SearchMoviesByTitle(),
		tools.MovieInformation(),
		tools.ReadCypher(),
		tools.WriteCypher(),
	)

	if cfg.APIKey == "" {
		logger.Info("OPENAI_API_KEY not set; plot search and catch-all tools disabled")

		return registry, nil
	}

	ai, err := tools.NewOpenAI(cfg.APIKey, cfg.Model, cfg.EmbeddingModel)
	if err != nil {
		return nil, err
	}

	registry.MustRegister(
		tools.SearchMoviesByPlot(ai),
		tools.CatchAllMovieQuery(ai, tools.IntrospectedSchema(db, tools.MoviesSchema)),
	)

	return registry, nil
}

func clientFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "endpoint",
			Aliases: []string{"e"},
			Usage:   "streamable HTTP endpoint of the server",
			Value:   mcpclient.DefaultEndpoint,
			Sources: cli.EnvVars("NEOKIT_MCP_ENDPOINT"),
		},
		&cli.StringFlag{
			Name:  "command",
			Usage: "start a server with this command and talk to it over stdio instead",
		},
	}
}

// dial connects to the server named by the client flags.
func (st *state) dial(ctx context.Context, cmd *cli.Command, opts ...mcpclient.Option) (*mcpclient.Client, error) {
	opts = append(opts, mcpclient.WithLogger(st.logger))

	if command := cmd.String("command"); command != "" {
		fields := strings.Fields(command)

		//nolint:gosec // G204: the user chooses the server command
		transport := &mcp.CommandTransport{Command: exec.CommandContext(ctx, fields[0], fields[1:]...)}

		return mcpclient.ConnectTransport(ctx, transport, opts...)
	}

	return mcpclient.Connect(ctx, cmd.String("endpoint"), opts...)
}

func toolsCommand(st *state) *cli.Command {
	return &cli.Command{
		Name:  "tools",
		Usage: "List the server's tools and their arguments",
		Flags: clientFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c, err := st.dial(ctx, cmd)
			if err != nil {
				return err
			}

			defer func() { _ = c.Close() }()

			list, err := c.Tools(ctx)
			if err != nil {
				return err
			}

			for _, t := range list {
				fmt.Fprintf(os.Stdout, "%s\n", t.Name)

				if t.Description != "" {
					fmt.Fprintf(os.Stdout, "  %s\n", strings.ReplaceAll(strings.TrimSpace(t.Description), "\n", "\n  "))
				}

				for _, p := range t.Params {
					req := ""
					if p.Required {
						req = ", required"
					}

					fmt.Fprintf(os.Stdout, "    - %s (%s%s): %s\n", p.Name, p.Type, req, p.Description)
				}
			}

			return nil
		},
	}
}

func resourcesCommand(st *state) *cli.Command {
	return &cli.Command{
		Name:  "resources",
		Usage: "List the server's resources and resource templates",
		Flags: clientFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c, err := st.dial(ctx, cmd)
			if err != nil {
				return err
			}

			defer func() { _ = c.Close() }()

			resources, templates, err := c.Resources(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintln(os.Stdout, "Resources:")

			for _, r := range resources {
				fmt.Fprintf(os.Stdout, "  %s  %s\n", r.URI, r.Description)
			}

			fmt.Fprintln(os.Stdout, "Templates:")

			for _, t := range templates {
				fmt.Fprintf(os.Stdout, "  %s  %s\n", t.URITemplate, t.Description)
			}

			return nil
		},
	}
}

func callCommand(st *state) *cli.Command {
	return &cli.Command{
		Name:      "call",
		Usage:     "Call a tool",
		ArgsUsage: "TOOL",
		Flags: append(clientFlags(), &cli.StringSliceFlag{
			Name:    "arg",
			Aliases: []string{"a"},
			Usage:   "tool argument as name=value, converted by the tool's input schema",
		}),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			name := cmd.Args().First()
			if name == "" {
				return errors.New("tool name required")
			}

			c, err := st.dial(ctx, cmd, mcpclient.WithLogHandler(func(level, message string) {
				fmt.Fprintf(os.Stderr, "[%s] %s\n", level, message)
			}))
			if err != nil {
				return err
			}

			defer func() { _ = c.Close() }()

			list, err := c.Tools(ctx)
			if err != nil {
				return err
			}

			var params []mcpclient.Param

			for _, t := range list {
				if t.Name == name {
					params = t.Params
				}
			}

			args, err := mcpclient.BuildArguments(params, cmd.StringSlice("arg"))
			if err != nil {
				return err
			}

			if missing := mcpclient.MissingRequired(params, args); len(missing) > 0 {
				return fmt.Errorf("%w: %s", ErrMissingArguments, strings.Join(missing, ", "))
			}

			res, err := c.Call(ctx, name, args)
			if err != nil {
				return err
			}

			fmt.Fprintln(os.Stdout, res.Text)

			if res.IsError {
				return cli.Exit("", 1)
			}

			return nil
		},
	}
}

func readCommand(st *state) *cli.Command {
	return &cli.Command{
		Name:      "read",
		Usage:     "Read a resource, e.g. neo4j://schema or neo4j://movies/{tmdbId} --var tmdbId=603",
		ArgsUsage: "URI",
		Flags: append(clientFlags(), &cli.StringSliceFlag{
			Name:  "var",
			Usage: "template variable as name=value",
		}),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			uri := cmd.Args().First()
			if uri == "" {
				return errors.New("resource URI required")
			}

			if names := mcpclient.TemplateParams(uri); len(names) > 0 {
				values := make(map[string]string, len(names))

				for _, pair := range cmd.StringSlice("var") {
					name, value, ok := strings.Cut(pair, "=")
					if !ok {
						return fmt.Errorf("invalid --var %q: expected name=value", pair)
					}

					values[name] = value
				}

				expanded, err := mcpclient.ExpandTemplate(uri, values)
				if err != nil {
					return err
				}

				uri = expanded
			}

			c, err := st.dial(ctx, cmd)
			if err != nil {
				return err
			}

			defer func() { _ = c.Close() }()

			text, err := c.Read(ctx, uri)
			if err != nil {
				return err
			}

			fmt.Fprintln(os.Stdout, text)

			return nil
		},
	}
}

func interactiveCommand(st *state) *cli.Command {
	return &cli.Command{
		Name:    "interactive",
		Aliases: []string{"i"},
		Usage:   "Pick tools and fill in their arguments in a terminal UI",
		Flags:   clientFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			notices := &mcpclient.Notices{}

			c, err := st.dial(ctx, cmd, mcpclient.WithLogHandler(notices.Handle))
			if err != nil {
				return err
			}

			defer func() { _ = c.Close() }()

			return mcpclient.RunInteractive(ctx, c, notices)
		},
	}
}

// Command neokit works with a Neo4j database: ad-hoc queries, CSV loads,
// exports and an MCP server exposing the movie graph as tools.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rlch/neokit"
	// Register the Neo4j database.
	_ "github.com/rlch/neokit/databases/neo4j"
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// state is shared by every command. It is filled in by before.
type state struct {
	logger *zap.Logger
	cfg    *neokit.Config
}

func newApp() *cli.Command {
	st := &state{logger: zap.NewNop(), cfg: neokit.DefaultConfig()}

	return &cli.Command{
		Name:  "neokit",
		Usage: "Neo4j session toolkit and MCP server",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging",
			},
			&cli.StringSliceFlag{
				Name:  "env-file",
				Usage: "dotenv files to load (default .env)",
			},
			&cli.StringFlag{
				Name:    "uri",
				Usage:   "Neo4j connection URI",
				Sources: cli.EnvVars(neokit.EnvNeo4jURI),
			},
			&cli.StringFlag{
				Name:    "username",
				Aliases: []string{"u"},
				Usage:   "Neo4j username",
				Sources: cli.EnvVars(neokit.EnvNeo4jUsername),
			},
			&cli.StringFlag{
				Name:    "password",
				Aliases: []string{"p"},
				Usage:   "Neo4j password",
				Sources: cli.EnvVars(neokit.EnvNeo4jPassword),
			},
			&cli.StringFlag{
				Name:    "database",
				Aliases: []string{"d"},
				Usage:   "Neo4j database name",
				Sources: cli.EnvVars(neokit.EnvNeo4jDatabase),
			},
		},
		Before: st.before,
		After: func(context.Context, *cli.Command) error {
			_ = st.logger.Sync()

			return nil
		},
		Commands: []*cli.Command{
			connectCommand(st),
			runCommand(st),
			txCommand(st),
			loadCommand(st),
			exportCommand(st),
			schemaCommand(st),
			envCommand(st),
			mcpCommand(st),
		},
	}
}

func (st *state) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	logger, err := newLogger(cmd.Bool("debug"))
	if err != nil {
		return ctx, err
	}

	st.logger = logger

	cfg, err := neokit.Load(".", cmd.StringSlice("env-file")...)
	if err != nil {
		return ctx, fmt.Errorf("loading config: %w", err)
	}

	override := func(dst *string, flag string) {
		if v := cmd.String(flag); v != "" {
			*dst = v
		}
	}

	override(&cfg.Neo4j.URI, "uri")
	override(&cfg.Neo4j.Username, "username")
	override(&cfg.Neo4j.Password, "password")
	override(&cfg.Neo4j.Database, "database")

	st.cfg = cfg

	logger.Debug("Loaded config", zap.Any("neo4j", cfg.Profile().Redacted()))

	return ctx, nil
}

// newLogger writes to stderr; stdout carries results and the stdio MCP
// transport.
func newLogger(debug bool) (*zap.Logger, error) {
	config := zap.NewDevelopmentConfig()
	config.OutputPaths = []string{"stderr"}
	config.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)

	if debug {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	return config.Build()
}

// open connects to the configured database.
func (st *state) open(ctx context.Context) (neokit.Database, error) {
	return neokit.OpenDatabase(ctx, neokit.DatabaseNeo4j, st.cfg.Profile(), st.logger)
}

// withDatabase opens the database for the duration of fn.
func (st *state) withDatabase(ctx context.Context, fn func(neokit.Database) error) error {
	db, err := st.open(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if err := db.Close(ctx); err != nil {
			st.logger.Warn("Failed to close database", zap.Error(err))
		}
	}()

	return fn(db)
}

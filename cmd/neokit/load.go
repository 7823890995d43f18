package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/rlch/neokit"
	"github.com/rlch/neokit/loader"
)

func loadCommand(st *state) *cli.Command {
	return &cli.Command{
		Name:      "load",
		Usage:     "Load CSV rows into the graph, one write query per row",
		ArgsUsage: "[files or directories...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "query",
				Aliases: []string{"q"},
				Usage:   "Cypher run per row; columns bind to parameters of the same name (default: employees graph)",
			},
			&cli.StringFlag{
				Name:  "query-file",
				Usage: "read the per-row query from a file",
			},
			&cli.StringFlag{
				Name:  "where",
				Usage: `only load rows matching an expression, e.g. 'location == "London"'`,
			},
			&cli.IntFlag{
				Name:  "max-errors",
				Usage: "stop after this many failed rows (0 never stops)",
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "progress output (auto, dots, verbose, json, progress)",
				Value: "auto",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			paths := cmd.Args().Slice()
			if len(paths) == 0 {
				paths = []string{"data"}
			}

			query := cmd.String("query")

			if path := cmd.String("query-file"); path != "" {
				data, err := os.ReadFile(path) //nolint:gosec // G304: file path from user input is expected
				if err != nil {
					return err
				}

				query = string(data)
			}

			formatter := loader.NewFormatter(cmd.String("format"), os.Stdout)
			handler := loader.NewFormatHandler(formatter)

			opts := []loader.Option{
				loader.WithHandler(handler),
				loader.WithFilter(cmd.String("where")),
				loader.WithStopOnError(int(cmd.Int("max-errors"))),
				loader.WithLogger(st.logger),
			}

			if query != "" {
				opts = append(opts, loader.WithQuery(query))
			}

			return st.withDatabase(ctx, func(db neokit.Database) error {
				l, err := loader.New(db, opts...)
				if err != nil {
					return err
				}

				var files []string

				for _, p := range paths {
					found, err := loader.Discover(p)
					if err != nil {
						return err
					}

					files = append(files, found...)
				}

				if len(files) == 0 {
					return fmt.Errorf("no .csv files in %v", paths)
				}

				result, err := l.LoadFiles(ctx, files)
				if err != nil {
					return err
				}

				_ = handler.Summary(result)

				if !result.Ok() {
					return cli.Exit("", 1)
				}

				return nil
			})
		},
	}
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/rlch/neokit"
	"github.com/rlch/neokit/cypher"
	"github.com/rlch/neokit/export"
)

// Query command errors.
var (
	ErrNoQuery          = errors.New("no query given (pass it as an argument or use --file)")
	ErrNotTransactional = errors.New("database does not support managed transactions")
)

const (
	countQuery = "RETURN COUNT {()} AS count"

	createPersonQuery = "CREATE (p:Person {name: $name, age: $age}) RETURN p"

	exportQuery = `MATCH (p:Person)-[:LIVES_IN]->(l:Location)
MATCH (p)-[w:WORKS_AT]->(c:Company)
RETURN p.name AS name, c.name AS company, w.position AS position, l.name AS location`
)

func paramFlag() cli.Flag {
	return &cli.StringSliceFlag{
		Name:  "param",
		Usage: "query parameter as key=value; values are parsed as JSON when possible",
	}
}

func formatFlag(def string) cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "output format (table, csv, json, jsonl)",
		Value:   def,
	}
}

// parseParams turns key=value pairs into query parameters. A value that is
// valid JSON is decoded, so 30 is a number and "[1,2]" a list; anything else
// is a string.
func parseParams(pairs []string) (map[string]any, error) {
	params := make(map[string]any, len(pairs))

	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("parameter %q: want key=value", pair)
		}

		params[key] = parseValue(raw)
	}

	return params, nil
}

func parseValue(raw string) any {
	var v any

	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()

	if err := dec.Decode(&v); err != nil || dec.More() {
		return raw
	}

	return neokit.NormalizeNumbers(v)
}

func connectCommand(st *state) *cli.Command {
	return &cli.Command{
		Name:  "connect",
		Usage: "Verify connectivity and count the nodes in the database",
		Action: func(ctx context.Context, _ *cli.Command) error {
			return st.withDatabase(ctx, func(db neokit.Database) error {
				res, err := db.ExecuteQuery(ctx, neokit.Request{Text: countQuery}, neokit.AccessRead)
				if err != nil {
					return err
				}

				var count any
				if len(res.Records) > 0 {
					count, _ = res.Records[0].Get("count")
				}

				fmt.Fprintf(os.Stdout, "Connected to %s\n%v\n", st.cfg.Profile().URI, count)

				return nil
			})
		},
	}
}

func runCommand(st *state) *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Run Cypher statements and print the records of the last one",
		ArgsUsage: "[query]",
		Flags: []cli.Flag{
			paramFlag(),
			formatFlag(""),
			&cli.StringFlag{
				Name:  "file",
				Usage: "read statements from a file, separated by ';'",
			},
			&cli.BoolFlag{
				Name:  "read",
				Usage: "run in a read session (routes to readers in a cluster)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			script, err := queryText(cmd)
			if err != nil {
				return err
			}

			statements, err := cypher.SplitStatements(script)
			if err != nil {
				return err
			}

			params, err := parseParams(cmd.StringSlice("param"))
			if err != nil {
				return err
			}

			format, err := export.ParseFormat(cmd.String("format"))
			if err != nil {
				return err
			}

			mode := neokit.AccessWrite
			if cmd.Bool("read") {
				mode = neokit.AccessRead
			}

			return st.withDatabase(ctx, func(db neokit.Database) error {
				records, summary, err := runStatements(ctx, db, mode, statements, params)
				if err != nil {
					return err
				}

				if summary.Counters.ContainsUpdates() {
					st.logger.Info("Updated graph", zap.Stringer("counters", summary.Counters))
				}

				return export.Write(os.Stdout, format, records)
			})
		},
	}
}

// runStatements runs each statement in one session. Only the parameters a
// statement references are passed to it.
func runStatements(
	ctx context.Context,
	p neokit.SessionProvider,
	mode neokit.AccessMode,
	statements []string,
	params map[string]any,
) ([]neokit.Record, neokit.Summary, error) {
	var (
		records []neokit.Record
		summary neokit.Summary
	)

	err := p.WithSession(ctx, mode, func(r neokit.Runner) error {
		for _, stmt := range statements {
			names, err := cypher.Parameters(stmt)
			if err != nil {
				return err
			}

			req := neokit.Request{Text: stmt, Params: make(map[string]any, len(names))}
			for _, name := range names {
				if v, ok := params[name]; ok {
					req.Params[name] = v
				}
			}

			res, err := r.Run(ctx, req)
			if err != nil {
				return err
			}

			if records, err = res.Collect(ctx); err != nil {
				return err
			}

			if summary, err = res.Consume(ctx); err != nil {
				return err
			}
		}

		return nil
	})

	return records, summary, err
}

func queryText(cmd *cli.Command) (string, error) {
	if path := cmd.String("file"); path != "" {
		var (
			data []byte
			err  error
		)

		if path == "-" {
			data, err = io.ReadAll(os.Stdin)
		} else {
			data, err = os.ReadFile(path) //nolint:gosec // G304: file path from user input is expected
		}

		if err != nil {
			return "", err
		}

		return string(data), nil
	}

	query := strings.Join(cmd.Args().Slice(), " ")
	if strings.TrimSpace(query) == "" {
		return "", ErrNoQuery
	}

	return query, nil
}

func txCommand(st *state) *cli.Command {
	return &cli.Command{
		Name:  "tx",
		Usage: "Create a person inside a managed write transaction",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Value: "Alice", Usage: "person name"},
			&cli.IntFlag{Name: "age", Value: 30, Usage: "person age"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return st.withDatabase(ctx, func(db neokit.Database) error {
				txdb, ok := db.(neokit.Transactional)
				if !ok {
					return ErrNotTransactional
				}

				req := neokit.Request{Text: createPersonQuery, Params: map[string]any{
					"name": cmd.String("name"),
					"age":  cmd.Int("age"),
				}}

				counters, err := createInTransaction(ctx, txdb, req)
				if err != nil {
					return err
				}

				fmt.Fprintf(os.Stdout, "%d node(s) created.\n", counters.NodesCreated)

				return nil
			})
		},
	}
}

// createInTransaction runs req in a managed write transaction and returns
// its counters. The transaction may be retried by the driver, so req must be
// safe to run more than once.
func createInTransaction(ctx context.Context, db neokit.Transactional, req neokit.Request) (neokit.Counters, error) {
	var counters neokit.Counters

	err := db.WithTransaction(ctx, neokit.AccessWrite, func(r neokit.Runner) error {
		res, err := r.Run(ctx, req)
		if err != nil {
			return err
		}

		summary, err := res.Consume(ctx)
		if err != nil {
			return err
		}

		counters = summary.Counters

		return nil
	})

	return counters, err
}

func exportCommand(st *state) *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Run a read query and write its records as a table, CSV or JSON",
		ArgsUsage: "[query]",
		Flags: []cli.Flag{
			paramFlag(),
			formatFlag(""),
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "write to a file instead of stdout",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			query := strings.Join(cmd.Args().Slice(), " ")
			if strings.TrimSpace(query) == "" {
				query = exportQuery
			}

			params, err := parseParams(cmd.StringSlice("param"))
			if err != nil {
				return err
			}

			var out io.Writer = os.Stdout

			if path := cmd.String("output"); path != "" {
				f, err := os.Create(path) //nolint:gosec // G304: file path from user input is expected
				if err != nil {
					return err
				}

				defer func() { _ = f.Close() }()

				out = f
			}

			format := export.Format(cmd.String("format"))
			if format == "" {
				format = export.DefaultFormat(out)
			} else if format, err = export.ParseFormat(string(format)); err != nil {
				return err
			}

			return st.withDatabase(ctx, func(db neokit.Database) error {
				res, err := db.ExecuteQuery(ctx, neokit.Request{Text: query, Params: params}, neokit.AccessRead)
				if err != nil {
					return err
				}

				return export.Write(out, format, res.Records)
			})
		},
	}
}

func schemaCommand(st *state) *cli.Command {
	return &cli.Command{
		Name:  "schema",
		Usage: "Print the labels, relationship types and properties in the database",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "output as JSON"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return st.withDatabase(ctx, func(db neokit.Database) error {
				schema, err := neokit.IntrospectSchema(ctx, db)
				if err != nil {
					return err
				}

				if cmd.Bool("json") {
					enc := json.NewEncoder(os.Stdout)
					enc.SetIndent("", "  ")

					return enc.Encode(schema)
				}

				_, err = fmt.Fprint(os.Stdout, schema.String())

				return err
			})
		},
	}
}

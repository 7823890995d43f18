package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/urfave/cli/v3"

	"github.com/rlch/neokit"
)

type checkStatus string

const (
	checkPass checkStatus = "PASS"
	checkSkip checkStatus = "SKIP"
	checkFail checkStatus = "FAIL"
)

type check struct {
	Name   string
	Status checkStatus
	Detail string
}

var checkStyles = map[checkStatus]lipgloss.Style{
	checkPass: lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true),
	checkSkip: lipgloss.NewStyle().Foreground(lipgloss.Color("#626262")),
	checkFail: lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Bold(true),
}

func envCommand(st *state) *cli.Command {
	return &cli.Command{
		Name:  "env",
		Usage: "Check the .env file, required variables and the database connection",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			envFile := ".env"
			if files := cmd.StringSlice("env-file"); len(files) > 0 {
				envFile = files[0]
			}

			checks := checkEnvironment(ctx, envFile, os.Getenv, func(ctx context.Context) error {
				return st.withDatabase(ctx, func(db neokit.Database) error {
					return db.VerifyConnectivity(ctx)
				})
			})

			if failed := writeChecks(os.Stdout, checks); failed {
				return cli.Exit("", 1)
			}

			return nil
		},
	}
}

// checkEnvironment runs the checks in order. A check is skipped when the one
// it depends on did not pass.
func checkEnvironment(
	ctx context.Context,
	envFile string,
	getenv func(string) string,
	connect func(context.Context) error,
) []check {
	var checks []check

	envCheck := check{Name: envFile + " file exists", Status: checkPass}
	if _, err := os.Stat(envFile); err != nil {
		envCheck.Status = checkFail
		envCheck.Detail = envFile + " file not found"
	}

	checks = append(checks, envCheck)

	varsCheck := check{Name: "Neo4j variables set", Status: checkSkip}

	if envCheck.Status == checkPass {
		var missing []string

		for _, key := range []string{neokit.EnvNeo4jURI, neokit.EnvNeo4jUsername, neokit.EnvNeo4jPassword} {
			if getenv(key) == "" {
				missing = append(missing, key)
			}
		}

		varsCheck.Status = checkPass
		if len(missing) > 0 {
			varsCheck.Status = checkFail
			varsCheck.Detail = strings.Join(missing, ", ") + " not found in " + envFile
		}
	}

	checks = append(checks, varsCheck)

	connCheck := check{Name: "Neo4j connection", Status: checkSkip}

	if varsCheck.Status == checkPass {
		connCheck.Status = checkPass
		if err := connect(ctx); err != nil {
			connCheck.Status = checkFail
			connCheck.Detail = "Neo4j connection failed: " + err.Error()
		}
	}

	checks = append(checks, connCheck)

	openAI := check{Name: "OpenAI API key set", Status: checkPass}
	if getenv(neokit.EnvOpenAIKey) == "" {
		openAI.Status = checkSkip
		openAI.Detail = "plot search and catch-all movie tools are disabled"
	}

	checks = append(checks, openAI)

	if path := getenv(neokit.EnvCredentialsPath); path != "" {
		creds := check{Name: "Cloud credentials readable", Status: checkPass}
		if _, err := os.Stat(path); err != nil {
			creds.Status = checkFail
			creds.Detail = err.Error()
		}

		checks = append(checks, creds)
	}

	return checks
}

// writeChecks prints one line per check and reports whether any failed.
func writeChecks(w io.Writer, checks []check) bool {
	failed := false

	for _, c := range checks {
		line := fmt.Sprintf("%s %s", checkStyles[c.Status].Render(string(c.Status)), c.Name)
		if c.Detail != "" {
			line += ": " + c.Detail
		}

		_, _ = fmt.Fprintln(w, line)

		if c.Status == checkFail {
			failed = true
		}
	}

	return failed
}

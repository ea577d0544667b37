package report

import (
	"fmt"
	"os"

	"github.com/okian/courtform/pkg/logger"
)

// SetupLogging sends structured logs to stderr so stdout stays clean for
// the report itself.
func SetupLogging(verbose bool) error {
	if err := logger.Init(logger.WithOutput(os.Stderr)); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		return logger.SetLevelString("debug")
	}
	return nil
}

// ShowHelp prints usage information for the report tool.
func ShowHelp() {
	os.Stdout.WriteString(`courtform form report
=====================

Computes form ratings offline from a roster file and prints a JSON report.

Usage:
  go run ./cmd/form-report -roster players.json [options]

Options:
  -roster string
        Roster JSON keyed by tour (required)
  -params string
        Hyperparameter override document (JSON or YAML)
  -tour string
        Comma separated tours to rate (default "atp,wta")
  -top int
        Leaderboard rows per tour (default 10)
  -player string
        Include this player's full record and history
  -output string
        Write the report to a file instead of stdout
  -seed-dsn string
        Store the roster in this Postgres database instead of reporting
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  go run ./cmd/form-report -roster players.json -tour wta -top 25
  go run ./cmd/form-report -roster players.json -params form.yaml -player "Iga Swiatek"
  go run ./cmd/form-report -roster players.json -seed-dsn postgres://localhost/courtform
`)
}

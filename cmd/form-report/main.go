package main

import (
	"context"
	"flag"
	"os"
	"strings"
	"time"

	"github.com/okian/courtform/internal/domain/model"
	"github.com/okian/courtform/internal/report"
)

// Default configuration constants.
const (
	defaultTopN    = 10
	defaultTimeout = 2 * time.Minute
)

func main() {
	var (
		rosterFile = flag.String("roster", "", "Roster JSON keyed by tour")
		paramsFile = flag.String("params", "", "Hyperparameter override document (JSON or YAML)")
		tours      = flag.String("tour", "atp,wta", "Comma separated tours to rate")
		topN       = flag.Int("top", defaultTopN, "Leaderboard rows per tour")
		player     = flag.String("player", "", "Include this player's full record")
		outputFile = flag.String("output", "", "Output file for the report (default: stdout)")
		seedDSN    = flag.String("seed-dsn", "", "Load the roster into this Postgres database instead of reporting")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		report.ShowHelp()
		return
	}

	if err := report.SetupLogging(*verbose); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	selected, err := parseTours(*tours)
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	config := &report.Config{
		RosterFile: *rosterFile,
		ParamsFile: *paramsFile,
		Tours:      selected,
		TopN:       *topN,
		Player:     *player,
		OutputFile: *outputFile,
		SeedDSN:    *seedDSN,
		Verbose:    *verbose,
	}

	if config.SeedDSN != "" {
		if _, err := report.Seed(ctx, config); err != nil {
			os.Stderr.WriteString("Seed failed: " + err.Error() + "\n")
			os.Exit(1)
		}
		return
	}

	if err := report.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Report failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func parseTours(raw string) ([]model.Tour, error) {
	var out []model.Tour
	for _, part := range strings.Split(raw, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		t, ok := model.LookupTour(part)
		if !ok {
			return nil, &unknownTourError{name: part}
		}
		out = append(out, t)
	}
	return out, nil
}

type unknownTourError struct{ name string }

func (e *unknownTourError) Error() string { return "unknown tour: " + strings.TrimSpace(e.name) }

// Package report builds offline form reports from a roster file.
package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/courtform/internal/adapters/paramsource"
	"github.com/okian/courtform/internal/adapters/repository"
	"github.com/okian/courtform/internal/adapters/roster"
	"github.com/okian/courtform/internal/domain/hyperparams"
	"github.com/okian/courtform/internal/domain/model"
	"github.com/okian/courtform/internal/domain/rating"
	"github.com/okian/courtform/pkg/logger"
)

// File permission constants.
const (
	reportFilePermission = 0o600
)

// ErrNoRoster is returned when Config.RosterFile is empty.
var ErrNoRoster = errors.New("roster file is required")

// Run computes the report and writes it to the configured output. The output
// file is only created once the report has been built.
func Run(ctx context.Context, config *Config) error {
	rep, err := Build(ctx, config, time.Now())
	if err != nil {
		return err
	}

	out := io.Writer(os.Stdout)
	if config.OutputFile != "" {
		f, err := os.OpenFile(config.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, reportFilePermission)
		if err != nil {
			return fmt.Errorf("open output: %w", err)
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rep); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// Build reads the inputs and rates every requested tour.
func Build(ctx context.Context, config *Config, now time.Time) (*Report, error) {
	log := logger.Get().Named("report")

	if config.RosterFile == "" {
		return nil, ErrNoRoster
	}
	doc, rejected, err := roster.NewFileProvider(config.RosterFile).Load(ctx)
	if err != nil {
		return nil, err
	}

	params, err := loadParams(ctx, config.ParamsFile)
	if err != nil {
		return nil, err
	}

	tours := config.Tours
	if len(tours) == 0 {
		tours = model.Tours
	}
	topN := max(config.TopN, 1)

	rep := &Report{GeneratedAt: now.UTC(), ParamsFile: config.ParamsFile}
	for _, tour := range tours {
		players, ok := doc[tour]
		if !ok {
			log.Warn(ctx, "tour missing from roster", logger.String("tour", string(tour)))
			continue
		}

		res := rating.Compute(players, tour, params)
		snap := repository.NewSnapshot("report", res, now)

		if n := rejected[tour]; n > 0 {
			log.Warn(ctx, "roster entries rejected", logger.String("tour", string(tour)), logger.Int("rejected", n))
		}

		tr := TourReport{
			Tour:     tour,
			Rejected: rejected[tour],
			Stats:    res.Stats,
			Top:      snap.Ranked[:min(topN, len(snap.Ranked))],
		}
		if config.Player != "" {
			tr.Player = findPlayer(ctx, snap, config.Player)
		}
		rep.Tours = append(rep.Tours, tr)

		log.Info(ctx, "tour rated",
			logger.String("tour", string(tour)),
			logger.Int("players", res.Stats.Players),
			logger.Int("matches", res.Stats.Matches),
			logger.Int("unresolved", res.Stats.Unresolved),
		)
	}
	return rep, nil
}

func loadParams(ctx context.Context, path string) (*hyperparams.Params, error) {
	if path == "" {
		return hyperparams.Defaults(), nil
	}
	raw, err := paramsource.NewFile(path).Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return hyperparams.Merge(hyperparams.Defaults(), raw)
}

// findPlayer reads one player through a throwaway store so lookups follow
// the same exact-then-normalized resolution as the service.
func findPlayer(ctx context.Context, snap *repository.Snapshot, name string) *PlayerReport {
	store := repository.NewSnapshotStore(repository.WithTours(snap.Tour))
	if err := store.Publish(ctx, snap); err != nil {
		return nil
	}
	rec, err := store.Get(ctx, snap.Tour, name)
	if err != nil {
		return nil
	}
	pr := &PlayerReport{RatingRecord: rec}
	if rank, err := store.PeerRank(ctx, snap.Tour, rec.Name); err == nil {
		pr.PeerRank = &rank
	}
	return pr
}

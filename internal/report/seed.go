package report

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/courtform/internal/adapters/roster"
	"github.com/okian/courtform/internal/domain/model"
	"github.com/okian/courtform/pkg/logger"
)

// ErrNoSeedDSN is returned by Seed when Config.SeedDSN is empty.
var ErrNoSeedDSN = errors.New("seed database DSN is required")

// Upserter stores roster entries.
type Upserter interface {
	Upsert(ctx context.Context, tour model.Tour, pl model.Player) error
}

// Seed copies the roster file into the Postgres players table so the server
// can run from the database.
func Seed(ctx context.Context, config *Config) (map[model.Tour]int, error) {
	if config.SeedDSN == "" {
		return nil, ErrNoSeedDSN
	}
	pg, err := roster.OpenPostgres(ctx, config.SeedDSN)
	if err != nil {
		return nil, err
	}
	defer pg.Close()

	if err := pg.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return SeedInto(ctx, config, pg)
}

// SeedInto writes every named player of the selected tours to store and
// returns how many were written per tour.
func SeedInto(ctx context.Context, config *Config, store Upserter) (map[model.Tour]int, error) {
	log := logger.Get().Named("seed")

	if config.RosterFile == "" {
		return nil, ErrNoRoster
	}
	doc, rejected, err := roster.NewFileProvider(config.RosterFile).Load(ctx)
	if err != nil {
		return nil, err
	}

	tours := config.Tours
	if len(tours) == 0 {
		tours = model.Tours
	}

	written := make(map[model.Tour]int, len(tours))
	for _, tour := range tours {
		for _, pl := range doc[tour] {
			if pl.Name == "" {
				continue
			}
			if err := store.Upsert(ctx, tour, pl); err != nil {
				return written, err
			}
			written[tour]++
		}
		log.Info(ctx, "tour seeded",
			logger.String("tour", string(tour)),
			logger.Int("players", written[tour]),
			logger.Int("rejected", rejected[tour]),
		)
	}
	return written, nil
}

package roster

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/courtform/internal/domain/model"
)

//go:embed schema.sql
var schema embed.FS

const rosterQuery = `
	SELECT name, rank, points, stats
	  FROM players
	 WHERE tour = $1
	 ORDER BY rank ASC NULLS LAST, name ASC
`

// PostgresProvider reads rosters from a players table.
type PostgresProvider struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to dsn and returns a provider.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresProvider, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: connect: %w", ErrReadRoster, err)
	}
	return &PostgresProvider{pool: pool}, nil
}

// Close releases the pool.
func (p *PostgresProvider) Close() { p.pool.Close() }

// Migrate creates the players table if it does not exist.
func (p *PostgresProvider) Migrate(ctx context.Context) error {
	sqlBytes, err := schema.ReadFile("schema.sql")
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx, string(sqlBytes))
	return err
}

// Roster implements Provider.
func (p *PostgresProvider) Roster(ctx context.Context, tour model.Tour) ([]model.Player, error) {
	rows, err := p.pool.Query(ctx, rosterQuery, string(tour))
	if err != nil {
		return nil, fmt.Errorf("%w: query %s: %w", ErrReadRoster, tour, err)
	}
	defer rows.Close()

	var players []model.Player
	for rows.Next() {
		var (
			name   string
			rank   *int32
			points *float64
			stats  []byte
		)
		if err := rows.Scan(&name, &rank, &points, &stats); err != nil {
			return nil, fmt.Errorf("%w: scan %s: %w", ErrReadRoster, tour, err)
		}
		players = append(players, playerFromRow(name, rank, points, stats))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows %s: %w", ErrReadRoster, tour, err)
	}
	return players, nil
}

// Upsert stores one roster entry, replacing any row with the same tour and
// name.
func (p *PostgresProvider) Upsert(ctx context.Context, tour model.Tour, pl model.Player) error {
	stats, err := json.Marshal(pl.Stats)
	if err != nil {
		return fmt.Errorf("%w: encode stats for %s: %w", ErrWriteRoster, pl.Name, err)
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO players(tour, name, rank, points, stats)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (tour, name) DO UPDATE
		   SET rank = EXCLUDED.rank,
		       points = EXCLUDED.points,
		       stats = EXCLUDED.stats,
		       updated_at = now()
	`, string(tour), pl.Name, pl.Rank, pl.Points, stats)
	if err != nil {
		return fmt.Errorf("%w: %s/%s: %w", ErrWriteRoster, tour, pl.Name, err)
	}
	return nil
}

// playerFromRow converts nullable columns into a Player. Undecodable stats
// leave the player without matches rather than dropping it.
func playerFromRow(name string, rank *int32, points *float64, stats []byte) model.Player {
	pl := model.Player{Name: strings.TrimSpace(name), Points: model.DefaultPoints}
	if rank != nil && *rank > 0 {
		r := int(*rank)
		pl.Rank = &r
	}
	if points != nil {
		pl.Points = *points
	}
	if len(stats) > 0 {
		_ = json.Unmarshal(stats, &pl.Stats)
	}
	return pl
}

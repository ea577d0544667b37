// Package roster provides player rosters from files or Postgres.
package roster

import (
	"context"
	"errors"

	"github.com/okian/courtform/internal/domain/model"
)

// Provider returns a tour's ordered roster.
type Provider interface {
	Roster(ctx context.Context, tour model.Tour) ([]model.Player, error)
}

// Sentinel error kinds for this package.
var (
	ErrReadRoster   = errors.New("read roster failed")
	ErrDecodeRoster = errors.New("decode roster failed")
	ErrWriteRoster  = errors.New("write roster failed")
	ErrTourMissing  = errors.New("tour missing from roster")
)

// Static serves fixed rosters; useful for tests and the report tool.
type Static map[model.Tour][]model.Player

// Roster implements Provider.
func (s Static) Roster(_ context.Context, tour model.Tour) ([]model.Player, error) {
	players, ok := s[tour]
	if !ok {
		return nil, ErrTourMissing
	}
	return players, nil
}

package roster

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/knadh/koanf/providers/file"

	"github.com/okian/courtform/internal/domain/model"
	"github.com/okian/courtform/pkg/logger"
	"github.com/okian/courtform/pkg/metrics"
)

// Document is the on-disk roster layout: players per tour key.
type Document map[model.Tour][]model.Player

// Rejected counts roster entries dropped while decoding, per tour.
type Rejected map[model.Tour]int

// FileProvider reads a JSON roster document on every call, so edits to the
// file are picked up by the next recomputation.
type FileProvider struct {
	path   string
	logger logger.Logger
}

// FileOption configures a FileProvider.
type FileOption func(*FileProvider)

// WithLogger sets where rejected entries are reported.
func WithLogger(l logger.Logger) FileOption {
	return func(p *FileProvider) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewFileProvider creates a provider for the JSON document at path.
func NewFileProvider(path string, opts ...FileOption) *FileProvider {
	p := &FileProvider{path: path, logger: logger.Nop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Load reads and decodes the whole document.
func (p *FileProvider) Load(_ context.Context) (Document, Rejected, error) {
	raw, err := file.Provider(p.path).ReadBytes()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %w", ErrReadRoster, p.path, err)
	}
	return Decode(raw)
}

// Roster implements Provider. Entries that fail to decode are skipped and
// reported; the rest of the tour is returned.
func (p *FileProvider) Roster(ctx context.Context, tour model.Tour) ([]model.Player, error) {
	doc, rejected, err := p.Load(ctx)
	if err != nil {
		return nil, err
	}
	if n := rejected[tour]; n > 0 {
		metrics.AddSkippedPlayers(string(tour), n)
		p.logger.Warn(ctx, "roster entries rejected",
			logger.String("tour", string(tour)),
			logger.String("path", p.path),
			logger.Int("rejected", n),
		)
	}
	players, ok := doc[tour]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTourMissing, tour)
	}
	return players, nil
}

// Decode parses a roster document. Tour keys are matched case-insensitively
// and unknown keys are ignored. Each player is decoded on its own: an entry
// that is not an object is dropped and counted, and a tour whose value is not
// a list is left out of the document. Only a document that is not a JSON
// object fails as a whole.
func Decode(raw []byte) (Document, Rejected, error) {
	var byKey map[string]json.RawMessage
	if err := json.Unmarshal(raw, &byKey); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrDecodeRoster, err)
	}

	doc := make(Document, len(byKey))
	rejected := Rejected{}
	for key, value := range byKey {
		tour, ok := model.LookupTour(key)
		if !ok {
			continue
		}
		var entries []json.RawMessage
		if err := json.Unmarshal(value, &entries); err != nil {
			rejected[tour]++
			continue
		}
		players := make([]model.Player, 0, len(entries))
		for _, entry := range entries {
			var pl model.Player
			if err := json.Unmarshal(entry, &pl); err != nil {
				rejected[tour]++
				continue
			}
			players = append(players, pl)
		}
		doc[tour] = players
	}
	return doc, rejected, nil
}

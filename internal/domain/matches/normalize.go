// Package matches turns scraped per-player match collections into uniform,
// oldest-first match events with inferred results.
package matches

import (
	"strings"

	"github.com/okian/courtform/internal/domain/model"
	"github.com/okian/courtform/internal/domain/names"
)

// Defaults for blank fields.
const (
	DefaultRound      = "-"
	DefaultTournament = "Tournament"
	DefaultCategory   = "other"
	DefaultSurface    = "HARD"
)

// Overrides maps a normalized tournament name to a replacement category.
type Overrides map[string]string

// NewOverrides normalizes the keys and lowercases the categories of a
// tournament-name table. Blank entries are dropped.
func NewOverrides(table map[string]string) Overrides {
	out := make(Overrides, len(table))
	for name, category := range table {
		key := names.Normalize(name)
		cat := strings.ToLower(strings.TrimSpace(category))
		if key == "" || cat == "" {
			continue
		}
		out[key] = cat
	}
	return out
}

// Category returns the override for a tournament, if any.
func (o Overrides) Category(tournament string) (string, bool) {
	if len(o) == 0 {
		return "", false
	}
	c, ok := o[names.Normalize(tournament)]
	return c, ok
}

// Normalize flattens the player's best recent-match collection into match
// events ordered oldest first. Placeholder opponents are dropped; events with
// no determinable result are kept with an empty Result.
func Normalize(p model.Player, tour model.Tour, overrides Overrides) []model.MatchEvent {
	src := SelectSource(Candidates(p.Stats))
	if src == nil {
		return nil
	}

	events := make([]model.MatchEvent, 0, src.Count())
	for _, t := range src.Tournaments {
		tournament := firstNonBlank(t.Name, DefaultTournament)
		category := strings.ToLower(firstNonBlank(t.Category, DefaultCategory))
		if c, ok := overrides.Category(tournament); ok {
			category = c
		}
		surface := firstNonBlank(t.Surface, t.SurfaceKey, DefaultSurface)

		for _, m := range t.Matches {
			if ev, ok := normalizeMatch(m, tour); ok {
				ev.TournamentName = tournament
				ev.Category = category
				ev.Surface = surface
				events = append(events, ev)
			}
		}
	}

	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	return events
}

func normalizeMatch(m model.RawMatch, tour model.Tour) (model.MatchEvent, bool) {
	opponent := strings.TrimSpace(m.OpponentName)
	if isPlaceholder(opponent) {
		return model.MatchEvent{}, false
	}

	score := firstNonBlank(m.Score, m.ScoreRaw)
	walkover := IsWalkover(score)
	explicit := trimUpper(m.Result)

	result := explicit
	if result != model.ResultWin && result != model.ResultLoss {
		result = InferResult(m.Score, m.ScoreRaw)
		if result == "" && walkover {
			result = model.ResultWin
		}
	}

	if tour == model.TourWTA && needsFlip(explicit, score) {
		score = FlipScore(score)
	}

	return model.MatchEvent{
		Result:       result,
		OpponentName: opponent,
		OpponentRank: m.OpponentRank.Ptr(),
		Score:        score,
		ScoreRaw:     strings.TrimSpace(m.ScoreRaw),
		Round:        firstNonBlank(m.RoundName, m.Round, DefaultRound),
		IsWalkover:   walkover,
		IsRetirement: IsRetirement(score, m.ScoreRaw),
		Tour:         tour,
	}, true
}

// Qualifying keeps decided, non-walkover events and returns at most the last
// window of them. A non-positive window keeps none.
func Qualifying(events []model.MatchEvent, window int) []model.MatchEvent {
	if window <= 0 {
		return nil
	}
	kept := make([]model.MatchEvent, 0, len(events))
	for _, ev := range events {
		if ev.Decided() && !ev.IsWalkover {
			kept = append(kept, ev)
		}
	}
	if len(kept) > window {
		kept = kept[len(kept)-window:]
	}
	return kept
}

func isPlaceholder(opponent string) bool {
	return opponent == "" || opponent == "-" || strings.EqualFold(opponent, "bye")
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

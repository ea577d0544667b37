// Package model contains domain models passed between layers.
package model

import "strings"

// Tour identifies a ranking circuit.
type Tour string

// Supported tours.
const (
	TourATP Tour = "atp"
	TourWTA Tour = "wta"
)

// Tours lists every supported tour in processing order.
var Tours = []Tour{TourATP, TourWTA} //nolint:gochecknoglobals // fixed enumeration

// ParseTour maps free text to a Tour. Anything other than "wta" is ATP.
func ParseTour(s string) Tour {
	if strings.EqualFold(strings.TrimSpace(s), string(TourWTA)) {
		return TourWTA
	}
	return TourATP
}

// LookupTour is the strict form of ParseTour: unknown names are rejected.
func LookupTour(s string) (Tour, bool) {
	switch t := Tour(strings.ToLower(strings.TrimSpace(s))); t {
	case TourATP, TourWTA:
		return t, true
	default:
		return "", false
	}
}

// ValidTour reports whether s names a supported tour exactly.
func ValidTour(s string) bool {
	_, ok := LookupTour(s)
	return ok
}

// Match results.
const (
	ResultWin  = "W"
	ResultLoss = "L"
)

// Player is one roster entry as delivered by a roster provider.
type Player struct {
	Name   string
	Rank   *int // nil when unranked
	Points float64
	Stats  Stats
}

// RankOr returns the player's rank or fallback when unranked.
func (p Player) RankOr(fallback int) int {
	if p.Rank == nil {
		return fallback
	}
	return *p.Rank
}

// Stats is the bag of recent-match collections attached to a player.
// Several near-duplicate collections may be present; see matches.SelectSource.
type Stats struct {
	RecentMatchesTab             *RecentMatches `json:"recent_matches_tab,omitempty"`
	RecentMatches                *RecentMatches `json:"recent_matches,omitempty"`
	RecentMatchesFromTournaments *RecentMatches `json:"recent_matches_from_tournaments,omitempty"`
	RecentMatchesBest            *RecentMatches `json:"recent_matches_best,omitempty"`
}

// RecentMatches groups raw matches by tournament, newest first.
type RecentMatches struct {
	Tournaments []Tournament `json:"tournaments"`
}

// Count returns the flattened number of matches.
func (r *RecentMatches) Count() int {
	if r == nil {
		return 0
	}
	n := 0
	for _, t := range r.Tournaments {
		n += len(t.Matches)
	}
	return n
}

// Tournament is one event with its raw matches.
type Tournament struct {
	Name       string     `json:"tournament"`
	Category   string     `json:"category"`
	Surface    string     `json:"surface"`
	SurfaceKey string     `json:"surface_key"`
	Matches    []RawMatch `json:"matches"`
}

// RawMatch is a match record exactly as scraped; every field may be blank.
type RawMatch struct {
	OpponentName string  `json:"opponent_name"`
	OpponentRank FlexInt `json:"opponent_rank"`
	Score        string  `json:"score"`
	ScoreRaw     string  `json:"score_raw"`
	Result       string  `json:"result"`
	RoundName    string  `json:"round_name"`
	Round        string  `json:"round"`
}

// MatchEvent is a normalized match from one player's perspective.
type MatchEvent struct {
	Result         string `json:"result"`
	OpponentName   string `json:"opponentName"`
	OpponentRank   *int   `json:"opponentRank"`
	Score          string `json:"score"`
	ScoreRaw       string `json:"scoreRaw"`
	Round          string `json:"round"`
	TournamentName string `json:"tournamentName"`
	Category       string `json:"category"`
	Surface        string `json:"surface"`
	IsWalkover     bool   `json:"isWalkover"`
	IsRetirement   bool   `json:"isRetirement"`
	Tour           Tour   `json:"tour"`
}

// Decided reports whether the event carries a W or L result.
func (e MatchEvent) Decided() bool {
	return e.Result == ResultWin || e.Result == ResultLoss
}

// HistoryEntry records one processed match and every factor behind its delta.
type HistoryEntry struct {
	Form                 float64 `json:"form"`
	Delta                float64 `json:"delta"`
	OpponentName         string  `json:"opponentName"`
	OpponentRank         *int    `json:"opponentRank"`
	OpponentRankPoints   float64 `json:"opponentRankPoints"`
	OpponentForm         float64 `json:"opponentForm,omitempty"`
	Result               string  `json:"result"`
	Score                string  `json:"score"`
	TournamentName       string  `json:"tournamentName"`
	Category             string  `json:"category"`
	Round                string  `json:"round"`
	Surface              string  `json:"surface"`
	StrengthRatio        float64 `json:"strengthRatio"`
	DominanceMultiplier  float64 `json:"dominanceMultiplier"`
	BasePoints           float64 `json:"basePoints"`
	IsRetirement         bool    `json:"isRetirement"`
	RetirementState      string  `json:"retirementState,omitempty"`
	RetirementMultiplier float64 `json:"retirementMultiplier"`
	IsWalkover           bool    `json:"isWalkover"`
}

// RatingRecord is a player's computed form for one pass.
type RatingRecord struct {
	Name       string         `json:"name"`
	Elo        float64        `json:"elo"`
	InitialElo float64        `json:"initialElo"`
	EloHistory []HistoryEntry `json:"eloHistory"`
	Momentum   float64        `json:"momentum"`
	WeekDelta  float64        `json:"weekDelta"`
	MatchCount int            `json:"matchCount"`
}

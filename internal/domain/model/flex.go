package model

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// DefaultPoints is assigned to players whose roster entry carries no points.
const DefaultPoints = 1000

// FlexInt decodes a positive integer from a JSON number or numeric string.
// Null, blanks, zero, negatives and non-numeric text decode as absent.
type FlexInt struct {
	Value int
	Valid bool
}

// Ptr returns the value as a pointer, nil when absent.
func (f FlexInt) Ptr() *int {
	if !f.Valid {
		return nil
	}
	v := f.Value
	return &v
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexInt) UnmarshalJSON(data []byte) error {
	*f = FlexInt{}
	n, ok := decodeNumber(data)
	if !ok {
		return nil
	}
	i := int(math.Trunc(n))
	if i > 0 {
		*f = FlexInt{Value: i, Valid: true}
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (f FlexInt) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(f.Value)), nil
}

// FlexFloat decodes a finite number from a JSON number or numeric string,
// tolerating thousands separators ("10,305").
type FlexFloat struct {
	Value float64
	Valid bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	*f = FlexFloat{}
	if n, ok := decodeNumber(data); ok {
		*f = FlexFloat{Value: n, Valid: true}
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (f FlexFloat) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, f.Value, 'f', -1, 64), nil
}

func decodeNumber(data []byte) (float64, bool) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return 0, false
	}
	text := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return 0, false
		}
		text = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	}
	n, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

// FlexString decodes any JSON scalar as text. Numbers and booleans keep their
// literal spelling; null, objects and arrays decode as blank.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	*f = ""
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err == nil {
			*f = FlexString(s)
		}
	case '{', '[', 'n':
	default:
		*f = FlexString(data)
	}
	return nil
}

// decodeEach decodes a JSON array element by element and drops the elements
// that fail. Anything other than an array decodes as nil.
func decodeEach[T any](data json.RawMessage) []T {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil
	}
	var out []T
	for _, item := range items {
		var v T
		if err := json.Unmarshal(item, &v); err == nil {
			out = append(out, v)
		}
	}
	return out
}

// decodeCollection decodes one recent-match collection, nil when absent or
// not an object.
func decodeCollection(data json.RawMessage) *RecentMatches {
	if isNull(data) {
		return nil
	}
	var rm RecentMatches
	if err := json.Unmarshal(data, &rm); err != nil {
		return nil
	}
	return &rm
}

func isNull(data json.RawMessage) bool {
	data = bytes.TrimSpace(data)
	return len(data) == 0 || bytes.Equal(data, []byte("null"))
}

type playerJSON struct {
	Name   string    `json:"name"`
	Rank   FlexInt   `json:"rank"`
	Points FlexFloat `json:"points"`
	Stats  *Stats    `json:"stats"`
}

type playerInJSON struct {
	Name      FlexString      `json:"name"`
	Rank      FlexInt         `json:"rank"`
	Points    FlexFloat       `json:"points"`
	Stats     json.RawMessage `json:"stats"`
	StatsYear json.RawMessage `json:"stats_2026"`
}

// UnmarshalJSON accepts loosely typed roster entries. Stats are read from
// "stats", falling back to the season-keyed "stats_2026" bag. Only an entry
// that is not a JSON object fails; malformed fields inside it degrade to
// blanks, and malformed matches are dropped.
func (p *Player) UnmarshalJSON(data []byte) error {
	var raw playerInJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = Player{
		Name:   strings.TrimSpace(string(raw.Name)),
		Rank:   raw.Rank.Ptr(),
		Points: DefaultPoints,
	}
	if raw.Points.Valid {
		p.Points = raw.Points.Value
	}
	stats := raw.Stats
	if isNull(stats) {
		stats = raw.StatsYear
	}
	if !isNull(stats) {
		_ = json.Unmarshal(stats, &p.Stats)
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (p Player) MarshalJSON() ([]byte, error) {
	rank := FlexInt{}
	if p.Rank != nil {
		rank = FlexInt{Value: *p.Rank, Valid: true}
	}
	stats := p.Stats
	return json.Marshal(playerJSON{
		Name:   p.Name,
		Rank:   rank,
		Points: FlexFloat{Value: p.Points, Valid: true},
		Stats:  &stats,
	})
}

// UnmarshalJSON decodes each collection independently; one that is not an
// object is treated as absent.
func (s *Stats) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = Stats{
		RecentMatchesTab:             decodeCollection(raw["recent_matches_tab"]),
		RecentMatches:                decodeCollection(raw["recent_matches"]),
		RecentMatchesFromTournaments: decodeCollection(raw["recent_matches_from_tournaments"]),
		RecentMatchesBest:            decodeCollection(raw["recent_matches_best"]),
	}
	return nil
}

// UnmarshalJSON drops tournaments that are not objects.
func (r *RecentMatches) UnmarshalJSON(data []byte) error {
	var raw struct {
		Tournaments json.RawMessage `json:"tournaments"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = RecentMatches{Tournaments: decodeEach[Tournament](raw.Tournaments)}
	return nil
}

type tournamentJSON struct {
	Name       FlexString      `json:"tournament"`
	Category   FlexString      `json:"category"`
	Surface    FlexString      `json:"surface"`
	SurfaceKey FlexString      `json:"surface_key"`
	Matches    json.RawMessage `json:"matches"`
}

// UnmarshalJSON coerces scalar fields to text and drops matches that are not
// objects.
func (t *Tournament) UnmarshalJSON(data []byte) error {
	var raw tournamentJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*t = Tournament{
		Name:       string(raw.Name),
		Category:   string(raw.Category),
		Surface:    string(raw.Surface),
		SurfaceKey: string(raw.SurfaceKey),
		Matches:    decodeEach[RawMatch](raw.Matches),
	}
	return nil
}

type rawMatchJSON struct {
	OpponentName FlexString `json:"opponent_name"`
	OpponentRank FlexInt    `json:"opponent_rank"`
	Score        FlexString `json:"score"`
	ScoreRaw     FlexString `json:"score_raw"`
	Result       FlexString `json:"result"`
	RoundName    FlexString `json:"round_name"`
	Round        FlexString `json:"round"`
}

// UnmarshalJSON coerces every field to text, so "score": 6 reads as "6".
func (m *RawMatch) UnmarshalJSON(data []byte) error {
	var raw rawMatchJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = RawMatch{
		OpponentName: string(raw.OpponentName),
		OpponentRank: raw.OpponentRank,
		Score:        string(raw.Score),
		ScoreRaw:     string(raw.ScoreRaw),
		Result:       string(raw.Result),
		RoundName:    string(raw.RoundName),
		Round:        string(raw.Round),
	}
	return nil
}

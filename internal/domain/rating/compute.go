package rating

import (
	"math"

	"github.com/okian/courtform/internal/domain/hyperparams"
	"github.com/okian/courtform/internal/domain/lookup"
	"github.com/okian/courtform/internal/domain/matches"
	"github.com/okian/courtform/internal/domain/model"
	"github.com/okian/courtform/internal/domain/names"
)

// momentumWindow is the number of trailing deltas averaged into momentum and
// the lookback used for the period delta.
const momentumWindow = 3

// MatchInput is everything the per-match step needs about one event.
type MatchInput struct {
	Event            model.MatchEvent
	Current          float64
	PlayerPoints     float64
	OpponentPoints   float64
	MatchesProcessed int
}

// Step is the outcome of one match with its intermediate factors.
type Step struct {
	Delta                float64
	Rating               float64
	RankFactor           float64
	Dominance            float64
	Base                 float64
	RetirementState      string
	RetirementMultiplier float64
}

// Calculator applies one parameter set to individual matches.
type Calculator struct {
	params  *hyperparams.Params
	factors map[string]float64
}

// NewCalculator prepares p for repeated use. A nil p uses the defaults.
func NewCalculator(p *hyperparams.Params) *Calculator {
	if p == nil {
		p = hyperparams.Defaults()
	}
	factors := make(map[string]float64, len(p.TournamentFactors))
	for name, f := range p.TournamentFactors {
		if key := names.Normalize(name); key != "" {
			factors[key] = f
		}
	}
	return &Calculator{params: p, factors: factors}
}

// Params returns the parameters the calculator was built with.
func (c *Calculator) Params() *hyperparams.Params { return c.params }

// MatchDelta computes the rating change for one decided match.
func (c *Calculator) MatchDelta(in MatchInput) Step {
	p := c.params
	ev := in.Event
	win := ev.Result == model.ResultWin

	st := Step{RetirementMultiplier: 1}
	st.RankFactor = RankFactor(p.RankFactor, in.PlayerPoints, in.OpponentPoints, win)
	st.Dominance = DominanceMultiplier(p.Dominance, ev.Score, ev.Result)
	st.Base = BaseMagnitude(p.K, in.MatchesProcessed,
		EventWeight(p, c.factors, names.Normalize(ev.TournamentName), ev.Category))

	delta := st.Base * st.RankFactor * st.Dominance
	delta = Dampen(p.Form, p.Dampening, delta, in.Current, win)

	if ev.IsWalkover {
		delta *= p.WalkoverMultiplier
	}
	if ev.IsRetirement {
		st.RetirementState = ClassifyRetirement(ev.Score)
		st.RetirementMultiplier = RetirementMultiplier(p.Retirement, win, st.RetirementState)
		delta *= st.RetirementMultiplier
	}

	if win {
		delta = clamp(delta, p.DeltaClamp.WinMin, p.DeltaClamp.WinMax)
	} else {
		delta = clamp(delta, p.DeltaClamp.LossMin, p.DeltaClamp.LossMax)
	}

	st.Delta = delta
	st.Rating = clamp(in.Current+delta, p.Form.Floor, p.Form.Ceiling)
	return st
}

// PassStats summarizes one computation pass.
type PassStats struct {
	Players    int `json:"players"`
	Skipped    int `json:"skipped"`
	Duplicates int `json:"duplicates"`
	Matches    int `json:"matches"`
	Unresolved int `json:"unresolved"`
	MaxDepth   int `json:"maxDepth"`
}

// Result holds every player's record for one tour, keyed by roster name.
type Result struct {
	Tour    model.Tour
	Records map[string]model.RatingRecord
	Order   []string
	Stats   PassStats
}

type playerState struct {
	name      string
	self      int
	owner     bool
	points    float64
	seed      float64
	current   float64
	processed int
	events    []model.MatchEvent
	history   []model.HistoryEntry
}

// Compute rates a whole roster. Players are seeded at the default form and
// their matches are processed depth by depth across the roster, so that an
// opponent's live rating reflects roughly contemporaneous form. Unnamed
// players are skipped. Spellings that share a canonical key each get a record,
// but only the better-ranked one feeds the shared lookup entry. A roster name
// repeated verbatim keeps the entry that owns the lookup key, else the first.
func Compute(roster []model.Player, tour model.Tour, p *hyperparams.Params) Result {
	calc := NewCalculator(p)
	p = calc.Params()

	ix := lookup.Build(roster)
	overrides := matches.NewOverrides(p.TournamentCategories)

	res := Result{Tour: tour, Records: make(map[string]model.RatingRecord, len(roster))}
	states := make([]*playerState, 0, len(roster))
	byName := make(map[string]int, len(roster))

	for i, pl := range roster {
		key := names.Normalize(pl.Name)
		if pl.Name == "" || key == "" {
			res.Stats.Skipped++
			continue
		}

		self, _ := ix.Find(key)
		owner := ix.Entry(self).Source == i
		if owner {
			ix.Seed(self, p.Form.Default, pl.Points)
		}

		events := matches.Qualifying(matches.Normalize(pl, tour, overrides), p.Form.MaxMatches)
		st := &playerState{
			name:    pl.Name,
			self:    self,
			owner:   owner,
			points:  pl.Points,
			seed:    p.Form.Default,
			current: p.Form.Default,
			events:  events,
		}

		if j, dup := byName[pl.Name]; dup {
			res.Stats.Duplicates++
			if owner {
				states[j] = st
			}
		} else {
			byName[pl.Name] = len(states)
			states = append(states, st)
		}
	}

	for _, s := range states {
		res.Stats.MaxDepth = max(res.Stats.MaxDepth, len(s.events))
	}

	for depth := 0; depth < res.Stats.MaxDepth; depth++ {
		for _, s := range states {
			if depth >= len(s.events) {
				continue
			}
			if !processMatch(calc, ix, s, s.events[depth]) {
				res.Stats.Unresolved++
			}
			res.Stats.Matches++
		}
	}

	res.Order = make([]string, 0, len(states))
	for _, s := range states {
		res.Order = append(res.Order, s.name)
		res.Records[s.name] = model.RatingRecord{
			Name:       s.name,
			Elo:        round2(s.current),
			InitialElo: round2(s.seed),
			EloHistory: s.history,
			Momentum:   Momentum(s.history),
			WeekDelta:  WeekDelta(s.history, s.seed),
			MatchCount: s.processed,
		}
	}
	res.Stats.Players = len(states)
	return res
}

// processMatch applies one event to s and reports whether the opponent was
// found in the index.
func processMatch(calc *Calculator, ix *lookup.Index, s *playerState, ev model.MatchEvent) bool {
	p := calc.Params()

	oppIdx, resolved := ix.Resolve(ev.OpponentName)
	oppRank := ev.OpponentRank
	var oppPoints, oppForm float64
	if resolved {
		opp := ix.Entry(oppIdx)
		oppPoints = opp.RankPoints
		oppForm = opp.Elo
		if oppRank == nil {
			oppRank = opp.Rank
		}
	} else {
		fallback := p.Form.DefaultPoints
		if ev.OpponentRank != nil {
			fallback = float64(*ev.OpponentRank)
		}
		oppPoints = fallback * p.Form.OpponentFallbackScale
	}

	st := calc.MatchDelta(MatchInput{
		Event:            ev,
		Current:          s.current,
		PlayerPoints:     s.points,
		OpponentPoints:   oppPoints,
		MatchesProcessed: s.processed,
	})

	s.current = st.Rating
	s.processed++

	score := ev.Score
	if score == "" {
		score = "-"
	}
	s.history = append(s.history, model.HistoryEntry{
		Form:                 round2(st.Rating),
		Delta:                round2(st.Delta),
		OpponentName:         ev.OpponentName,
		OpponentRank:         oppRank,
		OpponentRankPoints:   round2(oppPoints),
		OpponentForm:         round2(oppForm),
		Result:               ev.Result,
		Score:                score,
		TournamentName:       ev.TournamentName,
		Category:             ev.Category,
		Round:                ev.Round,
		Surface:              ev.Surface,
		StrengthRatio:        round2(math.Abs(st.RankFactor)),
		DominanceMultiplier:  round2(st.Dominance),
		BasePoints:           round2(st.Base),
		IsRetirement:         ev.IsRetirement,
		RetirementState:      st.RetirementState,
		RetirementMultiplier: round2(st.RetirementMultiplier),
		IsWalkover:           ev.IsWalkover,
	})

	if s.owner {
		ix.SetElo(s.self, s.current)
	}
	return resolved
}

// Momentum is the mean delta of the last three history entries, 0 if none.
func Momentum(history []model.HistoryEntry) float64 {
	if len(history) == 0 {
		return 0
	}
	start := max(0, len(history)-momentumWindow)
	sum := 0.0
	for _, h := range history[start:] {
		sum += h.Delta
	}
	return round2(sum / float64(len(history)-start))
}

// WeekDelta compares the latest form with the form three matches earlier, or
// with the initial seed when the history is shorter than that.
func WeekDelta(history []model.HistoryEntry, seed float64) float64 {
	if len(history) == 0 {
		return 0
	}
	latest := history[len(history)-1].Form
	baselineIdx := len(history) - 1 - min(momentumWindow, len(history))
	baseline := seed
	if baselineIdx >= 0 {
		baseline = history[baselineIdx].Form
	}
	return round2(latest - baseline)
}

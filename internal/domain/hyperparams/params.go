// Package hyperparams holds the tunable constants of the form rating
// algorithm, their compiled-in defaults, and the store that swaps in
// externally supplied overrides.
package hyperparams

import (
	"fmt"
	"math"
	"strings"
)

// Params is the full hyperparameter document. A value is treated as
// immutable once it has been published by a Store.
type Params struct {
	Form                 Form               `koanf:"form" json:"form"`
	CategoryMultipliers  map[string]float64 `koanf:"category_multipliers" json:"category_multipliers"`
	K                    K                  `koanf:"k" json:"k"`
	RankFactor           RankFactor         `koanf:"rank_factor" json:"rank_factor"`
	Dominance            Dominance          `koanf:"dominance" json:"dominance"`
	Dampening            Dampening          `koanf:"dampening" json:"dampening"`
	Retirement           Retirement         `koanf:"retirement" json:"retirement"`
	WalkoverMultiplier   float64            `koanf:"walkover_multiplier" json:"walkover_multiplier"`
	DeltaClamp           DeltaClamp         `koanf:"delta_clamp" json:"delta_clamp"`
	TournamentFactors    map[string]float64 `koanf:"tournament_factors" json:"tournament_factors"`
	TournamentCategories map[string]string  `koanf:"tournament_categories" json:"tournament_categories"`
}

// Form bounds the rating scale.
type Form struct {
	Default               float64 `koanf:"default" json:"default"`
	Floor                 float64 `koanf:"floor" json:"floor"`
	Ceiling               float64 `koanf:"ceiling" json:"ceiling"`
	MaxMatches            int     `koanf:"max_matches" json:"max_matches"`
	DefaultPoints         float64 `koanf:"default_points" json:"default_points"`
	OpponentFallbackScale float64 `koanf:"opponent_fallback_scale" json:"opponent_fallback_scale"`
}

// K shapes the decaying base magnitude numerator / (n + offset)^decay.
type K struct {
	Numerator     float64 `koanf:"numerator" json:"numerator"`
	Offset        float64 `koanf:"offset" json:"offset"`
	DecayExponent float64 `koanf:"decay_exponent" json:"decay_exponent"`
}

// RankFactor scales and clamps the points-share multiplier.
type RankFactor struct {
	WinScale  float64 `koanf:"win_scale" json:"win_scale"`
	WinMin    float64 `koanf:"win_min" json:"win_min"`
	WinMax    float64 `koanf:"win_max" json:"win_max"`
	LossScale float64 `koanf:"loss_scale" json:"loss_scale"`
	LossMin   float64 `koanf:"loss_min" json:"loss_min"`
	LossMax   float64 `koanf:"loss_max" json:"loss_max"`
}

// Dominance adjusts the delta by set-score shape.
type Dominance struct {
	StraightSetsBonus       float64 `koanf:"straight_sets_bonus" json:"straight_sets_bonus"`
	TiebreakPenalty         float64 `koanf:"tiebreak_penalty" json:"tiebreak_penalty"`
	MarginBonusScale        float64 `koanf:"margin_bonus_scale" json:"margin_bonus_scale"`
	MarginBonusCap          float64 `koanf:"margin_bonus_cap" json:"margin_bonus_cap"`
	CloseLossThreeSets      float64 `koanf:"close_loss_three_sets" json:"close_loss_three_sets"`
	CloseLossTwoSets        float64 `koanf:"close_loss_two_sets" json:"close_loss_two_sets"`
	StraightSetsLossPenalty float64 `koanf:"straight_sets_loss_penalty" json:"straight_sets_loss_penalty"`
	Min                     float64 `koanf:"min" json:"min"`
	Max                     float64 `koanf:"max" json:"max"`
}

// Dampening slows movement toward the floor and ceiling.
type Dampening struct {
	CeilingStrength float64 `koanf:"ceiling_strength" json:"ceiling_strength"`
	FloorStrength   float64 `koanf:"floor_strength" json:"floor_strength"`
}

// Retirement multipliers, keyed by outcome and match state at retirement.
type Retirement struct {
	WinnerLeading  float64 `koanf:"winner_leading" json:"winner_leading"`
	WinnerTrailing float64 `koanf:"winner_trailing" json:"winner_trailing"`
	LoserLeading   float64 `koanf:"loser_leading" json:"loser_leading"`
	LoserTrailing  float64 `koanf:"loser_trailing" json:"loser_trailing"`
	Balanced       float64 `koanf:"balanced" json:"balanced"`
}

// DeltaClamp bounds the per-match delta by outcome.
type DeltaClamp struct {
	WinMin  float64 `koanf:"win_min" json:"win_min"`
	WinMax  float64 `koanf:"win_max" json:"win_max"`
	LossMin float64 `koanf:"loss_min" json:"loss_min"`
	LossMax float64 `koanf:"loss_max" json:"loss_max"`
}

// Defaults returns a fresh copy of the compiled-in parameters.
func Defaults() *Params {
	return &Params{
		Form: Form{
			Default:               1000,
			Floor:                 700,
			Ceiling:               1500,
			MaxMatches:            10,
			DefaultPoints:         1000,
			OpponentFallbackScale: 0.8,
		},
		CategoryMultipliers: map[string]float64{
			"grand_slam":        1.5,
			"masters_1000":      1.2,
			"premier_mandatory": 1.2,
			"wta_1000":          1.2,
			"atp_500":           0.9,
			"wta_500":           0.9,
			"atp_250":           0.7,
			"wta_250":           0.7,
			"wta_125":           0.6,
		},
		K: K{Numerator: 55, Offset: 2, DecayExponent: 0.25},
		RankFactor: RankFactor{
			WinScale: 2.4, WinMin: 0.15, WinMax: 2.5,
			LossScale: 2.2, LossMin: -2.5, LossMax: -0.15,
		},
		Dominance: Dominance{
			StraightSetsBonus:       0.30,
			TiebreakPenalty:         0.10,
			MarginBonusScale:        0.15,
			MarginBonusCap:          0.15,
			CloseLossThreeSets:      0.15,
			CloseLossTwoSets:        0.10,
			StraightSetsLossPenalty: 0.20,
			Min:                     0.5,
			Max:                     1.5,
		},
		Dampening: Dampening{CeilingStrength: 0.55, FloorStrength: 0.55},
		Retirement: Retirement{
			WinnerLeading:  0.75,
			WinnerTrailing: 0.35,
			LoserLeading:   0.35,
			LoserTrailing:  0.75,
			Balanced:       0.5,
		},
		WalkoverMultiplier:   0.25,
		DeltaClamp:           DeltaClamp{WinMin: 2, WinMax: 80, LossMin: -80, LossMax: -2},
		TournamentFactors:    map[string]float64{},
		TournamentCategories: map[string]string{},
	}
}

// CategoryMultiplier returns the weight of a tournament category, 1.0 when unknown.
func (p *Params) CategoryMultiplier(category string) float64 {
	if m, ok := p.CategoryMultipliers[strings.ToLower(strings.TrimSpace(category))]; ok {
		return m
	}
	return 1.0
}

// Validate rejects documents that would break the rating invariants.
func (p *Params) Validate() error {
	var problems []string
	check := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}

	f := p.Form
	check(finite(f.Floor, f.Default, f.Ceiling), "form bounds must be finite")
	check(f.Floor <= f.Default && f.Default <= f.Ceiling && f.Floor < f.Ceiling,
		"form requires floor <= default <= ceiling, got %v/%v/%v", f.Floor, f.Default, f.Ceiling)
	check(f.MaxMatches > 0, "form.max_matches must be positive, got %d", f.MaxMatches)
	check(f.DefaultPoints > 0, "form.default_points must be positive")
	check(f.OpponentFallbackScale > 0, "form.opponent_fallback_scale must be positive")

	check(p.K.Numerator > 0, "k.numerator must be positive")
	check(p.K.Offset > 0, "k.offset must be positive")
	check(p.K.DecayExponent >= 0, "k.decay_exponent must not be negative")

	rf := p.RankFactor
	check(rf.WinMin <= rf.WinMax && rf.WinMin >= 0, "rank_factor win range invalid")
	check(rf.LossMin <= rf.LossMax && rf.LossMax <= 0, "rank_factor loss range invalid")

	check(p.Dominance.Min > 0 && p.Dominance.Min <= p.Dominance.Max, "dominance range invalid")
	check(inUnit(p.Dampening.CeilingStrength) && inUnit(p.Dampening.FloorStrength),
		"dampening strengths must be within [0,1]")

	r := p.Retirement
	check(r.WinnerLeading >= 0 && r.WinnerTrailing >= 0 && r.LoserLeading >= 0 &&
		r.LoserTrailing >= 0 && r.Balanced >= 0, "retirement multipliers must not be negative")
	check(p.WalkoverMultiplier >= 0, "walkover_multiplier must not be negative")

	dc := p.DeltaClamp
	check(dc.WinMin >= 0 && dc.WinMin <= dc.WinMax, "delta_clamp win range invalid")
	check(dc.LossMax <= 0 && dc.LossMin <= dc.LossMax, "delta_clamp loss range invalid")

	for k, v := range p.CategoryMultipliers {
		check(v >= 0 && finite(v), "category_multipliers[%s] must be a non-negative number", k)
	}
	for k, v := range p.TournamentFactors {
		check(v >= 0 && finite(v), "tournament_factors[%s] must be a non-negative number", k)
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidParams, strings.Join(problems, "; "))
	}
	return nil
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func inUnit(v float64) bool { return v >= 0 && v <= 1 }

// Package rating implements the sequential form update algorithm.
package rating

import (
	"math"

	"github.com/okian/courtform/internal/domain/hyperparams"
	"github.com/okian/courtform/internal/domain/matches"
	"github.com/okian/courtform/internal/domain/model"
)

// Retirement states, from the perspective of the player being processed.
const (
	StateLeading  = "leading"
	StateTrailing = "trailing"
	StateBalanced = "balanced"
)

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// round2 rounds half away from zero to two decimals.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// RankFactor is the signed surprise multiplier from the players' share of
// combined ranking points. Points below 1 count as 1.
func RankFactor(rf hyperparams.RankFactor, playerPoints, opponentPoints float64, win bool) float64 {
	pp := math.Max(1, playerPoints)
	op := math.Max(1, opponentPoints)
	total := pp + op
	if win {
		return clamp(op/total*rf.WinScale, rf.WinMin, rf.WinMax)
	}
	return clamp(-(pp / total * rf.LossScale), rf.LossMin, rf.LossMax)
}

// DominanceMultiplier grades the shape of the set score. A score with no
// parseable sets is neutral.
func DominanceMultiplier(d hyperparams.Dominance, score, result string) float64 {
	sets := matches.ParseSets(score)
	if len(sets) == 0 {
		return 1.0
	}
	playerSets, opponentSets := matches.SetsWon(sets)

	m := 1.0
	if result == model.ResultWin {
		if opponentSets == 0 {
			m += d.StraightSetsBonus
		}
		if opponentSets > 0 && hadTiebreak(sets) {
			m -= d.TiebreakPenalty
		}
		maxMargin := 0
		for _, s := range sets {
			if s.Player > s.Opponent && s.Player-s.Opponent > maxMargin {
				maxMargin = s.Player - s.Opponent
			}
		}
		m += math.Min(d.MarginBonusCap, float64(maxMargin)/6*d.MarginBonusScale)
	} else {
		switch {
		case opponentSets == 1 && len(sets) == 3:
			m += d.CloseLossThreeSets
		case opponentSets == 1 && len(sets) == 2:
			m += d.CloseLossTwoSets
		}
		if playerSets == 0 {
			m -= d.StraightSetsLossPenalty
		}
	}
	return clamp(m, d.Min, d.Max)
}

func hadTiebreak(sets []matches.Set) bool {
	for _, s := range sets {
		diff := s.Player - s.Opponent
		if (diff == 1 || diff == -1) && (s.Player == 7 || s.Opponent == 7) {
			return true
		}
	}
	return false
}

// BaseMagnitude is the decaying, event-weighted scale of a delta. weight is
// the category or tournament factor.
func BaseMagnitude(k hyperparams.K, matchesProcessed int, weight float64) float64 {
	n := math.Max(0, float64(matchesProcessed))
	return k.Numerator / math.Pow(n+k.Offset, k.DecayExponent) * weight
}

// EventWeight picks the tournament-specific factor when one matches,
// otherwise the category multiplier.
func EventWeight(p *hyperparams.Params, factors map[string]float64, tournament, category string) float64 {
	if f, ok := factors[tournament]; ok {
		return f
	}
	return p.CategoryMultiplier(category)
}

// Dampen shrinks gains above the baseline and losses below it in proportion
// to how close the current form sits to the ceiling or floor.
func Dampen(f hyperparams.Form, d hyperparams.Dampening, delta, current float64, win bool) float64 {
	switch {
	case win && current > f.Default:
		proximity := (current - f.Default) / (f.Ceiling - f.Default)
		return delta * (1 - clamp(proximity, 0, 1)*d.CeilingStrength)
	case !win && current < f.Default:
		proximity := (f.Default - current) / (f.Default - f.Floor)
		return delta * (1 - clamp(proximity, 0, 1)*d.FloorStrength)
	default:
		return delta
	}
}

// completedSet reports a finished set: a winner with at least six games and a
// two-game margin, or a 7-6 tiebreak set.
func completedSet(s matches.Set) bool {
	hi, lo := s.Player, s.Opponent
	if lo > hi {
		hi, lo = lo, hi
	}
	if hi == 7 && lo == 6 {
		return true
	}
	return hi >= 6 && hi-lo >= 2
}

// ClassifyRetirement reads the state of a retired match from the processed
// player's side: completed sets decide, then games in the unfinished set.
func ClassifyRetirement(score string) string {
	sets := matches.ParseSets(score)
	won, lost := 0, 0
	var unfinished *matches.Set
	for i := range sets {
		s := sets[i]
		if !completedSet(s) {
			unfinished = &sets[i]
			continue
		}
		switch {
		case s.Player > s.Opponent:
			won++
		case s.Opponent > s.Player:
			lost++
		}
	}

	switch {
	case won > lost:
		return StateLeading
	case lost > won:
		return StateTrailing
	case unfinished != nil && unfinished.Player > unfinished.Opponent:
		return StateLeading
	case unfinished != nil && unfinished.Opponent > unfinished.Player:
		return StateTrailing
	default:
		return StateBalanced
	}
}

// RetirementMultiplier maps outcome and state to the configured multiplier.
func RetirementMultiplier(r hyperparams.Retirement, win bool, state string) float64 {
	switch {
	case state == StateBalanced:
		return r.Balanced
	case win && state == StateLeading:
		return r.WinnerLeading
	case win && state == StateTrailing:
		return r.WinnerTrailing
	case !win && state == StateLeading:
		return r.LoserLeading
	case !win && state == StateTrailing:
		return r.LoserTrailing
	default:
		return r.Balanced
	}
}

package matches

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/okian/courtform/internal/domain/model"
)

var (
	setPattern        = regexp.MustCompile(`(\d+)\s*-\s*(\d+)`)
	parenPattern      = regexp.MustCompile(`\(([^)]*)\)`)
	lettersPattern    = regexp.MustCompile(`[A-Za-z]+`)
	digitsPattern     = regexp.MustCompile(`\d+`)
	walkoverPattern   = regexp.MustCompile(`(?i)w\s*/\s*o`)
	retirementPattern = regexp.MustCompile(`(?i)\bret\b|ret\.`)
)

// maxTiebreakPoints bounds the token consumed after a 7-6 set in raw scores.
const maxTiebreakPoints = 20

// Set is one set's games from the player's perspective.
type Set struct {
	Player   int
	Opponent int
}

// ParseSets extracts "a-b" pairs from a display score.
func ParseSets(score string) []Set {
	found := setPattern.FindAllStringSubmatch(score, -1)
	if len(found) == 0 {
		return nil
	}
	sets := make([]Set, 0, len(found))
	for _, m := range found {
		a, errA := strconv.Atoi(m[1])
		b, errB := strconv.Atoi(m[2])
		if errA != nil || errB != nil {
			continue
		}
		sets = append(sets, Set{Player: a, Opponent: b})
	}
	return sets
}

// ParseSetsRaw pairs the numeric tokens of a raw score such as "76(5) 64".
// After a 7-6 or 6-7 pair, one following token in 0..20 is taken as the
// tiebreak and skipped.
func ParseSetsRaw(raw string) []Set {
	cleaned := parenPattern.ReplaceAllString(raw, " $1 ")
	cleaned = lettersPattern.ReplaceAllString(cleaned, " ")
	tokens := digitsPattern.FindAllString(cleaned, -1)

	values := make([]int, 0, len(tokens))
	for _, tok := range tokens {
		if v, err := strconv.Atoi(tok); err == nil {
			values = append(values, v)
		}
	}

	var sets []Set
	for i := 0; i+1 < len(values); {
		a, b := values[i], values[i+1]
		i += 2
		if (a == 7 && b == 6) || (a == 6 && b == 7) {
			if i < len(values) && values[i] >= 0 && values[i] <= maxTiebreakPoints {
				i++
			}
		}
		sets = append(sets, Set{Player: a, Opponent: b})
	}
	return sets
}

// SetsWon counts sets won by each side.
func SetsWon(sets []Set) (player, opponent int) {
	for _, s := range sets {
		switch {
		case s.Player > s.Opponent:
			player++
		case s.Opponent > s.Player:
			opponent++
		}
	}
	return player, opponent
}

// resultOf decides by majority of sets; "" when tied or empty.
func resultOf(sets []Set) string {
	p, o := SetsWon(sets)
	switch {
	case p > o:
		return model.ResultWin
	case o > p:
		return model.ResultLoss
	default:
		return ""
	}
}

// InferResult derives W or L from the score, falling back to the raw score
// when the display score has no parseable sets. It returns "" when undecided.
func InferResult(score, scoreRaw string) string {
	sets := ParseSets(score)
	if len(sets) == 0 {
		sets = ParseSetsRaw(scoreRaw)
	}
	return resultOf(sets)
}

// IsWalkover reports a walkover marker ("w/o") in the score.
func IsWalkover(score string) bool { return walkoverPattern.MatchString(score) }

// IsRetirement reports a retirement marker in either score form.
func IsRetirement(score, scoreRaw string) bool {
	return retirementPattern.MatchString(score) || retirementPattern.MatchString(scoreRaw)
}

// FlipScore rewrites every "a-b" as "b-a", leaving other text untouched.
func FlipScore(score string) string {
	return setPattern.ReplaceAllStringFunc(score, func(m string) string {
		parts := setPattern.FindStringSubmatch(m)
		return parts[2] + "-" + parts[1]
	})
}

// needsFlip reports whether an explicit result contradicts the orientation of
// the display score.
func needsFlip(explicit, score string) bool {
	if explicit != model.ResultWin && explicit != model.ResultLoss {
		return false
	}
	inferred := resultOf(ParseSets(score))
	return inferred != "" && inferred != explicit
}

func trimUpper(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }

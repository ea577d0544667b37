package matches

import "github.com/okian/courtform/internal/domain/model"

// Candidates lists the recent-match collections in priority order.
func Candidates(s model.Stats) []*model.RecentMatches {
	return []*model.RecentMatches{
		s.RecentMatchesTab,
		s.RecentMatches,
		s.RecentMatchesFromTournaments,
		s.RecentMatchesBest,
	}
}

// SelectSource returns the candidate holding the most matches. Ties keep the
// earliest candidate; nil is returned only when every candidate is nil.
func SelectSource(candidates []*model.RecentMatches) *model.RecentMatches {
	var best *model.RecentMatches
	bestCount := -1
	for _, c := range candidates {
		if c == nil {
			continue
		}
		if n := c.Count(); n > bestCount {
			best, bestCount = c, n
		}
	}
	return best
}

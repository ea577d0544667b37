// Package lookup resolves opponent name strings to roster players for a
// single computation pass. The index also carries each player's live rating,
// which the rating pass mutates in place as matches are processed.
package lookup

import (
	"sort"

	"github.com/okian/courtform/internal/domain/model"
	"github.com/okian/courtform/internal/domain/names"
)

// UnrankedRank orders unranked players after every ranked one.
const UnrankedRank = 9999

// Entry is one canonical player in the index.
type Entry struct {
	Key        string
	Name       string
	Rank       *int
	Elo        float64
	RankPoints float64
	// Source is the roster position of the player that owns the entry.
	Source int
}

type alias struct {
	idx  int
	rank int
}

// Index is an arena of entries addressed by position. It is not safe for
// concurrent use and must not outlive the pass that built it.
type Index struct {
	entries      []Entry
	byKey        map[string]int
	initialLast  map[string][]alias
	lastNameOnly map[string][]alias
}

// Build indexes a roster. Entries without a usable name are ignored. When two
// players share a canonical key, the better-ranked one wins.
func Build(roster []model.Player) *Index {
	ix := &Index{
		entries:      make([]Entry, 0, len(roster)),
		byKey:        make(map[string]int, len(roster)),
		initialLast:  make(map[string][]alias),
		lastNameOnly: make(map[string][]alias),
	}

	for i, p := range roster {
		key := names.Normalize(p.Name)
		if key == "" {
			continue
		}
		rank := p.RankOr(UnrankedRank)

		idx, exists := ix.byKey[key]
		switch {
		case !exists:
			idx = len(ix.entries)
			ix.entries = append(ix.entries, Entry{Key: key, Name: p.Name, Rank: p.Rank, RankPoints: p.Points, Source: i})
			ix.byKey[key] = idx
		case rankOf(ix.entries[idx].Rank) > rank:
			ix.entries[idx] = Entry{Key: key, Name: p.Name, Rank: p.Rank, RankPoints: p.Points, Source: i}
		}

		parts := names.Parts(p.Name)
		last := names.LastName(parts)
		initial := names.FirstInitial(parts)
		if last != "" && initial != "" {
			upsert(ix.initialLast, last+"|"+initial, idx, rank)
		}
		if last != "" {
			upsert(ix.lastNameOnly, last, idx, rank)
		}
	}

	return ix
}

func rankOf(r *int) int {
	if r == nil {
		return UnrankedRank
	}
	return *r
}

func upsert(m map[string][]alias, key string, idx, rank int) {
	list := m[key]
	for _, a := range list {
		if a.idx == idx {
			return
		}
	}
	list = append(list, alias{idx: idx, rank: rank})
	sort.SliceStable(list, func(i, j int) bool { return list[i].rank < list[j].rank })
	m[key] = list
}

// Len returns the number of canonical entries.
func (ix *Index) Len() int { return len(ix.entries) }

// Find returns the position of the entry with exactly this canonical key.
func (ix *Index) Find(key string) (int, bool) {
	idx, ok := ix.byKey[key]
	return idx, ok
}

// Resolve maps a free-form name to an entry position: direct canonical match,
// then the best-ranked "last|initial" alias, then a last-name match only when
// it is unambiguous.
func (ix *Index) Resolve(name string) (int, bool) {
	key := names.Normalize(name)
	if key == "" {
		return 0, false
	}
	if idx, ok := ix.byKey[key]; ok {
		return idx, true
	}

	parts := names.Parts(key)
	last := names.LastName(parts)
	initial := names.FirstInitial(parts)

	if last != "" && initial != "" {
		if bucket := ix.initialLast[last+"|"+initial]; len(bucket) > 0 {
			return bucket[0].idx, true
		}
	}
	if last != "" {
		if bucket := ix.lastNameOnly[last]; len(bucket) == 1 {
			return bucket[0].idx, true
		}
	}
	return 0, false
}

// Entry returns a copy of the entry at idx.
func (ix *Index) Entry(idx int) Entry { return ix.entries[idx] }

// Seed sets the live rating and ranking points of the entry at idx.
func (ix *Index) Seed(idx int, elo, points float64) {
	ix.entries[idx].Elo = elo
	ix.entries[idx].RankPoints = points
}

// SetElo updates the live rating of the entry at idx.
func (ix *Index) SetElo(idx int, elo float64) { ix.entries[idx].Elo = elo }

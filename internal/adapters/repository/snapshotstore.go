package repository

import (
	"context"
	"sort"
	"sync/atomic"
	"time"

	"github.com/okian/courtform/internal/domain/model"
	"github.com/okian/courtform/internal/domain/names"
	"github.com/okian/courtform/internal/domain/rating"
	"github.com/okian/courtform/pkg/metrics"
)

// Snapshot is an immutable view of one tour's ratings as produced by a
// single pass.
type Snapshot struct {
	PassID     string
	Tour       model.Tour
	ComputedAt time.Time
	Stats      rating.PassStats

	// Records by roster name, and roster order.
	Records map[string]model.RatingRecord
	Order   []string

	// Peer-ranked rows, best first, players with matches only.
	Ranked     []Entry
	rankByName map[string]int
	nameByKey  map[string]string
}

// NewSnapshot indexes a computation result for reads.
func NewSnapshot(passID string, res rating.Result, at time.Time) *Snapshot {
	snap := &Snapshot{
		PassID:     passID,
		Tour:       res.Tour,
		ComputedAt: at,
		Stats:      res.Stats,
		Records:    res.Records,
		Order:      res.Order,
		rankByName: make(map[string]int, len(res.Order)),
		nameByKey:  make(map[string]string, len(res.Order)),
	}
	if snap.Records == nil {
		snap.Records = map[string]model.RatingRecord{}
	}

	ranked := make([]Entry, 0, len(res.Order))
	for _, name := range res.Order {
		rec, ok := snap.Records[name]
		if !ok {
			continue
		}
		if key := names.Normalize(name); key != "" {
			if _, taken := snap.nameByKey[key]; !taken {
				snap.nameByKey[key] = name
			}
		}
		if rec.MatchCount == 0 {
			continue
		}
		ranked = append(ranked, Entry{
			Name:       name,
			Elo:        rec.Elo,
			Momentum:   rec.Momentum,
			WeekDelta:  rec.WeekDelta,
			MatchCount: rec.MatchCount,
		})
	}

	sortEntries(ranked)
	assignPositions(ranked)
	for _, e := range ranked {
		snap.rankByName[e.Name] = e.Rank
	}
	snap.Ranked = ranked
	return snap
}

// resolve finds the roster name for a query: exact first, then normalized.
func (s *Snapshot) resolve(name string) (string, bool) {
	if _, ok := s.Records[name]; ok {
		return name, true
	}
	key := names.Normalize(name)
	if key == "" {
		return "", false
	}
	found, ok := s.nameByKey[key]
	return found, ok
}

// SnapshotStore keeps one atomically swapped snapshot per tour. Readers never
// observe a partially built snapshot; the latest publish wins.
type SnapshotStore struct {
	tours     []model.Tour
	snapshots map[model.Tour]*atomic.Pointer[Snapshot]
}

// NewSnapshotStore constructs a store for the configured tours.
func NewSnapshotStore(opts ...Option) *SnapshotStore {
	s := &SnapshotStore{tours: model.Tours}
	for _, opt := range opts {
		opt(s)
	}
	s.snapshots = make(map[model.Tour]*atomic.Pointer[Snapshot], len(s.tours))
	for _, t := range s.tours {
		s.snapshots[t] = &atomic.Pointer[Snapshot]{}
	}
	return s
}

func (s *SnapshotStore) cell(tour model.Tour) (*atomic.Pointer[Snapshot], error) {
	p, ok := s.snapshots[tour]
	if !ok {
		metrics.RecordErrorByComponent("repository", "unknown_tour")
		return nil, ErrUnknownTour
	}
	return p, nil
}

// Publish implements Store.Publish.
func (s *SnapshotStore) Publish(_ context.Context, snap *Snapshot) error {
	cell, err := s.cell(snap.Tour)
	if err != nil {
		return err
	}
	cell.Store(snap)

	metrics.RecordSnapshotPublished(string(snap.Tour), snap.ComputedAt)
	metrics.UpdatePlayersRated(string(snap.Tour), len(snap.Records))
	return nil
}

// Snapshot implements Store.Snapshot.
func (s *SnapshotStore) Snapshot(_ context.Context, tour model.Tour) (*Snapshot, error) {
	cell, err := s.cell(tour)
	if err != nil {
		return nil, err
	}
	snap := cell.Load()
	if snap == nil {
		return nil, ErrNoSnapshot
	}
	return snap, nil
}

// Get implements Store.Get.
func (s *SnapshotStore) Get(ctx context.Context, tour model.Tour, name string) (model.RatingRecord, error) {
	snap, err := s.Snapshot(ctx, tour)
	if err != nil {
		return model.RatingRecord{}, err
	}
	found, ok := snap.resolve(name)
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return model.RatingRecord{}, ErrNotFound
	}
	return snap.Records[found], nil
}

// PeerRank implements Store.PeerRank.
func (s *SnapshotStore) PeerRank(ctx context.Context, tour model.Tour, name string) (int, error) {
	snap, err := s.Snapshot(ctx, tour)
	if err != nil {
		return 0, err
	}
	found, ok := snap.resolve(name)
	if !ok {
		return 0, ErrNotFound
	}
	rank, ok := snap.rankByName[found]
	if !ok {
		return 0, ErrNotRanked
	}
	return rank, nil
}

// TopN implements Store.TopN.
func (s *SnapshotStore) TopN(ctx context.Context, tour model.Tour, n int) ([]Entry, error) {
	if n < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}
	snap, err := s.Snapshot(ctx, tour)
	if err != nil {
		return nil, err
	}
	n = min(n, len(snap.Ranked))
	out := make([]Entry, n)
	copy(out, snap.Ranked[:n])
	return out, nil
}

// Count implements Store.Count.
func (s *SnapshotStore) Count(ctx context.Context, tour model.Tour) int {
	snap, err := s.Snapshot(ctx, tour)
	if err != nil {
		return 0
	}
	return len(snap.Records)
}

// sortEntries orders by form desc, then name asc for determinism.
func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Elo != entries[j].Elo {
			return entries[i].Elo > entries[j].Elo
		}
		return entries[i].Name < entries[j].Name
	})
}

// assignPositions numbers sorted entries 1..n; equal ratings still get
// distinct positions.
func assignPositions(entries []Entry) {
	for i := range entries {
		entries[i].Rank = i + 1
	}
}

var _ Store = (*SnapshotStore)(nil)

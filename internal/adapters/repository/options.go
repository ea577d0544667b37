package repository

import "github.com/okian/courtform/internal/domain/model"

// Option applies a configuration option to the SnapshotStore.
type Option func(*SnapshotStore)

// WithTours restricts the store to the given tours.
func WithTours(tours ...model.Tour) Option {
	return func(s *SnapshotStore) {
		if len(tours) > 0 {
			s.tours = tours
		}
	}
}

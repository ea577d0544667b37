package hyperparams

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/courtform/pkg/logger"
)

const defaultLoadTimeout = 10 * time.Second

// Source supplies an override document.
type Source interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) ([]byte, error)

// Fetch implements Source.
func (f SourceFunc) Fetch(ctx context.Context) ([]byte, error) { return f(ctx) }

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithSource sets where override documents come from.
func WithSource(src Source) Option {
	return func(s *Store) { s.source = src }
}

// WithOnLoad registers a callback invoked after a new document is published.
func WithOnLoad(fn func(*Params)) Option {
	return func(s *Store) { s.onLoad = fn }
}

// WithOnError registers a callback invoked when a load attempt fails.
func WithOnError(fn func(error)) Option {
	return func(s *Store) { s.onError = fn }
}

// WithLoadTimeout bounds a single fetch-and-merge attempt.
func WithLoadTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLogger sets the store's logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// Store is the single owned cell holding the active parameters. Defaults are
// active from construction; a successful load replaces them atomically.
type Store struct {
	current atomic.Pointer[Params]

	mu        sync.Mutex
	attempted bool
	inFlight  bool
	wg        sync.WaitGroup

	source  Source
	onLoad  func(*Params)
	onError func(error)
	timeout time.Duration
	log     logger.Logger
}

// NewStore creates a Store serving Defaults until a load succeeds.
func NewStore(opts ...Option) *Store {
	s := &Store{timeout: defaultLoadTimeout, log: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	s.current.Store(Defaults())
	return s
}

// Current returns the active parameters. Callers must not mutate them.
func (s *Store) Current() *Params { return s.current.Load() }

// Load fetches, merges and publishes an override synchronously. On failure
// the active parameters are left unchanged.
func (s *Store) Load(ctx context.Context) error {
	if s.source == nil {
		return ErrNoSource
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	doc, err := s.source.Fetch(ctx)
	if err != nil {
		return s.fail(ctx, fmt.Errorf("%w: %w", ErrFetchParams, err))
	}
	merged, err := Merge(Defaults(), doc)
	if err != nil {
		return s.fail(ctx, err)
	}

	s.current.Store(merged)
	s.log.Info(ctx, "hyperparameters loaded",
		logger.Int("bytes", len(doc)),
		logger.Int("tournament_factors", len(merged.TournamentFactors)),
		logger.Int("tournament_categories", len(merged.TournamentCategories)),
	)
	if s.onLoad != nil {
		s.onLoad(merged)
	}
	return nil
}

func (s *Store) fail(ctx context.Context, err error) error {
	s.log.Warn(ctx, "hyperparameter load failed; keeping current values", logger.Error(err))
	if s.onError != nil {
		s.onError(err)
	}
	return err
}

// LoadAsync starts a background load unless one has already been attempted
// or is in flight. It reports whether a load was started.
func (s *Store) LoadAsync(ctx context.Context) bool {
	if s.source == nil {
		return false
	}

	s.mu.Lock()
	if s.attempted || s.inFlight {
		s.mu.Unlock()
		return false
	}
	s.attempted = true
	s.inFlight = true
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			s.inFlight = false
			s.mu.Unlock()
		}()
		_ = s.Load(context.WithoutCancel(ctx))
	}()
	return true
}

// Reload re-arms the store and starts a new background load. A load already
// in flight is left to finish and no second one is started.
func (s *Store) Reload(ctx context.Context) bool {
	s.mu.Lock()
	if !s.inFlight {
		s.attempted = false
	}
	s.mu.Unlock()
	return s.LoadAsync(ctx)
}

// Wait blocks until background loads have finished.
func (s *Store) Wait() { s.wg.Wait() }

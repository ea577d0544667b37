// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	triggerqueue "github.com/okian/courtform/internal/adapters/mq/queue"
	"github.com/okian/courtform/internal/adapters/mq/worker"
	"github.com/okian/courtform/internal/adapters/repository"
	"github.com/okian/courtform/internal/adapters/roster"
	"github.com/okian/courtform/internal/domain/dedupe"
	"github.com/okian/courtform/internal/domain/hyperparams"
	"github.com/okian/courtform/internal/domain/model"
	"github.com/okian/courtform/internal/domain/rating"
	"github.com/okian/courtform/pkg/logger"
	"github.com/okian/courtform/pkg/metrics"
)

const shutdownTimeout = 5 * time.Second

// Service owns the published ratings and the machinery that refreshes them.
type Service struct {
	mu sync.RWMutex

	// Core components
	store   *repository.SnapshotStore
	params  *hyperparams.Store
	deduper dedupe.Deduper
	roster  roster.Provider
	queue   *triggerqueue.InMemoryQueue
	worker  *worker.InMemoryWorker
	cancel  context.CancelFunc
	loops   sync.WaitGroup
	compute sync.Mutex

	// Configuration
	tours           []model.Tour
	queueSize       int
	refreshInterval time.Duration
	paramSource     hyperparams.Source
	paramTimeout    time.Duration
	dedupeSize      int
	dedupeTTL       time.Duration
	now             func() time.Time

	// State
	started  bool
	lastPass string
	lastAt   time.Time

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithTours sets the tours the service rates.
func WithTours(tours ...model.Tour) Option {
	return func(s *Service) {
		if len(tours) > 0 {
			s.tours = tours
		}
	}
}

// WithRosterProvider sets where rosters are read from.
func WithRosterProvider(p roster.Provider) Option {
	return func(s *Service) {
		s.roster = p
	}
}

// WithHyperparamSource sets the optional override document source.
func WithHyperparamSource(src hyperparams.Source) Option {
	return func(s *Service) {
		s.paramSource = src
	}
}

// WithHyperparamTimeout bounds a single hyperparameter fetch.
func WithHyperparamTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.paramTimeout = d
		}
	}
}

// WithQueueSize sets how many recompute triggers may wait at once.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithRefreshInterval re-reads rosters periodically; zero disables it.
func WithRefreshInterval(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.refreshInterval = d
		}
	}
}

// WithIdempotency bounds how many recompute idempotency keys are kept and
// for how long.
func WithIdempotency(size int, ttl time.Duration) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
		if ttl > 0 {
			s.dedupeTTL = ttl
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source stamped on snapshots.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		tours:        model.Tours,
		queueSize:    16,
		paramTimeout: 5 * time.Second,
		dedupeSize:   1024,
		dedupeTTL:    10 * time.Minute,
		now:          time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Nop()
	}

	s.store = repository.NewSnapshotStore(repository.WithTours(s.tours...))
	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
		dedupe.WithTTL(s.dedupeTTL),
		dedupe.WithClock(s.now),
	)

	storeOpts := []hyperparams.Option{
		hyperparams.WithLoadTimeout(s.paramTimeout),
		hyperparams.WithLogger(s.logger.Named("hyperparams")),
		hyperparams.WithOnLoad(func(*hyperparams.Params) {
			metrics.RecordHyperparamLoad("ok")
			// A fresh parameter set invalidates every published rating.
			if err := s.RequestRecompute(context.Background(), model.ReasonHyperparams); err != nil {
				s.logger.Warn(context.Background(), "could not schedule recompute after hyperparameter load", logger.Error(err))
			}
		}),
		hyperparams.WithOnError(func(error) {
			metrics.RecordHyperparamLoad("error")
			metrics.RecordErrorByComponent("hyperparams", "load_failed")
		}),
	}
	if s.paramSource != nil {
		storeOpts = append(storeOpts, hyperparams.WithSource(s.paramSource))
	}
	s.params = hyperparams.NewStore(storeOpts...)

	return s
}

// Start publishes an initial rating for every tour, then starts the trigger
// worker, the hyperparameter load and the periodic refresh.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	if s.roster == nil {
		s.mu.Unlock()
		return ErrNoRoster
	}

	s.logger.Info(ctx, "starting form rating service...")

	s.queue = triggerqueue.NewInMemoryQueue(
		triggerqueue.WithCapacity(s.queueSize),
		triggerqueue.WithBufferSize(s.queueSize),
	)
	s.worker = worker.NewInMemoryWorker(s.queue, s,
		worker.WithName("recompute"),
		worker.WithLogger(s.logger.Named("worker")),
	)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.started = true
	s.mu.Unlock()

	// The first pass runs inline so reads are served as soon as Start returns.
	if err := s.Recompute(ctx, model.ReasonStartup); err != nil {
		s.logger.Warn(ctx, "initial recompute incomplete", logger.Error(err))
	}

	go s.worker.Run(runCtx)

	if s.params.LoadAsync(runCtx) {
		s.logger.Info(ctx, "hyperparameter load started")
	}

	if s.refreshInterval > 0 {
		s.loops.Add(1)
		go s.refreshLoop(runCtx, s.refreshInterval)
	}

	s.logger.Info(ctx, "form rating service started",
		logger.Int("tours", len(s.tours)),
		logger.Int("queueSize", s.queueSize),
		logger.Duration("refreshInterval", s.refreshInterval),
	)
	return nil
}

func (s *Service) refreshLoop(ctx context.Context, every time.Duration) {
	defer s.loops.Done()

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.RequestRecompute(ctx, model.ReasonRefresh); err != nil {
				s.logger.Debug(ctx, "refresh skipped", logger.Error(err))
			}
		}
	}
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	q, w, cancel := s.queue, s.worker, s.cancel
	s.mu.Unlock()

	ctx := context.Background()
	s.logger.Info(ctx, "stopping form rating service...")

	_ = q.Close()
	shutdownCtx, done := context.WithTimeout(ctx, shutdownTimeout)
	if err := w.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn(ctx, "worker did not stop cleanly", logger.Error(err))
	}
	done()

	cancel()
	s.loops.Wait()
	s.params.Wait()

	s.logger.Info(ctx, "form rating service stopped")
}

// Recompute rebuilds and publishes every tour from the current roster and
// hyperparameters. A tour whose roster cannot be read keeps its previous
// snapshot; the other tours are still refreshed.
func (s *Service) Recompute(ctx context.Context, reason string) error {
	s.compute.Lock()
	defer s.compute.Unlock()

	passID := uuid.NewString()
	params := s.params.Current()
	start := time.Now()

	var errs []error
	for _, tour := range s.tours {
		if _, err := s.computeTour(ctx, passID, tour, params); err != nil {
			errs = append(errs, err)
		}
	}

	s.mu.Lock()
	s.lastPass = passID
	s.lastAt = s.now()
	s.mu.Unlock()

	s.logger.Info(ctx, "recompute finished",
		logger.String("pass", passID),
		logger.String("reason", reason),
		logger.Int("failedTours", len(errs)),
		logger.Duration("took", time.Since(start)),
	)
	return errors.Join(errs...)
}

// computeTour runs one tour's pass and publishes it.
func (s *Service) computeTour(ctx context.Context, passID string, tour model.Tour, params *hyperparams.Params) (*repository.Snapshot, error) {
	if s.roster == nil {
		return nil, ErrNoRoster
	}

	players, err := s.roster.Roster(ctx, tour)
	if err != nil {
		metrics.RecordRecompute(string(tour), "roster_error")
		metrics.RecordErrorByComponent("roster", "fetch_failed")
		s.logger.Warn(ctx, "roster unavailable; keeping previous ratings",
			logger.String("pass", passID),
			logger.String("tour", string(tour)),
			logger.Error(err),
		)
		return nil, fmt.Errorf("tour %s: %w", tour, err)
	}

	start := time.Now()
	res := rating.Compute(players, tour, params)
	took := time.Since(start)

	snap := repository.NewSnapshot(passID, res, s.now())
	if err := s.store.Publish(ctx, snap); err != nil {
		metrics.RecordRecompute(string(tour), "publish_error")
		return nil, fmt.Errorf("tour %s: %w", tour, err)
	}

	metrics.RecordRecompute(string(tour), "ok")
	metrics.RecordRecomputeDuration(string(tour), float64(took.Microseconds())/1000)
	metrics.AddMatchesProcessed(string(tour), res.Stats.Matches)
	metrics.AddUnresolvedOpponents(string(tour), res.Stats.Unresolved)
	metrics.AddSkippedPlayers(string(tour), res.Stats.Skipped+res.Stats.Duplicates)

	if res.Stats.Skipped > 0 || res.Stats.Duplicates > 0 {
		s.logger.Warn(ctx, "roster entries skipped",
			logger.String("tour", string(tour)),
			logger.Int("unnamed", res.Stats.Skipped),
			logger.Int("duplicates", res.Stats.Duplicates),
		)
	}
	s.logger.Info(ctx, "tour rated",
		logger.String("pass", passID),
		logger.String("tour", string(tour)),
		logger.Int("players", res.Stats.Players),
		logger.Int("matches", res.Stats.Matches),
		logger.Int("unresolved", res.Stats.Unresolved),
		logger.Duration("took", took),
	)
	return snap, nil
}

func (s *Service) serves(tour model.Tour) bool {
	for _, t := range s.tours {
		if t == tour {
			return true
		}
	}
	return false
}

// ComputeRatings rates one tour now, publishes the result and returns every
// player's record keyed by roster name.
func (s *Service) ComputeRatings(ctx context.Context, tour model.Tour) (map[string]model.RatingRecord, error) {
	if !s.serves(tour) {
		return nil, ErrUnknownTour
	}

	s.compute.Lock()
	defer s.compute.Unlock()

	snap, err := s.computeTour(ctx, uuid.NewString(), tour, s.params.Current())
	if err != nil {
		return nil, err
	}
	out := make(map[string]model.RatingRecord, len(snap.Records))
	for name, rec := range snap.Records {
		out[name] = rec
	}
	return out, nil
}

// GetRating returns a player's record, resolved by exact name and then by
// normalized name. repository.ErrNotFound reports an unknown player.
func (s *Service) GetRating(ctx context.Context, name string, tour model.Tour) (model.RatingRecord, error) {
	if !s.serves(tour) {
		return model.RatingRecord{}, ErrUnknownTour
	}
	return s.store.Get(ctx, tour, name)
}

// GetPeerRank returns a player's 1-based position among rated players.
// repository.ErrNotRanked reports a player without matches.
func (s *Service) GetPeerRank(ctx context.Context, name string, tour model.Tour) (int, error) {
	if !s.serves(tour) {
		return 0, ErrUnknownTour
	}
	return s.store.PeerRank(ctx, tour, name)
}

// TopN returns the best n peer-ranked players of a tour.
func (s *Service) TopN(ctx context.Context, tour model.Tour, n int) ([]repository.Entry, error) {
	if !s.serves(tour) {
		return nil, ErrUnknownTour
	}
	return s.store.TopN(ctx, tour, n)
}

// Hyperparams returns the parameters the next pass will use.
func (s *Service) Hyperparams() *hyperparams.Params {
	return s.params.Current()
}

// RequestRecompute schedules a full recompute on the worker. ErrBusy means
// the trigger queue is full; a pass already pending will cover the request.
func (s *Service) RequestRecompute(ctx context.Context, reason string) error {
	s.mu.RLock()
	started, q := s.started, s.queue
	s.mu.RUnlock()
	if !started {
		return ErrNotStarted
	}

	t := model.Trigger{ID: uuid.NewString(), Reason: reason, At: s.now()}
	if !q.Enqueue(ctx, t) {
		metrics.RecordErrorByComponent("service", "queue_full")
		return ErrBusy
	}
	return nil
}

// SeenAndRecord reports whether a recompute idempotency key was already
// used, recording it if not.
func (s *Service) SeenAndRecord(ctx context.Context, key string) bool {
	return s.deduper.SeenAndRecord(ctx, key)
}

// Unrecord forgets an idempotency key so the request may be retried.
func (s *Service) Unrecord(ctx context.Context, key string) {
	s.deduper.Unrecord(ctx, key)
}

// Size returns the number of idempotency keys currently remembered.
func (s *Service) Size() int64 {
	return s.deduper.Size()
}

// ReloadHyperparams starts a fresh hyperparameter load. It reports whether a
// load was started; false means no source is configured or one is in flight.
func (s *Service) ReloadHyperparams(ctx context.Context) bool {
	return s.params.Reload(ctx)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":         s.started,
		"queueSize":       s.queueSize,
		"lastPass":        s.lastPass,
		"idempotencyKeys": s.deduper.Size(),
	}
	if !s.lastAt.IsZero() {
		stats["lastComputedAt"] = s.lastAt.UTC().Format(time.RFC3339)
	}

	tours := make(map[string]interface{}, len(s.tours))
	for _, tour := range s.tours {
		snap, err := s.store.Snapshot(ctx, tour)
		if err != nil {
			tours[string(tour)] = map[string]interface{}{"published": false}
			continue
		}
		tours[string(tour)] = map[string]interface{}{
			"published":  true,
			"pass":       snap.PassID,
			"computedAt": snap.ComputedAt.UTC().Format(time.RFC3339),
			"players":    len(snap.Records),
			"ranked":     len(snap.Ranked),
			"passStats":  snap.Stats,
		}
	}
	stats["tours"] = tours

	if s.started {
		queueLen := s.queue.Len(ctx)
		stats["queueLength"] = queueLen
		metrics.UpdateQueueSize(queueLen)
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	metrics.UpdateSystemMemoryUsage(mem.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	return stats
}

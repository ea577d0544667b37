// Package worker runs recomputations requested through the trigger queue.
package worker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/okian/courtform/internal/adapters/mq/queue"
	"github.com/okian/courtform/pkg/logger"
	"github.com/okian/courtform/pkg/metrics"
)

// Recomputer rebuilds every tour's ratings.
type Recomputer interface {
	Recompute(ctx context.Context, reason string) error
}

// Queue defines how workers receive triggers.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Trigger
}

// Worker consumes triggers until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker is the single consumer of recompute triggers. Triggers that
// are already waiting when one is picked up are folded into the same pass,
// since every pass recomputes everything.
type InMemoryWorker struct {
	queue      Queue
	recomputer Recomputer
	name       string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, r Recomputer, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:      q,
		recomputer: r,
		name:       "worker",
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	triggers := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case t, ok := <-triggers:
			if !ok {
				return
			}
			reasons := []string{t.Reason}
			reasons = append(reasons, drain(triggers)...)
			if err := w.process(ctx, reasons); err != nil {
				w.logger.Error(ctx, "recompute failed", logger.Error(err))
			}
		}
	}
}

// drain collects the reasons of triggers that are ready without blocking.
func drain(triggers <-chan queue.Trigger) []string {
	var reasons []string
	for {
		select {
		case t, ok := <-triggers:
			if !ok {
				return reasons
			}
			reasons = append(reasons, t.Reason)
		default:
			return reasons
		}
	}
}

func (w *InMemoryWorker) process(ctx context.Context, reasons []string) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	reason := strings.Join(dedupe(reasons), ",")
	if len(reasons) > 1 {
		w.logger.Debug(ctx, "coalesced recompute triggers",
			logger.Int("count", len(reasons)),
			logger.String("reason", reason),
		)
	}

	if err := w.recomputer.Recompute(ctx, reason); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "recompute_error")
		metrics.RecordErrorByType("recompute_error", "high")
		return fmt.Errorf("recompute (%s): %w", reason, err)
	}
	return nil
}

func dedupe(reasons []string) []string {
	seen := make(map[string]struct{}, len(reasons))
	out := reasons[:0:0]
	for _, r := range reasons {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed once Run has returned.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	audit "breachledger/pkg/platform/audit"
)

// Outbox is the relay's view of the outbox table.
type Outbox interface {
	ProcessPending(ctx context.Context, limit int, publish audit.PublishFunc) (int, error)
}

// Pruner is implemented by outboxes that can drop rows already delivered.
type Pruner interface {
	DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Publisher delivers outbox rows to the message broker.
type Publisher interface {
	Publish(ctx context.Context, entries []audit.OutboxEntry) ([]audit.OutboxEntry, error)
}

// Worker polls the outbox and relays pending rows to a publisher. Rows are
// marked published only after the publisher acknowledges them, so delivery is
// at-least-once.
type Worker struct {
	outbox    Outbox
	publisher Publisher
	logger    *slog.Logger
	interval  time.Duration
	batchSize int

	retention  time.Duration
	pruneEvery time.Duration
	lastPrune  time.Time
	now        func() time.Time
}

type Option func(*Worker)

func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) { w.logger = logger }
}

func WithInterval(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.interval = d
		}
	}
}

func WithBatchSize(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

// WithRetention prunes rows published longer than retention ago, at most once
// per pruneEvery. Outboxes that do not implement Pruner are left alone.
func WithRetention(retention, pruneEvery time.Duration) Option {
	return func(w *Worker) {
		w.retention = retention
		if pruneEvery > 0 {
			w.pruneEvery = pruneEvery
		}
	}
}

func NewWorker(outbox Outbox, publisher Publisher, opts ...Option) *Worker {
	w := &Worker{
		outbox:    outbox,
		publisher: publisher,
		logger:    slog.Default(),
		interval:  time.Second,
		batchSize: 100,

		pruneEvery: time.Hour,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run relays until ctx is cancelled. A full batch is followed immediately by
// another poll; an empty or failed poll waits for the next tick.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		n, err := w.RelayOnce(ctx)
		if err != nil && ctx.Err() == nil {
			w.logger.ErrorContext(ctx, "outbox relay failed", "error", err)
		}
		if err == nil && n == w.batchSize {
			continue
		}
		w.maybePrune(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RelayOnce publishes a single batch and returns how many rows were delivered.
func (w *Worker) RelayOnce(ctx context.Context) (int, error) {
	n, err := w.outbox.ProcessPending(ctx, w.batchSize, w.publish)
	if n > 0 {
		w.logger.DebugContext(ctx, "outbox rows relayed", "count", n)
	}
	return n, err
}

func (w *Worker) maybePrune(ctx context.Context) {
	pruner, ok := w.outbox.(Pruner)
	if !ok || w.retention <= 0 {
		return
	}
	now := w.now()
	if !w.lastPrune.IsZero() && now.Sub(w.lastPrune) < w.pruneEvery {
		return
	}
	w.lastPrune = now

	removed, err := pruner.DeletePublishedBefore(ctx, now.Add(-w.retention))
	if err != nil {
		w.logger.WarnContext(ctx, "outbox prune failed", "error", err)
		return
	}
	if removed > 0 {
		w.logger.InfoContext(ctx, "outbox rows pruned", "count", removed)
	}
}

func (w *Worker) publish(ctx context.Context, entries []audit.OutboxEntry) ([]uuid.UUID, error) {
	delivered, err := w.publisher.Publish(ctx, entries)
	ids := make([]uuid.UUID, 0, len(delivered))
	for _, e := range delivered {
		ids = append(ids, e.ID)
	}
	return ids, err
}

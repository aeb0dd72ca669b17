package worker

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/proxima/pkg/domain/interfaces"
	"github.com/secmon-lab/proxima/pkg/utils/logging"
)

// DefaultSweepInterval is how often expired proxied message records are
// removed
const DefaultSweepInterval = 10 * time.Minute

// ProxiedMessageSweeper deletes proxied message records past their expiry.
// Firestore keeps expired documents until they are removed explicitly.
//
// Architecture assumptions:
// - Single server instance (no distributed locking)
type ProxiedMessageSweeper struct {
	repo     interfaces.Repository
	interval time.Duration
	now      func() time.Time
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// SweeperOption configures a ProxiedMessageSweeper
type SweeperOption func(*ProxiedMessageSweeper)

// WithSweepClock replaces time.Now
func WithSweepClock(now func() time.Time) SweeperOption {
	return func(w *ProxiedMessageSweeper) {
		w.now = now
	}
}

// NewProxiedMessageSweeper creates a sweeper running every interval
func NewProxiedMessageSweeper(repo interfaces.Repository, interval time.Duration, opts ...SweeperOption) *ProxiedMessageSweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	w := &ProxiedMessageSweeper{
		repo:     repo,
		interval: interval,
		now:      time.Now,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start runs the first sweep and the periodic loop in the background
func (w *ProxiedMessageSweeper) Start(ctx context.Context) error {
	logging.From(ctx).Info("proxied message sweeper starting", "interval", w.interval.String())

	go w.run(ctx)

	return nil
}

// Stop signals the worker to stop and waits for completion
func (w *ProxiedMessageSweeper) Stop() {
	close(w.stopCh)
	<-w.doneCh
	logging.Default().Info("proxied message sweeper stopped")
}

func (w *ProxiedMessageSweeper) run(ctx context.Context) {
	defer close(w.doneCh)

	if _, err := w.Sweep(ctx); err != nil {
		logging.From(ctx).Error("initial sweep failed (will retry next interval)", "error", err.Error())
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := w.Sweep(ctx); err != nil {
				logging.From(ctx).Error("sweep failed (will retry next interval)", "error", err.Error())
			}

		case <-w.stopCh:
			return

		case <-ctx.Done():
			return
		}
	}
}

// Sweep performs one cleanup cycle and returns the number of records removed
func (w *ProxiedMessageSweeper) Sweep(ctx context.Context) (int, error) {
	start := time.Now()

	deleted, err := w.repo.ProxiedMessage().DeleteExpired(ctx, w.now().UTC())
	if err != nil {
		return deleted, goerr.Wrap(err, "failed to delete expired proxied messages", goerr.V("deleted", deleted))
	}

	if deleted > 0 {
		logging.From(ctx).Info("swept expired proxied messages",
			"count", deleted,
			"duration", time.Since(start).String())
	}
	return deleted, nil
}

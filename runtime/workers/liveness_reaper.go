package workers

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Reaper drops what has not been used since a deadline.
type Reaper interface {
	Reap(ctx context.Context, now time.Time) int
}

// LivenessReaper periodically asks a Reaper to drop idle entries: sessions of the
// manager (which also retries degraded subscriptions) or sequencers of the message store.
type LivenessReaper struct {
	log      *slog.Logger
	reaper   Reaper
	interval time.Duration
}

func NewLivenessReaper(log *slog.Logger, reaper Reaper, interval time.Duration) *LivenessReaper {
	return &LivenessReaper{log: log, reaper: reaper, interval: interval}
}

func (w *LivenessReaper) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			if reaped := w.reaper.Reap(ctx, now); reaped > 0 {
				w.log.Info("Idle entries reaped", "reaper", fmt.Sprintf("%T", w.reaper), "count", reaped)
			}
		}
	}
}

package server

import (
	"context"
	"log/slog"
	"sort"
	"time"
)

// DefaultPurgeInterval is how often expired records are removed.
const DefaultPurgeInterval = 10 * time.Minute

// PurgeFunc removes expired records and returns how many were removed.
type PurgeFunc func(ctx context.Context) (int64, error)

// RunJanitor runs every task once per interval until ctx is done. Failures are logged
// and retried on the next tick.
func RunJanitor(ctx context.Context, interval time.Duration, logger *slog.Logger, tasks map[string]PurgeFunc) {
	if interval <= 0 {
		interval = DefaultPurgeInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	names := make([]string, 0, len(tasks))
	for name := range tasks {
		names = append(names, name)
	}
	sort.Strings(names)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		for _, name := range names {
			PurgeOnce(ctx, logger, name, tasks[name])
		}
	}
}

// PurgeOnce runs one task and logs the result.
func PurgeOnce(ctx context.Context, logger *slog.Logger, name string, fn PurgeFunc) {
	n, err := fn(ctx)
	if err != nil {
		logger.Warn("janitor: purge failed", slog.String("task", name), slog.String("error", err.Error()))
		return
	}
	if n > 0 {
		logger.Info("janitor: purged expired records", slog.String("task", name), slog.Int64("count", n))
	}
}

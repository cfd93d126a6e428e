package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/murende/soko/core/logger"
)

// StartSweeper schedules periodic expiry sweeps on the store. The returned
// cron runs until Stop is called; sweep errors are logged, not fatal.
func StartSweeper(ctx context.Context, store Store, schedule string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		start := time.Now()
		swept, err := store.SweepExpired(ctx, start)
		if err != nil {
			logger.Error(ctx, "sweep", "session sweep failed",
				slog.Any("error", err))
			return
		}
		if swept > 0 {
			logger.Info(ctx, "sweep", "session sweep done",
				slog.Int("swept", swept),
				slog.Duration("took", logger.Took(start)))
			return
		}
		if logger.ShouldSampleDebug() {
			logger.Debug(ctx, "sweep", "session sweep done",
				slog.Int("swept", 0))
		}
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	logger.Info(ctx, "sweep", "session sweeper started",
		slog.String("schedule", schedule))
	return c, nil
}

package worker

import (
	"context"
	"time"

	"github.com/yungbote/counselbridge-backend/internal/platform/logger"
)

// RunEvery calls fn on every tick until ctx is done. A failing or panicking
// run is logged and the loop continues.
func RunEvery(ctx context.Context, log *logger.Logger, name string, interval time.Duration, fn func(ctx context.Context) error) {
	if interval <= 0 {
		interval = time.Minute
	}
	loopLog := log.With("component", "PeriodicJob", "job", name)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	loopLog.Info("Periodic job started", "interval", interval.String())
	for {
		select {
		case <-ctx.Done():
			loopLog.Info("Periodic job stopped")
			return
		case <-ticker.C:
			func() {
				defer func() {
					if r := recover(); r != nil {
						loopLog.Error("Periodic job panic", "panic", r)
					}
				}()
				if err := fn(ctx); err != nil {
					loopLog.Warn("Periodic job run failed", "error", err)
				}
			}()
		}
	}
}

package pkgroutine

import (
	"context"
	"log/slog"
	"time"
)

// Every runs f on the manager once per interval until ctx is canceled.
//
// Errors returned by f are logged and do not stop the loop; a non-positive
// interval disables the job.
func (g *Manager) Every(pCtx context.Context, name string, interval time.Duration, f func(ctx context.Context) error) {
	if interval <= 0 {
		slog.InfoContext(pCtx, "periodic job disabled", "job", name)
		return
	}

	g.Go(pCtx, func(ctx context.Context) error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if err := f(ctx); err != nil {
					slog.WarnContext(ctx, "periodic job failed", "job", name, "error", err)
				}
			}
		}
	})
}

package presence

import (
	"context"
	"log/slog"
	"time"

	"campusride/internal/types"
)

// Toucher stamps a user's lastSeen.
type Toucher interface {
	Touch(ctx context.Context, uid types.ID) error
}

// RunHeartbeat stamps lastSeen immediately and then every interval until ctx
// is done. Failures are logged and retried on the next tick.
func RunHeartbeat(ctx context.Context, t Toucher, uid types.ID, interval time.Duration, log *slog.Logger) {
	beat := func() {
		if err := t.Touch(ctx, uid); err != nil && ctx.Err() == nil {
			log.Warn("presence heartbeat failed", "uid", uid, "error", err)
		}
	}
	beat()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			beat()
		}
	}
}

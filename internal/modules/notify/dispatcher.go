// README: Dispatcher filters notifications through claims and forwards pushes.
package notify

import (
	"context"
	"log/slog"

	"campusride/internal/observability"
	"campusride/internal/types"
)

// Dispatcher delivers evaluated notifications. Both the claimer and the
// pusher are optional.
type Dispatcher struct {
	claims Claimer
	pusher Pusher
	log    *slog.Logger
}

func NewDispatcher(claims Claimer, pusher Pusher, log *slog.Logger) *Dispatcher {
	return &Dispatcher{claims: claims, pusher: pusher, log: log}
}

// Deliver keeps the notifications uid has not already claimed, pushes them
// to deviceToken when one is registered, and returns what was kept. Claim
// failures let the notification through; push failures are only logged.
func (d *Dispatcher) Deliver(ctx context.Context, uid types.ID, deviceToken string, ns []Notification) []Notification {
	kept := ns[:0:0]
	for _, n := range ns {
		if d.claims != nil {
			ok, err := d.claims.Claim(ctx, uid, n.RideID)
			if err != nil {
				d.log.Warn("notification claim failed", "uid", uid, "ride_id", n.RideID, "error", err)
			} else if !ok {
				continue
			}
		}
		kept = append(kept, n)
		observability.NotificationsTotal.WithLabelValues(string(n.Audience)).Inc()
		if d.pusher != nil && deviceToken != "" {
			if err := d.pusher.Push(ctx, deviceToken, n); err != nil {
				d.log.Warn("notification push failed", "uid", uid, "ride_id", n.RideID, "error", err)
			}
		}
	}
	return kept
}

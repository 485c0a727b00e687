// README: Monitor keeps server-wide ride stats current from the rides feed.
package presence

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"campusride/internal/docstore"
	"campusride/internal/modules/ride"
	"campusride/internal/observability"
)

// Feed opens a rides change feed.
type Feed interface {
	Watch(ctx context.Context) (<-chan docstore.Snapshot, error)
}

type Monitor struct {
	feed  Feed
	retry time.Duration
	log   *slog.Logger

	mu    sync.RWMutex
	stats Stats
}

func NewMonitor(feed Feed, log *slog.Logger) *Monitor {
	return &Monitor{feed: feed, retry: 5 * time.Second, log: log}
}

func (m *Monitor) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}

// Run follows the feed until ctx is done, resubscribing after the feed closes.
func (m *Monitor) Run(ctx context.Context) {
	for {
		snaps, err := m.feed.Watch(ctx)
		if err != nil {
			m.log.Error("stats monitor subscribe failed", "error", err)
		} else {
			for snap := range snaps {
				m.apply(ride.ParseAll(snap.Docs, m.log))
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(m.retry):
		}
	}
}

func (m *Monitor) apply(rides []ride.Ride) {
	s := RideStats(rides)
	m.mu.Lock()
	m.stats = s
	m.mu.Unlock()
	observability.ActiveDrivers.Set(float64(s.ActiveDrivers))
	observability.ActivePassengers.Set(float64(s.ActivePassengers))
}

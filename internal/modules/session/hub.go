// README: Hub shares one rides change feed among every subscriber.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"campusride/internal/docstore"
)

var ErrHubClosed = errors.New("rides hub closed")

// Feed opens a rides change feed.
type Feed interface {
	Watch(ctx context.Context) (<-chan docstore.Snapshot, error)
}

// Hub holds a single subscription on the source and fans every snapshot out
// to its subscribers. A new subscriber first receives the latest snapshot
// with every document reported as inserted, like a fresh store listener.
// Slow subscribers get coalesced snapshots, never a blocked hub.
type Hub struct {
	source Feed
	retry  time.Duration
	log    *slog.Logger

	mu     sync.Mutex
	subs   map[*subscriber]struct{}
	last   *docstore.Snapshot
	closed bool
}

func NewHub(source Feed, log *slog.Logger) *Hub {
	return &Hub{source: source, retry: 5 * time.Second, log: log, subs: make(map[*subscriber]struct{})}
}

// Run follows the source until ctx is done, resubscribing after failures.
// Subscribers are closed when Run returns.
func (h *Hub) Run(ctx context.Context) {
	defer h.shutdown()
	for {
		snaps, err := h.source.Watch(ctx)
		if err != nil {
			h.log.Error("rides hub subscribe failed", "error", err)
		} else {
			for snap := range snaps {
				h.broadcast(snap)
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(h.retry):
			h.log.Warn("rides hub resubscribing")
		}
	}
}

// Watch implements Feed for hub subscribers.
func (h *Hub) Watch(ctx context.Context) (<-chan docstore.Snapshot, error) {
	sub := &subscriber{signal: make(chan struct{}, 1), done: make(chan struct{})}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrHubClosed
	}
	h.subs[sub] = struct{}{}
	if h.last != nil {
		first := *h.last
		first.Inserted = first.Docs
		sub.stage(first)
	}
	h.mu.Unlock()

	out := make(chan docstore.Snapshot)
	go func() {
		defer close(out)
		defer h.remove(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case <-sub.done:
				return
			case <-sub.signal:
			}
			snap, ok := sub.take()
			if !ok {
				continue
			}
			select {
			case out <- snap:
			case <-ctx.Done():
				return
			case <-sub.done:
				return
			}
		}
	}()
	return out, nil
}

func (h *Hub) broadcast(snap docstore.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = &snap
	for sub := range h.subs {
		sub.stage(snap)
	}
}

func (h *Hub) remove(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, sub)
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for sub := range h.subs {
		close(sub.done)
		delete(h.subs, sub)
	}
}

type subscriber struct {
	mu      sync.Mutex
	pending *docstore.Snapshot
	signal  chan struct{}
	done    chan struct{}
}

// stage merges snap into the pending delivery: the newest result set wins
// and inserted documents accumulate while they are still present.
func (s *subscriber) stage(snap docstore.Snapshot) {
	s.mu.Lock()
	if s.pending != nil {
		snap.Inserted = mergeInserted(s.pending.Inserted, snap)
	}
	s.pending = &snap
	s.mu.Unlock()
	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *subscriber) take() (docstore.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return docstore.Snapshot{}, false
	}
	snap := *s.pending
	s.pending = nil
	return snap, true
}

func mergeInserted(prev []docstore.Document, next docstore.Snapshot) []docstore.Document {
	present := make(map[string]docstore.Document, len(next.Docs))
	for _, d := range next.Docs {
		present[d.ID] = d
	}
	out := make([]docstore.Document, 0, len(prev)+len(next.Inserted))
	seen := make(map[string]bool)
	for _, d := range append(append([]docstore.Document(nil), prev...), next.Inserted...) {
		cur, ok := present[d.ID]
		if !ok || seen[d.ID] {
			continue
		}
		seen[d.ID] = true
		out = append(out, cur)
	}
	return out
}

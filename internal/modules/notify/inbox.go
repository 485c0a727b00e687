package notify

import (
	"sync"
	"time"
)

// Inbox holds notifications until they expire.
type Inbox struct {
	mu    sync.Mutex
	items []Notification
}

func (b *Inbox) Add(ns ...Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = append(b.items, ns...)
}

// Active drops expired notifications and returns the rest, oldest first.
func (b *Inbox) Active(now time.Time) []Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	kept := b.items[:0]
	for _, n := range b.items {
		if now.Before(n.ExpiresAt) {
			kept = append(kept, n)
		}
	}
	b.items = kept
	return append([]Notification(nil), kept...)
}

// Dismiss removes one notification early.
func (b *Inbox) Dismiss(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, n := range b.items {
		if n.ID == id {
			b.items = append(b.items[:i], b.items[i+1:]...)
			return
		}
	}
}

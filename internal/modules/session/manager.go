// README: Manager shares one live session per user across connections.
package session

import (
	"context"
	"log/slog"
	"sync"

	"campusride/internal/modules/notify"
	"campusride/internal/modules/presence"
	"campusride/internal/modules/ride"
	"campusride/internal/observability"
	"campusride/internal/types"
)

type entry struct {
	session *Session
	refs    int
	cancel  context.CancelFunc
}

type Manager struct {
	feed       Feed
	dispatcher *notify.Dispatcher
	toucher    presence.Toucher
	cfg        Config
	log        *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	sessions map[types.ID]*entry
}

func NewManager(feed Feed, dispatcher *notify.Dispatcher, toucher presence.Toucher, cfg Config, log *slog.Logger) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		feed:       feed,
		dispatcher: dispatcher,
		toucher:    toucher,
		cfg:        cfg,
		log:        log,
		ctx:        ctx,
		cancel:     cancel,
		sessions:   make(map[types.ID]*entry),
	}
}

// Attach returns the user's live session, starting it on first use. The
// release func must be called once the caller is done; the session stops
// when its last caller releases it.
func (m *Manager) Attach(user ride.Actor, deviceToken string) (*Session, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[user.ID]
	if !ok {
		ctx, cancel := context.WithCancel(m.ctx)
		e = &entry{session: newSession(user, deviceToken, m.feed, m.dispatcher, m.toucher, m.cfg, m.log), cancel: cancel}
		m.sessions[user.ID] = e
		observability.LiveSessions.Inc()
		go func() {
			if err := e.session.Run(ctx); err != nil && ctx.Err() == nil {
				m.log.Error("live session stopped", "uid", user.ID, "error", err)
			}
		}()
	}
	e.refs++

	var once sync.Once
	return e.session, func() { once.Do(func() { m.release(user.ID, e) }) }
}

func (m *Manager) release(uid types.ID, e *entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.refs--
	if e.refs > 0 {
		return
	}
	e.cancel()
	if m.sessions[uid] == e {
		delete(m.sessions, uid)
	}
	observability.LiveSessions.Dec()
}

// Current returns the ride held by the user's live session, if one is
// running and has seen a snapshot.
func (m *Manager) Current(uid types.ID) (ride.Ride, bool) {
	m.mu.Lock()
	e, ok := m.sessions[uid]
	m.mu.Unlock()
	if !ok {
		return ride.Ride{}, false
	}
	v, ready := e.session.View()
	if !ready {
		return ride.Ride{}, false
	}
	return v.Ride, true
}

// Notifications lists the live session's unexpired notifications.
func (m *Manager) Notifications(uid types.ID) []notify.Notification {
	m.mu.Lock()
	e, ok := m.sessions[uid]
	m.mu.Unlock()
	if !ok {
		return []notify.Notification{}
	}
	return e.session.Notifications()
}

func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Close stops every session.
func (m *Manager) Close() {
	m.cancel()
}

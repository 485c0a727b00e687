// README: Live session follows the rides feed on behalf of one user.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"campusride/internal/modules/notify"
	"campusride/internal/modules/presence"
	"campusride/internal/modules/ride"
	"campusride/internal/types"
)

// Update is pushed to listeners after every snapshot. New holds only the
// notifications raised by that snapshot.
type Update struct {
	View View                  `json:"view"`
	New  []notify.Notification `json:"notifications,omitempty"`
}

type Session struct {
	user        ride.Actor
	deviceToken string
	feed        Feed
	dispatcher  *notify.Dispatcher
	toucher     presence.Toucher
	cfg         Config
	log         *slog.Logger
	now         func() time.Time

	inbox notify.Inbox

	mu        sync.RWMutex
	view      View
	ready     bool
	notified  map[types.ID]time.Time
	listeners map[*listener]struct{}
}

func newSession(user ride.Actor, deviceToken string, feed Feed, dispatcher *notify.Dispatcher, toucher presence.Toucher, cfg Config, log *slog.Logger) *Session {
	return &Session{
		user:        user,
		deviceToken: deviceToken,
		feed:        feed,
		dispatcher:  dispatcher,
		toucher:     toucher,
		cfg:         cfg,
		log:         log.With("uid", user.ID),
		now:         time.Now,
		view:        EmptyView(),
		notified:    make(map[types.ID]time.Time),
		listeners:   make(map[*listener]struct{}),
	}
}

func (s *Session) User() ride.Actor { return s.user }

// View returns the latest derived view and whether a snapshot has arrived yet.
func (s *Session) View() (View, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view, s.ready
}

// Notifications lists the notifications that have not expired yet.
func (s *Session) Notifications() []notify.Notification {
	return s.inbox.Active(s.now())
}

func (s *Session) Dismiss(id string) {
	s.inbox.Dismiss(id)
}

// Run follows the feed and runs the presence heartbeat until ctx is done.
func (s *Session) Run(ctx context.Context) error {
	if s.toucher != nil && s.cfg.Heartbeat > 0 {
		go presence.RunHeartbeat(ctx, s.toucher, s.user.ID, s.cfg.Heartbeat, s.log)
	}
	snaps, err := s.feed.Watch(ctx)
	if err != nil {
		return err
	}
	for snap := range snaps {
		rides := ride.ParseAll(snap.Docs, s.log)
		inserted := ride.ParseAll(snap.Inserted, s.log)
		s.apply(ctx, rides, inserted)
	}
	return ctx.Err()
}

func (s *Session) apply(ctx context.Context, rides, inserted []ride.Ride) {
	now := s.now()
	view, raised := Reduce(s.user, rides, inserted, now, s.cfg)
	raised = s.firstSight(raised, now)
	if s.dispatcher != nil {
		raised = s.dispatcher.Deliver(ctx, s.user.ID, s.deviceToken, raised)
	}
	s.inbox.Add(raised...)

	s.mu.Lock()
	s.view = view
	s.ready = true
	listeners := make([]*listener, 0, len(s.listeners))
	for l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l.stage(Update{View: view, New: raised})
	}
}

// firstSight keeps at most one notification per ride for this session. Seen
// rides are forgotten once they fall out of the recency window.
func (s *Session) firstSight(ns []notify.Notification, now time.Time) []notify.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, at := range s.notified {
		if now.Sub(at) >= s.cfg.Notify.Recency {
			delete(s.notified, id)
		}
	}
	kept := ns[:0:0]
	for _, n := range ns {
		if _, ok := s.notified[n.RideID]; ok {
			continue
		}
		s.notified[n.RideID] = now
		kept = append(kept, n)
	}
	return kept
}

// Listen registers a listener. The returned channel carries coalesced
// updates and is closed by the cancel func.
func (s *Session) Listen() (<-chan Update, func()) {
	l := &listener{signal: make(chan struct{}, 1)}
	out := make(chan Update)
	done := make(chan struct{})

	s.mu.Lock()
	s.listeners[l] = struct{}{}
	if s.ready {
		l.stage(Update{View: s.view})
	}
	s.mu.Unlock()

	go func() {
		defer close(out)
		for {
			select {
			case <-done:
				return
			case <-l.signal:
			}
			u, ok := l.take()
			if !ok {
				continue
			}
			select {
			case out <- u:
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return out, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, l)
			s.mu.Unlock()
			close(done)
		})
	}
}

type listener struct {
	mu      sync.Mutex
	pending *Update
	signal  chan struct{}
}

// stage replaces the pending view and accumulates notifications.
func (l *listener) stage(u Update) {
	l.mu.Lock()
	if l.pending != nil {
		u.New = append(append([]notify.Notification(nil), l.pending.New...), u.New...)
	}
	l.pending = &u
	l.mu.Unlock()
	select {
	case l.signal <- struct{}{}:
	default:
	}
}

func (l *listener) take() (Update, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pending == nil {
		return Update{}, false
	}
	u := *l.pending
	l.pending = nil
	return u, true
}

package session

import (
	"context"
	"testing"
	"time"

	"campusride/internal/docstore"
	"campusride/internal/logging"
	"campusride/internal/modules/history"
	"campusride/internal/modules/matching"
	"campusride/internal/modules/notify"
	"campusride/internal/modules/ride"
	"campusride/internal/types"
)

var (
	passenger = ride.Actor{ID: "p1", Name: "Ayşe", Role: types.RolePassenger}
	driver    = ride.Actor{ID: "d1", Name: "Deniz", Role: types.RoleDriver}
	driver2   = ride.Actor{ID: "d2", Name: "Kerem", Role: types.RoleDriver}
	testCfg   = Config{Notify: notify.Config{Recency: 30 * time.Second, Display: 5 * time.Second}, LeaderboardSize: 5, Location: time.UTC}
)

func idPtr(s string) *types.ID {
	id := types.ID(s)
	return &id
}

func TestReduce_RoleSplit(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	rides := []ride.Ride{
		{ID: "req", Status: ride.StatusRequested, PassengerID: idPtr("p2"), CreatedAt: now.Add(-29 * time.Second)},
		{ID: "off", Status: ride.StatusOffered, DriverID: idPtr("d2"), CreatedAt: now.Add(-31 * time.Second)},
		{ID: "mine", Status: ride.StatusAccepted, PassengerID: idPtr("p1"), DriverID: idPtr("d1"), CreatedAt: now.Add(-time.Hour)},
	}

	v, ns := Reduce(driver, rides, rides, now, testCfg)
	if v.Ride.ID != "mine" || len(v.IncomingRequests) != 1 || len(v.IncomingOffers) != 0 {
		t.Fatalf("driver view = %+v", v)
	}
	if len(ns) != 1 || ns[0].RideID != "req" {
		t.Fatalf("driver notifications = %+v", ns)
	}
	if v.Stats.ActiveDrivers != 2 || v.Stats.ActivePassengers != 2 {
		t.Errorf("stats = %+v", v.Stats)
	}

	v, ns = Reduce(passenger, rides, rides, now, testCfg)
	if v.Ride.ID != "mine" || len(v.IncomingOffers) != 1 || len(v.IncomingRequests) != 0 {
		t.Fatalf("passenger view = %+v", v)
	}
	// the only offer is 31s old
	if len(ns) != 0 {
		t.Fatalf("passenger notifications = %+v", ns)
	}
}

func TestReduce_EmptySnapshotIsIdle(t *testing.T) {
	v, ns := Reduce(passenger, nil, nil, time.Now(), testCfg)
	if !v.Ride.IsIdle() || v.IncomingOffers == nil || v.History == nil || len(ns) != 0 {
		t.Fatalf("view = %+v", v)
	}
}

type chanFeed struct {
	ch chan docstore.Snapshot
}

func (f *chanFeed) Watch(context.Context) (<-chan docstore.Snapshot, error) {
	return f.ch, nil
}

func recvSnap(t *testing.T, ch <-chan docstore.Snapshot) docstore.Snapshot {
	t.Helper()
	select {
	case s, ok := <-ch:
		if !ok {
			t.Fatal("feed closed")
		}
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return docstore.Snapshot{}
}

func TestHub_LateSubscriberSeesAllAsInserted(t *testing.T) {
	src := &chanFeed{ch: make(chan docstore.Snapshot)}
	hub := NewHub(src, logging.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	early, err := hub.Watch(ctx)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	docs := []docstore.Document{{ID: "a"}, {ID: "b"}}
	src.ch <- docstore.Snapshot{Docs: docs, Inserted: docs[1:]}
	if s := recvSnap(t, early); len(s.Inserted) != 1 || s.Inserted[0].ID != "b" {
		t.Fatalf("early inserted = %+v", s.Inserted)
	}

	late, _ := hub.Watch(ctx)
	if s := recvSnap(t, late); len(s.Inserted) != 2 {
		t.Fatalf("late inserted = %+v", s.Inserted)
	}
}

func TestHub_ClosesSubscribersOnStop(t *testing.T) {
	src := &chanFeed{ch: make(chan docstore.Snapshot)}
	hub := NewHub(src, logging.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	sub, _ := hub.Watch(context.Background())
	cancel()
	close(src.ch)
	<-stopped
	select {
	case _, ok := <-sub:
		if ok {
			t.Fatal("expected closed channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber not closed")
	}
	if _, err := hub.Watch(context.Background()); err != ErrHubClosed {
		t.Fatalf("err = %v", err)
	}
}

func TestMergeInserted(t *testing.T) {
	prev := []docstore.Document{{ID: "a"}, {ID: "gone"}}
	next := docstore.Snapshot{
		Docs:     []docstore.Document{{ID: "a", Data: map[string]any{"v": 2}}, {ID: "b"}},
		Inserted: []docstore.Document{{ID: "b"}, {ID: "a"}},
	}
	got := mergeInserted(prev, next)
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" || got[0].Data["v"] != 2 {
		t.Fatalf("merged = %+v", got)
	}
}

type harness struct {
	rides *ride.Service
	match *matching.Service
	mgr   *Manager
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	rides := ride.NewService(docstore.NewMemory(), nil, logging.Discard())
	hub := NewHub(rides, logging.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	mgr := NewManager(hub, nil, nil, testCfg, logging.Discard())
	t.Cleanup(func() {
		mgr.Close()
		cancel()
	})
	return &harness{rides: rides, match: matching.NewService(rides), mgr: mgr}
}

type watcher struct {
	t       *testing.T
	updates <-chan Update
	raised  []notify.Notification
}

func (h *harness) watch(t *testing.T, user ride.Actor) *watcher {
	sess, release := h.mgr.Attach(user, "")
	ch, stop := sess.Listen()
	t.Cleanup(func() {
		stop()
		release()
	})
	return &watcher{t: t, updates: ch}
}

// until blocks until a view satisfies pred.
func (w *watcher) until(what string, pred func(View) bool) View {
	w.t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case u := <-w.updates:
			w.raised = append(w.raised, u.New...)
			if pred(u.View) {
				return u.View
			}
		case <-deadline:
			w.t.Fatalf("timed out waiting for %s", what)
		}
	}
}

func status(s ride.Status) func(View) bool {
	return func(v View) bool { return v.Ride.Status == s }
}

func TestEndToEnd_RequestAcceptCompleteClose(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	pw := h.watch(t, passenger)
	dw := h.watch(t, driver)
	other := h.watch(t, driver2)

	pw.until("passenger idle", status(ride.StatusIdle))
	dw.until("driver idle", status(ride.StatusIdle))

	id, err := h.rides.RequestRide(ctx, ride.CreateCommand{Actor: passenger, Pickup: "Library", Destination: "Main Gate"})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	pw.until("passenger requested", status(ride.StatusRequested))
	dw.until("driver sees request", func(v View) bool { return len(v.IncomingRequests) == 1 && v.IncomingRequests[0].ID == id })
	other.until("other driver sees request", func(v View) bool { return len(v.IncomingRequests) == 1 })
	if len(dw.raised) != 1 || dw.raised[0].RideID != id {
		t.Fatalf("driver notifications = %+v", dw.raised)
	}
	if len(pw.raised) != 0 {
		t.Fatalf("author was notified: %+v", pw.raised)
	}

	if err := h.match.Accept(ctx, ride.RideCommand{RideID: id, Actor: driver}); err != nil {
		t.Fatalf("accept: %v", err)
	}
	pv := pw.until("passenger accepted", status(ride.StatusAccepted))
	dv := dw.until("driver accepted", status(ride.StatusAccepted))
	if pv.Ride.DriverName != "Deniz" || dv.Ride.PassengerName != "Ayşe" {
		t.Fatalf("counterpart names: %q / %q", pv.Ride.DriverName, dv.Ride.PassengerName)
	}
	other.until("request gone for other driver", func(v View) bool { return len(v.IncomingRequests) == 0 })
	if r, ok := h.mgr.Current(passenger.ID); !ok || r.ID != id {
		t.Fatalf("manager current = %+v %v", r, ok)
	}

	steps := []struct {
		op   func(context.Context, ride.RideCommand) error
		who  ride.Actor
		want ride.Status
	}{
		{h.rides.StartRide, driver, ride.StatusWaitingForPickup},
		{h.rides.ConfirmPickupByPassenger, passenger, ride.StatusOngoing},
		{h.rides.EndRide, driver, ride.StatusCompleted},
	}
	var done View
	for _, st := range steps {
		if err := st.op(ctx, ride.RideCommand{RideID: id, Actor: st.who}); err != nil {
			t.Fatalf("%s: %v", st.want, err)
		}
		done = pw.until(string(st.want), status(st.want))
		dw.until(string(st.want), status(st.want))
	}
	if done.Ride.StartTime == nil || done.Ride.EndTime == nil {
		t.Fatalf("completed ride missing times: %+v", done.Ride)
	}
	if len(done.History) != 1 {
		t.Fatalf("history = %+v", done.History)
	}
	if want := []history.Entry{{Name: "Deniz", Count: 1}}; len(done.Leaderboard.TopDrivers) != 1 || done.Leaderboard.TopDrivers[0] != want[0] {
		t.Fatalf("leaderboard = %+v", done.Leaderboard)
	}

	if err := h.rides.CloseRide(ctx, ride.RideCommand{RideID: id, Actor: passenger}); err != nil {
		t.Fatalf("passenger close: %v", err)
	}
	pw.until("passenger idle after own close", status(ride.StatusIdle))
	if r, _ := h.rides.Current(ctx, driver); r.ID != id {
		t.Fatalf("driver should still hold the ride, got %q", r.ID)
	}
	if err := h.rides.CloseRide(ctx, ride.RideCommand{RideID: id, Actor: driver}); err != nil {
		t.Fatalf("driver close: %v", err)
	}
	dw.until("driver idle after own close", status(ride.StatusIdle))
}

func TestSession_NotifiesOncePerRide(t *testing.T) {
	s := newSession(driver, "", nil, nil, nil, testCfg, logging.Discard())
	now := time.Now()
	s.now = func() time.Time { return now }
	r := ride.Ride{ID: "r1", Status: ride.StatusRequested, PassengerID: idPtr("p1"), CreatedAt: now.Add(-time.Second)}

	ch, stop := s.Listen()
	defer stop()
	s.apply(context.Background(), []ride.Ride{r}, []ride.Ride{r})
	s.apply(context.Background(), []ride.Ride{r}, []ride.Ride{r})

	got := 0
	deadline := time.After(200 * time.Millisecond)
	for {
		select {
		case u := <-ch:
			got += len(u.New)
			continue
		case <-deadline:
		}
		break
	}
	if got != 1 {
		t.Fatalf("notifications delivered = %d, want 1", got)
	}
	if n := s.Notifications(); len(n) != 1 {
		t.Fatalf("inbox = %+v", n)
	}
	s.now = func() time.Time { return now.Add(6 * time.Second) }
	if n := s.Notifications(); len(n) != 0 {
		t.Fatalf("inbox after display window = %+v", n)
	}
}

func TestManager_SharesAndReleases(t *testing.T) {
	src := &chanFeed{ch: make(chan docstore.Snapshot)}
	m := NewManager(src, nil, nil, testCfg, logging.Discard())
	defer m.Close()

	a, releaseA := m.Attach(passenger, "")
	b, releaseB := m.Attach(passenger, "")
	if a != b || m.Count() != 1 {
		t.Fatalf("sessions not shared")
	}
	releaseA()
	releaseA()
	if m.Count() != 1 {
		t.Fatalf("released too early")
	}
	releaseB()
	if m.Count() != 0 {
		t.Fatalf("count = %d", m.Count())
	}
	if _, ok := m.Current(passenger.ID); ok {
		t.Fatal("no current ride without a session")
	}
}

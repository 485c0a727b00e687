package presence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"campusride/internal/docstore"
	"campusride/internal/logging"
	"campusride/internal/modules/identity"
	"campusride/internal/modules/ride"
	"campusride/internal/types"
)

func at(t time.Time) *time.Time { return &t }

func idPtr(s string) *types.ID {
	id := types.ID(s)
	return &id
}

func TestIsOnline_WindowBoundary(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	window := 5 * time.Minute
	cases := []struct {
		name string
		seen *time.Time
		want bool
	}{
		{"4m59s ago", at(now.Add(-(4*time.Minute + 59*time.Second))), true},
		{"5m01s ago", at(now.Add(-(5*time.Minute + time.Second))), false},
		{"exactly 5m", at(now.Add(-window)), false},
		{"never seen", nil, false},
	}
	for _, tc := range cases {
		if got := IsOnline(tc.seen, now, window); got != tc.want {
			t.Errorf("%s: IsOnline = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestSeenLabel(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	if got := SeenLabel(now.Add(-40*time.Second), now); got != "Just now" {
		t.Errorf("got %q", got)
	}
	if got := SeenLabel(now.Add(-3*time.Minute-10*time.Second), now); got != "3m ago" {
		t.Errorf("got %q", got)
	}
}

func TestOnlineUsers(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	users := []identity.User{
		{UID: "d1", Name: "Deniz", Role: types.RoleDriver, LastSeen: at(now.Add(-time.Minute))},
		{UID: "d2", Name: "Kerem", Role: types.RoleDriver, LastSeen: at(now.Add(-10 * time.Second))},
		{UID: "d3", Name: "Stale", Role: types.RoleDriver, LastSeen: at(now.Add(-6 * time.Minute))},
		{UID: "p1", Name: "Ayşe", Role: types.RolePassenger, LastSeen: at(now)},
		{UID: "p2", Name: "Never", Role: types.RolePassenger},
		{UID: "a1", Name: "Ops", Role: types.RoleAdmin, LastSeen: at(now)},
	}
	got := OnlineUsers(users, now, 5*time.Minute)
	if len(got.Drivers) != 2 || got.Drivers[0].UID != "d2" || got.Drivers[1].Label != "1m ago" {
		t.Errorf("drivers = %+v", got.Drivers)
	}
	if len(got.Passengers) != 1 || got.Passengers[0].Label != "Just now" {
		t.Errorf("passengers = %+v", got.Passengers)
	}
}

func TestRideStats(t *testing.T) {
	rides := []ride.Ride{
		{Status: ride.StatusRequested, PassengerID: idPtr("p1")},
		{Status: ride.StatusRequested},
		{Status: ride.StatusOffered, DriverID: idPtr("d1")},
		{Status: ride.StatusOngoing, DriverID: idPtr("d2"), PassengerID: idPtr("p2")},
		{Status: ride.StatusCompleted, DriverID: idPtr("d3"), PassengerID: idPtr("p3")},
		{Status: ride.StatusCancelled, PassengerID: idPtr("p4")},
	}
	got := RideStats(rides)
	if got.ActiveDrivers != 2 || got.ActivePassengers != 3 {
		t.Errorf("stats = %+v", got)
	}
}

type countingToucher struct {
	mu    sync.Mutex
	n     int
	fail  bool
	beats chan struct{}
}

func (c *countingToucher) Touch(_ context.Context, _ types.ID) error {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
	c.beats <- struct{}{}
	if c.fail {
		return errors.New("store down")
	}
	return nil
}

func TestRunHeartbeat(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	toucher := &countingToucher{fail: true, beats: make(chan struct{}, 16)}
	done := make(chan struct{})
	go func() {
		RunHeartbeat(ctx, toucher, "p1", 10*time.Millisecond, logging.Discard())
		close(done)
	}()
	for i := 0; i < 3; i++ {
		select {
		case <-toucher.beats:
		case <-time.After(2 * time.Second):
			t.Fatalf("heartbeat %d never fired", i)
		}
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("heartbeat did not stop on cancel")
	}
}

type storeFeed struct{ svc *ride.Service }

func (f storeFeed) Watch(ctx context.Context) (<-chan docstore.Snapshot, error) {
	return f.svc.Watch(ctx)
}

func TestMonitor_TracksFeed(t *testing.T) {
	store := docstore.NewMemory()
	rides := ride.NewService(store, nil, logging.Discard())
	mon := NewMonitor(storeFeed{rides}, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go mon.Run(ctx)

	p := ride.Actor{ID: "p1", Name: "Ayşe", Role: types.RolePassenger}
	d := ride.Actor{ID: "d1", Name: "Deniz", Role: types.RoleDriver}
	if _, err := rides.RequestRide(ctx, ride.CreateCommand{Actor: p, Pickup: "A", Destination: "B"}); err != nil {
		t.Fatalf("request: %v", err)
	}
	if _, err := rides.CreateRideByDriver(ctx, ride.CreateCommand{Actor: d, Pickup: "C", Destination: "D"}); err != nil {
		t.Fatalf("offer: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s := mon.Stats(); s.ActiveDrivers == 1 && s.ActivePassengers == 1 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("stats = %+v", mon.Stats())
}

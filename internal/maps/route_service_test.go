package maps

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"googlemaps.github.io/maps"

	"campusride/internal/types"
)

type fakeDirections struct {
	mu     sync.Mutex
	calls  int
	routes []maps.Route
	err    error
}

func (f *fakeDirections) Directions(_ context.Context, _ *maps.DirectionsRequest) ([]maps.Route, []maps.GeocodedWaypoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.routes, nil, f.err
}

func TestLookup_DecodesAndCaches(t *testing.T) {
	path := []maps.LatLng{{Lat: 39.865194, Lng: 32.748215}, {Lat: 39.870312, Lng: 32.749781}}
	fake := &fakeDirections{routes: []maps.Route{{
		OverviewPolyline: maps.Polyline{Points: maps.Encode(path)},
		Legs: []*maps.Leg{{
			Distance: maps.Distance{HumanReadable: "0.6 km", Meters: 600},
			Duration: 2 * time.Minute,
		}},
	}}}
	s := newRouteService(fake)
	from, to := types.Point{Lat: 39.865194, Lng: 32.748215}, types.Point{Lat: 39.870312, Lng: 32.749781}

	r, err := s.Lookup(context.Background(), from, to)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if r.DistanceMeters != 600 || r.Duration != 2*time.Minute || len(r.Path) != 2 {
		t.Fatalf("route = %+v", r)
	}
	if _, err := s.Lookup(context.Background(), from, to); err != nil {
		t.Fatalf("second lookup: %v", err)
	}
	if fake.calls != 1 {
		t.Errorf("directions called %d times, want 1", fake.calls)
	}
}

func TestLookup_NoRoute(t *testing.T) {
	s := newRouteService(&fakeDirections{})
	if _, err := s.Lookup(context.Background(), types.Point{}, types.Point{Lat: 1}); !errors.Is(err, ErrNoRoute) {
		t.Fatalf("err = %v", err)
	}
}

// README: Point-to-point route lookup through the Google Directions API.
package maps

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/motoki317/sc"
	"googlemaps.github.io/maps"

	"campusride/internal/types"
)

var ErrNoRoute = errors.New("no route found")

type Route struct {
	DistanceMeters int           `json:"distanceMeters"`
	Distance       string        `json:"distance"`
	Duration       time.Duration `json:"duration"`
	Path           []types.Point `json:"path"`
}

// Directions is the subset of *maps.Client the service calls.
type Directions interface {
	Directions(ctx context.Context, r *maps.DirectionsRequest) ([]maps.Route, []maps.GeocodedWaypoint, error)
}

type routeKey struct {
	from, to types.Point
}

// RouteService handles interactions with Google Maps API. Routes are cached
// per endpoint pair.
type RouteService struct {
	client Directions
	cache  *sc.Cache[routeKey, Route]
}

// NewRouteService creates a new RouteService with the given API Key.
func NewRouteService(apiKey string) (*RouteService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return newRouteService(client), nil
}

func newRouteService(client Directions) *RouteService {
	s := &RouteService{client: client}
	s.cache = sc.NewMust(s.fetch, time.Hour, 6*time.Hour)
	return s
}

// Lookup returns the driving route between two points.
func (s *RouteService) Lookup(ctx context.Context, from, to types.Point) (Route, error) {
	return s.cache.Get(ctx, routeKey{from: from, to: to})
}

func (s *RouteService) fetch(ctx context.Context, k routeKey) (Route, error) {
	r := &maps.DirectionsRequest{
		Origin:      k.from.String(),
		Destination: k.to.String(),
		Mode:        maps.TravelModeDriving,
		Language:    "tr",
		Region:      "TR",
	}

	routes, _, err := s.client.Directions(ctx, r)
	if err != nil {
		return Route{}, fmt.Errorf("maps api error: %w", err)
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return Route{}, ErrNoRoute
	}

	leg := routes[0].Legs[0]
	out := Route{
		DistanceMeters: leg.Distance.Meters,
		Distance:       leg.Distance.HumanReadable,
		Duration:       leg.Duration,
	}
	path, err := routes[0].OverviewPolyline.Decode()
	if err != nil {
		return Route{}, fmt.Errorf("decode polyline: %w", err)
	}
	out.Path = make([]types.Point, len(path))
	for i, p := range path {
		out.Path[i] = types.Point{Lat: p.Lat, Lng: p.Lng}
	}
	return out, nil
}

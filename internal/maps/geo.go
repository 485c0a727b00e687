package maps

import (
	"fmt"
	"math"
	"time"

	"campusride/internal/types"
)

const (
	earthRadiusKm = 6371.0
	// campusSpeedKmh is the assumed average driving speed inside campus.
	campusSpeedKmh = 25.0
)

// haversineKm returns the great-circle distance in kilometres between two
// points.
func haversineKm(a, b types.Point) float64 {
	dLat := degreesToRadians(b.Lat - a.Lat)
	dLng := degreesToRadians(b.Lng - a.Lng)

	rLat1 := degreesToRadians(a.Lat)
	rLat2 := degreesToRadians(b.Lat)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// Straight estimates a route as the straight line between two points. It
// stands in for Lookup when no Directions client is configured.
func Straight(from, to types.Point) Route {
	km := haversineKm(from, to)
	return Route{
		DistanceMeters: int(math.Round(km * 1000)),
		Distance:       fmt.Sprintf("%.1f km", km),
		Duration:       time.Duration(km / campusSpeedKmh * float64(time.Hour)).Round(time.Second),
		Path:           []types.Point{from, to},
	}
}

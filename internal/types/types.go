// README: Shared identifier and coordinate value objects used across modules.
package types

import "fmt"

type ID string

type Point struct {
	Lat float64
	Lng float64
}

// String renders the point the way the Directions API expects an origin.
func (p Point) String() string {
	return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lng)
}

type Role string

const (
	RolePassenger Role = "passenger"
	RoleDriver    Role = "driver"
	RoleAdmin     Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RolePassenger, RoleDriver, RoleAdmin:
		return true
	}
	return false
}

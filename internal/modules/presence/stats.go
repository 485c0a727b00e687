package presence

import "campusride/internal/modules/ride"

type Stats struct {
	ActiveDrivers    int `json:"activeDrivers"`
	ActivePassengers int `json:"activePassengers"`
}

// RideStats is a ride-derived proxy for presence: over non-terminal rides,
// one driver per bound driverId and one passenger per bound passengerId or
// open request.
func RideStats(rides []ride.Ride) Stats {
	var s Stats
	for _, r := range rides {
		if r.Status.Terminal() || r.IsIdle() {
			continue
		}
		if r.DriverID != nil {
			s.ActiveDrivers++
		}
		if r.PassengerID != nil || r.Status == ride.StatusRequested {
			s.ActivePassengers++
		}
	}
	return s
}

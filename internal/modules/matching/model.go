// README: Matching visibility rules for open requests and offers.
package matching

import (
	"campusride/internal/modules/ride"
	"campusride/internal/types"
)

// VisibleRequests returns the open passenger requests a driver may act on:
// REQUESTED, not yet bound to a driver, not declined by this driver and not
// authored by the driver themselves.
func VisibleRequests(rides []ride.Ride, driverID types.ID) []ride.Ride {
	out := make([]ride.Ride, 0)
	for _, r := range rides {
		if r.Status != ride.StatusRequested || r.DriverID != nil {
			continue
		}
		if r.Declined(driverID) || r.HasPassenger(driverID) {
			continue
		}
		out = append(out, r)
	}
	ride.SortNewestFirst(out)
	return out
}

// VisibleOffers returns driver offers that still have a free seat. Offers
// have no decline tracking.
func VisibleOffers(rides []ride.Ride, passengerID types.ID) []ride.Ride {
	out := make([]ride.Ride, 0)
	for _, r := range rides {
		if r.Status != ride.StatusOffered || r.PassengerID != nil || r.HasDriver(passengerID) {
			continue
		}
		out = append(out, r)
	}
	ride.SortNewestFirst(out)
	return out
}

// Incoming is the role-appropriate candidate list. Admins see nothing.
func Incoming(rides []ride.Ride, user ride.Actor) []ride.Ride {
	switch user.Role {
	case types.RoleDriver:
		return VisibleRequests(rides, user.ID)
	case types.RolePassenger:
		return VisibleOffers(rides, user.ID)
	}
	return []ride.Ride{}
}

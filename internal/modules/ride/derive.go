package ride

import (
	"sort"

	"campusride/internal/types"
)

// Current picks the user's active ride out of a full snapshot: the ride bound
// to the user on their own side that is either still running or terminal but
// not yet closed by them. Several candidates resolve to the most recently
// created one; none resolves to Idle.
func Current(rides []Ride, user Actor) Ride {
	var best *Ride
	for i := range rides {
		r := &rides[i]
		if !activeFor(*r, user) {
			continue
		}
		if best == nil || newer(*r, *best) {
			best = r
		}
	}
	if best == nil {
		return Idle()
	}
	return *best
}

func activeFor(r Ride, user Actor) bool {
	switch user.Role {
	case types.RoleDriver:
		if !r.HasDriver(user.ID) {
			return false
		}
	case types.RolePassenger:
		if !r.HasPassenger(user.ID) {
			return false
		}
	default:
		return false
	}
	if !r.Status.Terminal() {
		return true
	}
	return !r.ClosedBy(user.Role)
}

func newer(a, b Ride) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

// SortNewestFirst orders rides by creation time descending, ties by id.
func SortNewestFirst(rides []Ride) {
	sort.SliceStable(rides, func(i, j int) bool { return newer(rides[i], rides[j]) })
}

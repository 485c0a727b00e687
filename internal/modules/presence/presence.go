// README: Presence derives online users from lastSeen heartbeats.
package presence

import (
	"fmt"
	"sort"
	"time"

	"campusride/internal/modules/identity"
	"campusride/internal/types"
)

// IsOnline reports now - lastSeen < window. A user never seen is offline.
func IsOnline(lastSeen *time.Time, now time.Time, window time.Duration) bool {
	if lastSeen == nil {
		return false
	}
	return now.Sub(*lastSeen) < window
}

// SeenLabel renders the admin "last seen" text.
func SeenLabel(lastSeen, now time.Time) string {
	mins := int(now.Sub(lastSeen) / time.Minute)
	if mins < 1 {
		return "Just now"
	}
	return fmt.Sprintf("%dm ago", mins)
}

type OnlineUser struct {
	UID      types.ID   `json:"uid"`
	Name     string     `json:"name"`
	Role     types.Role `json:"role"`
	AvatarID string     `json:"avatarId,omitempty"`
	LastSeen time.Time  `json:"lastSeen"`
	Label    string     `json:"label"`
}

type Online struct {
	Drivers    []OnlineUser `json:"drivers"`
	Passengers []OnlineUser `json:"passengers"`
}

// OnlineUsers splits users seen within window by role, most recent first.
// Admins are never listed.
func OnlineUsers(users []identity.User, now time.Time, window time.Duration) Online {
	out := Online{Drivers: []OnlineUser{}, Passengers: []OnlineUser{}}
	for _, u := range users {
		if !IsOnline(u.LastSeen, now, window) {
			continue
		}
		ou := OnlineUser{UID: u.UID, Name: u.Name, Role: u.Role, AvatarID: u.AvatarID, LastSeen: *u.LastSeen, Label: SeenLabel(*u.LastSeen, now)}
		switch u.Role {
		case types.RoleDriver:
			out.Drivers = append(out.Drivers, ou)
		case types.RolePassenger:
			out.Passengers = append(out.Passengers, ou)
		}
	}
	byRecency := func(list []OnlineUser) {
		sort.SliceStable(list, func(i, j int) bool { return list[i].LastSeen.After(list[j].LastSeen) })
	}
	byRecency(out.Drivers)
	byRecency(out.Passengers)
	return out
}

// README: History projections and the completed-ride leaderboard.
package history

import (
	"fmt"
	"sort"
	"time"

	"campusride/internal/modules/ride"
	"campusride/internal/types"
)

type Item struct {
	ID              types.ID    `json:"id"`
	Date            string      `json:"date"`
	Time            string      `json:"time"`
	Pickup          string      `json:"pickup"`
	Destination     string      `json:"destination"`
	Status          ride.Status `json:"status"`
	CounterpartName string      `json:"counterpartName"`
	Duration        string      `json:"duration"`
	CreatedAt       time.Time   `json:"createdAt"`
}

// For lists the user's terminal rides, newest first. Dates render in loc.
func For(rides []ride.Ride, user ride.Actor, loc *time.Location) []Item {
	if loc == nil {
		loc = time.UTC
	}
	out := make([]Item, 0)
	for _, r := range rides {
		if !r.Status.Terminal() {
			continue
		}
		var counterpart string
		switch {
		case user.Role == types.RoleDriver && r.HasDriver(user.ID):
			counterpart = r.PassengerName
		case user.Role == types.RolePassenger && r.HasPassenger(user.ID):
			counterpart = r.DriverName
		default:
			continue
		}
		local := r.CreatedAt.In(loc)
		out = append(out, Item{
			ID:              r.ID,
			Date:            local.Format("02.01.2006"),
			Time:            local.Format("15:04"),
			Pickup:          r.Pickup,
			Destination:     r.Destination,
			Status:          r.Status,
			CounterpartName: counterpart,
			Duration:        Duration(r.StartTime, r.EndTime),
			CreatedAt:       r.CreatedAt,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Duration renders "Xm Ys" when both timestamps exist, otherwise "N/A".
func Duration(start, end *time.Time) string {
	if start == nil || end == nil {
		return "N/A"
	}
	d := end.Sub(*start)
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%dm %ds", int(d/time.Minute), int(d%time.Minute/time.Second))
}

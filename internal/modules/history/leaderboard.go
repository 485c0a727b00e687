package history

import (
	"sort"

	"campusride/internal/modules/ride"
)

const (
	unknownDriver    = "Unknown Driver"
	unknownPassenger = "Unknown Passenger"
)

type Entry struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type Leaderboard struct {
	TopDrivers    []Entry `json:"topDrivers"`
	TopPassengers []Entry `json:"topPassengers"`
}

// Rank counts completed rides per denormalized name, separately for drivers
// and passengers, and keeps the top n of each. Accounts sharing a display
// name are counted together. Equal counts order by name.
func Rank(rides []ride.Ride, n int) Leaderboard {
	drivers := map[string]int{}
	passengers := map[string]int{}
	for _, r := range rides {
		if !r.Status.Done() {
			continue
		}
		if r.DriverID != nil || r.DriverName != "" {
			drivers[orDefault(r.DriverName, unknownDriver)]++
		}
		if r.PassengerID != nil || r.PassengerName != "" {
			passengers[orDefault(r.PassengerName, unknownPassenger)]++
		}
	}
	return Leaderboard{TopDrivers: top(drivers, n), TopPassengers: top(passengers, n)}
}

func top(counts map[string]int, n int) []Entry {
	out := make([]Entry, 0, len(counts))
	for name, c := range counts {
		out = append(out, Entry{Name: name, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

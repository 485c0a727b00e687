// README: Pure derivation of a user's view from one rides snapshot.
package session

import (
	"time"

	"campusride/internal/modules/history"
	"campusride/internal/modules/matching"
	"campusride/internal/modules/notify"
	"campusride/internal/modules/presence"
	"campusride/internal/modules/ride"
	"campusride/internal/types"
)

type Config struct {
	Notify          notify.Config
	Heartbeat       time.Duration
	Location        *time.Location
	LeaderboardSize int
}

// View is everything a client renders. Every field is recomputed from the
// latest snapshot.
type View struct {
	Ride             ride.Ride           `json:"ride"`
	IncomingRequests []ride.Ride         `json:"incomingRequests"`
	IncomingOffers   []ride.Ride         `json:"incomingDriverOffers"`
	Stats            presence.Stats      `json:"stats"`
	History          []history.Item      `json:"history"`
	Leaderboard      history.Leaderboard `json:"leaderboard"`
}

// EmptyView is what a user sees before the first snapshot arrives.
func EmptyView() View {
	return View{
		Ride:             ride.Idle(),
		IncomingRequests: []ride.Ride{},
		IncomingOffers:   []ride.Ride{},
		History:          []history.Item{},
		Leaderboard:      history.Leaderboard{TopDrivers: []history.Entry{}, TopPassengers: []history.Entry{}},
	}
}

// Reduce derives user's view from all rides in the snapshot and raises
// notifications for the inserted ones. Role decides which incoming list is
// filled; the other is always empty.
func Reduce(user ride.Actor, rides, inserted []ride.Ride, now time.Time, cfg Config) (View, []notify.Notification) {
	v := EmptyView()
	v.Ride = ride.Current(rides, user)
	incoming := matching.Incoming(rides, user)
	switch user.Role {
	case types.RoleDriver:
		v.IncomingRequests = incoming
	case types.RolePassenger:
		v.IncomingOffers = incoming
	}
	v.Stats = presence.RideStats(rides)
	v.History = history.For(rides, user, cfg.Location)
	v.Leaderboard = history.Rank(rides, cfg.LeaderboardSize)
	return v, notify.Evaluate(user, inserted, now, cfg.Notify)
}

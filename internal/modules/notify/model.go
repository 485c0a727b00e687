// README: Notification rules for newly inserted requests and offers.
package notify

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"campusride/internal/modules/ride"
	"campusride/internal/types"
)

type Kind string

const (
	KindInfo    Kind = "info"
	KindSuccess Kind = "success"
	KindWarning Kind = "warning"
	KindError   Kind = "error"
)

type Notification struct {
	ID        string     `json:"id"`
	Kind      Kind       `json:"type"`
	Audience  types.Role `json:"audience"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	RideID    types.ID   `json:"rideId"`
	CreatedAt time.Time  `json:"createdAt"`
	ExpiresAt time.Time  `json:"expiresAt"`
}

type Config struct {
	// Recency bounds how old an inserted ride may be and still notify.
	Recency time.Duration
	// Display is how long a notification stays in the inbox.
	Display time.Duration
}

// Evaluate returns the notifications user should see for the rides inserted
// in one feed delivery. Only rides created within the recency window count;
// drivers hear about new requests and passengers about new offers, never
// about their own.
func Evaluate(user ride.Actor, inserted []ride.Ride, now time.Time, cfg Config) []Notification {
	var out []Notification
	for _, r := range inserted {
		if r.CreatedAt.IsZero() || now.Sub(r.CreatedAt) >= cfg.Recency {
			continue
		}
		n, ok := build(user, r)
		if !ok {
			continue
		}
		n.ID = uuid.NewString()
		n.CreatedAt = now
		n.ExpiresAt = now.Add(cfg.Display)
		out = append(out, n)
	}
	return out
}

func build(user ride.Actor, r ride.Ride) (Notification, bool) {
	switch {
	case user.Role == types.RoleDriver && r.Status == ride.StatusRequested && !r.HasPassenger(user.ID):
		return Notification{
			Kind:     KindInfo,
			Audience: types.RoleDriver,
			Title:    "New Passenger Request! 🙋‍♂️",
			Message:  fmt.Sprintf("%s wants to go to %s", orDefault(r.PassengerName, "A passenger"), r.Destination),
			RideID:   r.ID,
		}, true
	case user.Role == types.RolePassenger && r.Status == ride.StatusOffered && !r.HasDriver(user.ID):
		return Notification{
			Kind:     KindWarning,
			Audience: types.RolePassenger,
			Title:    "New Ride Offer! 🚕",
			Message:  fmt.Sprintf("%s is going to %s", orDefault(r.DriverName, "A driver"), r.Destination),
			RideID:   r.ID,
		}, true
	}
	return Notification{}, false
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// README: Matching service binds requests and offers into rides.
package matching

import (
	"context"

	"campusride/internal/modules/ride"
	"campusride/internal/types"
)

// Rides is the subset of the ride service matching writes through.
type Rides interface {
	Apply(ctx context.Context, id types.ID, ev ride.Event, actor ride.Actor) error
	All(ctx context.Context) ([]ride.Ride, error)
}

type Service struct {
	rides Rides
}

func NewService(rides Rides) *Service {
	return &Service{rides: rides}
}

// Accept binds the calling driver to an open request. An accept that reads
// the request already bound is a no-op; truly concurrent accepts resolve
// last-write-wins at the store.
func (s *Service) Accept(ctx context.Context, cmd ride.RideCommand) error {
	return s.rides.Apply(ctx, cmd.RideID, ride.EventAccept, cmd.Actor)
}

// Join binds the calling passenger to an open offer.
func (s *Service) Join(ctx context.Context, cmd ride.RideCommand) error {
	return s.rides.Apply(ctx, cmd.RideID, ride.EventJoin, cmd.Actor)
}

// Decline hides a request from the calling driver for good.
func (s *Service) Decline(ctx context.Context, cmd ride.RideCommand) error {
	return s.rides.Apply(ctx, cmd.RideID, ride.EventDecline, cmd.Actor)
}

// Incoming reads the candidates for user with a one-shot read. Live sessions
// derive the same list from the change feed instead.
func (s *Service) Incoming(ctx context.Context, user ride.Actor) ([]ride.Ride, error) {
	rides, err := s.rides.All(ctx)
	if err != nil {
		return nil, err
	}
	return Incoming(rides, user), nil
}

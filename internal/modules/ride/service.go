// README: Ride service creates rides and applies lifecycle transitions through the document store.
package ride

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"campusride/internal/docstore"
	"campusride/internal/observability"
	"campusride/internal/types"
)

var (
	ErrBadRequest    = errors.New("bad request")
	ErrNotFound      = errors.New("ride not found")
	ErrForbidden     = errors.New("operation not permitted for this user")
	ErrActiveRide    = errors.New("user already has an active ride")
	ErrWriteRejected = errors.New("ride write rejected")
)

// Locations validates pickup and destination names.
type Locations interface {
	Has(name string) bool
}

type Service struct {
	store     docstore.Store
	locations Locations
	sinks     []EventSink
	log       *slog.Logger
	now       func() time.Time
}

func NewService(store docstore.Store, locations Locations, log *slog.Logger, sinks ...EventSink) *Service {
	return &Service{store: store, locations: locations, sinks: sinks, log: log, now: time.Now}
}

type CreateCommand struct {
	Actor       Actor
	Pickup      string
	Destination string
}

type RideCommand struct {
	RideID types.ID
	Actor  Actor
}

// RequestRide opens a passenger request.
func (s *Service) RequestRide(ctx context.Context, cmd CreateCommand) (types.ID, error) {
	if cmd.Actor.Role != types.RolePassenger {
		return "", ErrForbidden
	}
	return s.create(ctx, cmd, EventRequest, map[string]any{
		FieldStatus:            string(StatusRequested),
		FieldPassengerID:       string(cmd.Actor.ID),
		FieldPassengerName:     cmd.Actor.Name,
		FieldDriverID:          nil,
		FieldDeclinedDriverIDs: []any{},
	})
}

// CreateRideByDriver opens a driver offer.
func (s *Service) CreateRideByDriver(ctx context.Context, cmd CreateCommand) (types.ID, error) {
	if cmd.Actor.Role != types.RoleDriver {
		return "", ErrForbidden
	}
	return s.create(ctx, cmd, EventOffer, map[string]any{
		FieldStatus:      string(StatusOffered),
		FieldDriverID:    string(cmd.Actor.ID),
		FieldDriverName:  cmd.Actor.Name,
		FieldPassengerID: nil,
	})
}

func (s *Service) StartRide(ctx context.Context, cmd RideCommand) error {
	return s.Apply(ctx, cmd.RideID, EventStart, cmd.Actor)
}

func (s *Service) ConfirmPickupByPassenger(ctx context.Context, cmd RideCommand) error {
	return s.Apply(ctx, cmd.RideID, EventConfirmPickup, cmd.Actor)
}

func (s *Service) EndRide(ctx context.Context, cmd RideCommand) error {
	return s.Apply(ctx, cmd.RideID, EventEnd, cmd.Actor)
}

func (s *Service) ConfirmDropoffByPassenger(ctx context.Context, cmd RideCommand) error {
	return s.Apply(ctx, cmd.RideID, EventConfirmDropoff, cmd.Actor)
}

func (s *Service) CancelRide(ctx context.Context, cmd RideCommand) error {
	return s.Apply(ctx, cmd.RideID, EventCancel, cmd.Actor)
}

func (s *Service) CloseRide(ctx context.Context, cmd RideCommand) error {
	return s.Apply(ctx, cmd.RideID, EventClose, cmd.Actor)
}

// Apply is the single write boundary for existing rides. It reads the ride,
// plans the writes for ev and issues them as one unconditional field update;
// concurrent writers resolve by last-write-wins. An event that no longer fits
// the ride's state is dropped silently.
func (s *Service) Apply(ctx context.Context, id types.ID, ev Event, actor Actor) error {
	if id == "" {
		return ErrBadRequest
	}
	r, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	to, updates, err := plan(r, ev, actor)
	if errors.Is(err, errStale) {
		observability.TransitionsTotal.WithLabelValues(string(ev), "stale").Inc()
		s.log.Debug("ignoring stale ride transition", "ride_id", id, "event", ev, "status", r.Status, "actor", actor.ID)
		return nil
	}
	if err != nil {
		observability.TransitionsTotal.WithLabelValues(string(ev), "rejected").Inc()
		return err
	}
	if err := s.store.Update(ctx, Collection, string(id), updates); err != nil {
		observability.TransitionsTotal.WithLabelValues(string(ev), "failed").Inc()
		if docstore.IsNotFound(err) {
			return ErrNotFound
		}
		s.log.Error("ride update failed", "ride_id", id, "event", ev, "error", err)
		return fmt.Errorf("%w: %v", ErrWriteRejected, err)
	}
	observability.TransitionsTotal.WithLabelValues(string(ev), "applied").Inc()
	s.emit(ctx, TransitionEvent{RideID: id, Event: ev, From: r.Status, To: to, ActorID: actor.ID, ActorRole: actor.Role, At: s.now()})
	return nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (Ride, error) {
	doc, err := s.store.Get(ctx, Collection, string(id))
	if docstore.IsNotFound(err) {
		return Ride{}, ErrNotFound
	}
	if err != nil {
		return Ride{}, err
	}
	return FromDocument(doc)
}

// Current resolves the user's active ride with a one-shot read.
func (s *Service) Current(ctx context.Context, user Actor) (Ride, error) {
	var field string
	switch user.Role {
	case types.RoleDriver:
		field = FieldDriverID
	case types.RolePassenger:
		field = FieldPassengerID
	default:
		return Idle(), nil
	}
	docs, err := s.store.List(ctx, Collection, docstore.Query{}.Where(field, docstore.OpEqual, string(user.ID)))
	if err != nil {
		return Ride{}, err
	}
	return Current(ParseAll(docs, s.log), user), nil
}

// All lists every ride, newest first.
func (s *Service) All(ctx context.Context) ([]Ride, error) {
	docs, err := s.store.List(ctx, Collection, docstore.Query{})
	if err != nil {
		return nil, err
	}
	rides := ParseAll(docs, s.log)
	SortNewestFirst(rides)
	return rides, nil
}

// Watch streams every ride snapshot from the store.
func (s *Service) Watch(ctx context.Context) (<-chan docstore.Snapshot, error) {
	statuses := make([]any, len(Persisted))
	for i, st := range Persisted {
		statuses[i] = string(st)
	}
	return s.store.Watch(ctx, Collection, docstore.Query{}.Where(FieldStatus, docstore.OpIn, statuses))
}

func (s *Service) create(ctx context.Context, cmd CreateCommand, ev Event, fields map[string]any) (types.ID, error) {
	pickup := strings.TrimSpace(cmd.Pickup)
	destination := strings.TrimSpace(cmd.Destination)
	if cmd.Actor.ID == "" || pickup == "" || destination == "" || pickup == destination {
		return "", ErrBadRequest
	}
	if s.locations != nil && (!s.locations.Has(pickup) || !s.locations.Has(destination)) {
		return "", ErrBadRequest
	}
	current, err := s.Current(ctx, cmd.Actor)
	if err != nil {
		return "", err
	}
	if !current.IsIdle() {
		return "", ErrActiveRide
	}

	fields[FieldPickup] = pickup
	fields[FieldDestination] = destination
	fields[FieldClosedByDriver] = false
	fields[FieldClosedByPassenger] = false
	fields[FieldCreatedAt] = docstore.ServerTimestamp

	id, err := s.store.Create(ctx, Collection, fields)
	if err != nil {
		observability.TransitionsTotal.WithLabelValues(string(ev), "failed").Inc()
		s.log.Error("ride create failed", "event", ev, "actor", cmd.Actor.ID, "error", err)
		return "", fmt.Errorf("%w: %v", ErrWriteRejected, err)
	}
	observability.TransitionsTotal.WithLabelValues(string(ev), "applied").Inc()
	to := Status(fields[FieldStatus].(string))
	s.emit(ctx, TransitionEvent{RideID: types.ID(id), Event: ev, To: to, ActorID: cmd.Actor.ID, ActorRole: cmd.Actor.Role, At: s.now()})
	return types.ID(id), nil
}

func (s *Service) emit(ctx context.Context, e TransitionEvent) {
	for _, sink := range s.sinks {
		if err := sink.Record(ctx, e); err != nil {
			s.log.Warn("ride event sink failed", "ride_id", e.RideID, "event", e.Event, "error", err)
		}
	}
}

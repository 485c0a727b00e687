package ride

import (
	"errors"

	"campusride/internal/docstore"
	"campusride/internal/types"
)

// errStale marks an event that does not apply to the ride as last read. The
// caller treats it as a harmless no-op.
var errStale = errors.New("ride not in expected state")

// plan computes the field writes for ev against r. It returns ErrForbidden when
// the actor may never perform ev on this ride and errStale when the ride has
// moved past the state ev expects.
func plan(r Ride, ev Event, actor Actor) (Status, []docstore.Update, error) {
	switch ev {
	case EventAccept:
		if actor.Role != types.RoleDriver || r.HasPassenger(actor.ID) {
			return "", nil, ErrForbidden
		}
		if r.Status != StatusRequested || r.DriverID != nil || r.Declined(actor.ID) {
			return "", nil, errStale
		}
		return StatusAccepted, []docstore.Update{
			{Path: FieldStatus, Value: string(StatusAccepted)},
			{Path: FieldDriverID, Value: string(actor.ID)},
			{Path: FieldDriverName, Value: actor.Name},
		}, nil

	case EventJoin:
		if actor.Role != types.RolePassenger || r.HasDriver(actor.ID) {
			return "", nil, ErrForbidden
		}
		if r.Status != StatusOffered || r.PassengerID != nil {
			return "", nil, errStale
		}
		return StatusAccepted, []docstore.Update{
			{Path: FieldStatus, Value: string(StatusAccepted)},
			{Path: FieldPassengerID, Value: string(actor.ID)},
			{Path: FieldPassengerName, Value: actor.Name},
		}, nil

	case EventDecline:
		if actor.Role != types.RoleDriver {
			return "", nil, ErrForbidden
		}
		if r.Status != StatusRequested || r.Declined(actor.ID) {
			return "", nil, errStale
		}
		return r.Status, []docstore.Update{
			{Path: FieldDeclinedDriverIDs, Value: docstore.ArrayUnion(string(actor.ID))},
		}, nil

	case EventStart:
		return step(r, actor, types.RoleDriver, StatusAccepted, StatusWaitingForPickup, "")

	case EventConfirmPickup:
		return step(r, actor, types.RolePassenger, StatusWaitingForPickup, StatusOngoing, FieldStartTime)

	case EventEnd:
		return step(r, actor, types.RoleDriver, StatusOngoing, StatusCompleted, FieldEndTime)

	case EventConfirmDropoff:
		if r.Status == StatusWaitingForDropoff {
			return step(r, actor, types.RolePassenger, StatusWaitingForDropoff, StatusCompleted, FieldEndTime)
		}
		return step(r, actor, types.RolePassenger, StatusOngoing, StatusCompleted, FieldEndTime)

	case EventCancel:
		if actor.Role != types.RoleAdmin && !r.HasPassenger(actor.ID) && !r.HasDriver(actor.ID) {
			return "", nil, ErrForbidden
		}
		if !CanTransition(r.Status, StatusCancelled) {
			return "", nil, errStale
		}
		return StatusCancelled, []docstore.Update{
			{Path: FieldStatus, Value: string(StatusCancelled)},
		}, nil

	case EventClose:
		var field string
		switch {
		case actor.Role == types.RoleDriver && r.HasDriver(actor.ID):
			field = FieldClosedByDriver
		case actor.Role == types.RolePassenger && r.HasPassenger(actor.ID):
			field = FieldClosedByPassenger
		default:
			return "", nil, ErrForbidden
		}
		if !r.Status.Terminal() || r.ClosedBy(actor.Role) {
			return "", nil, errStale
		}
		return r.Status, []docstore.Update{{Path: field, Value: true}}, nil
	}
	return "", nil, ErrBadRequest
}

// step is a status change performed by the participant bound on one side.
func step(r Ride, actor Actor, role types.Role, from, to Status, stamp string) (Status, []docstore.Update, error) {
	bound := r.HasDriver(actor.ID)
	if role == types.RolePassenger {
		bound = r.HasPassenger(actor.ID)
	}
	if actor.Role != role || !bound {
		return "", nil, ErrForbidden
	}
	if r.Status != from || !CanTransition(from, to) {
		return "", nil, errStale
	}
	updates := []docstore.Update{{Path: FieldStatus, Value: string(to)}}
	if stamp != "" {
		updates = append(updates, docstore.Update{Path: stamp, Value: docstore.ServerTimestamp})
	}
	return to, updates, nil
}

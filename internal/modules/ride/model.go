// README: Ride aggregate, status set and the transition table.
package ride

import (
	"time"

	"campusride/internal/types"
)

const Collection = "rides"

type Status string

const (
	StatusIdle              Status = "IDLE"
	StatusRequested         Status = "REQUESTED"
	StatusOffered           Status = "OFFERED"
	StatusAccepted          Status = "ACCEPTED"
	StatusWaitingForPickup  Status = "WAITING_FOR_PICKUP_CONFIRM"
	StatusOngoing           Status = "ONGOING"
	StatusWaitingForDropoff Status = "WAITING_FOR_DROPOFF_CONFIRM"
	StatusCompleted         Status = "COMPLETED"
	StatusFinished          Status = "FINISHED"
	StatusCancelled         Status = "CANCELLED"
)

// Persisted lists every status a stored ride may carry. IDLE never reaches the store.
var Persisted = []Status{
	StatusRequested,
	StatusOffered,
	StatusAccepted,
	StatusWaitingForPickup,
	StatusOngoing,
	StatusWaitingForDropoff,
	StatusCompleted,
	StatusFinished,
	StatusCancelled,
}

// Terminal reports whether no further status change is allowed. FINISHED is a
// legacy alias of COMPLETED.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFinished || s == StatusCancelled
}

// Done reports a successfully finished ride.
func (s Status) Done() bool {
	return s == StatusCompleted || s == StatusFinished
}

func (s Status) Persisted() bool {
	for _, p := range Persisted {
		if s == p {
			return true
		}
	}
	return false
}

// Field names as stored in ride documents.
const (
	FieldStatus            = "status"
	FieldPickup            = "pickup"
	FieldDestination       = "destination"
	FieldPassengerID       = "passengerId"
	FieldPassengerName     = "passengerName"
	FieldDriverID          = "driverId"
	FieldDriverName        = "driverName"
	FieldDeclinedDriverIDs = "declinedDriverIds"
	FieldClosedByDriver    = "closedByDriver"
	FieldClosedByPassenger = "closedByPassenger"
	FieldCreatedAt         = "createdAt"
	FieldStartTime         = "startTime"
	FieldEndTime           = "endTime"
)

type Ride struct {
	ID                types.ID   `json:"id,omitempty"`
	Status            Status     `json:"status"`
	Pickup            string     `json:"pickup"`
	Destination       string     `json:"destination"`
	PassengerID       *types.ID  `json:"passengerId"`
	PassengerName     string     `json:"passengerName,omitempty"`
	DriverID          *types.ID  `json:"driverId"`
	DriverName        string     `json:"driverName,omitempty"`
	DeclinedDriverIDs []types.ID `json:"declinedDriverIds,omitempty"`
	ClosedByDriver    bool       `json:"closedByDriver,omitempty"`
	ClosedByPassenger bool       `json:"closedByPassenger,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	StartTime         *time.Time `json:"startTime,omitempty"`
	EndTime           *time.Time `json:"endTime,omitempty"`
}

// Idle is the synthetic "no active ride" value.
func Idle() Ride {
	return Ride{Status: StatusIdle}
}

func (r Ride) IsIdle() bool {
	return r.Status == StatusIdle
}

func (r Ride) Bound() bool {
	return r.PassengerID != nil && r.DriverID != nil
}

func (r Ride) HasPassenger(id types.ID) bool {
	return r.PassengerID != nil && *r.PassengerID == id
}

func (r Ride) HasDriver(id types.ID) bool {
	return r.DriverID != nil && *r.DriverID == id
}

func (r Ride) Declined(driverID types.ID) bool {
	for _, d := range r.DeclinedDriverIDs {
		if d == driverID {
			return true
		}
	}
	return false
}

// ClosedBy reports whether the given side has acknowledged the terminal ride.
func (r Ride) ClosedBy(role types.Role) bool {
	switch role {
	case types.RoleDriver:
		return r.ClosedByDriver
	case types.RolePassenger:
		return r.ClosedByPassenger
	}
	return false
}

// Actor is the authenticated user performing an operation.
type Actor struct {
	ID   types.ID
	Name string
	Role types.Role
}

type Event string

const (
	EventRequest        Event = "request"
	EventOffer          Event = "offer"
	EventAccept         Event = "accept"
	EventJoin           Event = "join"
	EventDecline        Event = "decline"
	EventStart          Event = "start"
	EventConfirmPickup  Event = "confirm_pickup"
	EventEnd            Event = "end"
	EventConfirmDropoff Event = "confirm_dropoff"
	EventCancel         Event = "cancel"
	EventClose          Event = "close"
)

// AllowedTransitions represents the ride state flow as code. Decline and close
// leave the status unchanged and are not listed. ONGOING goes straight to
// COMPLETED; WAITING_FOR_DROPOFF_CONFIRM is only ever left, never entered.
var AllowedTransitions = map[Status][]Status{
	StatusRequested:         {StatusAccepted, StatusCancelled},
	StatusOffered:           {StatusAccepted, StatusCancelled},
	StatusAccepted:          {StatusWaitingForPickup, StatusCancelled},
	StatusWaitingForPickup:  {StatusOngoing, StatusCancelled},
	StatusOngoing:           {StatusCompleted, StatusCancelled},
	StatusWaitingForDropoff: {StatusCompleted, StatusCancelled},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

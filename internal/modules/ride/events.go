package ride

import (
	"context"
	"time"

	"campusride/internal/types"
)

// TransitionEvent records one applied operation. Sinks receive it after the
// store accepted the write.
type TransitionEvent struct {
	RideID    types.ID   `json:"rideId"`
	Event     Event      `json:"event"`
	From      Status     `json:"from"`
	To        Status     `json:"to"`
	ActorID   types.ID   `json:"actorId"`
	ActorRole types.Role `json:"actorRole"`
	At        time.Time  `json:"at"`
}

type EventSink interface {
	Record(ctx context.Context, e TransitionEvent) error
}

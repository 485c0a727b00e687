// README: Admin handlers: online users, all rides, forced cancel, event log.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"campusride/internal/http/middleware"
	"campusride/internal/modules/identity"
	"campusride/internal/modules/presence"
	"campusride/internal/modules/ride"
	"campusride/internal/types"
)

// EventLog reads a ride's recorded transitions.
type EventLog interface {
	ForRide(ctx context.Context, rideID types.ID) ([]ride.TransitionEvent, error)
}

type AdminHandler struct {
	identity *identity.Service
	rides    *ride.Service
	events   EventLog
	window   time.Duration
	now      func() time.Time
}

func NewAdminHandler(ident *identity.Service, rides *ride.Service, events EventLog, window time.Duration) *AdminHandler {
	return &AdminHandler{identity: ident, rides: rides, events: events, window: window, now: time.Now}
}

func (h *AdminHandler) OnlineUsers(c *gin.Context) {
	users, err := h.identity.ListUsers(c.Request.Context())
	if err != nil {
		writeIdentityError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, presence.OnlineUsers(users, h.now(), h.window))
}

func (h *AdminHandler) Rides(c *gin.Context) {
	rides, err := h.rides.All(c.Request.Context())
	if err != nil {
		writeRideError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"rides": rides})
}

func (h *AdminHandler) Cancel(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid ride id")
		return
	}
	cmd := ride.RideCommand{RideID: types.ID(id), Actor: middleware.CallerActor(c)}
	if err := h.rides.CancelRide(c.Request.Context(), cmd); err != nil {
		writeRideError(c, err)
		return
	}
	writeJSON(c, http.StatusAccepted, acceptedResponse{RideID: cmd.RideID})
}

func (h *AdminHandler) Events(c *gin.Context) {
	if h.events == nil {
		writeError(c, http.StatusServiceUnavailable, "event log disabled")
		return
	}
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid ride id")
		return
	}
	events, err := h.events.ForRide(c.Request.Context(), types.ID(id))
	if err != nil {
		writeError(c, http.StatusInternalServerError, "internal error")
		return
	}
	if events == nil {
		events = []ride.TransitionEvent{}
	}
	writeJSON(c, http.StatusOK, gin.H{"events": events})
}

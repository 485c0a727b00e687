// README: Ride write handlers. Every accepted write answers 202; the new state
// is delivered through the stream.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"campusride/internal/http/middleware"
	"campusride/internal/modules/matching"
	"campusride/internal/modules/ride"
	"campusride/internal/types"
)

// LiveRides reports the ride a user's live session currently shows.
type LiveRides interface {
	Current(uid types.ID) (ride.Ride, bool)
}

type RideHandler struct {
	rides    *ride.Service
	matching *matching.Service
	live     LiveRides
}

func NewRideHandler(rides *ride.Service, match *matching.Service, live LiveRides) *RideHandler {
	return &RideHandler{rides: rides, matching: match, live: live}
}

type createRideReq struct {
	Pickup      string `json:"pickup"`
	Destination string `json:"destination"`
}

func (h *RideHandler) Request(c *gin.Context) {
	h.create(c, h.rides.RequestRide)
}

func (h *RideHandler) Offer(c *gin.Context) {
	h.create(c, h.rides.CreateRideByDriver)
}

func (h *RideHandler) create(c *gin.Context, fn func(context.Context, ride.CreateCommand) (types.ID, error)) {
	var req createRideReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	id, err := fn(c.Request.Context(), ride.CreateCommand{
		Actor:       middleware.CallerActor(c),
		Pickup:      req.Pickup,
		Destination: req.Destination,
	})
	if err != nil {
		writeRideError(c, err)
		return
	}
	writeJSON(c, http.StatusAccepted, acceptedResponse{RideID: id})
}

func (h *RideHandler) Accept(c *gin.Context) {
	h.byID(c, h.matching.Accept)
}

func (h *RideHandler) Join(c *gin.Context) {
	h.byID(c, h.matching.Join)
}

func (h *RideHandler) Decline(c *gin.Context) {
	h.byID(c, h.matching.Decline)
}

func (h *RideHandler) byID(c *gin.Context, fn func(context.Context, ride.RideCommand) error) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid ride id")
		return
	}
	cmd := ride.RideCommand{RideID: types.ID(id), Actor: middleware.CallerActor(c)}
	if err := fn(c.Request.Context(), cmd); err != nil {
		writeRideError(c, err)
		return
	}
	writeJSON(c, http.StatusAccepted, acceptedResponse{RideID: cmd.RideID})
}

func (h *RideHandler) Start(c *gin.Context) {
	h.onCurrent(c, h.rides.StartRide)
}

func (h *RideHandler) ConfirmPickup(c *gin.Context) {
	h.onCurrent(c, h.rides.ConfirmPickupByPassenger)
}

func (h *RideHandler) End(c *gin.Context) {
	h.onCurrent(c, h.rides.EndRide)
}

func (h *RideHandler) ConfirmDropoff(c *gin.Context) {
	h.onCurrent(c, h.rides.ConfirmDropoffByPassenger)
}

func (h *RideHandler) Close(c *gin.Context) {
	h.onCurrent(c, h.rides.CloseRide)
}

type cancelReq struct {
	RideID string `json:"rideId"`
}

// Cancel targets the given ride, or the caller's current one when rideId is
// omitted.
func (h *RideHandler) Cancel(c *gin.Context) {
	var req cancelReq
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, "invalid json")
			return
		}
	}
	if req.RideID == "" {
		h.onCurrent(c, h.rides.CancelRide)
		return
	}
	if !isValidID(req.RideID) {
		writeError(c, http.StatusBadRequest, "invalid ride id")
		return
	}
	cmd := ride.RideCommand{RideID: types.ID(req.RideID), Actor: middleware.CallerActor(c)}
	if err := h.rides.CancelRide(c.Request.Context(), cmd); err != nil {
		writeRideError(c, err)
		return
	}
	writeJSON(c, http.StatusAccepted, acceptedResponse{RideID: cmd.RideID})
}

// onCurrent runs fn against the caller's current ride. With no current ride
// the request is acknowledged and nothing is written.
func (h *RideHandler) onCurrent(c *gin.Context, fn func(context.Context, ride.RideCommand) error) {
	actor := middleware.CallerActor(c)
	current, err := h.current(c.Request.Context(), actor)
	if err != nil {
		writeRideError(c, err)
		return
	}
	if current.IsIdle() {
		writeJSON(c, http.StatusAccepted, acceptedResponse{})
		return
	}
	cmd := ride.RideCommand{RideID: current.ID, Actor: actor}
	if err := fn(c.Request.Context(), cmd); err != nil {
		writeRideError(c, err)
		return
	}
	writeJSON(c, http.StatusAccepted, acceptedResponse{RideID: cmd.RideID})
}

func (h *RideHandler) current(ctx context.Context, actor ride.Actor) (ride.Ride, error) {
	if h.live != nil {
		if r, ok := h.live.Current(actor.ID); ok {
			return r, nil
		}
	}
	return h.rides.Current(ctx, actor)
}

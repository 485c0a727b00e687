// README: Read-only handlers deriving views from the current rides.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"campusride/internal/campus"
	"campusride/internal/http/middleware"
	"campusride/internal/maps"
	"campusride/internal/modules/history"
	"campusride/internal/modules/notify"
	"campusride/internal/modules/presence"
	"campusride/internal/modules/ride"
	"campusride/internal/modules/session"
	"campusride/internal/types"
)

// Inboxes exposes live sessions' pending notifications.
type Inboxes interface {
	Notifications(uid types.ID) []notify.Notification
}

type StatsSource interface {
	Stats() presence.Stats
}

type RouteLookup interface {
	Lookup(ctx context.Context, from, to types.Point) (maps.Route, error)
}

type ViewHandler struct {
	rides   *ride.Service
	inboxes Inboxes
	stats   StatsSource
	catalog *campus.Catalog
	routes  RouteLookup
	cfg     session.Config
	now     func() time.Time
}

type ViewDeps struct {
	Rides   *ride.Service
	Inboxes Inboxes
	Stats   StatsSource
	Catalog *campus.Catalog
	Routes  RouteLookup
	Config  session.Config
}

func NewViewHandler(deps ViewDeps) *ViewHandler {
	return &ViewHandler{
		rides:   deps.Rides,
		inboxes: deps.Inboxes,
		stats:   deps.Stats,
		catalog: deps.Catalog,
		routes:  deps.Routes,
		cfg:     deps.Config,
		now:     time.Now,
	}
}

type currentResp struct {
	session.View
	Notifications []notify.Notification `json:"notifications"`
}

// Current is the one-shot version of the stream's state frame.
func (h *ViewHandler) Current(c *gin.Context) {
	rides, err := h.rides.All(c.Request.Context())
	if err != nil {
		writeRideError(c, err)
		return
	}
	actor := middleware.CallerActor(c)
	view, _ := session.Reduce(actor, rides, nil, h.now(), h.cfg)
	resp := currentResp{View: view, Notifications: []notify.Notification{}}
	if h.inboxes != nil {
		if ns := h.inboxes.Notifications(actor.ID); len(ns) > 0 {
			resp.Notifications = ns
		}
	}
	writeJSON(c, http.StatusOK, resp)
}

func (h *ViewHandler) History(c *gin.Context) {
	rides, err := h.rides.All(c.Request.Context())
	if err != nil {
		writeRideError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"history": history.For(rides, middleware.CallerActor(c), h.cfg.Location)})
}

func (h *ViewHandler) Leaderboard(c *gin.Context) {
	rides, err := h.rides.All(c.Request.Context())
	if err != nil {
		writeRideError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, history.Rank(rides, h.cfg.LeaderboardSize))
}

func (h *ViewHandler) Stats(c *gin.Context) {
	if h.stats != nil {
		writeJSON(c, http.StatusOK, h.stats.Stats())
		return
	}
	rides, err := h.rides.All(c.Request.Context())
	if err != nil {
		writeRideError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, presence.RideStats(rides))
}

func (h *ViewHandler) Locations(c *gin.Context) {
	writeJSON(c, http.StatusOK, gin.H{"locations": h.catalog.All()})
}

// Route resolves the driving route between two catalog locations given as
// the from and to query parameters. Without a Directions client the straight
// line is returned.
func (h *ViewHandler) Route(c *gin.Context) {
	from, ok := h.catalog.Lookup(c.Query("from"))
	if !ok {
		writeError(c, http.StatusBadRequest, "unknown from location")
		return
	}
	to, ok := h.catalog.Lookup(c.Query("to"))
	if !ok {
		writeError(c, http.StatusBadRequest, "unknown to location")
		return
	}
	if h.routes == nil {
		writeJSON(c, http.StatusOK, maps.Straight(from.Position, to.Position))
		return
	}
	route, err := h.routes.Lookup(c.Request.Context(), from.Position, to.Position)
	if errors.Is(err, maps.ErrNoRoute) {
		writeError(c, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(c, http.StatusBadGateway, "route lookup failed")
		return
	}
	writeJSON(c, http.StatusOK, route)
}

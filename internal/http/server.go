// README: API gateway; registers HTTP routes and delegates to module services.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"campusride/internal/campus"
	"campusride/internal/http/handlers"
	"campusride/internal/http/middleware"
	"campusride/internal/infra"
	"campusride/internal/modules/identity"
	"campusride/internal/modules/matching"
	"campusride/internal/modules/presence"
	"campusride/internal/modules/ride"
	"campusride/internal/modules/session"
	"campusride/internal/types"
)

type ServerDeps struct {
	Rides    *ride.Service
	Matching *matching.Service
	Identity *identity.Service
	Sessions *session.Manager
	Monitor  *presence.Monitor
	Catalog  *campus.Catalog
	Verifier infra.TokenVerifier
	// Optional.
	Routes handlers.RouteLookup
	Events handlers.EventLog

	Session        session.Config
	PresenceWindow time.Duration
	PingInterval   time.Duration
	Log            *slog.Logger
}

type Server struct {
	deps ServerDeps
}

func NewServer(deps ServerDeps) *Server {
	if deps.PingInterval <= 0 {
		deps.PingInterval = 30 * time.Second
	}
	return &Server{deps: deps}
}

func (s *Server) Routes() http.Handler {
	d := s.deps
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Recovery(d.Log), middleware.Logging(d.Log))

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Interfaces stay nil when the backing pointer is.
	var live handlers.LiveRides
	var inboxes handlers.Inboxes
	if d.Sessions != nil {
		live, inboxes = d.Sessions, d.Sessions
	}
	var stats handlers.StatsSource
	if d.Monitor != nil {
		stats = d.Monitor
	}

	authH := handlers.NewAuthHandler(d.Identity)
	rideH := handlers.NewRideHandler(d.Rides, d.Matching, live)
	viewH := handlers.NewViewHandler(handlers.ViewDeps{
		Rides:   d.Rides,
		Inboxes: inboxes,
		Stats:   stats,
		Catalog: d.Catalog,
		Routes:  d.Routes,
		Config:  d.Session,
	})
	adminH := handlers.NewAdminHandler(d.Identity, d.Rides, d.Events, d.PresenceWindow)
	streamH := handlers.NewStreamHandler(d.Sessions, d.PingInterval, d.Log)

	api := r.Group("/api")
	api.POST("/auth/register", authH.Register)
	api.POST("/auth/session", authH.Session)
	api.GET("/locations", viewH.Locations)

	user := api.Group("", middleware.Auth(d.Verifier), middleware.Profile(d.Identity))
	user.GET("/me", authH.Me)
	user.PUT("/me/avatar", authH.Avatar)
	user.PUT("/me/device", authH.Device)
	if d.Sessions != nil {
		user.GET("/stream", streamH.Serve)
	}

	user.GET("/rides/current", viewH.Current)
	user.GET("/history", viewH.History)
	user.GET("/leaderboard", viewH.Leaderboard)
	user.GET("/stats", viewH.Stats)
	user.GET("/routes", viewH.Route)

	passenger := user.Group("", middleware.RequireRole(types.RolePassenger))
	passenger.POST("/rides/request", rideH.Request)
	passenger.POST("/rides/:id/join", rideH.Join)
	passenger.POST("/rides/current/confirm-pickup", rideH.ConfirmPickup)
	passenger.POST("/rides/current/confirm-dropoff", rideH.ConfirmDropoff)

	driver := user.Group("", middleware.RequireRole(types.RoleDriver))
	driver.POST("/rides/offer", rideH.Offer)
	driver.POST("/rides/:id/accept", rideH.Accept)
	driver.POST("/rides/:id/decline", rideH.Decline)
	driver.POST("/rides/current/start", rideH.Start)
	driver.POST("/rides/current/end", rideH.End)

	member := user.Group("", middleware.RequireRole(types.RolePassenger, types.RoleDriver))
	member.POST("/rides/cancel", rideH.Cancel)
	member.POST("/rides/current/close", rideH.Close)

	admin := user.Group("/admin", middleware.RequireRole(types.RoleAdmin))
	admin.GET("/users/online", adminH.OnlineUsers)
	admin.GET("/rides", adminH.Rides)
	admin.POST("/rides/:id/cancel", adminH.Cancel)
	admin.GET("/rides/:id/events", adminH.Events)

	return r
}

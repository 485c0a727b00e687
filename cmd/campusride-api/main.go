// README: Entry point; loads config, wires services, starts HTTP server and background loops.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"campusride/internal/campus"
	"campusride/internal/config"
	"campusride/internal/docstore"
	httptransport "campusride/internal/http"
	"campusride/internal/http/handlers"
	"campusride/internal/infra"
	"campusride/internal/logging"
	"campusride/internal/maps"
	"campusride/internal/modules/audit"
	"campusride/internal/modules/identity"
	"campusride/internal/modules/matching"
	"campusride/internal/modules/notify"
	"campusride/internal/modules/presence"
	"campusride/internal/modules/ride"
	"campusride/internal/modules/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}
	log := logging.NewLogger(cfg.Log.Level)
	if err := run(cfg, log); err != nil {
		log.Error("campusride-api exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := infra.NewFirebaseApp(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
	if err != nil {
		return err
	}
	authClient, err := app.Auth(ctx)
	if err != nil {
		return err
	}
	verifier := infra.NewFirebaseVerifier(authClient)

	var store docstore.Store
	switch cfg.Store.Backend {
	case config.StoreFirestore:
		fs, err := infra.NewFirestore(ctx, app)
		if err != nil {
			return err
		}
		defer fs.Close()
		store = docstore.NewFirestore(fs, log)
	default:
		log.Warn("using in-memory store; data is lost on restart")
		store = docstore.NewMemory()
	}

	var sinks []ride.EventSink
	var events handlers.EventLog
	if cfg.DB.DSN != "" {
		pool, err := infra.NewDB(ctx, cfg.DB.DSN)
		if err != nil {
			return err
		}
		defer pool.Close()
		auditStore := audit.NewStore(pool)
		if err := auditStore.EnsureSchema(ctx); err != nil {
			return err
		}
		sinks = append(sinks, auditStore)
		events = auditStore
	}
	if len(cfg.Kafka.Brokers) > 0 {
		writer := infra.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer writer.Close()
		sinks = append(sinks, audit.NewPublisher(writer))
	}

	var limiter identity.Limiter
	var claims notify.Claimer
	if cfg.Redis.Addr != "" {
		rdb, err := infra.NewRedis(ctx, cfg.Redis.Addr)
		if err != nil {
			return err
		}
		defer rdb.Close()
		limiter = identity.NewRedisLimiter(rdb, cfg.Auth.LockoutWindow)
		claims = notify.NewRedisClaimer(rdb, cfg.Notify.Recency)
	}

	var pusher notify.Pusher
	if msg, err := app.Messaging(ctx); err != nil {
		log.Warn("push notifications disabled", "error", err)
	} else {
		pusher = notify.NewFCMPusher(msg)
	}

	var routes handlers.RouteLookup
	if cfg.Maps.APIKey != "" {
		rs, err := maps.NewRouteService(cfg.Maps.APIKey)
		if err != nil {
			return err
		}
		routes = rs
	}

	catalog := campus.Default()
	rideSvc := ride.NewService(store, catalog, log, sinks...)
	matchingSvc := matching.NewService(rideSvc)
	identitySvc := identity.NewService(store, identity.NewFirebaseAccounts(authClient), verifier, limiter, identity.Config{
		MaxFailedAttempts: cfg.Auth.MaxFailedAttempts,
	}, log)

	hub := session.NewHub(rideSvc, log)
	go hub.Run(ctx)
	monitor := presence.NewMonitor(hub, log)
	go monitor.Run(ctx)

	sessionCfg := session.Config{
		Notify:          notify.Config{Recency: cfg.Notify.Recency, Display: cfg.Notify.Display},
		Heartbeat:       cfg.Presence.Heartbeat,
		Location:        cfg.Location(),
		LeaderboardSize: cfg.Leaderboard.Size,
	}
	sessions := session.NewManager(hub, notify.NewDispatcher(claims, pusher, log), identitySvc, sessionCfg, log)
	defer sessions.Close()

	handler := httptransport.NewServer(httptransport.ServerDeps{
		Rides:          rideSvc,
		Matching:       matchingSvc,
		Identity:       identitySvc,
		Sessions:       sessions,
		Monitor:        monitor,
		Catalog:        catalog,
		Verifier:       verifier,
		Routes:         routes,
		Events:         events,
		Session:        sessionCfg,
		PresenceWindow: cfg.Presence.Window,
		Log:            log,
	})

	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: handler.Routes(), ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.HTTP.Addr, "store", cfg.Store.Backend)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

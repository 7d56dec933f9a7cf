package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/samirrijal/carcompanion/internal/adapters/backend"
	"github.com/samirrijal/carcompanion/internal/adapters/http"
	"github.com/samirrijal/carcompanion/internal/adapters/mapbox"
	"github.com/samirrijal/carcompanion/internal/adapters/mapview"
	natsadapter "github.com/samirrijal/carcompanion/internal/adapters/nats"
	"github.com/samirrijal/carcompanion/internal/adapters/postgres"
	"github.com/samirrijal/carcompanion/internal/adapters/temporal"
	"github.com/samirrijal/carcompanion/internal/adapters/valkey"
	"github.com/samirrijal/carcompanion/internal/core/domain"
	"github.com/samirrijal/carcompanion/internal/core/ports"
	"github.com/samirrijal/carcompanion/internal/core/usecases"
	"github.com/samirrijal/carcompanion/internal/pkg/config"
	"github.com/samirrijal/carcompanion/internal/pkg/i18n"
	"github.com/samirrijal/carcompanion/internal/pkg/logging"
	"github.com/samirrijal/carcompanion/internal/pkg/metrics"
	"github.com/samirrijal/carcompanion/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("carcompanion-agent")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logLevel := cfg.Log.Level
	if env := os.Getenv("LOG_LEVEL"); env != "" {
		logLevel = env
	}
	logging.Setup(logLevel, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// NATS carries positions, push events and notices; the agent cannot run without it.
	publisher, err := natsadapter.NewPublisher(cfg.NATS.URL, cfg.NATS.DeviceID)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer publisher.Close()

	feed, err := natsadapter.NewPositionFeed(publisher.Conn(), cfg.NATS.DeviceID)
	if err != nil {
		log.Fatalf("position feed: %v", err)
	}
	defer feed.Close()

	// Database (optional: without it trips live only in memory)
	var db *postgres.DB
	if pool, err := postgres.New(ctx, cfg.Database.DSN()); err != nil {
		slog.Warn("database unavailable, trips will not be archived", "error", err)
	} else {
		db = pool
		defer db.Close()
		go reportPoolStats(ctx, db)
	}

	// Cache (optional)
	var cache *valkey.Cache
	if c, err := valkey.New(cfg.Valkey.Addr, cfg.Valkey.KeyPrefix); err != nil {
		slog.Warn("valkey unavailable, search responses will not be cached", "error", err)
	} else {
		cache = c
		defer cache.Close()
	}

	tr := ports.Translator(i18n.New(cfg.Language))
	notifier := usecases.MultiNotifier{publisher}

	// Map provider
	var tokens ports.TokenSource = mapbox.StaticToken(cfg.Mapbox.StaticToken)
	if cfg.Mapbox.StaticToken == "" {
		session := domain.Session{UserID: cfg.Auth.UserID, AccessToken: cfg.Auth.SessionToken}
		tokens = backend.NewTokenClient(cfg.Mapbox.TokenURL, session, cfg.Mapbox.TokenTTL, nil)
	}
	provider := mapbox.NewClient(cfg.Mapbox.BaseURL, tokens, cfg.Mapbox.RequestTimeout)

	// Map overlay, broadcast to UIs on every change
	scene := mapview.NewScene(domain.GeoPoint{}, 2)
	scene.OnChange(func(s mapview.Snapshot) {
		if err := publisher.PublishScene(s); err != nil {
			slog.Debug("scene publish failed", "error", err)
		}
	})

	// Trip archive: Temporal saga when enabled, otherwise straight to Postgres.
	var archive ports.TripArchive
	var history http.TripHistory
	if db != nil {
		direct := usecases.NewTripArchiveService(postgres.NewTripRepo(db.Pool), postgres.NewOdometerRepo(db.Pool))
		archive = direct
		history = direct
	}
	if cfg.Temporal.Enabled {
		tc, err := temporal.Dial(cfg.Temporal.HostPort, cfg.Temporal.Namespace)
		if err != nil {
			slog.Warn("temporal unavailable, archiving directly", "error", err)
		} else {
			defer tc.Close()
			archive = temporal.NewArchiver(tc, cfg.Temporal.TaskQueue)
		}
	}

	// Core
	positions := usecases.NewPositionService(feed)
	defer positions.Close()

	trackerOpts := []usecases.TrackerOption{
		usecases.WithNoiseFloorKm(cfg.Tracking.NoiseFloorKm),
		usecases.WithPositionOptions(domain.PositionOptions{
			HighAccuracy: cfg.Tracking.HighAccuracy,
			Timeout:      cfg.Tracking.Timeout,
			MaxCacheAge:  cfg.Tracking.MaxCacheAge,
		}),
		usecases.WithVehicleID(cfg.Tracking.VehicleID),
		usecases.WithTripPublisher(publisher),
		usecases.WithTrackerNotifier(notifier, tr),
	}
	if archive != nil {
		trackerOpts = append(trackerOpts, usecases.WithArchive(archive))
	}
	tracker := usecases.NewTripTracker(positions, trackerOpts...)

	searchOpts := []usecases.SearchOption{
		usecases.WithSearchRenderer(scene),
		usecases.WithSearchNotifier(notifier, tr),
		usecases.WithSearchLimits(cfg.Search.RadiusKm, cfg.Search.PerTermLimit, cfg.Search.MaxResults),
	}
	if cache != nil {
		searchOpts = append(searchOpts, usecases.WithSearchCache(cache, cfg.Search.CacheTTLSeconds))
	}
	search := usecases.NewPlaceSearchService(provider, searchOpts...)

	planner := usecases.NewRoutePlanner(provider,
		usecases.WithPlannerRenderer(scene),
		usecases.WithPlannerNotifier(notifier, tr),
	)

	// Push notifications
	push := usecases.NewPushService(natsadapter.NewPushChannel(publisher.Conn(), cfg.NATS.DeviceID), notifier, tr)
	go runPush(ctx, push)

	deps := &http.Dependencies{
		Tracker:   tracker,
		Search:    search,
		Planner:   planner,
		Scene:     scene,
		VehicleID: cfg.Tracking.VehicleID,
		Language:  cfg.Language,
		Auth: http.AuthConfig{
			JWTSecret:         cfg.Auth.JWTSecret,
			MapboxPublicToken: cfg.Auth.MapboxPublicToken,
		},
		Trips: history,
		DB:    db,
		NATS:  publisher.Conn(),
		Cache: cache,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    64 * 1024,
		AppName:      "Car Companion Agent",
	})
	app.Use(recover.New())
	if logLevel == "debug" {
		// Console request lines next to the structured access log.
		app.Use(logger.New())
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173, capacitor://localhost",
		AllowMethods:     "GET,POST,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("agent starting", "addr", addr, "device", cfg.NATS.DeviceID, "vehicle", cfg.Tracking.VehicleID)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// A live session is recorded rather than lost.
	if trip, err := tracker.Stop(shutdownCtx); err != nil {
		slog.Error("stop tracking on shutdown", "error", err)
	} else if trip != nil {
		slog.Info("trip recorded on shutdown", "trip_id", trip.ID, "distance_km", trip.DistanceKm)
	}

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("agent stopped")
}

// runPush registers for push notifications and logs the tagged events.
// Toasts for received messages are produced by the push service itself.
func runPush(ctx context.Context, push *usecases.PushService) {
	sub, err := push.Register(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrPermissionDenied) {
			slog.Info("push notifications disabled by the user")
			return
		}
		slog.Warn("push registration unavailable", "error", err)
		return
	}
	defer sub.Cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			switch ev.Kind {
			case domain.PushRegistered:
				slog.Info("push registered")
			case domain.PushRegistrationFailed:
				slog.Warn("push registration failed", "error", ev.Error)
			case domain.PushMessageReceived:
				slog.Info("push received", "title", ev.Title)
			case domain.PushActionPerformed:
				slog.Info("push action", "action_id", ev.ActionID)
			}
		}
	}
}

func reportPoolStats(ctx context.Context, db *postgres.DB) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.UpdateDBPoolMetrics(db.Pool.Stat())
		}
	}
}

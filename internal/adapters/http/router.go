package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/carcompanion/internal/pkg/metrics"
)

const requestTimeout = 15 * time.Second

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip)
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed, // Balance speed vs compression ratio
	}))

	// Request ID
	app.Use(requestid.New())

	// Propagate request ID into slog context
	app.Use(RequestIDLogMiddleware())

	// Access logs (structured HTTP request logging)
	app.Use(AccessLogMiddleware())

	// Rate limiting: 300 requests per minute per IP. The UI polls /v1/tracking.
	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
		SkipFailedRequests: false,
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	// ETag for conditional caching
	app.Use(ETagMiddleware())

	// Default Cache-Control headers
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout, fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	// Legacy path of the hosted token function, kept for older app builds
	legacyTokenPath := "/functions/v1/get-mapbox-token"
	app.Use(DeprecationMiddleware([]DeprecatedRoute{{
		Path:        legacyTokenPath,
		SunsetDate:  time.Date(2027, time.June, 30, 0, 0, 0, 0, time.UTC),
		Alternative: "/v1/map-token",
	}}))

	// REST API v1, 15s per-request timeout
	v1 := app.Group("/v1")
	v1.Get("/tracking", TrackingStateHandler(deps))
	v1.Post("/tracking/start", timeout.NewWithContext(StartTrackingHandler(deps), requestTimeout))
	v1.Post("/tracking/stop", timeout.NewWithContext(StopTrackingHandler(deps), requestTimeout))
	v1.Get("/tracking/history", TripHistoryHandler(deps))
	v1.Delete("/tracking/history", ResetHistoryHandler(deps))

	v1.Get("/languages", LanguagesHandler())
	v1.Get("/categories", CategoriesHandler(deps))
	v1.Get("/places/nearby", timeout.NewWithContext(NearbyPlacesHandler(deps), requestTimeout))
	v1.Get("/places", DisplayedPlacesHandler(deps))

	v1.Post("/routes", timeout.NewWithContext(PlanRouteHandler(deps), requestTimeout))
	v1.Delete("/routes", ClearRouteHandler(deps))
	v1.Get("/routes/active", ActiveRouteHandler(deps))
	v1.Get("/routes/active.geojson", ActiveRouteGeoJSONHandler(deps))
	v1.Get("/routes/active.kml", ActiveRouteKMLHandler(deps))

	v1.Get("/map", MapSceneHandler(deps))

	// Authenticated
	auth := JWTMiddleware(deps.Auth.JWTSecret)
	v1.Get("/map-token", auth, MapTokenHandler(deps))
	v1.Get("/trips", auth, timeout.NewWithContext(ListTripsHandler(deps), requestTimeout))
	app.Get(legacyTokenPath, auth, MapTokenHandler(deps))

	// GraphQL
	app.Post("/graphql", GraphQLHandler(deps))

	// API documentation (Swagger UI)
	SetupDocs(app, DefaultSpecPath)

	// WebSocket
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
}

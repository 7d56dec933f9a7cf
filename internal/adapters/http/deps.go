package http

import (
	"context"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/carcompanion/internal/adapters/mapview"
	"github.com/samirrijal/carcompanion/internal/adapters/postgres"
	"github.com/samirrijal/carcompanion/internal/adapters/valkey"
	"github.com/samirrijal/carcompanion/internal/core/domain"
	"github.com/samirrijal/carcompanion/internal/core/usecases"
)

// TripHistory is the persisted trip archive as seen by the API.
type TripHistory interface {
	List(ctx context.Context, vehicleID string, offset, limit int) ([]domain.Trip, int, error)
	Odometer(ctx context.Context, vehicleID string) (float64, error)
}

// AuthConfig holds the secrets used by the authenticated endpoints.
type AuthConfig struct {
	JWTSecret         string
	MapboxPublicToken string
}

// Dependencies holds everything the HTTP handlers need.
type Dependencies struct {
	Tracker *usecases.TripTracker
	Search  *usecases.PlaceSearchService
	Planner *usecases.RoutePlanner
	Scene   *mapview.Scene
	Trips   TripHistory

	VehicleID string
	Language  string
	Auth      AuthConfig

	DB    *postgres.DB
	NATS  *nats.Conn
	Cache *valkey.Cache
}

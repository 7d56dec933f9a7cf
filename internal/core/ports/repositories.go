package ports

import (
	"context"

	"github.com/samirrijal/carcompanion/internal/core/domain"
)

// TripRepository persists finished trips.
type TripRepository interface {
	Insert(ctx context.Context, trip *domain.Trip) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, vehicleID string, offset, limit int) ([]domain.Trip, int, error)
}

// OdometerRepository keeps the lifetime mileage of a vehicle.
type OdometerRepository interface {
	AddDistance(ctx context.Context, vehicleID string, km float64) (float64, error)
	Get(ctx context.Context, vehicleID string) (float64, error)
}

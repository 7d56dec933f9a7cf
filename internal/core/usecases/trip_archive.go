package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/samirrijal/carcompanion/internal/core/domain"
	"github.com/samirrijal/carcompanion/internal/core/ports"
)

// TripArchiveService persists finished trips and keeps the vehicle odometer.
// It implements ports.TripArchive for in-process archiving.
type TripArchiveService struct {
	trips    ports.TripRepository
	odometer ports.OdometerRepository
}

// NewTripArchiveService creates a new TripArchiveService.
func NewTripArchiveService(trips ports.TripRepository, odometer ports.OdometerRepository) *TripArchiveService {
	return &TripArchiveService{trips: trips, odometer: odometer}
}

// Archive stores the trip and adds its distance to the odometer. If the
// odometer update fails the stored trip is removed again.
func (s *TripArchiveService) Archive(ctx context.Context, trip domain.Trip) error {
	if trip.ID == "" {
		return fmt.Errorf("trip id must not be empty")
	}
	if trip.DistanceKm <= 0 {
		return fmt.Errorf("trip %s has no distance", trip.ID)
	}
	if err := s.trips.Insert(ctx, &trip); err != nil {
		if errors.Is(err, domain.ErrTripExists) {
			// Already counted on the odometer by whoever stored it.
			return nil
		}
		return fmt.Errorf("insert trip %s: %w", trip.ID, err)
	}
	if s.odometer == nil {
		return nil
	}
	if _, err := s.odometer.AddDistance(ctx, trip.VehicleID, trip.DistanceKm); err != nil {
		if delErr := s.trips.Delete(ctx, trip.ID); delErr != nil {
			slog.Error("trip rollback failed", "trip_id", trip.ID, "error", delErr)
		}
		return fmt.Errorf("update odometer: %w", err)
	}
	return nil
}

// List returns persisted trips of a vehicle, newest first, plus the total count.
func (s *TripArchiveService) List(ctx context.Context, vehicleID string, offset, limit int) ([]domain.Trip, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.trips.List(ctx, vehicleID, offset, limit)
}

// Odometer returns the lifetime mileage of a vehicle in kilometers.
func (s *TripArchiveService) Odometer(ctx context.Context, vehicleID string) (float64, error) {
	if s.odometer == nil {
		return 0, nil
	}
	return s.odometer.Get(ctx, vehicleID)
}

package workflows

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/samirrijal/carcompanion/internal/core/domain"
	"github.com/samirrijal/carcompanion/internal/core/ports"
)

// TripArchiveActivities holds the activity implementations for the trip archive workflow.
type TripArchiveActivities struct {
	Trips      ports.TripRepository
	Odometer   ports.OdometerRepository
	Notifier   ports.Notifier
	Translator ports.Translator
}

// SaveTrip persists a recorded trip and reports whether it was new.
// A trip stored earlier (by the agent or a previous run) returns false.
func (a *TripArchiveActivities) SaveTrip(ctx context.Context, trip domain.Trip) (bool, error) {
	if trip.ID == "" || trip.DistanceKm <= 0 {
		return false, fmt.Errorf("refusing to archive trip %q with %.3f km", trip.ID, trip.DistanceKm)
	}
	if err := a.Trips.Insert(ctx, &trip); err != nil {
		if errors.Is(err, domain.ErrTripExists) {
			return false, nil
		}
		return false, fmt.Errorf("insert trip %s: %w", trip.ID, err)
	}
	return true, nil
}

// UpdateOdometer adds the trip distance and returns the new lifetime mileage.
func (a *TripArchiveActivities) UpdateOdometer(ctx context.Context, vehicleID string, km float64) (float64, error) {
	total, err := a.Odometer.AddDistance(ctx, vehicleID, km)
	if err != nil {
		return 0, fmt.Errorf("add %.3f km to %s: %w", km, vehicleID, err)
	}
	return total, nil
}

// NotifyTripSaved sends the "trip saved" notice with the lifetime mileage.
func (a *TripArchiveActivities) NotifyTripSaved(ctx context.Context, trip domain.Trip, totalKm float64) error {
	if a.Notifier == nil {
		slog.Info("trip archived (no notifier)", "trip_id", trip.ID, "total_km", totalKm)
		return nil
	}
	t := a.Translator
	if t == nil {
		t = func(key string, args ...any) string { return key }
	}
	return a.Notifier.Notify(ctx, domain.Notice{
		Level:   domain.NoticeSuccess,
		Title:   t("tracking.saved.title"),
		Message: t("tracking.archived.body", trip.DistanceKm, totalKm),
		At:      time.Now(),
	})
}

// DeleteTrip removes a stored trip (saga compensation / rollback).
func (a *TripArchiveActivities) DeleteTrip(ctx context.Context, tripID string) error {
	if err := a.Trips.Delete(ctx, tripID); err != nil {
		return fmt.Errorf("delete trip %s: %w", tripID, err)
	}
	slog.Info("trip deleted (saga compensation)", "trip_id", tripID)
	return nil
}

package postgres

import (
	"context"
	"fmt"

	"github.com/samirrijal/carcompanion/internal/core/domain"
)

// TripRepo implements ports.TripRepository.
type TripRepo struct {
	q Querier
}

func NewTripRepo(q Querier) *TripRepo {
	return &TripRepo{q: q}
}

// Insert stores a finished trip. Inserting an id that is already stored
// changes nothing and returns domain.ErrTripExists.
func (r *TripRepo) Insert(ctx context.Context, trip *domain.Trip) error {
	tag, err := r.q.Exec(ctx, `
		INSERT INTO trips (id, vehicle_id, distance_km, started_at, ended_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`, trip.ID, trip.VehicleID, trip.DistanceKm, trip.StartedAt, trip.EndedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTripExists
	}
	return nil
}

func (r *TripRepo) Delete(ctx context.Context, id string) error {
	_, err := r.q.Exec(ctx, `DELETE FROM trips WHERE id = $1`, id)
	return err
}

// List returns a page of a vehicle's trips, newest first, and the total count.
func (r *TripRepo) List(ctx context.Context, vehicleID string, offset, limit int) ([]domain.Trip, int, error) {
	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM trips WHERE vehicle_id = $1`, vehicleID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count trips: %w", err)
	}

	rows, err := r.q.Query(ctx, `
		SELECT id, vehicle_id, distance_km, started_at, ended_at
		FROM trips
		WHERE vehicle_id = $1
		ORDER BY ended_at DESC
		OFFSET $2 LIMIT $3
	`, vehicleID, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	trips := make([]domain.Trip, 0, limit)
	for rows.Next() {
		var t domain.Trip
		if err := rows.Scan(&t.ID, &t.VehicleID, &t.DistanceKm, &t.StartedAt, &t.EndedAt); err != nil {
			return nil, 0, err
		}
		trips = append(trips, t)
	}
	return trips, total, rows.Err()
}

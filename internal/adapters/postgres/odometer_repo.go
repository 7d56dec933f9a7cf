package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// OdometerRepo implements ports.OdometerRepository on the vehicles table.
type OdometerRepo struct {
	q Querier
}

func NewOdometerRepo(q Querier) *OdometerRepo {
	return &OdometerRepo{q: q}
}

// AddDistance adds km to the vehicle's lifetime mileage, creating the
// vehicle row on first use, and returns the new total.
func (r *OdometerRepo) AddDistance(ctx context.Context, vehicleID string, km float64) (float64, error) {
	var total float64
	err := r.q.QueryRow(ctx, `
		INSERT INTO vehicles (id, total_mileage_km, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (id) DO UPDATE
		SET total_mileage_km = vehicles.total_mileage_km + EXCLUDED.total_mileage_km,
		    updated_at = NOW()
		RETURNING total_mileage_km
	`, vehicleID, km).Scan(&total)
	return total, err
}

// Get returns the lifetime mileage; an unknown vehicle has driven 0 km.
func (r *OdometerRepo) Get(ctx context.Context, vehicleID string) (float64, error) {
	var total float64
	err := r.q.QueryRow(ctx, `SELECT total_mileage_km FROM vehicles WHERE id = $1`, vehicleID).Scan(&total)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return total, err
}

package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/carcompanion/internal/core/domain"
)

// TaskQueue is the default queue served by the archiver worker.
const TaskQueue = "trip-archive"

// TripArchiveInput is the input for the trip archive workflow.
type TripArchiveInput struct {
	Trip domain.Trip
}

// TripArchiveResult reports the odometer after the trip was added.
type TripArchiveResult struct {
	TripID          string
	TotalMileageKm  float64
	AlreadyArchived bool
}

// TripArchiveWorkflow stores a recorded trip, adds its distance to the
// vehicle odometer and notifies the driver. If the odometer update fails
// the stored trip is deleted again (saga compensation). A failed
// notification does not undo the archive.
func TripArchiveWorkflow(ctx workflow.Context, input TripArchiveInput) (*TripArchiveResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting trip archive workflow", "tripID", input.Trip.ID, "distanceKm", input.Trip.DistanceKm)

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	// Step 1: Persist the trip
	var stored bool
	if err := workflow.ExecuteActivity(ctx, "SaveTrip", input.Trip).Get(ctx, &stored); err != nil {
		return nil, err
	}
	if !stored {
		logger.Info("Trip already archived", "tripID", input.Trip.ID)
		return &TripArchiveResult{TripID: input.Trip.ID, AlreadyArchived: true}, nil
	}

	// Step 2: Update the odometer
	var total float64
	err := workflow.ExecuteActivity(ctx, "UpdateOdometer", input.Trip.VehicleID, input.Trip.DistanceKm).Get(ctx, &total)
	if err != nil {
		logger.Warn("odometer update failed, compensating", "error", err)
		// Compensate: remove the trip
		_ = workflow.ExecuteActivity(ctx, "DeleteTrip", input.Trip.ID).Get(ctx, nil)
		return nil, err
	}

	// Step 3: Tell the driver
	if err := workflow.ExecuteActivity(ctx, "NotifyTripSaved", input.Trip, total).Get(ctx, nil); err != nil {
		logger.Warn("trip notification failed", "error", err)
	}

	logger.Info("Trip archived", "tripID", input.Trip.ID, "totalMileageKm", total)
	return &TripArchiveResult{TripID: input.Trip.ID, TotalMileageKm: total}, nil
}

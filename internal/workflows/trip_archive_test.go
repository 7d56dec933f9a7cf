package workflows

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"

	"github.com/samirrijal/carcompanion/internal/core/domain"
)

func newEnv(t *testing.T) *testsuite.TestWorkflowEnvironment {
	t.Helper()
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(TripArchiveWorkflow)
	env.RegisterActivity(&TripArchiveActivities{})
	return env
}

var archivedTrip = domain.Trip{
	ID:         "7d0c1c4e-5a8e-4a55-9b0c-7f7f5d6f8e10",
	VehicleID:  "car-1",
	DistanceKm: 18.4,
	StartedAt:  time.Date(2026, 4, 2, 7, 30, 0, 0, time.UTC),
	EndedAt:    time.Date(2026, 4, 2, 8, 5, 0, 0, time.UTC),
}

func TestTripArchiveWorkflow_Success(t *testing.T) {
	env := newEnv(t)
	env.OnActivity("SaveTrip", mock.Anything, archivedTrip).Return(true, nil).Once()
	env.OnActivity("UpdateOdometer", mock.Anything, "car-1", 18.4).Return(1018.4, nil).Once()
	env.OnActivity("NotifyTripSaved", mock.Anything, archivedTrip, 1018.4).Return(nil).Once()

	env.ExecuteWorkflow(TripArchiveWorkflow, TripArchiveInput{Trip: archivedTrip})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result TripArchiveResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.Equal(t, archivedTrip.ID, result.TripID)
	assert.Equal(t, 1018.4, result.TotalMileageKm)
	env.AssertExpectations(t)
}

func TestTripArchiveWorkflow_OdometerFailureCompensates(t *testing.T) {
	env := newEnv(t)
	env.OnActivity("SaveTrip", mock.Anything, archivedTrip).Return(true, nil).Once()
	env.OnActivity("UpdateOdometer", mock.Anything, "car-1", 18.4).Return(0.0, errors.New("deadlock detected"))
	env.OnActivity("DeleteTrip", mock.Anything, archivedTrip.ID).Return(nil).Once()

	env.ExecuteWorkflow(TripArchiveWorkflow, TripArchiveInput{Trip: archivedTrip})

	require.True(t, env.IsWorkflowCompleted())
	require.Error(t, env.GetWorkflowError())
	env.AssertExpectations(t)
	env.AssertNotCalled(t, "NotifyTripSaved", mock.Anything, mock.Anything, mock.Anything)
}

func TestTripArchiveWorkflow_SaveFailureStops(t *testing.T) {
	env := newEnv(t)
	env.OnActivity("SaveTrip", mock.Anything, archivedTrip).Return(false, errors.New("db down"))

	env.ExecuteWorkflow(TripArchiveWorkflow, TripArchiveInput{Trip: archivedTrip})

	require.True(t, env.IsWorkflowCompleted())
	require.Error(t, env.GetWorkflowError())
	env.AssertNotCalled(t, "UpdateOdometer", mock.Anything, mock.Anything, mock.Anything)
	env.AssertNotCalled(t, "DeleteTrip", mock.Anything, mock.Anything)
}

func TestTripArchiveWorkflow_NotifyFailureKeepsTrip(t *testing.T) {
	env := newEnv(t)
	env.OnActivity("SaveTrip", mock.Anything, archivedTrip).Return(true, nil).Once()
	env.OnActivity("UpdateOdometer", mock.Anything, "car-1", 18.4).Return(1018.4, nil).Once()
	env.OnActivity("NotifyTripSaved", mock.Anything, archivedTrip, 1018.4).Return(errors.New("nats down"))

	env.ExecuteWorkflow(TripArchiveWorkflow, TripArchiveInput{Trip: archivedTrip})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
	env.AssertNotCalled(t, "DeleteTrip", mock.Anything, mock.Anything)
}

func TestTripArchiveWorkflow_AlreadyArchivedSkipsOdometer(t *testing.T) {
	env := newEnv(t)
	env.OnActivity("SaveTrip", mock.Anything, archivedTrip).Return(false, nil).Once()

	env.ExecuteWorkflow(TripArchiveWorkflow, TripArchiveInput{Trip: archivedTrip})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result TripArchiveResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.True(t, result.AlreadyArchived)
	env.AssertNotCalled(t, "UpdateOdometer", mock.Anything, mock.Anything, mock.Anything)
	env.AssertNotCalled(t, "NotifyTripSaved", mock.Anything, mock.Anything, mock.Anything)
}

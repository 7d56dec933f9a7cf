package temporal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	"github.com/samirrijal/carcompanion/internal/core/domain"
	"github.com/samirrijal/carcompanion/internal/workflows"
)

// Starter is the part of client.Client used by Archiver.
type Starter interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error)
}

// Archiver implements ports.TripArchive by starting TripArchiveWorkflow.
// It returns once the workflow is accepted; the worker does the rest.
type Archiver struct {
	client    Starter
	taskQueue string
}

func NewArchiver(c Starter, taskQueue string) *Archiver {
	if taskQueue == "" {
		taskQueue = workflows.TaskQueue
	}
	return &Archiver{client: c, taskQueue: taskQueue}
}

// Archive starts one workflow per trip id; a duplicate start is ignored.
func (a *Archiver) Archive(ctx context.Context, trip domain.Trip) error {
	opts := client.StartWorkflowOptions{
		ID:                    "trip-archive-" + trip.ID,
		TaskQueue:             a.taskQueue,
		WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
	}
	run, err := a.client.ExecuteWorkflow(ctx, opts, workflows.TripArchiveWorkflow, workflows.TripArchiveInput{Trip: trip})
	var started *serviceerror.WorkflowExecutionAlreadyStarted
	if errors.As(err, &started) {
		slog.Debug("trip already archived", "trip_id", trip.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("start trip archive workflow: %w", err)
	}
	slog.Debug("trip archive started", "workflow_id", run.GetID(), "run_id", run.GetRunID())
	return nil
}

// Dial connects to the Temporal frontend.
func Dial(hostPort, namespace string) (client.Client, error) {
	return client.Dial(client.Options{
		HostPort:  hostPort,
		Namespace: namespace,
	})
}

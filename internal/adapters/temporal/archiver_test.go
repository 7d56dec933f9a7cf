package temporal

import (
	"context"
	"errors"
	"testing"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	"github.com/samirrijal/carcompanion/internal/core/domain"
	"github.com/samirrijal/carcompanion/internal/workflows"
)

type fakeRun struct {
	client.WorkflowRun
	id string
}

func (r fakeRun) GetID() string    { return r.id }
func (r fakeRun) GetRunID() string { return "run-1" }

type fakeStarter struct {
	opts client.StartWorkflowOptions
	args []interface{}
	err  error
}

func (f *fakeStarter) ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error) {
	f.opts = options
	f.args = args
	if f.err != nil {
		return nil, f.err
	}
	return fakeRun{id: options.ID}, nil
}

func TestArchiver_StartsWorkflowPerTrip(t *testing.T) {
	starter := &fakeStarter{}
	archiver := NewArchiver(starter, "")

	trip := domain.Trip{ID: "t-1", VehicleID: "car-1", DistanceKm: 3}
	if err := archiver.Archive(context.Background(), trip); err != nil {
		t.Fatalf("archive: %v", err)
	}
	if starter.opts.ID != "trip-archive-t-1" {
		t.Errorf("unexpected workflow id %s", starter.opts.ID)
	}
	if starter.opts.TaskQueue != workflows.TaskQueue {
		t.Errorf("expected default task queue, got %s", starter.opts.TaskQueue)
	}
	if len(starter.args) != 1 {
		t.Fatalf("expected one workflow argument")
	}
	in, ok := starter.args[0].(workflows.TripArchiveInput)
	if !ok || in.Trip.ID != "t-1" {
		t.Errorf("unexpected workflow input %+v", starter.args[0])
	}
}

func TestArchiver_StartFailure(t *testing.T) {
	archiver := NewArchiver(&fakeStarter{err: errors.New("frontend unavailable")}, "custom")
	if err := archiver.Archive(context.Background(), domain.Trip{ID: "t-2", DistanceKm: 1}); err == nil {
		t.Fatal("expected error")
	}
}

func TestArchiver_DuplicateIsIgnored(t *testing.T) {
	dup := serviceerror.NewWorkflowExecutionAlreadyStarted("already started", "", "run-0")
	archiver := NewArchiver(&fakeStarter{err: dup}, "")
	if err := archiver.Archive(context.Background(), domain.Trip{ID: "t-3", DistanceKm: 2}); err != nil {
		t.Fatalf("duplicate start must not fail: %v", err)
	}
}

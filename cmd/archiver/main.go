package main

import (
	"context"
	"log"
	"log/slog"

	"go.temporal.io/sdk/worker"

	natsadapter "github.com/samirrijal/carcompanion/internal/adapters/nats"
	"github.com/samirrijal/carcompanion/internal/adapters/postgres"
	"github.com/samirrijal/carcompanion/internal/adapters/temporal"
	"github.com/samirrijal/carcompanion/internal/core/ports"
	"github.com/samirrijal/carcompanion/internal/pkg/config"
	"github.com/samirrijal/carcompanion/internal/pkg/i18n"
	"github.com/samirrijal/carcompanion/internal/pkg/logging"
	"github.com/samirrijal/carcompanion/internal/workflows"
)

func main() {
	cfg, err := config.Load("carcompanion-archiver")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	publisher, err := natsadapter.NewPublisher(cfg.NATS.URL, cfg.NATS.DeviceID)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer publisher.Close()

	c, err := temporal.Dial(cfg.Temporal.HostPort, cfg.Temporal.Namespace)
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	queue := cfg.Temporal.TaskQueue
	if queue == "" {
		queue = workflows.TaskQueue
	}

	w := worker.New(c, queue, worker.Options{})
	w.RegisterWorkflow(workflows.TripArchiveWorkflow)
	w.RegisterActivity(&workflows.TripArchiveActivities{
		Trips:      postgres.NewTripRepo(db.Pool),
		Odometer:   postgres.NewOdometerRepo(db.Pool),
		Notifier:   publisher,
		Translator: ports.Translator(i18n.New(cfg.Language)),
	})

	// Every trip an agent publishes is archived once; a repeated start for the
	// same trip ID is ignored by the archiver.
	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats subscriber: %v", err)
	}
	defer sub.Close()

	archiver := temporal.NewArchiver(c, queue)
	if err := sub.SubscribeTrips(ctx, archiver.Archive); err != nil {
		log.Fatalf("subscribe trips: %v", err)
	}

	slog.Info("archiver worker started", "task_queue", queue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
	slog.Info("archiver stopped")
}

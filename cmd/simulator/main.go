package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samirrijal/carcompanion/internal/adapters/backend"
	"github.com/samirrijal/carcompanion/internal/adapters/mapbox"
	natsadapter "github.com/samirrijal/carcompanion/internal/adapters/nats"
	"github.com/samirrijal/carcompanion/internal/core/domain"
	"github.com/samirrijal/carcompanion/internal/core/ports"
	"github.com/samirrijal/carcompanion/internal/pkg/config"
	"github.com/samirrijal/carcompanion/internal/pkg/geospatial"
	"github.com/samirrijal/carcompanion/internal/pkg/logging"
)

func main() {
	from := flag.String("from", "43.2630,-2.9350", "route source as lat,lon")
	to := flag.String("to", "43.3183,-1.9812", "route target as lat,lon")
	interval := flag.Duration("interval", time.Second, "time between samples")
	speed := flag.Float64("speed", 50, "simulated speed in km/h")
	jitter := flag.Float64("jitter", 5, "position noise in meters")
	loop := flag.Bool("loop", false, "drive the route again when it ends")
	flag.Parse()

	cfg, err := config.Load("carcompanion-simulator")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	src, err := parseCoord(*from)
	if err != nil {
		log.Fatalf("invalid source: %v", err)
	}
	dst, err := parseCoord(*to)
	if err != nil {
		log.Fatalf("invalid target: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var tokens ports.TokenSource = mapbox.StaticToken(cfg.Mapbox.StaticToken)
	if cfg.Mapbox.StaticToken == "" {
		session := domain.Session{UserID: cfg.Auth.UserID, AccessToken: cfg.Auth.SessionToken}
		tokens = backend.NewTokenClient(cfg.Mapbox.TokenURL, session, cfg.Mapbox.TokenTTL, nil)
	}
	directions := mapbox.NewClient(cfg.Mapbox.BaseURL, tokens, cfg.Mapbox.RequestTimeout)

	resp, err := directions.Directions(ctx, src, dst)
	if err != nil {
		log.Fatalf("route fetch failed: %v", err)
	}
	if len(resp.Routes) == 0 {
		log.Fatalf("no route between %s and %s", *from, *to)
	}

	stepKm := *speed * interval.Hours()
	points := resample(resp.Routes[0].Path, stepKm)
	if len(points) == 0 {
		log.Fatal("route has no geometry")
	}

	publisher, err := natsadapter.NewPublisher(cfg.NATS.URL, cfg.NATS.DeviceID)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer publisher.Close()

	slog.Info("simulator starting",
		"device", cfg.NATS.DeviceID,
		"points", len(points),
		"distance_km", resp.Routes[0].DistanceMeters/1000,
		"path_km", geospatial.PathLengthKm(resp.Routes[0].Path),
		"interval", interval.String(),
	)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	noise := newJitter(*jitter)
	for {
		for i, pt := range points {
			select {
			case <-ctx.Done():
				slog.Info("simulator stopped")
				return
			case <-ticker.C:
			}

			sample := domain.PositionSample{
				Location:       noise.apply(pt),
				AccuracyMeters: *jitter + 3,
				CapturedAt:     time.Now().UTC(),
			}
			if err := publisher.PublishPosition(ctx, sample); err != nil {
				slog.Warn("position publish failed", "point", i, "error", err)
				continue
			}
			slog.Debug("position published", "point", i+1, "lat", sample.Location.Lat, "lon", sample.Location.Lon)
		}

		slog.Info("route completed")
		if !*loop {
			return
		}
	}
}

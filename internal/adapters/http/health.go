package http

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

// HealthHandler returns a basic liveness check.
func HealthHandler(deps *Dependencies) fiber.Handler {
	startedAt := time.Now()

	return func(c *fiber.Ctx) error {
		body := fiber.Map{
			"status":  "healthy",
			"uptime":  time.Since(startedAt).String(),
			"version": Version,
		}
		if deps.Tracker != nil {
			body["tracking"] = deps.Tracker.State()
		}
		return c.JSON(body)
	}
}

// ReadyHandler probes the database, NATS and the cache. The database and
// cache may be absent; NATS carries positions and notices and is required.
// A configured dependency that fails its probe makes the agent not ready.
func ReadyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
		defer cancel()

		var natsProbe func(context.Context) error
		if deps.NATS != nil {
			natsProbe = func(context.Context) error {
				if !deps.NATS.IsConnected() {
					return errors.New("disconnected")
				}
				return nil
			}
		}

		probes := []struct {
			name     string
			required bool
			probe    func(context.Context) error
		}{
			{"database", false, nil},
			{"nats", true, natsProbe},
			{"cache", false, nil},
		}
		if deps.DB != nil {
			probes[0].probe = deps.DB.Ping
		}
		if deps.Cache != nil {
			probes[2].probe = deps.Cache.Ping
		}

		checks := make(map[string]string, len(probes))
		ready := true
		for _, p := range probes {
			switch {
			case p.probe == nil:
				checks[p.name] = "not configured"
				if p.required {
					ready = false
				}
			default:
				if err := p.probe(ctx); err != nil {
					checks[p.name] = "error: " + err.Error()
					ready = false
				} else {
					checks[p.name] = "ok"
				}
			}
		}

		status, code := "ready", fiber.StatusOK
		if !ready {
			status, code = "not ready", fiber.StatusServiceUnavailable
		}
		return c.Status(code).JSON(fiber.Map{
			"status": status,
			"checks": checks,
		})
	}
}

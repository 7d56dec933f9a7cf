package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control on GET responses the handler left alone.
// Tracking, places and routes change with every sample or search, so the
// default for the API is no-cache.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() != fiber.MethodGet {
			return err
		}
		if existing := c.Get(fiber.HeaderCacheControl); existing != "" {
			return err
		}
		if string(c.Response().Header.Peek(fiber.HeaderCacheControl)) != "" {
			return err
		}

		path := c.Path()
		var ttl string

		switch {
		case path == "/v1/health" || path == "/v1/ready":
			ttl = "public, max-age=10"
		case path == "/metrics":
			ttl = "no-cache"
		case path == "/graphql":
			ttl = "private, max-age=0"
		case strings.HasPrefix(path, "/docs"):
			ttl = "public, max-age=3600"
		case path == "/v1/map-token" || strings.HasPrefix(path, "/v1/trips"):
			ttl = "private, no-store"
		case strings.HasPrefix(path, "/v1/"):
			ttl = "no-cache"
		}

		if ttl != "" {
			c.Set(fiber.HeaderCacheControl, ttl)
		}

		return err
	}
}

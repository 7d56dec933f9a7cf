package http

import "github.com/gofiber/fiber/v2"

// MapTokenHandler hands the public map token to an authenticated client.
// It must be mounted behind JWTMiddleware.
func MapTokenHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Auth.MapboxPublicToken == "" {
			LoggerFromCtx(c.UserContext()).Error("map token requested but not configured")
			return errInternal(c, "Mapbox token not configured")
		}
		c.Set(fiber.HeaderCacheControl, "private, no-store")
		return c.JSON(fiber.Map{"token": deps.Auth.MapboxPublicToken})
	}
}

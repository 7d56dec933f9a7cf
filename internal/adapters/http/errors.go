package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/carcompanion/internal/core/domain"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // bad_request, not_found, superseded, upstream_error, ...
	Message   string `json:"message"` // Human-readable message
	RequestID string `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusBadRequest, "bad_request", msg)
}

func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusNotFound, "not_found", msg)
}

func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusInternalServerError, "internal_error", msg)
}

func errUnauthorized(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusUnauthorized, "unauthorized", msg)
}

// errorMapping pairs a domain sentinel with its HTTP rendering. Order matters:
// the first match wins.
var errorMapping = []struct {
	target error
	status int
	code   string
}{
	{domain.ErrSuperseded, fiber.StatusConflict, "superseded"},
	{domain.ErrPermissionDenied, fiber.StatusForbidden, "permission_denied"},
	{domain.ErrUnauthorized, fiber.StatusUnauthorized, "unauthorized"},
	{domain.ErrTimeout, fiber.StatusGatewayTimeout, "timeout"},
	{domain.ErrUnavailable, fiber.StatusServiceUnavailable, "unavailable"},
	{domain.ErrNoRouteFound, fiber.StatusNotFound, "no_route"},
	{domain.ErrPlaceNotFound, fiber.StatusNotFound, "not_found"},
	{domain.ErrRequestFailed, fiber.StatusBadGateway, "upstream_error"},
	{domain.ErrInvalidCoordinate, fiber.StatusBadRequest, "bad_request"},
	{domain.ErrUnknownCategory, fiber.StatusBadRequest, "bad_request"},
}

// errFromDomain renders err according to its domain classification.
// Unclassified errors become 500s.
func errFromDomain(c *fiber.Ctx, err error) error {
	for _, m := range errorMapping {
		if errors.Is(err, m.target) {
			return newError(c, m.status, m.code, err.Error())
		}
	}
	LoggerFromCtx(c.UserContext()).Error("unclassified handler error", "path", c.Path(), "error", err)
	return errInternal(c, err.Error())
}

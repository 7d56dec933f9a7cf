package http

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const userIDLocal = "user_id"

// Claims is the payload of the bearer tokens issued to companion apps.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

var errInvalidToken = errors.New("token invalid")

// JWTMiddleware validates HS256 bearer tokens and stores the user id in locals.
func JWTMiddleware(secret string) fiber.Handler {
	secretBytes := []byte(secret)
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return errUnauthorized(c, "No authorization header")
		}

		userID, err := parseBearer(header, secretBytes)
		if err != nil {
			LoggerFromCtx(c.UserContext()).Debug("bearer rejected", "error", err)
			return errUnauthorized(c, "Unauthorized")
		}

		c.Locals(userIDLocal, userID)
		return c.Next()
	}
}

func parseBearer(header string, secret []byte) (string, error) {
	raw := bearerFromHeader(header)
	if raw == "" || len(secret) == 0 {
		return "", errInvalidToken
	}

	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(_ *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return "", errInvalidToken
	}
	if claims.UserID != "" {
		return claims.UserID, nil
	}
	if claims.Subject != "" {
		return claims.Subject, nil
	}
	return "", errInvalidToken
}

func bearerFromHeader(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// UserIDFromCtx returns the authenticated user id, or "".
func UserIDFromCtx(c *fiber.Ctx) string {
	id, _ := c.Locals(userIDLocal).(string)
	return id
}

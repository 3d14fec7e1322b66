package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// UserIDLocalKey is the key under which the resolved identity is stored in
// Fiber's context locals. Empty or absent means anonymous.
const UserIDLocalKey = "user_id"

// UserID returns the identity resolved for the request, or "" for anonymous
// callers. Services receive only this opaque id, never the token.
func UserID(c *fiber.Ctx) string {
	if v, ok := c.Locals(UserIDLocalKey).(string); ok {
		return v
	}
	return ""
}

func resolveBearer(c *fiber.Ctx, secret []byte) (string, error) {
	auth := c.Get(fiber.HeaderAuthorization)
	if auth == "" {
		return "", nil
	}
	raw, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok {
		return "", fiber.ErrUnauthorized
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	})
	if err != nil || claims.Subject == "" {
		return "", fiber.ErrUnauthorized
	}
	return claims.Subject, nil
}

// RequireAuth rejects requests without a valid bearer token and stores the
// resolved user id in context locals.
func RequireAuth(secret []byte) fiber.Handler {
	return func(c *fiber.Ctx) error {
		uid, err := resolveBearer(c, secret)
		if err != nil {
			return err
		}
		if uid == "" {
			return fiber.ErrUnauthorized
		}
		c.Locals(UserIDLocalKey, uid)
		return c.Next()
	}
}

// OptionalAuth resolves an identity when a valid token is present but lets
// anonymous requests through. Invalid tokens are still rejected rather than
// silently downgraded to anonymous.
func OptionalAuth(secret []byte) fiber.Handler {
	return func(c *fiber.Ctx) error {
		uid, err := resolveBearer(c, secret)
		if err != nil {
			return err
		}
		if uid != "" {
			c.Locals(UserIDLocalKey, uid)
		}
		return c.Next()
	}
}

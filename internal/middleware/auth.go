// Package middleware provides logging, tracing, rate limiting and authentication middleware.
package middleware

import (
	"context"
	"errors"
	"strings"

	"campusfeed/internal/auth"
	"campusfeed/internal/models"

	"github.com/gofiber/fiber/v2"
)

// AccessVerifier validates access tokens.
type AccessVerifier interface {
	VerifyAccess(token string) (*auth.Claims, error)
}

// AuthRequired rejects requests without a valid bearer access token and stores the
// caller's user id in c.Locals("userID") and in the request context.
func AuthRequired(verifier AccessVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := bearerToken(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return models.RespondWithError(c, models.NewUnauthorizedError(err.Error()))
		}
		return authenticate(c, verifier, token)
	}
}

// WebSocketAuthRequired accepts the access token from the token query parameter,
// since browsers cannot set headers on websocket upgrades, and falls back to the header.
func WebSocketAuthRequired(verifier AccessVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Query("token")
		if token == "" {
			var err error
			token, err = bearerToken(c.Get(fiber.HeaderAuthorization))
			if err != nil {
				return models.RespondWithError(c, models.NewUnauthorizedError("token required"))
			}
		}
		return authenticate(c, verifier, token)
	}
}

func authenticate(c *fiber.Ctx, verifier AccessVerifier, token string) error {
	claims, err := verifier.VerifyAccess(token)
	if err != nil {
		msg := "invalid token"
		if errors.Is(err, auth.ErrExpiredToken) {
			msg = "token expired"
		}
		return models.RespondWithError(c, models.NewUnauthorizedError(msg))
	}

	c.Locals("userID", claims.UserID)
	c.Locals("claims", claims)
	c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, claims.UserID))
	return c.Next()
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", errors.New("authorization header required")
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", errors.New("invalid authorization header format")
	}
	return strings.TrimSpace(token), nil
}

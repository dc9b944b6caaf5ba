// Package runtime carries cross-cutting HTTP runtime helpers (token auth).
package runtime

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/geoscope-ai/geoscope/config"
)

type subjectKey struct{}

// LoadJWTSecret resolves the shared JWT secret from config or the
// GEOSCOPE_JWT_SECRET environment override applied at load time.
func LoadJWTSecret(cfg *config.Config) ([]byte, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if cfg.Server.JWTSecret == "" {
		return nil, errors.New("jwt secret not configured (server.jwt_secret)")
	}
	return []byte(cfg.Server.JWTSecret), nil
}

// SignJWT issues a signed token with the provided subject and TTL.
func SignJWT(subject string, secret []byte, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub": subject,
		"exp": time.Now().Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// EchoAuthMiddleware validates bearer tokens from the Authorization header
// and stashes the subject in the request context.
func EchoAuthMiddleware(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tok := extractToken(c)
			if tok == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing token")
			}
			parsed, err := jwt.Parse(tok, func(t *jwt.Token) (interface{}, error) { return secret, nil })
			if err != nil || !parsed.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}
			if claims, ok := parsed.Claims.(jwt.MapClaims); ok {
				if sub, ok := claims["sub"].(string); ok {
					reqCtx := context.WithValue(c.Request().Context(), subjectKey{}, sub)
					c.SetRequest(c.Request().WithContext(reqCtx))
				}
			}
			return next(c)
		}
	}
}

// Subject returns the authenticated subject stored by the middleware.
func Subject(ctx context.Context) (string, bool) {
	sub, ok := ctx.Value(subjectKey{}).(string)
	return sub, ok
}

func extractToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return ""
}

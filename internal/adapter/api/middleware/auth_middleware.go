package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"pasarchat/pkg/errors"
	"pasarchat/pkg/response"
)

// TokenVerifier turns a bearer token into a user id.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (string, error)
}

type uidKey struct{}

// WithUserID stores the authenticated user id on ctx.
func WithUserID(ctx context.Context, uid string) context.Context {
	return context.WithValue(ctx, uidKey{}, uid)
}

// UserIDFromContext resolves the authenticated user id, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	uid, ok := ctx.Value(uidKey{}).(string)
	return uid, ok && uid != ""
}

type AuthMiddleware struct {
	verifier TokenVerifier
}

// NewAuthMiddleware authenticates bearer tokens with verifier.
func NewAuthMiddleware(verifier TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
	}
}

// Authenticate rejects requests without a valid token.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, err := bearerToken(c)
		if err != nil {
			return response.Error(c, err)
		}
		if token == "" {
			return response.Error(c, errors.Unauthorized("Authorization header is required", nil))
		}

		uid, err := m.verifier.VerifyToken(c.Request().Context(), token)
		if err != nil {
			return response.Error(c, errors.Unauthorized("Invalid or expired token", err))
		}

		setUser(c, uid)
		return next(c)
	}
}

// Identify resolves the user when a valid token is present and lets the
// request through either way.
func (m *AuthMiddleware) Identify(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, err := bearerToken(c)
		if err == nil && token != "" {
			if uid, err := m.verifier.VerifyToken(c.Request().Context(), token); err == nil {
				setUser(c, uid)
			}
		}
		return next(c)
	}
}

func setUser(c echo.Context, uid string) {
	c.Set("uid", uid)
	c.SetRequest(c.Request().WithContext(WithUserID(c.Request().Context(), uid)))
}

// bearerToken reads the Authorization header, or the token query parameter
// browsers use for websocket upgrades.
func bearerToken(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return c.QueryParam("token"), nil
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", errors.Unauthorized("Invalid authorization format", nil)
	}
	return parts[1], nil
}

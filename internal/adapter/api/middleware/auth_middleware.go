package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"sulestate/internal/infrastructure/firebase"
	"sulestate/pkg/errors"
	"sulestate/pkg/response"
)

const identityKey = "identity"

// TokenVerifier verifies an admin console bearer token.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, idToken string) (*firebase.Identity, error)
}

type AuthMiddleware struct {
	verifier TokenVerifier
}

func NewAuthMiddleware(verifier TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
	}
}

func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			return response.Error(c, errors.Unauthorized("Authorization header is required", nil))
		}

		idToken, ok := BearerToken(authHeader)
		if !ok {
			return response.Error(c, errors.Unauthorized("Invalid authorization format", nil))
		}

		identity, err := m.verifier.VerifyToken(c.Request().Context(), idToken)
		if err != nil {
			return response.Error(c, err)
		}

		c.Set("uid", identity.UID)
		c.Set(identityKey, identity)
		return next(c)
	}
}

// VerifyToken checks a token outside the middleware chain, for the websocket
// upgrade where browsers cannot set headers.
func (m *AuthMiddleware) VerifyToken(ctx context.Context, token string) (*firebase.Identity, error) {
	return m.verifier.VerifyToken(ctx, token)
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" value.
func BearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// IdentityFrom returns the identity set by Authenticate.
func IdentityFrom(c echo.Context) (*firebase.Identity, bool) {
	identity, ok := c.Get(identityKey).(*firebase.Identity)
	return identity, ok && identity != nil
}

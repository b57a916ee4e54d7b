package middleware

import (
	"github.com/labstack/echo/v4"

	"sulestate/pkg/errors"
	"sulestate/pkg/logger"
	"sulestate/pkg/response"
)

// AdminOnly must run after Authenticate. Callers without the admin flag are
// rejected with 403.
func AdminOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		identity, ok := IdentityFrom(c)
		if !ok {
			return response.Error(c, errors.Unauthorized("Authentication required", nil))
		}

		if !identity.Admin {
			logger.Warn("Rejected non-admin caller %s on %s", identity.UID, c.Path())
			return response.Error(c, errors.Forbidden("Admin privileges required", nil))
		}

		return next(c)
	}
}

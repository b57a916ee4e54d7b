package router

import (
	"github.com/labstack/echo/v4"

	"sulestate/internal/adapter/api/handler"
)

func SetupDevRouter(e *echo.Echo, devTokenHandler *handler.DevTokenHandler) {
	if devTokenHandler == nil {
		return
	}

	e.GET("/_dev/token/admin", devTokenHandler.GenerateAdminToken)
}

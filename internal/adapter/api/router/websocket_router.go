package router

import (
	"github.com/labstack/echo/v4"

	"sulestate/internal/adapter/api/handler"
)

// Authentication happens inside the handler since browsers cannot set
// headers on the upgrade request.
func SetupWebSocketRouter(e *echo.Echo, wsHandler *handler.WebSocketHandler) {
	e.GET("/ws", wsHandler.HandleWebSocket)
}

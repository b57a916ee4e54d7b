package router

import (
	"github.com/labstack/echo/v4"

	"sulestate/internal/adapter/api/handler"
	"sulestate/internal/adapter/api/middleware"
	"sulestate/internal/infrastructure/ratelimit"
)

func Setup(e *echo.Echo, handlers *handler.Handlers, authMiddleware *middleware.AuthMiddleware, limiter ratelimit.Limiter) {
	SetupChatRouter(e, handlers.Conversation, handlers.Chat, limiter)
	SetupAdminRouter(e, handlers.Admin, handlers.Conversation, authMiddleware)
	SetupFileRouter(e, handlers.File, authMiddleware)
	SetupWebSocketRouter(e, handlers.WebSocket)
	SetupHealthRouter(e, handlers.Health)
	SetupDevRouter(e, handlers.DevToken)
}

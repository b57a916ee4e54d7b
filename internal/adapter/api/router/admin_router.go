package router

import (
	"github.com/labstack/echo/v4"

	"sulestate/internal/adapter/api/handler"
	"sulestate/internal/adapter/api/middleware"
)

// SetupAdminRouter mounts presence, settings and conversation management.
// Reads used by the visitor widget stay public.
func SetupAdminRouter(e *echo.Echo, adminHandler *handler.AdminHandler, conversationHandler *handler.ConversationHandler, authMiddleware *middleware.AuthMiddleware) {
	admin := []echo.MiddlewareFunc{authMiddleware.Authenticate, middleware.AdminOnly}

	e.GET("/admin-status", adminHandler.GetStatus)
	e.POST("/admin-status", adminHandler.UpdateStatus, admin...)

	e.GET("/admin-settings", adminHandler.GetSettings)
	e.POST("/admin-settings", adminHandler.UpdateSettings, admin...)

	e.GET("/conversations", conversationHandler.ListConversations, admin...)
	e.DELETE("/delete-conversation", conversationHandler.DeleteConversation, admin...)
}

package router

import (
	"github.com/labstack/echo/v4"

	"sulestate/internal/adapter/api/handler"
	"sulestate/internal/adapter/api/middleware"
	"sulestate/internal/infrastructure/ratelimit"
)

// SetupChatRouter mounts the public endpoints used by the visitor widget.
func SetupChatRouter(e *echo.Echo, conversationHandler *handler.ConversationHandler, chatHandler *handler.ChatHandler, limiter ratelimit.Limiter) {
	e.POST("/create-conversation", conversationHandler.CreateConversation,
		middleware.RateLimit(limiter, ratelimit.ActionCreateConversation))
	e.POST("/save-message", conversationHandler.SaveMessage,
		middleware.RateLimit(limiter, ratelimit.ActionSendMessage))
	e.GET("/messages", conversationHandler.GetMessages)
	e.GET("/session", conversationHandler.GetSession)

	// Completion endpoints are billed upstream
	e.POST("/chat", chatHandler.Chat, middleware.RateLimit(limiter, ratelimit.ActionChat))
	e.POST("/visitor-message", chatHandler.VisitorMessage, middleware.RateLimit(limiter, ratelimit.ActionChat))
}

package handler

import (
	"sulestate/internal/adapter/api/middleware"
	ws "sulestate/internal/infrastructure/websocket"
	"sulestate/internal/usecase"
)

// Handlers groups every HTTP handler the routers mount.
type Handlers struct {
	Conversation *ConversationHandler
	Chat         *ChatHandler
	Admin        *AdminHandler
	File         *FileHandler
	WebSocket    *WebSocketHandler
	Health       *HealthHandler

	// DevToken is nil unless the development token verifier is in use.
	DevToken *DevTokenHandler
}

type Dependencies struct {
	Conversations  *usecase.ConversationUseCase
	Assistant      *usecase.AssistantUseCase
	Presence       *usecase.PresenceUseCase
	Settings       *usecase.SettingsUseCase
	Files          *usecase.FileUseCase
	WSManager      *ws.Manager
	AuthMiddleware *middleware.AuthMiddleware
	AllowedOrigins []string
	Environment    string
	DevTokens      bool
}

func Setup(deps Dependencies) *Handlers {
	handlers := &Handlers{
		Conversation: NewConversationHandler(deps.Conversations, deps.AuthMiddleware),
		Chat:         NewChatHandler(deps.Assistant),
		Admin:        NewAdminHandler(deps.Presence, deps.Settings),
		File:         NewFileHandler(deps.Files),
		WebSocket:    NewWebSocketHandler(deps.WSManager, deps.AuthMiddleware, deps.Conversations, deps.AllowedOrigins),
		Health:       NewHealthHandler(deps.Environment),
	}
	if deps.DevTokens {
		handlers.DevToken = NewDevTokenHandler()
	}
	return handlers
}

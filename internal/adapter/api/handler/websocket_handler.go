package handler

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"sulestate/internal/adapter/api/middleware"
	ws "sulestate/internal/infrastructure/websocket"
	"sulestate/internal/usecase"
	"sulestate/pkg/errors"
	"sulestate/pkg/logger"
	"sulestate/pkg/response"
)

// WebSocketHandler upgrades event stream subscriptions. A visitor passes its
// session token and hears one conversation; an admin passes an ID token and
// hears all of them.
type WebSocketHandler struct {
	wsManager           *ws.Manager
	authMiddleware      *middleware.AuthMiddleware
	conversationUseCase *usecase.ConversationUseCase
	upgrader            gorillaws.Upgrader
}

func NewWebSocketHandler(
	wsManager *ws.Manager,
	authMiddleware *middleware.AuthMiddleware,
	conversationUseCase *usecase.ConversationUseCase,
	allowedOrigins []string,
) *WebSocketHandler {
	return &WebSocketHandler{
		wsManager:           wsManager,
		authMiddleware:      authMiddleware,
		conversationUseCase: conversationUseCase,
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, candidate := range allowed {
			if candidate == "*" || strings.EqualFold(candidate, origin) {
				return true
			}
		}
		return false
	}
}

func (h *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	ctx := c.Request().Context()

	var conversationID, clientID string
	if token := c.QueryParam("token"); token != "" {
		session, err := h.conversationUseCase.ResolveSession(ctx, token)
		if err != nil {
			return response.Error(c, err)
		}
		conversationID = session.ConversationID
		clientID = "visitor-" + session.ConversationID
	} else {
		adminToken := c.QueryParam("admin_token")
		if bearer, ok := middleware.BearerToken(c.Request().Header.Get("Authorization")); ok {
			adminToken = bearer
		}
		if adminToken == "" {
			return response.Error(c, errors.Unauthorized("Authentication required", nil))
		}
		identity, err := h.authMiddleware.VerifyToken(ctx, adminToken)
		if err != nil {
			return response.Error(c, err)
		}
		if !identity.Admin {
			return response.Error(c, errors.Forbidden("Admin privileges required", nil))
		}
		clientID = "admin-" + identity.UID
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Warn("WebSocket upgrade failed for %s: %v", clientID, err)
		return nil
	}

	client := ws.NewClient(clientID+"-"+uuid.NewString()[:8], conversationID, conn)
	if !h.wsManager.Connect(client) {
		_ = conn.Close()
		return nil
	}

	go client.ReadPump(h.wsManager)
	go client.WritePump()

	return nil
}

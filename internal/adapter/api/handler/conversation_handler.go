package handler

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"sulestate/internal/adapter/api/middleware"
	"sulestate/internal/domain/entity"
	"sulestate/internal/usecase"
	"sulestate/pkg/errors"
	"sulestate/pkg/response"
	"sulestate/pkg/utils"
)

type ConversationHandler struct {
	conversationUseCase *usecase.ConversationUseCase
	authMiddleware      *middleware.AuthMiddleware
}

func NewConversationHandler(conversationUseCase *usecase.ConversationUseCase, authMiddleware *middleware.AuthMiddleware) *ConversationHandler {
	return &ConversationHandler{
		conversationUseCase: conversationUseCase,
		authMiddleware:      authMiddleware,
	}
}

type createConversationRequest struct {
	UserName  string `json:"userName" validate:"notblank,max=100"`
	UserEmail string `json:"userEmail" validate:"visitoremail,max=254"`
}

type saveMessageRequest struct {
	ConversationID string `json:"conversationId" validate:"notblank"`
	Message        string `json:"message" validate:"notblank,max=4000"`
	Sender         string `json:"sender" validate:"required,oneof=user admin ai"`
	UserName       string `json:"userName,omitempty"`
	UserEmail      string `json:"userEmail,omitempty"`
}

type saveMessageResponse struct {
	MessageID string    `json:"messageId"`
	Timestamp time.Time `json:"timestamp"`
}

type deleteConversationResponse struct {
	ConversationID string `json:"conversationId"`
	Deleted        bool   `json:"deleted"`
}

// CreateConversation opens a conversation and returns the visitor session for it.
func (h *ConversationHandler) CreateConversation(c echo.Context) error {
	var req createConversationRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	result, err := h.conversationUseCase.CreateConversation(c.Request().Context(), usecase.CreateConversationInput{
		UserName:  req.UserName,
		UserEmail: req.UserEmail,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, result.Session)
}

// SaveMessage appends a message. The route is public for visitors and the
// assistant relay, but sender "admin" needs a verified admin bearer token.
func (h *ConversationHandler) SaveMessage(c echo.Context) error {
	var req saveMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	if req.Sender == entity.SenderAdmin {
		if err := h.verifyAdmin(c); err != nil {
			return response.Error(c, err)
		}
	}

	message, err := h.conversationUseCase.AppendMessage(c.Request().Context(), usecase.AppendMessageInput{
		ConversationID: req.ConversationID,
		Text:           req.Message,
		Sender:         req.Sender,
		UserName:       req.UserName,
		UserEmail:      req.UserEmail,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, saveMessageResponse{
		MessageID: message.ID,
		Timestamp: message.Timestamp,
	})
}

func (h *ConversationHandler) verifyAdmin(c echo.Context) error {
	token, ok := middleware.BearerToken(c.Request().Header.Get("Authorization"))
	if !ok {
		return errors.Unauthorized("Admin replies require authentication", nil)
	}
	identity, err := h.authMiddleware.VerifyToken(c.Request().Context(), token)
	if err != nil {
		return err
	}
	if !identity.Admin {
		return errors.Forbidden("Admin privileges required", nil)
	}
	return nil
}

// GetMessages returns up to limit messages (default and maximum 200), oldest first.
func (h *ConversationHandler) GetMessages(c echo.Context) error {
	conversationID := strings.TrimSpace(c.QueryParam("conversationId"))
	if conversationID == "" {
		return response.Error(c, errors.Validation("conversationId", "conversationId is required"))
	}

	limit := utils.GetLimitParam(c, usecase.MessageHistoryLimit, usecase.MessageHistoryLimit)

	messages, err := h.conversationUseCase.ListMessages(c.Request().Context(), conversationID, limit)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, messages)
}

func (h *ConversationHandler) DeleteConversation(c echo.Context) error {
	conversationID := strings.TrimSpace(c.QueryParam("conversationId"))
	if conversationID == "" {
		return response.Error(c, errors.Validation("conversationId", "conversationId is required"))
	}

	if err := h.conversationUseCase.DeleteConversation(c.Request().Context(), conversationID); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, deleteConversationResponse{
		ConversationID: conversationID,
		Deleted:        true,
	})
}

func (h *ConversationHandler) ListConversations(c echo.Context) error {
	conversations, err := h.conversationUseCase.ListConversations(c.Request().Context())
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, conversations)
}

// GetSession validates a visitor token from the Authorization header or the
// token query parameter and returns the conversation it is bound to.
func (h *ConversationHandler) GetSession(c echo.Context) error {
	token := c.QueryParam("token")
	if bearer, ok := middleware.BearerToken(c.Request().Header.Get("Authorization")); ok {
		token = bearer
	}
	if token == "" {
		return response.Error(c, errors.Unauthorized("Session token is required", nil))
	}

	session, err := h.conversationUseCase.ResolveSession(c.Request().Context(), token)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, session)
}

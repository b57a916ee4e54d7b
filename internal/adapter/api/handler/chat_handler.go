package handler

import (
	"github.com/labstack/echo/v4"

	"sulestate/internal/domain/entity"
	"sulestate/internal/usecase"
	"sulestate/pkg/errors"
	"sulestate/pkg/response"
)

// ChatHandler serves the assistant endpoints used while no admin is online.
type ChatHandler struct {
	assistantUseCase *usecase.AssistantUseCase
}

func NewChatHandler(assistantUseCase *usecase.AssistantUseCase) *ChatHandler {
	return &ChatHandler{
		assistantUseCase: assistantUseCase,
	}
}

type chatRequest struct {
	Message             string            `json:"message"`
	ConversationHistory []entity.ChatTurn `json:"conversationHistory"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

type visitorMessageRequest struct {
	ConversationID string `json:"conversationId" validate:"notblank"`
	Message        string `json:"message" validate:"notblank,max=4000"`
	UserName       string `json:"userName,omitempty"`
	UserEmail      string `json:"userEmail,omitempty"`
}

// Chat proxies one visitor message and its recent history to the completion service.
func (h *ChatHandler) Chat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}

	reply, err := h.assistantUseCase.Reply(c.Request().Context(), req.Message, req.ConversationHistory)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, chatResponse{Reply: reply})
}

// VisitorMessage stores a visitor message and answers it server-side when the
// admin is offline.
func (h *ChatHandler) VisitorMessage(c echo.Context) error {
	var req visitorMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	result, err := h.assistantUseCase.RespondIfOffline(c.Request().Context(), usecase.VisitorMessageInput{
		ConversationID: req.ConversationID,
		Text:           req.Message,
		UserName:       req.UserName,
		UserEmail:      req.UserEmail,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, result)
}

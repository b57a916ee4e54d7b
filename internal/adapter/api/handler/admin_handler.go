package handler

import (
	"github.com/labstack/echo/v4"

	"sulestate/internal/usecase"
	"sulestate/pkg/errors"
	"sulestate/pkg/response"
)

// AdminHandler serves the admin presence heartbeat and the display settings.
type AdminHandler struct {
	presenceUseCase *usecase.PresenceUseCase
	settingsUseCase *usecase.SettingsUseCase
}

func NewAdminHandler(presenceUseCase *usecase.PresenceUseCase, settingsUseCase *usecase.SettingsUseCase) *AdminHandler {
	return &AdminHandler{
		presenceUseCase: presenceUseCase,
		settingsUseCase: settingsUseCase,
	}
}

type adminStatusRequest struct {
	IsOnline *bool `json:"isOnline" validate:"required"`
}

type adminSettingsRequest struct {
	AvatarURL   string `json:"avatarUrl" validate:"omitempty,url"`
	DisplayName string `json:"displayName" validate:"max=100"`
	Title       string `json:"title" validate:"max=100"`
}

func (h *AdminHandler) UpdateStatus(c echo.Context) error {
	var req adminStatusRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	status, err := h.presenceUseCase.RecordHeartbeat(c.Request().Context(), *req.IsOnline)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, status)
}

func (h *AdminHandler) GetStatus(c echo.Context) error {
	status, err := h.presenceUseCase.Status(c.Request().Context())
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, status)
}

func (h *AdminHandler) GetSettings(c echo.Context) error {
	settings, err := h.settingsUseCase.GetSettings(c.Request().Context())
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, settings)
}

func (h *AdminHandler) UpdateSettings(c echo.Context) error {
	var req adminSettingsRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	settings, err := h.settingsUseCase.UpdateSettings(c.Request().Context(), usecase.UpdateSettingsInput{
		AvatarURL:   req.AvatarURL,
		DisplayName: req.DisplayName,
		Title:       req.Title,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, settings)
}

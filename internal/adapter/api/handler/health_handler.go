package handler

import (
	"time"

	"github.com/labstack/echo/v4"

	"sulestate/pkg/response"
)

type HealthHandler struct {
	environment string
	startedAt   time.Time
}

func NewHealthHandler(environment string) *HealthHandler {
	return &HealthHandler{
		environment: environment,
		startedAt:   time.Now(),
	}
}

type healthResponse struct {
	Status      string `json:"status"`
	Environment string `json:"environment"`
	Uptime      string `json:"uptime"`
}

func (h *HealthHandler) CheckHealth(c echo.Context) error {
	return response.Success(c, healthResponse{
		Status:      "ok",
		Environment: h.environment,
		Uptime:      time.Since(h.startedAt).Round(time.Second).String(),
	})
}

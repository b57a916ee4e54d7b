package handler

import (
	"strings"

	"github.com/labstack/echo/v4"

	"sulestate/pkg/response"
)

// DevTokenHandler hands out admin tokens the development verifier accepts.
// It is only mounted when authentication is disabled.
type DevTokenHandler struct{}

func NewDevTokenHandler() *DevTokenHandler {
	return &DevTokenHandler{}
}

// GenerateAdminToken returns "dev:<uid>" for ?uid=, defaulting to dev-admin.
func (h *DevTokenHandler) GenerateAdminToken(c echo.Context) error {
	uid := strings.TrimSpace(c.QueryParam("uid"))
	if uid == "" {
		uid = "dev-admin"
	}

	return response.Success(c, map[string]interface{}{
		"token": "dev:" + uid,
		"uid":   uid,
		"admin": true,
	})
}

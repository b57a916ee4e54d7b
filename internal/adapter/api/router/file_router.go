package router

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"

	"sulestate/internal/adapter/api/handler"
	"sulestate/internal/adapter/api/middleware"
)

// Multipart framing on top of the 5MB file limit.
const uploadBodyLimit = "6M"

func SetupFileRouter(e *echo.Echo, fileHandler *handler.FileHandler, authMiddleware *middleware.AuthMiddleware) {
	e.POST("/upload-avatar", fileHandler.UploadAvatar,
		echomiddleware.BodyLimit(uploadBodyLimit),
		authMiddleware.Authenticate,
		middleware.AdminOnly,
	)
}

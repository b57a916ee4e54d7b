package handler

import (
	"github.com/labstack/echo/v4"

	"sulestate/internal/usecase"
	"sulestate/pkg/errors"
	"sulestate/pkg/response"
)

type FileHandler struct {
	fileUseCase *usecase.FileUseCase
}

func NewFileHandler(fileUseCase *usecase.FileUseCase) *FileHandler {
	return &FileHandler{
		fileUseCase: fileUseCase,
	}
}

// UploadAvatar accepts a multipart "file" field holding the admin avatar image.
func (h *FileHandler) UploadAvatar(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return response.Error(c, errors.Validation("file", "No file uploaded"))
	}

	src, err := file.Open()
	if err != nil {
		return response.Error(c, errors.BadRequest("Unable to read file", err))
	}
	defer src.Close()

	uploadedBy, _ := c.Get("uid").(string)

	metadata, err := h.fileUseCase.UploadAvatar(c.Request().Context(), usecase.UploadAvatarInput{
		Filename:   file.Filename,
		Size:       file.Size,
		UploadedBy: uploadedBy,
		Content:    src,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, metadata)
}

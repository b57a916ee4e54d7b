package usecase

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"sulestate/internal/domain/entity"
	"sulestate/internal/domain/repository"
	"sulestate/internal/domain/service"
	"sulestate/pkg/errors"
	"sulestate/pkg/logger"
)

const (
	MaxAvatarSize = 5 * 1024 * 1024
	avatarFolder  = "avatars"
	avatarPurpose = "avatar"
)

type FileUseCase struct {
	storage    service.ObjectStorage
	uploadRepo repository.FileMetadataRepository
}

// NewFileUseCase accepts a nil storage; uploads then report NOT_CONFIGURED.
func NewFileUseCase(storage service.ObjectStorage, uploadRepo repository.FileMetadataRepository) *FileUseCase {
	return &FileUseCase{
		storage:    storage,
		uploadRepo: uploadRepo,
	}
}

type UploadAvatarInput struct {
	Filename   string
	Size       int64
	UploadedBy string
	Content    io.Reader
}

// UploadAvatar sniffs the content rather than trusting the declared type. An
// object whose upload record cannot be written is removed again.
func (uc *FileUseCase) UploadAvatar(ctx context.Context, input UploadAvatarInput) (*entity.FileMetadata, error) {
	if uc.storage == nil {
		return nil, errors.NotConfigured("Object storage is not configured")
	}
	if input.Size > MaxAvatarSize {
		return nil, errors.Validation("file", fmt.Sprintf("File size exceeds maximum allowed (%dMB)", MaxAvatarSize/(1024*1024)))
	}

	data, err := io.ReadAll(io.LimitReader(input.Content, MaxAvatarSize+1))
	if err != nil {
		return nil, errors.BadRequest("Unable to read file", err)
	}
	if len(data) == 0 {
		return nil, errors.Validation("file", "File is empty")
	}
	if len(data) > MaxAvatarSize {
		return nil, errors.Validation("file", fmt.Sprintf("File size exceeds maximum allowed (%dMB)", MaxAvatarSize/(1024*1024)))
	}

	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		logger.Warn("Rejected avatar upload %s with detected type %s", input.Filename, mtype.String())
		return nil, errors.Validation("file", "Only image files are allowed")
	}
	contentType := strings.SplitN(mtype.String(), ";", 2)[0]

	result, err := uc.storage.Upload(ctx, bytes.NewReader(data), int64(len(data)), contentType, avatarFolder)
	if err != nil {
		logger.Error("Avatar upload failed: %v", err)
		return nil, err
	}

	metadata := &entity.FileMetadata{
		URL:        result.URL,
		ObjectName: result.ObjectName,
		Purpose:    avatarPurpose,
		UploadedBy: input.UploadedBy,
		Filename:   input.Filename,
		FileType:   contentType,
		FileSize:   result.Size,
	}
	if err := uc.uploadRepo.Create(ctx, metadata); err != nil {
		logger.Error("Failed to record avatar upload %s: %v", result.ObjectName, err)
		if delErr := uc.storage.Delete(ctx, result.ObjectName); delErr != nil {
			logger.Warn("Avatar object %s left without a record: %v", result.ObjectName, delErr)
		}
		return nil, err
	}

	return metadata, nil
}

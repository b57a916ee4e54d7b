package service

import (
	"context"
	"io"
)

type UploadResult struct {
	URL        string
	ObjectName string
	Size       int64
}

// ObjectStorage stores publicly readable objects such as admin avatars.
type ObjectStorage interface {
	Upload(ctx context.Context, file io.Reader, size int64, contentType, folder string) (*UploadResult, error)
	Delete(ctx context.Context, objectName string) error
	Close() error
}

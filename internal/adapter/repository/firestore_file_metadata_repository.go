package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"

	"sulestate/internal/domain/entity"
	"sulestate/internal/domain/repository"
	"sulestate/pkg/errors"
)

const uploadsCollection = "uploads"

type firestoreFileMetadataRepository struct {
	client *firestore.Client
}

func NewFirestoreFileMetadataRepository(client *firestore.Client) repository.FileMetadataRepository {
	return &firestoreFileMetadataRepository{
		client: client,
	}
}

func (r *firestoreFileMetadataRepository) Create(ctx context.Context, metadata *entity.FileMetadata) error {
	if metadata.ID == "" {
		metadata.ID = uuid.New().String()
	}
	if metadata.CreatedAt.IsZero() {
		metadata.CreatedAt = time.Now()
	}

	_, err := r.client.Collection(uploadsCollection).Doc(metadata.ID).Set(ctx, metadata)
	if err != nil {
		return errors.UpstreamUnavailable("Failed to create file metadata", err)
	}
	return nil
}

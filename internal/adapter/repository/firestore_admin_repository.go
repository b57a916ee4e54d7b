package repository

import (
	"context"

	"cloud.google.com/go/firestore"

	"sulestate/internal/domain/entity"
	"sulestate/internal/domain/repository"
	"sulestate/pkg/errors"
)

const (
	adminCollection  = "admin"
	statusDocument   = "status"
	settingsDocument = "chatSettings"
)

type firestorePresenceRepository struct {
	client *firestore.Client
}

func NewFirestorePresenceRepository(client *firestore.Client) repository.PresenceRepository {
	return &firestorePresenceRepository{client: client}
}

func (r *firestorePresenceRepository) Upsert(ctx context.Context, isOnline bool) (*entity.Presence, error) {
	wr, err := r.client.Collection(adminCollection).Doc(statusDocument).Set(ctx, map[string]interface{}{
		"isOnline": isOnline,
		"lastSeen": firestore.ServerTimestamp,
	}, firestore.MergeAll)
	if err != nil {
		return nil, errors.UpstreamUnavailable("Failed to update admin status", err)
	}

	return &entity.Presence{IsOnline: isOnline, LastSeen: wr.UpdateTime}, nil
}

func (r *firestorePresenceRepository) Get(ctx context.Context) (*entity.Presence, error) {
	doc, err := r.client.Collection(adminCollection).Doc(statusDocument).Get(ctx)
	if err != nil {
		return nil, storeError("Admin status", "Failed to get admin status", err)
	}

	var presence entity.Presence
	if err := doc.DataTo(&presence); err != nil {
		return nil, errors.Internal("Failed to parse admin status", err)
	}
	return &presence, nil
}

type firestoreSettingsRepository struct {
	client *firestore.Client
}

func NewFirestoreSettingsRepository(client *firestore.Client) repository.SettingsRepository {
	return &firestoreSettingsRepository{client: client}
}

func (r *firestoreSettingsRepository) Get(ctx context.Context) (*entity.ChatSettings, error) {
	doc, err := r.client.Collection(adminCollection).Doc(settingsDocument).Get(ctx)
	if err != nil {
		return nil, storeError("Chat settings", "Failed to get chat settings", err)
	}

	var settings entity.ChatSettings
	if err := doc.DataTo(&settings); err != nil {
		return nil, errors.Internal("Failed to parse chat settings", err)
	}
	return &settings, nil
}

func (r *firestoreSettingsRepository) Save(ctx context.Context, settings *entity.ChatSettings) error {
	wr, err := r.client.Collection(adminCollection).Doc(settingsDocument).Set(ctx, map[string]interface{}{
		"avatarUrl":   settings.AvatarURL,
		"displayName": settings.DisplayName,
		"title":       settings.Title,
		"updatedAt":   firestore.ServerTimestamp,
	}, firestore.MergeAll)
	if err != nil {
		return errors.UpstreamUnavailable("Failed to save chat settings", err)
	}

	settings.UpdatedAt = wr.UpdateTime
	return nil
}

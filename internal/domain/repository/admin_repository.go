package repository

import (
	"context"

	"sulestate/internal/domain/entity"
)

type PresenceRepository interface {
	// Upsert writes the heartbeat and returns the stored record with the server's lastSeen.
	Upsert(ctx context.Context, isOnline bool) (*entity.Presence, error)
	Get(ctx context.Context) (*entity.Presence, error)
}

type SettingsRepository interface {
	Get(ctx context.Context) (*entity.ChatSettings, error)
	Save(ctx context.Context, settings *entity.ChatSettings) error
}

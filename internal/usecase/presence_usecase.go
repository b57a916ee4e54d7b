package usecase

import (
	"context"
	"time"

	"sulestate/internal/domain/repository"
	"sulestate/pkg/errors"
	"sulestate/pkg/logger"
)

type PresenceStatus struct {
	IsOnline bool       `json:"isOnline"`
	LastSeen *time.Time `json:"lastSeen"`
}

type PresenceUseCase struct {
	presenceRepo repository.PresenceRepository
	now          func() time.Time
}

func NewPresenceUseCase(presenceRepo repository.PresenceRepository, now func() time.Time) *PresenceUseCase {
	if now == nil {
		now = time.Now
	}
	return &PresenceUseCase{
		presenceRepo: presenceRepo,
		now:          now,
	}
}

// RecordHeartbeat stamps the admin status record with the store's time.
func (uc *PresenceUseCase) RecordHeartbeat(ctx context.Context, isOnline bool) (*PresenceStatus, error) {
	presence, err := uc.presenceRepo.Upsert(ctx, isOnline)
	if err != nil {
		logger.Error("RecordHeartbeat failed: isOnline=%v, error=%v", isOnline, err)
		return nil, err
	}

	lastSeen := presence.LastSeen
	return &PresenceStatus{
		IsOnline: presence.OnlineAt(uc.now()),
		LastSeen: &lastSeen,
	}, nil
}

// IsAdminOnline ignores the stored flag and decides on heartbeat freshness.
func (uc *PresenceUseCase) IsAdminOnline(ctx context.Context) (bool, error) {
	status, err := uc.Status(ctx)
	if err != nil {
		return false, err
	}
	return status.IsOnline, nil
}

func (uc *PresenceUseCase) Status(ctx context.Context) (*PresenceStatus, error) {
	presence, err := uc.presenceRepo.Get(ctx)
	if err != nil {
		if errors.Is(err, errors.CodeNotFound) {
			return &PresenceStatus{IsOnline: false}, nil
		}
		return nil, err
	}

	lastSeen := presence.LastSeen
	return &PresenceStatus{
		IsOnline: presence.OnlineAt(uc.now()),
		LastSeen: &lastSeen,
	}, nil
}

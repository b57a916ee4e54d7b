package usecase

import (
	"context"
	"strings"

	"sulestate/internal/domain/entity"
	"sulestate/internal/domain/repository"
	"sulestate/pkg/errors"
	"sulestate/pkg/logger"
)

type SettingsUseCase struct {
	settingsRepo repository.SettingsRepository
}

func NewSettingsUseCase(settingsRepo repository.SettingsRepository) *SettingsUseCase {
	return &SettingsUseCase{settingsRepo: settingsRepo}
}

type UpdateSettingsInput struct {
	AvatarURL   string
	DisplayName string
	Title       string
}

// GetSettings never fails on a missing record; the stock identity is returned instead.
func (uc *SettingsUseCase) GetSettings(ctx context.Context) (*entity.ChatSettings, error) {
	settings, err := uc.settingsRepo.Get(ctx)
	if err != nil {
		if errors.Is(err, errors.CodeNotFound) {
			defaults := entity.ChatSettings{}.WithDefaults()
			return &defaults, nil
		}
		logger.Error("GetSettings failed: %v", err)
		return nil, err
	}

	withDefaults := settings.WithDefaults()
	return &withDefaults, nil
}

func (uc *SettingsUseCase) UpdateSettings(ctx context.Context, input UpdateSettingsInput) (*entity.ChatSettings, error) {
	settings := &entity.ChatSettings{
		AvatarURL:   strings.TrimSpace(input.AvatarURL),
		DisplayName: strings.TrimSpace(input.DisplayName),
		Title:       strings.TrimSpace(input.Title),
	}

	if err := uc.settingsRepo.Save(ctx, settings); err != nil {
		logger.Error("UpdateSettings failed: %v", err)
		return nil, err
	}

	withDefaults := settings.WithDefaults()
	return &withDefaults, nil
}

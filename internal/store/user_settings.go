package store

import (
	"context"
	"errors"

	"github.com/listenupapp/listenup-player/internal/domain"
)

// The player has one set of device settings.
const userSettingsKey = "settings:device"

// GetUserSettings retrieves the device settings.
func (s *Store) GetUserSettings(ctx context.Context) (*domain.UserSettings, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var settings domain.UserSettings
	if err := s.get([]byte(userSettingsKey), &settings, ErrUserSettingsNotFound); err != nil {
		return nil, err
	}
	return &settings, nil
}

// UpsertUserSettings creates or updates the device settings.
func (s *Store) UpsertUserSettings(ctx context.Context, settings *domain.UserSettings) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.set([]byte(userSettingsKey), settings)
}

// GetOrCreateUserSettings returns the stored settings, saving defaults on first use.
func (s *Store) GetOrCreateUserSettings(ctx context.Context) (*domain.UserSettings, error) {
	settings, err := s.GetUserSettings(ctx)
	if err == nil {
		return settings, nil
	}
	if !errors.Is(err, ErrUserSettingsNotFound) {
		return nil, err
	}

	settings = domain.NewUserSettings()
	if err := s.UpsertUserSettings(ctx, settings); err != nil {
		return nil, err
	}
	return settings, nil
}

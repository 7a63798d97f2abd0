package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/listenupapp/listenup-player/internal/domain"
	"github.com/listenupapp/listenup-player/internal/store"
)

// GetUserSettings retrieves the device settings.
func (s *Store) GetUserSettings(ctx context.Context) (*domain.UserSettings, error) {
	var (
		us          domain.UserSettings
		smartRewind int
		updatedAt   string
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT default_playback_speed, skip_forward_sec, skip_backward_sec,
		       smart_rewind_enabled, max_rewind_sec, updated_at
		FROM user_settings
		WHERE id = 1`).Scan(
		&us.DefaultPlaybackSpeed,
		&us.SkipForwardSec,
		&us.SkipBackwardSec,
		&smartRewind,
		&us.MaxRewindSec,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrUserSettingsNotFound
	}
	if err != nil {
		return nil, err
	}

	us.SmartRewindEnabled = smartRewind != 0
	us.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	return &us, nil
}

// UpsertUserSettings creates or replaces the device settings.
func (s *Store) UpsertUserSettings(ctx context.Context, settings *domain.UserSettings) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO user_settings (
			id, default_playback_speed, skip_forward_sec, skip_backward_sec,
			smart_rewind_enabled, max_rewind_sec, updated_at
		) VALUES (1, ?, ?, ?, ?, ?, ?)`,
		settings.DefaultPlaybackSpeed,
		settings.SkipForwardSec,
		settings.SkipBackwardSec,
		boolToInt(settings.SmartRewindEnabled),
		settings.MaxRewindSec,
		formatTime(settings.UpdatedAt),
	)
	return err
}

// GetOrCreateUserSettings returns the stored settings, saving defaults on first use.
func (s *Store) GetOrCreateUserSettings(ctx context.Context) (*domain.UserSettings, error) {
	settings, err := s.GetUserSettings(ctx)
	if err == nil {
		return settings, nil
	}
	if !errors.Is(err, store.ErrUserSettingsNotFound) {
		return nil, err
	}

	settings = domain.NewUserSettings()
	if err := s.UpsertUserSettings(ctx, settings); err != nil {
		return nil, err
	}
	return settings, nil
}

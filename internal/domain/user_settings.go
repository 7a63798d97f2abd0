package domain

import "time"

// UserSettings contains device-level playback defaults.
// These apply to all books unless overridden per-book.
type UserSettings struct {
	DefaultPlaybackSpeed float64 `json:"default_playback_speed"`
	SkipForwardSec       int     `json:"skip_forward_sec"`
	SkipBackwardSec      int     `json:"skip_backward_sec"`

	SmartRewindEnabled bool `json:"smart_rewind_enabled"`
	MaxRewindSec       int  `json:"max_rewind_sec"`

	UpdatedAt time.Time `json:"updated_at"`
}

// NewUserSettings creates settings with sensible defaults.
func NewUserSettings() *UserSettings {
	return &UserSettings{
		DefaultPlaybackSpeed: 1.0,
		SkipForwardSec:       30,
		SkipBackwardSec:      10,
		SmartRewindEnabled:   true,
		MaxRewindSec:         30,
		UpdatedAt:            time.Now(),
	}
}

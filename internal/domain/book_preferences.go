package domain

import "time"

// BookPreferences contains per-book settings that override user defaults.
// Nil fields mean "use global default from UserSettings".
type BookPreferences struct {
	BookID string `json:"book_id"`

	PlaybackSpeed *float64 `json:"playback_speed,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// NewBookPreferences creates empty preferences (all defaults).
func NewBookPreferences(bookID string) *BookPreferences {
	return &BookPreferences{
		BookID:    bookID,
		UpdatedAt: time.Now(),
	}
}

// SetPlaybackSpeed records a per-book speed override.
func (p *BookPreferences) SetPlaybackSpeed(rate float64) {
	p.PlaybackSpeed = &rate
	p.UpdatedAt = time.Now()
}

// ClearPlaybackSpeed drops the override so the global default applies again.
func (p *BookPreferences) ClearPlaybackSpeed() {
	p.PlaybackSpeed = nil
	p.UpdatedAt = time.Now()
}

package store

import (
	"context"

	"github.com/listenupapp/listenup-player/internal/domain"
)

// Backend is the persistence contract shared by the Badger store and the
// SQLite store.
type Backend interface {
	Close() error

	// Progress
	GetProgress(ctx context.Context, bookID string) (*domain.ProgressRecord, error)
	SetProgress(ctx context.Context, bookID string, record *domain.ProgressRecord) error
	DeleteProgress(ctx context.Context, bookID string) error
	ListProgress(ctx context.Context) ([]*domain.ProgressRecord, error)

	// Book preferences
	GetBookPreferences(ctx context.Context, bookID string) (*domain.BookPreferences, error)
	UpsertBookPreferences(ctx context.Context, prefs *domain.BookPreferences) error
	DeleteBookPreferences(ctx context.Context, bookID string) error
	GetAllBookPreferences(ctx context.Context) ([]*domain.BookPreferences, error)

	// Device settings
	GetUserSettings(ctx context.Context) (*domain.UserSettings, error)
	UpsertUserSettings(ctx context.Context, settings *domain.UserSettings) error
	GetOrCreateUserSettings(ctx context.Context) (*domain.UserSettings, error)
}

var _ Backend = (*Store)(nil)

// PlaybackSpeeds collects per-book speed overrides into a map keyed by book ID.
func PlaybackSpeeds(prefs []*domain.BookPreferences) map[string]float64 {
	out := make(map[string]float64, len(prefs))
	for _, p := range prefs {
		if p.PlaybackSpeed != nil {
			out[p.BookID] = *p.PlaybackSpeed
		}
	}
	return out
}

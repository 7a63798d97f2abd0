package store

import (
	"context"
	"encoding/json"

	"github.com/listenupapp/listenup-player/internal/domain"
)

const bookPreferencesPrefix = "bookprefs:"

// GetBookPreferences retrieves preferences for a book.
func (s *Store) GetBookPreferences(ctx context.Context, bookID string) (*domain.BookPreferences, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var prefs domain.BookPreferences
	if err := s.get([]byte(bookPreferencesPrefix+bookID), &prefs, ErrBookPreferencesNotFound); err != nil {
		return nil, err
	}
	return &prefs, nil
}

// UpsertBookPreferences creates or updates book preferences.
func (s *Store) UpsertBookPreferences(ctx context.Context, prefs *domain.BookPreferences) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.set([]byte(bookPreferencesPrefix+prefs.BookID), prefs)
}

// DeleteBookPreferences removes book preferences.
func (s *Store) DeleteBookPreferences(ctx context.Context, bookID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.delete([]byte(bookPreferencesPrefix + bookID))
}

// GetAllBookPreferences retrieves every stored book preference.
func (s *Store) GetAllBookPreferences(ctx context.Context) ([]*domain.BookPreferences, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var results []*domain.BookPreferences
	err := s.scan(bookPreferencesPrefix, func(val []byte) error {
		var prefs domain.BookPreferences
		if err := json.Unmarshal(val, &prefs); err != nil {
			return err
		}
		results = append(results, &prefs)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/listenupapp/listenup-player/internal/domain"
	"github.com/listenupapp/listenup-player/internal/store"
)

func scanBookPreferences(scanner interface{ Scan(dest ...any) error }) (*domain.BookPreferences, error) {
	var (
		bp            domain.BookPreferences
		playbackSpeed sql.NullFloat64
		updatedAt     string
	)

	if err := scanner.Scan(&bp.BookID, &playbackSpeed, &updatedAt); err != nil {
		return nil, err
	}

	if playbackSpeed.Valid {
		v := playbackSpeed.Float64
		bp.PlaybackSpeed = &v
	}

	var err error
	bp.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	return &bp, nil
}

// GetBookPreferences retrieves preferences for a book.
func (s *Store) GetBookPreferences(ctx context.Context, bookID string) (*domain.BookPreferences, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT book_id, playback_speed, updated_at
		FROM book_preferences
		WHERE book_id = ?`, bookID)

	prefs, err := scanBookPreferences(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrBookPreferencesNotFound
	}
	if err != nil {
		return nil, err
	}
	return prefs, nil
}

// UpsertBookPreferences creates or replaces preferences for a book.
func (s *Store) UpsertBookPreferences(ctx context.Context, prefs *domain.BookPreferences) error {
	var playbackSpeed any
	if prefs.PlaybackSpeed != nil {
		playbackSpeed = *prefs.PlaybackSpeed
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO book_preferences (book_id, playback_speed, updated_at)
		VALUES (?, ?, ?)`,
		prefs.BookID,
		playbackSpeed,
		formatTime(prefs.UpdatedAt),
	)
	return err
}

// DeleteBookPreferences removes preferences for a book. Idempotent.
func (s *Store) DeleteBookPreferences(ctx context.Context, bookID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM book_preferences WHERE book_id = ?`, bookID)
	return err
}

// GetAllBookPreferences retrieves every stored book preference.
func (s *Store) GetAllBookPreferences(ctx context.Context) ([]*domain.BookPreferences, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT book_id, playback_speed, updated_at
		FROM book_preferences
		ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*domain.BookPreferences
	for rows.Next() {
		prefs, err := scanBookPreferences(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, prefs)
	}
	return results, rows.Err()
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/listenupapp/listenup-player/internal/domain"
	"github.com/listenupapp/listenup-player/internal/sse"
	"github.com/listenupapp/listenup-player/internal/store"
)

const progressColumns = `book_id, position, duration, is_finished, is_in_library, updated_at`

func scanProgress(scanner interface{ Scan(dest ...any) error }) (*domain.ProgressRecord, error) {
	var (
		rec         domain.ProgressRecord
		isFinished  int
		isInLibrary int
		updatedAt   string
	)

	if err := scanner.Scan(&rec.BookID, &rec.Position, &rec.Duration, &isFinished, &isInLibrary, &updatedAt); err != nil {
		return nil, err
	}

	rec.IsFinished = isFinished != 0
	rec.IsInLibrary = isInLibrary != 0

	var err error
	rec.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetProgress retrieves the local progress record for a book.
func (s *Store) GetProgress(ctx context.Context, bookID string) (*domain.ProgressRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+progressColumns+` FROM progress WHERE book_id = ?`, bookID)

	rec, err := scanProgress(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrProgressNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// SetProgress replaces the local progress record for a book.
func (s *Store) SetProgress(ctx context.Context, bookID string, record *domain.ProgressRecord) error {
	if record == nil {
		return fmt.Errorf("set progress %s: nil record", bookID)
	}

	rec := record.Clone()
	rec.BookID = bookID

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO progress (`+progressColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.BookID,
		rec.Position,
		rec.Duration,
		boolToInt(rec.IsFinished),
		boolToInt(rec.IsInLibrary),
		formatTime(rec.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("set progress %s: %w", bookID, err)
	}

	s.emitter.Emit(sse.NewProgressSavedEvent(rec))
	return nil
}

// DeleteProgress removes the local record for a book. Idempotent.
func (s *Store) DeleteProgress(ctx context.Context, bookID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM progress WHERE book_id = ?`, bookID)
	return err
}

// ListProgress returns every local progress record, most recent first.
func (s *Store) ListProgress(ctx context.Context) ([]*domain.ProgressRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+progressColumns+` FROM progress ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.ProgressRecord
	for rows.Next() {
		rec, err := scanProgress(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

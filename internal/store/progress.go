package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/listenupapp/listenup-player/internal/domain"
	"github.com/listenupapp/listenup-player/internal/sse"
)

const progressPrefix = "progress:"

// GetProgress retrieves the local progress record for a book.
func (s *Store) GetProgress(ctx context.Context, bookID string) (*domain.ProgressRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rec domain.ProgressRecord
	if err := s.get([]byte(progressPrefix+bookID), &rec, ErrProgressNotFound); err != nil {
		return nil, err
	}
	return &rec, nil
}

// SetProgress replaces the local progress record for a book and emits a
// progress.saved event.
func (s *Store) SetProgress(ctx context.Context, bookID string, record *domain.ProgressRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if record == nil {
		return fmt.Errorf("set progress %s: nil record", bookID)
	}

	rec := record.Clone()
	rec.BookID = bookID
	if err := s.set([]byte(progressPrefix+bookID), rec); err != nil {
		return fmt.Errorf("set progress %s: %w", bookID, err)
	}

	s.eventEmitter.Emit(sse.NewProgressSavedEvent(rec))
	return nil
}

// DeleteProgress removes the local record for a book.
func (s *Store) DeleteProgress(ctx context.Context, bookID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.delete([]byte(progressPrefix + bookID))
}

// ListProgress returns every local progress record.
func (s *Store) ListProgress(ctx context.Context) ([]*domain.ProgressRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []*domain.ProgressRecord
	err := s.scan(progressPrefix, func(val []byte) error {
		var rec domain.ProgressRecord
		if err := json.Unmarshal(val, &rec); err != nil {
			return err
		}
		out = append(out, &rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/listenup-player/internal/domain"
	"github.com/listenupapp/listenup-player/internal/store"
	"github.com/listenupapp/listenup-player/internal/store/sqlite"
)

type countingEmitter struct{ n int }

func (c *countingEmitter) Emit(any) { c.n++ }

func setupTestStore(t *testing.T, emitter store.EventEmitter) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "player.sqlite"), nil, emitter)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestProgress(t *testing.T) {
	emitter := &countingEmitter{}
	s := setupTestStore(t, emitter)
	ctx := context.Background()

	_, err := s.GetProgress(ctx, "book-1")
	assert.ErrorIs(t, err, store.ErrProgressNotFound)

	older := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, s.SetProgress(ctx, "book-1", domain.NewProgressRecord("book-1", 3590, 3600, older)))
	require.NoError(t, s.SetProgress(ctx, "book-2", domain.NewProgressRecord("book-2", 10, 3600, older.Add(time.Hour))))
	assert.Equal(t, 2, emitter.n)

	got, err := s.GetProgress(ctx, "book-1")
	require.NoError(t, err)
	assert.Equal(t, 3590.0, got.Position)
	assert.True(t, got.IsFinished)
	assert.True(t, got.IsInLibrary)
	assert.True(t, older.Equal(got.UpdatedAt))

	all, err := s.ListProgress(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "book-2", all[0].BookID, "most recent first")

	require.NoError(t, s.DeleteProgress(ctx, "book-1"))
	_, err = s.GetProgress(ctx, "book-1")
	assert.ErrorIs(t, err, store.ErrProgressNotFound)

	assert.Error(t, s.SetProgress(ctx, "x", nil))
}

func TestBookPreferences(t *testing.T) {
	s := setupTestStore(t, nil)
	ctx := context.Background()

	fast := domain.NewBookPreferences("book-1")
	fast.SetPlaybackSpeed(1.75)
	require.NoError(t, s.UpsertBookPreferences(ctx, fast))
	require.NoError(t, s.UpsertBookPreferences(ctx, domain.NewBookPreferences("book-2")))

	got, err := s.GetBookPreferences(ctx, "book-1")
	require.NoError(t, err)
	require.NotNil(t, got.PlaybackSpeed)
	assert.Equal(t, 1.75, *got.PlaybackSpeed)

	plain, err := s.GetBookPreferences(ctx, "book-2")
	require.NoError(t, err)
	assert.Nil(t, plain.PlaybackSpeed)

	all, err := s.GetAllBookPreferences(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"book-1": 1.75}, store.PlaybackSpeeds(all))

	require.NoError(t, s.DeleteBookPreferences(ctx, "book-1"))
	_, err = s.GetBookPreferences(ctx, "book-1")
	assert.ErrorIs(t, err, store.ErrBookPreferencesNotFound)
}

func TestUserSettings(t *testing.T) {
	s := setupTestStore(t, nil)
	ctx := context.Background()

	_, err := s.GetUserSettings(ctx)
	assert.ErrorIs(t, err, store.ErrUserSettingsNotFound)

	settings, err := s.GetOrCreateUserSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 30, settings.MaxRewindSec)

	settings.SmartRewindEnabled = false
	settings.DefaultPlaybackSpeed = 1.25
	require.NoError(t, s.UpsertUserSettings(ctx, settings))

	got, err := s.GetUserSettings(ctx)
	require.NoError(t, err)
	assert.False(t, got.SmartRewindEnabled)
	assert.Equal(t, 1.25, got.DefaultPlaybackSpeed)
}

package library

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/listenup-player/internal/domain"
	domainerrors "github.com/listenupapp/listenup-player/internal/errors"
)

// fakeProber returns canned metadata keyed by file name.
func fakeProber(infos map[string]FileInfo) Prober {
	return ProberFunc(func(_ context.Context, path string) (FileInfo, error) {
		info, ok := infos[filepath.Base(path)]
		if !ok {
			return FileInfo{}, errors.New("unreadable")
		}
		return info, nil
	})
}

func writeBook(t *testing.T, root, bookID string, names ...string) string {
	t.Helper()
	dir := filepath.Join(root, bookID)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	return dir
}

func TestLoadBook_MultiFileWithoutChapters(t *testing.T) {
	root := t.TempDir()
	dir := writeBook(t, root, "book-1", "Part 10.mp3", "Part 2.mp3", "Part 1.mp3", "cover.jpg", "notes.txt")

	loader := NewLoader(root, fakeProber(map[string]FileInfo{
		"Part 1.mp3":  {Album: "The Long Walk", Title: "Track 1", Duration: 100},
		"Part 2.mp3":  {Album: "The Long Walk", Title: "Departure", Duration: 200},
		"Part 10.mp3": {Album: "The Long Walk", Duration: 300},
	}), nil)

	book, err := loader.LoadBook(context.Background(), "book-1")
	require.NoError(t, err)

	assert.Equal(t, "The Long Walk", book.Title)
	require.Len(t, book.Tracks, 3)
	assert.Equal(t, filepath.Join(dir, "Part 1.mp3"), book.Tracks[0].URL)
	assert.Equal(t, filepath.Join(dir, "Part 2.mp3"), book.Tracks[1].URL)
	assert.Equal(t, filepath.Join(dir, "Part 10.mp3"), book.Tracks[2].URL)
	assert.Equal(t, 300.0, book.Tracks[2].StartOffset)
	assert.Equal(t, 600.0, book.TotalDuration())

	require.Len(t, book.Chapters, 3)
	assert.Equal(t, "Chapter 1", book.Chapters[0].Title)
	assert.Equal(t, "Departure", book.Chapters[1].Title)
	assert.Equal(t, domain.Chapter{ID: "2", Title: "Chapter 3", Start: 300, End: 600}, book.Chapters[2])
}

func TestLoadBook_EmbeddedChaptersAreOffsetPerTrack(t *testing.T) {
	root := t.TempDir()
	writeBook(t, root, "book-2", "a.m4b", "b.m4b")

	loader := NewLoader(root, fakeProber(map[string]FileInfo{
		"a.m4b": {Title: "Vol 1", Duration: 100, Chapters: []domain.Chapter{
			{ID: "0", Title: "Opening", Start: 0, End: 60},
			{ID: "1", Title: "", Start: 60, End: 120},
		}},
		"b.m4b": {Title: "Vol 2", Duration: 50, Chapters: []domain.Chapter{
			{ID: "0", Title: "Finale", Start: 0, End: 50},
		}},
	}), nil)

	book, err := loader.LoadBook(context.Background(), "book-2")
	require.NoError(t, err)

	assert.Equal(t, "book-2", book.Title, "no album tag and several files falls back to the directory name")
	require.Len(t, book.Chapters, 3)
	assert.Equal(t, "Opening", book.Chapters[0].Title)
	assert.Equal(t, "Chapter 2", book.Chapters[1].Title)
	assert.Equal(t, 100.0, book.Chapters[1].End, "chapter end clamps to the file duration")
	assert.Equal(t, 100.0, book.Chapters[2].Start)
	assert.Equal(t, 150.0, book.Chapters[2].End)
}

func TestLoadBook_Errors(t *testing.T) {
	root := t.TempDir()
	writeBook(t, root, "empty", "cover.jpg")
	writeBook(t, root, "broken", "a.mp3")
	loader := NewLoader(root, fakeProber(nil), nil)
	ctx := context.Background()

	_, err := loader.LoadBook(ctx, "missing")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	_, err = loader.LoadBook(ctx, "empty")
	assert.ErrorIs(t, err, domainerrors.ErrLoadFailed)

	_, err = loader.LoadBook(ctx, "broken")
	assert.ErrorIs(t, err, domainerrors.ErrLoadFailed)

	for _, bad := range []string{"", "../etc", "a/b"} {
		_, err = loader.LoadBook(ctx, bad)
		assert.ErrorIs(t, err, domainerrors.ErrValidation, bad)
	}
}

func TestIsAudioFile(t *testing.T) {
	assert.True(t, IsAudioFile("book.M4B"))
	assert.True(t, IsAudioFile("01.mp3"))
	assert.False(t, IsAudioFile("cover.jpg"))
	assert.False(t, IsAudioFile("mp3"))
}

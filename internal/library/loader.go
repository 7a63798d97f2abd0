// Package library turns a directory of downloaded audio files into the Book
// the player loads: ordered tracks laid end to end plus a chapter list.
package library

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/listenupapp/listenup-player/internal/chapters"
	"github.com/listenupapp/listenup-player/internal/domain"
	domainerrors "github.com/listenupapp/listenup-player/internal/errors"
)

var audioExtensions = map[string]bool{
	".m4b":  true,
	".m4a":  true,
	".mp3":  true,
	".flac": true,
	".ogg":  true,
	".opus": true,
}

// IsAudioFile reports whether name has a playable audio extension.
func IsAudioFile(name string) bool {
	return audioExtensions[strings.ToLower(filepath.Ext(name))]
}

// Loader builds books from <root>/<bookID>/.
type Loader struct {
	root   string
	prober Prober
	logger *slog.Logger
}

// NewLoader creates a Loader. A nil prober uses audiometa.
func NewLoader(root string, prober Prober, logger *slog.Logger) *Loader {
	if prober == nil {
		prober = AudiometaProber{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Loader{root: root, prober: prober, logger: logger}
}

// LoadBook loads the book stored under the library root.
func (l *Loader) LoadBook(ctx context.Context, bookID string) (*domain.Book, error) {
	if bookID == "" || !filepath.IsLocal(bookID) || strings.ContainsRune(bookID, filepath.Separator) {
		return nil, domainerrors.Validationf("invalid book id %q", bookID)
	}
	return l.LoadDir(ctx, bookID, filepath.Join(l.root, bookID))
}

// LoadDir loads a book from an arbitrary directory.
func (l *Loader) LoadDir(ctx context.Context, bookID, dir string) (*domain.Book, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, domainerrors.NotFoundf("book %s not found", bookID)
	}
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeLoadFailed, "read book directory")
	}

	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && IsAudioFile(e.Name()) {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return nil, domainerrors.ErrLoadFailed.WithMessage(fmt.Sprintf("book %s has no audio files", bookID))
	}
	slices.SortFunc(names, CompareNatural)

	var (
		urls      = make([]string, len(names))
		titles    = make([]string, len(names))
		durations = make([]float64, len(names))
		infos     = make([]FileInfo, len(names))
	)
	for i, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		path := filepath.Join(dir, name)
		info, err := l.prober.Probe(ctx, path)
		if err != nil {
			return nil, domainerrors.Wrapf(err, domainerrors.CodeLoadFailed, "probe %s", name)
		}

		urls[i] = path
		titles[i] = info.Title
		if titles[i] == "" {
			titles[i] = strings.TrimSuffix(name, filepath.Ext(name))
		}
		durations[i] = info.Duration
		infos[i] = info
	}

	tracks := domain.NewTracks(urls, titles, durations)
	book := &domain.Book{
		ID:       bookID,
		Title:    bookTitle(infos, filepath.Base(dir)),
		Tracks:   tracks,
		Chapters: embeddedChapters(tracks, infos),
	}

	if len(book.Chapters) == 0 {
		book.Chapters = chapters.SynthesizeFromTracks(tracks)
	}

	analysis := chapters.Analyze(book.Chapters)
	l.logger.Debug("book loaded",
		"book_id", bookID,
		"tracks", len(tracks),
		"chapters", analysis.Total,
		"generic_chapters", analysis.GenericCount,
		"duration", book.TotalDuration(),
	)

	return book, nil
}

// embeddedChapters lifts each file's chapter markers onto the book timeline.
func embeddedChapters(tracks []domain.Track, infos []FileInfo) []domain.Chapter {
	var out []domain.Chapter
	for i, info := range infos {
		t := tracks[i]
		for _, ch := range info.Chapters {
			start := t.StartOffset + max(ch.Start, 0)
			end := t.StartOffset + min(ch.End, t.Duration)
			if end <= start {
				continue
			}
			out = append(out, domain.Chapter{
				ID:    fmt.Sprintf("%d.%s", i, ch.ID),
				Title: strings.TrimSpace(ch.Title),
				Start: start,
				End:   end,
			})
		}
	}
	for i := range out {
		if out[i].Title == "" || chapters.IsGenericName(out[i].Title) {
			out[i].Title = fmt.Sprintf("Chapter %d", i+1)
		}
	}
	return out
}

func bookTitle(infos []FileInfo, fallback string) string {
	for _, info := range infos {
		if info.Album != "" {
			return info.Album
		}
	}
	if len(infos) == 1 && infos[0].Title != "" {
		return infos[0].Title
	}
	return fallback
}

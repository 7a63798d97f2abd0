package library

import (
	"context"
	"fmt"

	"github.com/simonhull/audiometa"

	"github.com/listenupapp/listenup-player/internal/domain"
)

// FileInfo is what the loader needs from one audio file. Chapter bounds are
// relative to the start of the file.
type FileInfo struct {
	Title    string
	Album    string
	Duration float64
	Chapters []domain.Chapter
}

// Prober reads metadata from an audio file.
type Prober interface {
	Probe(ctx context.Context, path string) (FileInfo, error)
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(ctx context.Context, path string) (FileInfo, error)

// Probe implements Prober.
func (f ProberFunc) Probe(ctx context.Context, path string) (FileInfo, error) {
	return f(ctx, path)
}

// AudiometaProber reads tags, duration and embedded chapters with audiometa.
type AudiometaProber struct{}

// Probe implements Prober.
func (AudiometaProber) Probe(ctx context.Context, path string) (FileInfo, error) {
	file, err := audiometa.OpenContext(ctx, path)
	if err != nil {
		return FileInfo{}, fmt.Errorf("open audio file: %w", err)
	}
	defer file.Close() //nolint:errcheck // read-only handle

	info := FileInfo{
		Title:    file.Tags.Title,
		Album:    file.Tags.Album,
		Duration: file.Audio.Duration.Seconds(),
	}

	for _, ch := range file.Chapters {
		info.Chapters = append(info.Chapters, domain.Chapter{
			ID:    fmt.Sprintf("%d", ch.Index),
			Title: ch.Title,
			Start: ch.StartTime.Seconds(),
			End:   ch.EndTime.Seconds(),
		})
	}
	return info, nil
}

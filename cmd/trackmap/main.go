// Package main provides trackmap, a command-line tool that shows how the
// player sees a book directory: its track timeline and chapter list.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/listenupapp/listenup-player/internal/chapters"
	"github.com/listenupapp/listenup-player/internal/domain"
	"github.com/listenupapp/listenup-player/internal/library"
	"github.com/listenupapp/listenup-player/internal/logger"
	"github.com/listenupapp/listenup-player/internal/timeline"
)

var version = "dev"

func main() {
	app := &cli.App{
		Name:    "trackmap",
		Usage:   "Inspect the timeline of a downloaded audiobook",
		Version: version,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print JSON instead of text",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Give up probing files after `DURATION`",
				Value: time.Minute,
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "map",
				Usage:     "List tracks with their global offsets",
				ArgsUsage: "<book-dir>",
				Flags: []cli.Flag{
					&cli.Float64Flag{
						Name:    "position",
						Aliases: []string{"p"},
						Usage:   "Also resolve a global position in `SECONDS` to its track",
						Value:   -1,
					},
				},
				Action: mapTracks,
			},
			{
				Name:      "chapters",
				Usage:     "List chapters and flag placeholder names",
				ArgsUsage: "<book-dir>",
				Action:    listChapters,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "trackmap: %v\n", err)
		os.Exit(1)
	}
}

func loadBook(c *cli.Context) (*domain.Book, error) {
	if c.NArg() != 1 {
		return nil, cli.Exit("expected exactly one book directory", 2)
	}
	dir, err := filepath.Abs(c.Args().First())
	if err != nil {
		return nil, err
	}

	log := logger.New(logger.Config{
		Writer:    os.Stderr,
		Level:     logger.ParseLevel("warn"),
		Component: "trackmap",
	})

	ctx, cancel := context.WithTimeout(context.Background(), c.Duration("timeout"))
	defer cancel()

	loader := library.NewLoader(filepath.Dir(dir), library.AudiometaProber{}, log.Logger)
	return loader.LoadDir(ctx, filepath.Base(dir), dir)
}

// trackMap is the JSON output of the map command.
type trackMap struct {
	BookID   string             `json:"book_id"`
	Duration float64            `json:"duration"`
	Tracks   []domain.Track     `json:"tracks"`
	Position *timeline.Location `json:"position,omitempty"`
}

func mapTracks(c *cli.Context) error {
	book, err := loadBook(c)
	if err != nil {
		return err
	}

	out := trackMap{
		BookID:   book.ID,
		Duration: book.TotalDuration(),
		Tracks:   book.Tracks,
	}
	if pos := c.Float64("position"); pos >= 0 {
		if loc, ok := timeline.FindTrackForPosition(book.Tracks, pos); ok {
			out.Position = &loc
		}
	}

	if c.Bool("json") {
		return printJSON(out)
	}

	fmt.Printf("%s: %d tracks, %s\n", book.ID, len(book.Tracks), formatSeconds(out.Duration))
	for i, tr := range book.Tracks {
		fmt.Printf("  [%3d] %10s  %10s  %s\n", i, formatSeconds(tr.StartOffset), formatSeconds(tr.Duration), filepath.Base(tr.URL))
	}
	if out.Position != nil {
		fmt.Printf("\n%.1fs is track %d at %s\n", c.Float64("position"), out.Position.TrackIndex, formatSeconds(out.Position.PositionInTrack))
	}
	return nil
}

// chapterList is the JSON output of the chapters command.
type chapterList struct {
	BookID   string                  `json:"book_id"`
	Chapters []domain.Chapter        `json:"chapters"`
	Analysis chapters.AnalysisResult `json:"analysis"`
}

func listChapters(c *cli.Context) error {
	book, err := loadBook(c)
	if err != nil {
		return err
	}

	out := chapterList{
		BookID:   book.ID,
		Chapters: book.Chapters,
		Analysis: chapters.Analyze(book.Chapters),
	}

	if c.Bool("json") {
		return printJSON(out)
	}

	fmt.Printf("%s: %d chapters (%d placeholder names)\n", book.ID, out.Analysis.Total, out.Analysis.GenericCount)
	for i, ch := range book.Chapters {
		marker := " "
		if chapters.IsGenericName(ch.Title) {
			marker = "*"
		}
		fmt.Printf("  [%3d]%s %10s - %10s  %s\n", i, marker, formatSeconds(ch.Start), formatSeconds(ch.End), ch.Title)
	}
	if out.Analysis.MostlyGeneric {
		fmt.Println("\nMost chapter names are placeholders.")
	}
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatSeconds(s float64) string {
	return (time.Duration(s * float64(time.Second))).Round(time.Second).String()
}

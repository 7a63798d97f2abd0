package api

import (
	"context"
	"net/http"

	"github.com/listenupapp/listenup-player/internal/chapters"
	"github.com/listenupapp/listenup-player/internal/http/response"
	"github.com/listenupapp/listenup-player/internal/playback"
	"github.com/listenupapp/listenup-player/internal/playbackrate"
)

// PlayerResponse is the player snapshot plus derived display fields.
type PlayerResponse struct {
	Session   playback.Session `json:"session"`
	RateLabel string           `json:"rate_label"`
	Chapter   *ChapterResponse `json:"chapter,omitempty"`
}

// ChapterResponse describes the chapter under the display position.
type ChapterResponse struct {
	Index    int     `json:"index"`
	Count    int     `json:"count"`
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Progress float64 `json:"progress"` // percent through the chapter
}

// LoadRequest opens a book.
type LoadRequest struct {
	BookID string `json:"book_id" validate:"required,max=255"`
}

// PositionRequest carries a book-global position in seconds.
type PositionRequest struct {
	Position *float64 `json:"position" validate:"required,gte=0"`
}

// SkipRequest jumps by the configured skip interval.
type SkipRequest struct {
	Direction string `json:"direction" validate:"required,oneof=forward backward"`
}

// RateRequest sets the playback rate.
type RateRequest struct {
	Rate float64 `json:"rate" validate:"required,rate"`
}

func (s *Server) playerState() PlayerResponse {
	snap := s.services.Player.Snapshot()
	out := PlayerResponse{
		Session:   snap,
		RateLabel: playbackrate.Label(snap.PlaybackRate),
	}

	book := s.services.Player.Book()
	if book == nil || !snap.IsActive() {
		return out
	}
	pos := snap.DisplayPosition()
	if m, ok := chapters.FindChapterForPosition(book.Chapters, pos); ok {
		out.Chapter = &ChapterResponse{
			Index:    m.Index,
			Count:    len(book.Chapters),
			ID:       m.Chapter.ID,
			Title:    m.Chapter.Title,
			Start:    m.Chapter.Start,
			End:      m.Chapter.End,
			Progress: chapters.ChapterProgress(book.Chapters, pos),
		}
	}
	return out
}

// command runs fn against the player and answers with the new state.
func (s *Server) command(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context) error) {
	if err := fn(r.Context()); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, s.playerState(), s.logger)
}

// handleGetPlayer returns the current snapshot.
// GET /api/v1/player
func (s *Server) handleGetPlayer(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, s.playerState(), s.logger)
}

// handleGetPlayerBook returns the open book's tracks and chapters.
// GET /api/v1/player/book
func (s *Server) handleGetPlayerBook(w http.ResponseWriter, _ *http.Request) {
	book := s.services.Player.Book()
	if book == nil {
		response.NotFound(w, "No book loaded", s.logger)
		return
	}
	response.Success(w, book, s.logger)
}

// handleLoad opens a book. The response is sent once loading has begun;
// readiness arrives on the event stream.
// POST /api/v1/player/load
func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	var req LoadRequest
	if err := s.decodeRequest(w, r, &req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	if err := s.services.Player.Load(r.Context(), req.BookID); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Accepted(w, s.playerState(), s.logger)
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	s.command(w, r, s.services.Player.Play)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.command(w, r, s.services.Player.Pause)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.command(w, r, s.services.Player.Stop)
}

// POST /api/v1/player/seek
func (s *Server) handleSeek(w http.ResponseWriter, r *http.Request) {
	var req PositionRequest
	if err := s.decodeRequest(w, r, &req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	s.command(w, r, func(ctx context.Context) error {
		return s.services.Player.SeekTo(ctx, *req.Position)
	})
}

// POST /api/v1/player/scrub
func (s *Server) handleScrub(w http.ResponseWriter, r *http.Request) {
	var req PositionRequest
	if err := s.decodeRequest(w, r, &req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	s.command(w, r, func(ctx context.Context) error {
		return s.services.Player.Scrub(ctx, *req.Position)
	})
}

func (s *Server) handleCommitScrub(w http.ResponseWriter, r *http.Request) {
	s.command(w, r, s.services.Player.CommitScrub)
}

// POST /api/v1/player/skip
func (s *Server) handleSkip(w http.ResponseWriter, r *http.Request) {
	var req SkipRequest
	if err := s.decodeRequest(w, r, &req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	skip := s.services.Player.SkipForward
	if req.Direction == "backward" {
		skip = s.services.Player.SkipBackward
	}
	s.command(w, r, skip)
}

func (s *Server) handleNextChapter(w http.ResponseWriter, r *http.Request) {
	s.command(w, r, s.services.Player.NextChapter)
}

func (s *Server) handlePreviousChapter(w http.ResponseWriter, r *http.Request) {
	s.command(w, r, s.services.Player.PreviousChapter)
}

// POST /api/v1/player/rate
func (s *Server) handleSetRate(w http.ResponseWriter, r *http.Request) {
	var req RateRequest
	if err := s.decodeRequest(w, r, &req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	s.command(w, r, func(ctx context.Context) error {
		return s.services.Player.SetRate(ctx, req.Rate)
	})
}

func (s *Server) handleCycleRate(w http.ResponseWriter, r *http.Request) {
	s.command(w, r, s.services.Player.CycleRate)
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	s.command(w, r, s.services.Player.Retry)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.command(w, r, s.services.Player.Reset)
}

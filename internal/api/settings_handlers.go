package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/listenupapp/listenup-player/internal/domain"
	"github.com/listenupapp/listenup-player/internal/http/response"
	"github.com/listenupapp/listenup-player/internal/store"
)

// UpdateSettingsRequest replaces the device settings.
type UpdateSettingsRequest struct {
	DefaultPlaybackSpeed float64 `json:"default_playback_speed" validate:"required,rate"`
	SkipForwardSec       int     `json:"skip_forward_sec" validate:"required,min=1,max=300"`
	SkipBackwardSec      int     `json:"skip_backward_sec" validate:"required,min=1,max=300"`
	SmartRewindEnabled   *bool   `json:"smart_rewind_enabled" validate:"required"`
	MaxRewindSec         *int    `json:"max_rewind_sec" validate:"required,min=0,max=300"`
}

// UpdateBookPreferencesRequest sets or clears a book's overrides.
// A null playback_speed falls back to the device default.
type UpdateBookPreferencesRequest struct {
	PlaybackSpeed *float64 `json:"playback_speed" validate:"omitempty,min=0.5,max=3"`
}

// GET /api/v1/settings
func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.services.Store.GetOrCreateUserSettings(r.Context())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, settings, s.logger)
}

// handleUpdateSettings stores new settings and applies them to the open book.
// PUT /api/v1/settings
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req UpdateSettingsRequest
	if err := s.decodeRequest(w, r, &req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	settings := &domain.UserSettings{
		DefaultPlaybackSpeed: req.DefaultPlaybackSpeed,
		SkipForwardSec:       req.SkipForwardSec,
		SkipBackwardSec:      req.SkipBackwardSec,
		SmartRewindEnabled:   *req.SmartRewindEnabled,
		MaxRewindSec:         *req.MaxRewindSec,
		UpdatedAt:            time.Now(),
	}
	if err := s.services.Store.UpsertUserSettings(r.Context(), settings); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	if err := s.services.Player.ApplySettings(r.Context(), settings); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	s.logger.Info("settings updated",
		"default_playback_speed", settings.DefaultPlaybackSpeed,
		"smart_rewind", settings.SmartRewindEnabled,
	)
	response.Success(w, settings, s.logger)
}

// GET /api/v1/settings/books/{bookID}
func (s *Server) handleGetBookPreferences(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "bookID")

	prefs, err := s.services.Store.GetBookPreferences(r.Context(), bookID)
	if errors.Is(err, store.ErrNotFound) {
		// No overrides yet is not an error.
		response.Success(w, domain.NewBookPreferences(bookID), s.logger)
		return
	}
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, prefs, s.logger)
}

// PUT /api/v1/settings/books/{bookID}
func (s *Server) handleUpdateBookPreferences(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "bookID")

	var req UpdateBookPreferencesRequest
	if err := s.decodeRequest(w, r, &req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	prefs := domain.NewBookPreferences(bookID)
	if req.PlaybackSpeed != nil {
		prefs.SetPlaybackSpeed(*req.PlaybackSpeed)
	}
	if err := s.services.Store.UpsertBookPreferences(r.Context(), prefs); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, prefs, s.logger)
}

// DELETE /api/v1/settings/books/{bookID}
func (s *Server) handleDeleteBookPreferences(w http.ResponseWriter, r *http.Request) {
	if err := s.services.Store.DeleteBookPreferences(r.Context(), chi.URLParam(r, "bookID")); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.NoContent(w)
}

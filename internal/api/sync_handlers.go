package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	domainerrors "github.com/listenupapp/listenup-player/internal/errors"
	"github.com/listenupapp/listenup-player/internal/http/response"
	"github.com/listenupapp/listenup-player/internal/reconcile"
)

var errSyncDisabled = domainerrors.Unavailable("sync is not configured")

// SyncStatusResponse reports the push queue.
type SyncStatusResponse struct {
	Enabled bool `json:"enabled"`
	Pending int  `json:"pending"`
}

// GET /api/v1/sync/status
func (s *Server) handleSyncStatus(w http.ResponseWriter, _ *http.Request) {
	status := SyncStatusResponse{Enabled: s.services.Sync != nil}
	if status.Enabled {
		status.Pending = s.services.Sync.Pending()
	}
	response.Success(w, status, s.logger)
}

// handleSyncFlush pushes everything queued now.
// POST /api/v1/sync/flush
func (s *Server) handleSyncFlush(w http.ResponseWriter, r *http.Request) {
	if s.services.Sync == nil {
		response.HandleError(w, errSyncDisabled, s.logger)
		return
	}
	if err := s.services.Sync.Flush(r.Context()); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, SyncStatusResponse{Enabled: true, Pending: s.services.Sync.Pending()}, s.logger)
}

// handleReconcile resolves local and server progress for a book.
// The optional hint query parameter is "stale" or "reset".
// POST /api/v1/sync/{bookID}/reconcile
func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	if s.services.Sync == nil {
		response.HandleError(w, errSyncDisabled, s.logger)
		return
	}

	var hint reconcile.Hint
	switch r.URL.Query().Get("hint") {
	case "":
		hint = reconcile.HintNone
	case "stale":
		hint = reconcile.HintStale
	case "reset":
		hint = reconcile.HintReset
	default:
		response.HandleError(w, domainerrors.Validation("hint must be one of: stale reset"), s.logger)
		return
	}

	res, err := s.services.Sync.Reconcile(r.Context(), chi.URLParam(r, "bookID"), hint)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, res, s.logger)
}

// POST /api/v1/sync/{bookID}/push
func (s *Server) handlePush(w http.ResponseWriter, r *http.Request) {
	if s.services.Sync == nil {
		response.HandleError(w, errSyncDisabled, s.logger)
		return
	}
	if err := s.services.Sync.PushNow(r.Context(), chi.URLParam(r, "bookID")); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.NoContent(w)
}

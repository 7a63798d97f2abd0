package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/listenupapp/listenup-player/internal/http/response"
)

// handleListProgress returns every stored progress record, newest first.
// GET /api/v1/progress
func (s *Server) handleListProgress(w http.ResponseWriter, r *http.Request) {
	records, err := s.services.Store.ListProgress(r.Context())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, records, s.logger)
}

// GET /api/v1/progress/{bookID}
func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	rec, err := s.services.Store.GetProgress(r.Context(), chi.URLParam(r, "bookID"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, rec, s.logger)
}

// handleDeleteProgress forgets local progress for a book. The server copy
// is untouched.
// DELETE /api/v1/progress/{bookID}
func (s *Server) handleDeleteProgress(w http.ResponseWriter, r *http.Request) {
	if err := s.services.Store.DeleteProgress(r.Context(), chi.URLParam(r, "bookID")); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.NoContent(w)
}

// Package api provides the local control API: a chi router exposing the
// player snapshot, playback commands, the event stream, stored progress,
// settings and sync.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/listenupapp/listenup-player/internal/http/response"
	"github.com/listenupapp/listenup-player/internal/ratelimit"
	"github.com/listenupapp/listenup-player/internal/sse"
	"github.com/listenupapp/listenup-player/internal/validation"
)

// Options tunes the router.
type Options struct {
	// AllowedOrigins lists the browser origins allowed to call the API.
	AllowedOrigins []string
	// CommandsPerSecond limits playback commands per client. Zero disables the limit.
	CommandsPerSecond float64
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	services   Services
	sseHandler *sse.Handler
	validator  *validation.Validator
	limiter    *ratelimit.KeyedRateLimiter
	router     *chi.Mux
	logger     *slog.Logger
}

// NewServer creates the control API with all routes configured.
func NewServer(services Services, sseHandler *sse.Handler, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Server{
		services:   services,
		sseHandler: sseHandler,
		validator:  validation.New(),
		router:     chi.NewRouter(),
		logger:     logger,
	}
	if opts.CommandsPerSecond > 0 {
		s.limiter = ratelimit.New(opts.CommandsPerSecond, int(opts.CommandsPerSecond*2)+1)
	}

	s.setupMiddleware(opts)
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close releases the rate limiter.
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware(opts Options) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Route("/player", func(r chi.Router) {
			r.Get("/", s.handleGetPlayer)
			r.Get("/book", s.handleGetPlayerBook)

			r.Group(func(r chi.Router) {
				if s.limiter != nil {
					r.Use(RateLimitMiddleware(s.limiter, s.logger))
				}
				r.Post("/load", s.handleLoad)
				r.Post("/play", s.handlePlay)
				r.Post("/pause", s.handlePause)
				r.Post("/stop", s.handleStop)
				r.Post("/seek", s.handleSeek)
				r.Post("/scrub", s.handleScrub)
				r.Post("/scrub/commit", s.handleCommitScrub)
				r.Post("/skip", s.handleSkip)
				r.Post("/chapters/next", s.handleNextChapter)
				r.Post("/chapters/previous", s.handlePreviousChapter)
				r.Post("/rate", s.handleSetRate)
				r.Post("/rate/cycle", s.handleCycleRate)
				r.Post("/retry", s.handleRetry)
				r.Post("/reset", s.handleReset)
			})
		})

		r.Get("/events", s.sseHandler.ServeHTTP)

		r.Route("/progress", func(r chi.Router) {
			r.Get("/", s.handleListProgress)
			r.Get("/{bookID}", s.handleGetProgress)
			r.Delete("/{bookID}", s.handleDeleteProgress)
		})

		r.Route("/settings", func(r chi.Router) {
			r.Get("/", s.handleGetSettings)
			r.Put("/", s.handleUpdateSettings)
			r.Get("/books/{bookID}", s.handleGetBookPreferences)
			r.Put("/books/{bookID}", s.handleUpdateBookPreferences)
			r.Delete("/books/{bookID}", s.handleDeleteBookPreferences)
		})

		r.Route("/sync", func(r chi.Router) {
			r.Get("/status", s.handleSyncStatus)
			r.Post("/flush", s.handleSyncFlush)
			r.Post("/{bookID}/reconcile", s.handleReconcile)
			r.Post("/{bookID}/push", s.handlePush)
		})
	})
}

// handleHealthCheck reports whether the player loop is accepting commands.
func (s *Server) handleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, map[string]any{
		"status": "healthy",
		"player": s.services.Player.Snapshot().Status,
		"sync":   s.services.Sync != nil,
	}, s.logger)
}

package providers

import (
	"context"
	"errors"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/listenupapp/listenup-player/internal/api"
	"github.com/listenupapp/listenup-player/internal/config"
	"github.com/listenupapp/listenup-player/internal/logger"
	"github.com/listenupapp/listenup-player/internal/sse"
)

// commandsPerSecond limits playback commands per control API client.
const commandsPerSecond = 10

// HTTPServerHandle wraps http.Server with Shutdownable. Server is nil when
// the control API is disabled.
type HTTPServerHandle struct {
	*http.Server
	api *api.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	if h.Server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := h.Server.Shutdown(ctx)
	h.api.Close()
	return err
}

// ProvideHTTPServer provides the local control API server.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.Control.Enabled {
		log.Info("Control API disabled")
		return &HTTPServerHandle{}, nil
	}

	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	playerHandle := do.MustInvoke[*PlayerHandle](i)
	syncHandle := do.MustInvoke[*SyncServiceHandle](i)

	// New subscribers get the current session straight away.
	sseHandler := sse.NewHandler(sseHandle.Manager, log.Logger).WithInitialEvent(func() (sse.Event, bool) {
		snap := playerHandle.Snapshot()
		return sse.NewSessionChangedEvent(snap, snap), true
	})

	services := api.Services{
		Player: playerHandle.Player,
		Sync:   syncHandle.Service,
		Store:  storeHandle.Backend,
	}

	handler := api.NewServer(services, sseHandler, api.Options{
		AllowedOrigins:    cfg.Control.AllowedOrigins,
		CommandsPerSecond: commandsPerSecond,
	}, log.Logger)

	// WriteTimeout stays zero so the event stream is not cut off.
	srv := &http.Server{
		Addr:        cfg.Control.Addr,
		Handler:     handler,
		ReadTimeout: cfg.Control.ReadTimeout,
		IdleTimeout: cfg.Control.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("Control API starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Control API error", "error", err)
		}
	}()

	return &HTTPServerHandle{Server: srv, api: handler}, nil
}

package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/listenupapp/listenup-player/internal/config"
	"github.com/listenupapp/listenup-player/internal/library"
	"github.com/listenupapp/listenup-player/internal/logger"
	"github.com/listenupapp/listenup-player/internal/remote"
	"github.com/listenupapp/listenup-player/internal/service"
	"github.com/listenupapp/listenup-player/internal/transport"
)

// ProvideLibraryLoader provides the on-disk book loader.
func ProvideLibraryLoader(i do.Injector) (*library.Loader, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return library.NewLoader(cfg.Library.Path, library.AudiometaProber{}, log.Logger), nil
}

// ProvideTransport provides the audio transport. No platform audio backend
// ships with the player, so a Null transport stands in: it reports seek
// completions back to the player and finishes loads when Load returns.
func ProvideTransport(i do.Injector) (transport.Transport, error) {
	log := do.MustInvoke[*logger.Logger](i)
	return transport.NewNull(log.Logger), nil
}

// RemoteClientHandle wraps the sync server client. Client is nil when sync is disabled.
type RemoteClientHandle struct {
	Client *remote.Client
}

// Shutdown implements do.Shutdownable.
func (h *RemoteClientHandle) Shutdown() error {
	if h.Client != nil {
		h.Client.Close()
	}
	return nil
}

// ProvideRemoteClient provides the sync server client.
func ProvideRemoteClient(i do.Injector) (*RemoteClientHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.Sync.Enabled() {
		log.Info("Sync server not configured, progress stays local")
		return &RemoteClientHandle{}, nil
	}

	client := remote.New(remote.Config{
		ServerURL:         cfg.Sync.ServerURL,
		Token:             cfg.Sync.Token,
		DeviceID:          cfg.App.DeviceID,
		Timeout:           cfg.Sync.Timeout,
		RequestsPerSecond: cfg.Sync.RequestsPerSecond,
	}, log.Logger)

	log.Info("Sync client configured", "server_url", cfg.Sync.ServerURL, "strategy", cfg.Sync.Strategy)

	return &RemoteClientHandle{Client: client}, nil
}

// SyncServiceHandle runs the background push loop. Service is nil when sync is disabled.
type SyncServiceHandle struct {
	Service *service.SyncService
	cancel  context.CancelFunc
	done    chan struct{}
}

// Shutdown implements do.Shutdownable. Run flushes pending pushes before it returns.
func (h *SyncServiceHandle) Shutdown() error {
	if h.Service == nil {
		return nil
	}
	h.cancel()
	<-h.done
	return nil
}

// ProvideSyncService provides the progress sync service.
func ProvideSyncService(i do.Injector) (*SyncServiceHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	clientHandle := do.MustInvoke[*RemoteClientHandle](i)

	if clientHandle.Client == nil {
		return &SyncServiceHandle{}, nil
	}

	svc, err := service.NewSyncService(storeHandle.Backend, clientHandle.Client, sseHandle.Manager, service.SyncConfig{
		Strategy:     cfg.Sync.Strategy,
		Options:      cfg.Tuning.ReconcileOptions(),
		PushInterval: cfg.Sync.PushInterval,
		Timeout:      cfg.Sync.Timeout,
	}, log.Logger)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := svc.Run(ctx); err != nil {
			log.Error("Sync service stopped", "error", err)
		}
	}()

	log.Info("Sync service started", "push_interval", cfg.Sync.PushInterval)

	return &SyncServiceHandle{Service: svc, cancel: cancel, done: done}, nil
}

// PlayerHandle runs the player loop.
type PlayerHandle struct {
	*service.Player
	cancel context.CancelFunc
	done   chan struct{}
}

// Shutdown implements do.Shutdownable. The loop saves the current position on exit.
func (h *PlayerHandle) Shutdown() error {
	h.cancel()
	<-h.done
	return nil
}

// ProvidePlayer provides the playback core and starts its loop.
func ProvidePlayer(i do.Injector) (*PlayerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	loader := do.MustInvoke[*library.Loader](i)
	tp := do.MustInvoke[transport.Transport](i)
	syncHandle := do.MustInvoke[*SyncServiceHandle](i)

	playerCfg := service.DefaultPlayerConfig()
	playerCfg.SaveInterval = cfg.Playback.SaveInterval
	playerCfg.Rewind = cfg.Tuning.Rewind
	playerCfg.SnapThreshold = cfg.Tuning.Chapters.SnapThreshold
	playerCfg.RestartThreshold = cfg.Tuning.Chapters.RestartThreshold

	var opts []service.PlayerOption
	if syncHandle.Service != nil {
		opts = append(opts, service.WithPositionResolver(syncHandle.Service))
	}

	player := service.NewPlayer(
		tp,
		loader,
		storeHandle.Backend,
		storeHandle.Backend,
		sseHandle.Manager,
		playerCfg,
		log.Logger,
		opts...,
	)
	if r, ok := tp.(transport.Reporter); ok {
		r.SetCallbacks(player)
	}
	if syncHandle.Service != nil {
		player.OnProgressSaved(syncHandle.Service.SchedulePush)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := player.Run(ctx); err != nil {
			log.Error("Player loop stopped", "error", err)
		}
	}()

	log.Info("Player started", "save_interval", cfg.Playback.SaveInterval)

	return &PlayerHandle{Player: player, cancel: cancel, done: done}, nil
}

// Package di provides dependency injection configuration for the ListenUp player.
package di

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/listenup-player/internal/config"
	"github.com/listenupapp/listenup-player/internal/di/providers"
	"github.com/listenupapp/listenup-player/internal/library"
	"github.com/listenupapp/listenup-player/internal/logger"
	"github.com/listenupapp/listenup-player/internal/transport"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer(cfg *config.Config) *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.ProvideValue(injector, cfg)
	do.Provide(injector, providers.ProvideLogger)

	// Database layer
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideStore)

	// Media
	do.Provide(injector, providers.ProvideLibraryLoader)
	do.Provide(injector, providers.ProvideTransport)

	// Sync
	do.Provide(injector, providers.ProvideRemoteClient)
	do.Provide(injector, providers.ProvideSyncService)

	// Playback
	do.Provide(injector, providers.ProvidePlayer)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services.
// This triggers lazy initialization of everything the player runs.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*logger.Logger](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.StoreHandle](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*library.Loader](injector)
	_ = do.MustInvoke[transport.Transport](injector)

	if _, err := do.Invoke[*providers.SyncServiceHandle](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*providers.PlayerHandle](injector)

	if _, err := do.Invoke[*providers.HTTPServerHandle](injector); err != nil {
		return err
	}
	return nil
}

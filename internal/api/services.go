package api

import (
	"github.com/listenupapp/listenup-player/internal/service"
	"github.com/listenupapp/listenup-player/internal/store"
)

// Services groups what the control API drives.
type Services struct {
	Player *service.Player
	Sync   *service.SyncService // nil when no sync server is configured
	Store  store.Backend
}

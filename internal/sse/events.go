// Package sse fans player events out to subscribers: in-process listeners
// and Server-Sent Events streams on the local control API.
package sse

import (
	"time"

	"github.com/listenupapp/listenup-player/internal/domain"
	"github.com/listenupapp/listenup-player/internal/playback"
)

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventSessionChanged carries the new session snapshot after every
	// accepted transition, including position ticks.
	EventSessionChanged EventType = "session.changed"
	// EventPlayerError is sent when the session enters the error state.
	EventPlayerError EventType = "player.error"
	// EventProgressSaved is sent after the local progress record is written.
	EventProgressSaved EventType = "progress.saved"
	// EventProgressReconciled is sent after a sync resolves local and server progress.
	EventProgressReconciled EventType = "progress.reconciled"
	// EventSyncFailed is sent when a fetch or push to the server fails.
	EventSyncFailed EventType = "sync.failed"
	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event is one notification. Data is serialized as a JSON object.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`

	// BookID scopes delivery to clients following that book. Empty means all.
	BookID string `json:"-"`
}

// SessionChangedEventData is the payload for session.changed.
type SessionChangedEventData struct {
	PreviousStatus playback.Status  `json:"previous_status"`
	Session        playback.Session `json:"session"`
}

// PlayerErrorEventData is the payload for player.error.
type PlayerErrorEventData struct {
	SessionID string `json:"session_id,omitempty"`
	BookID    string `json:"book_id"`
	Message   string `json:"message"`
	Code      string `json:"code,omitempty"`
}

// ProgressEventData is the payload for progress.saved.
type ProgressEventData struct {
	Progress *domain.ProgressRecord `json:"progress"`
}

// ReconciledEventData is the payload for progress.reconciled.
type ReconciledEventData struct {
	BookID   string                  `json:"book_id"`
	Resolved domain.ResolvedPosition `json:"resolved"`
}

// SyncFailedEventData is the payload for sync.failed.
type SyncFailedEventData struct {
	BookID    string `json:"book_id"`
	Operation string `json:"operation"`
	Error     string `json:"error"`
}

// HeartbeatEventData is the data payload for heartbeat events.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"server_time"`
}

// NewSessionChangedEvent creates a session.changed event.
func NewSessionChangedEvent(prev, next playback.Session) Event {
	return Event{
		Type:      EventSessionChanged,
		Timestamp: time.Now(),
		BookID:    next.BookID,
		Data: SessionChangedEventData{
			PreviousStatus: prev.Status,
			Session:        next,
		},
	}
}

// NewPlayerErrorEvent creates a player.error event from an error-state snapshot.
func NewPlayerErrorEvent(s playback.Session) Event {
	return Event{
		Type:      EventPlayerError,
		Timestamp: time.Now(),
		BookID:    s.BookID,
		Data: PlayerErrorEventData{
			SessionID: s.SessionID,
			BookID:    s.BookID,
			Message:   s.ErrorMessage,
			Code:      s.ErrorCode,
		},
	}
}

// NewProgressSavedEvent creates a progress.saved event.
func NewProgressSavedEvent(rec *domain.ProgressRecord) Event {
	return Event{
		Type:      EventProgressSaved,
		Timestamp: time.Now(),
		BookID:    rec.BookID,
		Data:      ProgressEventData{Progress: rec},
	}
}

// NewProgressReconciledEvent creates a progress.reconciled event.
func NewProgressReconciledEvent(bookID string, res domain.ResolvedPosition) Event {
	return Event{
		Type:      EventProgressReconciled,
		Timestamp: time.Now(),
		BookID:    bookID,
		Data:      ReconciledEventData{BookID: bookID, Resolved: res},
	}
}

// NewSyncFailedEvent creates a sync.failed event.
func NewSyncFailedEvent(bookID, operation string, err error) Event {
	return Event{
		Type:      EventSyncFailed,
		Timestamp: time.Now(),
		BookID:    bookID,
		Data:      SyncFailedEventData{BookID: bookID, Operation: operation, Error: err.Error()},
	}
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	now := time.Now()
	return Event{
		Type:      EventHeartbeat,
		Timestamp: now,
		Data:      HeartbeatEventData{ServerTime: now},
	}
}

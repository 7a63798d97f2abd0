package sse

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/listenup-player/internal/domain"
	"github.com/listenupapp/listenup-player/internal/playback"
)

func startManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(slog.New(slog.DiscardHandler))

	ctx, cancel := context.WithCancel(context.Background())
	go m.Start(ctx)
	t.Cleanup(cancel)
	return m
}

func receive(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case e := <-c.EventChan:
		return e
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func assertNoEvent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case e := <-c.EventChan:
		t.Fatalf("unexpected event %s", e.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestManager_BroadcastsToAllClients(t *testing.T) {
	m := startManager(t)

	a, err := m.Connect(Filter{})
	require.NoError(t, err)
	b, err := m.Connect(Filter{})
	require.NoError(t, err)
	assert.Equal(t, 2, m.ClientCount())

	m.Emit(NewProgressSavedEvent(&domain.ProgressRecord{BookID: "book-1", Position: 42}))

	for _, c := range []*Client{a, b} {
		e := receive(t, c)
		assert.Equal(t, EventProgressSaved, e.Type)
		assert.Equal(t, 42.0, e.Data.(ProgressEventData).Progress.Position)
	}
}

func TestManager_FiltersByBookAndType(t *testing.T) {
	m := startManager(t)

	book1, err := m.Connect(Filter{BookID: "book-1"})
	require.NoError(t, err)
	errorsOnly, err := m.Connect(Filter{Types: []EventType{EventPlayerError}})
	require.NoError(t, err)

	m.Emit(NewSessionChangedEvent(playback.Session{}, playback.Session{BookID: "book-2", Status: playback.StatusPlaying}))
	m.Emit(NewPlayerErrorEvent(playback.Session{BookID: "book-1", ErrorMessage: "decode failed"}))

	e := receive(t, book1)
	assert.Equal(t, EventPlayerError, e.Type, "book-2 session change is filtered out")

	e = receive(t, errorsOnly)
	assert.Equal(t, EventPlayerError, e.Type)
	assert.Equal(t, "decode failed", e.Data.(PlayerErrorEventData).Message)

	assertNoEvent(t, book1)
	assertNoEvent(t, errorsOnly)
}

func TestFilter_HeartbeatsAlwaysPass(t *testing.T) {
	f := Filter{BookID: "b", Types: []EventType{EventPlayerError}}
	assert.True(t, f.matches(NewHeartbeatEvent()))
}

func TestManager_Disconnect(t *testing.T) {
	m := startManager(t)

	c, err := m.Connect(Filter{})
	require.NoError(t, err)

	m.Disconnect(c.ID)
	m.Disconnect(c.ID)

	assert.Equal(t, 0, m.ClientCount())
	_, open := <-c.EventChan
	assert.False(t, open)
}

func TestManager_SlowClientDropsEvents(t *testing.T) {
	m := startManager(t)
	m.clientBuffer = 1

	slow, err := m.Connect(Filter{})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		m.Emit(NewProgressSavedEvent(&domain.ProgressRecord{BookID: "b", Position: float64(i)}))
	}

	time.Sleep(50 * time.Millisecond)
	assert.Len(t, slow.EventChan, 1)
	assert.Equal(t, ClientStats{Delivered: 1, Dropped: 4}, slow.Stats())
}

func TestManager_ShedsTicksBeforeStatusChanges(t *testing.T) {
	m := startManager(t)
	m.clientBuffer = 4

	c, err := m.Connect(Filter{})
	require.NoError(t, err)

	playing := playback.Session{BookID: "b", Status: playback.StatusPlaying}
	for i := 0; i < 6; i++ {
		next := playing
		next.Position = float64(i)
		m.Emit(NewSessionChangedEvent(playing, next))
	}
	paused := playback.Session{BookID: "b", Status: playback.StatusPaused, Position: 6}
	m.Emit(NewSessionChangedEvent(playing, paused))

	time.Sleep(50 * time.Millisecond)
	require.Len(t, c.EventChan, 3)

	var last Event
	for range 3 {
		last = receive(t, c)
	}
	data := last.Data.(SessionChangedEventData)
	assert.Equal(t, playback.StatusPlaying, data.PreviousStatus)
	assert.Equal(t, playback.StatusPaused, data.Session.Status, "status change survives a backlog of ticks")
	assert.Equal(t, ClientStats{Delivered: 3, Shed: 4}, c.Stats())
}

func TestManager_ShutdownDrainsAndRejects(t *testing.T) {
	m := NewManager(slog.New(slog.DiscardHandler))
	c, err := m.Connect(Filter{})
	require.NoError(t, err)

	m.Emit(NewProgressSavedEvent(&domain.ProgressRecord{BookID: "b"}))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, m.Shutdown(ctx))
	require.NoError(t, m.Shutdown(ctx), "second shutdown is a no-op")

	e, ok := <-c.EventChan
	require.True(t, ok, "queued event delivered before close")
	assert.Equal(t, EventProgressSaved, e.Type)

	_, ok = <-c.EventChan
	assert.False(t, ok)

	assert.NotPanics(t, func() { m.Emit(NewHeartbeatEvent()) })
}

func TestManager_EmitIgnoresForeignTypes(t *testing.T) {
	m := startManager(t)
	c, err := m.Connect(Filter{})
	require.NoError(t, err)

	m.Emit("not an event")
	assertNoEvent(t, c)
}

func TestManager_Clients(t *testing.T) {
	m := NewManager(slog.New(slog.DiscardHandler))
	_, err := m.Connect(Filter{BookID: "x"})
	require.NoError(t, err)

	var n int
	for c := range m.Clients() {
		assert.Equal(t, "x", c.Filter.BookID)
		n++
	}
	assert.Equal(t, 1, n)
}

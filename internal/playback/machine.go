package playback

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/listenupapp/listenup-player/internal/id"
)

// Listener observes accepted transitions.
type Listener func(prev, next Session)

// Machine owns one State and applies events to it. It is not safe for
// concurrent use; a single goroutine must drive it.
type Machine struct {
	state     State
	sessionID string
	version   uint64

	now       func() time.Time
	newID     id.Generator
	logger    *slog.Logger
	listeners []Listener
}

// Option configures a Machine.
type Option func(*Machine)

// WithClock overrides the time source used to stamp pauses.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

// WithIDGenerator overrides how session IDs are minted.
func WithIDGenerator(gen id.Generator) Option {
	return func(m *Machine) { m.newID = gen }
}

// WithLogger sets the logger for rejected events.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Machine) { m.logger = logger }
}

// NewMachine returns a Machine in Idle.
func NewMachine(opts ...Option) *Machine {
	m := &Machine{
		state:  Idle{},
		now:    time.Now,
		newID:  id.Generate,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Snapshot returns the flattened current state.
func (m *Machine) Snapshot() Session {
	s := SessionOf(m.state)
	s.SessionID = m.sessionID
	s.Version = m.version
	return s
}

// OnChange registers fn to run after every accepted transition.
func (m *Machine) OnChange(fn Listener) {
	m.listeners = append(m.listeners, fn)
}

// Send applies e. On rejection the state is untouched, listeners are not
// called and the returned error matches ErrNotAccepted or ErrInvalidInput.
func (m *Machine) Send(e Event) (Session, error) {
	prev := m.Snapshot()

	next, err := Transition(m.state, e, m.now())
	if err != nil {
		m.logger.Debug("playback event rejected",
			"event", e.Name(),
			"status", m.state.Status(),
			"error", err,
		)
		return prev, err
	}

	switch e.(type) {
	case Load:
		sid, err := m.newID(id.PrefixSession)
		if err != nil {
			return prev, fmt.Errorf("mint session id: %w", err)
		}
		m.sessionID = sid
	case Reset:
		m.sessionID = ""
	}

	m.state = next
	m.version++
	snap := m.Snapshot()

	for _, fn := range m.listeners {
		fn(prev, snap.Clone())
	}
	return snap, nil
}

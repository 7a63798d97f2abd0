// Package transport defines the contract between the playback core and the
// native decoder that actually produces sound.
//
// Commands flow from the core into a Transport. The decoder reports back by
// calling the Player's On* callbacks; a Transport never drives the state
// machine directly.
package transport

import (
	"context"
	"log/slog"
	"sync"
)

// Transport drives a native audio decoder. Offsets are seconds within a track.
type Transport interface {
	// Load prepares the files and positions the decoder without starting output.
	Load(ctx context.Context, urls []string, trackIndex int, offset float64) error
	Play() error
	Pause() error
	Seek(trackIndex int, offset float64) error
	SetRate(rate float64) error
}

// Callbacks receives decoder reports. The Player implements it.
type Callbacks interface {
	OnLoaded(duration, position float64)
	OnPositionTick(trackIndex int, offset float64)
	OnBufferStart()
	OnBufferEnd()
	OnSeekComplete(trackIndex int, offset float64)
	OnError(message, code string)
}

// Reporter is a Transport that reports back through Callbacks once they are set.
type Reporter interface {
	SetCallbacks(cb Callbacks)
}

// Null is a Transport with no audio output. It records the last command it
// received, which makes it useful for headless runs and tests.
//
// Seeks land instantly. Once callbacks are set, each Seek is reported through
// OnSeekComplete; a seek superseded before its report goes out is not
// reported. Load completion is the return of Load.
type Null struct {
	logger *slog.Logger

	mu         sync.Mutex
	callbacks  Callbacks
	urls       []string
	trackIndex int
	offset     float64
	rate       float64
	playing    bool
	seekSeq    uint64
	calls      []string
}

var (
	_ Transport = (*Null)(nil)
	_ Reporter  = (*Null)(nil)
)

// NewNull creates a Null transport that logs every command at debug level.
func NewNull(logger *slog.Logger) *Null {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Null{logger: logger, rate: 1.0}
}

// SetCallbacks implements Reporter.
func (n *Null) SetCallbacks(cb Callbacks) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.callbacks = cb
}

// Load implements Transport.
func (n *Null) Load(ctx context.Context, urls []string, trackIndex int, offset float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	n.urls = append([]string(nil), urls...)
	n.trackIndex = trackIndex
	n.offset = offset
	n.playing = false
	n.record("load")
	n.logger.Debug("transport load", "tracks", len(urls), "track_index", trackIndex, "offset", offset)
	return nil
}

// Play implements Transport.
func (n *Null) Play() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.playing = true
	n.record("play")
	n.logger.Debug("transport play")
	return nil
}

// Pause implements Transport.
func (n *Null) Pause() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.playing = false
	n.record("pause")
	n.logger.Debug("transport pause")
	return nil
}

// Seek implements Transport. The completion is reported from another
// goroutine, since the caller may be the loop that handles it.
func (n *Null) Seek(trackIndex int, offset float64) error {
	n.mu.Lock()
	n.trackIndex = trackIndex
	n.offset = offset
	n.seekSeq++
	seq, cb := n.seekSeq, n.callbacks
	n.record("seek")
	n.mu.Unlock()

	n.logger.Debug("transport seek", "track_index", trackIndex, "offset", offset)
	if cb != nil {
		go n.completeSeek(cb, seq)
	}
	return nil
}

func (n *Null) completeSeek(cb Callbacks, seq uint64) {
	n.mu.Lock()
	if seq != n.seekSeq {
		n.mu.Unlock()
		return
	}
	trackIndex, offset := n.trackIndex, n.offset
	n.mu.Unlock()

	cb.OnSeekComplete(trackIndex, offset)
}

// SetRate implements Transport.
func (n *Null) SetRate(rate float64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.rate = rate
	n.record("rate")
	n.logger.Debug("transport rate", "rate", rate)
	return nil
}

func (n *Null) record(call string) {
	n.calls = append(n.calls, call)
}

// Status is what a Null transport was last told.
type Status struct {
	URLs       []string
	TrackIndex int
	Offset     float64
	Rate       float64
	Playing    bool
}

// Status returns a copy of the last commanded state.
func (n *Null) Status() Status {
	n.mu.Lock()
	defer n.mu.Unlock()
	return Status{
		URLs:       append([]string(nil), n.urls...),
		TrackIndex: n.trackIndex,
		Offset:     n.offset,
		Rate:       n.rate,
		Playing:    n.playing,
	}
}

// Calls returns the command names received so far, in order.
func (n *Null) Calls() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.calls...)
}

// Package playback is the playback lifecycle engine.
//
// Each state is its own type carrying only the data that is meaningful in
// that state: only Seeking has a seek target, only Paused has a pause
// timestamp, only Failed has an error. Transition is the single function
// that moves between them.
package playback

import "time"

// Status names a state.
type Status string

// Playback statuses.
const (
	StatusIdle      Status = "idle"
	StatusLoading   Status = "loading"
	StatusReady     Status = "ready"
	StatusPlaying   Status = "playing"
	StatusPaused    Status = "paused"
	StatusBuffering Status = "buffering"
	StatusSeeking   Status = "seeking"
	StatusError     Status = "error"
)

// State is one of Idle, Loading, Ready, Playing, Paused, Buffering,
// Seeking or Failed.
type State interface {
	Status() Status
	isState()
}

// BookRef identifies the book a session is about.
type BookRef struct {
	ID         string
	Title      string
	TrackCount int
}

// Active is the timeline context shared by every state after LOADED.
type Active struct {
	Book       BookRef
	Position   float64
	Duration   float64
	Rate       float64
	TrackIndex int
}

// Idle is the state before LOAD and after RESET.
type Idle struct{}

// Loading waits for the transport to report the book's timeline.
type Loading struct {
	Book BookRef
}

// Ready has a loaded timeline but no audio output.
type Ready struct {
	Active
}

// Playing is producing audio.
type Playing struct {
	Active
}

// Paused is halted by the listener. LastPauseTime is zero when the pause
// came from a completed seek rather than a PAUSE.
type Paused struct {
	Active
	LastPauseTime time.Time
}

// Buffering is playing but starved of data.
type Buffering struct {
	Active
}

// Seeking has a pending seek target. Position keeps the committed
// pre-seek value until SEEK_COMPLETE.
type Seeking struct {
	Active
	SeekPosition float64
}

// Failed carries a load or playback error. The book is kept so RETRY can
// reload it; the position is not.
type Failed struct {
	Book    BookRef
	Message string
	Code    string
}

func (Idle) Status() Status      { return StatusIdle }
func (Loading) Status() Status   { return StatusLoading }
func (Ready) Status() Status     { return StatusReady }
func (Playing) Status() Status   { return StatusPlaying }
func (Paused) Status() Status    { return StatusPaused }
func (Buffering) Status() Status { return StatusBuffering }
func (Seeking) Status() Status   { return StatusSeeking }
func (Failed) Status() Status    { return StatusError }

func (Idle) isState()      {}
func (Loading) isState()   {}
func (Ready) isState()     {}
func (Playing) isState()   {}
func (Paused) isState()    {}
func (Buffering) isState() {}
func (Seeking) isState()   {}
func (Failed) isState()    {}

// activeOf returns the timeline context of states that have one.
func activeOf(s State) (Active, bool) {
	switch st := s.(type) {
	case Ready:
		return st.Active, true
	case Playing:
		return st.Active, true
	case Paused:
		return st.Active, true
	case Buffering:
		return st.Active, true
	case Seeking:
		return st.Active, true
	default:
		return Active{}, false
	}
}

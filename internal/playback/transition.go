package playback

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/listenupapp/listenup-player/internal/playbackrate"
	"github.com/listenupapp/listenup-player/internal/timeline"
)

// DefaultErrorMessage replaces an empty ERROR message.
const DefaultErrorMessage = "unknown playback error"

var (
	// ErrNotAccepted is matched by rejections of events the current state ignores.
	ErrNotAccepted = errors.New("event not accepted in current state")

	// ErrInvalidInput is matched by rejections of malformed event payloads.
	ErrInvalidInput = errors.New("invalid event input")
)

// TransitionError describes a rejected event.
type TransitionError struct {
	From   Status
	Event  string
	Reason error
	Detail string
}

func (e *TransitionError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s in %s: %v: %s", e.Event, e.From, e.Reason, e.Detail)
	}
	return fmt.Sprintf("%s in %s: %v", e.Event, e.From, e.Reason)
}

func (e *TransitionError) Unwrap() error {
	return e.Reason
}

func notAccepted(s State, e Event) error {
	return &TransitionError{From: s.Status(), Event: e.Name(), Reason: ErrNotAccepted}
}

func invalid(s State, e Event, format string, args ...any) error {
	return &TransitionError{
		From:   s.Status(),
		Event:  e.Name(),
		Reason: ErrInvalidInput,
		Detail: fmt.Sprintf(format, args...),
	}
}

// Transition computes the state that follows s on event e. A rejected
// event returns s unchanged together with a *TransitionError.
func Transition(s State, e Event, now time.Time) (State, error) {
	switch ev := e.(type) {
	case Load:
		return onLoad(s, ev)
	case Loaded:
		return onLoaded(s, ev)
	case Play:
		return onPlay(s, ev)
	case Pause:
		return onPause(s, ev, now)
	case Stop:
		return onStop(s, ev)
	case Seek:
		return onSeek(s, ev)
	case SeekComplete:
		return onSeekComplete(s, ev)
	case PositionUpdate:
		return onPositionUpdate(s, ev)
	case RateChange:
		return onRateChange(s, ev)
	case TrackChange:
		return onTrackChange(s, ev)
	case BufferStart:
		return onBufferStart(s, ev)
	case BufferEnd:
		return onBufferEnd(s, ev)
	case Error:
		return onError(s, ev)
	case Retry:
		return onRetry(s, ev)
	case Reset:
		return Idle{}, nil
	default:
		return s, &TransitionError{From: s.Status(), Event: fmt.Sprintf("%T", e), Reason: ErrInvalidInput, Detail: "unknown event"}
	}
}

func onLoad(s State, e Load) (State, error) {
	if _, ok := s.(Idle); !ok {
		return s, notAccepted(s, e)
	}
	if e.BookID == "" {
		return s, invalid(s, e, "book id is required")
	}
	if e.TrackCount < 0 {
		return s, invalid(s, e, "track count %d is negative", e.TrackCount)
	}
	return Loading{Book: BookRef{ID: e.BookID, Title: e.Title, TrackCount: e.TrackCount}}, nil
}

func onLoaded(s State, e Loaded) (State, error) {
	st, ok := s.(Loading)
	if !ok {
		return s, notAccepted(s, e)
	}
	if !finite(e.Duration) || e.Duration < 0 {
		return s, invalid(s, e, "duration %v is not a non-negative number", e.Duration)
	}
	if !finite(e.Position) {
		return s, invalid(s, e, "position %v is not a number", e.Position)
	}
	if e.TrackIndex < 0 || (st.Book.TrackCount > 0 && e.TrackIndex >= st.Book.TrackCount) {
		return s, invalid(s, e, "track index %d outside [0, %d)", e.TrackIndex, st.Book.TrackCount)
	}
	rate := playbackrate.Default
	if e.Rate != 0 {
		rate = playbackrate.Clamp(e.Rate)
	}
	return Ready{Active: Active{
		Book:       st.Book,
		Position:   timeline.ClampTo(e.Position, e.Duration),
		Duration:   e.Duration,
		Rate:       rate,
		TrackIndex: e.TrackIndex,
	}}, nil
}

func onPlay(s State, e Play) (State, error) {
	switch st := s.(type) {
	case Ready:
		return Playing{Active: st.Active}, nil
	case Paused:
		return Playing{Active: st.Active}, nil
	case Buffering:
		return Playing{Active: st.Active}, nil
	default:
		return s, notAccepted(s, e)
	}
}

func onPause(s State, e Pause, now time.Time) (State, error) {
	switch st := s.(type) {
	case Playing:
		return Paused{Active: st.Active, LastPauseTime: now}, nil
	case Buffering:
		return Paused{Active: st.Active, LastPauseTime: now}, nil
	default:
		return s, notAccepted(s, e)
	}
}

func onStop(s State, e Stop) (State, error) {
	switch st := s.(type) {
	case Playing:
		return Ready{Active: st.Active}, nil
	case Paused:
		return Ready{Active: st.Active}, nil
	default:
		return s, notAccepted(s, e)
	}
}

func onSeek(s State, e Seek) (State, error) {
	a, ok := activeOf(s)
	if !ok {
		return s, notAccepted(s, e)
	}
	if !inRange(e.Position, a.Duration) {
		return s, invalid(s, e, "position %v outside [0, %v]", e.Position, a.Duration)
	}
	// A seek while seeking only moves the pending target.
	return Seeking{Active: a, SeekPosition: e.Position}, nil
}

func onSeekComplete(s State, e SeekComplete) (State, error) {
	st, ok := s.(Seeking)
	if !ok {
		return s, notAccepted(s, e)
	}
	if !inRange(e.Position, st.Duration) {
		return s, invalid(s, e, "position %v outside [0, %v]", e.Position, st.Duration)
	}
	a := st.Active
	a.Position = e.Position
	return Paused{Active: a}, nil
}

func onPositionUpdate(s State, e PositionUpdate) (State, error) {
	if !finite(e.Position) {
		return s, invalid(s, e, "position %v is not a number", e.Position)
	}
	switch st := s.(type) {
	case Playing:
		st.Position = timeline.ClampTo(e.Position, st.Duration)
		return st, nil
	case Paused:
		st.Position = timeline.ClampTo(e.Position, st.Duration)
		return st, nil
	default:
		return s, notAccepted(s, e)
	}
}

func onRateChange(s State, e RateChange) (State, error) {
	switch st := s.(type) {
	case Playing:
		st.Rate = playbackrate.Clamp(e.Rate)
		return st, nil
	case Paused:
		st.Rate = playbackrate.Clamp(e.Rate)
		return st, nil
	default:
		return s, notAccepted(s, e)
	}
}

func onTrackChange(s State, e TrackChange) (State, error) {
	switch st := s.(type) {
	case Playing:
		if err := checkTrackIndex(s, e, st.Book); err != nil {
			return s, err
		}
		st.TrackIndex = e.Index
		return st, nil
	case Paused:
		if err := checkTrackIndex(s, e, st.Book); err != nil {
			return s, err
		}
		st.TrackIndex = e.Index
		return st, nil
	default:
		return s, notAccepted(s, e)
	}
}

func checkTrackIndex(s State, e TrackChange, book BookRef) error {
	if e.Index < 0 || e.Index >= book.TrackCount {
		return invalid(s, e, "track index %d outside [0, %d)", e.Index, book.TrackCount)
	}
	return nil
}

func onBufferStart(s State, e BufferStart) (State, error) {
	st, ok := s.(Playing)
	if !ok {
		return s, notAccepted(s, e)
	}
	return Buffering{Active: st.Active}, nil
}

func onBufferEnd(s State, e BufferEnd) (State, error) {
	st, ok := s.(Buffering)
	if !ok {
		return s, notAccepted(s, e)
	}
	return Playing{Active: st.Active}, nil
}

func onError(s State, e Error) (State, error) {
	msg := e.Message
	if msg == "" {
		msg = DefaultErrorMessage
	}
	if st, ok := s.(Loading); ok {
		return Failed{Book: st.Book, Message: msg, Code: e.Code}, nil
	}
	a, ok := activeOf(s)
	if !ok {
		return s, notAccepted(s, e)
	}
	return Failed{Book: a.Book, Message: msg, Code: e.Code}, nil
}

func onRetry(s State, e Retry) (State, error) {
	st, ok := s.(Failed)
	if !ok {
		return s, notAccepted(s, e)
	}
	return Loading{Book: st.Book}, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func inRange(pos, duration float64) bool {
	return finite(pos) && pos >= 0 && pos <= duration
}

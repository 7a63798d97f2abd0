package playback

import (
	"time"

	"github.com/listenupapp/listenup-player/internal/playbackrate"
)

// Session is the flat, read-only view of the current state that UI layers,
// persistence and subscribers consume.
type Session struct {
	SessionID         string     `json:"sessionId,omitempty"`
	Version           uint64     `json:"version"`
	Status            Status     `json:"status"`
	BookID            string     `json:"bookId,omitempty"`
	BookTitle         string     `json:"bookTitle,omitempty"`
	TrackCount        int        `json:"trackCount"`
	Position          float64    `json:"position"`
	Duration          float64    `json:"duration"`
	PlaybackRate      float64    `json:"playbackRate"`
	CurrentTrackIndex int        `json:"currentTrackIndex"`
	SeekPosition      *float64   `json:"seekPosition,omitempty"`
	ErrorMessage      string     `json:"errorMessage,omitempty"`
	ErrorCode         string     `json:"errorCode,omitempty"`
	LastPauseTime     *time.Time `json:"lastPauseTime,omitempty"`
}

// SessionOf flattens s. SessionID and Version are left for the Machine.
func SessionOf(s State) Session {
	out := Session{Status: s.Status(), PlaybackRate: playbackrate.Default}

	switch st := s.(type) {
	case Loading:
		out.setBook(st.Book)
	case Failed:
		out.setBook(st.Book)
		out.ErrorMessage = st.Message
		out.ErrorCode = st.Code
	case Paused:
		out.setActive(st.Active)
		if !st.LastPauseTime.IsZero() {
			t := st.LastPauseTime
			out.LastPauseTime = &t
		}
	case Seeking:
		out.setActive(st.Active)
		p := st.SeekPosition
		out.SeekPosition = &p
	default:
		if a, ok := activeOf(s); ok {
			out.setActive(a)
		}
	}
	return out
}

func (s *Session) setBook(b BookRef) {
	s.BookID = b.ID
	s.BookTitle = b.Title
	s.TrackCount = b.TrackCount
}

func (s *Session) setActive(a Active) {
	s.setBook(a.Book)
	s.Position = a.Position
	s.Duration = a.Duration
	s.PlaybackRate = a.Rate
	s.CurrentTrackIndex = a.TrackIndex
}

// DisplayPosition is the position to render: the pending target while
// seeking, the committed position otherwise.
func (s Session) DisplayPosition() float64 {
	if s.SeekPosition != nil {
		return *s.SeekPosition
	}
	return s.Position
}

// IsActive reports whether a book is loaded with a known timeline.
func (s Session) IsActive() bool {
	switch s.Status {
	case StatusReady, StatusPlaying, StatusPaused, StatusBuffering, StatusSeeking:
		return true
	default:
		return false
	}
}

// Clone returns a deep copy.
func (s Session) Clone() Session {
	if s.SeekPosition != nil {
		p := *s.SeekPosition
		s.SeekPosition = &p
	}
	if s.LastPauseTime != nil {
		t := *s.LastPauseTime
		s.LastPauseTime = &t
	}
	return s
}

package playback

// Event is an input to Transition.
type Event interface {
	Name() string
	isEvent()
}

// Load starts a session for a book.
type Load struct {
	BookID     string
	Title      string
	TrackCount int
}

// Loaded reports the timeline once the transport has opened the book.
// Rate is the resolved starting rate; zero means the default. TrackIndex
// is the track the transport opened at.
type Loaded struct {
	Duration   float64
	Position   float64
	Rate       float64
	TrackIndex int
}

// Play starts or resumes audio.
type Play struct{}

// Pause halts audio.
type Pause struct{}

// Stop halts audio and returns to Ready.
type Stop struct{}

// Seek requests a move to Position. Repeated seeks while seeking replace the target.
type Seek struct {
	Position float64
}

// SeekComplete reports that the transport reached Position.
type SeekComplete struct {
	Position float64
}

// PositionUpdate is a periodic transport tick or a sync correction.
type PositionUpdate struct {
	Position float64
}

// RateChange sets the playback rate.
type RateChange struct {
	Rate float64
}

// TrackChange reports the transport moved to another file.
type TrackChange struct {
	Index int
}

// BufferStart reports the transport ran out of data.
type BufferStart struct{}

// BufferEnd reports the transport has data again.
type BufferEnd struct{}

// Error reports a load or playback failure.
type Error struct {
	Message string
	Code    string
}

// Retry reloads a failed book.
type Retry struct{}

// Reset abandons the session from any state.
type Reset struct{}

func (Load) Name() string           { return "LOAD" }
func (Loaded) Name() string         { return "LOADED" }
func (Play) Name() string           { return "PLAY" }
func (Pause) Name() string          { return "PAUSE" }
func (Stop) Name() string           { return "STOP" }
func (Seek) Name() string           { return "SEEK" }
func (SeekComplete) Name() string   { return "SEEK_COMPLETE" }
func (PositionUpdate) Name() string { return "POSITION_UPDATE" }
func (RateChange) Name() string     { return "RATE_CHANGE" }
func (TrackChange) Name() string    { return "TRACK_CHANGE" }
func (BufferStart) Name() string    { return "BUFFER_START" }
func (BufferEnd) Name() string      { return "BUFFER_END" }
func (Error) Name() string          { return "ERROR" }
func (Retry) Name() string          { return "RETRY" }
func (Reset) Name() string          { return "RESET" }

func (Load) isEvent()           {}
func (Loaded) isEvent()         {}
func (Play) isEvent()           {}
func (Pause) isEvent()          {}
func (Stop) isEvent()           {}
func (Seek) isEvent()           {}
func (SeekComplete) isEvent()   {}
func (PositionUpdate) isEvent() {}
func (RateChange) isEvent()     {}
func (TrackChange) isEvent()    {}
func (BufferStart) isEvent()    {}
func (BufferEnd) isEvent()      {}
func (Error) isEvent()          {}
func (Retry) isEvent()          {}
func (Reset) isEvent()          {}

package playback

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testNow  = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	testBook = BookRef{ID: "book-1", Title: "The Hobbit", TrackCount: 3}
	testTL   = Active{Book: testBook, Position: 100, Duration: 5400, Rate: 1.0}
)

// Every state, so tables can assert what each one ignores.
func allStates() map[Status]State {
	return map[Status]State{
		StatusIdle:      Idle{},
		StatusLoading:   Loading{Book: testBook},
		StatusReady:     Ready{Active: testTL},
		StatusPlaying:   Playing{Active: testTL},
		StatusPaused:    Paused{Active: testTL, LastPauseTime: testNow.Add(-time.Minute)},
		StatusBuffering: Buffering{Active: testTL},
		StatusSeeking:   Seeking{Active: testTL, SeekPosition: 300},
		StatusError:     Failed{Book: testBook, Message: "boom", Code: "LOAD_FAILED"},
	}
}

func TestTransition_AcceptanceMatrix(t *testing.T) {
	tests := []struct {
		event    Event
		accepted map[Status]Status
	}{
		{Load{BookID: "book-2", TrackCount: 1}, map[Status]Status{StatusIdle: StatusLoading}},
		{Loaded{Duration: 5400}, map[Status]Status{StatusLoading: StatusReady}},
		{Play{}, map[Status]Status{
			StatusReady: StatusPlaying, StatusPaused: StatusPlaying, StatusBuffering: StatusPlaying,
		}},
		{Pause{}, map[Status]Status{StatusPlaying: StatusPaused, StatusBuffering: StatusPaused}},
		{Stop{}, map[Status]Status{StatusPlaying: StatusReady, StatusPaused: StatusReady}},
		{Seek{Position: 200}, map[Status]Status{
			StatusReady: StatusSeeking, StatusPlaying: StatusSeeking, StatusPaused: StatusSeeking,
			StatusBuffering: StatusSeeking, StatusSeeking: StatusSeeking,
		}},
		{SeekComplete{Position: 200}, map[Status]Status{StatusSeeking: StatusPaused}},
		{PositionUpdate{Position: 150}, map[Status]Status{StatusPlaying: StatusPlaying, StatusPaused: StatusPaused}},
		{RateChange{Rate: 1.5}, map[Status]Status{StatusPlaying: StatusPlaying, StatusPaused: StatusPaused}},
		{TrackChange{Index: 1}, map[Status]Status{StatusPlaying: StatusPlaying, StatusPaused: StatusPaused}},
		{BufferStart{}, map[Status]Status{StatusPlaying: StatusBuffering}},
		{BufferEnd{}, map[Status]Status{StatusBuffering: StatusPlaying}},
		{Error{Message: "decode failed"}, map[Status]Status{
			StatusLoading: StatusError, StatusReady: StatusError, StatusPlaying: StatusError,
			StatusPaused: StatusError, StatusBuffering: StatusError, StatusSeeking: StatusError,
		}},
		{Retry{}, map[Status]Status{StatusError: StatusLoading}},
		{Reset{}, map[Status]Status{
			StatusIdle: StatusIdle, StatusLoading: StatusIdle, StatusReady: StatusIdle,
			StatusPlaying: StatusIdle, StatusPaused: StatusIdle, StatusBuffering: StatusIdle,
			StatusSeeking: StatusIdle, StatusError: StatusIdle,
		}},
	}

	for _, tt := range tests {
		for from, state := range allStates() {
			t.Run(tt.event.Name()+"/"+string(from), func(t *testing.T) {
				next, err := Transition(state, tt.event, testNow)

				want, ok := tt.accepted[from]
				if !ok {
					require.Error(t, err)
					assert.ErrorIs(t, err, ErrNotAccepted)
					assert.Equal(t, state, next, "rejected event must not change state")
					return
				}
				require.NoError(t, err)
				assert.Equal(t, want, next.Status())
			})
		}
	}
}

func TestTransition_Loaded(t *testing.T) {
	loading := Loading{Book: testBook}

	t.Run("clamps position into duration", func(t *testing.T) {
		next, err := Transition(loading, Loaded{Duration: 5400, Position: 9000}, testNow)
		require.NoError(t, err)
		r := next.(Ready)
		assert.Equal(t, 5400.0, r.Position)
		assert.Equal(t, testBook, r.Book)
		assert.Equal(t, 1.0, r.Rate)
	})

	t.Run("negative position clamps to zero", func(t *testing.T) {
		next, err := Transition(loading, Loaded{Duration: 5400, Position: -3}, testNow)
		require.NoError(t, err)
		assert.Equal(t, 0.0, next.(Ready).Position)
	})

	t.Run("carries a clamped starting rate", func(t *testing.T) {
		next, err := Transition(loading, Loaded{Duration: 60, Rate: 5}, testNow)
		require.NoError(t, err)
		assert.Equal(t, 3.0, next.(Ready).Rate)
	})

	t.Run("carries the opening track", func(t *testing.T) {
		next, err := Transition(loading, Loaded{Duration: 60, TrackIndex: 2}, testNow)
		require.NoError(t, err)
		assert.Equal(t, 2, next.(Ready).TrackIndex)
	})

	t.Run("opening track out of range is invalid", func(t *testing.T) {
		next, err := Transition(loading, Loaded{Duration: 60, TrackIndex: testBook.TrackCount}, testNow)
		assert.ErrorIs(t, err, ErrInvalidInput)
		assert.Equal(t, loading, next)
	})

	t.Run("negative duration is invalid", func(t *testing.T) {
		next, err := Transition(loading, Loaded{Duration: -1}, testNow)
		assert.ErrorIs(t, err, ErrInvalidInput)
		assert.Equal(t, loading, next)
	})
}

func TestTransition_Load_RequiresBookID(t *testing.T) {
	_, err := Transition(Idle{}, Load{}, testNow)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestTransition_PauseStampsAndPlayClears(t *testing.T) {
	paused, err := Transition(Playing{Active: testTL}, Pause{}, testNow)
	require.NoError(t, err)
	assert.Equal(t, testNow, paused.(Paused).LastPauseTime)

	playing, err := Transition(paused, Play{}, testNow.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, Playing{Active: testTL}, playing)
}

func TestTransition_Seek(t *testing.T) {
	t.Run("keeps committed position", func(t *testing.T) {
		next, err := Transition(Playing{Active: testTL}, Seek{Position: 500}, testNow)
		require.NoError(t, err)
		s := next.(Seeking)
		assert.Equal(t, 500.0, s.SeekPosition)
		assert.Equal(t, 100.0, s.Position)
	})

	t.Run("chained seek replaces target", func(t *testing.T) {
		next, err := Transition(Seeking{Active: testTL, SeekPosition: 300}, Seek{Position: 900}, testNow)
		require.NoError(t, err)
		assert.Equal(t, 900.0, next.(Seeking).SeekPosition)
	})

	t.Run("boundaries are accepted", func(t *testing.T) {
		for _, pos := range []float64{0, 5400} {
			_, err := Transition(Ready{Active: testTL}, Seek{Position: pos}, testNow)
			assert.NoError(t, err)
		}
	})

	t.Run("out of range is invalid", func(t *testing.T) {
		for _, pos := range []float64{-0.1, 5400.1} {
			state := Playing{Active: testTL}
			next, err := Transition(state, Seek{Position: pos}, testNow)
			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.Equal(t, state, next)
		}
	})
}

func TestTransition_SeekComplete(t *testing.T) {
	seeking := Seeking{Active: testTL, SeekPosition: 500}

	next, err := Transition(seeking, SeekComplete{Position: 500}, testNow)
	require.NoError(t, err)

	p := next.(Paused)
	assert.Equal(t, 500.0, p.Position)
	assert.True(t, p.LastPauseTime.IsZero(), "seek pause must not trigger smart rewind")

	_, err = Transition(seeking, SeekComplete{Position: 6000}, testNow)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestTransition_PositionUpdate(t *testing.T) {
	t.Run("overshoot clamps to duration", func(t *testing.T) {
		next, err := Transition(Playing{Active: testTL}, PositionUpdate{Position: 5400.4}, testNow)
		require.NoError(t, err)
		assert.Equal(t, 5400.0, next.(Playing).Position)
	})

	t.Run("paused keeps its pause time", func(t *testing.T) {
		state := Paused{Active: testTL, LastPauseTime: testNow}
		next, err := Transition(state, PositionUpdate{Position: 42}, testNow)
		require.NoError(t, err)
		assert.Equal(t, 42.0, next.(Paused).Position)
		assert.Equal(t, testNow, next.(Paused).LastPauseTime)
	})
}

func TestTransition_RateChangeClamps(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{1.25, 1.25},
		{0.1, 0.5},
		{10, 3.0},
	}
	for _, tt := range tests {
		next, err := Transition(Playing{Active: testTL}, RateChange{Rate: tt.in}, testNow)
		require.NoError(t, err)
		assert.Equal(t, tt.want, next.(Playing).Rate)
	}
}

func TestTransition_TrackChangeBounds(t *testing.T) {
	for _, idx := range []int{-1, 3} {
		_, err := Transition(Paused{Active: testTL}, TrackChange{Index: idx}, testNow)
		assert.ErrorIs(t, err, ErrInvalidInput, "index %d", idx)
	}

	next, err := Transition(Paused{Active: testTL}, TrackChange{Index: 2}, testNow)
	require.NoError(t, err)
	assert.Equal(t, 2, next.(Paused).TrackIndex)
}

func TestTransition_Error(t *testing.T) {
	next, err := Transition(Playing{Active: testTL}, Error{Code: "PLAYBACK_FAILED"}, testNow)
	require.NoError(t, err)

	f := next.(Failed)
	assert.Equal(t, DefaultErrorMessage, f.Message)
	assert.Equal(t, "PLAYBACK_FAILED", f.Code)
	assert.Equal(t, testBook, f.Book)
}

func TestTransition_RetryKeepsBook(t *testing.T) {
	next, err := Transition(Failed{Book: testBook, Message: "boom"}, Retry{}, testNow)
	require.NoError(t, err)
	assert.Equal(t, Loading{Book: testBook}, next)
}

func TestTransitionError_Message(t *testing.T) {
	_, err := Transition(Idle{}, Play{}, testNow)

	var te *TransitionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, StatusIdle, te.From)
	assert.Equal(t, "PLAY", te.Event)
	assert.Contains(t, err.Error(), "not accepted")
}

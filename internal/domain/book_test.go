package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewTracks_Contiguous(t *testing.T) {
	tracks := NewTracks(
		[]string{"a.mp3", "b.mp3", "c.mp3"},
		[]string{"One", "Two"},
		[]float64{1800, 1800, 1800},
	)

	assert.Len(t, tracks, 3)
	assert.Equal(t, 0.0, tracks[0].StartOffset)
	assert.Equal(t, 1800.0, tracks[1].StartOffset)
	assert.Equal(t, 3600.0, tracks[2].StartOffset)
	assert.Equal(t, "Two", tracks[1].Title)
	assert.Empty(t, tracks[2].Title)

	for i := 1; i < len(tracks); i++ {
		assert.Equal(t, tracks[i-1].End(), tracks[i].StartOffset)
	}
}

func TestBook_TotalDuration(t *testing.T) {
	assert.Zero(t, (&Book{}).TotalDuration())

	b := &Book{Tracks: NewTracks([]string{"a", "b"}, nil, []float64{10, 20.5})}
	assert.Equal(t, 30.5, b.TotalDuration())
	assert.Equal(t, []string{"a", "b"}, b.URLs())
}

func TestChapter_Duration(t *testing.T) {
	assert.Equal(t, 60.0, Chapter{Start: 0, End: 60}.Duration())
	assert.Zero(t, Chapter{Start: 60, End: 60}.Duration())
	assert.Zero(t, Chapter{Start: 60, End: 10}.Duration())
}

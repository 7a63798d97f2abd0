// Package timeline maps book-global positions onto the per-file offsets a decoder needs.
//
// A book is an ordered list of contiguous tracks. Global positions are seconds
// from the start of the book; a Location is the (track, offset) pair inside it.
// Books have at most a few hundred files, so lookups are linear scans.
package timeline

import "github.com/listenupapp/listenup-player/internal/domain"

// Location is a concrete point inside one track.
type Location struct {
	TrackIndex      int     `json:"track_index"`
	PositionInTrack float64 `json:"position_in_track"`
}

// FindTrackForPosition returns the track containing globalPosition.
//
// Each track owns [StartOffset, StartOffset+Duration), so a position exactly
// on a boundary belongs to the later track at offset 0. Positions before the
// first track clamp to track 0 at offset 0; positions at or after the end
// clamp to the last track at its final offset. ok is false only for an
// empty track list.
func FindTrackForPosition(tracks []domain.Track, globalPosition float64) (loc Location, ok bool) {
	if len(tracks) == 0 {
		return Location{}, false
	}

	if globalPosition <= tracks[0].StartOffset {
		return Location{TrackIndex: 0, PositionInTrack: 0}, true
	}

	for i, t := range tracks {
		if globalPosition < t.StartOffset {
			// Gap between tracks: snap forward to the start of this one.
			return Location{TrackIndex: i, PositionInTrack: 0}, true
		}
		if globalPosition < t.End() {
			return Location{TrackIndex: i, PositionInTrack: globalPosition - t.StartOffset}, true
		}
	}

	last := len(tracks) - 1
	return Location{TrackIndex: last, PositionInTrack: tracks[last].Duration}, true
}

// GlobalPosition converts a track offset back to a book-global position.
// An out-of-range track index yields 0.
func GlobalPosition(tracks []domain.Track, trackIndex int, positionInTrack float64) float64 {
	if trackIndex < 0 || trackIndex >= len(tracks) {
		return 0
	}
	return tracks[trackIndex].StartOffset + positionInTrack
}

// TotalDuration returns the global end of the timeline.
func TotalDuration(tracks []domain.Track) float64 {
	if len(tracks) == 0 {
		return 0
	}
	return tracks[len(tracks)-1].End()
}

// Clamp limits position to [0, TotalDuration(tracks)].
func Clamp(tracks []domain.Track, position float64) float64 {
	return ClampTo(position, TotalDuration(tracks))
}

// ClampTo limits position to [0, duration]. A non-positive duration pins to 0.
func ClampTo(position, duration float64) float64 {
	if position < 0 || duration <= 0 {
		return 0
	}
	if position > duration {
		return duration
	}
	return position
}

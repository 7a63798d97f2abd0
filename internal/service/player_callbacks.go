package service

import (
	"github.com/listenupapp/listenup-player/internal/playback"
	"github.com/listenupapp/listenup-player/internal/timeline"
	"github.com/listenupapp/listenup-player/internal/transport"
)

// The On* methods are called by the transport from any goroutine. They
// queue work for the loop and return immediately.

var _ transport.Callbacks = (*Player)(nil)

// OnLoaded reports that the decoder finished preparing the book. A
// non-positive duration falls back to the track list total.
func (p *Player) OnLoaded(duration, position float64) {
	p.post(func() {
		if p.book == nil || p.machine.State().Status() != playback.StatusLoading {
			return
		}
		if duration <= 0 {
			duration = p.book.TotalDuration()
		}
		p.stopLoad()
		p.markLoaded(duration, position)
	})
}

// OnPositionTick reports the decoder's position within a track.
func (p *Player) OnPositionTick(trackIndex int, offsetInTrack float64) {
	p.post(func() {
		if p.book == nil {
			return
		}
		snap := p.machine.Snapshot()
		if snap.Status != playback.StatusPlaying && snap.Status != playback.StatusPaused {
			return
		}

		if trackIndex != snap.CurrentTrackIndex {
			if _, err := p.send(playback.TrackChange{Index: trackIndex}); err != nil {
				p.logger.Warn("track change rejected", "track_index", trackIndex, "error", err)
				return
			}
		}

		position := timeline.GlobalPosition(p.book.Tracks, trackIndex, offsetInTrack)
		if _, err := p.send(playback.PositionUpdate{Position: position}); err != nil {
			p.logger.Debug("position tick rejected", "error", err)
			return
		}
		p.saveProgress(false)
	})
}

// OnBufferStart reports a stall waiting for data.
func (p *Player) OnBufferStart() {
	p.post(func() {
		if _, err := p.send(playback.BufferStart{}); err != nil {
			p.logger.Debug("buffer start ignored", "error", err)
		}
	})
}

// OnBufferEnd reports that data is flowing again.
func (p *Player) OnBufferEnd() {
	p.post(func() {
		if _, err := p.send(playback.BufferEnd{}); err != nil {
			p.logger.Debug("buffer end ignored", "error", err)
		}
	})
}

// OnSeekComplete reports where the decoder landed after a seek. The book
// pauses there, and resumes if it was playing when the seek began.
func (p *Player) OnSeekComplete(trackIndex int, offset float64) {
	p.post(func() {
		if p.book == nil {
			return
		}
		snap := p.machine.Snapshot()
		if snap.Status != playback.StatusSeeking {
			p.logger.Debug("stale seek completion", "status", snap.Status)
			return
		}

		position := timeline.ClampTo(timeline.GlobalPosition(p.book.Tracks, trackIndex, offset), snap.Duration)
		s, err := p.send(playback.SeekComplete{Position: position})
		if err != nil {
			p.logger.Warn("seek completion rejected", "error", err)
			return
		}
		if trackIndex != s.CurrentTrackIndex {
			if _, err := p.send(playback.TrackChange{Index: trackIndex}); err != nil {
				p.logger.Warn("track change rejected", "track_index", trackIndex, "error", err)
			}
		}
		p.saveProgress(true)

		if p.resumeAfterSeek {
			p.resumeAfterSeek = false
			if _, err := p.send(playback.Play{}); err != nil {
				p.logger.Warn("resume after seek rejected", "error", err)
				return
			}
			if err := p.transport.Play(); err != nil {
				p.logger.Warn("transport play failed", "error", err)
			}
		}
	})
}

// OnError reports a decoder failure. The position is saved before the
// session moves to error.
func (p *Player) OnError(message, code string) {
	p.post(func() {
		if p.machine.State().Status() == playback.StatusIdle {
			return
		}
		p.saveProgress(true)
		p.stopLoad()
		if _, err := p.send(playback.Error{Message: message, Code: code}); err != nil {
			p.logger.Warn("transport error ignored", "message", message, "error", err)
			return
		}
		p.bookLog.Error("playback error", "message", message, "code", code)
	})
}

package service

import (
	"context"
	"errors"
	"math"

	"github.com/listenupapp/listenup-player/internal/chapters"
	"github.com/listenupapp/listenup-player/internal/domain"
	domainerrors "github.com/listenupapp/listenup-player/internal/errors"
	"github.com/listenupapp/listenup-player/internal/logger"
	"github.com/listenupapp/listenup-player/internal/playback"
	"github.com/listenupapp/listenup-player/internal/playbackrate"
	"github.com/listenupapp/listenup-player/internal/reconcile"
	"github.com/listenupapp/listenup-player/internal/store"
	"github.com/listenupapp/listenup-player/internal/timeline"
)

// loadPlan is everything resolved before a book enters the machine.
type loadPlan struct {
	book     *domain.Book
	position float64
	rate     float64
	settings *domain.UserSettings
}

// Load opens bookID at its resume position. Any open book is saved and
// closed first; reopening the open book keeps its live position. Load
// returns once the book is loading; readiness is reported through the
// session.
func (p *Player) Load(ctx context.Context, bookID string) error {
	book, err := p.loader.LoadBook(ctx, bookID)
	if err != nil {
		return err
	}
	if len(book.Tracks) == 0 {
		return domainerrors.ErrLoadFailed.WithMessage("book " + bookID + " has no tracks")
	}

	plan := p.planLoad(ctx, book)
	return p.exec(ctx, func() error { return p.beginLoad(plan) })
}

// planLoad resolves the resume position, rate and settings for book.
// Store and sync failures degrade to defaults.
func (p *Player) planLoad(ctx context.Context, book *domain.Book) loadPlan {
	plan := loadPlan{book: book}

	settings, err := p.prefs.GetOrCreateUserSettings(ctx)
	if err != nil {
		p.logger.Warn("failed to read user settings, using defaults", "error", err)
		settings = domain.NewUserSettings()
	}
	plan.settings = settings

	prefs, err := p.prefs.GetAllBookPreferences(ctx)
	if err != nil {
		p.logger.Warn("failed to read book preferences", "error", err)
	}
	plan.rate = playbackrate.ForBook(book.ID, store.PlaybackSpeeds(prefs), settings.DefaultPlaybackSpeed)

	if pos, ok := p.openPosition(book.ID); ok {
		plan.position = pos
	} else {
		plan.position = p.resumePosition(ctx, book.ID)
	}
	plan.position = timeline.Clamp(book.Tracks, plan.position)
	return plan
}

// openPosition returns the live position when bookID is already open. Saves
// are throttled, so the store can lag behind it.
func (p *Player) openPosition(bookID string) (float64, bool) {
	snap := p.Snapshot()
	if snap.BookID != bookID || !snap.IsActive() {
		return 0, false
	}
	return snap.DisplayPosition(), true
}

func (p *Player) resumePosition(ctx context.Context, bookID string) float64 {
	if p.resolver != nil {
		rctx, cancel := context.WithTimeout(ctx, p.cfg.ResolveTimeout)
		res, err := p.resolver.Reconcile(rctx, bookID, reconcile.HintNone)
		cancel()
		if err == nil {
			if res.Record != nil && res.Record.IsFinished {
				return 0
			}
			return res.Position
		}
		p.logger.Warn("reconcile failed, using local progress", "book_id", bookID, "error", err)
	}

	rec, err := p.progress.GetProgress(ctx, bookID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return 0
	case err != nil:
		p.logger.Warn("failed to read progress", "book_id", bookID, "error", err)
		return 0
	case rec.IsFinished:
		// A finished book starts over.
		return 0
	}
	return rec.Position
}

func (p *Player) beginLoad(plan loadPlan) error {
	if p.machine.State().Status() != playback.StatusIdle {
		p.teardown()
	}

	s, err := p.send(playback.Load{
		BookID:     plan.book.ID,
		Title:      plan.book.Title,
		TrackCount: len(plan.book.Tracks),
	})
	if err != nil {
		return err
	}

	p.book = plan.book
	p.bookLog = logger.WithBook(p.logger, plan.book.ID, s.SessionID)
	p.current.Store(plan.book)
	p.plan = plan
	p.settings = plan.settings
	p.startTransportLoad()
	return nil
}

// startTransportLoad hands the files to the transport off the loop.
func (p *Player) startTransportLoad() {
	p.stopLoad()
	seq := p.loadSeq

	ctx, cancel := context.WithCancel(context.Background())
	p.cancelLoad = cancel

	loc, _ := timeline.FindTrackForPosition(p.plan.book.Tracks, p.plan.position)
	urls := p.plan.book.URLs()

	go func() {
		err := p.transport.Load(ctx, urls, loc.TrackIndex, loc.PositionInTrack)
		p.post(func() { p.finishLoad(seq, err) })
	}()
}

func (p *Player) finishLoad(seq uint64, err error) {
	if seq != p.loadSeq {
		return
	}
	if p.cancelLoad != nil {
		p.cancelLoad()
		p.cancelLoad = nil
	}

	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		p.bookLog.Error("transport load failed", "error", err)
		p.fail(err, domainerrors.CodeLoadFailed)
		return
	}

	p.markLoaded(p.book.TotalDuration(), p.plan.position)
}

// markLoaded moves Loading to Ready and applies the resolved rate.
func (p *Player) markLoaded(duration, position float64) {
	loc, _ := timeline.FindTrackForPosition(p.book.Tracks, timeline.ClampTo(position, duration))
	s, err := p.send(playback.Loaded{
		Duration:   duration,
		Position:   position,
		Rate:       p.plan.rate,
		TrackIndex: loc.TrackIndex,
	})
	if err != nil {
		p.logger.Debug("loaded ignored", "error", err)
		return
	}

	if err := p.transport.SetRate(s.PlaybackRate); err != nil {
		p.logger.Warn("transport rejected rate", "rate", s.PlaybackRate, "error", err)
	}
	p.bookLog.Info("book ready",
		"position", s.Position,
		"duration", s.Duration,
		"rate", s.PlaybackRate,
	)
}

// Play starts or resumes playback, rewinding first after a long pause.
func (p *Player) Play(ctx context.Context) error {
	return p.exec(ctx, func() error {
		if paused, ok := p.machine.State().(playback.Paused); ok {
			p.applySmartRewind(paused)
		}

		if _, err := p.send(playback.Play{}); err != nil {
			return err
		}
		p.resumeAfterSeek = false

		if err := p.transport.Play(); err != nil {
			p.fail(err, domainerrors.CodePlaybackFailed)
			return domainerrors.Wrap(err, domainerrors.CodePlaybackFailed, "start playback")
		}
		return nil
	})
}

func (p *Player) applySmartRewind(paused playback.Paused) {
	settings := p.userSettings()
	if !settings.SmartRewindEnabled || paused.LastPauseTime.IsZero() {
		return
	}

	secs := p.cfg.Rewind.Seconds(p.now().Sub(paused.LastPauseTime), settings.MaxRewindSec)
	if secs == 0 {
		return
	}

	target := math.Max(paused.Position-float64(secs), 0)
	p.logger.Debug("smart rewind", "seconds", secs, "from", paused.Position, "to", target)
	p.moveTo(target)
}

// moveTo repositions a playing or paused book without entering seeking.
func (p *Player) moveTo(target float64) {
	loc, ok := timeline.FindTrackForPosition(p.book.Tracks, target)
	if !ok {
		return
	}
	if loc.TrackIndex != p.machine.Snapshot().CurrentTrackIndex {
		if _, err := p.send(playback.TrackChange{Index: loc.TrackIndex}); err != nil {
			p.logger.Warn("track change rejected", "error", err)
			return
		}
	}
	if _, err := p.send(playback.PositionUpdate{Position: target}); err != nil {
		p.logger.Warn("position update rejected", "error", err)
		return
	}
	if err := p.transport.Seek(loc.TrackIndex, loc.PositionInTrack); err != nil {
		p.logger.Warn("transport seek failed", "error", err)
	}
}

// Pause pauses playback and saves the position.
func (p *Player) Pause(ctx context.Context) error {
	return p.exec(ctx, func() error {
		if _, err := p.send(playback.Pause{}); err != nil {
			return err
		}
		if err := p.transport.Pause(); err != nil {
			p.logger.Warn("transport pause failed", "error", err)
		}
		p.saveProgress(true)
		return nil
	})
}

// Stop halts playback, keeping the book loaded at its position.
func (p *Player) Stop(ctx context.Context) error {
	return p.exec(ctx, func() error {
		if _, err := p.send(playback.Stop{}); err != nil {
			return err
		}
		if err := p.transport.Pause(); err != nil {
			p.logger.Warn("transport pause failed", "error", err)
		}
		p.saveProgress(true)
		return nil
	})
}

// SeekTo jumps to a book-global position. Out-of-range targets are clamped.
func (p *Player) SeekTo(ctx context.Context, position float64) error {
	return p.exec(ctx, func() error { return p.seek(position, true) })
}

// Scrub moves the pending seek target while the listener drags, without
// touching the transport. CommitScrub finishes the drag.
func (p *Player) Scrub(ctx context.Context, position float64) error {
	return p.exec(ctx, func() error { return p.seek(position, false) })
}

// CommitScrub releases a drag, snapping onto a nearby chapter start.
func (p *Player) CommitScrub(ctx context.Context) error {
	return p.exec(ctx, func() error {
		snap := p.machine.Snapshot()
		if snap.Status != playback.StatusSeeking || snap.SeekPosition == nil {
			return domainerrors.InvalidTransition("no scrub in progress")
		}
		target := chapters.SnapToChapter(p.book.Chapters, *snap.SeekPosition, p.cfg.SnapThreshold)
		return p.seek(target, true)
	})
}

func (p *Player) seek(position float64, commit bool) error {
	if math.IsNaN(position) || math.IsInf(position, 0) {
		return domainerrors.Validation("seek position must be a finite number")
	}

	snap := p.machine.Snapshot()
	if p.book == nil || !snap.IsActive() {
		return domainerrors.InvalidTransition("cannot SEEK while " + string(snap.Status))
	}

	target := timeline.ClampTo(position, snap.Duration)
	if _, err := p.send(playback.Seek{Position: target}); err != nil {
		return err
	}
	if snap.Status != playback.StatusSeeking {
		p.resumeAfterSeek = snap.Status == playback.StatusPlaying || snap.Status == playback.StatusBuffering
	}

	if !commit {
		return nil
	}

	loc, _ := timeline.FindTrackForPosition(p.book.Tracks, target)
	if err := p.transport.Seek(loc.TrackIndex, loc.PositionInTrack); err != nil {
		p.fail(err, domainerrors.CodePlaybackFailed)
		return domainerrors.Wrap(err, domainerrors.CodePlaybackFailed, "seek")
	}
	return nil
}

// SkipForward jumps ahead by the configured skip interval.
func (p *Player) SkipForward(ctx context.Context) error {
	return p.exec(ctx, func() error {
		secs := float64(p.userSettings().SkipForwardSec)
		return p.seek(p.machine.Snapshot().DisplayPosition()+secs, true)
	})
}

// SkipBackward jumps back by the configured skip interval.
func (p *Player) SkipBackward(ctx context.Context) error {
	return p.exec(ctx, func() error {
		secs := float64(p.userSettings().SkipBackwardSec)
		return p.seek(p.machine.Snapshot().DisplayPosition()-secs, true)
	})
}

// NextChapter seeks to the start of the following chapter.
func (p *Player) NextChapter(ctx context.Context) error {
	return p.exec(ctx, func() error {
		if p.book == nil {
			return domainerrors.InvalidTransition("no book loaded")
		}
		idx, ok := chapters.NextChapterIndex(p.book.Chapters, p.machine.Snapshot().DisplayPosition())
		if !ok {
			return domainerrors.NotFound("already in the last chapter")
		}
		return p.seek(p.book.Chapters[idx].Start, true)
	})
}

// PreviousChapter restarts the current chapter, or goes to the previous one
// when already near its start.
func (p *Player) PreviousChapter(ctx context.Context) error {
	return p.exec(ctx, func() error {
		if p.book == nil {
			return domainerrors.InvalidTransition("no book loaded")
		}
		target := 0.0
		idx, ok := chapters.PreviousChapterIndex(p.book.Chapters, p.machine.Snapshot().DisplayPosition(), p.cfg.RestartThreshold)
		if ok {
			target = p.book.Chapters[idx].Start
		}
		return p.seek(target, true)
	})
}

// SetRate changes the playback rate and remembers it for this book.
func (p *Player) SetRate(ctx context.Context, rate float64) error {
	return p.exec(ctx, func() error { return p.setRate(rate) })
}

// CycleRate steps to the next rate on the standard ladder, wrapping at the top.
func (p *Player) CycleRate(ctx context.Context) error {
	return p.exec(ctx, func() error {
		return p.setRate(playbackrate.Next(p.machine.Snapshot().PlaybackRate))
	})
}

func (p *Player) setRate(rate float64) error {
	if math.IsNaN(rate) {
		return domainerrors.Validation("rate must be a number")
	}

	s, err := p.send(playback.RateChange{Rate: rate})
	if err != nil {
		return err
	}
	if err := p.transport.SetRate(s.PlaybackRate); err != nil {
		p.logger.Warn("transport rejected rate", "rate", s.PlaybackRate, "error", err)
	}

	bookID, applied := s.BookID, s.PlaybackRate
	p.enqueue(persistJob{
		name:   "book preferences",
		bookID: bookID,
		run: func(ctx context.Context) error {
			prefs, err := p.prefs.GetBookPreferences(ctx, bookID)
			if err != nil {
				if !errors.Is(err, store.ErrNotFound) {
					return err
				}
				prefs = domain.NewBookPreferences(bookID)
			}
			prefs.SetPlaybackSpeed(applied)
			return p.prefs.UpsertBookPreferences(ctx, prefs)
		},
	})
	return nil
}

// Retry reloads the book after an error.
func (p *Player) Retry(ctx context.Context) error {
	return p.exec(ctx, func() error {
		if _, err := p.send(playback.Retry{}); err != nil {
			return err
		}
		p.startTransportLoad()
		return nil
	})
}

// Reset saves and closes the current book, returning to idle.
func (p *Player) Reset(ctx context.Context) error {
	return p.exec(ctx, func() error {
		p.teardown()
		return nil
	})
}

// ApplySettings swaps in new device settings for the open book. Callers
// persist them; the next Load reads them from the store again.
func (p *Player) ApplySettings(ctx context.Context, settings *domain.UserSettings) error {
	if settings == nil {
		return domainerrors.Validation("settings are required")
	}
	s := *settings
	return p.exec(ctx, func() error {
		p.settings = &s
		return nil
	})
}

func (p *Player) teardown() {
	p.saveProgress(true)
	p.stopLoad()

	if p.machine.State().Status() != playback.StatusIdle {
		if err := p.transport.Pause(); err != nil {
			p.logger.Warn("transport pause failed", "error", err)
		}
		if _, err := p.send(playback.Reset{}); err != nil {
			p.logger.Warn("reset rejected", "error", err)
		}
	}

	p.book = nil
	p.current.Store(nil)
	p.plan = loadPlan{}
	p.resumeAfterSeek = false
}

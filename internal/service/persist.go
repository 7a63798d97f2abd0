package service

import (
	"context"

	"github.com/listenupapp/listenup-player/internal/domain"
)

// saveProgress queues a write of the current position. Unforced saves are
// throttled to one per SaveInterval.
func (p *Player) saveProgress(force bool) {
	if p.book == nil {
		return
	}
	snap := p.machine.Snapshot()
	if !snap.IsActive() {
		return
	}
	// A retry reopens the book where the listener was, not where it was loaded.
	p.plan.position = snap.DisplayPosition()

	now := p.now()
	if !force && !p.lastSave.IsZero() && now.Sub(p.lastSave) < p.cfg.SaveInterval {
		return
	}
	p.lastSave = now

	rec := domain.NewProgressRecord(snap.BookID, snap.DisplayPosition(), snap.Duration, now)
	p.enqueue(persistJob{
		name:   "progress",
		bookID: rec.BookID,
		run: func(ctx context.Context) error {
			if err := p.progress.SetProgress(ctx, rec.BookID, rec); err != nil {
				return err
			}
			for _, fn := range p.onSaved {
				fn(rec.Clone())
			}
			return nil
		},
	})
}

// enqueue hands a write to the persistence goroutine. When the queue is
// full the write is dropped; the next save carries a newer position.
func (p *Player) enqueue(job persistJob) {
	select {
	case p.jobs <- job:
	default:
		p.logger.Warn("persistence queue full, dropping write", "job", job.name, "book_id", job.bookID)
	}
}

// persistLoop runs writes in order until the queue is closed.
func (p *Player) persistLoop(done chan<- struct{}) {
	defer close(done)
	for job := range p.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), p.cfg.StoreTimeout)
		if err := job.run(ctx); err != nil {
			p.logger.Warn("background write failed", "job", job.name, "book_id", job.bookID, "error", err)
		}
		cancel()
	}
}

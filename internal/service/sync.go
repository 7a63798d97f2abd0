package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/listenupapp/listenup-player/internal/domain"
	domainerrors "github.com/listenupapp/listenup-player/internal/errors"
	"github.com/listenupapp/listenup-player/internal/ratelimit"
	"github.com/listenupapp/listenup-player/internal/reconcile"
	"github.com/listenupapp/listenup-player/internal/sse"
	"github.com/listenupapp/listenup-player/internal/store"
)

// SyncClient is the server side of progress sync. A nil record from
// FetchServerProgress means the server has none.
type SyncClient interface {
	FetchServerProgress(ctx context.Context, bookID string) (*domain.ProgressRecord, error)
	PushProgress(ctx context.Context, bookID string, record *domain.ProgressRecord) error
}

// SyncConfig tunes the sync service.
type SyncConfig struct {
	// Strategy names the reconcile strategy ("recency", "furthest", "server").
	Strategy string
	Options  reconcile.Options
	// PushInterval is the minimum spacing of pushes for one book.
	PushInterval time.Duration
	// Timeout bounds each background push.
	Timeout time.Duration
}

// SyncService reconciles local progress with the server and pushes local
// changes in the background, at most once per PushInterval per book.
type SyncService struct {
	local  ProgressStore
	client SyncClient
	events store.EventEmitter
	logger *slog.Logger
	cfg    SyncConfig

	limiter *ratelimit.KeyedRateLimiter
	wake    chan struct{}

	mu      sync.Mutex
	pending map[string]*domain.ProgressRecord
}

// NewSyncService creates a sync service. An unknown strategy is an error.
func NewSyncService(local ProgressStore, client SyncClient, events store.EventEmitter, cfg SyncConfig, logger *slog.Logger) (*SyncService, error) {
	if _, err := reconcile.StrategyByName(cfg.Strategy, cfg.Options); err != nil {
		return nil, domainerrors.Validation(err.Error())
	}
	if cfg.PushInterval <= 0 {
		cfg.PushInterval = 30 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if events == nil {
		events = store.NewNoopEmitter()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &SyncService{
		local:   local,
		client:  client,
		events:  events,
		logger:  logger,
		cfg:     cfg,
		limiter: ratelimit.Every(cfg.PushInterval, 1),
		wake:    make(chan struct{}, 1),
		pending: make(map[string]*domain.ProgressRecord),
	}, nil
}

// Reconcile fetches the server record for bookID, resolves it against the
// local one and applies the correction to whichever side is behind.
func (s *SyncService) Reconcile(ctx context.Context, bookID string, hint reconcile.Hint) (domain.ResolvedPosition, error) {
	local, err := s.local.GetProgress(ctx, bookID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return domain.ResolvedPosition{}, domainerrors.Wrapf(err, domainerrors.CodeInternal, "read local progress for %s", bookID)
		}
		local = nil
	}

	server, err := s.client.FetchServerProgress(ctx, bookID)
	if err != nil {
		s.events.Emit(sse.NewSyncFailedEvent(bookID, "fetch", err))
		return domain.ResolvedPosition{}, domainerrors.Wrapf(err, domainerrors.CodeSyncFailed, "fetch server progress for %s", bookID)
	}

	opts := s.cfg.Options
	opts.LocalHint = hint
	strategy, err := reconcile.StrategyByName(s.cfg.Strategy, opts)
	if err != nil {
		return domain.ResolvedPosition{}, domainerrors.Validation(err.Error())
	}
	res := strategy.Resolve(local, server)

	switch res.Correction {
	case domain.CorrectionPushLocal:
		if err := s.local.SetProgress(ctx, bookID, res.Record); err != nil {
			return res, domainerrors.Wrapf(err, domainerrors.CodeInternal, "write reconciled progress for %s", bookID)
		}
	case domain.CorrectionPushServer:
		if err := s.client.PushProgress(ctx, bookID, res.Record); err != nil {
			s.events.Emit(sse.NewSyncFailedEvent(bookID, "push", err))
			return res, domainerrors.Wrapf(err, domainerrors.CodeSyncFailed, "push progress for %s", bookID)
		}
		s.drop(bookID, res.Record)
	}

	s.logger.Info("progress reconciled",
		"book_id", bookID,
		"position", res.Position,
		"source", res.Source,
		"correction", res.Correction,
	)
	s.events.Emit(sse.NewProgressReconciledEvent(bookID, res))
	return res, nil
}

// SchedulePush queues rec for upload. The first change for a book is pushed
// right away; later ones wait for the next PushInterval tick.
func (s *SyncService) SchedulePush(rec *domain.ProgressRecord) {
	if rec == nil || rec.BookID == "" {
		return
	}

	s.mu.Lock()
	s.pending[rec.BookID] = rec.Clone()
	s.mu.Unlock()

	if s.limiter.Allow(rec.BookID) {
		select {
		case s.wake <- struct{}{}:
		default:
		}
	}
}

// Pending returns how many books are waiting to be pushed.
func (s *SyncService) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Run pushes queued progress until ctx is cancelled, then makes a final
// attempt bounded by the push timeout.
func (s *SyncService) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.PushInterval)
	defer ticker.Stop()
	defer s.limiter.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
			err := s.Flush(flushCtx)
			cancel()
			if err != nil {
				s.logger.Warn("final sync flush failed", "error", err, "pending", s.Pending())
			}
			return nil
		case <-s.wake:
			s.flushLogged(ctx)
		case <-ticker.C:
			s.flushLogged(ctx)
		}
	}
}

func (s *SyncService) flushLogged(ctx context.Context) {
	if err := s.Flush(ctx); err != nil {
		s.logger.Warn("sync push failed", "error", err, "pending", s.Pending())
	}
}

// Flush pushes every queued record. Failed records stay queued unless a
// newer one arrived meanwhile.
func (s *SyncService) Flush(ctx context.Context) error {
	s.mu.Lock()
	batch := s.pending
	s.pending = make(map[string]*domain.ProgressRecord)
	s.mu.Unlock()

	var errs []error
	for bookID, rec := range batch {
		pushCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
		err := s.client.PushProgress(pushCtx, bookID, rec)
		cancel()

		if err != nil {
			s.events.Emit(sse.NewSyncFailedEvent(bookID, "push", err))
			s.requeue(rec)
			errs = append(errs, domainerrors.Wrapf(err, domainerrors.CodeSyncFailed, "push progress for %s", bookID))
			continue
		}
		s.logger.Debug("progress pushed", "book_id", bookID, "position", rec.Position)
	}
	return errors.Join(errs...)
}

// PushNow uploads the local record for bookID immediately.
func (s *SyncService) PushNow(ctx context.Context, bookID string) error {
	rec, err := s.local.GetProgress(ctx, bookID)
	if err != nil {
		return err
	}
	if err := s.client.PushProgress(ctx, bookID, rec); err != nil {
		s.events.Emit(sse.NewSyncFailedEvent(bookID, "push", err))
		return domainerrors.Wrapf(err, domainerrors.CodeSyncFailed, "push progress for %s", bookID)
	}
	s.drop(bookID, rec)
	return nil
}

func (s *SyncService) requeue(rec *domain.ProgressRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, newer := s.pending[rec.BookID]; !newer {
		s.pending[rec.BookID] = rec
	}
}

// drop forgets a queued record that is no newer than pushed.
func (s *SyncService) drop(bookID string, pushed *domain.ProgressRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.pending[bookID]; ok && !rec.UpdatedAt.After(pushed.UpdatedAt) {
		delete(s.pending, bookID)
	}
}

package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/listenup-player/internal/domain"
	domainerrors "github.com/listenupapp/listenup-player/internal/errors"
	"github.com/listenupapp/listenup-player/internal/reconcile"
	"github.com/listenupapp/listenup-player/internal/sse"
	"github.com/listenupapp/listenup-player/internal/store"
)

// fakeSyncClient is an in-memory server.
type fakeSyncClient struct {
	mu       sync.Mutex
	records  map[string]*domain.ProgressRecord
	pushed   []*domain.ProgressRecord
	fetchErr error
	pushErr  error
}

func newFakeSyncClient() *fakeSyncClient {
	return &fakeSyncClient{records: make(map[string]*domain.ProgressRecord)}
}

func (f *fakeSyncClient) FetchServerProgress(_ context.Context, bookID string) (*domain.ProgressRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.records[bookID].Clone(), nil
}

func (f *fakeSyncClient) PushProgress(_ context.Context, bookID string, rec *domain.ProgressRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pushErr != nil {
		return f.pushErr
	}
	f.records[bookID] = rec.Clone()
	f.pushed = append(f.pushed, rec.Clone())
	return nil
}

func (f *fakeSyncClient) setPushErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushErr = err
}

func (f *fakeSyncClient) pushedPositions() []float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]float64, len(f.pushed))
	for i, rec := range f.pushed {
		out[i] = rec.Position
	}
	return out
}

func setupSync(t *testing.T, cfg SyncConfig) (*SyncService, *store.Store, *fakeSyncClient, *recordingEmitter) {
	t.Helper()

	st, err := store.New(t.TempDir(), nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	client := newFakeSyncClient()
	events := &recordingEmitter{}
	svc, err := NewSyncService(st, client, events, cfg, nil)
	require.NoError(t, err)
	return svc, st, client, events
}

func defaultSyncConfig() SyncConfig {
	return SyncConfig{
		Strategy:     reconcile.StrategyRecency,
		Options:      reconcile.DefaultOptions(),
		PushInterval: time.Hour,
		Timeout:      time.Second,
	}
}

func TestNewSyncService_UnknownStrategy(t *testing.T) {
	cfg := defaultSyncConfig()
	cfg.Strategy = "newest-wins"

	_, err := NewSyncService(nil, newFakeSyncClient(), nil, cfg, nil)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestSyncService_Reconcile(t *testing.T) {
	ctx := context.Background()

	t.Run("local only is pushed to the server", func(t *testing.T) {
		svc, st, client, _ := setupSync(t, defaultSyncConfig())
		require.NoError(t, st.SetProgress(ctx, "book-1", domain.NewProgressRecord("book-1", 300, 1800, testStart)))

		res, err := svc.Reconcile(ctx, "book-1", reconcile.HintNone)
		require.NoError(t, err)
		assert.Equal(t, 300.0, res.Position)
		assert.Equal(t, domain.SourceLocal, res.Source)
		assert.Equal(t, domain.CorrectionPushServer, res.Correction)
		assert.Equal(t, []float64{300}, client.pushedPositions())
	})

	t.Run("server only is written locally", func(t *testing.T) {
		svc, st, client, _ := setupSync(t, defaultSyncConfig())
		client.records["book-1"] = domain.NewProgressRecord("book-1", 900, 1800, testStart)

		res, err := svc.Reconcile(ctx, "book-1", reconcile.HintNone)
		require.NoError(t, err)
		assert.Equal(t, 900.0, res.Position)
		assert.Equal(t, domain.CorrectionPushLocal, res.Correction)

		local, err := st.GetProgress(ctx, "book-1")
		require.NoError(t, err)
		assert.Equal(t, 900.0, local.Position)
		assert.Empty(t, client.pushedPositions())
	})

	t.Run("newer server record wins", func(t *testing.T) {
		svc, st, client, events := setupSync(t, defaultSyncConfig())
		require.NoError(t, st.SetProgress(ctx, "book-1", domain.NewProgressRecord("book-1", 300, 1800, testStart)))
		client.records["book-1"] = domain.NewProgressRecord("book-1", 120, 1800, testStart.Add(time.Minute))

		res, err := svc.Reconcile(ctx, "book-1", reconcile.HintNone)
		require.NoError(t, err)
		assert.Equal(t, 120.0, res.Position, "a deliberate rewind on another device is kept")
		assert.Equal(t, domain.SourceServer, res.Source)

		local, err := st.GetProgress(ctx, "book-1")
		require.NoError(t, err)
		assert.Equal(t, 120.0, local.Position)
		assert.Contains(t, events.types(), sse.EventProgressReconciled)
	})

	t.Run("agreeing records need no writes", func(t *testing.T) {
		svc, st, client, _ := setupSync(t, defaultSyncConfig())
		require.NoError(t, st.SetProgress(ctx, "book-1", domain.NewProgressRecord("book-1", 300, 1800, testStart)))
		client.records["book-1"] = domain.NewProgressRecord("book-1", 300.4, 1800, testStart.Add(time.Minute))

		res, err := svc.Reconcile(ctx, "book-1", reconcile.HintNone)
		require.NoError(t, err)
		assert.Equal(t, domain.CorrectionNone, res.Correction)
		assert.Empty(t, client.pushedPositions())
	})

	t.Run("nothing anywhere starts at zero", func(t *testing.T) {
		svc, _, _, _ := setupSync(t, defaultSyncConfig())

		res, err := svc.Reconcile(ctx, "book-1", reconcile.HintNone)
		require.NoError(t, err)
		assert.Equal(t, 0.0, res.Position)
		assert.Equal(t, domain.CorrectionNone, res.Correction)
	})

	t.Run("furthest strategy never moves back", func(t *testing.T) {
		cfg := defaultSyncConfig()
		cfg.Strategy = reconcile.StrategyFurthestAlong
		svc, st, client, _ := setupSync(t, cfg)
		require.NoError(t, st.SetProgress(ctx, "book-1", domain.NewProgressRecord("book-1", 300, 1800, testStart)))
		client.records["book-1"] = domain.NewProgressRecord("book-1", 120, 1800, testStart.Add(time.Minute))

		res, err := svc.Reconcile(ctx, "book-1", reconcile.HintNone)
		require.NoError(t, err)
		assert.Equal(t, 300.0, res.Position)
		assert.Equal(t, []float64{300}, client.pushedPositions())
	})
}

func TestSyncService_ReconcileFetchFailure(t *testing.T) {
	svc, _, client, events := setupSync(t, defaultSyncConfig())
	client.fetchErr = errors.New("connection refused")

	_, err := svc.Reconcile(context.Background(), "book-1", reconcile.HintNone)
	assert.ErrorIs(t, err, domainerrors.ErrSyncFailed)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Contains(t, events.types(), sse.EventSyncFailed)
}

func TestSyncService_ReconcilePushFailure(t *testing.T) {
	ctx := context.Background()
	svc, st, client, _ := setupSync(t, defaultSyncConfig())
	require.NoError(t, st.SetProgress(ctx, "book-1", domain.NewProgressRecord("book-1", 300, 1800, testStart)))
	client.setPushErr(errors.New("503"))

	res, err := svc.Reconcile(ctx, "book-1", reconcile.HintNone)
	assert.ErrorIs(t, err, domainerrors.ErrSyncFailed)
	assert.Equal(t, 300.0, res.Position, "the resolved position is still usable")
}

func TestSyncService_FlushKeepsFailedPushes(t *testing.T) {
	ctx := context.Background()
	svc, _, client, events := setupSync(t, defaultSyncConfig())
	client.setPushErr(errors.New("offline"))

	svc.SchedulePush(domain.NewProgressRecord("book-1", 42, 1800, testStart))
	svc.SchedulePush(domain.NewProgressRecord("book-2", 7, 600, testStart))
	svc.SchedulePush(nil)
	assert.Equal(t, 2, svc.Pending())

	err := svc.Flush(ctx)
	assert.ErrorIs(t, err, domainerrors.ErrSyncFailed)
	assert.Equal(t, 2, svc.Pending())
	assert.Contains(t, events.types(), sse.EventSyncFailed)

	client.setPushErr(nil)
	require.NoError(t, svc.Flush(ctx))
	assert.Zero(t, svc.Pending())
	assert.ElementsMatch(t, []float64{42, 7}, client.pushedPositions())
}

func TestSyncService_PushNow(t *testing.T) {
	ctx := context.Background()
	svc, st, client, _ := setupSync(t, defaultSyncConfig())

	err := svc.PushNow(ctx, "book-1")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	rec := domain.NewProgressRecord("book-1", 500, 1800, testStart)
	require.NoError(t, st.SetProgress(ctx, "book-1", rec))
	svc.SchedulePush(rec)

	require.NoError(t, svc.PushNow(ctx, "book-1"))
	assert.Equal(t, []float64{500}, client.pushedPositions())
	assert.Zero(t, svc.Pending(), "the queued copy was already pushed")
}

func TestSyncService_RunPushesFirstChangeAndFlushesOnExit(t *testing.T) {
	svc, _, client, _ := setupSync(t, defaultSyncConfig())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = svc.Run(ctx)
		close(done)
	}()

	svc.SchedulePush(domain.NewProgressRecord("book-1", 10, 1800, testStart))
	require.Eventually(t, func() bool { return len(client.pushedPositions()) == 1 },
		2*time.Second, 5*time.Millisecond, "first change is pushed right away")

	svc.SchedulePush(domain.NewProgressRecord("book-1", 20, 1800, testStart.Add(time.Second)))
	svc.SchedulePush(domain.NewProgressRecord("book-1", 30, 1800, testStart.Add(2*time.Second)))
	assert.Equal(t, 1, svc.Pending(), "later changes for a book coalesce")

	cancel()
	<-done
	assert.Equal(t, []float64{10, 30}, client.pushedPositions())
	assert.Zero(t, svc.Pending())
}

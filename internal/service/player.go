package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/listenupapp/listenup-player/internal/chapters"
	"github.com/listenupapp/listenup-player/internal/domain"
	domainerrors "github.com/listenupapp/listenup-player/internal/errors"
	"github.com/listenupapp/listenup-player/internal/playback"
	"github.com/listenupapp/listenup-player/internal/reconcile"
	"github.com/listenupapp/listenup-player/internal/rewind"
	"github.com/listenupapp/listenup-player/internal/sse"
	"github.com/listenupapp/listenup-player/internal/store"
	"github.com/listenupapp/listenup-player/internal/transport"
)

// ProgressStore persists local listening progress.
type ProgressStore interface {
	GetProgress(ctx context.Context, bookID string) (*domain.ProgressRecord, error)
	SetProgress(ctx context.Context, bookID string, record *domain.ProgressRecord) error
}

// PreferenceStore persists per-book overrides and device settings.
type PreferenceStore interface {
	GetBookPreferences(ctx context.Context, bookID string) (*domain.BookPreferences, error)
	GetAllBookPreferences(ctx context.Context) ([]*domain.BookPreferences, error)
	UpsertBookPreferences(ctx context.Context, prefs *domain.BookPreferences) error
	GetOrCreateUserSettings(ctx context.Context) (*domain.UserSettings, error)
	UpsertUserSettings(ctx context.Context, settings *domain.UserSettings) error
}

// BookLoader resolves a book ID to its tracks and chapters.
type BookLoader interface {
	LoadBook(ctx context.Context, bookID string) (*domain.Book, error)
}

// PositionResolver reconciles local and server progress before a book starts.
type PositionResolver interface {
	Reconcile(ctx context.Context, bookID string, hint reconcile.Hint) (domain.ResolvedPosition, error)
}

// ErrPlayerStopped is returned for commands sent after the loop has exited.
var ErrPlayerStopped = domainerrors.Unavailable("player is not running")

const (
	commandBuffer = 64
	persistBuffer = 32
)

// PlayerConfig tunes the player.
type PlayerConfig struct {
	// SaveInterval throttles progress writes driven by position ticks.
	SaveInterval time.Duration
	// StoreTimeout bounds every background store write.
	StoreTimeout time.Duration
	// ResolveTimeout bounds reconciliation when a book is loaded.
	ResolveTimeout time.Duration

	Rewind           rewind.Curve
	SnapThreshold    float64
	RestartThreshold float64
}

// DefaultPlayerConfig returns the stock tuning.
func DefaultPlayerConfig() PlayerConfig {
	return PlayerConfig{
		SaveInterval:     10 * time.Second,
		StoreTimeout:     5 * time.Second,
		ResolveTimeout:   5 * time.Second,
		Rewind:           rewind.DefaultCurve(),
		SnapThreshold:    chapters.DefaultSnapThreshold,
		RestartThreshold: chapters.DefaultRestartThreshold,
	}
}

// PlayerOption configures optional Player collaborators.
type PlayerOption func(*Player)

// WithPositionResolver reconciles with the server before each book starts.
func WithPositionResolver(r PositionResolver) PlayerOption {
	return func(p *Player) { p.resolver = r }
}

// WithPlayerClock overrides the time source.
func WithPlayerClock(now func() time.Time) PlayerOption {
	return func(p *Player) { p.now = now }
}

// WithMachineOptions passes options through to the state machine.
func WithMachineOptions(opts ...playback.Option) PlayerOption {
	return func(p *Player) { p.machineOpts = append(p.machineOpts, opts...) }
}

// persistJob is a background store write.
type persistJob struct {
	name   string
	bookID string
	run    func(ctx context.Context) error
}

// Player owns the playback state machine and serializes every command and
// transport callback through a single goroutine. Readers use Snapshot.
type Player struct {
	transport transport.Transport
	loader    BookLoader
	progress  ProgressStore
	prefs     PreferenceStore
	resolver  PositionResolver
	events    store.EventEmitter
	logger    *slog.Logger
	cfg       PlayerConfig
	now       func() time.Time

	machine     *playback.Machine
	machineOpts []playback.Option

	cmds     chan func()
	jobs     chan persistJob
	done     chan struct{}
	running  atomic.Bool
	snapshot atomic.Pointer[playback.Session]
	current  atomic.Pointer[domain.Book]
	onSaved  []func(*domain.ProgressRecord)

	// Owned by the loop goroutine.
	book            *domain.Book
	bookLog         *slog.Logger
	plan            loadPlan
	settings        *domain.UserSettings
	loadSeq         uint64
	cancelLoad      context.CancelFunc
	resumeAfterSeek bool
	lastSave        time.Time
}

// NewPlayer creates a Player. Run must be started before commands are sent.
func NewPlayer(
	tp transport.Transport,
	loader BookLoader,
	progress ProgressStore,
	prefs PreferenceStore,
	events store.EventEmitter,
	cfg PlayerConfig,
	logger *slog.Logger,
	opts ...PlayerOption,
) *Player {
	if events == nil {
		events = store.NewNoopEmitter()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	defaults := DefaultPlayerConfig()
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = defaults.StoreTimeout
	}
	if cfg.ResolveTimeout <= 0 {
		cfg.ResolveTimeout = defaults.ResolveTimeout
	}
	if cfg.Rewind.Steps == nil && cfg.Rewind.Saturate == 0 {
		cfg.Rewind = defaults.Rewind
	}

	p := &Player{
		transport: tp,
		loader:    loader,
		progress:  progress,
		prefs:     prefs,
		events:    events,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
		cmds:      make(chan func(), commandBuffer),
		jobs:      make(chan persistJob, persistBuffer),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}

	machineOpts := append([]playback.Option{
		playback.WithClock(p.now),
		playback.WithLogger(logger),
	}, p.machineOpts...)
	p.machine = playback.NewMachine(machineOpts...)
	p.machine.OnChange(p.publish)

	initial := p.machine.Snapshot()
	p.snapshot.Store(&initial)
	return p
}

// OnProgressSaved registers fn to run after each successful progress write.
// It must be called before Run.
func (p *Player) OnProgressSaved(fn func(*domain.ProgressRecord)) {
	p.onSaved = append(p.onSaved, fn)
}

// Snapshot returns the latest published session. Safe from any goroutine.
func (p *Player) Snapshot() playback.Session {
	return p.snapshot.Load().Clone()
}

// Book returns the loaded book, or nil.
func (p *Player) Book() *domain.Book {
	return p.current.Load()
}

// Run processes commands until ctx is cancelled. On exit it saves the
// current position and waits for pending writes.
func (p *Player) Run(ctx context.Context) error {
	if !p.running.CompareAndSwap(false, true) {
		return errors.New("player already running")
	}

	persisted := make(chan struct{})
	go p.persistLoop(persisted)

	p.logger.Info("player started")
	for {
		select {
		case <-ctx.Done():
			p.saveProgress(true)
			p.stopLoad()
			close(p.jobs)
			<-persisted
			close(p.done)
			p.logger.Info("player stopped")
			return nil
		case cmd := <-p.cmds:
			cmd()
		}
	}
}

// exec runs fn on the loop goroutine and waits for its result.
func (p *Player) exec(ctx context.Context, fn func() error) error {
	errc := make(chan error, 1)

	select {
	case p.cmds <- func() { errc <- fn() }:
	case <-p.done:
		return ErrPlayerStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-errc:
		return err
	case <-p.done:
		select {
		case err := <-errc:
			return err
		default:
			return ErrPlayerStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post queues fn without waiting. Used by transport callbacks.
func (p *Player) post(fn func()) {
	select {
	case p.cmds <- fn:
	case <-p.done:
	}
}

// send applies e and maps rejections onto coded errors.
func (p *Player) send(e playback.Event) (playback.Session, error) {
	s, err := p.machine.Send(e)
	return s, transitionError(err)
}

// publish runs on every accepted transition.
func (p *Player) publish(prev, next playback.Session) {
	p.snapshot.Store(&next)
	p.events.Emit(sse.NewSessionChangedEvent(prev, next))
	if next.Status == playback.StatusError && prev.Status != playback.StatusError {
		p.events.Emit(sse.NewPlayerErrorEvent(next))
	}
}

// transitionError turns a state machine rejection into a coded error.
func transitionError(err error) error {
	if err == nil {
		return nil
	}

	var te *playback.TransitionError
	if !errors.As(err, &te) {
		return err
	}
	if errors.Is(err, playback.ErrInvalidInput) {
		return domainerrors.ValidationWithDetails(te.Detail, map[string]string{
			"event":  te.Event,
			"status": string(te.From),
		})
	}
	return domainerrors.InvalidTransition(fmt.Sprintf("cannot %s while %s", te.Event, te.From))
}

// fail moves the machine to error after saving where the listener was.
func (p *Player) fail(err error, code domainerrors.Code) {
	p.saveProgress(true)
	p.stopLoad()
	if _, sendErr := p.send(playback.Error{Message: err.Error(), Code: string(code)}); sendErr != nil {
		p.logger.Warn("failed to record playback error", "error", err, "reject", sendErr)
	}
}

func (p *Player) stopLoad() {
	p.loadSeq++
	if p.cancelLoad != nil {
		p.cancelLoad()
		p.cancelLoad = nil
	}
}

func (p *Player) userSettings() *domain.UserSettings {
	if p.settings == nil {
		return domain.NewUserSettings()
	}
	return p.settings
}

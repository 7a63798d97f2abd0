// Package reconcile merges locally tracked progress with server-reported
// progress into one authoritative position.
//
// The two records are written by independently clocked devices, so clocks
// are only trusted to be "close enough": a record must lead by more than a
// recency window to win on time alone. Resolution is pure and idempotent;
// callers own the side effects named by the Correction.
package reconcile

import (
	"fmt"
	"math"
	"time"

	"github.com/listenupapp/listenup-player/internal/domain"
)

// Hint carries what the caller knows about the local record.
type Hint int

const (
	// HintNone means no extra knowledge.
	HintNone Hint = iota
	// HintStale marks the local record as known to be out of date.
	HintStale
	// HintReset marks the local record as deliberately reset by the listener.
	HintReset
)

// Options tunes resolution.
type Options struct {
	// Window is how far apart two UpdatedAt stamps may be and still count
	// as simultaneous writes.
	Window time.Duration
	// PositionEpsilon is the position difference, in seconds, below which
	// two records are considered to agree.
	PositionEpsilon float64
	// LocalHint breaks near-simultaneous ties when the local record is
	// known to be stale or reset.
	LocalHint Hint
}

// DefaultOptions returns the default policy: a 5s recency window and a 1s
// position tolerance. Inside the window the record further along wins.
func DefaultOptions() Options {
	return Options{
		Window:          5 * time.Second,
		PositionEpsilon: 1.0,
	}
}

// Strategy decides which record wins.
type Strategy interface {
	Resolve(local, server *domain.ProgressRecord) domain.ResolvedPosition
}

// Strategy names accepted by StrategyByName.
const (
	StrategyRecency             = "recency"
	StrategyFurthestAlong       = "furthest"
	StrategyServerAuthoritative = "server"
)

// StrategyByName returns the named strategy configured with opts.
func StrategyByName(name string, opts Options) (Strategy, error) {
	switch name {
	case "", StrategyRecency:
		return Recency{Options: opts}, nil
	case StrategyFurthestAlong:
		return FurthestAlong{PositionEpsilon: opts.PositionEpsilon}, nil
	case StrategyServerAuthoritative:
		return ServerAuthoritative{PositionEpsilon: opts.PositionEpsilon}, nil
	default:
		return nil, fmt.Errorf("unknown reconcile strategy %q", name)
	}
}

// Resolve reconciles with the default Recency strategy.
func Resolve(local, server *domain.ProgressRecord, opts Options) domain.ResolvedPosition {
	return Recency{Options: opts}.Resolve(local, server)
}

// Recency prefers the most recently written record, falling back to the
// record further along when both were written within Window of each other.
type Recency struct {
	Options
}

// Resolve implements Strategy.
func (r Recency) Resolve(local, server *domain.ProgressRecord) domain.ResolvedPosition {
	if res, done := resolveMissing(local, server); done {
		return res
	}

	lead := server.UpdatedAt.Sub(local.UpdatedAt)

	if agree(local, server, r.PositionEpsilon) {
		if lead > 0 {
			return settled(server, local, domain.SourceServer)
		}
		return settled(local, server, domain.SourceLocal)
	}

	switch {
	case lead > r.Window:
		return decide(local, server, false, domain.SourceServer, r.PositionEpsilon)
	case lead < -r.Window:
		return decide(local, server, true, domain.SourceLocal, r.PositionEpsilon)
	}

	switch r.LocalHint {
	case HintReset:
		return decide(local, server, true, domain.SourceLocal, r.PositionEpsilon)
	case HintStale:
		return decide(local, server, false, domain.SourceServer, r.PositionEpsilon)
	}

	return decide(local, server, furtherAlong(local, server), domain.SourceMerged, r.PositionEpsilon)
}

// FurthestAlong always keeps the record further into the book, so progress
// never moves backwards regardless of timestamps.
type FurthestAlong struct {
	PositionEpsilon float64
}

// Resolve implements Strategy.
func (f FurthestAlong) Resolve(local, server *domain.ProgressRecord) domain.ResolvedPosition {
	if res, done := resolveMissing(local, server); done {
		return res
	}
	if agree(local, server, f.PositionEpsilon) {
		return settled(local, server, domain.SourceLocal)
	}
	if furtherAlong(local, server) {
		return decide(local, server, true, domain.SourceLocal, f.PositionEpsilon)
	}
	return decide(local, server, false, domain.SourceServer, f.PositionEpsilon)
}

// ServerAuthoritative lets the server win whenever it has a record.
type ServerAuthoritative struct {
	PositionEpsilon float64
}

// Resolve implements Strategy.
func (s ServerAuthoritative) Resolve(local, server *domain.ProgressRecord) domain.ResolvedPosition {
	if res, done := resolveMissing(local, server); done {
		return res
	}
	if agree(local, server, s.PositionEpsilon) {
		return settled(server, local, domain.SourceServer)
	}
	return decide(local, server, false, domain.SourceServer, s.PositionEpsilon)
}

// resolveMissing handles the cases where one or both records are absent.
func resolveMissing(local, server *domain.ProgressRecord) (domain.ResolvedPosition, bool) {
	switch {
	case local == nil && server == nil:
		return domain.ResolvedPosition{
			Position:   0,
			Source:     domain.SourceLocal,
			Correction: domain.CorrectionNone,
		}, true
	case server == nil:
		rec := merged(local, nil)
		return domain.ResolvedPosition{
			Position:   rec.Position,
			Source:     domain.SourceLocal,
			Correction: domain.CorrectionPushServer,
			Record:     rec,
		}, true
	case local == nil:
		rec := merged(server, nil)
		return domain.ResolvedPosition{
			Position:   rec.Position,
			Source:     domain.SourceServer,
			Correction: domain.CorrectionPushLocal,
			Record:     rec,
		}, true
	}
	return domain.ResolvedPosition{}, false
}

// decide builds the result when one record wins over a disagreeing other.
// The losing side is the one that must be corrected.
func decide(local, server *domain.ProgressRecord, localWins bool, source domain.Source, eps float64) domain.ResolvedPosition {
	winner, loser := server, local
	correction := domain.CorrectionPushLocal
	if localWins {
		winner, loser = local, server
		correction = domain.CorrectionPushServer
	}

	rec := merged(winner, loser)
	if source == domain.SourceMerged && loser.UpdatedAt.After(rec.UpdatedAt) {
		rec.UpdatedAt = loser.UpdatedAt
	}
	if agree(rec, loser, eps) {
		correction = domain.CorrectionNone
	}

	return domain.ResolvedPosition{
		Position:   rec.Position,
		Source:     source,
		Correction: correction,
		Record:     rec,
	}
}

// settled builds the result for two records that already agree.
func settled(winner, other *domain.ProgressRecord, source domain.Source) domain.ResolvedPosition {
	rec := merged(winner, other)
	return domain.ResolvedPosition{
		Position:   rec.Position,
		Source:     source,
		Correction: domain.CorrectionNone,
		Record:     rec,
	}
}

// merged copies winner, borrows a known duration from other when the winner
// lacks one, and clamps the position into the book.
func merged(winner, other *domain.ProgressRecord) *domain.ProgressRecord {
	rec := winner.Clone()
	if rec.Duration <= 0 && other != nil && other.Duration > 0 {
		rec.Duration = other.Duration
	}
	if rec.Position < 0 {
		rec.Position = 0
	}
	if rec.Duration > 0 && rec.Position > rec.Duration {
		rec.Position = rec.Duration
	}
	return rec
}

// agree reports whether two records need no correction.
func agree(a, b *domain.ProgressRecord, eps float64) bool {
	return math.Abs(a.Position-b.Position) <= eps && a.IsFinished == b.IsFinished
}

// furtherAlong reports whether a is further into the book than b.
// A finished record is further along than an unfinished one. Equal
// positions go to a, so the local record wins exact ties.
func furtherAlong(a, b *domain.ProgressRecord) bool {
	if a.IsFinished != b.IsFinished {
		return a.IsFinished
	}
	return a.Position >= b.Position
}

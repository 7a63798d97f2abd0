package domain

import "time"

// FinishedThreshold is the fraction of the book after which progress counts as finished.
const FinishedThreshold = 0.99

// ProgressRecord is a progress snapshot for one book. The same shape is used
// for the locally persisted record and for the record reported by the server.
// Server records are never edited locally; they are replaced wholesale on fetch.
type ProgressRecord struct {
	BookID      string    `json:"book_id"`
	Position    float64   `json:"position"`
	Duration    float64   `json:"duration"`
	IsFinished  bool      `json:"is_finished"`
	UpdatedAt   time.Time `json:"updated_at"`
	IsInLibrary bool      `json:"is_in_library"`
}

// NewProgressRecord creates a record at the given position.
func NewProgressRecord(bookID string, position, duration float64, now time.Time) *ProgressRecord {
	p := &ProgressRecord{
		BookID:      bookID,
		Duration:    duration,
		IsInLibrary: true,
	}
	p.ApplyPosition(position, now)
	return p
}

// ApplyPosition moves the record to position and restamps it.
// Unlike the server's event-derived progress this may move backwards:
// the local record mirrors where the listener actually is.
func (p *ProgressRecord) ApplyPosition(position float64, now time.Time) {
	if position < 0 {
		position = 0
	}
	if p.Duration > 0 && position > p.Duration {
		position = p.Duration
	}
	p.Position = position
	p.UpdatedAt = now
	p.checkCompletion()
}

// Fraction returns progress in [0, 1], or 0 when the duration is unknown.
func (p *ProgressRecord) Fraction() float64 {
	if p.Duration <= 0 {
		return 0
	}
	return p.Position / p.Duration
}

// Clone returns a copy that can be mutated independently.
func (p *ProgressRecord) Clone() *ProgressRecord {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

// checkCompletion marks the record finished once position reaches 99% of duration.
// A finished book stays finished until the listener moves back below the threshold.
func (p *ProgressRecord) checkCompletion() {
	if p.Duration <= 0 {
		return
	}
	p.IsFinished = p.Position >= p.Duration*FinishedThreshold
}

// Source names which record a reconciliation result came from.
type Source string

// Reconciliation sources.
const (
	SourceLocal  Source = "local"
	SourceServer Source = "server"
	SourceMerged Source = "merged"
)

// Correction tells the caller which store must be written to converge.
type Correction string

// Correction directives.
const (
	// CorrectionNone means both stores already agree.
	CorrectionNone Correction = "none"
	// CorrectionPushLocal means the resolved record must be written to the local store.
	CorrectionPushLocal Correction = "push_local"
	// CorrectionPushServer means the resolved record must be pushed to the server.
	CorrectionPushServer Correction = "push_server"
)

// ResolvedPosition is the outcome of reconciling a local and a server record.
// It is never persisted itself; callers act on Correction.
type ResolvedPosition struct {
	Position   float64         `json:"position"`
	Source     Source          `json:"source"`
	Correction Correction      `json:"correction"`
	Record     *ProgressRecord `json:"record,omitempty"`
}

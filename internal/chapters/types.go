// Package chapters provides chapter lookup and navigation over a book timeline,
// plus detection of placeholder chapter names.
package chapters

import "github.com/listenupapp/listenup-player/internal/domain"

const (
	// DefaultRestartThreshold is how far into a chapter "previous" restarts
	// the current chapter instead of jumping to the one before it.
	DefaultRestartThreshold = 3.0

	// DefaultSnapThreshold is how close a scrub release must land to a
	// chapter start to be snapped onto it.
	DefaultSnapThreshold = 5.0
)

// Match is a chapter together with its position in the list.
type Match struct {
	Chapter domain.Chapter `json:"chapter"`
	Index   int            `json:"index"`
}

// AnalysisResult contains chapter naming statistics.
type AnalysisResult struct {
	Total          int     `json:"total"`
	GenericCount   int     `json:"genericCount"`
	GenericPercent float64 `json:"genericPercent"`
	MostlyGeneric  bool    `json:"mostlyGeneric"`
}

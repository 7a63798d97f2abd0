// Package playbackrate resolves and steps through the discrete playback speeds
// offered to listeners.
package playbackrate

import (
	"math"
	"strconv"
)

// Rate bounds and default.
const (
	Min     = 0.5
	Max     = 3.0
	Default = 1.0
)

// tolerance is the float comparison epsilon used for every ladder test.
const tolerance = 1e-6

// ladder holds the standard rates in ascending order.
var ladder = [...]float64{0.5, 0.75, 1.0, 1.25, 1.5, 1.75, 2.0, 2.25, 2.5, 2.75, 3.0}

// Ladder returns a copy of the standard rates in ascending order.
func Ladder() []float64 {
	out := make([]float64, len(ladder))
	copy(out, ladder[:])
	return out
}

// Clamp limits rate to [Min, Max]. NaN falls back to Default.
func Clamp(rate float64) float64 {
	if math.IsNaN(rate) {
		return Default
	}
	return math.Max(Min, math.Min(Max, rate))
}

// ForBook returns the per-book override when one exists, else globalDefault.
// The result is always clamped.
func ForBook(bookID string, perBook map[string]float64, globalDefault float64) float64 {
	if rate, ok := perBook[bookID]; ok {
		return Clamp(rate)
	}
	return Clamp(globalDefault)
}

// Next returns the smallest standard rate strictly greater than rate,
// wrapping to Min past the top of the ladder.
func Next(rate float64) float64 {
	for _, r := range ladder {
		if r > rate+tolerance {
			return r
		}
	}
	return ladder[0]
}

// Previous returns the largest standard rate strictly less than rate,
// wrapping to Max below the bottom of the ladder.
func Previous(rate float64) float64 {
	for i := len(ladder) - 1; i >= 0; i-- {
		if ladder[i] < rate-tolerance {
			return ladder[i]
		}
	}
	return ladder[len(ladder)-1]
}

// Nearest returns the standard rate closest to rate.
// An exact tie between two neighbours resolves to the lower one.
func Nearest(rate float64) float64 {
	best := ladder[0]
	bestDist := math.Abs(rate - best)
	for _, r := range ladder[1:] {
		if d := math.Abs(rate - r); d < bestDist-tolerance {
			best, bestDist = r, d
		}
	}
	return best
}

// IsStandard reports whether rate is on the ladder.
func IsStandard(rate float64) bool {
	for _, r := range ladder {
		if math.Abs(rate-r) < tolerance {
			return true
		}
	}
	return false
}

// Label formats a rate for display, e.g. "1.25x".
func Label(rate float64) string {
	return strconv.FormatFloat(rate, 'f', -1, 64) + "x"
}

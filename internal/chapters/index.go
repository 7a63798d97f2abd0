package chapters

import (
	"math"

	"github.com/listenupapp/listenup-player/internal/domain"
)

// FindChapterForPosition returns the chapter that contains position.
//
// The owning chapter is the last one whose Start is at or before position,
// so a position exactly on a boundary belongs to the later chapter, a
// position past the end stays in the last chapter, and a position inside a
// gap stays with the chapter before the gap. Positions before the first
// chapter clamp to it. ok is false for an empty list.
func FindChapterForPosition(chapters []domain.Chapter, position float64) (Match, bool) {
	if len(chapters) == 0 {
		return Match{}, false
	}

	idx := 0
	for i, ch := range chapters {
		if ch.Start > position {
			break
		}
		idx = i
	}
	return Match{Chapter: chapters[idx], Index: idx}, true
}

// ChapterProgress returns how far position is through its chapter, as a
// percentage in [0, 100]. Zero-length chapters and empty lists yield 0.
func ChapterProgress(chapters []domain.Chapter, position float64) float64 {
	m, ok := FindChapterForPosition(chapters, position)
	if !ok {
		return 0
	}
	length := m.Chapter.Duration()
	if length <= 0 {
		return 0
	}
	pct := (position - m.Chapter.Start) / length * 100
	return math.Max(0, math.Min(100, pct))
}

// FindNearestChapterStart returns the chapter whose Start is closest to
// position. Ties go to the earlier chapter.
func FindNearestChapterStart(chapters []domain.Chapter, position float64) (Match, bool) {
	if len(chapters) == 0 {
		return Match{}, false
	}

	best := 0
	bestDist := math.Abs(position - chapters[0].Start)
	for i := 1; i < len(chapters); i++ {
		if d := math.Abs(position - chapters[i].Start); d < bestDist {
			best, bestDist = i, d
		}
	}
	return Match{Chapter: chapters[best], Index: best}, true
}

// SnapToChapter moves position onto the nearest chapter start when it lies
// within threshold seconds of it, and returns position unchanged otherwise.
func SnapToChapter(chapters []domain.Chapter, position, threshold float64) float64 {
	m, ok := FindNearestChapterStart(chapters, position)
	if !ok || threshold <= 0 {
		return position
	}
	if math.Abs(position-m.Chapter.Start) <= threshold {
		return m.Chapter.Start
	}
	return position
}

// PreviousChapterIndex implements the "previous" button: more than
// restartThreshold seconds into a chapter it returns the current chapter
// (restart it); otherwise it returns the one before, never below 0.
func PreviousChapterIndex(chapters []domain.Chapter, position, restartThreshold float64) (int, bool) {
	m, ok := FindChapterForPosition(chapters, position)
	if !ok {
		return 0, false
	}
	if position-m.Chapter.Start > restartThreshold {
		return m.Index, true
	}
	return max(0, m.Index-1), true
}

// NextChapterIndex returns the chapter after the one containing position.
// ok is false when position is already in the last chapter.
func NextChapterIndex(chapters []domain.Chapter, position float64) (int, bool) {
	m, ok := FindChapterForPosition(chapters, position)
	if !ok || m.Index+1 >= len(chapters) {
		return 0, false
	}
	return m.Index + 1, true
}

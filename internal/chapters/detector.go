package chapters

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/listenupapp/listenup-player/internal/domain"
)

var genericPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^chapter\s+\d+$`),
	regexp.MustCompile(`(?i)^chapter\s+(one|two|three|four|five|six|seven|eight|nine|ten)$`),
	regexp.MustCompile(`(?i)^track\s+\d+$`),
	regexp.MustCompile(`(?i)^part\s+\d+$`),
	regexp.MustCompile(`(?i)^part\s+(one|two|three|four|five|six|seven|eight|nine|ten)$`),
	regexp.MustCompile(`^\d+$`),
	regexp.MustCompile(`^\d+\.\s*$`),
	regexp.MustCompile(`^\d+\s*-\s*$`),
}

// IsGenericName returns true if the chapter name is a placeholder.
func IsGenericName(name string) bool {
	name = strings.TrimSpace(name)

	if name == "" {
		return true
	}

	for _, pattern := range genericPatterns {
		if pattern.MatchString(name) {
			return true
		}
	}

	return false
}

// Analyze returns statistics about the chapter names.
func Analyze(chapters []domain.Chapter) AnalysisResult {
	if len(chapters) == 0 {
		return AnalysisResult{}
	}

	generic := 0
	for _, ch := range chapters {
		if IsGenericName(ch.Title) {
			generic++
		}
	}

	percent := float64(generic) / float64(len(chapters))

	return AnalysisResult{
		Total:          len(chapters),
		GenericCount:   generic,
		GenericPercent: percent,
		MostlyGeneric:  percent > 0.5,
	}
}

// SynthesizeFromTracks builds one chapter per track for books whose files
// carry no chapter markers. Placeholder track titles become "Chapter N".
func SynthesizeFromTracks(tracks []domain.Track) []domain.Chapter {
	out := make([]domain.Chapter, 0, len(tracks))
	for i, t := range tracks {
		if t.Duration <= 0 {
			continue
		}
		title := strings.TrimSpace(t.Title)
		if IsGenericName(title) {
			title = fmt.Sprintf("Chapter %d", len(out)+1)
		}
		out = append(out, domain.Chapter{
			ID:    strconv.Itoa(i),
			Title: title,
			Start: t.StartOffset,
			End:   t.End(),
		})
	}
	return out
}

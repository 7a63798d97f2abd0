package domain

// Track is one physical audio file covering a contiguous slice of the book timeline.
// All offsets and durations are in seconds.
type Track struct {
	URL         string  `json:"url"`
	Title       string  `json:"title"`
	StartOffset float64 `json:"start_offset"`
	Duration    float64 `json:"duration"`
}

// End returns the global position where this track stops.
func (t Track) End() float64 {
	return t.StartOffset + t.Duration
}

// Chapter is a named navigation range. Chapters may span tracks.
type Chapter struct {
	ID    string  `json:"id"`
	Title string  `json:"title"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Duration returns the chapter length, or 0 for zero-length or inverted chapters.
func (c Chapter) Duration() float64 {
	if c.End <= c.Start {
		return 0
	}
	return c.End - c.Start
}

// Book is what the player needs to open a title: identity, the ordered
// track list, and the chapter list. Immutable once loaded.
type Book struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Tracks   []Track   `json:"tracks"`
	Chapters []Chapter `json:"chapters"`
}

// TotalDuration returns the end of the last track, or 0 for a book without tracks.
func (b *Book) TotalDuration() float64 {
	if len(b.Tracks) == 0 {
		return 0
	}
	return b.Tracks[len(b.Tracks)-1].End()
}

// URLs returns the track URLs in playback order.
func (b *Book) URLs() []string {
	urls := make([]string, len(b.Tracks))
	for i, t := range b.Tracks {
		urls[i] = t.URL
	}
	return urls
}

// NewTracks lays out files back to back, computing each StartOffset from
// the running sum of the previous durations.
func NewTracks(urls, titles []string, durations []float64) []Track {
	tracks := make([]Track, 0, len(urls))
	var offset float64
	for i, url := range urls {
		var title string
		if i < len(titles) {
			title = titles[i]
		}
		var duration float64
		if i < len(durations) && durations[i] > 0 {
			duration = durations[i]
		}
		tracks = append(tracks, Track{
			URL:         url,
			Title:       title,
			StartOffset: offset,
			Duration:    duration,
		})
		offset += duration
	}
	return tracks
}

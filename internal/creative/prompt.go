package creative

import (
	"fmt"
	"strings"

	"rhythmdb/internal/instruments"
)

// Closed taxonomies. The prompt enumerates these and normalization drops
// anything outside them.
var (
	Moods = []string{
		"Upbeat/Energetic",
		"Happy/Cheerful",
		"Inspiring/Uplifting",
		"Epic/Powerful",
		"Dramatic/Emotional",
		"Chill/Mellow",
		"Funny/Quirky",
		"Angry/Aggressive",
	}
	Genres = []string{
		"Cinematic",
		"Corporate",
		"Hip hop/Rap",
		"Rock",
		"Electronic",
		"Ambient",
		"Funk",
		"Classical",
	}
	Themes = []string{
		"Corporate",
		"Documentary",
		"Action",
		"Lifestyle",
		"Sports",
		"Drama",
		"Nature",
		"Technology",
	}
	VocalTypes = []string{
		"No Vocals",
		"Background Vocals",
		"Female Vocals",
		"Lead Vocals",
		"Vocal Samples",
		"Male Vocals",
	}
	LyricThemes = []string{
		"Love/Romance",
		"Heartbreak/Loss",
		"Celebration/Party",
		"Motivation/Success",
		"Freedom/Journey",
		"Nostalgia/Memory",
		"Faith/Spiritual",
		"Social Commentary",
	}
)

// Request carries the per-track inputs for one classification.
type Request struct {
	Title string
	BPM   int // 0 when unknown
	Hints []string
}

func systemPrompt() string {
	var b strings.Builder
	b.WriteString("You are a music supervisor tagging production library tracks. ")
	b.WriteString("Respond with exactly one JSON object and nothing else: no prose, no code fences.\n\n")
	b.WriteString("The object has exactly these fields:\n")
	b.WriteString("  mood: array drawn from [" + strings.Join(Moods, "; ") + "]\n")
	b.WriteString("  genre: array drawn from [" + strings.Join(Genres, "; ") + "]\n")
	b.WriteString("  theme: array drawn from [" + strings.Join(Themes, "; ") + "]\n")
	b.WriteString("  instrument: array of instruments you hear, drawn from [" + strings.Join(instruments.Canonical, "; ") + "]\n")
	b.WriteString("  vocals: array drawn from [" + strings.Join(VocalTypes, "; ") + "]\n")
	b.WriteString("  lyricThemes: array drawn from [" + strings.Join(LyricThemes, "; ") + "]; empty when there are no vocals\n")
	b.WriteString("  narrative: one sentence under 200 characters describing the track for a search index\n")
	b.WriteString("  confidence: number between 0 and 1\n\n")
	b.WriteString("Use only the listed values. Prefer fewer, stronger tags over many weak ones.")
	return b.String()
}

func userPrompt(req Request) string {
	var b strings.Builder
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "(untitled)"
	}
	fmt.Fprintf(&b, "Track title: %s\n", title)
	if req.BPM > 0 {
		fmt.Fprintf(&b, "Estimated tempo: %d BPM\n", req.BPM)
	}
	if len(req.Hints) > 0 {
		fmt.Fprintf(&b, "Audio analysis hints: %s\n", strings.Join(req.Hints, ", "))
	}
	b.WriteString("Classify this track.")
	return b.String()
}

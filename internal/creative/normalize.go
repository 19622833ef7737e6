package creative

import (
	"strconv"
	"strings"

	"rhythmdb/internal/instruments"
)

const (
	maxSuggestedInstruments = 8
	maxNarrativeChars       = 200
)

// Synonym tables keyed by lowercase spelling. Instruments and vocals keep
// separate tables; the value side is always a canonical taxonomy entry.
var moodSynonyms = map[string]string{
	"upbeat":      "Upbeat/Energetic",
	"energetic":   "Upbeat/Energetic",
	"driving":     "Upbeat/Energetic",
	"happy":       "Happy/Cheerful",
	"cheerful":    "Happy/Cheerful",
	"joyful":      "Happy/Cheerful",
	"inspiring":   "Inspiring/Uplifting",
	"uplifting":   "Inspiring/Uplifting",
	"hopeful":     "Inspiring/Uplifting",
	"epic":        "Epic/Powerful",
	"powerful":    "Epic/Powerful",
	"heroic":      "Epic/Powerful",
	"dramatic":    "Dramatic/Emotional",
	"emotional":   "Dramatic/Emotional",
	"sad":         "Dramatic/Emotional",
	"melancholic": "Dramatic/Emotional",
	"chill":       "Chill/Mellow",
	"mellow":      "Chill/Mellow",
	"relaxed":     "Chill/Mellow",
	"calm":        "Chill/Mellow",
	"funny":       "Funny/Quirky",
	"quirky":      "Funny/Quirky",
	"playful":     "Funny/Quirky",
	"angry":       "Angry/Aggressive",
	"aggressive":  "Angry/Aggressive",
	"intense":     "Angry/Aggressive",
}

var genreSynonyms = map[string]string{
	"orchestral":  "Cinematic",
	"film score":  "Cinematic",
	"soundtrack":  "Cinematic",
	"trailer":     "Cinematic",
	"business":    "Corporate",
	"hip hop":     "Hip hop/Rap",
	"hip-hop":     "Hip hop/Rap",
	"hiphop":      "Hip hop/Rap",
	"rap":         "Hip hop/Rap",
	"trap":        "Hip hop/Rap",
	"indie rock":  "Rock",
	"pop rock":    "Rock",
	"alternative": "Rock",
	"edm":         "Electronic",
	"electronica": "Electronic",
	"house":       "Electronic",
	"techno":      "Electronic",
	"synthwave":   "Electronic",
	"drone":       "Ambient",
	"atmospheric": "Ambient",
	"funky":       "Funk",
	"soul":        "Funk",
	"disco":       "Funk",
	"baroque":     "Classical",
	"chamber":     "Classical",
}

var themeSynonyms = map[string]string{
	"business":    "Corporate",
	"docu":        "Documentary",
	"chase":       "Action",
	"travel":      "Lifestyle",
	"vlog":        "Lifestyle",
	"sport":       "Sports",
	"fitness":     "Sports",
	"wildlife":    "Nature",
	"landscape":   "Nature",
	"tech":        "Technology",
	"science":     "Technology",
}

var vocalSynonyms = map[string]string{
	"none":           "No Vocals",
	"instrumental":   "No Vocals",
	"no vocal":       "No Vocals",
	"backing vocals": "Background Vocals",
	"background":     "Background Vocals",
	"choir":          "Background Vocals",
	"female":         "Female Vocals",
	"female vocal":   "Female Vocals",
	"female voice":   "Female Vocals",
	"lead":           "Lead Vocals",
	"lead vocal":     "Lead Vocals",
	"vocals":         "Lead Vocals",
	"samples":        "Vocal Samples",
	"vocal chops":    "Vocal Samples",
	"chops":          "Vocal Samples",
	"male":           "Male Vocals",
	"male vocal":     "Male Vocals",
	"male voice":     "Male Vocals",
}

var lyricThemeSynonyms = map[string]string{
	"love":        "Love/Romance",
	"romance":     "Love/Romance",
	"heartbreak":  "Heartbreak/Loss",
	"loss":        "Heartbreak/Loss",
	"grief":       "Heartbreak/Loss",
	"celebration": "Celebration/Party",
	"party":       "Celebration/Party",
	"motivation":  "Motivation/Success",
	"success":     "Motivation/Success",
	"ambition":    "Motivation/Success",
	"freedom":     "Freedom/Journey",
	"journey":     "Freedom/Journey",
	"nostalgia":   "Nostalgia/Memory",
	"memory":      "Nostalgia/Memory",
	"memories":    "Nostalgia/Memory",
	"faith":       "Faith/Spiritual",
	"spiritual":   "Faith/Spiritual",
	"protest":     "Social Commentary",
	"politics":    "Social Commentary",
}

// instrumentSynonyms pre-maps LLM-flavored spellings before the canonical
// vocabulary lookup in the instruments package.
var instrumentSynonyms = map[string]string{
	"pads":             "Synth Pad",
	"pad":              "Synth Pad",
	"synth pads":       "Synth Pad",
	"lead synth":       "Synth Lead",
	"808":              "Drum Machine",
	"808s":             "Drum Machine",
	"beats":            "Drum Machine",
	"electronic drums": "Drum Machine",
	"programmed drums": "Drum Machine",
	"percussions":      "Percussion",
	"orchestra":        "Strings",
	"string orchestra": "Strings",
	"basses":           "Bass Guitar",
}

// factsFromPayload normalizes a decoded payload onto the closed taxonomy.
func factsFromPayload(p rawPayload) Facts {
	facts := Facts{
		Mood:                 normalizeOnto(toStringList(p.Mood), Moods, moodSynonyms),
		Genre:                normalizeOnto(toStringList(p.Genre), Genres, genreSynonyms),
		Theme:                normalizeOnto(toStringList(p.Theme), Themes, themeSynonyms),
		SuggestedInstruments: normalizeInstruments(toStringList(p.instrumentField())),
		Vocals:               normalizeVocals(toStringList(p.Vocals)),
		LyricThemes:          normalizeOnto(toStringList(p.LyricThemes), LyricThemes, lyricThemeSynonyms),
		Narrative:            truncateNarrative(p.Narrative),
		Confidence:           parseConfidence(p.Confidence),
	}
	if !facts.HasVocals() {
		facts.LyricThemes = []string{}
	}
	return facts
}

// normalizeOnto maps values onto a closed list: a case-insensitive
// canonical match wins, then the synonym table; unmapped values drop.
func normalizeOnto(values []string, canonical []string, synonyms map[string]string) []string {
	index := make(map[string]string, len(canonical))
	for _, c := range canonical {
		index[strings.ToLower(c)] = c
	}
	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		lower := strings.ToLower(strings.TrimSpace(v))
		if lower == "" {
			continue
		}
		mapped, ok := index[lower]
		if !ok {
			mapped, ok = synonyms[lower]
		}
		if !ok || seen[mapped] {
			continue
		}
		seen[mapped] = true
		out = append(out, mapped)
	}
	return out
}

// normalizeVocals enforces the vocals contract: an empty list or any entry
// that fails to map voids the whole answer to ["No Vocals"].
func normalizeVocals(values []string) []string {
	cleaned := make([]string, 0, len(values))
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			cleaned = append(cleaned, s)
		}
	}
	if len(cleaned) == 0 {
		return []string{"No Vocals"}
	}
	index := make(map[string]string, len(VocalTypes))
	for _, c := range VocalTypes {
		index[strings.ToLower(c)] = c
	}
	out := make([]string, 0, len(cleaned))
	seen := make(map[string]bool, len(cleaned))
	for _, v := range cleaned {
		lower := strings.ToLower(v)
		mapped, ok := index[lower]
		if !ok {
			mapped, ok = vocalSynonyms[lower]
		}
		if !ok {
			return []string{"No Vocals"}
		}
		if seen[mapped] {
			continue
		}
		seen[mapped] = true
		out = append(out, mapped)
	}
	return out
}

func normalizeInstruments(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		label, ok := instrumentSynonyms[strings.ToLower(v)]
		if !ok {
			label, ok = instruments.Resolve(v)
		}
		if !ok || seen[label] {
			continue
		}
		seen[label] = true
		out = append(out, label)
		if len(out) == maxSuggestedInstruments {
			break
		}
	}
	return out
}

// toStringList accepts an array of strings or a single comma/semicolon
// separated string.
func toStringList(v any) []string {
	switch val := v.(type) {
	case nil:
		return nil
	case []string:
		return val
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				if s = strings.TrimSpace(s); s != "" {
					out = append(out, s)
				}
			}
		}
		return out
	case string:
		parts := strings.FieldsFunc(val, func(r rune) bool { return r == ',' || r == ';' })
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	default:
		return nil
	}
}

// parseConfidence coerces confidence to [0,1]: percent strings divide by
// 100, bare numbers above 1 halve first, then clamp.
func parseConfidence(v any) float64 {
	switch val := v.(type) {
	case float64:
		return clampConfidence(halveIfAboveOne(val))
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return 0
		}
		if strings.HasSuffix(s, "%") {
			n, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(s, "%")), 64)
			if err != nil {
				return 0
			}
			return clampConfidence(n / 100)
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		return clampConfidence(halveIfAboveOne(n))
	default:
		return 0
	}
}

func halveIfAboveOne(v float64) float64 {
	if v > 1 {
		return v / 2
	}
	return v
}

func clampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func truncateNarrative(s string) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= maxNarrativeChars {
		return s
	}
	return string(runes[:maxNarrativeChars-3]) + "..."
}

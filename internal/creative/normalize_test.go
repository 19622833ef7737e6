package creative

import (
	"reflect"
	"strings"
	"testing"
)

func TestParseConfidence(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want float64
	}{
		{"fraction", 0.85, 0.85},
		{"above one halves", 1.4, 0.7},
		{"large number clamps", 85.0, 1.0},
		{"negative clamps", -0.2, 0.0},
		{"percent string", "85%", 0.85},
		{"percent string with space", "85 %", 0.85},
		{"percent above hundred clamps", "140%", 1.0},
		{"numeric string", "0.6", 0.6},
		{"numeric string above one halves", "1.8", 0.9},
		{"garbage string", "high", 0.0},
		{"empty string", "", 0.0},
		{"missing", nil, 0.0},
	}
	for _, tc := range cases {
		if got := parseConfidence(tc.in); got != tc.want {
			t.Errorf("%s: parseConfidence(%v) = %v, want %v", tc.name, tc.in, got, tc.want)
		}
	}
}

func TestNormalizeVocals(t *testing.T) {
	cases := []struct {
		name string
		in   []string
		want []string
	}{
		{"synonym", []string{"female"}, []string{"Female Vocals"}},
		{"canonical plus synonym", []string{"Lead Vocals", "choir"}, []string{"Lead Vocals", "Background Vocals"}},
		{"unmappable entry voids answer", []string{"Lead Vocals", "whistling"}, []string{"No Vocals"}},
		{"empty list", nil, []string{"No Vocals"}},
		{"blank entries only", []string{"  "}, []string{"No Vocals"}},
		{"instrumental maps to no vocals", []string{"instrumental"}, []string{"No Vocals"}},
		{"dedup", []string{"female", "Female Vocals"}, []string{"Female Vocals"}},
	}
	for _, tc := range cases {
		if got := normalizeVocals(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("%s: normalizeVocals(%v) = %v, want %v", tc.name, tc.in, got, tc.want)
		}
	}
}

func TestNormalizeOntoMoods(t *testing.T) {
	got := normalizeOnto([]string{"energetic", "chill/mellow", "dreamy", "mellow"}, Moods, moodSynonyms)
	want := []string{"Upbeat/Energetic", "Chill/Mellow"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("normalizeOnto = %v, want %v", got, want)
	}
}

func TestNormalizeInstruments(t *testing.T) {
	got := normalizeInstruments([]string{"808", "drums", "guitar", "Piano", "piano", "kazoo-ish"})
	want := []string{"Drum Machine", "Drum Kit (acoustic)", "Electric Guitar", "Piano"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("normalizeInstruments = %v, want %v", got, want)
	}
}

func TestNormalizeInstrumentsCap(t *testing.T) {
	in := []string{
		"Piano", "Organ", "Synth", "Electric Guitar", "Acoustic Guitar",
		"Bass Guitar", "Violin", "Cello", "Trumpet", "Saxophone",
	}
	got := normalizeInstruments(in)
	want := in[:maxSuggestedInstruments]
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("normalizeInstruments = %v, want %v", got, want)
	}
}

func TestToStringList(t *testing.T) {
	if got := toStringList(nil); got != nil {
		t.Errorf("nil input = %v", got)
	}
	if got := toStringList([]any{"a", 3, " b "}); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("mixed list = %v", got)
	}
	if got := toStringList("Piano, Organ; Drum Kit"); !reflect.DeepEqual(got, []string{"Piano", "Organ", "Drum Kit"}) {
		t.Errorf("split string = %v", got)
	}
	if got := toStringList(42.0); got != nil {
		t.Errorf("number input = %v", got)
	}
}

func TestTruncateNarrative(t *testing.T) {
	exact := strings.Repeat("a", maxNarrativeChars)
	if got := truncateNarrative(exact); got != exact {
		t.Errorf("boundary narrative changed: %d runes", len([]rune(got)))
	}
	long := truncateNarrative(strings.Repeat("b", maxNarrativeChars+1))
	if len([]rune(long)) != maxNarrativeChars || !strings.HasSuffix(long, "...") {
		t.Errorf("long narrative = %d runes, suffix %q", len([]rune(long)), long[len(long)-3:])
	}
	wide := truncateNarrative(strings.Repeat("é", 250))
	if len([]rune(wide)) != maxNarrativeChars {
		t.Errorf("multibyte narrative = %d runes", len([]rune(wide)))
	}
	if got := truncateNarrative("  hi  "); got != "hi" {
		t.Errorf("trim = %q", got)
	}
}

func TestFactsFromPayloadClearsLyricThemesWithoutVocals(t *testing.T) {
	p := rawPayload{
		Mood:        []any{"epic"},
		Vocals:      []any{"instrumental"},
		LyricThemes: []any{"love"},
		Narrative:   "Quiet build.",
		Confidence:  0.9,
	}
	facts := factsFromPayload(p)
	if facts.HasVocals() {
		t.Fatal("expected no vocals")
	}
	if !reflect.DeepEqual(facts.Vocals, []string{"No Vocals"}) {
		t.Errorf("vocals = %v", facts.Vocals)
	}
	if len(facts.LyricThemes) != 0 {
		t.Errorf("lyric themes survived: %v", facts.LyricThemes)
	}
	if !reflect.DeepEqual(facts.Mood, []string{"Epic/Powerful"}) {
		t.Errorf("mood = %v", facts.Mood)
	}
	if facts.Confidence != 0.9 {
		t.Errorf("confidence = %v", facts.Confidence)
	}
}

func TestFactsFromPayloadKeepsLyricThemesWithVocals(t *testing.T) {
	p := rawPayload{
		Vocals:      []any{"female"},
		LyricThemes: []any{"love", "journey"},
	}
	facts := factsFromPayload(p)
	if !reflect.DeepEqual(facts.Vocals, []string{"Female Vocals"}) {
		t.Errorf("vocals = %v", facts.Vocals)
	}
	want := []string{"Love/Romance", "Freedom/Journey"}
	if !reflect.DeepEqual(facts.LyricThemes, want) {
		t.Errorf("lyric themes = %v, want %v", facts.LyricThemes, want)
	}
}

func TestInstrumentFieldPreference(t *testing.T) {
	got := factsFromPayload(rawPayload{Instruments: []any{"Organ"}, SuggestedInstruments: []any{"Piano"}})
	if !reflect.DeepEqual(got.SuggestedInstruments, []string{"Organ"}) {
		t.Errorf("instruments over suggested = %v", got.SuggestedInstruments)
	}
	got = factsFromPayload(rawPayload{Instrument: "Violin", Instruments: []any{"Organ"}})
	if !reflect.DeepEqual(got.SuggestedInstruments, []string{"Violin"}) {
		t.Errorf("instrument over instruments = %v", got.SuggestedInstruments)
	}
	got = factsFromPayload(rawPayload{SuggestedInstruments: "Cello; Harp"})
	if !reflect.DeepEqual(got.SuggestedInstruments, []string{"Cello", "Harp"}) {
		t.Errorf("suggested string split = %v", got.SuggestedInstruments)
	}
}

package analysis

import "strings"

// Confidence levels for the electronic-elements assessment.
const (
	ConfidenceLow    = "low"
	ConfidenceMedium = "medium"
	ConfidenceHigh   = "high"
)

// electronicInstruments are the vocabulary entries that count as programmed
// or synthesized sources.
var electronicInstruments = map[string]bool{
	"Synth":         true,
	"Synth Lead":    true,
	"Synth Pad":     true,
	"Synth Bass":    true,
	"Synth Strings": true,
	"Synth Brass":   true,
	"Drum Machine":  true,
	"Sampler":       true,
	"Turntables":    true,
	"Vocoder":       true,
}

// electronicHintFragments match classifier hint labels that point at
// electronic production without naming a vocabulary instrument.
var electronicHintFragments = []string{
	"electronic", "synth", "techno", "house", "edm", "drum machine",
}

// electronicGenreElevation lists the creative genres that lift a low
// confidence to medium.
var electronicGenreElevation = map[string]bool{
	"Electronic":  true,
	"Hip hop/Rap": true,
}

// DetectElectronicElements scores programmed-music evidence for a track.
// Instrument evidence outranks hint evidence: two or more electronic
// instruments rate high, one rates medium, hint-only detections rate low.
// A hint-only low is elevated to medium when the creative genres include an
// electronic genre. The result is always non-nil; a clean track reports
// detected=false.
func DetectElectronicElements(finalInstruments, hintLabels, creativeGenres []string) *ElectronicElements {
	out := &ElectronicElements{Confidence: ConfidenceLow, Reasons: []string{}}

	instrumentHits := 0
	for _, inst := range finalInstruments {
		if electronicInstruments[inst] {
			instrumentHits++
			out.Reasons = append(out.Reasons, "instrument: "+inst)
		}
	}
	for _, label := range hintLabels {
		lower := strings.ToLower(label)
		for _, fragment := range electronicHintFragments {
			if strings.Contains(lower, fragment) {
				out.Reasons = append(out.Reasons, "classifier hint: "+label)
				break
			}
		}
	}

	out.Detected = len(out.Reasons) > 0
	switch {
	case instrumentHits >= 2:
		out.Confidence = ConfidenceHigh
	case instrumentHits == 1:
		out.Confidence = ConfidenceMedium
	}
	if out.Detected && out.Confidence == ConfidenceLow {
		for _, genre := range creativeGenres {
			if electronicGenreElevation[genre] {
				out.Confidence = ConfidenceMedium
				out.Reasons = append(out.Reasons, "genre: "+genre)
				break
			}
		}
	}
	return out
}

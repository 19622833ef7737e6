package ensemble

import "sort"

// Mix-only rescue thresholds, tuned against the classifier's score
// distribution. Kept together so recalibration touches one place.
const (
	rescueMeanFloor    = 0.006 // combined mean probability across both models
	rescuePosFloor     = 0.02  // combined positive-window ratio across both models
	rescuePannPosFloor = 0.06  // PANNs positive-window ratio alone
	rescueMeanWeight   = 0.7
	rescuePosWeight    = 0.3
	rescueMaxPicks     = 4
)

// rescueCandidates are the trace score keys eligible for the rescue, with
// their display labels.
var rescueCandidates = []struct {
	key     string
	display string
}{
	{"electric_guitar", "Electric Guitar"},
	{"acoustic_guitar", "Acoustic Guitar"},
	{"bass_guitar", "Bass Guitar"},
	{"drum_kit", "Drum Kit (acoustic)"},
	{"piano", "Piano"},
	{"organ", "Organ"},
	{"brass", "Brass (section)"},
	{"strings", "Strings (section)"},
}

// MixOnlyRescue picks up to four likely instruments from the per-model
// statistics. Used when the classifier returned an empty list without stem
// separation; the thresholds are deliberately permissive because the
// primary pass has already failed.
func (t DecisionTrace) MixOnlyRescue() []string {
	panns := t.PerModel["panns"]
	yamnet := t.PerModel["yamnet"]
	if len(panns.MeanProbs) == 0 && len(panns.PosRatio) == 0 &&
		len(yamnet.MeanProbs) == 0 && len(yamnet.PosRatio) == 0 {
		return nil
	}

	type pick struct {
		display string
		score   float64
	}
	picks := make([]pick, 0, len(rescueCandidates))
	for _, cand := range rescueCandidates {
		meanSum := panns.MeanProbs[cand.key] + yamnet.MeanProbs[cand.key]
		posSum := panns.PosRatio[cand.key] + yamnet.PosRatio[cand.key]
		pannPos := panns.PosRatio[cand.key]

		passes := (meanSum >= rescueMeanFloor && posSum >= rescuePosFloor) ||
			pannPos >= rescuePannPosFloor
		if !passes {
			continue
		}
		picks = append(picks, pick{
			display: cand.display,
			score:   meanSum*rescueMeanWeight + posSum*rescuePosWeight,
		})
	}

	sort.SliceStable(picks, func(i, j int) bool { return picks[i].score > picks[j].score })
	if len(picks) > rescueMaxPicks {
		picks = picks[:rescueMaxPicks]
	}
	out := make([]string, len(picks))
	for i, p := range picks {
		out[i] = p.display
	}
	return out
}

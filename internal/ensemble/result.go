package ensemble

import (
	"encoding/json"
	"sort"
	"strings"
)

// Analysis mode reported by the classifier.
const (
	ModeStems   = "stems"
	ModeMixOnly = "mix-only"
)

// Result is the classifier's output document. DecisionTrace is retained
// verbatim for the per-file projection; Trace() gives the typed view the
// rescue and booster logic needs.
type Result struct {
	Instruments   []string           `json:"instruments"`
	Scores        map[string]float64 `json:"scores"`
	DecisionTrace json.RawMessage    `json:"decision_trace"`
	UsedDemucs    bool               `json:"used_demucs"`
	Mode          string             `json:"mode"`
}

// Trace decodes the decision trace. The trace is advisory: malformed or
// missing sections decode to zero values rather than failing the track.
func (r *Result) Trace() DecisionTrace {
	return ParseTrace(r.DecisionTrace)
}

// ModelStats holds one model's per-label aggregates across probe windows.
type ModelStats struct {
	MeanProbs map[string]float64 `json:"mean_probs"`
	PosRatio  map[string]float64 `json:"pos_ratio"`
}

// DecisionTrace is the typed slice of the classifier trace consumed by the
// booster merge and the mix-only rescue.
type DecisionTrace struct {
	PerModel map[string]ModelStats `json:"per_model"`
	Boosts   map[string]Boost      `json:"boosts"`
}

// Boost records one booster's contribution to the instrument list.
type Boost struct {
	Added AddedLabels `json:"added"`
}

// AddedLabels decodes the classifier's "added" field, which older script
// revisions emit as a bare bool or a single string instead of a list.
type AddedLabels []string

func (a *AddedLabels) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*a = list
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if single != "" {
			*a = []string{single}
		}
		return nil
	}
	// Bool and anything else carry no label payload.
	*a = nil
	return nil
}

// ParseTrace decodes raw trace JSON, tolerating absent or malformed input.
func ParseTrace(raw json.RawMessage) DecisionTrace {
	var trace DecisionTrace
	if len(raw) == 0 {
		return trace
	}
	if err := json.Unmarshal(raw, &trace); err != nil {
		return DecisionTrace{}
	}
	return trace
}

// BoosterAdditions collects every label the classifier's boosters pushed,
// deduplicated, in deterministic booster-name order. These merge into the
// instrument list ahead of finalization.
func (t DecisionTrace) BoosterAdditions() []string {
	if len(t.Boosts) == 0 {
		return nil
	}
	names := make([]string, 0, len(t.Boosts))
	for name := range t.Boosts {
		names = append(names, name)
	}
	sort.Strings(names)

	seen := make(map[string]bool)
	var labels []string
	for _, name := range names {
		for _, label := range t.Boosts[name].Added {
			label = strings.TrimSpace(label)
			if label == "" {
				continue
			}
			key := strings.ToLower(label)
			if seen[key] {
				continue
			}
			seen[key] = true
			labels = append(labels, label)
		}
	}
	return labels
}

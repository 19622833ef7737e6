package creative

// Status strings carried in the track record's creative_status field. Only
// StatusOK marks a usable classification; the rest name why defaults were
// applied.
const (
	StatusOK           = "ok"
	StatusOffline      = "Ollama offline - creative analysis skipped"
	StatusModelMissing = "Ollama model not installed - creative analysis skipped"
	StatusParseError   = "Ollama response unparseable - creative defaults applied"
	StatusInterrupted  = "creative analysis interrupted - defaults applied"
)

// Facts is the creative classification for one track. JSON keys match the
// per-file projection's creative object.
type Facts struct {
	Mood                 []string `json:"mood"`
	Genre                []string `json:"genre"`
	Theme                []string `json:"theme"`
	SuggestedInstruments []string `json:"suggestedInstruments"`
	Vocals               []string `json:"vocals"`
	LyricThemes          []string `json:"lyricThemes"`
	Narrative            string   `json:"narrative"`
	Confidence           float64  `json:"confidence"`

	// Instrument is a library-store denormalization filled in by the upsert
	// merge from the instrument precedence chain. Classification never sets
	// it, so it stays out of the per-file projection when empty.
	Instrument []string `json:"instrument,omitempty"`
}

// Defaults returns the fabrication used when classification is skipped or
// fails. Vocals is never empty, so the default carries the explicit
// no-vocals marker.
func Defaults() Facts {
	return Facts{
		Mood:                 []string{},
		Genre:                []string{},
		Theme:                []string{},
		SuggestedInstruments: []string{},
		Vocals:               []string{"No Vocals"},
		LyricThemes:          []string{},
	}
}

// HasVocals reports whether the facts describe any vocal content.
func (f Facts) HasVocals() bool {
	for _, v := range f.Vocals {
		if v != "" && v != "No Vocals" {
			return true
		}
	}
	return false
}

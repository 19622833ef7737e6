package analysis

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"rhythmdb/internal/creative"
	"rhythmdb/internal/media/tags"
	"rhythmdb/internal/tempo"
	"rhythmdb/internal/trackkey"
)

// TechnicalFacts holds the container and tempo findings of the technical
// phase. BPM is nil when no strategy produced a value and no tag override
// applied.
type TechnicalFacts struct {
	DurationSec   float64     `json:"duration_sec"`
	SampleRateHz  int         `json:"sample_rate_hz"`
	Channels      int         `json:"channels"`
	BitRate       int64       `json:"bit_rate"`
	Codec         string      `json:"codec,omitempty"`
	HasWAVVersion bool        `json:"has_wav_version"`
	Tags          tags.TagMap `json:"tags"`
	EstimatedBPM  *int        `json:"estimated_bpm,omitempty"`
	BPM           *int        `json:"bpm"`
	BPMSource     string      `json:"bpm_source,omitempty"`
	BPMAltHalf    *int        `json:"bpm_alt_half,omitempty"`
	BPMAltDouble  *int        `json:"bpm_alt_double,omitempty"`
}

// ApplyTempo copies a tempo estimate onto the facts. Zero fields stay nil so
// the record serializes unknown tempo as null.
func (t *TechnicalFacts) ApplyTempo(est tempo.Estimate) {
	if est.Estimated > 0 {
		t.EstimatedBPM = intPtr(est.Estimated)
	}
	if est.BPM > 0 {
		t.BPM = intPtr(est.BPM)
		t.BPMSource = est.Source
	}
	if est.AltHalf > 0 {
		t.BPMAltHalf = intPtr(est.AltHalf)
	}
	if est.AltDouble > 0 {
		t.BPMAltDouble = intPtr(est.AltDouble)
	}
}

// ElectronicElements is the programmed-music assessment attached to the
// instrumentation findings.
type ElectronicElements struct {
	Detected   bool     `json:"detected"`
	Confidence string   `json:"confidence"`
	Reasons    []string `json:"reasons"`
}

// Instrumentation carries the classifier outcome: the finalized instrument
// lists, the raw decision trace, and the run mode.
type Instrumentation struct {
	Instruments        []string            `json:"instruments"`
	FinalInstruments   []string            `json:"final_instruments"`
	DecisionTrace      json.RawMessage     `json:"decision_trace,omitempty"`
	UsedDemucs         bool                `json:"used_demucs"`
	Mode               string              `json:"mode,omitempty"`
	ElectronicElements *ElectronicElements `json:"electronic_elements,omitempty"`
}

// Record is the durable analysis result for one track. The scheduler owns it
// while phases are in flight; the library store owns the persisted copy.
type Record struct {
	Key            string          `json:"key"`
	Path           string          `json:"path"`
	File           string          `json:"file"`
	AnalyzedAt     string          `json:"analyzed_at"`
	CreatedAt      string          `json:"created_at,omitempty"`
	UpdatedAt      string          `json:"updated_at,omitempty"`
	Technical      TechnicalFacts  `json:"technical"`
	Creative       creative.Facts  `json:"creative"`
	CreativeStatus string          `json:"creative_status,omitempty"`
	Analysis       Instrumentation `json:"analysis"`
	WaveformPNG    string          `json:"waveform_png,omitempty"`

	// ProbeHints carries the technical phase's classifier hint labels to the
	// later phases. Never serialized.
	ProbeHints []string `json:"-"`

	// Root-level instrument lists appear in store entries imported from
	// before the analysis sub-object existed. They rank below the analysis
	// lists in the instrument precedence chain and are never written fresh.
	LegacyFinalInstruments []string `json:"finalInstruments,omitempty"`
	LegacyInstruments      []string `json:"instruments,omitempty"`
}

// NewRecord seeds a record for the audio file at path. The creative section
// starts at defaults so a failed or skipped phase still serializes cleanly.
func NewRecord(path string) Record {
	return Record{
		Key:        trackkey.Key(path),
		Path:       path,
		File:       trackkey.Base(path),
		AnalyzedAt: Timestamp(time.Now()),
		Creative:   creative.Defaults(),
	}
}

// Timestamp renders t in the store timestamp format.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// Title returns the display title: the embedded tag when present, the file
// stem otherwise.
func (r Record) Title() string {
	if title := strings.TrimSpace(r.Technical.Tags.Title); title != "" {
		return title
	}
	return trackkey.Stem(r.Path)
}

// BPM returns the authoritative tempo, 0 when unknown.
func (r Record) BPM() int {
	if r.Technical.BPM != nil {
		return *r.Technical.BPM
	}
	return 0
}

// HasWAVSibling reports whether a .wav rendition of the same stem sits next
// to the audio file. A .wav input is its own rendition and reports false.
func HasWAVSibling(path string) bool {
	ext := trackkey.Ext(path)
	if ext == ".wav" {
		return false
	}
	dir := filepath.Dir(path)
	stem := trackkey.Stem(path)
	for _, candidate := range []string{stem + ".wav", stem + ".WAV"} {
		if info, err := os.Stat(filepath.Join(dir, candidate)); err == nil && !info.IsDir() {
			return true
		}
	}
	return false
}

func intPtr(v int) *int { return &v }

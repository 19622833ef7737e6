package analysis

import (
	"encoding/json"
	"path/filepath"

	"rhythmdb/internal/creative"
	"rhythmdb/internal/fileutil"
	"rhythmdb/internal/media/tags"
	"rhythmdb/internal/services"
	"rhythmdb/internal/trackkey"
)

// Document is the per-file JSON projection written beside the audio file.
// It is the authoritative record shape consumed by the library store and
// outside tooling; field order follows the on-disk layout.
type Document struct {
	File              string          `json:"file"`
	Path              string          `json:"path"`
	AnalyzedAt        string          `json:"analyzed_at"`
	DurationSec       float64         `json:"duration_sec"`
	SampleRateHz      int             `json:"sample_rate_hz"`
	Channels          int             `json:"channels"`
	BitRate           int64           `json:"bit_rate"`
	Title             string          `json:"title"`
	ID3               tags.TagMap     `json:"id3"`
	HasWAVVersion     bool            `json:"has_wav_version"`
	EstimatedTempoBPM *int            `json:"estimated_tempo_bpm"`
	TempoBPM          *int            `json:"tempo_bpm"`
	BPM               *int            `json:"bpm"`
	TempoSource       string          `json:"tempo_source"`
	TempoAltHalfBPM   *int            `json:"tempo_alt_half_bpm,omitempty"`
	TempoAltDoubleBPM *int            `json:"tempo_alt_double_bpm,omitempty"`
	Creative          creative.Facts  `json:"creative"`
	CreativeStatus    string          `json:"creative_status"`
	Instruments       []string        `json:"instruments"`
	FinalInstruments  []string        `json:"final_instruments"`
	Ensemble          EnsembleSection `json:"instruments_ensemble"`
	WaveformPNG       string          `json:"waveform_png,omitempty"`
}

// EnsembleSection is the classifier block of the per-file document.
type EnsembleSection struct {
	UsedDemucs         bool                `json:"used_demucs"`
	Mode               string              `json:"mode"`
	DecisionTrace      json.RawMessage     `json:"decision_trace,omitempty"`
	ElectronicElements *ElectronicElements `json:"electronic_elements,omitempty"`
}

// Document projects the record into the per-file layout. List fields are
// forced non-nil so the JSON carries [] rather than null.
func (r Record) Document() Document {
	return Document{
		File:              r.File,
		Path:              r.Path,
		AnalyzedAt:        r.AnalyzedAt,
		DurationSec:       r.Technical.DurationSec,
		SampleRateHz:      r.Technical.SampleRateHz,
		Channels:          r.Technical.Channels,
		BitRate:           r.Technical.BitRate,
		Title:             r.Title(),
		ID3:               r.Technical.Tags,
		HasWAVVersion:     r.Technical.HasWAVVersion,
		EstimatedTempoBPM: r.Technical.EstimatedBPM,
		TempoBPM:          r.Technical.BPM,
		BPM:               r.Technical.BPM,
		TempoSource:       r.Technical.BPMSource,
		TempoAltHalfBPM:   r.Technical.BPMAltHalf,
		TempoAltDoubleBPM: r.Technical.BPMAltDouble,
		Creative:          r.Creative,
		CreativeStatus:    r.CreativeStatus,
		Instruments:       emptyNotNil(r.Analysis.Instruments),
		FinalInstruments:  emptyNotNil(r.Analysis.FinalInstruments),
		Ensemble: EnsembleSection{
			UsedDemucs:         r.Analysis.UsedDemucs,
			Mode:               r.Analysis.Mode,
			DecisionTrace:      r.Analysis.DecisionTrace,
			ElectronicElements: r.Analysis.ElectronicElements,
		},
		WaveformPNG: r.WaveformPNG,
	}
}

// SidecarPath returns the per-file JSON path: <stem>.json beside the audio.
func SidecarPath(audioPath string) string {
	return filepath.Join(filepath.Dir(audioPath), trackkey.Stem(audioPath)+".json")
}

// WriteSidecar writes the per-file projection atomically and returns its
// path. A failure here is a store failure; nothing partial is left behind.
func WriteSidecar(rec Record) (string, error) {
	path := SidecarPath(rec.Path)
	data, err := json.MarshalIndent(rec.Document(), "", "  ")
	if err != nil {
		return "", services.Wrap(services.ErrStoreIO, "merge", "encode sidecar", rec.File, err)
	}
	if err := fileutil.WriteFileAtomic(path, append(data, '\n'), 0o644); err != nil {
		return "", services.Wrap(services.ErrStoreIO, "merge", "write sidecar", path, err)
	}
	return path, nil
}

func emptyNotNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

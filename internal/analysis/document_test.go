package analysis

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"rhythmdb/internal/creative"
	"rhythmdb/internal/media/tags"
	"rhythmdb/internal/tempo"
)

func sampleRecord(path string) Record {
	rec := NewRecord(path)
	rec.AnalyzedAt = "2026-08-24T10:00:00Z"
	rec.Technical = TechnicalFacts{
		DurationSec:   182.4,
		SampleRateHz:  44100,
		Channels:      2,
		BitRate:       320000,
		Codec:         "mp3",
		HasWAVVersion: true,
		Tags:          tags.TagMap{Title: "Morning Drive", Artist: "The Commuters", TBPM: "148 bpm"},
	}
	rec.Technical.ApplyTempo(tempo.Estimate{BPM: 148, Estimated: 98, Source: tempo.SourceID3, AltHalf: 74})
	rec.Creative = creative.Defaults()
	rec.Creative.Mood = []string{"Upbeat/Energetic"}
	rec.CreativeStatus = creative.StatusOK
	rec.Analysis = Instrumentation{
		Instruments:      []string{"Brass", "Piano"},
		FinalInstruments: []string{"Brass", "Piano"},
		DecisionTrace:    json.RawMessage(`{"per_model":{}}`),
		UsedDemucs:       true,
		Mode:             "stems",
	}
	rec.WaveformPNG = "/waveforms/morning drive-0123456789.png"
	return rec
}

func TestDocumentProjection(t *testing.T) {
	rec := sampleRecord("/music/Morning Drive.mp3")
	doc := rec.Document()

	if doc.File != "Morning Drive.mp3" || doc.Path != "/music/Morning Drive.mp3" {
		t.Fatalf("identity = %q / %q", doc.File, doc.Path)
	}
	if doc.Title != "Morning Drive" {
		t.Errorf("Title = %q", doc.Title)
	}
	if doc.BPM == nil || *doc.BPM != 148 || doc.TempoBPM == nil || *doc.TempoBPM != 148 {
		t.Errorf("bpm fields = %v / %v, want 148", doc.BPM, doc.TempoBPM)
	}
	if doc.EstimatedTempoBPM == nil || *doc.EstimatedTempoBPM != 98 {
		t.Errorf("EstimatedTempoBPM = %v, want 98", doc.EstimatedTempoBPM)
	}
	if doc.TempoSource != tempo.SourceID3 {
		t.Errorf("TempoSource = %q", doc.TempoSource)
	}
	if doc.TempoAltHalfBPM == nil || *doc.TempoAltHalfBPM != 74 {
		t.Errorf("TempoAltHalfBPM = %v, want 74", doc.TempoAltHalfBPM)
	}
	if doc.TempoAltDoubleBPM != nil {
		t.Errorf("TempoAltDoubleBPM = %v, want absent", *doc.TempoAltDoubleBPM)
	}
	if !doc.HasWAVVersion {
		t.Error("HasWAVVersion lost")
	}
	if !reflect.DeepEqual(doc.Instruments, []string{"Brass", "Piano"}) {
		t.Errorf("Instruments = %v", doc.Instruments)
	}
	if !doc.Ensemble.UsedDemucs || doc.Ensemble.Mode != "stems" {
		t.Errorf("ensemble section = %+v", doc.Ensemble)
	}
	if doc.CreativeStatus != creative.StatusOK {
		t.Errorf("CreativeStatus = %q", doc.CreativeStatus)
	}
	if doc.WaveformPNG != rec.WaveformPNG {
		t.Errorf("WaveformPNG = %q", doc.WaveformPNG)
	}
}

func TestDocumentEmptyShape(t *testing.T) {
	rec := NewRecord("/music/empty.mp3")
	data, err := json.Marshal(rec.Document())
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		`"instruments":[]`,
		`"final_instruments":[]`,
		`"bpm":null`,
		`"tempo_bpm":null`,
		`"estimated_tempo_bpm":null`,
		`"title":"empty"`,
		`"vocals":["No Vocals"]`,
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("document missing %s:\n%s", want, data)
		}
	}
	if strings.Contains(string(data), "tempo_alt_half_bpm") {
		t.Error("absent alt tempo serialized")
	}
	if strings.Contains(string(data), "waveform_png") {
		t.Error("absent waveform serialized")
	}
}

func TestSidecarPath(t *testing.T) {
	if got := SidecarPath("/music/Track.MP3"); got != "/music/Track.json" {
		t.Errorf("SidecarPath = %q", got)
	}
}

func TestWriteSidecar(t *testing.T) {
	dir := t.TempDir()
	audio := filepath.Join(dir, "clip.mp3")
	rec := sampleRecord(audio)

	path, err := WriteSidecar(rec)
	if err != nil {
		t.Fatalf("WriteSidecar: %v", err)
	}
	if path != filepath.Join(dir, "clip.json") {
		t.Fatalf("sidecar path = %q", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(string(data), "\n") {
		t.Error("sidecar missing trailing newline")
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("sidecar not valid JSON: %v", err)
	}
	if doc.File != "clip.mp3" || doc.BPM == nil || *doc.BPM != 148 {
		t.Errorf("round trip = %q / %v", doc.File, doc.BPM)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("leftover files beside sidecar: %v", names)
	}
}

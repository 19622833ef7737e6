package analysis

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"rhythmdb/internal/media/tags"
	"rhythmdb/internal/tempo"
)

func TestApplyTempoOverride(t *testing.T) {
	var facts TechnicalFacts
	facts.ApplyTempo(tempo.Estimate{BPM: 148, Estimated: 98, Source: tempo.SourceID3, AltHalf: 74})

	if facts.BPM == nil || *facts.BPM != 148 {
		t.Fatalf("BPM = %v, want 148", facts.BPM)
	}
	if facts.EstimatedBPM == nil || *facts.EstimatedBPM != 98 {
		t.Fatalf("EstimatedBPM = %v, want 98", facts.EstimatedBPM)
	}
	if facts.BPMSource != tempo.SourceID3 {
		t.Errorf("BPMSource = %q", facts.BPMSource)
	}
	if facts.BPMAltHalf == nil || *facts.BPMAltHalf != 74 {
		t.Errorf("BPMAltHalf = %v, want 74", facts.BPMAltHalf)
	}
	if facts.BPMAltDouble != nil {
		t.Errorf("BPMAltDouble = %v, want absent", *facts.BPMAltDouble)
	}
}

func TestApplyTempoUnknown(t *testing.T) {
	var facts TechnicalFacts
	facts.ApplyTempo(tempo.Estimate{})
	if facts.BPM != nil || facts.EstimatedBPM != nil || facts.BPMSource != "" {
		t.Fatalf("unknown tempo left values: %+v", facts)
	}
}

func TestNewRecordSeedsIdentity(t *testing.T) {
	rec := NewRecord("/Music/Track 01.MP3")
	if rec.Key != "/music/track 01.mp3" {
		t.Errorf("Key = %q", rec.Key)
	}
	if rec.File != "Track 01.MP3" {
		t.Errorf("File = %q", rec.File)
	}
	if rec.AnalyzedAt == "" {
		t.Error("AnalyzedAt empty")
	}
	if !reflect.DeepEqual(rec.Creative.Vocals, []string{"No Vocals"}) {
		t.Errorf("Creative not defaulted: %v", rec.Creative.Vocals)
	}
}

func TestTitleFallsBackToStem(t *testing.T) {
	rec := NewRecord("/music/track01.mp3")
	if rec.Title() != "track01" {
		t.Errorf("Title = %q, want stem", rec.Title())
	}
	rec.Technical.Tags = tags.TagMap{Title: "Sunrise Drive"}
	if rec.Title() != "Sunrise Drive" {
		t.Errorf("Title = %q, want tag title", rec.Title())
	}
}

func TestRecordBPM(t *testing.T) {
	rec := NewRecord("/music/a.mp3")
	if rec.BPM() != 0 {
		t.Errorf("BPM = %d, want 0 for unknown", rec.BPM())
	}
	rec.Technical.ApplyTempo(tempo.Estimate{BPM: 120, Estimated: 120, Source: tempo.SourceThirds})
	if rec.BPM() != 120 {
		t.Errorf("BPM = %d, want 120", rec.BPM())
	}
}

func TestHasWAVSibling(t *testing.T) {
	dir := t.TempDir()
	audio := filepath.Join(dir, "groove.mp3")
	if err := os.WriteFile(audio, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if HasWAVSibling(audio) {
		t.Fatal("reported a sibling before one exists")
	}

	wav := filepath.Join(dir, "groove.wav")
	if err := os.WriteFile(wav, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if !HasWAVSibling(audio) {
		t.Fatal("missed the wav sibling")
	}
	if HasWAVSibling(wav) {
		t.Fatal("a wav input must not report itself")
	}
}

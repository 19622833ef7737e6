package main

import (
	"os"
	"path/filepath"
	"testing"

	"rhythmdb/internal/analysis"
	"rhythmdb/internal/testsupport"
)

func TestLibraryShowEmptyStore(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	path := writeTestConfig(t, cfg)

	stdout, _, err := runCLI(t, path, "library", "show")
	if err != nil {
		t.Fatalf("library show failed: %v", err)
	}
	requireContains(t, stdout, "No tracks in")
}

func TestLibraryShowListsTracks(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.NewStore(t, cfg)

	rec := analysis.NewRecord(filepath.Join(cfg.Paths.LibraryDir, "Jazz Set.mp3"))
	bpm := 120
	rec.Technical.BPM = &bpm
	rec.Creative.Genre = []string{"Jazz"}
	rec.Analysis.FinalInstruments = []string{"Piano"}
	testsupport.MustUpsert(t, store, rec)

	path := writeTestConfig(t, cfg)
	stdout, _, err := runCLI(t, path, "library", "show")
	if err != nil {
		t.Fatalf("library show failed: %v", err)
	}
	requireContains(t, stdout, "Jazz Set.mp3")
	requireContains(t, stdout, "120")
	requireContains(t, stdout, "Upbeat")
	requireContains(t, stdout, "Jazz")
	requireContains(t, stdout, "Piano")
	requireContains(t, stdout, "1 track(s) in")
}

func TestLibraryShowJSON(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.NewStore(t, cfg)
	testsupport.MustUpsert(t, store, analysis.NewRecord(filepath.Join(cfg.Paths.LibraryDir, "Quiet Morning.flac")))

	path := writeTestConfig(t, cfg)
	stdout, _, err := runCLI(t, path, "library", "show", "--json")
	if err != nil {
		t.Fatalf("library show --json failed: %v", err)
	}
	requireContains(t, stdout, `"tracks"`)
	requireContains(t, stdout, "Quiet Morning.flac")
}

func TestLibraryRebuildWritesCriteria(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.NewStore(t, cfg)

	first := analysis.NewRecord(filepath.Join(cfg.Paths.LibraryDir, "Jazz Set.mp3"))
	bpm := 120
	first.Technical.BPM = &bpm
	first.Creative.Genre = []string{"Jazz"}
	first.Analysis.FinalInstruments = []string{"Piano"}
	testsupport.MustUpsert(t, store, first)

	second := analysis.NewRecord(filepath.Join(cfg.Paths.LibraryDir, "Garage Night.mp3"))
	second.Creative.Genre = []string{"Rock"}
	testsupport.MustUpsert(t, store, second)

	path := writeTestConfig(t, cfg)
	stdout, _, err := runCLI(t, path, "library", "rebuild")
	if err != nil {
		t.Fatalf("library rebuild failed: %v", err)
	}
	requireContains(t, stdout, "Genre")
	requireContains(t, stdout, "facet values to")
	if _, err := os.Stat(cfg.CriteriaDBPath()); err != nil {
		t.Fatalf("criteria store not written: %v", err)
	}
}

package testsupport

import (
	"testing"

	"rhythmdb/internal/analysis"
	"rhythmdb/internal/config"
	"rhythmdb/internal/library"
	"rhythmdb/internal/logging"
)

// NewStore opens a library store rooted in the config's db folder.
func NewStore(t testing.TB, cfg *config.Config) *library.Store {
	t.Helper()
	return library.NewStore(cfg.Paths.DBFolder, logging.NewNop())
}

// MustUpsert seeds the store with a record, failing the test on error.
func MustUpsert(t testing.TB, store *library.Store, rec analysis.Record) analysis.Record {
	t.Helper()

	merged, err := store.Upsert(rec)
	if err != nil {
		t.Fatalf("store.Upsert: %v", err)
	}
	return merged
}

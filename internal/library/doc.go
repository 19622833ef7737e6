// Package library persists finished track analyses into the shared music
// database and derives the browse facets from it.
//
// Two JSON files live under the configured database folder. RhythmDB.json is
// the main store, a map of normalized track keys to full track records; it
// grows by upsert, merging each new analysis into whatever an earlier run
// already recorded for the same file. CriteriaDB.json is a projection of the
// main store into flat facet arrays (genres, moods, instruments, tempo bands
// and so on) that search UIs can load without touching individual records.
//
// Writers take an exclusive file lock per store and replace the file through
// a temp-and-rename write, so a crash never leaves a half-written database.
// Readers skip the lock and parse whatever complete file the last rename
// published.
package library

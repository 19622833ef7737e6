// Package preflight provides readiness checks for the external pieces the
// analysis pipeline depends on: the ffprobe, ffmpeg, and python binaries,
// the probe and classifier scripts, the Ollama server, and the store
// folders.
//
// The doctor command renders the full report and exits non-zero when a
// required piece is missing. The analyze command reuses the binary checks
// to fail fast before any track is submitted.
//
// Checks for features gated off by configuration pass with a "disabled"
// detail so the doctor table always lists every row.
package preflight

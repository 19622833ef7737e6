// Package config loads, normalizes, and validates RhythmDB configuration
// from TOML. Load applies defaults for missing keys, expands ~ in paths,
// and rejects configurations the pipeline cannot run with.
package config

package preflight

import (
	"context"

	"rhythmdb/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the filesystem and service checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Store folder", cfg.Paths.DBFolder),
		CheckDirectoryAccess("Log folder", cfg.Paths.LogDir),
	}

	if cfg.Paths.WaveformDir != "" {
		results = append(results, CheckDirectoryAccess("Waveform folder", cfg.Paths.WaveformDir))
	} else {
		results = append(results, Result{Name: "Waveform folder", Passed: true, Detail: "disabled"})
	}

	results = append(results, CheckOllama(ctx, cfg.Ollama))

	if script := cfg.Analysis.ProbeScript; script != "" {
		results = append(results, CheckFileAccess("Probe script", script))
	} else {
		results = append(results, Result{Name: "Probe script", Passed: true, Detail: "disabled"})
	}

	if script := cfg.Ensemble.Script; script != "" {
		results = append(results, CheckFileAccess("Classifier script", script))
	} else {
		results = append(results, Result{Name: "Classifier script", Passed: true, Detail: "disabled"})
	}

	return results
}

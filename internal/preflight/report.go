package preflight

import (
	"context"

	"rhythmdb/internal/config"
	"rhythmdb/internal/deps"
)

// Report aggregates every doctor check: binary availability plus the
// filesystem and service results.
type Report struct {
	Binaries []deps.Status
	Checks   []Result
}

// BuildReport runs all checks for the config.
func BuildReport(ctx context.Context, cfg *config.Config) Report {
	return Report{
		Binaries: CheckSystemDeps(ctx, cfg),
		Checks:   RunAll(ctx, cfg),
	}
}

// Healthy reports whether every required binary resolved and every check
// passed. Missing optional binaries do not fail the report.
func (r Report) Healthy() bool {
	for _, status := range r.Binaries {
		if !status.Available && !status.Optional {
			return false
		}
	}
	for _, check := range r.Checks {
		if !check.Passed {
			return false
		}
	}
	return true
}

// Package probes runs the optional per-window audio classifier during the
// technical phase. Each window is scored independently; window failures are
// isolated and an all-window failure degrades to an empty, skipped result.
package probes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"sort"
	"strings"
	"time"

	"rhythmdb/internal/logging"
)

// Statuses reported on a probe result.
const (
	StatusOK      = "ok"
	StatusSkipped = "skipped"
)

// hintScoreThreshold is the minimum classifier score for a label to become
// a boolean hint consumed by the tempo estimator and the creative prompt.
const hintScoreThreshold = 0.10

// Score pairs a classifier label with its score for one window.
type Score struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// WindowResult holds one window's classifier output.
type WindowResult struct {
	StartSec  float64  `json:"start_sec"`
	ClapTop   []Score  `json:"clap_top"`
	ASTLabels []string `json:"ast_labels"`
}

// Result aggregates all window probes for a track.
type Result struct {
	Status  string             `json:"status"`
	Hints   map[string]bool    `json:"hints,omitempty"`
	Windows []WindowResult     `json:"per_window,omitempty"`
	Scores  map[string]float64 `json:"scores,omitempty"`
}

// Skipped returns the result used when probing is disabled or every window failed.
func Skipped() Result {
	return Result{Status: StatusSkipped, Hints: map[string]bool{}}
}

// HasHint reports whether any hint label contains the given fragment.
// Lookup is case-insensitive.
func (r Result) HasHint(fragment string) bool {
	fragment = strings.ToLower(strings.TrimSpace(fragment))
	if fragment == "" {
		return false
	}
	for label, present := range r.Hints {
		if present && strings.Contains(label, fragment) {
			return true
		}
	}
	return false
}

// HintLabels returns the active hint labels in deterministic order.
func (r Result) HintLabels() []string {
	if len(r.Hints) == 0 {
		return nil
	}
	labels := make([]string, 0, len(r.Hints))
	for label, present := range r.Hints {
		if present {
			labels = append(labels, label)
		}
	}
	sort.Strings(labels)
	return labels
}

// Runner spawns the configured classifier script once per window.
type Runner struct {
	python     string
	script     string
	windows    int
	windowSec  float64
	perWindow  time.Duration
	logger     *slog.Logger
	runCommand func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewRunner builds a window probe runner. An empty script disables probing.
func NewRunner(python, script string, windows int, windowSec float64, perWindow time.Duration, logger *slog.Logger) *Runner {
	if windows <= 0 {
		windows = 3
	}
	if windowSec <= 0 {
		windowSec = 10
	}
	if perWindow <= 0 {
		perWindow = 15 * time.Second
	}
	return &Runner{
		python:     python,
		script:     strings.TrimSpace(script),
		windows:    windows,
		windowSec:  windowSec,
		perWindow:  perWindow,
		logger:     logging.NewComponentLogger(logger, "probes"),
		runCommand: runCommand,
	}
}

// Enabled reports whether a classifier script is configured.
func (r *Runner) Enabled() bool {
	return r != nil && r.script != ""
}

// Run probes up to the configured number of windows spread across the track.
// It never returns an error: probe failures degrade to a skipped result.
func (r *Runner) Run(ctx context.Context, path string, durationSec float64) Result {
	if !r.Enabled() || durationSec <= 0 {
		return Skipped()
	}

	starts := windowStarts(durationSec, r.windows, r.windowSec)
	result := Result{
		Status: StatusSkipped,
		Hints:  map[string]bool{},
		Scores: map[string]float64{},
	}
	counts := map[string]int{}

	for _, start := range starts {
		if ctx.Err() != nil {
			break
		}
		window, err := r.probeWindow(ctx, path, start)
		if err != nil {
			logging.WarnWithContext(ctx, r.logger, "window probe failed",
				logging.Float64("start_sec", start),
				logging.Error(err))
			continue
		}
		result.Status = StatusOK
		result.Windows = append(result.Windows, window)

		for _, score := range window.ClapTop {
			label := strings.ToLower(strings.TrimSpace(score.Label))
			if label == "" {
				continue
			}
			result.Scores[label] += score.Score
			counts[label]++
			if score.Score >= hintScoreThreshold {
				result.Hints[label] = true
			}
		}
		for _, label := range window.ASTLabels {
			normalized := strings.ToLower(strings.TrimSpace(label))
			if normalized != "" {
				result.Hints[normalized] = true
			}
		}
	}

	if result.Status == StatusSkipped {
		return Skipped()
	}
	for label, total := range result.Scores {
		if n := counts[label]; n > 0 {
			result.Scores[label] = total / float64(n)
		}
	}
	return result
}

func (r *Runner) probeWindow(ctx context.Context, path string, start float64) (WindowResult, error) {
	windowCtx, cancel := context.WithTimeout(ctx, r.perWindow)
	defer cancel()

	args := []string{
		r.script,
		"--audio", path,
		"--start", fmt.Sprintf("%.3f", start),
		"--duration", fmt.Sprintf("%.3f", r.windowSec),
		"--json",
	}
	output, err := r.runCommand(windowCtx, r.python, args...)
	if err != nil {
		return WindowResult{}, err
	}

	var payload struct {
		ClapTop   []Score  `json:"clap_top"`
		ASTLabels []string `json:"ast_labels"`
	}
	if err := json.Unmarshal(extractJSONObject(output), &payload); err != nil {
		return WindowResult{}, fmt.Errorf("parse probe output: %w", err)
	}
	return WindowResult{StartSec: start, ClapTop: payload.ClapTop, ASTLabels: payload.ASTLabels}, nil
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return nil, fmt.Errorf("%w: %s", err, detail)
	}
	return stdout.Bytes(), nil
}

// extractJSONObject trims any leading tool chatter before the first '{'.
func extractJSONObject(data []byte) []byte {
	if idx := bytes.IndexByte(data, '{'); idx > 0 {
		return data[idx:]
	}
	return data
}

// windowStarts spreads n windows of windowSec across a track, clamped inside
// the file. Short tracks collapse to fewer distinct windows.
func windowStarts(durationSec float64, n int, windowSec float64) []float64 {
	if durationSec <= windowSec {
		return []float64{0}
	}
	starts := make([]float64, 0, n)
	maxStart := durationSec - windowSec
	for i := 0; i < n; i++ {
		center := durationSec * (float64(i) + 0.5) / float64(n)
		start := center - windowSec/2
		if start < 0 {
			start = 0
		}
		if start > maxStart {
			start = maxStart
		}
		if len(starts) > 0 && start <= starts[len(starts)-1] {
			continue
		}
		starts = append(starts, start)
	}
	return starts
}

package ensemble

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"rhythmdb/internal/logging"
	"rhythmdb/internal/services"
)

// hintsEnvVar carries advisory creative suggestions into the classifier
// process. The payload mirrors the creative record's camelCase key.
const hintsEnvVar = "RNA_HINTS"

// Runner invokes the classifier script once per track and reads back the
// JSON document it writes.
type Runner struct {
	python     string
	script     string
	timeout    time.Duration
	useDemucs  bool
	logger     *slog.Logger
	runCommand func(ctx context.Context, extraEnv []string, name string, args ...string) ([]byte, error)
}

// NewRunner builds a classifier runner. An empty script disables the
// instrumentation phase entirely.
func NewRunner(python, script string, timeout time.Duration, useDemucs bool, logger *slog.Logger) *Runner {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &Runner{
		python:     python,
		script:     strings.TrimSpace(script),
		timeout:    timeout,
		useDemucs:  useDemucs,
		logger:     logging.NewComponentLogger(logger, "ensemble"),
		runCommand: runCommand,
	}
}

// Enabled reports whether a classifier script is configured.
func (r *Runner) Enabled() bool {
	return r != nil && r.script != ""
}

// Classify runs the classifier against one audio file. hints, when present,
// are exported to the subprocess environment; the script treats them as
// advisory only. Errors cover spawn, timeout, and unparseable output; the
// caller degrades them to an empty instrument list.
func (r *Runner) Classify(ctx context.Context, path string, hints []string) (*Result, error) {
	if !r.Enabled() {
		return nil, services.Wrap(services.ErrEnsemble, "instrumentation", "classify", "classifier script not configured", nil)
	}

	workDir, err := os.MkdirTemp("", "rhythmdb-ensemble-")
	if err != nil {
		return nil, services.Wrap(services.ErrEnsemble, "instrumentation", "classify", "create scratch dir", err)
	}
	defer os.RemoveAll(workDir)
	jsonPath := filepath.Join(workDir, "classifier.json")

	demucs := "0"
	if r.useDemucs {
		demucs = "1"
	}
	args := []string{
		r.script,
		"--audio", path,
		"--json-out", jsonPath,
		"--demucs", demucs,
	}

	var extraEnv []string
	if len(hints) > 0 {
		payload, err := json.Marshal(map[string][]string{"suggestedInstruments": hints})
		if err == nil {
			extraEnv = append(extraEnv, hintsEnvVar+"="+string(payload))
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	started := time.Now()
	stdout, runErr := r.runCommand(runCtx, extraEnv, r.python, args...)

	data, readErr := os.ReadFile(jsonPath)
	if readErr != nil || len(bytes.TrimSpace(data)) == 0 {
		// Older script revisions print the document instead of writing it.
		data = extractJSONObject(stdout)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		if runErr != nil {
			return nil, services.Wrap(services.ErrEnsemble, "instrumentation", "classify", "classifier run failed", runErr)
		}
		return nil, services.Wrap(services.ErrEnsemble, "instrumentation", "classify", "classifier produced no output", nil)
	}

	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, services.Wrap(services.ErrEnsemble, "instrumentation", "classify", "parse classifier output", err)
	}
	if res.Mode == "" {
		if res.UsedDemucs {
			res.Mode = ModeStems
		} else {
			res.Mode = ModeMixOnly
		}
	}

	r.logger.Info("classifier finished",
		logging.String(logging.FieldSourcePath, path),
		logging.Int("instruments", len(res.Instruments)),
		logging.String("mode", res.Mode),
		logging.Duration(logging.FieldDuration, time.Since(started)))
	return &res, nil
}

func runCommand(ctx context.Context, extraEnv []string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if len(extraEnv) > 0 {
		cmd.Env = append(os.Environ(), extraEnv...)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return stdout.Bytes(), services.Wrap(services.ErrExternalTool, "instrumentation", "run", detail, err)
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

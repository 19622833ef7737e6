package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"rhythmdb/internal/config"
	"rhythmdb/internal/creative"
	"rhythmdb/internal/deps"
	"rhythmdb/internal/logging"
	"rhythmdb/internal/services"
)

const ollamaCheckTimeout = 5 * time.Second

// CheckOllama verifies the Ollama server is reachable and the configured
// model is installed. One attempt, bounded by a short doctor timeout
// rather than the analysis timeout.
func CheckOllama(ctx context.Context, ollama config.Ollama) Result {
	const name = "Ollama"

	base := strings.TrimSpace(ollama.BaseURL)
	if base == "" {
		return Result{Name: name, Detail: "missing base url"}
	}
	model := strings.TrimSpace(ollama.Model)
	if model == "" {
		return Result{Name: name, Detail: "missing model"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, ollamaCheckTimeout)
	defer cancel()

	client := creative.NewClient(creative.Config{
		BaseURL:        base,
		Model:          model,
		TimeoutSeconds: int(ollamaCheckTimeout / time.Second),
	}, logging.NewNop())

	if err := client.CheckModel(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeOllamaError(base, model, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("model %q installed", model)}
}

// CheckDirectoryAccess verifies that the directory exists and is
// readable, writable, and traversable.
func CheckDirectoryAccess(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFileAccess verifies that the path names a readable regular file.
// Used for the probe and classifier scripts.
func CheckFileAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckSystemDeps evaluates the external binaries for the given config.
// Both the doctor command and the analyze startup path use this so the
// requirements list exists once. Python is optional until a probe or
// classifier script is configured.
func CheckSystemDeps(ctx context.Context, cfg *config.Config) []deps.Status {
	statuses := deps.CheckBinaries([]deps.Requirement{
		{
			Name:        "FFprobe",
			Command:     cfg.FFprobeBinary(),
			Description: "Required for container inspection",
		},
		{
			Name:        "FFmpeg",
			Command:     cfg.FFmpegBinary(),
			Description: "Required for tempo decoding and waveform rendering",
		},
	})
	pythonRequired := cfg.Analysis.ProbeScript != "" || cfg.Ensemble.Script != ""
	statuses = append(statuses, deps.CheckPythonRuntime(ctx, cfg.PythonBinary(), pythonRequired))
	return statuses
}

// summarizeOllamaError produces a table-friendly summary for a failed
// Ollama check.
func summarizeOllamaError(base, model string, err error) string {
	switch {
	case errors.Is(err, services.ErrLLMModelMissing):
		return fmt.Sprintf("model %q not installed (ollama pull %s)", model, model)
	case errors.Is(err, context.DeadlineExceeded):
		return "check timed out (server unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "check timed out (server unreachable)"
	}
	return "server unreachable at " + base
}

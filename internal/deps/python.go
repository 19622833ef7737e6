package deps

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const pythonProbeTimeout = 5 * time.Second

// CheckPythonRuntime verifies the Python interpreter the probe and
// classifier scripts run under. Presence alone is not enough for an
// interpreter that may point into a broken virtualenv, so the check
// executes `--version` and reports the version line as the detail.
func CheckPythonRuntime(ctx context.Context, command string, required bool) Status {
	status := Status{
		Name:        "Python",
		Command:     strings.TrimSpace(command),
		Description: "Runs the probe and classifier scripts",
		Optional:    !required,
	}
	if status.Command == "" {
		status.Detail = "command not configured"
		return status
	}

	resolved, err := exec.LookPath(status.Command)
	if err != nil {
		status.Detail = fmt.Sprintf("binary %q not found", status.Command)
		return status
	}
	status.Command = resolved

	runCtx, cancel := context.WithTimeout(ctx, pythonProbeTimeout)
	defer cancel()

	version, err := pythonVersion(runCtx, resolved)
	if err != nil {
		status.Detail = fmt.Sprintf("interpreter failed to run (%v)", err)
		return status
	}
	status.Available = true
	status.Detail = version
	return status
}

func pythonVersion(ctx context.Context, binary string) (string, error) {
	cmd := exec.CommandContext(ctx, binary, "--version")
	var out bytes.Buffer
	cmd.Stdout = &out
	// Python 2 printed the version on stderr; tolerate either stream.
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return "", err
	}
	version := strings.TrimSpace(out.String())
	if version == "" {
		version = "version unknown"
	}
	return version, nil
}

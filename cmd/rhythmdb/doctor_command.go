package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"rhythmdb/internal/deps"
	"rhythmdb/internal/preflight"
)

var errDoctorUnhealthy = errors.New("doctor found problems; fix the items marked ERROR")

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Verify binaries, scripts, folders, and the Ollama server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			report := preflight.BuildReport(cmd.Context(), cfg)

			if jsonOut {
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
			} else {
				renderDoctorReport(cmd, report)
			}

			if !report.Healthy() {
				return errDoctorUnhealthy
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the report as JSON")
	return cmd
}

func renderDoctorReport(cmd *cobra.Command, report preflight.Report) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	for _, line := range renderSectionHeader("External binaries", colorize) {
		fmt.Fprintln(out, line)
	}
	for _, status := range report.Binaries {
		fmt.Fprintln(out, renderStatusLine(status.Name, binaryKind(status), binaryDetail(status), colorize))
	}

	fmt.Fprintln(out)
	for _, line := range renderSectionHeader("Services and folders", colorize) {
		fmt.Fprintln(out, line)
	}
	for _, check := range report.Checks {
		kind := statusError
		if check.Passed {
			kind = statusOK
		}
		fmt.Fprintln(out, renderStatusLine(check.Name, kind, check.Detail, colorize))
	}
}

func binaryKind(status deps.Status) statusKind {
	switch {
	case status.Available:
		return statusOK
	case status.Optional:
		return statusWarn
	default:
		return statusError
	}
}

func binaryDetail(status deps.Status) string {
	if status.Available {
		if status.Detail != "" {
			return status.Command + " (" + status.Detail + ")"
		}
		return status.Command
	}
	return status.Detail
}

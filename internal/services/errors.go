package services

import (
	"errors"
	"fmt"
	"strings"
)

// Generic failure classes shared by every external integration.
var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// Analysis failure markers. Components tag their errors with one of these so
// the scheduler can decide whether a track still produces a record.
var (
	ErrProbeFailed     = errors.New("probe failed")
	ErrTagRead         = errors.New("tag read failed")
	ErrTempoEstimation = errors.New("tempo estimation failed")
	ErrLLMUnavailable  = errors.New("llm unavailable")
	ErrLLMModelMissing = errors.New("llm model missing")
	ErrLLMBadPayload   = errors.New("llm bad payload")
	ErrEnsemble        = errors.New("ensemble classification failed")
	ErrStoreIO         = errors.New("store io error")
)

// Wrap builds an error message that includes phase context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, phase, operation, message string, err error) error {
	detail := buildDetail(phase, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Fatal reports whether the error should abort the current track (or write).
// Probe failures leave nothing worth recording, and store failures must never
// persist a partial file. Everything else degrades to defaults.
func Fatal(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrProbeFailed) || errors.Is(err, ErrStoreIO)
}

func buildDetail(phase, operation, message string) string {
	parts := make([]string, 0, 3)
	if phase = strings.TrimSpace(phase); phase != "" {
		parts = append(parts, phase)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}

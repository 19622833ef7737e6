// Package testsupport provides shared helpers for exercising the analysis
// pipeline in tests: temp-rooted configs, audio fixtures, stub external
// tools, and pre-seeded library stores.
package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"rhythmdb/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// External integrations start inert: probe and classifier scripts are unset,
// waveforms are disabled, and the Ollama endpoint points at a closed local
// port so creative calls fail fast instead of reaching a real server.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.LibraryDir = filepath.Join(base, "library")
	cfgVal.Paths.DBFolder = filepath.Join(base, "db")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.WaveformDir = ""
	cfgVal.Analysis.ProbeScript = ""
	cfgVal.Ensemble.Script = ""
	cfgVal.Ollama.BaseURL = "http://127.0.0.1:1"
	cfgVal.Ollama.TimeoutSeconds = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithMode sets the background phase ordering on the test config.
func WithMode(mode string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Analysis.Mode = mode
	}
}

// WithWaveforms enables waveform rendering into a temp cache directory.
func WithWaveforms() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.WaveformDir = filepath.Join(b.baseDir, "waveforms")
	}
}

// WithOllama points the creative client at the given endpoint and model.
func WithOllama(baseURL, model string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Ollama.BaseURL = baseURL
		if model != "" {
			b.cfg.Ollama.Model = model
		}
	}
}

// WithEnsembleScript enables the instrument classifier with the given script.
func WithEnsembleScript(script string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Ensemble.Script = script
	}
}

// WithStubbedTools writes failing stub executables for ffprobe, ffmpeg, and
// python3 and points the tool configuration at them, keeping tests off the
// host's real binaries. Individual tests overwrite the stubs they need with
// StubTool.
func WithStubbedTools() ConfigOption {
	return func(b *configBuilder) {
		binDir := filepath.Join(b.baseDir, "bin")
		b.cfg.Tools.FFprobe = StubTool(b.t, binDir, "ffprobe", "exit 1")
		b.cfg.Tools.FFmpeg = StubTool(b.t, binDir, "ffmpeg", "exit 1")
		b.cfg.Tools.Python = StubTool(b.t, binDir, "python3", "exit 1")
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DBFolder)
}

// StubTool writes an executable shell script into dir and returns its path.
// The body runs under /bin/sh; dir is created as needed.
func StubTool(t testing.TB, dir, name, body string) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create stub bin dir: %v", err)
	}
	path := filepath.Join(dir, name)
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}
	return path
}

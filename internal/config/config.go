package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	LibraryDir  string `toml:"library_dir"`
	DBFolder    string `toml:"db_folder"`
	WaveformDir string `toml:"waveform_dir"`
	LogDir      string `toml:"log_dir"`
}

// Tools names the external executables the pipeline shells out to.
type Tools struct {
	FFprobe string `toml:"ffprobe"`
	FFmpeg  string `toml:"ffmpeg"`
	Python  string `toml:"python"`
}

// Analysis contains scheduler and probe tuning.
type Analysis struct {
	// Mode selects background phase ordering: "concurrent" runs Creative and
	// Instrumentation in parallel, "sequential" runs Creative first.
	Mode                   string `toml:"mode"`
	TechnicalWorkers       int    `toml:"technical_workers"`
	CreativeWorkers        int    `toml:"creative_workers"`
	InstrumentationWorkers int    `toml:"instrumentation_workers"`
	ProbeWindows           int    `toml:"probe_windows"`
	ProbeWindowSeconds     int    `toml:"probe_window_seconds"`
	ProbeTimeoutSeconds    int    `toml:"probe_timeout_seconds"`
	// ProbeScript optionally points at a per-window classifier invoked during
	// the technical phase. Empty disables window classification.
	ProbeScript          string `toml:"probe_script"`
	ShutdownGraceSeconds int    `toml:"shutdown_grace_seconds"`
}

// Ollama contains connection settings for the local LLM server.
type Ollama struct {
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Ensemble contains settings for the Python instrument classifier.
type Ensemble struct {
	Script         string `toml:"script"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	UseDemucs      bool   `toml:"use_demucs"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for RhythmDB.
//
// Configuration sections by subsystem:
//   - Paths: library root, store folder, waveform cache, logs
//   - Tools: external executable names or absolute paths
//   - Analysis: worker pool sizes, phase mode, probe windows and timeouts
//   - Ollama: local LLM connection settings for the creative phase
//   - Ensemble: Python classifier invocation for the instrumentation phase
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Tools    Tools    `toml:"tools"`
	Analysis Analysis `toml:"analysis"`
	Ollama   Ollama   `toml:"ollama"`
	Ensemble Ensemble `toml:"ensemble"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/rhythmdb/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/rhythmdb/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("rhythmdb.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for pipeline operation.
// LibraryDir is created on a best-effort basis so analysis of an explicit
// file list can run when the configured library root is unavailable.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DBFolder, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.LibraryDir) != "" {
		_ = os.MkdirAll(c.Paths.LibraryDir, 0o755)
	}
	if strings.TrimSpace(c.Paths.WaveformDir) != "" {
		if err := os.MkdirAll(c.Paths.WaveformDir, 0o755); err != nil {
			return fmt.Errorf("create waveform directory %q: %w", c.Paths.WaveformDir, err)
		}
	}
	return nil
}

// MainDBPath returns the path of the aggregated track store.
func (c *Config) MainDBPath() string {
	return filepath.Join(c.Paths.DBFolder, "RhythmDB.json")
}

// CriteriaDBPath returns the path of the search facet store.
func (c *Config) CriteriaDBPath() string {
	return filepath.Join(c.Paths.DBFolder, "CriteriaDB.json")
}

// FFprobeBinary returns the ffprobe executable used for container inspection.
func (c *Config) FFprobeBinary() string {
	if v := strings.TrimSpace(c.Tools.FFprobe); v != "" {
		return v
	}
	return "ffprobe"
}

// FFmpegBinary returns the ffmpeg executable used for decoding and waveforms.
func (c *Config) FFmpegBinary() string {
	if v := strings.TrimSpace(c.Tools.FFmpeg); v != "" {
		return v
	}
	return "ffmpeg"
}

// PythonBinary returns the interpreter used to launch the ensemble classifier.
func (c *Config) PythonBinary() string {
	if v := strings.TrimSpace(c.Tools.Python); v != "" {
		return v
	}
	return "python3"
}

// ProbeTimeout returns the per-window probe timeout as a duration.
func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Analysis.ProbeTimeoutSeconds) * time.Second
}

// OllamaTimeout returns the creative request timeout as a duration.
func (c *Config) OllamaTimeout() time.Duration {
	return time.Duration(c.Ollama.TimeoutSeconds) * time.Second
}

// EnsembleTimeout returns the classifier spawn timeout as a duration.
func (c *Config) EnsembleTimeout() time.Duration {
	return time.Duration(c.Ensemble.TimeoutSeconds) * time.Second
}

// ShutdownGrace returns the bounded wait applied to background phases
// during graceful shutdown.
func (c *Config) ShutdownGrace() time.Duration {
	return time.Duration(c.Analysis.ShutdownGraceSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	sample := sampleConfig

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

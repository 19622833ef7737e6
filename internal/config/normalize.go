package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTools()
	c.normalizeAnalysis()
	if err := c.normalizeOllama(); err != nil {
		return err
	}
	if err := c.normalizeEnsemble(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.LibraryDir, err = expandPath(c.Paths.LibraryDir); err != nil {
		return fmt.Errorf("paths.library_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DBFolder) == "" {
		c.Paths.DBFolder = defaultDBFolder
	}
	if c.Paths.DBFolder, err = expandPath(c.Paths.DBFolder); err != nil {
		return fmt.Errorf("paths.db_folder: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	// WaveformDir stays empty when unset: empty disables waveform rendering.
	if strings.TrimSpace(c.Paths.WaveformDir) != "" {
		if c.Paths.WaveformDir, err = expandPath(c.Paths.WaveformDir); err != nil {
			return fmt.Errorf("paths.waveform_dir: %w", err)
		}
	} else {
		c.Paths.WaveformDir = ""
	}
	return nil
}

func (c *Config) normalizeTools() {
	c.Tools.FFprobe = strings.TrimSpace(c.Tools.FFprobe)
	if c.Tools.FFprobe == "" {
		c.Tools.FFprobe = "ffprobe"
	}
	c.Tools.FFmpeg = strings.TrimSpace(c.Tools.FFmpeg)
	if c.Tools.FFmpeg == "" {
		c.Tools.FFmpeg = "ffmpeg"
	}
	c.Tools.Python = strings.TrimSpace(c.Tools.Python)
	if c.Tools.Python == "" {
		c.Tools.Python = "python3"
	}
}

func (c *Config) normalizeAnalysis() {
	c.Analysis.Mode = strings.ToLower(strings.TrimSpace(c.Analysis.Mode))
	switch c.Analysis.Mode {
	case "", "concurrent":
		c.Analysis.Mode = "concurrent"
	case "sequential":
	default:
		c.Analysis.Mode = "concurrent"
	}
	c.Analysis.TechnicalWorkers = clampWorkers(c.Analysis.TechnicalWorkers)
	c.Analysis.CreativeWorkers = clampWorkers(c.Analysis.CreativeWorkers)
	c.Analysis.InstrumentationWorkers = clampWorkers(c.Analysis.InstrumentationWorkers)
	if c.Analysis.ProbeWindows <= 0 {
		c.Analysis.ProbeWindows = defaultProbeWindows
	}
	if c.Analysis.ProbeWindowSeconds <= 0 {
		c.Analysis.ProbeWindowSeconds = defaultProbeWindowSeconds
	}
	if c.Analysis.ProbeTimeoutSeconds <= 0 {
		c.Analysis.ProbeTimeoutSeconds = defaultProbeTimeoutSeconds
	}
	if c.Analysis.ShutdownGraceSeconds <= 0 {
		c.Analysis.ShutdownGraceSeconds = defaultShutdownGraceSeconds
	}
	c.Analysis.ProbeScript = strings.TrimSpace(c.Analysis.ProbeScript)
}

// clampWorkers bounds pool degrees to [1, 8].
func clampWorkers(n int) int {
	if n <= 0 {
		return defaultWorkers
	}
	if n > maxWorkers {
		return maxWorkers
	}
	return n
}

func (c *Config) normalizeOllama() error {
	c.Ollama.BaseURL = strings.TrimRight(strings.TrimSpace(c.Ollama.BaseURL), "/")
	if c.Ollama.BaseURL == "" {
		c.Ollama.BaseURL = defaultOllamaBaseURL
	}
	c.Ollama.Model = strings.TrimSpace(c.Ollama.Model)
	if c.Ollama.Model == "" {
		c.Ollama.Model = defaultOllamaModel
	}
	if c.Ollama.TimeoutSeconds <= 0 {
		c.Ollama.TimeoutSeconds = defaultOllamaTimeoutSeconds
	}
	return nil
}

func (c *Config) normalizeEnsemble() error {
	var err error
	c.Ensemble.Script = strings.TrimSpace(c.Ensemble.Script)
	if c.Ensemble.Script != "" {
		if c.Ensemble.Script, err = expandPath(c.Ensemble.Script); err != nil {
			return fmt.Errorf("ensemble.script: %w", err)
		}
	}
	if c.Ensemble.TimeoutSeconds <= 0 {
		c.Ensemble.TimeoutSeconds = defaultEnsembleTimeoutSeconds
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

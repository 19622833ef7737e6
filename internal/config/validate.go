package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateAnalysis(); err != nil {
		return err
	}
	if err := c.validateOllama(); err != nil {
		return err
	}
	if err := c.validateEnsemble(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.DBFolder == "" {
		return errors.New("paths.db_folder must be set")
	}
	return nil
}

func (c *Config) validateAnalysis() error {
	if c.Analysis.Mode != "concurrent" && c.Analysis.Mode != "sequential" {
		return fmt.Errorf("analysis.mode must be \"concurrent\" or \"sequential\", got %q", c.Analysis.Mode)
	}
	if err := ensurePositiveMap(map[string]int{
		"analysis.technical_workers":       c.Analysis.TechnicalWorkers,
		"analysis.creative_workers":        c.Analysis.CreativeWorkers,
		"analysis.instrumentation_workers": c.Analysis.InstrumentationWorkers,
		"analysis.probe_windows":           c.Analysis.ProbeWindows,
		"analysis.probe_window_seconds":    c.Analysis.ProbeWindowSeconds,
		"analysis.probe_timeout_seconds":   c.Analysis.ProbeTimeoutSeconds,
	}); err != nil {
		return err
	}
	for name, value := range map[string]int{
		"analysis.technical_workers":       c.Analysis.TechnicalWorkers,
		"analysis.creative_workers":        c.Analysis.CreativeWorkers,
		"analysis.instrumentation_workers": c.Analysis.InstrumentationWorkers,
	} {
		if value > maxWorkers {
			return fmt.Errorf("%s must be at most %d", name, maxWorkers)
		}
	}
	return nil
}

func (c *Config) validateOllama() error {
	if c.Ollama.BaseURL == "" {
		return errors.New("ollama.base_url must be set")
	}
	if c.Ollama.Model == "" {
		return errors.New("ollama.model must be set")
	}
	if c.Ollama.TimeoutSeconds <= 0 {
		return errors.New("ollama.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateEnsemble() error {
	if c.Ensemble.TimeoutSeconds <= 0 {
		return errors.New("ensemble.timeout_seconds must be positive")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}

package config

import (
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateScoring(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return fmt.Errorf("paths.data_dir must not be empty")
	}
	return nil
}

func (c *Config) validateScoring() error {
	if c.Scoring.MinSpeechDensity < 0 || c.Scoring.MinSpeechDensity > 1 {
		return fmt.Errorf("scoring.min_speech_density must be within [0,1], got %v", c.Scoring.MinSpeechDensity)
	}
	if c.Scoring.MaxSilencePenalty < 0 || c.Scoring.MaxSilencePenalty > 1 {
		return fmt.Errorf("scoring.max_silence_penalty must be within [0,1], got %v", c.Scoring.MaxSilencePenalty)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

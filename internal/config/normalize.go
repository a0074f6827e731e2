package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeWorkflow()
	c.normalizeScoring()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.Workers <= 0 {
		c.Workflow.Workers = defaultWorkers
	}
	if c.Workflow.QueuePollInterval <= 0 {
		c.Workflow.QueuePollInterval = defaultQueuePollInterval
	}
	if c.Workflow.LeaseSeconds <= 0 {
		c.Workflow.LeaseSeconds = defaultLeaseSeconds
	}
	if c.Workflow.ReclaimInterval <= 0 {
		c.Workflow.ReclaimInterval = defaultReclaimInterval
	}
	if c.Workflow.OrchestrationTopN <= 0 {
		c.Workflow.OrchestrationTopN = defaultOrchestrationTopN
	}
}

func (c *Config) normalizeScoring() {
	if c.Scoring.MinSpeechDensity <= 0 {
		c.Scoring.MinSpeechDensity = defaultMinSpeechDensity
	}
	if c.Scoring.MaxSilencePenalty <= 0 {
		c.Scoring.MaxSilencePenalty = defaultMaxSilencePenalty
	}
	if c.Scoring.TargetDurationSec <= 0 {
		c.Scoring.TargetDurationSec = defaultTargetDurationSec
	}
	trimmed := c.Scoring.BoostKeywords[:0]
	for _, kw := range c.Scoring.BoostKeywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			trimmed = append(trimmed, kw)
		}
	}
	c.Scoring.BoostKeywords = trimmed
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if format == "" {
		format = defaultLogFormat
	}
	c.Logging.Format = format

	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if level == "" {
		level = defaultLogLevel
	}
	c.Logging.Level = level
}

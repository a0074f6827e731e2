// Package testsupport provides per-test configurations and opened stores so
// tests exercise the real SQLite-backed components in isolated temp dirs.
package testsupport

import (
	"path/filepath"
	"testing"

	"clipforge/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithWorkers overrides the worker count on the test config.
func WithWorkers(n int) ConfigOption {
	return func(c *config.Config) {
		c.Workflow.Workers = n
	}
}

// WithBoostKeywords sets the scoring boost keywords on the test config.
func WithBoostKeywords(keywords ...string) ConfigOption {
	return func(c *config.Config) {
		c.Scoring.BoostKeywords = keywords
	}
}

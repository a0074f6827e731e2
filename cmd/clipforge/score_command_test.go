package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"clipforge/internal/scoring"
)

func runCommand(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	cmd, cleanup := newRootCommand()
	defer cleanup()

	configPath := filepath.Join(t.TempDir(), "clipforge.toml")
	cmd.SetArgs(append(args, "-c", configPath))
	cmd.SetIn(strings.NewReader(stdin))
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("command %v failed: %v\n%s", args, err, out.String())
	}
	return out.String()
}

func TestScoreCommandRanksWindows(t *testing.T) {
	windows := []scoring.Window{
		{StartMS: 0, EndMS: 20000, SpeechDensity: 0.8, AvgConfidence: 0.9, TextEnergy: 0.5, SilencePenalty: 0.1},
		{StartMS: 20000, EndMS: 40000, SpeechDensity: 0.5, AvgConfidence: 0.6, TextEnergy: 0.3, SilencePenalty: 0.4},
		{StartMS: 40000, EndMS: 60000, SpeechDensity: 0.1, AvgConfidence: 0.6, TextEnergy: 0.3, SilencePenalty: 0.2},
	}
	payload, err := json.Marshal(windows)
	if err != nil {
		t.Fatalf("marshal windows: %v", err)
	}

	out := runCommand(t, string(payload), "score", "-", "--json", "--top-n", "2")

	var result scoring.Result
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if len(result.Windows) != 2 {
		t.Fatalf("expected 2 scored windows, got %d", len(result.Windows))
	}
	if result.Windows[0].Window.StartMS != 0 {
		t.Errorf("strongest window should rank first, got %d", result.Windows[0].Window.StartMS)
	}
	// The low-density window is filtered, not just truncated.
	if _, ok := result.Explanations["40000-60000"]; ok {
		t.Error("filtered window should have no explanation entry")
	}
}

func TestVersionCommand(t *testing.T) {
	out := runCommand(t, "", "version")
	if !strings.HasPrefix(out, "clipforge ") {
		t.Fatalf("unexpected version output %q", out)
	}
}

func TestConfigShowPrintsTOML(t *testing.T) {
	out := runCommand(t, "", "config", "show")
	if !strings.Contains(out, "[workflow]") || !strings.Contains(out, "workers") {
		t.Fatalf("config show output missing workflow section:\n%s", out)
	}
}

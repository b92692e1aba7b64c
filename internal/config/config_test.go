package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Days != DefaultDays {
		t.Errorf("Days = %d, want %d", cfg.Days, DefaultDays)
	}
	if cfg.Workers != DefaultWorkers {
		t.Errorf("Workers = %d, want %d", cfg.Workers, DefaultWorkers)
	}
	if cfg.Idle != DefaultIdle {
		t.Errorf("Idle = %+v, want %+v", cfg.Idle, DefaultIdle)
	}
	if cfg.Analyzer != DefaultAnalyzer {
		t.Errorf("Analyzer = %+v, want %+v", cfg.Analyzer, DefaultAnalyzer)
	}
	if cfg.Output != DefaultOutput {
		t.Errorf("Output = %+v, want %+v", cfg.Output, DefaultOutput)
	}
	if cfg.Telemetry != DefaultTelemetry {
		t.Errorf("Telemetry = %+v, want %+v", cfg.Telemetry, DefaultTelemetry)
	}
	if strings.HasPrefix(cfg.ClaudeHome, "~") {
		t.Errorf("ClaudeHome not expanded: %q", cfg.ClaudeHome)
	}
}

func TestLoad_FileOverrides(t *testing.T) {
	path := writeConfig(t, `
claude_home: /data/claude
days: 30
workers: 2
idle_duration_minutes: 120
idle_tool_calls: 3
confidence_threshold: 70
blocked_min_duration: 15
blocked_min_tool_calls: 40
output:
  color: false
  width: 120
telemetry:
  enabled: true
  endpoint: otel.internal:4317
  insecure: true
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.ClaudeHome != "/data/claude" {
		t.Errorf("ClaudeHome = %q", cfg.ClaudeHome)
	}
	if cfg.Days != 30 || cfg.Workers != 2 {
		t.Errorf("Days = %d, Workers = %d", cfg.Days, cfg.Workers)
	}
	if cfg.Idle.DurationMinutes != 120 || cfg.Idle.ToolCalls != 3 {
		t.Errorf("Idle = %+v", cfg.Idle)
	}
	if cfg.Analyzer.ConfidenceThreshold != 70 || cfg.Analyzer.BlockedMinDuration != 15 || cfg.Analyzer.BlockedMinToolCalls != 40 {
		t.Errorf("Analyzer = %+v", cfg.Analyzer)
	}
	if cfg.Output.Color || cfg.Output.Width != 120 {
		t.Errorf("Output = %+v", cfg.Output)
	}
	if !cfg.Telemetry.Enabled || cfg.Telemetry.Endpoint != "otel.internal:4317" || !cfg.Telemetry.Insecure {
		t.Errorf("Telemetry = %+v", cfg.Telemetry)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "days: 14\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Days != 14 {
		t.Errorf("Days = %d, want 14", cfg.Days)
	}
	if cfg.Analyzer.ConfidenceThreshold != 60 {
		t.Errorf("ConfidenceThreshold = %d, want default 60", cfg.Analyzer.ConfidenceThreshold)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"negative days", "days: -1\n"},
		{"zero workers", "workers: 0\n"},
		{"threshold over 100", "confidence_threshold: 101\n"},
		{"negative idle tool calls", "idle_tool_calls: -1\n"},
		{"negative blocked duration", "blocked_min_duration: -5\n"},
		{"malformed yaml", "days: [1, 2\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.content)); err == nil {
				t.Errorf("expected error for %s", tc.name)
			}
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SESSIONLENS_DAYS", "21")
	t.Setenv("SESSIONLENS_OUTPUT_WIDTH", "100")

	cfg, err := Load(writeConfig(t, "days: 14\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Days != 21 {
		t.Errorf("Days = %d, want env value 21", cfg.Days)
	}
	if cfg.Output.Width != 100 {
		t.Errorf("Output.Width = %d, want env value 100", cfg.Output.Width)
	}
}

func TestDBPath_UnderConfigDir(t *testing.T) {
	if got := DBPath(); filepath.Dir(got) != ConfigDir() || filepath.Base(got) != DefaultDBName {
		t.Errorf("DBPath() = %q, want %s under %s", got, DefaultDBName, ConfigDir())
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := expandPath("~/x/y"); got != filepath.Join(home, "x/y") {
		t.Errorf("expandPath = %q", got)
	}
	if got := expandPath("/abs"); got != "/abs" {
		t.Errorf("expandPath(/abs) = %q", got)
	}
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/blackwell-systems/sessionlens/internal/analyzer"
	"github.com/blackwell-systems/sessionlens/internal/telemetry"
)

// Config is the top-level sessionlens configuration.
type Config struct {
	ClaudeHome string           `mapstructure:"claude_home"`
	Days       int              `mapstructure:"days"`
	Workers    int              `mapstructure:"workers"`
	Idle       Idle             `mapstructure:",squash"`
	Analyzer   analyzer.Options `mapstructure:",squash"`
	Output     Output           `mapstructure:"output"`
	Telemetry  telemetry.Config `mapstructure:"telemetry"`
}

// Idle defines the idle-session filter applied during extraction: sessions
// longer than DurationMinutes with fewer than ToolCalls tool calls are
// dropped.
type Idle struct {
	DurationMinutes float64 `mapstructure:"idle_duration_minutes"`
	ToolCalls       int     `mapstructure:"idle_tool_calls"`
}

// Output defines output preferences.
type Output struct {
	Color bool `mapstructure:"color"`
	Width int  `mapstructure:"width"`
}

// expandPath replaces a leading ~ with the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// Load reads the YAML file at cfgFile, or ConfigDir()/config.yaml when
// cfgFile is empty, over the built-in defaults. A missing file is not an
// error. SESSIONLENS_* environment variables override both, with dots in
// nested keys written as underscores (SESSIONLENS_OUTPUT_COLOR).
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults() {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix("SESSIONLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile == "" {
		cfgFile = filepath.Join(ConfigDir(), DefaultConfigFile)
	}
	v.SetConfigFile(expandPath(cfgFile))
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config %s: %w", cfgFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.ClaudeHome = expandPath(cfg.ClaudeHome)
	return &cfg, nil
}

func defaults() map[string]any {
	return map[string]any{
		"claude_home":            DefaultClaudeHome,
		"days":                   DefaultDays,
		"workers":                DefaultWorkers,
		"idle_duration_minutes":  DefaultIdle.DurationMinutes,
		"idle_tool_calls":        DefaultIdle.ToolCalls,
		"confidence_threshold":   DefaultAnalyzer.ConfidenceThreshold,
		"blocked_min_duration":   DefaultAnalyzer.BlockedMinDuration,
		"blocked_min_tool_calls": DefaultAnalyzer.BlockedMinToolCalls,
		"output.color":           DefaultOutput.Color,
		"output.width":           DefaultOutput.Width,
		"telemetry.enabled":      DefaultTelemetry.Enabled,
		"telemetry.endpoint":     DefaultTelemetry.Endpoint,
		"telemetry.insecure":     DefaultTelemetry.Insecure,
	}
}

// Validate rejects settings the analysis cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Days < 0:
		return fmt.Errorf("config: days must be >= 0, got %d", c.Days)
	case c.Workers < 1:
		return fmt.Errorf("config: workers must be >= 1, got %d", c.Workers)
	case c.Analyzer.ConfidenceThreshold < 0 || c.Analyzer.ConfidenceThreshold > 100:
		return fmt.Errorf("config: confidence_threshold must be within 0-100, got %d", c.Analyzer.ConfidenceThreshold)
	case c.Idle.DurationMinutes < 0 || c.Idle.ToolCalls < 0:
		return fmt.Errorf("config: idle thresholds must be >= 0")
	case c.Analyzer.BlockedMinDuration < 0 || c.Analyzer.BlockedMinToolCalls < 0:
		return fmt.Errorf("config: blocked thresholds must be >= 0")
	}
	return nil
}

// DBPath is the snapshot database location.
func DBPath() string {
	return filepath.Join(ConfigDir(), DefaultDBName)
}

// ConfigDir returns the expanded configuration directory.
func ConfigDir() string {
	return expandPath(DefaultConfigDir)
}

// Package config provides configuration loading and defaults for sessionlens.
package config

import (
	"github.com/blackwell-systems/sessionlens/internal/analyzer"
	"github.com/blackwell-systems/sessionlens/internal/telemetry"
)

// DefaultClaudeHome is the default location of Claude Code's data directory.
const DefaultClaudeHome = "~/.claude"

// DefaultConfigDir is the default location for sessionlens configuration.
const DefaultConfigDir = "~/.config/sessionlens"

// DefaultDBName is the filename for the SQLite database.
const DefaultDBName = "sessionlens.db"

// DefaultConfigFile is the filename for the YAML config.
const DefaultConfigFile = "config.yaml"

// DefaultDays is the default analysis window.
const DefaultDays = 7

// DefaultWorkers bounds parallel extraction and classification.
const DefaultWorkers = 8

// DefaultIdle marks sessions left open for hours with almost no activity.
var DefaultIdle = Idle{
	DurationMinutes: 360,
	ToolCalls:       5,
}

// DefaultAnalyzer holds the default outcome thresholds.
var DefaultAnalyzer = analyzer.DefaultOptions()

// DefaultOutput holds the default output preferences.
var DefaultOutput = Output{
	Color: true,
	Width: 80,
}

// DefaultTelemetry leaves metric export off; enabling it targets a local
// collector.
var DefaultTelemetry = telemetry.Config{
	Enabled:  false,
	Endpoint: "localhost:4317",
}

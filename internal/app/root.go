// Package app contains the Cobra command tree for sessionlens.
package app

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/sessionlens/internal/config"
	"github.com/blackwell-systems/sessionlens/internal/output"
)

var appVersion = "dev"

// SetVersion sets the application version (called from main with ldflags value).
func SetVersion(v string) {
	appVersion = v
	rootCmd.Version = v
}

var (
	flagNoColor bool
	flagJSON    bool
	flagVerbose bool
	flagConfig  string
)

// appConfig and logger are set by the root pre-run hook before any
// subcommand runs.
var (
	appConfig *config.Config
	logger    = slog.New(slog.DiscardHandler)
)

var rootCmd = &cobra.Command{
	Use:   "sessionlens",
	Short: "Classify Claude Code sessions and report on how they ended",
	Long: `sessionlens reads local Claude Code transcripts, classifies every session
by task type and outcome, and aggregates the results into a usage report.

Run 'sessionlens' with no arguments to see the available commands.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		fmt.Fprintln(w, "sessionlens", appVersion)
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Use a subcommand:")
		fmt.Fprintln(w, "  analyze   Classify recent sessions and print the aggregate report")
		fmt.Fprintln(w, "  sessions  List classified sessions or inspect one")
		fmt.Fprintln(w, "  classify  Classify raw session records from a JSON file")
		fmt.Fprintln(w, "  track     Snapshot the report and compare against earlier runs")
		fmt.Fprintln(w, "  suggest   Rank improvement suggestions from recent sessions")
		fmt.Fprintln(w, "  watch     Alert when new sessions end blocked or abandoned")
		fmt.Fprintln(w, "  mcp       Serve the classifier over MCP stdio")
		return nil
	},
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file path (default: ~/.config/sessionlens/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Output as JSON")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable debug logging on stderr")
}

// setup loads the config and prepares logging and terminal styling.
func setup(cmd *cobra.Command, args []string) error {
	level := slog.LevelWarn
	if flagVerbose {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	appConfig = cfg

	output.SetNoColor(!output.DetectColor(cfg.Output.Color, flagNoColor, os.Stdout))
	output.SetWidth(cfg.Output.Width)
	logger.Debug("config loaded", "claude_home", cfg.ClaudeHome, "days", cfg.Days, "workers", cfg.Workers)
	return nil
}

// writeJSON encodes v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

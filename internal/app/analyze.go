package app

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/sessionlens/internal/aggregate"
	"github.com/blackwell-systems/sessionlens/internal/analyzer"
	"github.com/blackwell-systems/sessionlens/internal/claude"
	"github.com/blackwell-systems/sessionlens/internal/pipeline"
	"github.com/blackwell-systems/sessionlens/internal/suggest"
)

var (
	analyzeDays            int
	analyzeProject         string
	analyzeComparePrevious bool
	analyzeInput           string
	analyzeOutput          string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Classify recent sessions and print the aggregate report",
	Long: `Extract sessions from Claude Code transcripts, classify each one by task
type, completion, and outcome, and aggregate them into a report.

With --input, raw session records are read from a JSON file instead of
transcripts. --output writes the full report data (report plus every
classified session) as JSON; that file can be fed back through --input.

Examples:
  sessionlens analyze                          # last 7 days (config default)
  sessionlens analyze --days 30 --project api  # one project, last 30 days
  sessionlens analyze --compare-previous       # include deltas vs the prior window
  sessionlens analyze --days 0 --json          # all history as JSON
  sessionlens analyze --input sessions.json    # classify pre-extracted records`,
	Args: cobra.NoArgs,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().IntVar(&analyzeDays, "days", -1, "Days of history to analyze (0 = all; default from config)")
	analyzeCmd.Flags().StringVar(&analyzeProject, "project", "", "Only sessions whose project path contains this")
	analyzeCmd.Flags().BoolVar(&analyzeComparePrevious, "compare-previous", false, "Compare against the preceding window of the same length")
	analyzeCmd.Flags().StringVar(&analyzeInput, "input", "", "Read raw session records from a JSON file instead of transcripts")
	analyzeCmd.Flags().StringVar(&analyzeOutput, "output", "", "Write report data JSON to this file")
	rootCmd.AddCommand(analyzeCmd)
}

// reportData is the JSON document written by --json and --output.
type reportData struct {
	aggregate.Report
	Extraction  *claude.ExtractStats         `json:"extraction,omitempty"`
	Suggestions []suggest.Suggestion         `json:"suggestions"`
	Sessions    []analyzer.ClassifiedSession `json:"sessions"`
}

// analysis is one classified and aggregated run.
type analysis struct {
	report   aggregate.Report
	sessions []analyzer.ClassifiedSession
	stats    *claude.ExtractStats
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	days := appConfig.Days
	if analyzeDays >= 0 {
		days = analyzeDays
	}

	var (
		a   analysis
		err error
	)
	if analyzeInput != "" {
		a, err = analyzeFile(cmd, analyzeInput)
	} else {
		a, err = analyzeTranscripts(cmd, pipeline.Window{
			Days:            days,
			Project:         analyzeProject,
			ComparePrevious: analyzeComparePrevious,
			Now:             time.Now(),
		})
	}
	if err != nil {
		return err
	}

	doc := reportData{
		Report:      a.report,
		Extraction:  a.stats,
		Suggestions: suggest.ForReport(a.report, appConfig.Analyzer),
		Sessions:    a.sessions,
	}
	if analyzeOutput != "" {
		if err := writeReportFile(analyzeOutput, doc); err != nil {
			return err
		}
		logger.Info("report written", "path", analyzeOutput, "sessions", len(a.sessions))
	}

	w := cmd.OutOrStdout()
	if flagJSON {
		return writeJSON(w, doc)
	}
	renderReport(w, a.report, a.stats)
	if len(doc.Suggestions) > 0 {
		renderSuggestions(w, doc.Suggestions)
	}
	if analyzeOutput != "" {
		fmt.Fprintf(w, " Report data written to %s\n", analyzeOutput)
	}
	return nil
}

// analyzeTranscripts runs the extraction pipeline over the Claude home.
func analyzeTranscripts(cmd *cobra.Command, win pipeline.Window) (analysis, error) {
	res, err := pipeline.Run(cmd.Context(), appConfig, win, logger)
	if err != nil {
		return analysis{}, err
	}
	exportMetrics(cmd.Context(), res.Current)
	return analysis{
		report:   res.Report(win.Now),
		sessions: res.Current,
		stats:    &res.Stats,
	}, nil
}

// analyzeFile classifies raw records read from path.
func analyzeFile(cmd *cobra.Command, path string) (analysis, error) {
	raws, err := readRawRecords(path)
	if err != nil {
		return analysis{}, err
	}
	if analyzeComparePrevious || analyzeProject != "" {
		logger.Warn("--compare-previous and --project are ignored with --input")
	}
	classified, err := pipeline.ClassifyRaw(cmd.Context(), raws, appConfig)
	if err != nil {
		return analysis{}, fmt.Errorf("classifying %s: %w", path, err)
	}
	rep := aggregate.Aggregate(classified, nil)
	rep.Stamp(time.Now())
	return analysis{report: rep, sessions: classified}, nil
}

func writeReportFile(path string, doc reportData) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := writeJSON(f, doc); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

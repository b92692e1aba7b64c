package app

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/sessionlens/internal/output"
	"github.com/blackwell-systems/sessionlens/internal/pipeline"
	"github.com/blackwell-systems/sessionlens/internal/suggest"
)

var (
	suggestLimit    int
	suggestCategory string
	suggestProject  string
	suggestDays     int
)

var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Generate ranked improvement recommendations",
	Long: `Classify recent sessions and turn the aggregate report into actionable,
ranked recommendations: abandoned and blocked sessions, recurring issues,
struggling projects, and metrics that regressed against the previous
window. Suggestions are scored by impact and sorted from highest to lowest.`,
	Args: cobra.NoArgs,
	RunE: runSuggest,
}

func init() {
	suggestCmd.Flags().IntVar(&suggestLimit, "limit", 10, "Maximum number of suggestions to show (0 = no limit)")
	suggestCmd.Flags().StringVar(&suggestCategory, "category", "", "Filter by category (outcomes, issues, projects, signals, testing, trends)")
	suggestCmd.Flags().StringVar(&suggestProject, "project", "", "Only sessions whose project path contains this")
	suggestCmd.Flags().IntVar(&suggestDays, "days", -1, "Days of history to analyze (0 = all; default from config)")
	rootCmd.AddCommand(suggestCmd)
}

func runSuggest(cmd *cobra.Command, args []string) error {
	days := appConfig.Days
	if suggestDays >= 0 {
		days = suggestDays
	}

	now := time.Now()
	res, err := pipeline.Run(cmd.Context(), appConfig, pipeline.Window{
		Days:            days,
		Project:         suggestProject,
		ComparePrevious: true,
		Now:             now,
	}, logger)
	if err != nil {
		return err
	}

	suggestions := suggest.ForReport(res.Report(now), appConfig.Analyzer)
	if suggestCategory != "" {
		suggestions = filterByCategory(suggestions, suggestCategory)
	}
	if suggestLimit > 0 && len(suggestions) > suggestLimit {
		suggestions = suggestions[:suggestLimit]
	}

	w := cmd.OutOrStdout()
	if flagJSON {
		if suggestions == nil {
			suggestions = []suggest.Suggestion{}
		}
		return writeJSON(w, suggestions)
	}
	renderSuggestions(w, suggestions)
	return nil
}

func filterByCategory(suggestions []suggest.Suggestion, category string) []suggest.Suggestion {
	var filtered []suggest.Suggestion
	for _, s := range suggestions {
		if s.Category == category {
			filtered = append(filtered, s)
		}
	}
	return filtered
}

func renderSuggestions(w io.Writer, suggestions []suggest.Suggestion) {
	if len(suggestions) == 0 {
		fmt.Fprintln(w, output.Section("Suggestions"))
		fmt.Fprintln(w)
		fmt.Fprintln(w, " No suggestions. Your sessions look healthy.")
		return
	}

	fmt.Fprintln(w, output.Section("Improvement Suggestions"))
	fmt.Fprintln(w)

	for i, s := range suggestions {
		fmt.Fprintf(w, " #%d %s %s\n", i+1, stylePriority(s.Priority), output.StyleBold.Render(s.Title))
		fmt.Fprintf(w, "    Impact: %.1f  |  Category: %s\n", s.ImpactScore, s.Category)
		fmt.Fprintf(w, "    %s\n", s.Description)
		fmt.Fprintln(w)
	}
}

func priorityToLabel(priority int) string {
	switch priority {
	case suggest.PriorityCritical:
		return "[CRITICAL]"
	case suggest.PriorityHigh:
		return "[HIGH]"
	case suggest.PriorityMedium:
		return "[MEDIUM]"
	case suggest.PriorityLow:
		return "[LOW]"
	default:
		return "[UNKNOWN]"
	}
}

func stylePriority(priority int) string {
	label := priorityToLabel(priority)
	switch priority {
	case suggest.PriorityCritical, suggest.PriorityHigh:
		return output.StyleError.Render(label)
	case suggest.PriorityMedium:
		return output.StyleWarning.Render(label)
	default:
		return output.StyleMuted.Render(label)
	}
}

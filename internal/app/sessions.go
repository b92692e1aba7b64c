package app

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/sessionlens/internal/analyzer"
	"github.com/blackwell-systems/sessionlens/internal/output"
	"github.com/blackwell-systems/sessionlens/internal/pipeline"
)

var (
	sessionsFlagSort    string
	sessionsFlagOutcome string
	sessionsFlagProject string
	sessionsFlagDays    int
	sessionsFlagLimit   int
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions [session-id]",
	Short: "List classified sessions or inspect one",
	Long: `Browse individual Claude Code sessions with their task type, outcome,
and confidence score. Pass a session ID or unique prefix to see every
signal that went into the classification.

Examples:
  sessionlens sessions                          # recent sessions
  sessionlens sessions --sort confidence        # least confident first
  sessionlens sessions --outcome abandoned      # only abandoned sessions
  sessionlens sessions --project api --days 30  # filter by project path
  sessionlens sessions abc12345                 # inspect a single session by ID prefix`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSessions,
}

func init() {
	sessionsCmd.Flags().StringVar(&sessionsFlagSort, "sort", "recent", "Sort by: recent, confidence, duration")
	sessionsCmd.Flags().StringVar(&sessionsFlagOutcome, "outcome", "", "Only sessions with this outcome")
	sessionsCmd.Flags().StringVar(&sessionsFlagProject, "project", "", "Only sessions whose project path contains this")
	sessionsCmd.Flags().IntVar(&sessionsFlagDays, "days", -1, "Days of history (0 = all; default from config)")
	sessionsCmd.Flags().IntVar(&sessionsFlagLimit, "limit", 20, "Maximum sessions to display (0 = no limit)")
	rootCmd.AddCommand(sessionsCmd)
}

func runSessions(cmd *cobra.Command, args []string) error {
	days := appConfig.Days
	if sessionsFlagDays >= 0 {
		days = sessionsFlagDays
	}
	// Inspecting by ID searches all history unless --days was given.
	if len(args) == 1 && sessionsFlagDays < 0 {
		days = 0
	}

	res, err := pipeline.Run(cmd.Context(), appConfig, pipeline.Window{
		Days:    days,
		Project: sessionsFlagProject,
		Now:     time.Now(),
	}, logger)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if len(args) == 1 {
		c, err := findSession(res.Current, args[0])
		if err != nil {
			return err
		}
		if flagJSON {
			return writeJSON(w, c)
		}
		renderInspect(w, c)
		return nil
	}

	rows, err := selectSessions(res.Current, sessionsFlagOutcome, sessionsFlagSort, sessionsFlagLimit)
	if err != nil {
		return err
	}
	if flagJSON {
		return writeJSON(w, rows)
	}
	if len(rows) == 0 {
		fmt.Fprintln(w, " No sessions found matching filters.")
		return nil
	}
	renderSessions(w, rows, sessionsFlagSort)
	return nil
}

// selectSessions filters by outcome, sorts, and limits. The input slice is
// not modified.
func selectSessions(all []analyzer.ClassifiedSession, outcome, sortKey string, limit int) ([]analyzer.ClassifiedSession, error) {
	if outcome != "" && !knownOutcome(analyzer.Outcome(outcome)) {
		return nil, fmt.Errorf("unknown outcome %q", outcome)
	}

	rows := make([]analyzer.ClassifiedSession, 0, len(all))
	for _, c := range all {
		if outcome != "" && string(c.Outcome) != outcome {
			continue
		}
		rows = append(rows, c)
	}

	switch sortKey {
	case "confidence":
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].ConfidenceScore < rows[j].ConfidenceScore
		})
	case "duration":
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].DurationMinutes > rows[j].DurationMinutes
		})
	case "recent":
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].StartTime.After(rows[j].StartTime)
		})
	default:
		return nil, fmt.Errorf("unknown sort key %q (want recent, confidence, or duration)", sortKey)
	}

	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func knownOutcome(o analyzer.Outcome) bool {
	for _, known := range analyzer.Outcomes {
		if o == known {
			return true
		}
	}
	return false
}

// findSession finds a session by full ID or unique prefix.
func findSession(sessions []analyzer.ClassifiedSession, prefix string) (analyzer.ClassifiedSession, error) {
	var matched *analyzer.ClassifiedSession
	for i := range sessions {
		c := &sessions[i]
		if c.SessionID == prefix {
			return *c, nil
		}
		if strings.HasPrefix(c.SessionID, prefix) {
			if matched != nil {
				return analyzer.ClassifiedSession{}, fmt.Errorf("ambiguous session prefix %q matches multiple sessions; use more characters", prefix)
			}
			matched = c
		}
	}
	if matched == nil {
		return analyzer.ClassifiedSession{}, fmt.Errorf("no session found matching %q", prefix)
	}
	return *matched, nil
}

func renderSessions(w io.Writer, rows []analyzer.ClassifiedSession, sortKey string) {
	fmt.Fprintln(w, output.Section("Sessions"))
	fmt.Fprintln(w)
	fmt.Fprintf(w, " %s  sorted by %s\n\n",
		output.StyleMuted.Render(fmt.Sprintf("%d sessions", len(rows))),
		output.StyleBold.Render(sortKey))

	tbl := output.NewTable("ID", "Started", "Project", "Duration", "Tools", "Task", "Outcome", "Conf").AlignRight(4, 7)
	var totalDuration float64
	completed := 0
	for _, c := range rows {
		totalDuration += c.DurationMinutes
		if c.Outcome.Successful() {
			completed++
		}

		conf := fmt.Sprintf("%d", c.ConfidenceScore)
		switch analyzer.AssessScore(c.ConfidenceScore) {
		case analyzer.AssessmentHigh:
			conf = output.StyleSuccess.Render(conf)
		case analyzer.AssessmentLow:
			conf = output.StyleWarning.Render(conf)
		}

		tbl.AddRow(
			output.Truncate(c.SessionID, 9),
			output.Ago(c.StartTime),
			output.Truncate(c.ProjectName(), 20),
			output.Minutes(c.DurationMinutes),
			output.Count(c.ToolCallCount),
			string(c.TaskType),
			output.Outcome(c.Outcome),
			conf,
		)
	}
	tbl.Fprint(w)

	fmt.Fprintln(w)
	fmt.Fprintf(w, " %s\n", output.StyleBold.Render(fmt.Sprintf(
		"Totals: %d completed · %s total · %s avg duration",
		completed, output.Hours(totalDuration), output.Minutes(totalDuration/float64(len(rows))),
	)))
	fmt.Fprintln(w)
	fmt.Fprintf(w, " %s\n", output.StyleMuted.Render("Use --sort confidence|duration to reorder, --outcome <outcome> to filter"))
	fmt.Fprintf(w, " %s\n", output.StyleMuted.Render("Use sessionlens sessions <session-id> to inspect a session"))
}

// renderInspect prints a detailed single-session view.
func renderInspect(w io.Writer, c analyzer.ClassifiedSession) {
	r := reportRenderer{w: w}

	r.section("Session Inspect")
	r.label("Session ID", c.SessionID)
	r.label("Project", c.ProjectName())
	r.muted("Project Path", c.Project)
	if !c.StartTime.IsZero() {
		r.label("Started", c.StartTime.Local().Format("2006-01-02 15:04:05")+" ("+output.Ago(c.StartTime)+")")
	}
	if c.GitBranch != "" {
		r.muted("Branch", c.GitBranch)
	}
	r.label("Duration", output.Minutes(c.DurationMinutes))
	r.muted("Messages", fmt.Sprintf("%d user, %d assistant", c.UserMessageCount, c.AssistantMessageCount))
	r.muted("Tool calls", output.Count(c.ToolCallCount))
	r.muted("Files touched", output.Count(len(c.FilesTouched)))

	r.section("Classification")
	r.label("Task type", string(c.TaskType))
	r.label("Session type", string(c.SessionType))
	r.printf(" %s  %s\n", output.StyleLabel.Render("Outcome"), output.Outcome(c.Outcome))
	r.printf(" %s  %s %s\n", output.StyleLabel.Render("Confidence"),
		output.ScoreBar(float64(c.ConfidenceScore), 20), output.Assessment(c.ConfidenceAssessment))
	r.muted("Likely completed", fmt.Sprintf("%t", c.LikelyCompleted))
	r.muted("Criteria met", joinOrNone(c.Completion.CriteriaMet))
	r.muted("Criteria missing", joinOrNone(c.Completion.CriteriaMissing))
	if c.JiraTicket != "" {
		r.muted("Ticket", c.JiraTicket)
	}

	r.section("Signals")
	for _, s := range c.PositiveSignals {
		r.printf(" %s  %s\n", output.StyleLabel.Render(string(s.Signal)), output.StyleSuccess.Render(fmt.Sprintf("+%d", s.Points)))
	}
	for _, s := range c.NegativeSignals {
		r.printf(" %s  %s\n", output.StyleLabel.Render(string(s.Signal)), output.StyleError.Render(fmt.Sprintf("%d", s.Points)))
	}
	for _, f := range c.FailureSignals {
		line := fmt.Sprintf("severity %d", f.Severity)
		if len(f.Evidence) > 0 {
			line += ": " + output.Truncate(strings.Join(f.Evidence, "; "), 60)
		}
		r.printf(" %s  %s\n", output.StyleLabel.Render(string(f.Kind)), output.StyleWarning.Render(line))
	}
	if len(c.PositiveSignals)+len(c.NegativeSignals)+len(c.FailureSignals) == 0 {
		r.empty("No signals detected")
	}

	r.section("Quality")
	r.muted("Successes", joinOrNone(c.Successes))
	r.muted("Issues", joinOrNone(c.Issues))
	r.muted("Topics", joinOrNone(c.KeyTopics))
	if v := c.Efficiency.ToolsPerFile; v != nil {
		r.muted("Tools per file", fmt.Sprintf("%.2f", *v))
	}
	if v := c.Efficiency.ToolsPerMessage; v != nil {
		r.muted("Tools per message", fmt.Sprintf("%.2f", *v))
	}

	r.section("First Prompt")
	if c.OriginatingText == "" {
		r.empty("(none recorded)")
	} else {
		r.empty(output.Truncate(c.OriginatingText, 200))
	}
	r.println()
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

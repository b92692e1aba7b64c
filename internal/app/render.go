package app

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/blackwell-systems/sessionlens/internal/aggregate"
	"github.com/blackwell-systems/sessionlens/internal/analyzer"
	"github.com/blackwell-systems/sessionlens/internal/claude"
	"github.com/blackwell-systems/sessionlens/internal/output"
)

// topN limits ranked lists in terminal output.
const topN = 8

// metricHigherIsBetter maps compared metrics to whether an increase is an
// improvement.
var metricHigherIsBetter = map[string]bool{
	"sessions":              true,
	"total_duration_hours":  true,
	"avg_duration":          false, // shorter sessions are cheaper
	"total_tool_calls":      true,
	"completion_rate":       true,
	"activity_rate":         true,
	"sessions_with_edits":   true,
	"sessions_with_commits": true,
	"avg_confidence":        true,
}

// metricLabel returns a display label for a compared metric.
func metricLabel(name string) string {
	labels := map[string]string{
		"sessions":              "Sessions",
		"total_duration_hours":  "Total Hours",
		"avg_duration":          "Avg Duration (min)",
		"total_tool_calls":      "Tool Calls",
		"completion_rate":       "Completion %",
		"activity_rate":         "Activity %",
		"sessions_with_edits":   "Sessions w/ Edits",
		"sessions_with_commits": "Sessions w/ Commits",
		"avg_confidence":        "Avg Confidence",
	}
	if l, ok := labels[name]; ok {
		return l
	}
	return name
}

// trend renders the direction of a delta for the named metric.
func trend(name string, d aggregate.Delta) string {
	higher, known := metricHigherIsBetter[name]
	if !known {
		higher = true
	}
	return output.TrendArrow(d.Delta, higher)
}

// reportRenderer writes the terminal form of a Report.
type reportRenderer struct {
	w io.Writer
}

func (r reportRenderer) printf(format string, a ...any) { fmt.Fprintf(r.w, format, a...) }
func (r reportRenderer) println(a ...any)               { fmt.Fprintln(r.w, a...) }

func (r reportRenderer) label(l, v string) {
	r.printf(" %s  %s\n", output.StyleLabel.Render(l), output.StyleBold.Render(v))
}

func (r reportRenderer) muted(l, v string) {
	r.printf(" %s  %s\n", output.StyleLabel.Render(l), output.StyleMuted.Render(v))
}

func (r reportRenderer) empty(msg string) {
	r.printf(" %s\n", output.StyleMuted.Render(msg))
}

func (r reportRenderer) section(title string) {
	r.println(output.Section(title))
	r.println()
}

// renderReport prints every section of rep. stats may be nil when the
// sessions did not come from transcript extraction.
func renderReport(w io.Writer, rep aggregate.Report, stats *claude.ExtractStats) {
	r := reportRenderer{w: w}
	r.renderSummary(rep, stats)
	if rep.Summary.TotalSessions == 0 {
		return
	}
	r.renderOutcomes(rep)
	r.renderBreakdowns(rep)
	r.renderDistributions(rep)
	r.renderEfficiency(rep)
	r.renderActivity(rep)
	r.renderCounts("Common Issues", rep.CommonIssues, "No issues detected")
	r.renderCounts("Common Successes", rep.CommonSuccesses, "No successes detected")
	r.renderCounts("Key Topics", rep.TopicsFrequency, "No topics detected")
	r.renderFeatures(rep.Features)
	if rep.Comparison != nil {
		renderComparison(w, rep.Comparison)
	}
	r.println()
}

func (r reportRenderer) renderSummary(rep aggregate.Report, stats *claude.ExtractStats) {
	r.section("Session Report")

	s := rep.Summary
	if rep.Metadata.PeriodStart != "" {
		r.muted("Period", rep.Metadata.PeriodStart+" → "+rep.Metadata.PeriodEnd)
	}
	if stats != nil {
		r.muted("Transcripts", fmt.Sprintf("%s found, %s filtered (%d empty, %d idle), %d unreadable",
			output.Count(stats.Found), output.Count(stats.Filtered()), stats.Empty, stats.Idle, stats.Skipped))
	}
	if s.TotalSessions == 0 {
		r.println()
		r.empty("No sessions found in this period.")
		return
	}

	r.label("Sessions", output.Count(s.TotalSessions))
	r.label("Total time", output.Hours(s.TotalDurationMinutes))
	r.label("Avg duration", output.Minutes(rep.Averages.DurationMinutes))
	r.label("Tool calls", output.Count(s.TotalToolCalls))
	r.label("Files touched", output.Count(s.TotalFilesTouched))
	r.println()
	r.printf(" %s  %s\n", output.StyleLabel.Render("Completion rate"), output.ScoreBar(s.CompletionRate, 20))
	r.muted("Completed", fmt.Sprintf("%d (%d likely)", s.SessionsCompleted, s.SessionsLikelyComplete))
	r.muted("Sessions with issues", fmt.Sprintf("%d (%s)", s.SessionsWithIssues, output.Percent(s.IssueRate)))
	if c := rep.CompletionConfidence; c != nil {
		r.muted("Confidence", fmt.Sprintf("avg %.1f, median %.1f (%d high, %d medium, %d low)",
			c.AvgScore, c.MedianScore, c.HighCount, c.MediumCount, c.LowCount))
	}
}

func (r reportRenderer) renderOutcomes(rep aggregate.Report) {
	r.section("Outcomes")
	tbl := output.NewTable("Outcome", "Sessions", "Share").AlignRight(1, 2)
	for _, o := range analyzer.Outcomes {
		n := rep.Summary.ByOutcome[o]
		if n == 0 {
			continue
		}
		share := float64(n) / float64(rep.Summary.TotalSessions) * 100
		tbl.AddRow(output.Outcome(o), output.Count(n), output.Percent(share))
	}
	tbl.Fprint(r.w)
}

func (r reportRenderer) renderBreakdowns(rep aggregate.Report) {
	r.section("By Task Type")
	tbl := output.NewTable("Task", "Sessions", "Completed", "Rate", "Avg Duration", "Issues").AlignRight(1, 2, 3, 5)
	for _, tt := range analyzer.TaskTypes {
		b, ok := rep.ByTaskType[tt]
		if !ok {
			continue
		}
		tbl.AddRow(string(tt), output.Count(b.Sessions), output.Count(b.Completed),
			output.Percent(b.CompletionRate), output.Minutes(b.AvgDuration), output.Percent(b.IssueRate))
	}
	tbl.Fprint(r.w)

	r.section("By Session Type")
	tbl = output.NewTable("Type", "Sessions", "Share", "Avg Duration", "Avg Tools").AlignRight(1, 2, 4)
	for _, st := range []analyzer.SessionType{analyzer.SessionWork, analyzer.SessionLookup} {
		s, ok := rep.BySessionType[st]
		if !ok {
			continue
		}
		tbl.AddRow(string(st), output.Count(s.Count), output.Percent(s.Pct),
			output.Minutes(s.AvgDuration), fmt.Sprintf("%.1f", s.AvgToolCalls))
	}
	tbl.Fprint(r.w)

	r.section("By Project")
	names := make([]string, 0, len(rep.ByProject))
	for name := range rep.ByProject {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := rep.ByProject[names[i]], rep.ByProject[names[j]]
		if a.Sessions != b.Sessions {
			return a.Sessions > b.Sessions
		}
		return names[i] < names[j]
	})
	tbl = output.NewTable("Project", "Sessions", "Completed", "Rate", "Time").AlignRight(1, 2, 3)
	for i, name := range names {
		if i == topN {
			break
		}
		b := rep.ByProject[name]
		tbl.AddRow(name, output.Count(b.Sessions), output.Count(b.Completed),
			output.Percent(b.CompletionRate), output.Minutes(b.Duration))
	}
	tbl.Fprint(r.w)
	if len(names) > topN {
		r.empty(fmt.Sprintf("… and %d more", len(names)-topN))
	}
}

func (r reportRenderer) renderDistributions(rep aggregate.Report) {
	r.section("Distributions")
	tbl := output.NewTable("Metric", "Min", "P25", "Median", "P75", "P90", "Max", "Mean").AlignRight(1, 2, 3, 4, 5, 6, 7)
	rows := []struct {
		name string
		d    *aggregate.Distribution
	}{
		{"Duration (min)", rep.DurationDistribution},
		{"Tool calls", rep.ToolCallsDistribution},
		{"Files touched", rep.FilesTouchedDistribution},
	}
	described := false
	for _, row := range rows {
		if row.d == nil {
			continue
		}
		described = true
		f := func(v float64) string { return fmt.Sprintf("%.1f", v) }
		tbl.AddRow(row.name, f(row.d.Min), f(row.d.P25), f(row.d.Median), f(row.d.P75), f(row.d.P90), f(row.d.Max), f(row.d.Mean))
	}
	if described {
		tbl.Fprint(r.w)
	} else {
		r.empty("No non-zero values to describe")
	}

	maxCount := 0
	for _, b := range rep.DurationHistogram {
		maxCount = max(maxCount, b.Count)
	}
	if maxCount == 0 {
		return
	}
	r.println()
	for _, b := range rep.DurationHistogram {
		bar := strings.Repeat("█", b.Count*30/maxCount)
		if b.Count > 0 && bar == "" {
			bar = "▏"
		}
		r.printf(" %-10s %s %s\n", b.Label, output.StyleSuccess.Render(bar), output.StyleMuted.Render(output.Count(b.Count)))
	}
}

func (r reportRenderer) renderEfficiency(rep aggregate.Report) {
	e := rep.EfficiencyAverages
	effRows := []struct {
		name string
		a    *aggregate.Average
	}{
		{"Tools per file", e.ToolsPerFile},
		{"Tools per message", e.ToolsPerMessage},
		{"Files per hour", e.FilesPerHour},
		{"Messages per minute", e.MessagesPerMinute},
	}
	r.section("Efficiency")
	shown := 0
	for _, row := range effRows {
		if row.a == nil {
			continue
		}
		shown++
		r.muted(row.name, fmt.Sprintf("avg %.2f, median %.2f over %d sessions", row.a.Avg, row.a.Median, row.a.Count))
	}
	if shown == 0 {
		r.empty("No efficiency ratios defined")
	}
}

func (r reportRenderer) renderActivity(rep aggregate.Report) {
	r.section("Activity")
	a := rep.ActivityMetrics
	r.muted("With edits", fmt.Sprintf("%d (%s)", a.SessionsWithEdits, output.Percent(a.SessionsWithEditsPct)))
	r.muted("With commits", fmt.Sprintf("%d (%s)", a.SessionsWithCommits, output.Percent(a.SessionsWithCommitsPct)))
	r.muted("With tests", fmt.Sprintf("%d (%s)", a.SessionsWithTests, output.Percent(a.SessionsWithTestsPct)))
	r.printf(" %s  %s\n", output.StyleLabel.Render("Activity rate"), output.ScoreBar(a.ActivityRate, 20))
}

func (r reportRenderer) renderCounts(title string, counts []aggregate.Count, none string) {
	r.section(title)
	if len(counts) == 0 {
		r.empty(none)
		return
	}
	for i, c := range counts {
		if i == topN {
			break
		}
		r.muted(c.Name, output.Count(c.Count))
	}
}

func (r reportRenderer) renderFeatures(f aggregate.FeatureUsage) {
	r.section("Claude Code Features")
	t := f.Totals
	r.muted("Skills", fmt.Sprintf("%d invocations in %d sessions", t.SkillsInvoked, t.SessionsUsingSkills))
	r.muted("Agents", fmt.Sprintf("%d spawned in %d sessions", t.AgentsSpawned, t.SessionsUsingAgents))
	r.muted("Slash commands", fmt.Sprintf("%d used in %d sessions", t.SlashCommands, t.SessionsUsingSlashCommands))

	var top []string
	for _, list := range [][]aggregate.Count{f.Skills, f.Agents, f.SlashCommands} {
		for i, c := range list {
			if i == 3 {
				break
			}
			top = append(top, fmt.Sprintf("%s (%d)", c.Name, c.Count))
		}
	}
	if len(top) > 0 {
		r.println()
		r.empty("Most used: " + strings.Join(top, ", "))
	}
}

// renderComparison prints period-over-period deltas in DeltaMetrics order.
func renderComparison(w io.Writer, c *aggregate.Comparison) {
	r := reportRenderer{w: w}
	r.section("Compared to Previous Period")
	if c.PreviousPeriod.Start != "" {
		r.muted("Previous period", c.PreviousPeriod.Start+" → "+c.PreviousPeriod.End)
		r.println()
	}
	tbl := output.NewTable("Metric", "Previous", "Current", "Delta", "Change", "Trend").AlignRight(1, 2, 3, 4)
	for _, name := range aggregate.DeltaMetrics {
		d, ok := c.Deltas[name]
		if !ok {
			continue
		}
		tbl.AddRow(
			metricLabel(name),
			fmt.Sprintf("%.1f", d.Previous),
			fmt.Sprintf("%.1f", d.Current),
			fmt.Sprintf("%+.1f", d.Delta),
			fmt.Sprintf("%+.1f%%", d.DeltaPct),
			trend(name, d),
		)
	}
	tbl.Fprint(w)
}

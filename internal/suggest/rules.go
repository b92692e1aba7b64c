package suggest

import (
	"fmt"

	"github.com/blackwell-systems/sessionlens/internal/analyzer"
)

// Thresholds used by the built-in rules.
const (
	minSessions             = 3
	abandonmentThreshold    = 0.25
	recurringIssueThreshold = 0.30
	strugglingCompletion    = 50.0
	lowTestRunPct           = 20.0
	regressionPct           = -10.0
)

var issueAdvice = map[string]string{
	analyzer.IssueCommandError:      "Commands keep failing. Document the build and test commands in CLAUDE.md so they run correctly the first time.",
	analyzer.IssueHighToolUsage:     "Sessions use many tool calls per message. Point Claude at the relevant files up front to cut down on searching.",
	analyzer.IssueRapidInteractions: "Short sessions with many turns suggest back-and-forth corrections. Give fuller instructions in the first prompt.",
}

// HighAbandonment flags a period where a large share of sessions were
// abandoned.
func HighAbandonment(ctx *AnalysisContext) []Suggestion {
	abandoned := ctx.Outcomes[analyzer.OutcomeAbandoned]
	if ctx.TotalSessions < minSessions || abandoned == 0 {
		return nil
	}
	freq := float64(abandoned) / float64(ctx.TotalSessions)
	if freq < abandonmentThreshold {
		return nil
	}
	return []Suggestion{{
		Category: "outcomes",
		Priority: PriorityHigh,
		Title:    "Reduce abandoned sessions",
		Description: fmt.Sprintf(
			"%d of %d sessions (%.0f%%) were abandoned. Break large requests into smaller steps "+
				"and state the expected result so sessions reach a clear finish.",
			abandoned, ctx.TotalSessions, freq*100,
		),
		ImpactScore: ComputeImpact(abandoned, freq, 10.0, 15.0),
	}}
}

// BlockedSessions flags sessions that failed after meaningful effort.
func BlockedSessions(ctx *AnalysisContext) []Suggestion {
	blocked := ctx.Outcomes[analyzer.OutcomeBlocked]
	if blocked == 0 || ctx.TotalSessions == 0 {
		return nil
	}
	priority := PriorityMedium
	if blocked*4 >= ctx.TotalSessions {
		priority = PriorityCritical
	}
	return []Suggestion{{
		Category: "outcomes",
		Priority: priority,
		Title:    "Investigate blocked sessions",
		Description: fmt.Sprintf(
			"%d session(s) ended blocked after significant effort. Check for missing credentials, "+
				"broken environments, or tasks that need a different approach.",
			blocked,
		),
		ImpactScore: ComputeImpact(blocked, float64(blocked)/float64(ctx.TotalSessions), 20.0, 20.0),
	}}
}

// RecurringIssues suggests fixes for issue types seen in more than 30% of
// sessions.
func RecurringIssues(ctx *AnalysisContext) []Suggestion {
	if ctx.TotalSessions < minSessions {
		return nil
	}
	var suggestions []Suggestion
	for _, issue := range ctx.Issues {
		freq := float64(issue.Count) / float64(ctx.TotalSessions)
		if freq <= recurringIssueThreshold {
			continue
		}
		advice, ok := issueAdvice[issue.Name]
		if !ok {
			advice = "Review the affected sessions for a common cause."
		}
		suggestions = append(suggestions, Suggestion{
			Category:    "issues",
			Priority:    PriorityHigh,
			Title:       fmt.Sprintf("Address recurring issue: %s", issue.Name),
			Description: fmt.Sprintf("%q appears in %d of %d sessions. %s", issue.Name, issue.Count, ctx.TotalSessions, advice),
			ImpactScore: ComputeImpact(issue.Count, freq, 3.0, 10.0),
		})
	}
	return suggestions
}

// StrugglingProjects flags projects with enough sessions and a completion
// rate under 50%.
func StrugglingProjects(ctx *AnalysisContext) []Suggestion {
	var suggestions []Suggestion
	for _, p := range ctx.Projects {
		if p.SessionCount < minSessions || p.CompletionRate >= strugglingCompletion {
			continue
		}
		suggestions = append(suggestions, Suggestion{
			Category: "projects",
			Priority: PriorityMedium,
			Title:    fmt.Sprintf("Improve outcomes in %s", p.Name),
			Description: fmt.Sprintf(
				"Only %.0f%% of %d sessions in %q completed (issue rate %.0f%%). "+
					"Adding project context to CLAUDE.md usually helps most here.",
				p.CompletionRate, p.SessionCount, p.Name, p.IssueRate,
			),
			ImpactScore: ComputeImpact(p.SessionCount, 1-p.CompletionRate/100, 5.0, 15.0),
		})
	}
	return suggestions
}

// LowConfidence flags a period whose average confidence score is below the
// configured threshold.
func LowConfidence(ctx *AnalysisContext) []Suggestion {
	if ctx.AvgConfidence == nil || ctx.TotalSessions < minSessions {
		return nil
	}
	avg := *ctx.AvgConfidence
	if avg >= float64(ctx.ConfidenceThreshold) {
		return nil
	}
	return []Suggestion{{
		Category: "signals",
		Priority: PriorityLow,
		Title:    "Leave clearer completion signals",
		Description: fmt.Sprintf(
			"Average confidence is %.0f, below the threshold of %d. Running tests and committing "+
				"finished work makes it clear when a session achieved its goal.",
			avg, ctx.ConfidenceThreshold,
		),
		ImpactScore: ComputeImpact(ctx.TotalSessions, 1-avg/100, 1.0, 5.0),
	}}
}

// MissingTestRuns flags periods with edits but few test runs.
func MissingTestRuns(ctx *AnalysisContext) []Suggestion {
	if ctx.SessionsWithEdits < minSessions || ctx.SessionsWithTestsPct >= lowTestRunPct {
		return nil
	}
	return []Suggestion{{
		Category: "testing",
		Priority: PriorityMedium,
		Title:    "Run tests after edits",
		Description: fmt.Sprintf(
			"%d sessions edited files but only %.0f%% of sessions ran tests. Ask Claude to run "+
				"the test suite before finishing, or add a hook that does it.",
			ctx.SessionsWithEdits, ctx.SessionsWithTestsPct,
		),
		ImpactScore: ComputeImpact(ctx.SessionsWithEdits, 1-ctx.SessionsWithTestsPct/100, 4.0, 10.0),
	}}
}

// regressionMetrics are the compared metrics where a drop is bad.
var regressionMetrics = []string{"completion_rate", "activity_rate", "avg_confidence"}

// MetricRegression flags metrics that fell by more than 10% against the
// previous period.
func MetricRegression(ctx *AnalysisContext) []Suggestion {
	var suggestions []Suggestion
	for _, name := range regressionMetrics {
		d, ok := ctx.Trends[name]
		if !ok || d.Previous == 0 || d.DeltaPct > regressionPct {
			continue
		}
		suggestions = append(suggestions, Suggestion{
			Category: "trends",
			Priority: PriorityHigh,
			Title:    fmt.Sprintf("%s regressed", name),
			Description: fmt.Sprintf(
				"%s dropped from %.1f to %.1f (%.1f%%) compared to the previous period.",
				name, d.Previous, d.Current, d.DeltaPct,
			),
			ImpactScore: ComputeImpact(ctx.TotalSessions, -d.DeltaPct/100, 3.0, 10.0),
		})
	}
	return suggestions
}

// Package suggest turns an aggregate report into ranked, actionable
// suggestions for working with Claude Code more effectively.
package suggest

import (
	"sort"

	"github.com/blackwell-systems/sessionlens/internal/aggregate"
	"github.com/blackwell-systems/sessionlens/internal/analyzer"
)

// Priority levels for suggestions.
const (
	PriorityCritical = 1
	PriorityHigh     = 2
	PriorityMedium   = 3
	PriorityLow      = 4
)

// Suggestion represents an actionable improvement recommendation.
type Suggestion struct {
	Category    string  `json:"category"`
	Priority    int     `json:"priority"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	ImpactScore float64 `json:"impact_score"`
}

// AnalysisContext is the slice of a report the rules look at. Rates are
// percentages in [0, 100].
type AnalysisContext struct {
	TotalSessions  int                      `json:"total_sessions"`
	Outcomes       map[analyzer.Outcome]int `json:"outcomes"`
	CompletionRate float64                  `json:"completion_rate"`

	// AvgConfidence is nil when no session was scored.
	AvgConfidence       *float64 `json:"avg_confidence,omitempty"`
	ConfidenceThreshold int      `json:"confidence_threshold"`

	Issues []aggregate.Count `json:"issues"`

	SessionsWithEdits    int     `json:"sessions_with_edits"`
	SessionsWithTestsPct float64 `json:"sessions_with_tests_pct"`

	Projects []ProjectContext `json:"projects"`

	// Trends holds period-over-period deltas; empty without a comparison.
	Trends map[string]aggregate.Delta `json:"trends,omitempty"`
}

// ProjectContext provides project-level data for rules.
type ProjectContext struct {
	Name           string  `json:"name"`
	SessionCount   int     `json:"session_count"`
	CompletionRate float64 `json:"completion_rate"`
	IssueRate      float64 `json:"issue_rate"`
	AvgDuration    float64 `json:"avg_duration"`
}

// Rule is a function that examines the analysis context and produces
// zero or more suggestions.
type Rule func(ctx *AnalysisContext) []Suggestion

// NewContext builds an AnalysisContext from a report. Projects are ordered
// by session count, then name.
func NewContext(r aggregate.Report, opts analyzer.Options) *AnalysisContext {
	ctx := &AnalysisContext{
		TotalSessions:        r.Summary.TotalSessions,
		Outcomes:             r.Summary.ByOutcome,
		CompletionRate:       r.Summary.CompletionRate,
		ConfidenceThreshold:  opts.ConfidenceThreshold,
		Issues:               r.CommonIssues,
		SessionsWithEdits:    r.ActivityMetrics.SessionsWithEdits,
		SessionsWithTestsPct: r.ActivityMetrics.SessionsWithTestsPct,
	}
	if r.CompletionConfidence != nil {
		avg := r.CompletionConfidence.AvgScore
		ctx.AvgConfidence = &avg
	}
	if r.Comparison != nil {
		ctx.Trends = r.Comparison.Deltas
	}
	for name, b := range r.ByProject {
		ctx.Projects = append(ctx.Projects, ProjectContext{
			Name:           name,
			SessionCount:   b.Sessions,
			CompletionRate: b.CompletionRate,
			IssueRate:      b.IssueRate,
			AvgDuration:    b.AvgDuration,
		})
	}
	sort.Slice(ctx.Projects, func(i, j int) bool {
		if ctx.Projects[i].SessionCount != ctx.Projects[j].SessionCount {
			return ctx.Projects[i].SessionCount > ctx.Projects[j].SessionCount
		}
		return ctx.Projects[i].Name < ctx.Projects[j].Name
	})
	return ctx
}

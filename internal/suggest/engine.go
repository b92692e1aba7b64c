package suggest

import (
	"github.com/blackwell-systems/sessionlens/internal/aggregate"
	"github.com/blackwell-systems/sessionlens/internal/analyzer"
)

// builtinRules are evaluated in this order before ranking.
var builtinRules = []Rule{
	HighAbandonment,
	BlockedSessions,
	RecurringIssues,
	StrugglingProjects,
	LowConfidence,
	MissingTestRuns,
	MetricRegression,
}

// Engine evaluates a set of rules against an AnalysisContext.
type Engine struct {
	rules []Rule
}

// NewEngine returns an engine with the built-in rules, followed by any
// extra rules supplied.
func NewEngine(extra ...Rule) *Engine {
	rules := make([]Rule, 0, len(builtinRules)+len(extra))
	rules = append(rules, builtinRules...)
	return &Engine{rules: append(rules, extra...)}
}

// Run evaluates every rule and returns the combined suggestions ranked by
// impact.
func (e *Engine) Run(ctx *AnalysisContext) []Suggestion {
	var all []Suggestion
	for _, rule := range e.rules {
		all = append(all, rule(ctx)...)
	}
	return RankSuggestions(all)
}

// ForReport runs the built-in rules over a report.
func ForReport(r aggregate.Report, opts analyzer.Options) []Suggestion {
	return NewEngine().Run(NewContext(r, opts))
}

package output

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/blackwell-systems/sessionlens/internal/analyzer"
)

// Count formats an integer with thousands separators.
func Count(n int) string {
	return humanize.Comma(int64(n))
}

// Minutes formats a duration given in minutes as "45m", "2h 05m", or "<1m".
func Minutes(m float64) string {
	switch {
	case m <= 0:
		return "0m"
	case m < 1:
		return "<1m"
	case m < 60:
		return fmt.Sprintf("%.0fm", math.Round(m))
	}
	total := int(math.Round(m))
	return fmt.Sprintf("%dh %02dm", total/60, total%60)
}

// Hours formats minutes as fractional hours, e.g. "12.5h".
func Hours(m float64) string {
	return humanize.FormatFloat("#,###.#", m/60) + "h"
}

// Percent formats a 0-100 rate.
func Percent(p float64) string {
	return fmt.Sprintf("%.1f%%", p)
}

// Ago formats t relative to now, e.g. "3 hours ago". The zero time renders
// as "unknown".
func Ago(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return humanize.Time(t)
}

// Truncate shortens s to at most n runes, marking the cut with an ellipsis.
func Truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}

// Outcome renders an outcome label colored by how it ended.
func Outcome(o analyzer.Outcome) string {
	switch o {
	case analyzer.OutcomeCompleted, analyzer.OutcomeLookupComplete, analyzer.OutcomeExplorationComplete:
		return StyleSuccess.Render(string(o))
	case analyzer.OutcomeCompletedWithIssues, analyzer.OutcomePartiallyCompleted, analyzer.OutcomeUnclear:
		return StyleWarning.Render(string(o))
	default:
		return StyleError.Render(string(o))
	}
}

// Assessment renders a confidence assessment with the ScoreBar palette.
func Assessment(a analyzer.Assessment) string {
	switch a {
	case analyzer.AssessmentHigh:
		return StyleSuccess.Render(string(a))
	case analyzer.AssessmentMedium:
		return StyleWarning.Render(string(a))
	default:
		return StyleError.Render(string(a))
	}
}

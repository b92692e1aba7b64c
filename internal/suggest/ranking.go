package suggest

import (
	"cmp"
	"slices"
	"strings"
)

// RankSuggestions returns a copy of suggestions ordered by impact, highest
// first. Equal impact falls back to priority, then title.
func RankSuggestions(suggestions []Suggestion) []Suggestion {
	ranked := slices.Clone(suggestions)
	if ranked == nil {
		ranked = []Suggestion{}
	}
	slices.SortStableFunc(ranked, func(a, b Suggestion) int {
		if c := cmp.Compare(b.ImpactScore, a.ImpactScore); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Priority, b.Priority); c != 0 {
			return c
		}
		return strings.Compare(a.Title, b.Title)
	})
	return ranked
}

// ComputeImpact scores a suggestion as affected sessions × frequency (0-1)
// × minutes saved per session, divided by the minutes of effort needed to
// act on it. Non-positive effort scores 0.
func ComputeImpact(affectedSessions int, frequency, minutesSaved, effort float64) float64 {
	if effort <= 0 {
		return 0
	}
	return float64(affectedSessions) * frequency * minutesSaved / effort
}

package output

import (
	"fmt"
	"strings"
)

// ScoreBar renders a bar for a 0-100 score, coloured by the confidence
// bands: green from 70, yellow from 40, red below.
// Example: "████████░░ 80/100"
func ScoreBar(score float64, width int) string {
	if width <= 0 {
		width = 20
	}
	filled := min(max(int(score/100*float64(width)), 0), width)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)

	style := StyleError
	switch {
	case score >= 70:
		style = StyleSuccess
	case score >= 40:
		style = StyleWarning
	}
	return fmt.Sprintf("%s %s", style.Render(bar), StyleMuted.Render(fmt.Sprintf("%.0f/100", score)))
}

// TrendArrow renders a delta as "▲ +2.5" or "▼ -1.0", green when the change
// is an improvement and red otherwise. Zero renders as a muted dash.
func TrendArrow(delta float64, higherIsBetter bool) string {
	return trendArrow(delta, higherIsBetter, "%+.1f")
}

// TrendArrowPercent is TrendArrow for percentage-point deltas: "▲ +12%".
func TrendArrowPercent(delta float64, higherIsBetter bool) string {
	return trendArrow(delta, higherIsBetter, "%+.0f%%")
}

func trendArrow(delta float64, higherIsBetter bool, format string) string {
	if delta == 0 {
		return StyleMuted.Render("─")
	}
	arrow := "▼ "
	if delta > 0 {
		arrow = "▲ "
	}
	text := arrow + fmt.Sprintf(format, delta)
	if (delta > 0) == higherIsBetter {
		return StyleSuccess.Render(text)
	}
	return StyleError.Render(text)
}

// ruleWidth is the width of section rules.
var ruleWidth = 66

// SetWidth sets the terminal width section rules are drawn for.
func SetWidth(width int) {
	if width > 14 {
		ruleWidth = width - 14
	}
}

// Section returns a styled section header with a horizontal rule.
func Section(title string) string {
	header := StyleHeader.Render(title)
	rule := StyleMuted.Render(strings.Repeat("─", ruleWidth))
	return fmt.Sprintf("\n %s\n %s", header, rule)
}

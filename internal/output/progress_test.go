package output

import (
	"strings"
	"testing"
)

func TestScoreBar(t *testing.T) {
	plain(t)

	tests := []struct {
		score float64
		width int
		want  string
	}{
		{80, 10, "████████░░ 80/100"},
		{0, 4, "░░░░ 0/100"},
		{150, 4, "████ 150/100"},
		{-5, 4, "░░░░ -5/100"},
		{50, 0, strings.Repeat("█", 10) + strings.Repeat("░", 10) + " 50/100"},
	}
	for _, tc := range tests {
		if got := ScoreBar(tc.score, tc.width); got != tc.want {
			t.Errorf("ScoreBar(%v, %d) = %q, want %q", tc.score, tc.width, got, tc.want)
		}
	}
}

func TestTrendArrow(t *testing.T) {
	plain(t)

	tests := []struct {
		delta  float64
		higher bool
		want   string
	}{
		{2.5, true, "▲ +2.5"},
		{-1, true, "▼ -1.0"},
		{-1, false, "▼ -1.0"},
		{0, true, "─"},
	}
	for _, tc := range tests {
		if got := TrendArrow(tc.delta, tc.higher); got != tc.want {
			t.Errorf("TrendArrow(%v, %v) = %q, want %q", tc.delta, tc.higher, got, tc.want)
		}
	}
	if got := TrendArrowPercent(12.4, true); got != "▲ +12%" {
		t.Errorf("TrendArrowPercent = %q", got)
	}
}

func TestTrendArrow_ColorsByImprovement(t *testing.T) {
	SetNoColor(false)
	if TrendArrow(1, true) != StyleSuccess.Render("▲ +1.0") {
		t.Error("rise in a higher-is-better metric should use the success style")
	}
	if TrendArrow(1, false) != StyleError.Render("▲ +1.0") {
		t.Error("rise in a lower-is-better metric should use the error style")
	}
}

func TestSection(t *testing.T) {
	plain(t)
	old := ruleWidth
	t.Cleanup(func() { ruleWidth = old })

	SetWidth(20)
	if got := Section("Outcomes"); got != "\n Outcomes\n "+strings.Repeat("─", 6) {
		t.Errorf("Section = %q", got)
	}
	SetWidth(10)
	if ruleWidth != 6 {
		t.Errorf("narrow widths should be ignored, ruleWidth = %d", ruleWidth)
	}
}

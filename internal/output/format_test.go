package output

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/blackwell-systems/sessionlens/internal/analyzer"
)

func TestMinutes(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0m"},
		{0.4, "<1m"},
		{12.4, "12m"},
		{59.4, "59m"},
		{60, "1h 00m"},
		{125, "2h 05m"},
	}
	for _, tc := range tests {
		if got := Minutes(tc.in); got != tc.want {
			t.Errorf("Minutes(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCount(t *testing.T) {
	if got := Count(1234567); got != "1,234,567" {
		t.Errorf("Count = %q", got)
	}
	if got := Count(12); got != "12" {
		t.Errorf("Count = %q", got)
	}
}

func TestPercentAndHours(t *testing.T) {
	if got := Percent(66.66); got != "66.7%" {
		t.Errorf("Percent = %q", got)
	}
	if got := Hours(90); got != "1.5h" {
		t.Errorf("Hours = %q", got)
	}
}

func TestAgo(t *testing.T) {
	if got := Ago(time.Time{}); got != "unknown" {
		t.Errorf("Ago(zero) = %q", got)
	}
	if got := Ago(time.Now().Add(-3 * time.Hour)); !strings.Contains(got, "hours ago") {
		t.Errorf("Ago(-3h) = %q", got)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"fix the\n  login   bug", 40, "fix the login bug"},
		{"abcdefgh", 5, "abcd…"},
		{"héllo wörld", 4, "hél…"},
		{"abc", 0, "abc"},
	}
	for _, tc := range tests {
		if got := Truncate(tc.in, tc.n); got != tc.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tc.in, tc.n, got, tc.want)
		}
	}
}

func TestOutcome_PlainWhenNoColor(t *testing.T) {
	SetNoColor(true)
	defer SetNoColor(false)

	for _, o := range analyzer.Outcomes {
		if got := Outcome(o); got != string(o) {
			t.Errorf("Outcome(%s) = %q, want plain label", o, got)
		}
	}
	if got := Assessment(analyzer.AssessmentHigh); got != "high" {
		t.Errorf("Assessment = %q", got)
	}
}

func TestDetectColor(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "out")
	if err != nil {
		t.Fatalf("create temp: %v", err)
	}
	defer f.Close()

	if DetectColor(true, false, f) {
		t.Error("a regular file is not a terminal")
	}
	if DetectColor(false, false, os.Stdout) {
		t.Error("config disabled color")
	}
	if DetectColor(true, true, os.Stdout) {
		t.Error("--no-color disabled color")
	}
}

func TestSection_UsesWidth(t *testing.T) {
	SetNoColor(true)
	defer SetNoColor(false)
	defer SetWidth(80)

	SetWidth(40)
	out := Section("Summary")
	if !strings.Contains(out, strings.Repeat("─", 26)) || strings.Contains(out, strings.Repeat("─", 27)) {
		t.Errorf("expected a 26-wide rule, got %q", out)
	}
}

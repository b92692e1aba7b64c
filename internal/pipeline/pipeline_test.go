package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/blackwell-systems/sessionlens/internal/analyzer"
	"github.com/blackwell-systems/sessionlens/internal/config"
	"github.com/blackwell-systems/sessionlens/internal/session"
)

func testConfig(home string) *config.Config {
	return &config.Config{
		ClaudeHome: home,
		Days:       7,
		Workers:    2,
		Idle:       config.DefaultIdle,
		Analyzer:   analyzer.DefaultOptions(),
	}
}

// writeSession writes a transcript that starts at start, edits a file, and
// commits five minutes later.
func writeSession(t *testing.T, home, id string, start time.Time) {
	t.Helper()
	dir := filepath.Join(home, "projects", "-home-dev-api")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	ts := func(d time.Duration) string { return start.Add(d).UTC().Format(time.RFC3339) }
	lines := []string{
		`{"type":"user","timestamp":"` + ts(0) + `","cwd":"/home/dev/api","message":{"role":"user","content":"add a retry to the client"}}`,
		`{"type":"assistant","timestamp":"` + ts(2*time.Minute) + `","message":{"role":"assistant","content":[{"type":"tool_use","id":"a","name":"Edit","input":{"file_path":"/home/dev/api/client.go"}}]}}`,
		`{"type":"assistant","timestamp":"` + ts(5*time.Minute) + `","message":{"role":"assistant","content":[{"type":"tool_use","id":"b","name":"Bash","input":{"command":"git commit -m 'retry'"}}]}}`,
	}
	if err := os.WriteFile(filepath.Join(dir, id+".jsonl"), []byte(strings.Join(lines, "\n")), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestRun_CurrentOnly(t *testing.T) {
	home := t.TempDir()
	now := time.Now()
	writeSession(t, home, "s1", now.Add(-24*time.Hour))
	writeSession(t, home, "s2", now.Add(-48*time.Hour))

	res, err := Run(context.Background(), testConfig(home), Window{Days: 7, Now: now}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Current) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(res.Current))
	}
	if res.Previous != nil {
		t.Error("expected no previous period")
	}
	if res.Current[0].SessionID != "s1" {
		t.Errorf("expected most recent first, got %s", res.Current[0].SessionID)
	}
	if res.Current[0].TaskType != analyzer.TaskFeature {
		t.Errorf("TaskType = %s, want feature", res.Current[0].TaskType)
	}

	rep := res.Report(now)
	if rep.Metadata.ReportID == "" {
		t.Error("expected a stamped report")
	}
	if rep.Summary.TotalSessions != 2 || rep.Comparison != nil {
		t.Errorf("unexpected report summary %+v", rep.Summary)
	}
}

func TestRun_ComparePrevious(t *testing.T) {
	home := t.TempDir()
	now := time.Now()
	writeSession(t, home, "recent", now.Add(-2*24*time.Hour))
	writeSession(t, home, "last-week", now.Add(-10*24*time.Hour))

	res, err := Run(context.Background(), testConfig(home), Window{Days: 7, ComparePrevious: true, Now: now}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Current) != 1 || res.Current[0].SessionID != "recent" {
		t.Errorf("current = %v", ids(res.Current))
	}
	if len(res.Previous) != 1 || res.Previous[0].SessionID != "last-week" {
		t.Errorf("previous = %v", ids(res.Previous))
	}

	rep := res.Report(now)
	if rep.Comparison == nil {
		t.Fatal("expected a comparison")
	}
	if got := rep.Comparison.Deltas["sessions"].Previous; got != 1 {
		t.Errorf("previous sessions = %v, want 1", got)
	}
}

func TestRun_AllHistoryIgnoresCompare(t *testing.T) {
	home := t.TempDir()
	writeSession(t, home, "s1", time.Now().Add(-90*24*time.Hour))

	res, err := Run(context.Background(), testConfig(home), Window{ComparePrevious: true}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Current) != 1 || res.Previous != nil {
		t.Errorf("current = %d, previous = %v", len(res.Current), res.Previous)
	}
}

func TestSplitPeriods(t *testing.T) {
	cutoff := time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)
	mk := func(id string, start time.Time) analyzer.ClassifiedSession {
		return analyzer.ClassifiedSession{Session: session.Session{SessionID: id, StartTime: start}}
	}
	cur, prev := splitPeriods([]analyzer.ClassifiedSession{
		mk("after", cutoff.Add(time.Hour)),
		mk("at", cutoff),
		mk("before", cutoff.Add(-time.Hour)),
		mk("unknown", time.Time{}),
	}, cutoff)

	if got := ids(cur); strings.Join(got, ",") != "after,at,unknown" {
		t.Errorf("current = %v", got)
	}
	if got := ids(prev); strings.Join(got, ",") != "before" {
		t.Errorf("previous = %v", got)
	}

	cur, prev = splitPeriods(nil, cutoff)
	if cur == nil || prev == nil {
		t.Error("expected non-nil empty periods")
	}
}

func TestClassifyRaw(t *testing.T) {
	d := 3.0
	got, err := ClassifyRaw(context.Background(), []session.Raw{{SessionID: "x", DurationMinutes: &d}}, testConfig(t.TempDir()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].SessionID != "x" {
		t.Errorf("got %+v", got)
	}

	neg := -1.0
	if _, err := ClassifyRaw(context.Background(), []session.Raw{{DurationMinutes: &neg}}, testConfig(t.TempDir())); err == nil {
		t.Error("expected validation error")
	}
}

func ids(sessions []analyzer.ClassifiedSession) []string {
	out := make([]string, len(sessions))
	for i, s := range sessions {
		out[i] = s.SessionID
	}
	return out
}

package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/blackwell-systems/sessionlens/internal/analyzer"
	"github.com/blackwell-systems/sessionlens/internal/config"
)

// writeTranscript writes a three-entry transcript under
// <home>/projects/-home-dev-api/<id>.jsonl. The session starts at start,
// edits one file and commits five minutes later.
func writeTranscript(t *testing.T, home, id string, start time.Time) {
	t.Helper()
	dir := filepath.Join(home, "projects", "-home-dev-api")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("mkdir projects: %v", err)
	}
	ts := func(d time.Duration) string { return start.Add(d).UTC().Format(time.RFC3339) }
	lines := []string{
		fmt.Sprintf(`{"type":"user","timestamp":%q,"cwd":"/home/dev/api","message":{"role":"user","content":"add a retry to the client"}}`, ts(0)),
		fmt.Sprintf(`{"type":"assistant","timestamp":%q,"message":{"role":"assistant","content":[{"type":"tool_use","id":"a","name":"Edit","input":{"file_path":"/home/dev/api/client.go"}}]}}`, ts(2*time.Minute)),
		fmt.Sprintf(`{"type":"assistant","timestamp":%q,"message":{"role":"assistant","content":[{"type":"tool_use","id":"b","name":"Bash","input":{"command":"git commit -m 'retry'"}}]}}`, ts(5*time.Minute)),
	}
	if err := os.WriteFile(filepath.Join(dir, id+".jsonl"), []byte(strings.Join(lines, "\n")), 0644); err != nil {
		t.Fatalf("write transcript: %v", err)
	}
}

// newTestServer creates a Server reading transcripts from home.
func newTestServer(home string) *Server {
	cfg := &config.Config{
		ClaudeHome: home,
		Days:       7,
		Workers:    2,
		Idle:       config.DefaultIdle,
		Analyzer:   analyzer.DefaultOptions(),
	}
	return NewServer(cfg, "test", nil)
}

// callTool invokes the named tool handler and returns its result.
func callTool(s *Server, name string, args json.RawMessage) (any, error) {
	for _, tool := range s.tools {
		if tool.Name == name {
			return tool.Handler(context.Background(), args)
		}
	}
	return nil, fmt.Errorf("tool %q not registered", name)
}

// roundTrip marshals a tool result and decodes it into v, the way an MCP
// client would see it.
func roundTrip(t *testing.T, result any, v any) {
	t.Helper()
	data, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("marshal result: %v", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("unmarshal result: %v\n%s", err, data)
	}
}

func TestAddTools_RegistersAll(t *testing.T) {
	s := newTestServer(t.TempDir())
	want := []string{"classify_session", "get_usage_report", "get_recent_outcomes", "get_suggestions"}
	if len(s.tools) != len(want) {
		t.Fatalf("expected %d tools, got %d", len(want), len(s.tools))
	}
	for i, name := range want {
		if s.tools[i].Name != name {
			t.Errorf("tools[%d] = %q, want %q", i, s.tools[i].Name, name)
		}
		if !json.Valid(s.tools[i].InputSchema) {
			t.Errorf("tool %s has an invalid input schema", name)
		}
	}
}

func TestClassifySession(t *testing.T) {
	s := newTestServer(t.TempDir())
	args := json.RawMessage(`{"session":{
		"session_id":"s1",
		"project":"/home/dev/api",
		"duration_minutes":12,
		"tool_call_count":6,
		"tools_used":["Read","Edit"],
		"files_touched":["client.go"],
		"originating_text":"add a retry to the client",
		"git_summary":{"has_commit":true,"commit_count":1}
	}}`)

	result, err := callTool(s, "classify_session", args)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c, ok := result.(analyzer.ClassifiedSession)
	if !ok {
		t.Fatalf("expected analyzer.ClassifiedSession, got %T", result)
	}
	if c.SessionID != "s1" {
		t.Errorf("SessionID = %q, want s1", c.SessionID)
	}
	if c.TaskType != analyzer.TaskFeature {
		t.Errorf("TaskType = %q, want %q", c.TaskType, analyzer.TaskFeature)
	}
	if c.SessionType != analyzer.SessionWork {
		t.Errorf("SessionType = %q, want %q", c.SessionType, analyzer.SessionWork)
	}
}

func TestClassifySession_MissingSession(t *testing.T) {
	s := newTestServer(t.TempDir())
	for _, args := range []string{`{}`, `null`, ``} {
		if _, err := callTool(s, "classify_session", json.RawMessage(args)); err == nil {
			t.Errorf("args %q: expected error for missing session", args)
		}
	}
}

func TestClassifySession_InvalidRecord(t *testing.T) {
	s := newTestServer(t.TempDir())
	_, err := callTool(s, "classify_session", json.RawMessage(`{"session":{"session_id":"bad","duration_minutes":-3}}`))
	if err == nil {
		t.Fatal("expected error for negative duration")
	}
}

func TestClassifySession_BadJSON(t *testing.T) {
	s := newTestServer(t.TempDir())
	_, err := callTool(s, "classify_session", json.RawMessage(`{"session":"nope"}`))
	if err == nil || !strings.Contains(err.Error(), "invalid arguments") {
		t.Errorf("expected invalid arguments error, got %v", err)
	}
}

func TestGetUsageReport(t *testing.T) {
	home := t.TempDir()
	now := time.Now()
	writeTranscript(t, home, "s1", now.Add(-2*time.Hour))
	writeTranscript(t, home, "s2", now.Add(-26*time.Hour))

	s := newTestServer(home)
	result, err := callTool(s, "get_usage_report", json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got struct {
		Metadata struct {
			ReportID string `json:"report_id"`
		} `json:"metadata"`
		Summary struct {
			TotalSessions int `json:"total_sessions"`
		} `json:"summary"`
		Comparison *json.RawMessage `json:"comparison"`
		Filtered   int              `json:"filtered_sessions"`
	}
	roundTrip(t, result, &got)

	if got.Summary.TotalSessions != 2 {
		t.Errorf("total_sessions = %d, want 2", got.Summary.TotalSessions)
	}
	if got.Metadata.ReportID == "" {
		t.Error("expected report to be stamped with an ID")
	}
	if got.Comparison != nil {
		t.Error("expected no comparison without compare_previous")
	}
	if got.Filtered != 0 {
		t.Errorf("filtered_sessions = %d, want 0", got.Filtered)
	}
}

func TestGetUsageReport_ComparePrevious(t *testing.T) {
	home := t.TempDir()
	now := time.Now()
	writeTranscript(t, home, "recent", now.Add(-time.Hour))
	writeTranscript(t, home, "earlier", now.Add(-10*24*time.Hour))

	s := newTestServer(home)
	result, err := callTool(s, "get_usage_report", json.RawMessage(`{"days":7,"compare_previous":true}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got struct {
		Summary struct {
			TotalSessions int `json:"total_sessions"`
		} `json:"summary"`
		Comparison *json.RawMessage `json:"comparison"`
	}
	roundTrip(t, result, &got)

	if got.Summary.TotalSessions != 1 {
		t.Errorf("total_sessions = %d, want 1 (earlier session belongs to the previous period)", got.Summary.TotalSessions)
	}
	if got.Comparison == nil {
		t.Error("expected a comparison section")
	}
}

func TestGetUsageReport_ProjectFilter(t *testing.T) {
	home := t.TempDir()
	writeTranscript(t, home, "s1", time.Now().Add(-time.Hour))

	s := newTestServer(home)
	result, err := callTool(s, "get_usage_report", json.RawMessage(`{"project":"infra"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got struct {
		Summary struct {
			TotalSessions int `json:"total_sessions"`
		} `json:"summary"`
	}
	roundTrip(t, result, &got)
	if got.Summary.TotalSessions != 0 {
		t.Errorf("total_sessions = %d, want 0", got.Summary.TotalSessions)
	}
}

func TestGetUsageReport_NegativeDays(t *testing.T) {
	s := newTestServer(t.TempDir())
	if _, err := callTool(s, "get_usage_report", json.RawMessage(`{"days":-1}`)); err == nil {
		t.Error("expected error for negative days")
	}
}

func TestGetRecentOutcomes(t *testing.T) {
	home := t.TempDir()
	now := time.Now()
	writeTranscript(t, home, "oldest", now.Add(-3*time.Hour))
	writeTranscript(t, home, "middle", now.Add(-2*time.Hour))
	writeTranscript(t, home, "newest", now.Add(-1*time.Hour))

	s := newTestServer(home)
	result, err := callTool(s, "get_recent_outcomes", json.RawMessage(`{"n":2}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r, ok := result.(RecentOutcomesResult)
	if !ok {
		t.Fatalf("expected RecentOutcomesResult, got %T", result)
	}
	if len(r.Sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(r.Sessions))
	}
	if r.Sessions[0].SessionID != "newest" || r.Sessions[1].SessionID != "middle" {
		t.Errorf("order = %s, %s; want newest, middle", r.Sessions[0].SessionID, r.Sessions[1].SessionID)
	}
	first := r.Sessions[0]
	if first.ProjectName != "api" {
		t.Errorf("ProjectName = %q, want api", first.ProjectName)
	}
	if first.TaskType != analyzer.TaskFeature {
		t.Errorf("TaskType = %q, want %q", first.TaskType, analyzer.TaskFeature)
	}
	if first.StartTime == "" {
		t.Error("expected StartTime to be set")
	}
}

func TestGetRecentOutcomes_DefaultLimit(t *testing.T) {
	home := t.TempDir()
	now := time.Now()
	for i := range 12 {
		writeTranscript(t, home, fmt.Sprintf("s%02d", i), now.Add(-time.Duration(i+1)*time.Minute))
	}

	s := newTestServer(home)
	result, err := callTool(s, "get_recent_outcomes", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := result.(RecentOutcomesResult)
	if len(r.Sessions) != 10 {
		t.Errorf("expected default of 10 sessions, got %d", len(r.Sessions))
	}
}

func TestGetRecentOutcomes_Empty(t *testing.T) {
	s := newTestServer(t.TempDir())
	result, err := callTool(s, "get_recent_outcomes", json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got struct {
		Sessions []RecentOutcome `json:"sessions"`
	}
	roundTrip(t, result, &got)
	if got.Sessions == nil || len(got.Sessions) != 0 {
		t.Errorf("expected empty non-nil sessions, got %v", got.Sessions)
	}
}

func TestGetSuggestions_Regression(t *testing.T) {
	home := t.TempDir()
	writeTranscript(t, home, "earlier", time.Now().Add(-10*24*time.Hour))

	s := newTestServer(home)
	result, err := callTool(s, "get_suggestions", json.RawMessage(`{"days":7}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got SuggestionsResult
	roundTrip(t, result, &got)

	if got.TotalSessions != 0 {
		t.Errorf("total_sessions = %d, want 0", got.TotalSessions)
	}
	found := false
	for _, sg := range got.Suggestions {
		if sg.Title == "activity_rate regressed" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an activity_rate regression, got %+v", got.Suggestions)
	}
}

func TestGetSuggestions_Empty(t *testing.T) {
	s := newTestServer(t.TempDir())
	result, err := callTool(s, "get_suggestions", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got struct {
		Suggestions []json.RawMessage `json:"suggestions"`
	}
	roundTrip(t, result, &got)
	if got.Suggestions == nil || len(got.Suggestions) != 0 {
		t.Errorf("expected empty non-nil suggestions, got %v", got.Suggestions)
	}
}

func TestGetSuggestions_NegativeDays(t *testing.T) {
	s := newTestServer(t.TempDir())
	if _, err := callTool(s, "get_suggestions", json.RawMessage(`{"days":-2}`)); err == nil {
		t.Error("expected error for negative days")
	}
}

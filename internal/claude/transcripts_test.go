package claude

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/blackwell-systems/sessionlens/internal/session"
)

// helper to write a JSONL file in a temp dir and return its path.
func writeJSONL(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func parseLines(t *testing.T, lines ...string) TranscriptFile {
	t.Helper()
	path := writeJSONL(t, t.TempDir(), "sess-1.jsonl", strings.Join(lines, "\n"))
	return TranscriptFile{Path: path, SessionID: "sess-1", Project: "/encoded/project"}
}

func TestParseTranscript_FullSession(t *testing.T) {
	f := parseLines(t,
		`{"type":"user","timestamp":"2026-01-15T10:00:00Z","cwd":"/home/dev/api","gitBranch":"fix/API-9","message":{"role":"user","content":"fix the login bug"}}`,
		`{"type":"assistant","timestamp":"2026-01-15T10:01:00Z","message":{"role":"assistant","content":[{"type":"text","text":"Looking."},{"type":"tool_use","id":"t1","name":"Read","input":{"file_path":"/home/dev/api/login.go"}}]}}`,
		`{"type":"user","timestamp":"2026-01-15T10:01:05Z","message":{"role":"user","content":[{"type":"tool_result","tool_use_id":"t1","content":"package api"}]}}`,
		`{"type":"assistant","timestamp":"2026-01-15T10:05:00Z","message":{"role":"assistant","content":[{"type":"tool_use","id":"t2","name":"Edit","input":{"file_path":"/home/dev/api/./login.go"}},{"type":"tool_use","id":"t3","name":"Bash","input":{"command":"go test ./..."}}]}}`,
		`{"type":"user","timestamp":"2026-01-15T10:10:00Z","message":{"role":"user","content":[{"type":"text","text":"that's still broken"}]}}`,
		`{"type":"assistant","timestamp":"2026-01-15T10:12:30Z","message":{"role":"assistant","content":[{"type":"tool_use","id":"t4","name":"Task","input":{"subagent_type":"reviewer"}},{"type":"tool_use","id":"t5","name":"Skill","input":{"skill":"pdf"}}]}}`,
	)

	raw, err := ParseTranscript(f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if raw.SessionID != "sess-1" {
		t.Errorf("SessionID = %q, want sess-1", raw.SessionID)
	}
	if raw.Project != "/home/dev/api" {
		t.Errorf("Project = %q, want cwd /home/dev/api", raw.Project)
	}
	if raw.GitBranch != "fix/API-9" {
		t.Errorf("GitBranch = %q", raw.GitBranch)
	}
	if raw.StartTime != "2026-01-15T10:00:00Z" {
		t.Errorf("StartTime = %q", raw.StartTime)
	}
	if *raw.DurationMinutes != 12.5 {
		t.Errorf("DurationMinutes = %v, want 12.5", *raw.DurationMinutes)
	}
	if *raw.UserMessageCount != 2 {
		t.Errorf("UserMessageCount = %d, want 2 (tool results excluded)", *raw.UserMessageCount)
	}
	if *raw.AssistantMessageCount != 3 {
		t.Errorf("AssistantMessageCount = %d, want 3", *raw.AssistantMessageCount)
	}
	if *raw.ToolCallCount != 5 {
		t.Errorf("ToolCallCount = %d, want 5", *raw.ToolCallCount)
	}
	if len(raw.FilesTouched) != 2 || raw.FilesTouched[0] != "/home/dev/api/login.go" || raw.FilesTouched[1] != "/home/dev/api/login.go" {
		t.Errorf("FilesTouched = %v", raw.FilesTouched)
	}
	if len(raw.CommandsRun) != 1 || raw.CommandsRun[0] != "go test ./..." {
		t.Errorf("CommandsRun = %v", raw.CommandsRun)
	}
	if raw.OriginatingText != "fix the login bug" {
		t.Errorf("OriginatingText = %q", raw.OriginatingText)
	}
	if len(raw.LaterUserText) != 1 || raw.LaterUserText[0] != "that's still broken" {
		t.Errorf("LaterUserText = %v", raw.LaterUserText)
	}
	if got := raw.Features.AgentsSpawned; len(got) != 1 || got[0] != "reviewer" {
		t.Errorf("AgentsSpawned = %v", got)
	}
	if got := raw.Features.SkillsInvoked; len(got) != 1 || got[0] != "pdf" {
		t.Errorf("SkillsInvoked = %v", got)
	}
	if raw.GitSummary != nil || raw.FrustrationMarkers != nil {
		t.Error("git summary and frustration markers should be left for normalization")
	}
}

func TestParseTranscript_NormalizesCleanly(t *testing.T) {
	f := parseLines(t,
		`{"type":"user","timestamp":"2026-01-15T10:00:00Z","message":{"role":"user","content":"commit it"}}`,
		`{"type":"assistant","timestamp":"2026-01-15T10:03:00Z","message":{"role":"assistant","content":[{"type":"tool_use","id":"t1","name":"Bash","input":{"command":"git commit -m 'wip'"}}]}}`,
		`{"type":"user","timestamp":"2026-01-15T10:04:00Z","message":{"role":"user","content":"never mind"}}`,
	)
	raw, err := ParseTranscript(f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s, err := session.Normalize(raw)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if !s.Git.HasCommit {
		t.Error("expected commit derived from commands")
	}
	if !s.FrustrationMarkers {
		t.Error("expected frustration derived from later prompts")
	}
	if s.Project != "/encoded/project" {
		t.Errorf("Project = %q, want directory fallback", s.Project)
	}
}

func TestParseTranscript_RelativePathsResolved(t *testing.T) {
	f := parseLines(t,
		`{"type":"user","timestamp":"2026-01-15T10:00:00Z","cwd":"/home/dev/api","message":{"role":"user","content":"tidy up"}}`,
		`{"type":"assistant","timestamp":"2026-01-15T10:01:00Z","message":{"role":"assistant","content":[{"type":"tool_use","id":"t1","name":"Write","input":{"file_path":"docs/notes.md"}},{"type":"tool_use","id":"t2","name":"NotebookEdit","input":{"notebook_path":"nb/eda.ipynb"}}]}}`,
	)
	raw, err := ParseTranscript(f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"/home/dev/api/docs/notes.md", "/home/dev/api/nb/eda.ipynb"}
	if len(raw.FilesTouched) != len(want) {
		t.Fatalf("FilesTouched = %v, want %v", raw.FilesTouched, want)
	}
	for i := range want {
		if raw.FilesTouched[i] != want[i] {
			t.Errorf("FilesTouched[%d] = %q, want %q", i, raw.FilesTouched[i], want[i])
		}
	}
}

func TestParseTranscript_SlashCommands(t *testing.T) {
	f := parseLines(t,
		`{"type":"user","timestamp":"2026-01-15T10:00:00Z","message":{"role":"user","content":"<command-name>/review</command-name>\n<command-args></command-args>"}}`,
		`{"type":"user","timestamp":"2026-01-15T10:01:00Z","message":{"role":"user","content":"/compact keep the api notes"}}`,
		`{"type":"user","timestamp":"2026-01-15T10:02:00Z","message":{"role":"user","content":"now add a retry"}}`,
	)
	raw, err := ParseTranscript(f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := raw.Features.SlashCommands
	if len(got) != 2 || got[0] != "/review" || got[1] != "/compact" {
		t.Errorf("SlashCommands = %v, want [/review /compact]", got)
	}
	// The command-tag entry is not a prompt; the typed slash command is.
	if raw.OriginatingText != "/compact keep the api notes" {
		t.Errorf("OriginatingText = %q", raw.OriginatingText)
	}
	if *raw.UserMessageCount != 3 {
		t.Errorf("UserMessageCount = %d, want 3", *raw.UserMessageCount)
	}
}

func TestParseTranscript_MetaEntriesIgnored(t *testing.T) {
	f := parseLines(t,
		`{"type":"user","isMeta":true,"timestamp":"2026-01-15T10:00:00Z","message":{"role":"user","content":"Caveat: generated by the harness"}}`,
		`{"type":"user","timestamp":"2026-01-15T10:00:30Z","message":{"role":"user","content":"explain the scheduler"}}`,
	)
	raw, err := ParseTranscript(f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *raw.UserMessageCount != 1 {
		t.Errorf("UserMessageCount = %d, want 1", *raw.UserMessageCount)
	}
	if raw.OriginatingText != "explain the scheduler" {
		t.Errorf("OriginatingText = %q", raw.OriginatingText)
	}
	if *raw.DurationMinutes != 0.5 {
		t.Errorf("DurationMinutes = %v, want 0.5 (meta timestamps still count)", *raw.DurationMinutes)
	}
}

func TestParseTranscript_MalformedLines(t *testing.T) {
	f := parseLines(t,
		`not valid json at all`,
		`{"type":"assistant","timestamp":"2026-01-15T10:00:00Z","message":{"role":"assistant","content":[{"type":"tool_use","id":"t1","name":"Grep","input":{"pattern":"x"}}]}}`,
		`{broken`,
		`{"type":"assistant","timestamp":"2026-01-15T10:02:00Z","message":"not an object"}`,
	)
	raw, err := ParseTranscript(f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *raw.ToolCallCount != 1 {
		t.Errorf("ToolCallCount = %d, want 1", *raw.ToolCallCount)
	}
	if *raw.AssistantMessageCount != 1 {
		t.Errorf("AssistantMessageCount = %d, want 1", *raw.AssistantMessageCount)
	}
	if *raw.DurationMinutes != 2 {
		t.Errorf("DurationMinutes = %v, want 2", *raw.DurationMinutes)
	}
}

func TestParseTranscript_EmptyFile(t *testing.T) {
	f := parseLines(t, "")
	raw, err := ParseTranscript(f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw.StartTime != "" {
		t.Errorf("StartTime = %q, want empty", raw.StartTime)
	}
	if *raw.DurationMinutes != 0 || *raw.ToolCallCount != 0 {
		t.Error("expected zero duration and tool calls")
	}
	if raw.Project != "/encoded/project" {
		t.Errorf("Project = %q", raw.Project)
	}
}

func TestParseTranscript_MissingFile(t *testing.T) {
	_, err := ParseTranscript(TranscriptFile{Path: filepath.Join(t.TempDir(), "nope.jsonl")})
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name string
		in   string
		zero bool
	}{
		{"rfc3339 nano", "2026-01-15T10:00:00.123Z", false},
		{"rfc3339", "2026-01-15T10:00:00+02:00", false},
		{"no zone", "2026-01-15T10:00:00", false},
		{"empty", "", true},
		{"garbage", "yesterday", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ParseTimestamp(tc.in); got.IsZero() != tc.zero {
				t.Errorf("ParseTimestamp(%q) = %v, zero want %v", tc.in, got, tc.zero)
			}
		})
	}
}

package claude

import (
	"bufio"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/blackwell-systems/sessionlens/internal/session"
)

var (
	slashCommandRe = regexp.MustCompile(`^/(\S+)`)
	commandTagRe   = regexp.MustCompile(`<command-name>/?([^<\s]+)</command-name>`)
)

// fileTools read or write a file named by input.file_path.
var fileTools = map[string]bool{
	"Read":      true,
	"Edit":      true,
	"MultiEdit": true,
	"Write":     true,
}

// transcriptState accumulates one transcript while its lines are scanned.
type transcriptState struct {
	first, last time.Time

	userMessages      int
	assistantMessages int
	toolCalls         int

	tools    []string
	files    []string
	commands []string
	prompts  []string

	branch   string
	cwd      string
	features session.Features
}

// ParseTranscript reads a single JSONL transcript into a raw session record.
// Lines that fail to parse are skipped. Git summary and frustration markers
// are left unset so that session.Normalize derives them from the commands
// and the later prompts.
func ParseTranscript(f TranscriptFile) (session.Raw, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return session.Raw{}, fmt.Errorf("opening transcript: %w", err)
	}
	defer file.Close()

	var st transcriptState
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	for scanner.Scan() {
		var entry TranscriptEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue
		}
		st.process(&entry)
	}
	if err := scanner.Err(); err != nil {
		return session.Raw{}, fmt.Errorf("scanning %s: %w", f.Path, err)
	}

	return st.raw(f), nil
}

func (st *transcriptState) process(entry *TranscriptEntry) {
	if ts := ParseTimestamp(entry.Timestamp); !ts.IsZero() {
		if st.first.IsZero() {
			st.first = ts
		}
		st.last = ts
	}
	if entry.GitBranch != "" {
		st.branch = entry.GitBranch
	}
	if entry.Cwd != "" && st.cwd == "" {
		st.cwd = entry.Cwd
	}

	switch entry.Type {
	case "user":
		if !entry.IsMeta {
			st.processUser(entry)
		}
	case "assistant":
		st.processAssistant(entry)
	}
}

// processUser counts a user turn and records its prompt text. Entries that
// only carry tool results are the harness talking, not the user, and are not
// counted.
func (st *transcriptState) processUser(entry *TranscriptEntry) {
	msg, ok := decodeMessage(entry.Message)
	if !ok {
		return
	}

	var parts []string
	for _, b := range msg.Content {
		if b.Type == "text" && b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	if len(parts) == 0 {
		return
	}
	st.userMessages++

	text := strings.TrimSpace(strings.Join(parts, "\n"))
	if m := commandTagRe.FindStringSubmatch(text); m != nil {
		st.features.SlashCommands = append(st.features.SlashCommands, "/"+m[1])
		return
	}
	if m := slashCommandRe.FindStringSubmatch(text); m != nil {
		st.features.SlashCommands = append(st.features.SlashCommands, "/"+m[1])
	}
	st.prompts = append(st.prompts, text)
}

func (st *transcriptState) processAssistant(entry *TranscriptEntry) {
	msg, ok := decodeMessage(entry.Message)
	if !ok {
		return
	}
	st.assistantMessages++

	for _, b := range msg.Content {
		if b.Type != "tool_use" {
			continue
		}
		name := b.Name
		if name == "" {
			name = "unknown"
		}
		st.toolCalls++
		st.tools = append(st.tools, name)

		var in toolInput
		if len(b.Input) > 0 {
			_ = json.Unmarshal(b.Input, &in)
		}

		switch {
		case fileTools[name]:
			if p := NormalizePath(in.FilePath, st.cwd); p != "" {
				st.files = append(st.files, p)
			}
		case name == "NotebookEdit":
			if p := NormalizePath(in.NotebookPath, st.cwd); p != "" {
				st.files = append(st.files, p)
			}
		case name == "Bash":
			if in.Command != "" {
				st.commands = append(st.commands, in.Command)
			}
		case name == "Skill":
			skill := in.Skill
			if skill == "" {
				skill = "unknown"
			}
			st.features.SkillsInvoked = append(st.features.SkillsInvoked, skill)
		case name == "Task":
			agent := in.SubagentType
			if agent == "" {
				agent = "general-purpose"
			}
			st.features.AgentsSpawned = append(st.features.AgentsSpawned, agent)
		}
	}
}

func (st *transcriptState) raw(f TranscriptFile) session.Raw {
	project := st.cwd
	if project == "" {
		project = f.Project
	}

	duration := 0.0
	if !st.first.IsZero() && st.last.After(st.first) {
		duration = math.Round(st.last.Sub(st.first).Minutes()*10) / 10
	}

	r := session.Raw{
		SessionID:             f.SessionID,
		Project:               project,
		GitBranch:             st.branch,
		DurationMinutes:       &duration,
		UserMessageCount:      &st.userMessages,
		AssistantMessageCount: &st.assistantMessages,
		ToolCallCount:         &st.toolCalls,
		ToolsUsed:             st.tools,
		FilesTouched:          st.files,
		CommandsRun:           st.commands,
		Features:              st.features,
	}
	if !st.first.IsZero() {
		r.StartTime = st.first.UTC().Format(time.RFC3339)
	}
	if len(st.prompts) > 0 {
		r.OriginatingText = st.prompts[0]
		r.LaterUserText = st.prompts[1:]
	}
	return r
}

func decodeMessage(raw json.RawMessage) (Message, bool) {
	if len(raw) == 0 {
		return Message{}, false
	}
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Message{}, false
	}
	return msg, true
}

// ParseTimestamp parses an ISO 8601 timestamp string. It tries RFC3339Nano,
// RFC3339, and a plain datetime format without timezone. Returns the zero time
// if the string is empty or cannot be parsed by any supported format.
func ParseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t, err = time.Parse(time.RFC3339, s)
		if err != nil {
			// Fallback for datetime strings without a timezone suffix.
			t, err = time.Parse("2006-01-02T15:04:05", s)
			if err != nil {
				return time.Time{}
			}
		}
	}
	return t
}

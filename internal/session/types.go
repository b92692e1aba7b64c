// Package session normalizes extracted per-session activity records into the
// canonical Session view consumed by the classifiers and the aggregate engine.
package session

import (
	"path/filepath"
	"slices"
	"time"
)

// GitSummary holds flags derived from the git commands run during a session.
type GitSummary struct {
	HasCommit       bool     `json:"has_commit"`
	HasPush         bool     `json:"has_push"`
	HasAdd          bool     `json:"has_add"`
	HasFailedCommit bool     `json:"has_failed_commit"`
	ReadOnly        bool     `json:"read_only"`
	CommitCount     int      `json:"commit_count"`
	Commands        []string `json:"git_commands,omitempty"`
}

// SuccessfulCommit reports whether a commit happened and did not fail.
func (g GitSummary) SuccessfulCommit() bool {
	return g.HasCommit && !g.HasFailedCommit
}

// Features tracks use of Claude Code extension points within a session.
type Features struct {
	SkillsInvoked []string `json:"skills_invoked,omitempty"`
	AgentsSpawned []string `json:"agents_spawned,omitempty"`
	SlashCommands []string `json:"slash_commands,omitempty"`
}

// Raw is a per-session record as produced by an extractor. Pointer fields are
// optional; a nil value means the extractor did not supply it and Normalize
// falls back to a default or derives the value from other fields.
type Raw struct {
	SessionID             string      `json:"session_id"`
	Project               string      `json:"project"`
	StartTime             string      `json:"start_time,omitempty"`
	GitBranch             string      `json:"git_branch,omitempty"`
	DurationMinutes       *float64    `json:"duration_minutes,omitempty"`
	UserMessageCount      *int        `json:"user_message_count,omitempty"`
	AssistantMessageCount *int        `json:"assistant_message_count,omitempty"`
	ToolCallCount         *int        `json:"tool_call_count,omitempty"`
	ToolsUsed             []string    `json:"tools_used,omitempty"`
	FilesTouched          []string    `json:"files_touched,omitempty"`
	CommandsRun           []string    `json:"commands_run,omitempty"`
	GitSummary            *GitSummary `json:"git_summary,omitempty"`
	OriginatingText       string      `json:"originating_text,omitempty"`
	LaterUserText         []string    `json:"later_user_text,omitempty"`
	FrustrationMarkers    *bool       `json:"frustration_markers,omitempty"`
	Features              Features    `json:"claude_code_features"`
}

// Session is the canonical view of one session. Every count is non-negative,
// ToolsUsed and FilesTouched are sorted and duplicate-free, and no slice is
// shared with the Raw record it was built from.
type Session struct {
	SessionID             string     `json:"session_id"`
	Project               string     `json:"project"`
	StartTime             time.Time  `json:"start_time,omitzero"`
	GitBranch             string     `json:"git_branch,omitempty"`
	DurationMinutes       float64    `json:"duration_minutes"`
	UserMessageCount      int        `json:"user_message_count"`
	AssistantMessageCount int        `json:"assistant_message_count"`
	ToolCallCount         int        `json:"tool_call_count"`
	ToolsUsed             []string   `json:"tools_used"`
	FilesTouched          []string   `json:"files_touched"`
	CommandsRun           []string   `json:"commands_run"`
	Git                   GitSummary `json:"git_summary"`
	OriginatingText       string     `json:"originating_text"`
	FrustrationMarkers    bool       `json:"frustration_markers"`
	Features              Features   `json:"claude_code_features"`
}

// editTools are tools that write or modify files.
var editTools = []string{"Edit", "MultiEdit", "Write", "NotebookEdit"}

// readTools are tools that read or search without modifying anything.
var readTools = []string{"Read", "Grep", "Glob", "WebSearch", "WebFetch"}

// HasTool reports whether the named tool was used at least once.
func (s Session) HasTool(name string) bool {
	_, found := slices.BinarySearch(s.ToolsUsed, name)
	return found
}

func (s Session) hasAny(tools []string) bool {
	for _, t := range tools {
		if s.HasTool(t) {
			return true
		}
	}
	return false
}

// HasEdits reports whether any edit/write tool was used.
func (s Session) HasEdits() bool { return s.hasAny(editTools) }

// HasReads reports whether any read/search tool was used.
func (s Session) HasReads() bool { return s.hasAny(readTools) }

// HasShell reports whether a shell command ran.
func (s Session) HasShell() bool {
	return s.HasTool("Bash") || len(s.CommandsRun) > 0
}

// HasTestRun reports whether any command looks like a test invocation.
func (s Session) HasTestRun() bool {
	for _, cmd := range s.CommandsRun {
		if IsTestCommand(cmd) {
			return true
		}
	}
	return false
}

// FilesTouchedCount returns the number of distinct files touched.
func (s Session) FilesTouchedCount() int { return len(s.FilesTouched) }

// TotalTurns is the combined user and assistant message count.
func (s Session) TotalTurns() int { return s.UserMessageCount + s.AssistantMessageCount }

// ProjectName returns the last path component of the project.
func (s Session) ProjectName() string {
	if s.Project == "" {
		return unknownProject
	}
	return filepath.Base(s.Project)
}

// Date returns the session start date as YYYY-MM-DD, or "" if unknown.
func (s Session) Date() string {
	if s.StartTime.IsZero() {
		return ""
	}
	return s.StartTime.Format(time.DateOnly)
}

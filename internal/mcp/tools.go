package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/blackwell-systems/sessionlens/internal/aggregate"
	"github.com/blackwell-systems/sessionlens/internal/analyzer"
	"github.com/blackwell-systems/sessionlens/internal/pipeline"
	"github.com/blackwell-systems/sessionlens/internal/session"
	"github.com/blackwell-systems/sessionlens/internal/suggest"
)

// RecentOutcomesResult holds the most recent classified sessions.
type RecentOutcomesResult struct {
	Sessions []RecentOutcome `json:"sessions"`
}

// RecentOutcome summarizes how a single session ended.
type RecentOutcome struct {
	SessionID       string               `json:"session_id"`
	ProjectName     string               `json:"project_name"`
	StartTime       string               `json:"start_time,omitempty"`
	DurationMin     float64              `json:"duration_minutes"`
	TaskType        analyzer.TaskType    `json:"task_type"`
	SessionType     analyzer.SessionType `json:"session_type"`
	Outcome         analyzer.Outcome     `json:"outcome"`
	ConfidenceScore int                  `json:"confidence_score"`
	Issues          []string             `json:"issues"`
}

var (
	classifySchema = json.RawMessage(`{"type":"object","properties":{"session":{"type":"object","description":"Raw session record: session_id, project, duration_minutes, tool_call_count, tools_used, files_touched, commands_run, originating_text, ..."}},"required":["session"],"additionalProperties":false}`)
	reportSchema   = json.RawMessage(`{"type":"object","properties":{"days":{"type":"integer","description":"Analysis window in days (default from config)"},"project":{"type":"string","description":"Only sessions whose project path contains this"},"compare_previous":{"type":"boolean","description":"Include deltas against the preceding window"}},"additionalProperties":false}`)
	suggestSchema  = json.RawMessage(`{"type":"object","properties":{"days":{"type":"integer","description":"Analysis window in days (default from config)"},"project":{"type":"string","description":"Only sessions whose project path contains this"},"limit":{"type":"integer","description":"Maximum suggestions to return (default 10)"}},"additionalProperties":false}`)
	recentNSchema  = json.RawMessage(`{"type":"object","properties":{"n":{"type":"integer","description":"Number of sessions to return (default 10, max 50)"},"days":{"type":"integer","description":"Analysis window in days (default from config)"}},"additionalProperties":false}`)
)

// addTools registers all MCP tool handlers on s.
func addTools(s *Server) {
	s.registerTool(toolDef{
		Name:        "classify_session",
		Description: "Classify one raw session record: task type, completion, confidence, and outcome.",
		InputSchema: classifySchema,
		Handler:     s.handleClassifySession,
	})
	s.registerTool(toolDef{
		Name:        "get_usage_report",
		Description: "Aggregate report over recent Claude Code sessions: completion rate, distributions, breakdowns, issues.",
		InputSchema: reportSchema,
		Handler:     s.handleGetUsageReport,
	})
	s.registerTool(toolDef{
		Name:        "get_recent_outcomes",
		Description: "Last N sessions with task type, outcome, and confidence score.",
		InputSchema: recentNSchema,
		Handler:     s.handleGetRecentOutcomes,
	})
	s.registerTool(toolDef{
		Name:        "get_suggestions",
		Description: "Ranked improvement suggestions derived from recent session outcomes and their trend against the previous window.",
		InputSchema: suggestSchema,
		Handler:     s.handleGetSuggestions,
	})
}

// decodeArgs unmarshals tool arguments; empty and null arguments leave v
// untouched.
func decodeArgs(args json.RawMessage, v any) error {
	if len(args) == 0 || string(args) == "null" {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// handleClassifySession classifies a caller-supplied raw record.
func (s *Server) handleClassifySession(ctx context.Context, args json.RawMessage) (any, error) {
	var params struct {
		Session *session.Raw `json:"session"`
	}
	if err := decodeArgs(args, &params); err != nil {
		return nil, err
	}
	if params.Session == nil {
		return nil, errors.New("missing required argument: session")
	}

	out, err := pipeline.ClassifyRaw(ctx, []session.Raw{*params.Session}, s.cfg)
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// handleGetUsageReport extracts, classifies, and aggregates recent sessions.
func (s *Server) handleGetUsageReport(ctx context.Context, args json.RawMessage) (any, error) {
	var params struct {
		Days            *int   `json:"days"`
		Project         string `json:"project"`
		ComparePrevious bool   `json:"compare_previous"`
	}
	if err := decodeArgs(args, &params); err != nil {
		return nil, err
	}
	days := s.cfg.Days
	if params.Days != nil {
		if *params.Days < 0 {
			return nil, fmt.Errorf("days must be >= 0, got %d", *params.Days)
		}
		days = *params.Days
	}

	now := s.now()
	res, err := pipeline.Run(ctx, s.cfg, pipeline.Window{
		Days:            days,
		Project:         params.Project,
		ComparePrevious: params.ComparePrevious,
		Now:             now,
	}, s.logger)
	if err != nil {
		return nil, err
	}
	rep := res.Report(now)
	return struct {
		aggregate.Report
		Filtered int `json:"filtered_sessions"`
	}{rep, res.Stats.Filtered()}, nil
}

// handleGetRecentOutcomes returns the last N classified sessions.
func (s *Server) handleGetRecentOutcomes(ctx context.Context, args json.RawMessage) (any, error) {
	var params struct {
		N    *int `json:"n"`
		Days *int `json:"days"`
	}
	if err := decodeArgs(args, &params); err != nil {
		return nil, err
	}
	n := 10
	if params.N != nil && *params.N > 0 {
		n = *params.N
	}
	n = min(n, 50)
	days := s.cfg.Days
	if params.Days != nil && *params.Days >= 0 {
		days = *params.Days
	}

	res, err := pipeline.Run(ctx, s.cfg, pipeline.Window{Days: days, Now: s.now()}, s.logger)
	if err != nil {
		return nil, err
	}

	sessions := res.Current
	if n < len(sessions) {
		sessions = sessions[:n]
	}
	result := make([]RecentOutcome, 0, len(sessions))
	for _, c := range sessions {
		ro := RecentOutcome{
			SessionID:       c.SessionID,
			ProjectName:     c.ProjectName(),
			DurationMin:     c.DurationMinutes,
			TaskType:        c.TaskType,
			SessionType:     c.SessionType,
			Outcome:         c.Outcome,
			ConfidenceScore: c.ConfidenceScore,
			Issues:          c.Issues,
		}
		if !c.StartTime.IsZero() {
			ro.StartTime = c.StartTime.UTC().Format("2006-01-02T15:04:05Z")
		}
		result = append(result, ro)
	}
	return RecentOutcomesResult{Sessions: result}, nil
}

// SuggestionsResult holds ranked suggestions for a window.
type SuggestionsResult struct {
	TotalSessions int                  `json:"total_sessions"`
	Suggestions   []suggest.Suggestion `json:"suggestions"`
}

// handleGetSuggestions aggregates the window, compares it against the one
// before it, and runs the suggestion rules over the result.
func (s *Server) handleGetSuggestions(ctx context.Context, args json.RawMessage) (any, error) {
	var params struct {
		Days    *int   `json:"days"`
		Project string `json:"project"`
		Limit   *int   `json:"limit"`
	}
	if err := decodeArgs(args, &params); err != nil {
		return nil, err
	}
	days := s.cfg.Days
	if params.Days != nil {
		if *params.Days < 0 {
			return nil, fmt.Errorf("days must be >= 0, got %d", *params.Days)
		}
		days = *params.Days
	}
	limit := 10
	if params.Limit != nil && *params.Limit > 0 {
		limit = *params.Limit
	}

	now := s.now()
	res, err := pipeline.Run(ctx, s.cfg, pipeline.Window{
		Days:            days,
		Project:         params.Project,
		ComparePrevious: true,
		Now:             now,
	}, s.logger)
	if err != nil {
		return nil, err
	}
	rep := res.Report(now)
	suggestions := suggest.ForReport(rep, s.cfg.Analyzer)
	if len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	if suggestions == nil {
		suggestions = []suggest.Suggestion{}
	}
	return SuggestionsResult{TotalSessions: rep.Summary.TotalSessions, Suggestions: suggestions}, nil
}

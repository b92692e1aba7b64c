package session

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"
)

const unknownProject = "unknown"

// ValidationError reports a Raw record that violates the extractor contract,
// such as a negative duration or count. It signals malformed upstream data
// rather than a condition the analyzer can recover from.
type ValidationError struct {
	SessionID string
	Field     string
	Value     float64
}

func (e *ValidationError) Error() string {
	id := e.SessionID
	if id == "" {
		id = "<unknown>"
	}
	return fmt.Sprintf("session %s: invalid %s %v (must be a non-negative number)", id, e.Field, e.Value)
}

// Normalize validates a Raw record and returns its canonical Session view.
// Missing counts default to zero and missing sets to empty. When the git
// summary or the frustration flag is absent it is derived from the commands
// and later user text respectively.
func Normalize(raw Raw) (Session, error) {
	s := Session{
		SessionID:       strings.TrimSpace(raw.SessionID),
		Project:         strings.TrimSpace(raw.Project),
		GitBranch:       strings.TrimSpace(raw.GitBranch),
		OriginatingText: raw.OriginatingText,
	}
	if s.Project == "" {
		s.Project = unknownProject
	}

	if raw.DurationMinutes != nil {
		d := *raw.DurationMinutes
		if d < 0 || math.IsNaN(d) || math.IsInf(d, 0) {
			return Session{}, &ValidationError{SessionID: s.SessionID, Field: "duration_minutes", Value: d}
		}
		s.DurationMinutes = d
	}

	counts := []struct {
		field string
		src   *int
		dst   *int
	}{
		{"user_message_count", raw.UserMessageCount, &s.UserMessageCount},
		{"assistant_message_count", raw.AssistantMessageCount, &s.AssistantMessageCount},
		{"tool_call_count", raw.ToolCallCount, &s.ToolCallCount},
	}
	for _, c := range counts {
		if c.src == nil {
			continue
		}
		if *c.src < 0 {
			return Session{}, &ValidationError{SessionID: s.SessionID, Field: c.field, Value: float64(*c.src)}
		}
		*c.dst = *c.src
	}

	if raw.StartTime != "" {
		if t, err := time.Parse(time.RFC3339Nano, raw.StartTime); err == nil {
			s.StartTime = t.UTC()
		}
	}

	s.ToolsUsed = uniqueSorted(raw.ToolsUsed)
	s.FilesTouched = uniqueSorted(raw.FilesTouched)
	s.CommandsRun = nonEmpty(raw.CommandsRun)

	if raw.GitSummary != nil {
		s.Git = *raw.GitSummary
		s.Git.Commands = slices.Clone(raw.GitSummary.Commands)
	} else {
		s.Git = ClassifyGitOperations(s.CommandsRun)
	}

	if raw.FrustrationMarkers != nil {
		s.FrustrationMarkers = *raw.FrustrationMarkers
	} else {
		s.FrustrationMarkers = DetectFrustration(raw.LaterUserText)
	}

	s.Features = Features{
		SkillsInvoked: nonEmpty(raw.Features.SkillsInvoked),
		AgentsSpawned: nonEmpty(raw.Features.AgentsSpawned),
		SlashCommands: nonEmpty(raw.Features.SlashCommands),
	}

	return s, nil
}

// Validate reports the first field of s that Normalize would have rejected.
// It is for sessions assembled without going through Normalize.
func (s Session) Validate() error {
	d := s.DurationMinutes
	if d < 0 || math.IsNaN(d) || math.IsInf(d, 0) {
		return &ValidationError{SessionID: s.SessionID, Field: "duration_minutes", Value: d}
	}
	for _, c := range []struct {
		field string
		v     int
	}{
		{"user_message_count", s.UserMessageCount},
		{"assistant_message_count", s.AssistantMessageCount},
		{"tool_call_count", s.ToolCallCount},
	} {
		if c.v < 0 {
			return &ValidationError{SessionID: s.SessionID, Field: c.field, Value: float64(c.v)}
		}
	}
	return nil
}

// uniqueSorted returns a sorted copy of vals with blanks and duplicates removed.
// The result is never nil.
func uniqueSorted(vals []string) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// nonEmpty returns a copy of vals without blank entries, preserving order.
func nonEmpty(vals []string) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}

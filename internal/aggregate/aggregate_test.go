package aggregate

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/sessionlens/internal/analyzer"
	"github.com/blackwell-systems/sessionlens/internal/session"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func classify(t *testing.T, raw session.Raw) analyzer.ClassifiedSession {
	t.Helper()
	s, err := session.Normalize(raw)
	require.NoError(t, err)
	return analyzer.Classify(s)
}

func withOutcome(o analyzer.Outcome) analyzer.ClassifiedSession {
	return analyzer.ClassifiedSession{Outcome: o}
}

// fixture is a small mixed period: a completed bug fix, a quick lookup, and
// an abandoned config session in a second project.
func fixture(t *testing.T) []analyzer.ClassifiedSession {
	return []analyzer.ClassifiedSession{
		classify(t, session.Raw{
			SessionID:        "a",
			Project:          "/home/dev/api",
			StartTime:        "2026-03-02T09:00:00Z",
			GitBranch:        "fix/API-17-login",
			OriginatingText:  "fix the login bug",
			DurationMinutes:  floatPtr(15),
			UserMessageCount: intPtr(3),
			ToolCallCount:    intPtr(8),
			ToolsUsed:        []string{"Edit", "Bash"},
			FilesTouched:     []string{"login.go", "login_test.go"},
			CommandsRun:      []string{"git commit -m 'login'"},
			Features:         session.Features{SlashCommands: []string{"/review"}},
		}),
		classify(t, session.Raw{
			SessionID:       "b",
			Project:         "/home/dev/api",
			StartTime:       "2026-03-02T15:00:00Z",
			DurationMinutes: floatPtr(2),
			ToolCallCount:   intPtr(3),
			ToolsUsed:       []string{"Read"},
		}),
		classify(t, session.Raw{
			SessionID:        "c",
			Project:          "/home/dev/infra",
			StartTime:        "2026-03-04T11:00:00Z",
			OriginatingText:  "deploy the docker image",
			DurationMinutes:  floatPtr(1),
			UserMessageCount: intPtr(1),
			ToolCallCount:    intPtr(30),
			ToolsUsed:        []string{"Bash"},
			CommandsRun:      []string{"docker push failed"},
			Features:         session.Features{AgentsSpawned: []string{"general-purpose", "general-purpose"}},
		}),
	}
}

func TestAggregate_CompletionRate(t *testing.T) {
	r := Aggregate([]analyzer.ClassifiedSession{
		withOutcome(analyzer.OutcomeCompleted),
		withOutcome(analyzer.OutcomeCompleted),
		withOutcome(analyzer.OutcomeAbandoned),
		withOutcome(analyzer.OutcomeUnclear),
	}, nil)

	assert.Equal(t, 4, r.Summary.TotalSessions)
	assert.Equal(t, 50.0, r.Summary.CompletionRate)
	assert.Equal(t, 2, r.Summary.ByOutcome[analyzer.OutcomeCompleted])
	assert.Equal(t, 1, r.Summary.ByOutcome[analyzer.OutcomeAbandoned])
	assert.Equal(t, 0, r.Summary.ByOutcome[analyzer.OutcomeBlocked])
}

func TestAggregate_Empty(t *testing.T) {
	r := Aggregate(nil, nil)

	assert.Zero(t, r.Summary.TotalSessions)
	assert.Zero(t, r.Summary.CompletionRate)
	assert.Zero(t, r.Summary.IssueRate)
	assert.Zero(t, r.ActivityMetrics.ActivityRate)
	assert.Nil(t, r.DurationDistribution)
	assert.Nil(t, r.ToolCallsDistribution)
	assert.Nil(t, r.FilesTouchedDistribution)
	assert.Nil(t, r.CompletionConfidence)
	assert.Nil(t, r.EfficiencyAverages.ToolsPerFile)
	assert.Empty(t, r.ByProject)
	assert.NotNil(t, r.CommonIssues)
	assert.Nil(t, r.Comparison)

	for _, st := range r.BySessionType {
		assert.Zero(t, st.Pct)
	}

	_, err := json.Marshal(r)
	require.NoError(t, err)
}

func TestAggregate_Fixture(t *testing.T) {
	sessions := fixture(t)
	require.Equal(t, analyzer.OutcomeCompleted, sessions[0].Outcome)
	require.Equal(t, analyzer.OutcomeLookupComplete, sessions[1].Outcome)
	require.Equal(t, analyzer.OutcomeAbandoned, sessions[2].Outcome)

	r := Aggregate(sessions, nil)

	assert.Equal(t, 3, r.Summary.TotalSessions)
	assert.Equal(t, 18.0, r.Summary.TotalDurationMinutes)
	assert.Equal(t, 41, r.Summary.TotalToolCalls)
	assert.Equal(t, 66.7, r.Summary.CompletionRate)
	assert.Equal(t, 6.0, r.Averages.DurationMinutes)

	api := r.ByProject["api"]
	assert.Equal(t, 2, api.Sessions)
	assert.Equal(t, 2, api.Completed)
	assert.Equal(t, 100.0, api.CompletionRate)
	assert.Equal(t, 8.5, api.AvgDuration)

	infra := r.ByProject["infra"]
	assert.Equal(t, 1, infra.Sessions)
	assert.Zero(t, infra.CompletionRate)
	assert.Equal(t, 100.0, infra.IssueRate)

	assert.Equal(t, 1, r.ByTaskType[analyzer.TaskBugFix].Sessions)
	assert.Equal(t, 1, r.ByTaskType[analyzer.TaskConfig].Sessions)

	assert.Equal(t, 1, r.BySessionType[analyzer.SessionLookup].Count)
	assert.Equal(t, 33.3, r.BySessionType[analyzer.SessionLookup].Pct)

	assert.Equal(t, DateStats{Sessions: 2, Completed: 2, Duration: 17}, r.ByDate["2026-03-02"])
	assert.Equal(t, "2026-03-02", r.Metadata.PeriodStart)
	assert.Equal(t, "2026-03-04", r.Metadata.PeriodEnd)

	assert.Equal(t, TicketStats{Sessions: 1, Completed: 1}, r.JiraTickets["API-17"])

	require.NotNil(t, r.DurationDistribution)
	assert.Equal(t, 3, r.DurationDistribution.Count)
	assert.Equal(t, 2.0, r.DurationDistribution.Median)

	require.NotNil(t, r.FilesTouchedDistribution)
	assert.Equal(t, 1, r.FilesTouchedDistribution.Count, "sessions without files are excluded")

	require.NotNil(t, r.EfficiencyAverages.ToolsPerFile)
	assert.Equal(t, 4.0, r.EfficiencyAverages.ToolsPerFile.Avg)
	assert.Equal(t, 1, r.EfficiencyAverages.ToolsPerFile.Count)

	assert.Equal(t, 1, r.ActivityMetrics.SessionsWithEdits)
	assert.Equal(t, 1, r.ActivityMetrics.SessionsWithCommits)
	assert.Equal(t, 33.3, r.ActivityMetrics.ActivityRate)

	assert.Contains(t, r.CommonIssues, Count{Name: analyzer.IssueCommandError, Count: 1})
	assert.Contains(t, r.CommonSuccesses, Count{Name: analyzer.SuccessGitOperations, Count: 1})
	assert.Equal(t, Count{Name: "Bash", Count: 2}, r.ToolsUsage[0])

	assert.Equal(t, 2, r.Features.Totals.AgentsSpawned)
	assert.Equal(t, 1, r.Features.Totals.SessionsUsingAgents)
	assert.Equal(t, []Count{{Name: "general-purpose", Count: 2}}, r.Features.Agents)
	assert.Equal(t, 1, r.Features.Totals.SlashCommands)

	require.NotNil(t, r.CompletionConfidence)
	assert.Equal(t, 1, r.CompletionConfidence.MediumCount)
}

func TestAggregate_EfficiencySkipsZeroRatios(t *testing.T) {
	ratio := func(v float64) *float64 { return &v }
	withFiles := withOutcome(analyzer.OutcomeCompleted)
	withFiles.Efficiency = analyzer.Efficiency{FilesPerHour: ratio(4), ToolsPerMessage: ratio(2)}
	noFiles := withOutcome(analyzer.OutcomeCompleted)
	noFiles.Efficiency = analyzer.Efficiency{FilesPerHour: ratio(0), ToolsPerMessage: ratio(3)}

	r := Aggregate([]analyzer.ClassifiedSession{withFiles, noFiles}, nil)

	require.NotNil(t, r.EfficiencyAverages.FilesPerHour)
	assert.Equal(t, 4.0, r.EfficiencyAverages.FilesPerHour.Avg)
	assert.Equal(t, 1, r.EfficiencyAverages.FilesPerHour.Count)
	require.NotNil(t, r.EfficiencyAverages.ToolsPerMessage)
	assert.Equal(t, 2.5, r.EfficiencyAverages.ToolsPerMessage.Avg)
	assert.Nil(t, r.EfficiencyAverages.ToolsPerFile)
}

func TestAggregate_DoesNotModifyInput(t *testing.T) {
	sessions := fixture(t)
	before, err := json.Marshal(sessions)
	require.NoError(t, err)

	_ = Aggregate(sessions, sessions)

	after, err := json.Marshal(sessions)
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
}

func TestAggregate_WithComparison(t *testing.T) {
	current := fixture(t)
	previous := current[:1]

	r := Aggregate(current, previous)
	require.NotNil(t, r.Comparison)

	assert.Equal(t, 1, r.Comparison.PreviousPeriod.Summary.TotalSessions)
	assert.Equal(t, "2026-03-02", r.Comparison.PreviousPeriod.Start)

	sessions := r.Comparison.Deltas["sessions"]
	assert.Equal(t, 3.0, sessions.Current)
	assert.Equal(t, 1.0, sessions.Previous)
	assert.Equal(t, 200.0, sessions.DeltaPct)
	assert.Equal(t, DirectionUp, sessions.Direction)

	for _, m := range DeltaMetrics {
		assert.Contains(t, r.Comparison.Deltas, m)
	}
}

func TestAggregate_EmptyComparison(t *testing.T) {
	r := Aggregate(fixture(t), []analyzer.ClassifiedSession{})
	require.NotNil(t, r.Comparison)
	d := r.Comparison.Deltas["completion_rate"]
	assert.Equal(t, 100.0, d.DeltaPct)
	assert.Zero(t, d.Previous)
}

func TestReport_Stamp(t *testing.T) {
	r := Aggregate(nil, nil)
	assert.Empty(t, r.Metadata.ReportID)

	now := time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)
	r.Stamp(now)
	assert.Len(t, r.Metadata.ReportID, 36)
	assert.Equal(t, now, r.Metadata.GeneratedAt)
}

func TestReport_JSONFields(t *testing.T) {
	raw, err := json.Marshal(Aggregate(fixture(t), fixture(t)))
	require.NoError(t, err)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &doc))
	for _, key := range []string{
		"summary", "by_project", "by_task_type", "duration_distribution",
		"tool_calls_distribution", "files_touched_distribution",
		"efficiency_averages", "common_issues", "common_successes", "comparison",
	} {
		assert.Contains(t, doc, key)
	}

	var cmp map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(doc["comparison"], &cmp))
	assert.Contains(t, cmp, "previous_period")
	assert.Contains(t, cmp, "deltas")
}

// Package aggregate folds classified sessions into a Report: summary counts,
// distributions, per-project and per-task-type breakdowns, efficiency
// averages, and optional period-over-period deltas.
package aggregate

import (
	"time"

	"github.com/google/uuid"

	"github.com/blackwell-systems/sessionlens/internal/analyzer"
)

// Report is the aggregate view over a set of classified sessions. Its JSON
// form is the report-data document consumed by renderers and exports.
type Report struct {
	Metadata Metadata `json:"metadata"`
	Summary  Summary  `json:"summary"`
	Averages Averages `json:"averages"`

	ByProject     map[string]Breakdown                      `json:"by_project"`
	ByTaskType    map[analyzer.TaskType]Breakdown           `json:"by_task_type"`
	BySessionType map[analyzer.SessionType]SessionTypeStats `json:"by_session_type"`
	ByDate        map[string]DateStats                      `json:"by_date"`

	DurationHistogram        []Bucket      `json:"duration_histogram"`
	DurationDistribution     *Distribution `json:"duration_distribution"`
	ToolCallsDistribution    *Distribution `json:"tool_calls_distribution"`
	FilesTouchedDistribution *Distribution `json:"files_touched_distribution"`

	EfficiencyAverages   EfficiencyAverages `json:"efficiency_averages"`
	CompletionConfidence *ConfidenceStats   `json:"completion_confidence"`
	ActivityMetrics      ActivityMetrics    `json:"activity_metrics"`

	CommonIssues    []Count                `json:"common_issues"`
	CommonSuccesses []Count                `json:"common_successes"`
	ToolsUsage      []Count                `json:"tools_usage"`
	TopicsFrequency []Count                `json:"topics_frequency"`
	JiraTickets     map[string]TicketStats `json:"jira_tickets"`
	Features        FeatureUsage           `json:"claude_code_features"`

	Comparison *Comparison `json:"comparison,omitempty"`
}

// Metadata identifies a report. PeriodStart and PeriodEnd are the earliest
// and latest session dates; ReportID and GeneratedAt are set by Stamp.
type Metadata struct {
	ReportID    string    `json:"report_id,omitempty"`
	GeneratedAt time.Time `json:"generated_at,omitzero"`
	PeriodStart string    `json:"period_start,omitempty"`
	PeriodEnd   string    `json:"period_end,omitempty"`
}

// Stamp assigns the report a fresh ID and generation time. Aggregate leaves
// both empty.
func (r *Report) Stamp(now time.Time) {
	r.Metadata.ReportID = uuid.NewString()
	r.Metadata.GeneratedAt = now.UTC()
}

// Summary holds whole-period counters and headline rates.
type Summary struct {
	TotalSessions          int                      `json:"total_sessions"`
	TotalDurationMinutes   float64                  `json:"total_duration_minutes"`
	TotalUserMessages      int                      `json:"total_user_messages"`
	TotalAssistantMessages int                      `json:"total_assistant_messages"`
	TotalToolCalls         int                      `json:"total_tool_calls"`
	TotalFilesTouched      int                      `json:"total_files_touched"`
	SessionsCompleted      int                      `json:"sessions_completed"`
	SessionsLikelyComplete int                      `json:"sessions_likely_completed"`
	SessionsWithIssues     int                      `json:"sessions_with_issues"`
	CompletionRate         float64                  `json:"completion_rate"`
	IssueRate              float64                  `json:"issue_rate"`
	ByOutcome              map[analyzer.Outcome]int `json:"by_outcome"`
}

// Averages are per-session means over the whole period.
type Averages struct {
	DurationMinutes float64 `json:"avg_duration_minutes"`
	UserMessages    float64 `json:"avg_user_messages"`
	ToolCalls       float64 `json:"avg_tool_calls"`
	FilesTouched    float64 `json:"avg_files_touched"`
}

// Breakdown aggregates the sessions sharing one project or task type.
type Breakdown struct {
	Sessions       int     `json:"sessions"`
	Duration       float64 `json:"duration"`
	ToolCalls      int     `json:"tool_calls"`
	FilesTouched   int     `json:"files_touched"`
	Completed      int     `json:"completed"`
	WithIssues     int     `json:"with_issues"`
	CompletionRate float64 `json:"completion_rate"`
	IssueRate      float64 `json:"issue_rate"`
	AvgDuration    float64 `json:"avg_duration"`
}

// SessionTypeStats aggregates work or lookup sessions.
type SessionTypeStats struct {
	Count          int     `json:"count"`
	Pct            float64 `json:"pct"`
	TotalDuration  float64 `json:"total_duration"`
	TotalToolCalls int     `json:"total_tool_calls"`
	AvgDuration    float64 `json:"avg_duration"`
	AvgToolCalls   float64 `json:"avg_tool_calls"`
}

// DateStats aggregates the sessions started on one day.
type DateStats struct {
	Sessions  int     `json:"sessions"`
	Completed int     `json:"completed"`
	Duration  float64 `json:"duration"`
}

// TicketStats aggregates the sessions linked to one ticket.
type TicketStats struct {
	Sessions  int `json:"sessions"`
	Completed int `json:"completed"`
}

// Count is a named tally. Lists of counts are sorted by count descending,
// then by name.
type Count struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Average is the mean and median of a defined metric.
type Average struct {
	Avg    float64 `json:"avg"`
	Median float64 `json:"median"`
	Count  int     `json:"count"`
}

// EfficiencyAverages averages the per-session efficiency ratios over the
// sessions where each ratio is defined. A nil field means no session had it.
type EfficiencyAverages struct {
	ToolsPerFile      *Average `json:"tools_per_file,omitempty"`
	ToolsPerMessage   *Average `json:"tools_per_message,omitempty"`
	FilesPerHour      *Average `json:"files_per_hour,omitempty"`
	MessagesPerMinute *Average `json:"messages_per_minute,omitempty"`
}

// ConfidenceStats summarizes confidence scores across sessions.
type ConfidenceStats struct {
	AvgScore    float64 `json:"avg_score"`
	MedianScore float64 `json:"median_score"`
	MinScore    int     `json:"min_score"`
	MaxScore    int     `json:"max_score"`
	HighCount   int     `json:"high_confidence_count"`
	MediumCount int     `json:"medium_confidence_count"`
	LowCount    int     `json:"low_confidence_count"`
}

// ActivityMetrics count observable output rather than inferred outcomes.
type ActivityMetrics struct {
	SessionsWithEdits      int     `json:"sessions_with_edits"`
	SessionsWithEditsPct   float64 `json:"sessions_with_edits_pct"`
	SessionsWithCommits    int     `json:"sessions_with_commits"`
	SessionsWithCommitsPct float64 `json:"sessions_with_commits_pct"`
	SessionsWithTests      int     `json:"sessions_with_tests"`
	SessionsWithTestsPct   float64 `json:"sessions_with_tests_pct"`

	// ActivityRate is the share of sessions with edits or a successful commit.
	ActivityRate float64 `json:"activity_rate"`
}

// FeatureUsage tallies skills, agents, and slash commands.
type FeatureUsage struct {
	Skills        []Count       `json:"skills_usage"`
	Agents        []Count       `json:"agents_usage"`
	SlashCommands []Count       `json:"slash_commands_usage"`
	Totals        FeatureTotals `json:"totals"`
}

// FeatureTotals are the overall feature counters.
type FeatureTotals struct {
	SkillsInvoked              int `json:"total_skills_invoked"`
	AgentsSpawned              int `json:"total_agents_spawned"`
	SlashCommands              int `json:"total_slash_commands"`
	SessionsUsingSkills        int `json:"sessions_using_skills"`
	SessionsUsingAgents        int `json:"sessions_using_agents"`
	SessionsUsingSlashCommands int `json:"sessions_using_slash_commands"`
}

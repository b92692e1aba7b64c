// Package analyzer classifies sessions by task and activity type, detects
// success and failure signals, scores completion confidence, and derives a
// final outcome for each session.
package analyzer

import "github.com/blackwell-systems/sessionlens/internal/session"

// TaskType is the inferred category of work a session represents.
type TaskType string

const (
	TaskBugFix      TaskType = "bug_fix"
	TaskTesting     TaskType = "testing"
	TaskConfig      TaskType = "config"
	TaskReview      TaskType = "review"
	TaskExploration TaskType = "exploration"
	TaskDebug       TaskType = "debug"
	TaskRefactor    TaskType = "refactor"
	TaskFeature     TaskType = "feature"
	TaskUpdate      TaskType = "update"
	TaskLookup      TaskType = "lookup"
	TaskGeneral     TaskType = "general"
)

// TaskTypes lists every task type in classification priority order.
var TaskTypes = []TaskType{
	TaskBugFix, TaskTesting, TaskConfig, TaskReview, TaskExploration, TaskDebug,
	TaskRefactor, TaskFeature, TaskUpdate, TaskLookup, TaskGeneral,
}

// SessionType separates real work from quick lookups.
type SessionType string

const (
	SessionWork   SessionType = "work"
	SessionLookup SessionType = "lookup"
)

// Outcome is the final verdict on a session's result.
type Outcome string

const (
	OutcomeCompleted           Outcome = "completed"
	OutcomeCompletedWithIssues Outcome = "completed_with_issues"
	OutcomePartiallyCompleted  Outcome = "partially_completed"
	OutcomeExplorationComplete Outcome = "exploration_complete"
	OutcomeLookupComplete      Outcome = "lookup_complete"
	OutcomeAbandoned           Outcome = "abandoned"
	OutcomeBlocked             Outcome = "blocked"
	OutcomeUnclear             Outcome = "unclear"
)

// Outcomes lists every outcome in decision precedence order.
var Outcomes = []Outcome{
	OutcomeAbandoned, OutcomeLookupComplete, OutcomeExplorationComplete, OutcomeBlocked,
	OutcomeCompleted, OutcomeCompletedWithIssues, OutcomePartiallyCompleted, OutcomeUnclear,
}

// Successful reports whether the outcome counts toward the completion rate.
func (o Outcome) Successful() bool {
	switch o {
	case OutcomeCompleted, OutcomeCompletedWithIssues, OutcomeExplorationComplete, OutcomeLookupComplete:
		return true
	}
	return false
}

// Assessment buckets a confidence score.
type Assessment string

const (
	AssessmentHigh   Assessment = "high"   // >= 70
	AssessmentMedium Assessment = "medium" // 40-69
	AssessmentLow    Assessment = "low"    // < 40
)

// AssessScore maps a confidence score to its assessment bucket.
func AssessScore(score int) Assessment {
	switch {
	case score >= 70:
		return AssessmentHigh
	case score >= 40:
		return AssessmentMedium
	default:
		return AssessmentLow
	}
}

// ClassifiedSession is a Session plus every field derived by Classify.
// It is built once and never modified afterwards.
type ClassifiedSession struct {
	session.Session

	TaskType    TaskType    `json:"task_type"`
	SessionType SessionType `json:"session_type"`
	Completion  Completion  `json:"completion"`

	ConfidenceScore      int             `json:"confidence_score"`
	ConfidenceAssessment Assessment      `json:"confidence_assessment"`
	PositiveSignals      []ScoredSignal  `json:"positive_signals"`
	NegativeSignals      []ScoredSignal  `json:"negative_signals"`
	FailureSignals       []FailureSignal `json:"failure_signals"`

	Outcome         Outcome `json:"outcome"`
	LikelyCompleted bool    `json:"likely_completed"`

	Successes  []string   `json:"successes"`
	Issues     []string   `json:"issues"`
	KeyTopics  []string   `json:"key_topics"`
	JiraTicket string     `json:"jira_ticket,omitempty"`
	Efficiency Efficiency `json:"efficiency"`
}

// HasFailure reports whether the given failure signal was detected.
func (c ClassifiedSession) HasFailure(kind FailureKind) bool {
	return hasFailure(c.FailureSignals, kind)
}

// HasPositive reports whether the given positive signal contributed to the score.
func (c ClassifiedSession) HasPositive(sig Signal) bool {
	for _, s := range c.PositiveSignals {
		if s.Signal == sig {
			return true
		}
	}
	return false
}

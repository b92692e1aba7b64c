package analyzer

import "github.com/blackwell-systems/sessionlens/internal/session"

// Options tunes the outcome decision.
type Options struct {
	// ConfidenceThreshold is the score at or above which a session counts
	// as likely completed.
	ConfidenceThreshold int `mapstructure:"confidence_threshold"`

	// BlockedMinDuration and BlockedMinToolCalls define meaningful effort:
	// a failing session is only blocked when either is exceeded.
	BlockedMinDuration  float64 `mapstructure:"blocked_min_duration"`
	BlockedMinToolCalls int     `mapstructure:"blocked_min_tool_calls"`
}

// DefaultOptions returns the standard outcome thresholds.
func DefaultOptions() Options {
	return Options{
		ConfidenceThreshold: 60,
		BlockedMinDuration:  10,
		BlockedMinToolCalls: 20,
	}
}

// outcomeInput is everything an outcome rule may look at.
type outcomeInput struct {
	session     session.Session
	taskType    TaskType
	sessionType SessionType
	criterion   Criterion
	failures    []FailureSignal
	score       int
	opts        Options
}

func (in outcomeInput) failing() bool { return len(in.failures) > 0 }

func (in outcomeInput) meaningfulEffort() bool {
	return in.session.DurationMinutes > in.opts.BlockedMinDuration ||
		in.session.ToolCallCount > in.opts.BlockedMinToolCalls
}

// outcomeRule is one guard in the outcome decision table.
type outcomeRule struct {
	outcome Outcome
	when    func(outcomeInput) bool
}

// outcomeRules is evaluated top to bottom; the first matching guard decides
// the outcome. unclear is the implicit final rule.
var outcomeRules = []outcomeRule{
	{OutcomeAbandoned, func(in outcomeInput) bool {
		return hasFailure(in.failures, FailureQuickAbandonment) ||
			hasFailure(in.failures, FailureUserFrustration)
	}},
	{OutcomeLookupComplete, func(in outcomeInput) bool {
		return in.sessionType == SessionLookup &&
			in.session.DurationMinutes < lookupMaxDuration &&
			!in.session.HasEdits() &&
			!hasFailure(in.failures, FailureUserFrustration)
	}},
	{OutcomeExplorationComplete, func(in outcomeInput) bool {
		return in.taskType == TaskExploration && in.criterion.Met() && !in.failing()
	}},
	{OutcomeBlocked, func(in outcomeInput) bool {
		return in.failing() && in.meaningfulEffort() && !in.criterion.Met()
	}},
	{OutcomeCompleted, func(in outcomeInput) bool {
		return in.criterion.Met() && !in.failing() && in.score >= in.opts.ConfidenceThreshold
	}},
	{OutcomeCompletedWithIssues, func(in outcomeInput) bool {
		return in.criterion.Met() && in.failing()
	}},
	{OutcomePartiallyCompleted, func(in outcomeInput) bool {
		return in.criterion.Partial()
	}},
}

// decideOutcome walks outcomeRules and returns the first matching outcome.
func decideOutcome(in outcomeInput) Outcome {
	for _, r := range outcomeRules {
		if r.when(in) {
			return r.outcome
		}
	}
	return OutcomeUnclear
}

// likelyCompleted reports whether a session should be treated as done for
// reporting purposes even when its outcome is not completed.
func likelyCompleted(o Outcome, score int, opts Options) bool {
	return score >= opts.ConfidenceThreshold ||
		o == OutcomeLookupComplete || o == OutcomeExplorationComplete
}

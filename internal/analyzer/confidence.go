package analyzer

import "github.com/blackwell-systems/sessionlens/internal/session"

// Signal is one contribution to the confidence score. The set is closed;
// signalWeights holds a weight for every member.
type Signal string

const (
	SignalHasEdits         Signal = "has_edits"
	SignalSuccessfulCommit Signal = "successful_commit"
	SignalGitPush          Signal = "git_push"
	SignalTestsRan         Signal = "tests_ran"
	SignalFilesTouched     Signal = "files_touched"
	SignalMultipleFiles    Signal = "multiple_files"
	SignalSufficientWork   Signal = "sufficient_work_time"
	SignalUserEngagement   Signal = "user_engagement"
	SignalErrorsDetected   Signal = "errors_detected"
	SignalFailedCommit     Signal = "failed_commit"
	SignalHighRetryRatio   Signal = "high_retry_ratio"
	SignalUserFrustration  Signal = "user_frustration"
	SignalQuickAbandonment Signal = "quick_abandonment"
	SignalNoTangibleOutput Signal = "no_tangible_output"
)

// Signals lists every signal, positives first, in scoring order.
var Signals = []Signal{
	SignalHasEdits, SignalSuccessfulCommit, SignalGitPush, SignalTestsRan,
	SignalFilesTouched, SignalMultipleFiles, SignalSufficientWork, SignalUserEngagement,
	SignalErrorsDetected, SignalFailedCommit, SignalHighRetryRatio,
	SignalUserFrustration, SignalQuickAbandonment, SignalNoTangibleOutput,
}

// signalWeights maps each signal to its base points. errors_detected is
// per unit of severity.
var signalWeights = map[Signal]int{
	SignalHasEdits:         15,
	SignalSuccessfulCommit: 20,
	SignalGitPush:          10,
	SignalTestsRan:         15,
	SignalFilesTouched:     10,
	SignalMultipleFiles:    5,
	SignalSufficientWork:   5,
	SignalUserEngagement:   5,
	SignalErrorsDetected:   -5,
	SignalFailedCommit:     -15,
	SignalHighRetryRatio:   -15,
	SignalUserFrustration:  -20,
	SignalQuickAbandonment: -20,
	SignalNoTangibleOutput: -10,
}

// Weight returns the base points for a signal.
func (s Signal) Weight() int { return signalWeights[s] }

// ScoredSignal is a signal together with the points it contributed.
type ScoredSignal struct {
	Signal Signal `json:"signal"`
	Points int    `json:"points"`
}

// Scoring limits and work-time floors.
const (
	minScore         = 0
	maxScore         = 100
	maxErrorPenalty  = 20
	defaultWorkFloor = 5.0
	explorationFloor = 3.0
	substantialFloor = 10.0
)

// workTimeFloor returns the duration a session must exceed to earn the
// sufficient_work_time signal.
func workTimeFloor(tt TaskType) float64 {
	switch tt {
	case TaskExploration:
		return explorationFloor
	case TaskBugFix, TaskFeature, TaskRefactor:
		return substantialFloor
	default:
		return defaultWorkFloor
	}
}

// Confidence is the result of ScoreConfidence.
type Confidence struct {
	Score      int            `json:"score"`
	Assessment Assessment     `json:"assessment"`
	Positive   []ScoredSignal `json:"positive_signals"`
	Negative   []ScoredSignal `json:"negative_signals"`
}

// ScoreConfidence accumulates positive and negative signals into a score
// clamped to [0, 100].
func ScoreConfidence(tt TaskType, s session.Session, failures []FailureSignal) Confidence {
	c := Confidence{Positive: []ScoredSignal{}, Negative: []ScoredSignal{}}

	positive := []struct {
		signal Signal
		ok     bool
	}{
		{SignalHasEdits, s.HasEdits()},
		{SignalSuccessfulCommit, s.Git.SuccessfulCommit()},
		{SignalGitPush, s.Git.HasPush},
		{SignalTestsRan, s.HasTestRun()},
		{SignalFilesTouched, s.FilesTouchedCount() > 0},
		{SignalMultipleFiles, s.FilesTouchedCount() > 1},
		{SignalSufficientWork, s.DurationMinutes > workTimeFloor(tt)},
		{SignalUserEngagement, s.UserMessageCount > 1},
	}
	for _, p := range positive {
		if p.ok {
			c.Positive = append(c.Positive, ScoredSignal{p.signal, p.signal.Weight()})
		}
	}

	if sev := failureSeverity(failures, FailureErrorInCommands); sev > 0 {
		pts := max(SignalErrorsDetected.Weight()*sev, -maxErrorPenalty)
		c.Negative = append(c.Negative, ScoredSignal{SignalErrorsDetected, pts})
	}
	negative := []struct {
		signal Signal
		kind   FailureKind
	}{
		{SignalFailedCommit, FailureFailedGitCommit},
		{SignalHighRetryRatio, FailureHighRetryRatio},
		{SignalUserFrustration, FailureUserFrustration},
		{SignalQuickAbandonment, FailureQuickAbandonment},
		{SignalNoTangibleOutput, FailureNoTangibleOutput},
	}
	for _, n := range negative {
		if hasFailure(failures, n.kind) {
			c.Negative = append(c.Negative, ScoredSignal{n.signal, n.signal.Weight()})
		}
	}

	total := 0
	for _, p := range c.Positive {
		total += p.Points
	}
	for _, n := range c.Negative {
		total += n.Points
	}
	c.Score = min(max(total, minScore), maxScore)
	c.Assessment = AssessScore(c.Score)
	return c
}

package analyzer

import (
	"regexp"
	"strings"

	"github.com/blackwell-systems/sessionlens/internal/session"
)

// FailureKind names a failure signal.
type FailureKind string

const (
	FailureErrorInCommands  FailureKind = "error_in_commands"
	FailureHighRetryRatio   FailureKind = "high_retry_ratio"
	FailureQuickAbandonment FailureKind = "quick_abandonment"
	FailureReadWithoutEdit  FailureKind = "read_without_edit"
	FailureFailedGitCommit  FailureKind = "failed_git_commit"
	FailureUserFrustration  FailureKind = "user_frustration"
	FailureNoTangibleOutput FailureKind = "no_tangible_output"
)

// FailureKinds lists every failure signal in detection order.
var FailureKinds = []FailureKind{
	FailureErrorInCommands, FailureHighRetryRatio, FailureQuickAbandonment,
	FailureReadWithoutEdit, FailureFailedGitCommit, FailureUserFrustration,
	FailureNoTangibleOutput,
}

// FailureSignal is one detected failure signal. Severity ranges 1-3.
type FailureSignal struct {
	Kind     FailureKind `json:"type"`
	Severity int         `json:"severity"`
	Evidence []string    `json:"evidence,omitempty"`
}

// Failure detection thresholds.
const (
	retryRatioThreshold      = 15.0
	quickAbandonMaxDuration  = 2.0
	quickAbandonMinToolCalls = 5
	readWithoutEditMinTools  = 10
	noOutputMinDuration      = 5.0
	noOutputMinToolCalls     = 10
	maxErrorSeverity         = 3
	maxEvidence              = 3
	evidenceMaxLen           = 100
)

var errorPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\berror\b`),
	regexp.MustCompile(`\bfailed\b`),
	regexp.MustCompile(`\bfailure\b`),
	regexp.MustCompile(`\bexception\b`),
	regexp.MustCompile(`\bcrash\b`),
	regexp.MustCompile(`\btimeout\b`),
	regexp.MustCompile(`\bdenied\b`),
	regexp.MustCompile(`\bforbidden\b`),
	regexp.MustCompile(`\bnot found\b`),
	regexp.MustCompile(`\bcannot\b`),
	regexp.MustCompile(`\bunable to\b`),
}

// commandHasError reports whether a command matches any error pattern.
func commandHasError(cmd string) bool {
	lower := strings.ToLower(cmd)
	for _, re := range errorPatterns {
		if re.MatchString(lower) {
			return true
		}
	}
	return false
}

// DetectFailureSignals evaluates every failure detector independently and
// returns the signals that fired, in FailureKinds order.
func DetectFailureSignals(s session.Session) []FailureSignal {
	signals := []FailureSignal{}

	var errCommands []string
	for _, cmd := range s.CommandsRun {
		if commandHasError(cmd) {
			errCommands = append(errCommands, truncate(cmd, evidenceMaxLen))
		}
	}
	if len(errCommands) > 0 {
		signals = append(signals, FailureSignal{
			Kind:     FailureErrorInCommands,
			Severity: min(maxErrorSeverity, len(errCommands)),
			Evidence: firstN(errCommands, maxEvidence),
		})
	}

	if s.UserMessageCount > 0 && s.ToolCallCount > 0 &&
		float64(s.ToolCallCount)/float64(s.UserMessageCount) > retryRatioThreshold {
		signals = append(signals, FailureSignal{Kind: FailureHighRetryRatio, Severity: 2})
	}

	if s.DurationMinutes < quickAbandonMaxDuration && s.ToolCallCount > quickAbandonMinToolCalls {
		signals = append(signals, FailureSignal{Kind: FailureQuickAbandonment, Severity: 2})
	}

	if s.HasReads() && !s.HasEdits() && s.ToolCallCount > readWithoutEditMinTools {
		signals = append(signals, FailureSignal{Kind: FailureReadWithoutEdit, Severity: 1})
	}

	if s.Git.HasFailedCommit {
		signals = append(signals, FailureSignal{
			Kind:     FailureFailedGitCommit,
			Severity: 2,
			Evidence: firstN(s.Git.Commands, maxEvidence),
		})
	}

	if s.FrustrationMarkers {
		signals = append(signals, FailureSignal{Kind: FailureUserFrustration, Severity: 2})
	}

	if s.DurationMinutes > noOutputMinDuration && !s.HasEdits() && !s.Git.HasCommit &&
		s.ToolCallCount > noOutputMinToolCalls {
		signals = append(signals, FailureSignal{Kind: FailureNoTangibleOutput, Severity: 1})
	}

	return signals
}

func hasFailure(signals []FailureSignal, kind FailureKind) bool {
	for _, s := range signals {
		if s.Kind == kind {
			return true
		}
	}
	return false
}

func failureSeverity(signals []FailureSignal, kind FailureKind) int {
	total := 0
	for _, s := range signals {
		if s.Kind == kind {
			total += s.Severity
		}
	}
	return total
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func firstN(vals []string, n int) []string {
	if len(vals) <= n {
		return append([]string(nil), vals...)
	}
	return append([]string(nil), vals[:n]...)
}

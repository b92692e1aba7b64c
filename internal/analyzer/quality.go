package analyzer

import (
	"math"
	"regexp"
	"strings"

	"github.com/blackwell-systems/sessionlens/internal/session"
)

// Success and issue kinds.
const (
	SuccessCodeChanges   = "code_changes"
	SuccessBuildCommands = "build_commands"
	SuccessGitOperations = "git_operations"

	IssueCommandError      = "command_error"
	IssueHighToolUsage     = "high_tool_usage"
	IssueRapidInteractions = "rapid_interactions"
)

const (
	highToolUsageRatio  = 10.0
	rapidMaxDuration    = 5.0
	rapidMinTurns       = 20
	maxKeyTopics        = 10
	efficiencyPrecision = 100
)

var buildCommandMarkers = []string{"build", "test", "npm", "yarn", "gradle"}

// DetectSuccesses returns the success kinds present in a session.
func DetectSuccesses(s session.Session) []string {
	out := []string{}
	if (s.HasTool("Edit") || s.HasTool("Write")) && s.FilesTouchedCount() > 0 {
		out = append(out, SuccessCodeChanges)
	}
	build, git := false, false
	for _, cmd := range s.CommandsRun {
		lower := strings.ToLower(cmd)
		for _, m := range buildCommandMarkers {
			if strings.Contains(lower, m) {
				build = true
				break
			}
		}
		if strings.Contains(lower, "git") {
			git = true
		}
	}
	if build {
		out = append(out, SuccessBuildCommands)
	}
	if git {
		out = append(out, SuccessGitOperations)
	}
	return out
}

// DetectIssues returns the issue kinds present in a session. Each kind is
// reported at most once.
func DetectIssues(s session.Session) []string {
	out := []string{}
	for _, cmd := range s.CommandsRun {
		lower := strings.ToLower(cmd)
		if strings.Contains(lower, "error") || strings.Contains(lower, "fail") {
			out = append(out, IssueCommandError)
			break
		}
	}
	if s.UserMessageCount > 0 &&
		float64(s.ToolCallCount)/float64(s.UserMessageCount) > highToolUsageRatio {
		out = append(out, IssueHighToolUsage)
	}
	if s.DurationMinutes < rapidMaxDuration && s.TotalTurns() > rapidMinTurns {
		out = append(out, IssueRapidInteractions)
	}
	return out
}

var topicTerms = compileTerms([]string{
	"api", "database", "auth", "login", "test", "build", "deploy",
	"component", "hook", "state", "redux", "react", "typescript",
	"error", "bug", "fix", "feature", "refactor", "performance",
	"terraform", "kubernetes", "docker", "ci", "cd", "pipeline",
})

type term struct {
	word string
	re   *regexp.Regexp
}

func compileTerms(words []string) []term {
	terms := make([]term, 0, len(words))
	for _, w := range words {
		expr := `\b` + regexp.QuoteMeta(w)
		if wholeWordKeywords[w] {
			expr += `s?\b`
		}
		terms = append(terms, term{w, regexp.MustCompile(expr)})
	}
	return terms
}

// ExtractKeyTopics returns up to ten technical terms found in text, in term
// list order.
func ExtractKeyTopics(text string) []string {
	out := []string{}
	lower := strings.ToLower(text)
	for _, t := range topicTerms {
		if len(out) == maxKeyTopics {
			break
		}
		if t.re.MatchString(lower) {
			out = append(out, t.word)
		}
	}
	return out
}

var jiraPattern = regexp.MustCompile(`(?i)[A-Z]+-\d+`)

// ExtractJiraTicket pulls a ticket key such as ABC-123 out of a branch name.
func ExtractJiraTicket(branch string) string {
	return strings.ToUpper(jiraPattern.FindString(branch))
}

// Efficiency holds per-session ratios. A nil field means its denominator was
// zero and the ratio is undefined.
type Efficiency struct {
	ToolsPerFile      *float64 `json:"tools_per_file,omitempty"`
	ToolsPerMessage   *float64 `json:"tools_per_message,omitempty"`
	FilesPerHour      *float64 `json:"files_per_hour,omitempty"`
	MessagesPerMinute *float64 `json:"messages_per_minute,omitempty"`
}

// ratio returns num/den rounded to two decimals, or nil when den is zero.
func ratio(num, den float64) *float64 {
	if den <= 0 {
		return nil
	}
	v := math.Round(num/den*efficiencyPrecision) / efficiencyPrecision
	return &v
}

// ComputeEfficiency derives the per-session efficiency ratios.
func ComputeEfficiency(s session.Session) Efficiency {
	tools := float64(s.ToolCallCount)
	files := float64(s.FilesTouchedCount())
	msgs := float64(s.UserMessageCount)
	return Efficiency{
		ToolsPerFile:      ratio(tools, files),
		ToolsPerMessage:   ratio(tools, msgs),
		FilesPerHour:      ratio(files, s.DurationMinutes/60),
		MessagesPerMinute: ratio(msgs, s.DurationMinutes),
	}
}

package analyzer

import (
	"regexp"
	"strings"

	"github.com/blackwell-systems/sessionlens/internal/session"
)

// taskRule pairs a task type with the keywords that select it.
type taskRule struct {
	taskType TaskType
	keywords []string
	patterns []*regexp.Regexp
}

// taskRules is evaluated in order; the first rule with any matching keyword
// wins. The order is part of the classifier's contract.
var taskRules = compileTaskRules([]taskRule{
	{taskType: TaskBugFix, keywords: []string{
		"bug", "fix", "error", "issue", "broken", "doesn't work", "not working",
		"failing", "crash", "exception", "resolve", "patch",
	}},
	{taskType: TaskTesting, keywords: []string{
		"test", "spec", "e2e", "unit test", "integration test", "coverage",
		"assertion", "mock", "stub", "jest", "pytest", "testing",
	}},
	{taskType: TaskConfig, keywords: []string{
		"config", "setup", "install", "terraform", "infra", "infrastructure",
		"deploy", "ci", "cd", "pipeline", "docker", "kubernetes", "k8s",
		"environment", "env", "yaml", "json config",
	}},
	{taskType: TaskReview, keywords: []string{
		"review", "pr", "pull request", "code review", "feedback",
		"approve", "merge", "diff", "changes",
	}},
	{taskType: TaskExploration, keywords: []string{
		"explain", "what is", "how does", "document", "learn",
		"describe", "tell me about", "help me understand",
	}},
	{taskType: TaskDebug, keywords: []string{
		"debug", "investigate", "why", "understand", "trace", "log",
		"what's happening", "look into", "figure out", "diagnose",
	}},
	{taskType: TaskRefactor, keywords: []string{
		"refactor", "clean", "improve", "optimize", "restructure",
		"reorganize", "simplify", "rename", "extract", "consolidate",
	}},
	{taskType: TaskFeature, keywords: []string{
		"add", "create", "implement", "new feature", "build", "introduce",
		"develop", "make", "generate", "design",
	}},
	{taskType: TaskUpdate, keywords: []string{
		"update", "change", "modify", "edit", "adjust", "tweak",
		"alter", "revise", "enhance", "upgrade", "migrate",
	}},
	{taskType: TaskLookup, keywords: []string{
		"find", "search", "locate", "where", "show me", "list",
		"get", "fetch", "check", "verify", "validate", "confirm",
	}},
})

// wholeWordKeywords are abbreviations that would fire inside unrelated words
// ("ci" in "decision", "pr" in "print") if matched as prefixes. They match as
// whole words, optionally pluralized. Every other keyword matches at the start
// of a word, so "fix" also matches "fixing" and "bug" matches "bugs".
var wholeWordKeywords = map[string]bool{"ci": true, "cd": true, "pr": true}

func compileTaskRules(rules []taskRule) []taskRule {
	for i := range rules {
		for _, kw := range rules[i].keywords {
			expr := `\b` + regexp.QuoteMeta(kw)
			if wholeWordKeywords[kw] {
				expr += `s?\b`
			}
			rules[i].patterns = append(rules[i].patterns, regexp.MustCompile(expr))
		}
	}
	return rules
}

// Fallback thresholds for sessions whose text matched no keyword.
const (
	lookupMaxDuration  = 5.0
	lookupMaxToolCalls = 10
)

// MatchTaskKeywords returns the first task type whose keywords appear in
// text. ok is false when no rule matched.
func MatchTaskKeywords(text string) (taskType TaskType, ok bool) {
	lower := strings.ToLower(text)
	if strings.TrimSpace(lower) == "" {
		return "", false
	}
	for _, rule := range taskRules {
		for _, re := range rule.patterns {
			if re.MatchString(lower) {
				return rule.taskType, true
			}
		}
	}
	return "", false
}

// ClassifyTaskType assigns a task type from the session's originating text.
// Sessions with no keyword match fall back to lookup when they were short,
// edit-free, and light on tool calls, and to general otherwise.
func ClassifyTaskType(s session.Session) TaskType {
	if tt, ok := MatchTaskKeywords(s.OriginatingText); ok {
		return tt
	}
	if s.DurationMinutes < lookupMaxDuration && !s.HasEdits() && s.ToolCallCount < lookupMaxToolCalls {
		return TaskLookup
	}
	return TaskGeneral
}

// ClassifySessionType returns lookup for short sessions with few tool calls
// and no files touched, and work for everything else.
func ClassifySessionType(s session.Session) SessionType {
	if s.DurationMinutes < lookupMaxDuration && s.ToolCallCount < lookupMaxToolCalls && len(s.FilesTouched) == 0 {
		return SessionLookup
	}
	return SessionWork
}

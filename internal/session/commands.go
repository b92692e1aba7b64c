package session

import (
	"regexp"
	"strings"
)

var (
	gitCommitRe = regexp.MustCompile(`\bgit\s+commit\b`)
	gitPushRe   = regexp.MustCompile(`\bgit\s+push\b`)
	gitAddRe    = regexp.MustCompile(`\bgit\s+add\b`)

	// gitReadOnlyRe matches git subcommands that never change repository state.
	gitReadOnlyRe = regexp.MustCompile(`\bgit\s+(status|log|diff|branch|show|remote|fetch|ls-files|rev-parse)\b`)

	testCommandRes = []*regexp.Regexp{
		regexp.MustCompile(`\btest\b`),
		regexp.MustCompile(`\bpytest\b`),
		regexp.MustCompile(`\bjest\b`),
		regexp.MustCompile(`\bnpm\s+test\b`),
		regexp.MustCompile(`\byarn\s+test\b`),
		regexp.MustCompile(`\bgradle.*test\b`),
	}

	frustrationRes = []*regexp.Regexp{
		regexp.MustCompile(`\bnever\s*mind\b`),
		regexp.MustCompile(`\bforget\s*it\b`),
		regexp.MustCompile(`\bgive\s*up\b`),
		regexp.MustCompile(`\bdoesn'?t\s*work\b`),
		regexp.MustCompile(`\bnot\s*working\b`),
		regexp.MustCompile(`\bstop\b`),
		regexp.MustCompile(`\bcancel\b`),
		regexp.MustCompile(`\babort\b`),
		regexp.MustCompile(`\bwrong\b`),
		regexp.MustCompile(`\bbroken\b`),
		regexp.MustCompile(`\bundo\b`),
		regexp.MustCompile(`\brevert\b`),
		regexp.MustCompile(`\btry\s*again\b`),
		regexp.MustCompile(`\bstill\s*broken\b`),
	}
)

// ClassifyGitOperations derives a GitSummary from shell commands. A commit
// whose command text mentions an error, failure, or abort counts as failed.
func ClassifyGitOperations(commands []string) GitSummary {
	var g GitSummary
	readOnly := true

	for _, cmd := range commands {
		lower := strings.ToLower(cmd)
		if !strings.Contains(lower, "git") {
			continue
		}
		g.Commands = append(g.Commands, cmd)

		if gitCommitRe.MatchString(lower) {
			g.HasCommit = true
			g.CommitCount++
			if strings.Contains(lower, "error") || strings.Contains(lower, "fail") || strings.Contains(lower, "abort") {
				g.HasFailedCommit = true
			}
		}
		if gitPushRe.MatchString(lower) {
			g.HasPush = true
		}
		if gitAddRe.MatchString(lower) {
			g.HasAdd = true
		}
		if !gitReadOnlyRe.MatchString(lower) {
			readOnly = false
		}
	}

	// With no git commands at all there was nothing read-only about the session.
	g.ReadOnly = readOnly && len(g.Commands) > 0
	return g
}

// IsTestCommand reports whether a shell command looks like a test run.
func IsTestCommand(cmd string) bool {
	lower := strings.ToLower(cmd)
	for _, re := range testCommandRes {
		if re.MatchString(lower) {
			return true
		}
	}
	return false
}

// DetectFrustration reports whether any of the texts contains a known
// frustration phrase such as "never mind" or "still broken".
func DetectFrustration(texts []string) bool {
	for _, text := range texts {
		lower := strings.ToLower(text)
		for _, re := range frustrationRes {
			if re.MatchString(lower) {
				return true
			}
		}
	}
	return false
}

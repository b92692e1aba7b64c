package analyzer

import (
	"context"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/blackwell-systems/sessionlens/internal/session"
)

// Classify runs a session through the classifiers and the outcome analyzer
// using DefaultOptions. s is expected to come from session.Normalize; use
// ClassifyChecked for sessions built some other way.
func Classify(s session.Session) ClassifiedSession {
	return ClassifyWith(s, DefaultOptions())
}

// ClassifyWith is Classify with explicit thresholds. It reads s and never
// modifies it; the result shares no slices with s.
func ClassifyWith(s session.Session, opts Options) ClassifiedSession {
	tt := ClassifyTaskType(s)
	st := ClassifySessionType(s)
	criterion := CompletionCriterion(tt, s)
	failures := DetectFailureSignals(s)
	conf := ScoreConfidence(tt, s, failures)

	outcome := decideOutcome(outcomeInput{
		session:     s,
		taskType:    tt,
		sessionType: st,
		criterion:   criterion,
		failures:    failures,
		score:       conf.Score,
		opts:        opts,
	})

	return ClassifiedSession{
		Session:              cloneSession(s),
		TaskType:             tt,
		SessionType:          st,
		Completion:           EvaluateCompletion(criterion),
		ConfidenceScore:      conf.Score,
		ConfidenceAssessment: conf.Assessment,
		PositiveSignals:      conf.Positive,
		NegativeSignals:      conf.Negative,
		FailureSignals:       failures,
		Outcome:              outcome,
		LikelyCompleted:      likelyCompleted(outcome, conf.Score, opts),
		Successes:            DetectSuccesses(s),
		Issues:               DetectIssues(s),
		KeyTopics:            ExtractKeyTopics(s.OriginatingText),
		JiraTicket:           ExtractJiraTicket(s.GitBranch),
		Efficiency:           ComputeEfficiency(s),
	}
}

// ClassifyAll normalizes and classifies raw records on up to workers
// goroutines. Results keep input order. The first validation error stops the
// batch and is returned wrapped with the record's index.
func ClassifyAll(ctx context.Context, raws []session.Raw, opts Options, workers int) ([]ClassifiedSession, error) {
	out := make([]ClassifiedSession, len(raws))
	if workers < 1 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, raw := range raws {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			s, err := session.Normalize(raw)
			if err != nil {
				return fmt.Errorf("record %d: %w", i, err)
			}
			out[i] = ClassifyWith(s, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// ClassifyChecked validates s before classifying it, returning a
// *session.ValidationError for negative or non-finite numbers.
func ClassifyChecked(s session.Session, opts Options) (ClassifiedSession, error) {
	if err := s.Validate(); err != nil {
		return ClassifiedSession{}, err
	}
	return ClassifyWith(s, opts), nil
}

func cloneSession(s session.Session) session.Session {
	c := s
	c.ToolsUsed = slices.Clone(s.ToolsUsed)
	c.FilesTouched = slices.Clone(s.FilesTouched)
	c.CommandsRun = slices.Clone(s.CommandsRun)
	c.Git.Commands = slices.Clone(s.Git.Commands)
	c.Features.SkillsInvoked = slices.Clone(s.Features.SkillsInvoked)
	c.Features.AgentsSpawned = slices.Clone(s.Features.AgentsSpawned)
	c.Features.SlashCommands = slices.Clone(s.Features.SlashCommands)
	return c
}

// Package pipeline wires extraction, classification, and aggregation into
// the runs shared by the CLI commands and the MCP server.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/blackwell-systems/sessionlens/internal/aggregate"
	"github.com/blackwell-systems/sessionlens/internal/analyzer"
	"github.com/blackwell-systems/sessionlens/internal/claude"
	"github.com/blackwell-systems/sessionlens/internal/config"
	"github.com/blackwell-systems/sessionlens/internal/session"
)

// Window selects the sessions of a run.
type Window struct {
	// Days limits the run to transcripts modified in the last Days days.
	// Zero means all history.
	Days    int
	Project string
	// ComparePrevious also loads the Days days before the window as the
	// previous period. It has no effect when Days is zero.
	ComparePrevious bool
	Now             time.Time
}

// Result is the classified output of a run.
type Result struct {
	Current []analyzer.ClassifiedSession
	// Previous is nil unless the window asked for a comparison.
	Previous []analyzer.ClassifiedSession
	Stats    claude.ExtractStats
}

// Run extracts and classifies the sessions in w. With ComparePrevious the
// extraction covers twice the window and sessions are split into periods by
// start time; sessions without a start time stay in the current period.
func Run(ctx context.Context, cfg *config.Config, w Window, logger *slog.Logger) (Result, error) {
	if w.Now.IsZero() {
		w.Now = time.Now()
	}
	compare := w.ComparePrevious && w.Days > 0

	opts := claude.ExtractOptions{
		ClaudeHome:          cfg.ClaudeHome,
		Project:             w.Project,
		IdleDurationMinutes: cfg.Idle.DurationMinutes,
		IdleToolCalls:       cfg.Idle.ToolCalls,
		Workers:             cfg.Workers,
		Logger:              logger,
	}
	var cutoff time.Time
	if w.Days > 0 {
		cutoff = w.Now.AddDate(0, 0, -w.Days)
		opts.Since = cutoff
		if compare {
			opts.Since = w.Now.AddDate(0, 0, -2*w.Days)
		}
	}

	ext, err := claude.ExtractSessions(ctx, opts)
	if err != nil {
		return Result{}, fmt.Errorf("extracting sessions: %w", err)
	}

	classified, err := analyzer.ClassifyAll(ctx, ext.Sessions, cfg.Analyzer, cfg.Workers)
	if err != nil {
		return Result{}, fmt.Errorf("classifying sessions: %w", err)
	}

	res := Result{Current: classified, Stats: ext.Stats}
	if compare {
		res.Current, res.Previous = splitPeriods(classified, cutoff)
	}
	return res, nil
}

// splitPeriods partitions sessions into those started at or after cutoff
// and those started before it. Both results are non-nil.
func splitPeriods(sessions []analyzer.ClassifiedSession, cutoff time.Time) (current, previous []analyzer.ClassifiedSession) {
	current = []analyzer.ClassifiedSession{}
	previous = []analyzer.ClassifiedSession{}
	for _, c := range sessions {
		if !c.StartTime.IsZero() && c.StartTime.Before(cutoff) {
			previous = append(previous, c)
			continue
		}
		current = append(current, c)
	}
	return current, previous
}

// Report aggregates a run into a stamped report.
func (r Result) Report(now time.Time) aggregate.Report {
	rep := aggregate.Aggregate(r.Current, r.Previous)
	rep.Stamp(now)
	return rep
}

// ClassifyRaw normalizes and classifies caller-supplied records, such as
// those read from a JSON file.
func ClassifyRaw(ctx context.Context, raws []session.Raw, cfg *config.Config) ([]analyzer.ClassifiedSession, error) {
	return analyzer.ClassifyAll(ctx, raws, cfg.Analyzer, cfg.Workers)
}

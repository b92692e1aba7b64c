package claude

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/blackwell-systems/sessionlens/internal/session"
)

// ExtractOptions controls which transcripts are read and which sessions are
// kept.
type ExtractOptions struct {
	ClaudeHome string
	// Since drops transcripts last modified before it. Zero keeps all.
	Since time.Time
	// Project keeps only sessions whose project path contains it,
	// case-insensitively.
	Project string

	// Sessions longer than IdleDurationMinutes with fewer than IdleToolCalls
	// tool calls were left open rather than worked in.
	IdleDurationMinutes float64
	IdleToolCalls       int

	Workers int
	Logger  *slog.Logger
}

// ExtractStats counts what happened to each transcript found.
type ExtractStats struct {
	Found     int `json:"found"`
	Extracted int `json:"extracted"`
	Empty     int `json:"filtered_empty"`
	Idle      int `json:"filtered_idle"`
	Skipped   int `json:"skipped"`
}

// Filtered returns the number of sessions dropped by the empty and idle
// filters.
func (s ExtractStats) Filtered() int { return s.Empty + s.Idle }

// Extraction is the result of ExtractSessions.
type Extraction struct {
	Sessions []session.Raw
	Stats    ExtractStats
}

// ExtractSessions reads every matching transcript under ClaudeHome in
// parallel and returns the raw session records, most recent first. Empty
// sessions (no duration and no tool calls) and idle sessions are dropped and
// counted. A transcript that cannot be read is logged and skipped.
func ExtractSessions(ctx context.Context, opts ExtractOptions) (Extraction, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	files, err := ListTranscripts(opts.ClaudeHome)
	if err != nil {
		return Extraction{}, err
	}

	var candidates []TranscriptFile
	for _, f := range files {
		if !opts.Since.IsZero() && f.ModTime.Before(opts.Since) {
			continue
		}
		candidates = append(candidates, f)
	}

	results := make([]*session.Raw, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	if opts.Workers > 0 {
		g.SetLimit(opts.Workers)
	}
	for i, f := range candidates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			raw, err := ParseTranscript(f)
			if err != nil {
				logger.Debug("skipping transcript", "path", f.Path, "err", err)
				return nil
			}
			results[i] = &raw
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Extraction{}, err
	}

	out := Extraction{Stats: ExtractStats{Found: len(candidates)}}
	project := strings.ToLower(opts.Project)
	for _, raw := range results {
		if raw == nil {
			out.Stats.Skipped++
			continue
		}
		if project != "" && !strings.Contains(strings.ToLower(raw.Project), project) {
			continue
		}
		duration, toolCalls := *raw.DurationMinutes, *raw.ToolCallCount
		switch {
		case duration <= 0 && toolCalls == 0:
			out.Stats.Empty++
			continue
		case opts.IdleDurationMinutes > 0 && duration > opts.IdleDurationMinutes && toolCalls < opts.IdleToolCalls:
			out.Stats.Idle++
			continue
		}
		out.Sessions = append(out.Sessions, *raw)
	}
	out.Stats.Extracted = len(out.Sessions)

	sort.SliceStable(out.Sessions, func(i, j int) bool {
		a, b := out.Sessions[i], out.Sessions[j]
		if a.StartTime != b.StartTime {
			return a.StartTime > b.StartTime
		}
		return a.SessionID < b.SessionID
	})

	logger.Debug("extracted sessions",
		"found", out.Stats.Found,
		"kept", out.Stats.Extracted,
		"empty", out.Stats.Empty,
		"idle", out.Stats.Idle,
		"skipped", out.Stats.Skipped)
	return out, nil
}

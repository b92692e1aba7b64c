package watcher

import (
	"fmt"

	"github.com/blackwell-systems/sessionlens/internal/analyzer"
)

const (
	streakWindow      = 5
	streakFailureRate = 0.80
	completionDropPts = 20.0
	minRateSessions   = 5
)

// Compare detects notable changes between two watch states and returns
// alerts, most severe first.
func Compare(prev, curr *WatchState) []Alert {
	fresh := newSessions(prev, curr)

	var alerts []Alert
	alerts = append(alerts, compareCritical(prev, curr, fresh)...)
	alerts = append(alerts, compareWarning(prev, curr, fresh)...)
	alerts = append(alerts, compareInfo(prev, curr, fresh)...)
	return alerts
}

func compareCritical(prev, curr *WatchState, fresh []analyzer.ClassifiedSession) []Alert {
	var alerts []Alert

	for _, c := range fresh {
		if c.Outcome == analyzer.OutcomeBlocked {
			alerts = append(alerts, Alert{
				Level:   LevelCritical,
				Title:   fmt.Sprintf("Session blocked: %s", c.ProjectName()),
				Message: fmt.Sprintf("%s %s session failed after %.0f min and %d tool calls", shortID(c.SessionID), c.TaskType, c.DurationMinutes, c.ToolCallCount),
				Time:    curr.Timestamp,
			})
		}
	}

	// Most of the last few sessions ended without success. Only reported
	// when a new session arrived, so the streak is not re-announced.
	if len(fresh) > 0 && len(curr.sessions) >= streakWindow {
		failed := 0
		for _, c := range curr.sessions[:streakWindow] {
			if !c.Outcome.Successful() && c.SessionType == analyzer.SessionWork {
				failed++
			}
		}
		rate := float64(failed) / streakWindow
		if rate >= streakFailureRate {
			alerts = append(alerts, Alert{
				Level:   LevelCritical,
				Title:   "Unsuccessful streak",
				Message: fmt.Sprintf("%d of the last %d sessions did not complete", failed, streakWindow),
				Time:    curr.Timestamp,
			})
		}
	}

	return alerts
}

func compareWarning(prev, curr *WatchState, fresh []analyzer.ClassifiedSession) []Alert {
	var alerts []Alert

	for _, c := range fresh {
		if c.Outcome == analyzer.OutcomeAbandoned {
			alerts = append(alerts, Alert{
				Level:   LevelWarning,
				Title:   fmt.Sprintf("Session abandoned: %s", c.ProjectName()),
				Message: fmt.Sprintf("%s %s session abandoned after %.0f min", shortID(c.SessionID), c.TaskType, c.DurationMinutes),
				Time:    curr.Timestamp,
			})
		}
	}

	if prev.SessionCount >= minRateSessions && curr.SessionCount >= minRateSessions &&
		prev.CompletionRate-curr.CompletionRate >= completionDropPts {
		alerts = append(alerts, Alert{
			Level:   LevelWarning,
			Title:   "Completion rate dropped",
			Message: fmt.Sprintf("Completion rate is %.0f%% (was %.0f%%)", curr.CompletionRate, prev.CompletionRate),
			Time:    curr.Timestamp,
		})
	}

	return alerts
}

func compareInfo(prev, curr *WatchState, fresh []analyzer.ClassifiedSession) []Alert {
	var alerts []Alert

	for _, c := range fresh {
		if c.Outcome.Successful() {
			alerts = append(alerts, Alert{
				Level:   LevelInfo,
				Title:   fmt.Sprintf("Session completed: %s", c.ProjectName()),
				Message: fmt.Sprintf("%s %s, %.0f min, %d tool calls, confidence %d", shortID(c.SessionID), c.TaskType, c.DurationMinutes, c.ToolCallCount, c.ConfidenceScore),
				Time:    curr.Timestamp,
			})
		}
	}

	prevProjects := make(map[string]bool)
	for _, c := range prev.sessions {
		prevProjects[c.Project] = true
	}
	seen := make(map[string]bool)
	for _, c := range fresh {
		if c.Project == "" || prevProjects[c.Project] || seen[c.Project] {
			continue
		}
		seen[c.Project] = true
		alerts = append(alerts, Alert{
			Level:   LevelInfo,
			Title:   fmt.Sprintf("New project: %s", c.ProjectName()),
			Message: fmt.Sprintf("First session detected in %s", c.Project),
			Time:    curr.Timestamp,
		})
	}

	return alerts
}

// newSessions returns sessions present in curr but not in prev, identified
// by session ID, in curr's order.
func newSessions(prev, curr *WatchState) []analyzer.ClassifiedSession {
	prevIDs := make(map[string]bool, len(prev.sessions))
	for _, c := range prev.sessions {
		prevIDs[c.SessionID] = true
	}
	var fresh []analyzer.ClassifiedSession
	for _, c := range curr.sessions {
		if !prevIDs[c.SessionID] {
			fresh = append(fresh, c)
		}
	}
	return fresh
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

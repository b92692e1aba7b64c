// Package watcher monitors classified sessions at a regular interval and
// emits alerts when new sessions end badly or headline rates shift.
package watcher

import (
	"context"
	"fmt"
	"time"

	"github.com/blackwell-systems/sessionlens/internal/analyzer"
)

// Alert levels.
const (
	LevelInfo     = "info"
	LevelWarning  = "warning"
	LevelCritical = "critical"
)

// Source returns the classified sessions currently in the watched window,
// most recent first.
type Source func(ctx context.Context) ([]analyzer.ClassifiedSession, error)

// WatchState captures a point-in-time view of the watched sessions.
type WatchState struct {
	Timestamp      time.Time
	SessionCount   int
	Completed      int
	CompletionRate float64 // percent
	Outcomes       map[analyzer.Outcome]int
	LastSessionID  string

	sessions []analyzer.ClassifiedSession
}

// NewState summarizes sessions into a WatchState.
func NewState(sessions []analyzer.ClassifiedSession, now time.Time) *WatchState {
	st := &WatchState{
		Timestamp:    now,
		SessionCount: len(sessions),
		Outcomes:     make(map[analyzer.Outcome]int),
		sessions:     sessions,
	}
	for _, c := range sessions {
		st.Outcomes[c.Outcome]++
		if c.Outcome.Successful() {
			st.Completed++
		}
	}
	if len(sessions) > 0 {
		st.CompletionRate = float64(st.Completed) / float64(len(sessions)) * 100
		st.LastSessionID = sessions[0].SessionID
	}
	return st
}

// Alert represents a notable event detected by the watcher.
type Alert struct {
	Level   string // "info", "warning", "critical"
	Title   string
	Message string
	Time    time.Time
}

// Watcher polls a Source at a regular interval and emits alerts when
// notable changes are detected.
type Watcher struct {
	source        Source
	interval      time.Duration
	previous      *WatchState
	alertFn       func(Alert)     // callback for emitting alerts
	lastAlertKeys map[string]bool // dedup: suppress repeated identical alerts
	trigger       <-chan struct{}
	now           func() time.Time
}

// New creates a Watcher over source.
func New(source Source, interval time.Duration, alertFn func(Alert)) *Watcher {
	return &Watcher{
		source:        source,
		interval:      interval,
		alertFn:       alertFn,
		lastAlertKeys: make(map[string]bool),
		now:           time.Now,
	}
}

// SetTrigger makes Run also check whenever ch receives, restarting the
// interval. A closed ch is ignored from then on.
func (w *Watcher) SetTrigger(ch <-chan struct{}) {
	w.trigger = ch
}

// Run starts the watch loop. It takes an initial snapshot unless one was
// already taken with Baseline, then checks at every interval and on each
// trigger. Blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if w.previous == nil {
		if _, err := w.Baseline(ctx); err != nil {
			return err
		}
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	trigger := w.trigger
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case _, ok := <-trigger:
			if !ok {
				trigger = nil
				continue
			}
			ticker.Reset(w.interval)
		}
		for _, a := range w.Check(ctx) {
			if w.alertFn != nil {
				w.alertFn(a)
			}
		}
	}
}

// Baseline takes the snapshot later checks compare against.
func (w *Watcher) Baseline(ctx context.Context) (*WatchState, error) {
	st, err := w.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("initial snapshot: %w", err)
	}
	w.previous = st
	return st, nil
}

// Check performs a single check cycle: takes a new snapshot, compares against
// the previous state, updates the previous state, and returns any alerts.
// Identical alerts are suppressed until the underlying data changes.
func (w *Watcher) Check(ctx context.Context) []Alert {
	curr, err := w.Snapshot(ctx)
	if err != nil {
		return []Alert{{
			Level:   LevelWarning,
			Title:   "Snapshot failed",
			Message: fmt.Sprintf("Could not read session data: %v", err),
			Time:    w.now(),
		}}
	}

	var raw []Alert
	if w.previous != nil {
		raw = Compare(w.previous, curr)
	}

	currentKeys := make(map[string]bool, len(raw))
	var alerts []Alert
	for _, a := range raw {
		key := a.Level + ":" + a.Title + ":" + a.Message
		currentKeys[key] = true
		if !w.lastAlertKeys[key] {
			alerts = append(alerts, a)
		}
	}
	w.lastAlertKeys = currentKeys

	w.previous = curr
	return alerts
}

// Snapshot reads the source and summarizes it.
func (w *Watcher) Snapshot(ctx context.Context) (*WatchState, error) {
	sessions, err := w.source(ctx)
	if err != nil {
		return nil, err
	}
	return NewState(sessions, w.now()), nil
}

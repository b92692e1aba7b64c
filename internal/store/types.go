// Package store provides SQLite persistence for sessionlens report snapshots.
package store

import (
	"time"

	"github.com/blackwell-systems/sessionlens/internal/aggregate"
)

// Snapshot is one stored aggregate report.
type Snapshot struct {
	ID           int64     `json:"id"`
	ReportID     string    `json:"report_id"`
	TakenAt      time.Time `json:"taken_at"`
	Command      string    `json:"command"`
	Version      string    `json:"version"`
	PeriodStart  string    `json:"period_start,omitempty"`
	PeriodEnd    string    `json:"period_end,omitempty"`
	SessionCount int       `json:"session_count"`
	Fingerprint  string    `json:"fingerprint,omitempty"`
}

// AggregateMetric represents a named metric value within a snapshot.
type AggregateMetric struct {
	ID          int64   `json:"id"`
	SnapshotID  int64   `json:"snapshot_id"`
	MetricName  string  `json:"metric_name"`
	MetricValue float64 `json:"metric_value"`
	Detail      string  `json:"detail,omitempty"`
}

// SessionOutcome is the per-session classification stored with a snapshot.
type SessionOutcome struct {
	SnapshotID  int64  `json:"snapshot_id"`
	SessionID   string `json:"session_id"`
	Project     string `json:"project"`
	StartTime   string `json:"start_time,omitempty"`
	TaskType    string `json:"task_type"`
	SessionType string `json:"session_type"`
	Outcome     string `json:"outcome"`
	Confidence  int    `json:"confidence"`
}

// SnapshotDiff represents the comparison between two snapshots.
type SnapshotDiff struct {
	Previous *Snapshot     `json:"previous"`
	Current  *Snapshot     `json:"current"`
	Deltas   []MetricDelta `json:"deltas"`
}

// MetricDelta is the change in a single metric between snapshots.
type MetricDelta struct {
	Name string `json:"name"`
	aggregate.Delta
}

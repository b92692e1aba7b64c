package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/blackwell-systems/sessionlens/internal/aggregate"
	"github.com/blackwell-systems/sessionlens/internal/analyzer"
)

const snapshotColumns = "id, report_id, taken_at, command, version, period_start, period_end, session_count, fingerprint"

// SaveReport stores a stamped report together with its headline metrics and
// the outcome of every session it covers, in one transaction.
func (db *DB) SaveReport(r aggregate.Report, sessions []analyzer.ClassifiedSession, command, version string) (*Snapshot, error) {
	if r.Metadata.ReportID == "" {
		return nil, errors.New("store: report has no ID; call Stamp before saving")
	}
	body, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encoding report: %w", err)
	}

	takenAt := r.Metadata.GeneratedAt
	if takenAt.IsZero() {
		takenAt = time.Now()
	}
	snap := &Snapshot{
		ReportID:     r.Metadata.ReportID,
		TakenAt:      takenAt.UTC().Truncate(time.Second),
		Command:      command,
		Version:      version,
		PeriodStart:  r.Metadata.PeriodStart,
		PeriodEnd:    r.Metadata.PeriodEnd,
		SessionCount: r.Summary.TotalSessions,
		Fingerprint:  Fingerprint(sessions),
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(
		`INSERT INTO snapshots
		(report_id, taken_at, command, version, period_start, period_end, session_count, fingerprint, report_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.ReportID, snap.TakenAt.Format(time.RFC3339), snap.Command, snap.Version,
		snap.PeriodStart, snap.PeriodEnd, snap.SessionCount, snap.Fingerprint, string(body),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting snapshot: %w", err)
	}
	if snap.ID, err = res.LastInsertId(); err != nil {
		return nil, err
	}

	metrics := aggregate.Metrics(r)
	for _, name := range aggregate.DeltaMetrics {
		if _, err := tx.Exec(
			"INSERT INTO aggregate_metrics (snapshot_id, metric_name, metric_value, detail) VALUES (?, ?, ?, ?)",
			snap.ID, name, metrics[name], "",
		); err != nil {
			return nil, fmt.Errorf("inserting metric %s: %w", name, err)
		}
	}

	for i := range sessions {
		c := &sessions[i]
		start := ""
		if !c.StartTime.IsZero() {
			start = c.StartTime.UTC().Format(time.RFC3339)
		}
		if _, err := tx.Exec(
			`INSERT INTO session_outcomes
			(snapshot_id, session_id, project, start_time, task_type, session_type, outcome, confidence)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			snap.ID, c.SessionID, c.Project, start, string(c.TaskType),
			string(c.SessionType), string(c.Outcome), c.ConfidenceScore,
		); err != nil {
			return nil, fmt.Errorf("inserting outcome for %s: %w", c.SessionID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return snap, nil
}

// GetLatestSnapshot returns the most recent snapshot, or nil if none exist.
func (db *DB) GetLatestSnapshot() (*Snapshot, error) {
	return db.GetSnapshotN(1)
}

// GetSnapshot returns a snapshot by ID, or nil if it does not exist.
func (db *DB) GetSnapshot(id int64) (*Snapshot, error) {
	row := db.conn.QueryRow("SELECT "+snapshotColumns+" FROM snapshots WHERE id = ?", id)
	return scanSnapshot(row)
}

// GetSnapshotN returns the Nth most recent snapshot (1 = latest, 2 = previous, etc.).
func (db *DB) GetSnapshotN(n int) (*Snapshot, error) {
	if n < 1 {
		return nil, fmt.Errorf("store: snapshot index must be >= 1, got %d", n)
	}
	row := db.conn.QueryRow(
		"SELECT "+snapshotColumns+" FROM snapshots ORDER BY id DESC LIMIT 1 OFFSET ?",
		n-1,
	)
	return scanSnapshot(row)
}

// ListSnapshots returns up to limit snapshots, newest first.
func (db *DB) ListSnapshots(limit int) ([]Snapshot, error) {
	rows, err := db.conn.Query("SELECT "+snapshotColumns+" FROM snapshots ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var snaps []Snapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, *s)
	}
	return snaps, rows.Err()
}

// PruneSnapshots deletes all but the keep most recent snapshots along with
// their metrics and outcomes. It returns the number of snapshots removed.
func (db *DB) PruneSnapshots(keep int) (int64, error) {
	if keep < 1 {
		return 0, fmt.Errorf("store: must keep at least 1 snapshot, got %d", keep)
	}
	res, err := db.conn.Exec(
		`DELETE FROM snapshots WHERE id NOT IN (SELECT id FROM snapshots ORDER BY id DESC LIMIT ?)`,
		keep,
	)
	if err != nil {
		return 0, fmt.Errorf("pruning snapshots: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (*Snapshot, error) {
	var s Snapshot
	var takenAt string
	var start, end sql.NullString
	err := row.Scan(&s.ID, &s.ReportID, &takenAt, &s.Command, &s.Version, &start, &end, &s.SessionCount, &s.Fingerprint)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.TakenAt, _ = time.Parse(time.RFC3339, takenAt)
	s.PeriodStart = start.String
	s.PeriodEnd = end.String
	return &s, nil
}

// LoadReport decodes the full report stored with a snapshot.
func (db *DB) LoadReport(snapshotID int64) (*aggregate.Report, error) {
	var body string
	err := db.conn.QueryRow("SELECT report_json FROM snapshots WHERE id = ?", snapshotID).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("store: snapshot %d not found", snapshotID)
	}
	if err != nil {
		return nil, err
	}
	var r aggregate.Report
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		return nil, fmt.Errorf("decoding report for snapshot %d: %w", snapshotID, err)
	}
	return &r, nil
}

// GetAggregateMetrics returns all aggregate metrics for a snapshot.
func (db *DB) GetAggregateMetrics(snapshotID int64) ([]AggregateMetric, error) {
	rows, err := db.conn.Query(
		"SELECT id, snapshot_id, metric_name, metric_value, detail FROM aggregate_metrics WHERE snapshot_id = ? ORDER BY id",
		snapshotID,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var metrics []AggregateMetric
	for rows.Next() {
		var m AggregateMetric
		var detail sql.NullString
		if err := rows.Scan(&m.ID, &m.SnapshotID, &m.MetricName, &m.MetricValue, &detail); err != nil {
			return nil, err
		}
		m.Detail = detail.String
		metrics = append(metrics, m)
	}
	return metrics, rows.Err()
}

// GetSessionOutcomes returns the stored session outcomes of a snapshot,
// most recent session first.
func (db *DB) GetSessionOutcomes(snapshotID int64) ([]SessionOutcome, error) {
	rows, err := db.conn.Query(
		`SELECT snapshot_id, session_id, project, start_time, task_type, session_type, outcome, confidence
		 FROM session_outcomes WHERE snapshot_id = ? ORDER BY start_time DESC, session_id`,
		snapshotID,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []SessionOutcome
	for rows.Next() {
		var o SessionOutcome
		var start sql.NullString
		if err := rows.Scan(&o.SnapshotID, &o.SessionID, &o.Project, &start,
			&o.TaskType, &o.SessionType, &o.Outcome, &o.Confidence); err != nil {
			return nil, err
		}
		o.StartTime = start.String
		out = append(out, o)
	}
	return out, rows.Err()
}

// DiffSnapshots compares the stored metrics of two snapshots. Metrics are
// listed in aggregate.DeltaMetrics order, followed by any others by name.
func (db *DB) DiffSnapshots(previous, current *Snapshot) (*SnapshotDiff, error) {
	prev, err := db.metricMap(previous.ID)
	if err != nil {
		return nil, err
	}
	cur, err := db.metricMap(current.ID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(cur))
	names := make([]string, 0, len(cur))
	for _, m := range aggregate.DeltaMetrics {
		seen[m] = true
		names = append(names, m)
	}
	var extra []string
	for m := range cur {
		if !seen[m] {
			extra = append(extra, m)
		}
	}
	sort.Strings(extra)
	names = append(names, extra...)

	diff := &SnapshotDiff{Previous: previous, Current: current}
	for _, name := range names {
		diff.Deltas = append(diff.Deltas, MetricDelta{
			Name:  name,
			Delta: aggregate.NewDelta(cur[name], prev[name]),
		})
	}
	return diff, nil
}

// CompareLatest diffs the latest snapshot against the one n snapshots
// before it. It returns nil when there are not enough snapshots.
func (db *DB) CompareLatest(n int) (*SnapshotDiff, error) {
	if n < 1 {
		n = 1
	}
	current, err := db.GetLatestSnapshot()
	if err != nil || current == nil {
		return nil, err
	}
	previous, err := db.GetSnapshotN(n + 1)
	if err != nil || previous == nil {
		return nil, err
	}
	return db.DiffSnapshots(previous, current)
}

func (db *DB) metricMap(snapshotID int64) (map[string]float64, error) {
	metrics, err := db.GetAggregateMetrics(snapshotID)
	if err != nil {
		return nil, err
	}
	m := make(map[string]float64, len(metrics))
	for _, am := range metrics {
		m[am.MetricName] = am.MetricValue
	}
	return m, nil
}

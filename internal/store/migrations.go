package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// migrations are applied in order; the schema version is the number of
// migrations applied.
var migrations = [][]string{
	// 1: snapshots with their metrics and per-session outcomes.
	{
		`CREATE TABLE snapshots (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			report_id     TEXT NOT NULL UNIQUE,
			taken_at      TEXT NOT NULL,
			command       TEXT NOT NULL,
			version       TEXT NOT NULL,
			period_start  TEXT,
			period_end    TEXT,
			session_count INTEGER NOT NULL,
			report_json   TEXT NOT NULL
		)`,
		`CREATE TABLE aggregate_metrics (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			snapshot_id  INTEGER NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
			metric_name  TEXT NOT NULL,
			metric_value REAL NOT NULL,
			detail       TEXT
		)`,
		`CREATE TABLE session_outcomes (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			snapshot_id  INTEGER NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
			session_id   TEXT NOT NULL,
			project      TEXT NOT NULL,
			start_time   TEXT,
			task_type    TEXT NOT NULL,
			session_type TEXT NOT NULL,
			outcome      TEXT NOT NULL,
			confidence   INTEGER NOT NULL
		)`,
		`CREATE INDEX idx_aggregate_snapshot ON aggregate_metrics(snapshot_id)`,
		`CREATE INDEX idx_outcomes_snapshot ON session_outcomes(snapshot_id)`,
		`CREATE INDEX idx_outcomes_outcome ON session_outcomes(outcome)`,
	},
	// 2: fingerprint of the classified sessions behind each snapshot.
	{
		`ALTER TABLE snapshots ADD COLUMN fingerprint TEXT NOT NULL DEFAULT ''`,
	},
}

// currentSchemaVersion is the version a fully migrated database reports.
var currentSchemaVersion = len(migrations)

// Migrate brings the schema up to date. Each pending migration runs in its
// own transaction together with the version bump.
func (db *DB) Migrate() error {
	if _, err := db.conn.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("creating schema_version: %w", err)
	}
	version, err := db.SchemaVersion()
	if err != nil {
		return err
	}
	for v := version; v < len(migrations); v++ {
		if err := db.apply(v+1, migrations[v]); err != nil {
			return fmt.Errorf("migration v%d: %w", v+1, err)
		}
	}
	return nil
}

// SchemaVersion reports the applied schema version; 0 for a fresh database.
func (db *DB) SchemaVersion() (int, error) {
	var v int
	err := db.conn.QueryRow(`SELECT version FROM schema_version LIMIT 1`).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return v, nil
}

func (db *DB) apply(version int, statements []string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(`DELETE FROM schema_version`); err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT INTO schema_version (version) VALUES (?)`, version); err != nil {
		return err
	}
	return tx.Commit()
}

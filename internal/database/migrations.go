package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS rulebook_versions (
    version INTEGER PRIMARY KEY,
    rules TEXT NOT NULL,
    sources TEXT,
    notes TEXT,
    metadata TEXT,
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS pipeline_runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    site_key TEXT NOT NULL,
    topic_title TEXT NOT NULL,
    started_at TEXT DEFAULT (datetime('now')),
    duration_ms INTEGER DEFAULT 0,
    tokens INTEGER DEFAULT 0,
    cost_usd REAL DEFAULT 0,
    quality_score INTEGER DEFAULT 0,
    decision TEXT,
    publish_status TEXT,
    error TEXT,
    report TEXT,
    content_html TEXT
);

CREATE TABLE IF NOT EXISTS run_events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id INTEGER REFERENCES pipeline_runs(id),
    site_key TEXT NOT NULL,
    stage TEXT NOT NULL,
    ok INTEGER DEFAULT 1,
    detail TEXT,
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_runs_site ON pipeline_runs(site_key);
CREATE INDEX IF NOT EXISTS idx_runs_started ON pipeline_runs(started_at);
CREATE INDEX IF NOT EXISTS idx_events_run ON run_events(run_id);
CREATE INDEX IF NOT EXISTS idx_events_site ON run_events(site_key);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}

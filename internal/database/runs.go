package database

import (
	"database/sql"

	sq "github.com/Masterminds/squirrel"
)

// InsertRun persists one per-topic run outcome and returns its ID.
func (db *DB) InsertRun(r RunRecord) (int64, error) {
	result, err := db.conn.Exec(
		`INSERT INTO pipeline_runs
		(site_key, topic_title, duration_ms, tokens, cost_usd, quality_score,
		 decision, publish_status, error, report, content_html)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.SiteKey, r.TopicTitle, r.DurationMS, r.Tokens, r.CostUSD,
		r.QualityScore, r.Decision, r.PublishStatus, r.Error, r.Report, r.ContentHTML,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// InsertEvent appends one stage event. runID may be 0 for site-level
// events that are not tied to a topic run.
func (db *DB) InsertEvent(runID int64, siteKey, stage string, ok bool, detail string) error {
	var rid any
	if runID != 0 {
		rid = runID
	}
	var d any
	if detail != "" {
		d = detail
	}
	okInt := 0
	if ok {
		okInt = 1
	}
	_, err := db.conn.Exec(
		`INSERT INTO run_events (run_id, site_key, stage, ok, detail)
		VALUES (?, ?, ?, ?, ?)`,
		rid, siteKey, stage, okInt, d,
	)
	return err
}

// GetRuns returns run records matching the filter, newest first.
func (db *DB) GetRuns(f RunFilter) ([]RunRecord, error) {
	builder := sq.Select(
		"id", "site_key", "topic_title", "started_at", "duration_ms",
		"tokens", "cost_usd", "quality_score", "decision",
		"publish_status", "error", "report", "content_html",
	).From("pipeline_runs").OrderBy("started_at DESC", "id DESC")

	if f.SiteKey != "" {
		builder = builder.Where(sq.Eq{"site_key": f.SiteKey})
	}
	if f.Since != "" {
		builder = builder.Where(sq.GtOrEq{"started_at": f.Since})
	}
	if f.FailedOnly {
		builder = builder.Where("error IS NOT NULL AND error != ''")
	}
	if f.Limit > 0 {
		builder = builder.Limit(f.Limit)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		var decision sql.NullString
		if err := rows.Scan(&r.ID, &r.SiteKey, &r.TopicTitle, &r.StartedAt,
			&r.DurationMS, &r.Tokens, &r.CostUSD, &r.QualityScore, &decision,
			&r.PublishStatus, &r.Error, &r.Report, &r.ContentHTML); err != nil {
			return nil, err
		}
		r.Decision = decision.String
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetEventsForRun returns a run's stage events in insertion order.
func (db *DB) GetEventsForRun(runID int64) ([]RunEvent, error) {
	rows, err := db.conn.Query(
		`SELECT id, run_id, site_key, stage, ok, detail, created_at
		FROM run_events WHERE run_id = ? ORDER BY id`, runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []RunEvent
	for rows.Next() {
		var e RunEvent
		var runID sql.NullInt64
		var ok int
		if err := rows.Scan(&e.ID, &runID, &e.SiteKey, &e.Stage, &ok, &e.Detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.RunID = runID.Int64
		e.OK = ok != 0
		events = append(events, e)
	}
	return events, rows.Err()
}

// GetStats returns aggregate statistics across all runs.
func (db *DB) GetStats() (*Stats, error) {
	stats := &Stats{}

	err := db.conn.QueryRow(
		`SELECT COUNT(*),
		 COUNT(CASE WHEN error IS NOT NULL AND error != '' THEN 1 END),
		 COUNT(CASE WHEN publish_status = 'published' THEN 1 END),
		 COUNT(DISTINCT site_key),
		 COALESCE(AVG(quality_score), 0)
		FROM pipeline_runs`,
	).Scan(&stats.TotalRuns, &stats.FailedRuns, &stats.PublishedRuns,
		&stats.Sites, &stats.AvgQualityScore)
	if err != nil {
		return nil, err
	}

	if err := db.conn.QueryRow(
		"SELECT COUNT(*) FROM rulebook_versions",
	).Scan(&stats.RulebookVersions); err != nil {
		return nil, err
	}

	return stats, nil
}

package database

import (
	"database/sql"
)

// InsertRulebookVersion appends one version row. Versions are immutable;
// the PRIMARY KEY rejects rewrites of an existing version.
func (db *DB) InsertRulebookVersion(v RulebookVersion) error {
	_, err := db.conn.Exec(
		`INSERT INTO rulebook_versions (version, rules, sources, notes, metadata)
		VALUES (?, ?, ?, ?, ?)`,
		v.Version, v.Rules, v.Sources, v.Notes, v.Metadata,
	)
	return err
}

// GetLatestRulebookVersion returns the highest version, or nil if the
// history is empty.
func (db *DB) GetLatestRulebookVersion() (*RulebookVersion, error) {
	row := db.conn.QueryRow(
		`SELECT version, rules, sources, notes, metadata, created_at
		FROM rulebook_versions ORDER BY version DESC LIMIT 1`,
	)
	return scanRulebookVersion(row)
}

// GetRulebookVersion returns one version, or nil if it does not exist.
func (db *DB) GetRulebookVersion(version int) (*RulebookVersion, error) {
	row := db.conn.QueryRow(
		`SELECT version, rules, sources, notes, metadata, created_at
		FROM rulebook_versions WHERE version = ?`, version,
	)
	return scanRulebookVersion(row)
}

// GetRulebookHistory returns all versions, newest first.
func (db *DB) GetRulebookHistory() ([]RulebookVersion, error) {
	rows, err := db.conn.Query(
		`SELECT version, rules, sources, notes, metadata, created_at
		FROM rulebook_versions ORDER BY version DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []RulebookVersion
	for rows.Next() {
		var v RulebookVersion
		var sources, notes, metadata sql.NullString
		if err := rows.Scan(&v.Version, &v.Rules, &sources, &notes, &metadata, &v.CreatedAt); err != nil {
			return nil, err
		}
		v.Sources = sources.String
		v.Notes = notes.String
		v.Metadata = metadata.String
		history = append(history, v)
	}
	return history, rows.Err()
}

func scanRulebookVersion(row *sql.Row) (*RulebookVersion, error) {
	var v RulebookVersion
	var sources, notes, metadata sql.NullString
	err := row.Scan(&v.Version, &v.Rules, &sources, &notes, &metadata, &v.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	v.Sources = sources.String
	v.Notes = notes.String
	v.Metadata = metadata.String
	return &v, nil
}

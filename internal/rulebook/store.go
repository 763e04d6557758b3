package rulebook

import (
	"encoding/json"
	"fmt"

	"github.com/orion-content/orion/internal/database"
)

// Source documents where a rule proposal came from.
type Source struct {
	Title     string `json:"title,omitempty"`
	URL       string `json:"url"`
	Date      string `json:"date,omitempty"`
	Relevance string `json:"relevance,omitempty"`
}

// Version is one entry in the rulebook history.
type Version struct {
	Version   int
	Rules     Rules
	Sources   []Source
	Notes     string
	Metadata  map[string]any
	CreatedAt string
}

// Store is the append-only rulebook history backed by sqlite. Versions are
// never rewritten; updates and rollbacks both append.
type Store struct {
	db *database.DB
}

// NewStore wraps an open database.
func NewStore(db *database.DB) *Store {
	return &Store{db: db}
}

// Current returns the latest version. An empty history yields version 0
// with the default rules, so callers always have a usable rulebook.
func (s *Store) Current() (Version, error) {
	row, err := s.db.GetLatestRulebookVersion()
	if err != nil {
		return Version{}, fmt.Errorf("loading current rulebook: %w", err)
	}
	if row == nil {
		return Version{Version: 0, Rules: DefaultRules(), Notes: "built-in defaults"}, nil
	}
	return decodeVersion(*row)
}

// Version returns one historical version, or an error if it does not exist.
func (s *Store) Version(n int) (Version, error) {
	if n == 0 {
		return Version{Version: 0, Rules: DefaultRules(), Notes: "built-in defaults"}, nil
	}
	row, err := s.db.GetRulebookVersion(n)
	if err != nil {
		return Version{}, fmt.Errorf("loading rulebook version %d: %w", n, err)
	}
	if row == nil {
		return Version{}, fmt.Errorf("rulebook version %d does not exist", n)
	}
	return decodeVersion(*row)
}

// History returns all stored versions, newest first.
func (s *Store) History() ([]Version, error) {
	rows, err := s.db.GetRulebookHistory()
	if err != nil {
		return nil, fmt.Errorf("loading rulebook history: %w", err)
	}
	versions := make([]Version, 0, len(rows))
	for _, row := range rows {
		v, err := decodeVersion(row)
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, nil
}

// Append validates and stores a new version on top of the current one,
// returning the new version number.
func (s *Store) Append(rules Rules, sources []Source, notes string, meta map[string]any) (int, error) {
	if err := rules.Validate(); err != nil {
		return 0, err
	}

	current, err := s.Current()
	if err != nil {
		return 0, err
	}
	next := current.Version + 1

	rulesJSON, err := json.Marshal(rules)
	if err != nil {
		return 0, fmt.Errorf("encoding rules: %w", err)
	}
	var sourcesJSON []byte
	if len(sources) > 0 {
		if sourcesJSON, err = json.Marshal(sources); err != nil {
			return 0, fmt.Errorf("encoding sources: %w", err)
		}
	}
	var metaJSON []byte
	if len(meta) > 0 {
		if metaJSON, err = json.Marshal(meta); err != nil {
			return 0, fmt.Errorf("encoding metadata: %w", err)
		}
	}

	err = s.db.InsertRulebookVersion(database.RulebookVersion{
		Version:  next,
		Rules:    string(rulesJSON),
		Sources:  string(sourcesJSON),
		Notes:    notes,
		Metadata: string(metaJSON),
	})
	if err != nil {
		return 0, fmt.Errorf("storing rulebook version %d: %w", next, err)
	}
	return next, nil
}

// Rollback appends a copy of the target version's rules as a new version.
// History stays intact; the rollback is itself an auditable entry.
func (s *Store) Rollback(target int) (int, error) {
	from, err := s.Current()
	if err != nil {
		return 0, err
	}
	if target == from.Version {
		return 0, fmt.Errorf("already at version %d", target)
	}

	tv, err := s.Version(target)
	if err != nil {
		return 0, err
	}

	notes := fmt.Sprintf("rollback from version %d to version %d", from.Version, target)
	meta := map[string]any{
		"update_method": "rollback",
		"rollback_from": from.Version,
		"rollback_to":   target,
	}
	return s.Append(tv.Rules, tv.Sources, notes, meta)
}

func decodeVersion(row database.RulebookVersion) (Version, error) {
	v := Version{
		Version:   row.Version,
		Notes:     row.Notes,
		CreatedAt: row.CreatedAt,
	}
	if err := json.Unmarshal([]byte(row.Rules), &v.Rules); err != nil {
		return Version{}, fmt.Errorf("decoding rulebook version %d: %w", row.Version, err)
	}
	if row.Sources != "" {
		if err := json.Unmarshal([]byte(row.Sources), &v.Sources); err != nil {
			return Version{}, fmt.Errorf("decoding sources for version %d: %w", row.Version, err)
		}
	}
	if row.Metadata != "" {
		if err := json.Unmarshal([]byte(row.Metadata), &v.Metadata); err != nil {
			return Version{}, fmt.Errorf("decoding metadata for version %d: %w", row.Version, err)
		}
	}
	return v, nil
}

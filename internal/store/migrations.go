package store

import (
	"fmt"

	"kairo/internal/logging"
)

// Schema versions:
// v1: feedback, pattern_weights
// v2: interactions
// v3: failed_domains column on feedback
const CurrentSchemaVersion = 3

const baseSchema = `
CREATE TABLE IF NOT EXISTS feedback (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	request_id TEXT NOT NULL,
	domains_used TEXT NOT NULL DEFAULT '[]',
	primary_domain TEXT NOT NULL DEFAULT '',
	confidence INTEGER NOT NULL DEFAULT 0,
	outcome_success INTEGER NOT NULL DEFAULT 0,
	satisfaction REAL NOT NULL DEFAULT 0,
	elapsed_ms INTEGER NOT NULL DEFAULT 0,
	recorded_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_feedback_recorded_at ON feedback(recorded_at);

CREATE TABLE IF NOT EXISTS pattern_weights (
	rule_id TEXT PRIMARY KEY,
	weight INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS interactions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	request_id TEXT NOT NULL,
	text TEXT NOT NULL,
	primary_domain TEXT NOT NULL DEFAULT '',
	at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_interactions_at ON interactions(at);
`

// Migration adds a column to a table that predates it.
type Migration struct {
	Table  string
	Column string
	Def    string
}

// pendingMigrations handle tables created by older versions that are
// missing newer columns.
var pendingMigrations = []Migration{
	{"feedback", "failed_domains", "TEXT NOT NULL DEFAULT '[]'"},
}

// initialize creates the schema and brings older databases up to date.
func (s *SQLiteStore) initialize() error {
	if _, err := s.db.Exec(baseSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	for _, m := range pendingMigrations {
		has, err := s.hasColumn(m.Table, m.Column)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", m.Table, m.Column, m.Def)
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %s.%s failed: %w", m.Table, m.Column, err)
		}
		logging.Store("Migrated %s: added column %s", m.Table, m.Column)
	}

	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", CurrentSchemaVersion)); err != nil {
		logging.StoreWarn("Failed to record schema version: %v", err)
	}
	return nil
}

// SchemaVersion returns the recorded schema version.
func (s *SQLiteStore) SchemaVersion() (int, error) {
	var v int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return v, nil
}

func (s *SQLiteStore) hasColumn(table, column string) (bool, error) {
	rows, err := s.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, fmt.Errorf("failed to inspect %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notnull int
			dflt    any
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return false, fmt.Errorf("failed to scan table_info: %w", err)
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

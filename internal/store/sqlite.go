// Package store persists feedback records, tuned pattern weights and the
// memory domain's interaction log.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"kairo/internal/logging"
	"kairo/internal/types"
)

// SQLiteStore implements types.FeedbackLog, types.WeightPersister and
// types.InteractionLog on one SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

var (
	_ types.FeedbackLog     = (*SQLiteStore)(nil)
	_ types.WeightPersister = (*SQLiteStore)(nil)
	_ types.InteractionLog  = (*SQLiteStore)(nil)
)

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	timer := logging.StartTimer(logging.CategoryStore, "NewSQLiteStore")
	defer timer.Stop()

	logging.Store("Initializing SQLiteStore at path: %s", path)

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			logging.StoreError("Failed to create directory %s: %v", dir, err)
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		logging.StoreError("Failed to open database at %s: %v", path, err)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("Failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite journal_mode=WAL: %v", err)
	}

	s := &SQLiteStore{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		logging.StoreError("Failed to initialize schema: %v", err)
		db.Close()
		return nil, err
	}
	logging.StoreDebug("Database schema initialized successfully")
	return s, nil
}

// Path returns the database path.
func (s *SQLiteStore) Path() string {
	return s.dbPath
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// =============================================================================
// FEEDBACK LOG
// =============================================================================

// Append inserts one feedback record.
func (s *SQLiteStore) Append(ctx context.Context, rec types.FeedbackRecord) error {
	used, err := json.Marshal(rec.DomainsUsed)
	if err != nil {
		return fmt.Errorf("failed to encode domains: %w", err)
	}
	failed, err := json.Marshal(rec.FailedDomains)
	if err != nil {
		return fmt.Errorf("failed to encode failed domains: %w", err)
	}
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO feedback (request_id, domains_used, failed_domains, primary_domain,
			confidence, outcome_success, satisfaction, elapsed_ms, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RequestID, string(used), string(failed), string(rec.Primary),
		rec.Confidence, rec.OutcomeSuccess, rec.Satisfaction, rec.ElapsedMs,
		rec.RecordedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to append feedback: %w", err)
	}
	logging.StoreDebug("Appended feedback for request %s", rec.RequestID)
	return nil
}

// Since returns records whose row id is greater than cursor, in id order.
// The id is AUTOINCREMENT, so it never goes backwards even after Prune.
func (s *SQLiteStore) Since(ctx context.Context, cursor int64) ([]types.FeedbackRecord, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, request_id, domains_used, failed_domains, primary_domain, confidence,
			outcome_success, satisfaction, elapsed_ms, recorded_at
		FROM feedback WHERE id > ? ORDER BY id`, cursor)
	if err != nil {
		return nil, cursor, fmt.Errorf("failed to query feedback: %w", err)
	}
	defer rows.Close()

	next := cursor
	var out []types.FeedbackRecord
	for rows.Next() {
		var (
			rec            types.FeedbackRecord
			used, failed   string
			primary        string
			recordedAtNano int64
		)
		if err := rows.Scan(&rec.Seq, &rec.RequestID, &used, &failed, &primary, &rec.Confidence,
			&rec.OutcomeSuccess, &rec.Satisfaction, &rec.ElapsedMs, &recordedAtNano); err != nil {
			return nil, cursor, fmt.Errorf("failed to scan feedback: %w", err)
		}
		if err := json.Unmarshal([]byte(used), &rec.DomainsUsed); err != nil {
			logging.StoreWarn("Corrupt domains_used for %s: %v", rec.RequestID, err)
		}
		if err := json.Unmarshal([]byte(failed), &rec.FailedDomains); err != nil {
			logging.StoreWarn("Corrupt failed_domains for %s: %v", rec.RequestID, err)
		}
		rec.Primary = types.DomainID(primary)
		rec.RecordedAt = time.Unix(0, recordedAtNano)
		out = append(out, rec)
		next = rec.Seq
	}
	if err := rows.Err(); err != nil {
		return nil, cursor, fmt.Errorf("failed to read feedback: %w", err)
	}
	return out, next, nil
}

// Count returns the number of stored feedback records.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM feedback").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count feedback: %w", err)
	}
	return n, nil
}

// Prune deletes feedback recorded before t and returns the number removed.
func (s *SQLiteStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, "DELETE FROM feedback WHERE recorded_at < ?", before.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to prune feedback: %w", err)
	}
	n, _ := res.RowsAffected()
	logging.Store("Pruned %d feedback records older than %s", n, before.Format(time.RFC3339))
	return n, nil
}

// =============================================================================
// WEIGHT PERSISTENCE
// =============================================================================

// SaveWeights upserts the weight of every rule in one transaction.
func (s *SQLiteStore) SaveWeights(ctx context.Context, weights map[string]int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO pattern_weights (rule_id, weight, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(rule_id) DO UPDATE SET weight = excluded.weight, updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("failed to prepare weight upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UnixNano()
	for id, w := range weights {
		if _, err := stmt.ExecContext(ctx, id, w, now); err != nil {
			return fmt.Errorf("failed to save weight %s: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit weights: %w", err)
	}
	logging.StoreDebug("Saved %d pattern weights", len(weights))
	return nil
}

// LoadWeights returns every persisted weight keyed by rule ID.
func (s *SQLiteStore) LoadWeights(ctx context.Context) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT rule_id, weight FROM pattern_weights")
	if err != nil {
		return nil, fmt.Errorf("failed to query weights: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var id string
		var w int
		if err := rows.Scan(&id, &w); err != nil {
			return nil, fmt.Errorf("failed to scan weight: %w", err)
		}
		out[id] = w
	}
	return out, rows.Err()
}

// =============================================================================
// INTERACTION LOG
// =============================================================================

// Remember stores one interaction.
func (s *SQLiteStore) Remember(ctx context.Context, it types.Interaction) error {
	if it.At.IsZero() {
		it.At = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO interactions (request_id, text, primary_domain, at) VALUES (?, ?, ?, ?)",
		it.RequestID, it.Text, string(it.Primary), it.At.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to store interaction: %w", err)
	}
	return nil
}

// Recent returns up to limit interactions, newest first.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]types.Interaction, error) {
	if limit <= 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT request_id, text, primary_domain, at FROM interactions ORDER BY at DESC, id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query interactions: %w", err)
	}
	defer rows.Close()

	var out []types.Interaction
	for rows.Next() {
		var it types.Interaction
		var primary string
		var at int64
		if err := rows.Scan(&it.RequestID, &it.Text, &primary, &at); err != nil {
			return nil, fmt.Errorf("failed to scan interaction: %w", err)
		}
		it.Primary = types.DomainID(primary)
		it.At = time.Unix(0, at)
		out = append(out, it)
	}
	return out, rows.Err()
}

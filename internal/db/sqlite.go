// Package db persists run saves, the meta profile, and run summaries in
// sqlite. Save documents are versioned and checksummed; loading verifies
// the checksum first and then migrates older schema versions forward.
package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"commitrogue/internal/game"
)

// Store wraps database operations.
type Store struct {
	conn *sql.DB
	mu   sync.RWMutex
}

// NewStore opens the database and ensures the schema exists.
func NewStore(dbPath string) (*Store, error) {
	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	if err := conn.Ping(); err != nil {
		return nil, err
	}

	s := &Store{conn: conn}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS saves (
		run_id TEXT PRIMARY KEY,
		doc TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS profiles (
		profile_id TEXT PRIMARY KEY,
		doc TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS summaries (
		run_id TEXT PRIMARY KEY,
		profile_id TEXT NOT NULL,
		doc TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_summaries_profile_id ON summaries(profile_id);
	`
	_, err := s.conn.Exec(schema)
	return err
}

// PutSave seals and upserts one run save document.
func (s *Store) PutSave(runID string, doc SaveDoc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := EncodeSave(doc)
	if err != nil {
		return fmt.Errorf("encode save %s: %w", runID, err)
	}
	_, err = s.conn.Exec(`
		INSERT INTO saves (run_id, doc, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(run_id) DO UPDATE SET doc = excluded.doc, updated_at = CURRENT_TIMESTAMP
	`, runID, string(raw))
	return err
}

// GetSave loads, verifies, and migrates one run save document.
func (s *Store) GetSave(runID string) (SaveDoc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var raw string
	err := s.conn.QueryRow(`SELECT doc FROM saves WHERE run_id = ?`, runID).Scan(&raw)
	if err != nil {
		return SaveDoc{}, err
	}
	return DecodeSave([]byte(raw))
}

// DeleteSave removes a run save.
func (s *Store) DeleteSave(runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.conn.Exec(`DELETE FROM saves WHERE run_id = ?`, runID)
	return err
}

// ListSaves returns all saved run ids, newest first.
func (s *Store) ListSaves() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.conn.Query(`SELECT run_id FROM saves ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// PutProfile upserts the meta profile.
func (s *Store) PutProfile(profile *game.MetaProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := EncodeProfile(profile)
	if err != nil {
		return fmt.Errorf("encode profile %s: %w", profile.ProfileID, err)
	}
	_, err = s.conn.Exec(`
		INSERT INTO profiles (profile_id, doc, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(profile_id) DO UPDATE SET doc = excluded.doc, updated_at = CURRENT_TIMESTAMP
	`, profile.ProfileID, string(raw))
	return err
}

// GetProfile loads and migrates one meta profile.
func (s *Store) GetProfile(profileID string) (*game.MetaProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var raw string
	err := s.conn.QueryRow(`SELECT doc FROM profiles WHERE profile_id = ?`, profileID).Scan(&raw)
	if err != nil {
		return nil, err
	}
	return DecodeProfile([]byte(raw))
}

// PutSummary records a finished run's summary.
func (s *Store) PutSummary(profileID string, summary game.RunSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	_, err = s.conn.Exec(`
		INSERT OR REPLACE INTO summaries (run_id, profile_id, doc)
		VALUES (?, ?, ?)
	`, summary.RunID, profileID, string(raw))
	return err
}

// GetSummary loads one run summary.
func (s *Store) GetSummary(runID string) (game.RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var raw string
	err := s.conn.QueryRow(`SELECT doc FROM summaries WHERE run_id = ?`, runID).Scan(&raw)
	if err != nil {
		return game.RunSummary{}, err
	}
	var summary game.RunSummary
	if err := json.Unmarshal([]byte(raw), &summary); err != nil {
		return game.RunSummary{}, err
	}
	return summary, nil
}

// ListSummaries returns every summary for a profile, newest first.
func (s *Store) ListSummaries(profileID string) ([]game.RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.conn.Query(`
		SELECT doc FROM summaries WHERE profile_id = ? ORDER BY created_at DESC
	`, profileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []game.RunSummary
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var summary game.RunSummary
		if err := json.Unmarshal([]byte(raw), &summary); err != nil {
			return nil, err
		}
		out = append(out, summary)
	}
	return out, rows.Err()
}

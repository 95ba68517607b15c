// Package storage provides SQLite-based persistence for session records
// and the snapshot index. Uses the pure-Go modernc.org/sqlite driver to
// avoid CGO dependencies.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// Store manages the SQLite database connection.
type Store struct {
	db *sql.DB
}

// SessionRecord is one finished dungeon run.
type SessionRecord struct {
	ID        int64
	Result    string // "died", "quit", "stopped"
	Turns     uint64
	Depth     int
	Gold      int
	CreatedAt time.Time
}

// SnapshotRecord is one saved snapshot's metadata. The artifacts
// themselves live on disk; the index only remembers where.
type SnapshotRecord struct {
	ID         int64
	Name       string
	StatePath  string
	ArenaPath  string
	Turn       uint64
	ArenaBytes int
	CreatedAt  time.Time
}

// Open creates or opens a SQLite database at the given path.
// It creates the parent directories if needed and runs migrations.
func Open(dbPath string) (*Store, error) {
	// Expand ~ to home directory
	if dbPath != "" && dbPath[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("storage: cannot expand home directory: %w", err)
		}
		dbPath = filepath.Join(home, dbPath[1:])
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: cannot create directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: cannot connect to database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: migration failed: %w", err)
	}

	return store, nil
}

// migrate creates the database schema if it doesn't exist.
func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			result TEXT NOT NULL,
			turns INTEGER NOT NULL,
			depth INTEGER NOT NULL,
			gold INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_sessions_recent ON sessions(created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_sessions_deepest ON sessions(depth DESC);

		CREATE TABLE IF NOT EXISTS snapshots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			state_path TEXT NOT NULL,
			arena_path TEXT NOT NULL,
			turn INTEGER NOT NULL,
			arena_bytes INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_snapshots_name ON snapshots(name);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// RecordSession stores one finished run. Implements the bridge's session
// recorder.
func (s *Store) RecordSession(result string, turns uint64, depth, gold int) error {
	_, err := s.db.Exec(
		"INSERT INTO sessions (result, turns, depth, gold) VALUES (?, ?, ?, ?)",
		result, turns, depth, gold,
	)
	if err != nil {
		return fmt.Errorf("storage: cannot record session: %w", err)
	}
	return nil
}

// RecentSessions retrieves the most recent finished runs.
func (s *Store) RecentSessions(limit int) ([]SessionRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(
		`SELECT id, result, turns, depth, gold, created_at
		 FROM sessions
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query sessions: %w", err)
	}
	defer rows.Close()

	var records []SessionRecord
	for rows.Next() {
		var r SessionRecord
		var createdAt any
		if err := rows.Scan(&r.ID, &r.Result, &r.Turns, &r.Depth, &r.Gold, &createdAt); err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		r.CreatedAt = parseTimestamp(createdAt)
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}

	return records, nil
}

// DeepestRun returns the depth of the deepest recorded run, 0 if none.
func (s *Store) DeepestRun() (int, error) {
	var depth sql.NullInt64
	err := s.db.QueryRow("SELECT MAX(depth) FROM sessions").Scan(&depth)
	if err != nil {
		return 0, fmt.Errorf("storage: cannot query deepest run: %w", err)
	}
	if !depth.Valid {
		return 0, nil
	}
	return int(depth.Int64), nil
}

// ClearSessions deletes every session record.
func (s *Store) ClearSessions() error {
	_, err := s.db.Exec("DELETE FROM sessions")
	if err != nil {
		return fmt.Errorf("storage: cannot clear sessions: %w", err)
	}
	return nil
}

// RecordSnapshot stores snapshot metadata. A snapshot saved under an
// existing name replaces the old index row, matching the files it
// overwrote on disk. Implements the bridge's snapshot index.
func (s *Store) RecordSnapshot(name, statePath, arenaPath string, turn uint64, arenaBytes int) error {
	if _, err := s.db.Exec("DELETE FROM snapshots WHERE name = ?", name); err != nil {
		return fmt.Errorf("storage: cannot replace snapshot record: %w", err)
	}
	_, err := s.db.Exec(
		`INSERT INTO snapshots (name, state_path, arena_path, turn, arena_bytes)
		 VALUES (?, ?, ?, ?, ?)`,
		name, statePath, arenaPath, turn, arenaBytes,
	)
	if err != nil {
		return fmt.Errorf("storage: cannot record snapshot: %w", err)
	}
	return nil
}

// ListSnapshots retrieves every indexed snapshot, newest first.
func (s *Store) ListSnapshots() ([]SnapshotRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, name, state_path, arena_path, turn, arena_bytes, created_at
		 FROM snapshots
		 ORDER BY created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query snapshots: %w", err)
	}
	defer rows.Close()

	var records []SnapshotRecord
	for rows.Next() {
		var r SnapshotRecord
		var createdAt any
		if err := rows.Scan(&r.ID, &r.Name, &r.StatePath, &r.ArenaPath, &r.Turn, &r.ArenaBytes, &createdAt); err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		r.CreatedAt = parseTimestamp(createdAt)
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}

	return records, nil
}

// SnapshotByName retrieves one indexed snapshot, nil if unknown.
func (s *Store) SnapshotByName(name string) (*SnapshotRecord, error) {
	var r SnapshotRecord
	var createdAt any
	err := s.db.QueryRow(
		`SELECT id, name, state_path, arena_path, turn, arena_bytes, created_at
		 FROM snapshots
		 WHERE name = ?`,
		name,
	).Scan(&r.ID, &r.Name, &r.StatePath, &r.ArenaPath, &r.Turn, &r.ArenaBytes, &createdAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query snapshot: %w", err)
	}
	r.CreatedAt = parseTimestamp(createdAt)
	return &r, nil
}

// DeleteSnapshot removes a snapshot from the index.
func (s *Store) DeleteSnapshot(name string) error {
	_, err := s.db.Exec("DELETE FROM snapshots WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("storage: cannot delete snapshot: %w", err)
	}
	return nil
}

// parseTimestamp handles both time.Time and string datetime columns.
func parseTimestamp(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		if parsed, err := time.Parse("2006-01-02 15:04:05", t); err == nil {
			return parsed
		}
	}
	return time.Time{}
}

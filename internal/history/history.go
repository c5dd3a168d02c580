// Package history keeps a local record of past validation runs in an
// SQLite database. Recording is best-effort: a broken history store
// never changes a run's outcome.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// DirName is the workspace-local directory holding engine state.
const DirName = ".skillgate"

// FileName is the history database file under DirName.
const FileName = "history.db"

// Entry is one recorded validation run.
type Entry struct {
	RunID     string
	Skill     string
	Mode      string
	Passed    bool
	Total     int
	Projects  int
	CreatedAt time.Time
}

// Store is an SQLite-backed run log.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// DefaultPath returns the history database path for a skills root.
func DefaultPath(skillsRoot string) string {
	return filepath.Join(skillsRoot, DirName, FileName)
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	skill TEXT NOT NULL,
	mode TEXT NOT NULL,
	passed INTEGER NOT NULL,
	total INTEGER NOT NULL,
	projects INTEGER NOT NULL,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_skill ON runs(skill);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

// Open opens (creating if needed) the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	// WAL lets a concurrent `skillgate history` read during a run.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply history schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Record appends one run to the log.
func (s *Store) Record(e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	passed := 0
	if e.Passed {
		passed = 1
	}
	_, err := s.db.Exec(`
		INSERT INTO runs (id, skill, mode, passed, total, projects, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.RunID, e.Skill, e.Mode, passed, e.Total, e.Projects, formatTime(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("record run %s: %w", e.RunID, err)
	}
	return nil
}

// Recent returns the latest runs, newest first. A skill filter of ""
// returns runs for all skills.
func (s *Store) Recent(skill string, limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, skill, mode, passed, total, projects, created_at
		FROM runs
	`
	args := []any{}
	if skill != "" {
		query += " WHERE skill = ?"
		args = append(args, skill)
	}
	query += " ORDER BY created_at DESC, id LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var passed int
		var created string
		if err := rows.Scan(&e.RunID, &e.Skill, &e.Mode, &passed, &e.Total, &e.Projects, &created); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		e.Passed = passed != 0
		if t, err := parseTime(created); err == nil {
			e.CreatedAt = t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

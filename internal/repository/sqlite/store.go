package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/PipeManMusic/Talus-Tally/internal/app"
	"github.com/PipeManMusic/Talus-Tally/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS launches (
	id TEXT PRIMARY KEY,
	pid INTEGER NOT NULL,
	kind TEXT NOT NULL,
	path TEXT NOT NULL,
	args TEXT NOT NULL DEFAULT '[]',
	root TEXT NOT NULL DEFAULT '',
	started_at TEXT NOT NULL,
	ended_at TEXT NOT NULL DEFAULT '',
	end_reason TEXT NOT NULL DEFAULT '',
	exit_code INTEGER NOT NULL DEFAULT 0
);
`

const indexes = `
CREATE INDEX IF NOT EXISTS idx_launches_started ON launches(started_at);
CREATE INDEX IF NOT EXISTS idx_launches_open ON launches(ended_at);
`

// timeLayout is fixed-width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// ErrNoOpenLaunch is returned by RecordExit when the launch is unknown or
// already closed.
var ErrNoOpenLaunch = errors.New("no open launch")

// Store implements app.LaunchRepository using SQLite.
type Store struct {
	db *sql.DB
}

// New opens the SQLite database at path (creating parent dirs and schema) and returns a LaunchRepository.
func New(path string) (app.LaunchRepository, error) {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("sqlite mkdir: %w", err)
		}
	}
	// modernc applies _pragma on every new connection.
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	if _, err := db.Exec(indexes); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite indexes: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database connection. Call on shutdown for clean exit.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// RecordLaunch inserts a new open launch.
func (s *Store) RecordLaunch(l domain.Launch) error {
	if s.db == nil {
		return fmt.Errorf("record launch: store closed")
	}
	args, err := json.Marshal(l.Args)
	if err != nil {
		return fmt.Errorf("record launch: args: %w", err)
	}
	if l.Args == nil {
		args = []byte("[]")
	}
	_, err = s.db.Exec(
		`INSERT INTO launches (id, pid, kind, path, args, root, started_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.PID, string(l.Kind), l.Path, string(args), l.Root, formatTime(l.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("record launch %s: %w", l.ID, err)
	}
	return nil
}

// RecordExit closes the launch with id.
func (s *Store) RecordExit(id string, endedAt time.Time, reason string, exitCode int) error {
	if s.db == nil {
		return fmt.Errorf("record exit: store closed")
	}
	res, err := s.db.Exec(
		`UPDATE launches SET ended_at = ?, end_reason = ?, exit_code = ? WHERE id = ? AND ended_at = ''`,
		formatTime(endedAt), reason, exitCode, id,
	)
	if err != nil {
		return fmt.Errorf("record exit %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("record exit %s: %w", id, ErrNoOpenLaunch)
	}
	return nil
}

// MarkAbandoned closes every launch still open, typically left by a shell
// that did not shut down cleanly.
func (s *Store) MarkAbandoned(at time.Time) (int, error) {
	if s.db == nil {
		return 0, fmt.Errorf("mark abandoned: store closed")
	}
	res, err := s.db.Exec(
		`UPDATE launches SET ended_at = ?, end_reason = ?, exit_code = -1 WHERE ended_at = ''`,
		formatTime(at), domain.EndAbandoned,
	)
	if err != nil {
		return 0, fmt.Errorf("mark abandoned: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// Recent returns up to limit launches, newest first. limit <= 0 means 20.
func (s *Store) Recent(limit int) ([]domain.Launch, error) {
	if s.db == nil {
		return nil, fmt.Errorf("recent launches: store closed")
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT id, pid, kind, path, args, root, started_at, ended_at, end_reason, exit_code
		 FROM launches ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent launches: %w", err)
	}
	defer rows.Close()

	var out []domain.Launch
	for rows.Next() {
		var (
			l              domain.Launch
			kind, args     string
			started, ended string
		)
		if err := rows.Scan(&l.ID, &l.PID, &kind, &l.Path, &args, &l.Root, &started, &ended, &l.EndReason, &l.ExitCode); err != nil {
			return nil, fmt.Errorf("recent launches: scan: %w", err)
		}
		l.Kind = domain.CandidateKind(kind)
		if err := json.Unmarshal([]byte(args), &l.Args); err != nil {
			return nil, fmt.Errorf("launch %s: parse args: %w", l.ID, err)
		}
		if l.StartedAt, err = parseTime(started, "launch "+l.ID); err != nil {
			return nil, err
		}
		if ended != "" {
			if l.EndedAt, err = parseTime(ended, "launch "+l.ID); err != nil {
				return nil, err
			}
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime parses timeLayout or returns zero time and error.
func parseTime(s, context string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: parse timestamp %q: %w", context, s, err)
	}
	return t, nil
}

// Package sqlite persists playthrough snapshots in a local SQLite file so a
// restarted server can resume sessions.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/AaronLay10/lorecrafter/internal/orchestrator"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS playthroughs (
	session_id     TEXT PRIMARY KEY,
	playthrough_id TEXT NOT NULL,
	snapshot       TEXT NOT NULL,
	updated_at     INTEGER NOT NULL
);
`

// Store implements orchestrator.Store.
type Store struct {
	db *sql.DB
}

var _ orchestrator.Store = (*Store)(nil)

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite: path is required")
	}
	dsn := "file:" + filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// one writer keeps WAL contention out of the request path
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Save(ctx context.Context, sessionID string, p *orchestrator.Playthrough) error {
	if sessionID == "" || p == nil {
		return fmt.Errorf("sqlite: session id and playthrough are required")
	}
	snapshot, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode playthrough: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO playthroughs (session_id, playthrough_id, snapshot, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET
		   playthrough_id = excluded.playthrough_id,
		   snapshot = excluded.snapshot,
		   updated_at = excluded.updated_at`,
		sessionID, p.ID, string(snapshot), time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save playthrough: %w", err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context, sessionID string) (*orchestrator.Playthrough, error) {
	var snapshot string
	err := s.db.QueryRowContext(ctx,
		`SELECT snapshot FROM playthroughs WHERE session_id = ?`, sessionID,
	).Scan(&snapshot)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, orchestrator.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load playthrough: %w", err)
	}

	var p orchestrator.Playthrough
	if err := json.Unmarshal([]byte(snapshot), &p); err != nil {
		return nil, fmt.Errorf("decode playthrough %s: %w", sessionID, err)
	}
	return &p, nil
}

func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM playthroughs WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("delete playthrough: %w", err)
	}
	return nil
}

// Sessions lists every stored session id, oldest update first.
func (s *Store) Sessions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT session_id FROM playthroughs ORDER BY updated_at, session_id`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
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

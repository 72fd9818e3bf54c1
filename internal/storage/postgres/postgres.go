// Package postgres persists the event log so playthroughs can be audited
// after the in-memory buffer has rolled over.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/lib/pq"
)

const (
	defaultLimit = 200
	maxLimit     = 10000
)

const schema = `
CREATE TABLE IF NOT EXISTS lorecrafter_events (
	id             BIGSERIAL PRIMARY KEY,
	ts             TIMESTAMPTZ NOT NULL,
	level          TEXT NOT NULL,
	name           TEXT NOT NULL,
	msg            TEXT,
	fields         JSONB,
	instance       TEXT NOT NULL,
	session_id     TEXT,
	playthrough_id TEXT
);
CREATE INDEX IF NOT EXISTS lorecrafter_events_ts ON lorecrafter_events(ts DESC);
CREATE INDEX IF NOT EXISTS lorecrafter_events_playthrough ON lorecrafter_events(playthrough_id, ts);
CREATE INDEX IF NOT EXISTS lorecrafter_events_session ON lorecrafter_events(session_id, ts);
`

// Record is one event as it is written.
type Record struct {
	Time    time.Time
	Level   string
	Name    string
	Message string
	Fields  map[string]interface{}
}

// EventRow is one persisted event.
type EventRow struct {
	ID            int64                  `json:"id"`
	Timestamp     time.Time              `json:"ts"`
	Level         string                 `json:"level"`
	Event         string                 `json:"event"`
	Message       string                 `json:"msg,omitempty"`
	Fields        map[string]interface{} `json:"fields,omitempty"`
	Instance      string                 `json:"instance"`
	SessionID     string                 `json:"session_id,omitempty"`
	PlaythroughID string                 `json:"playthrough_id,omitempty"`
}

// Filter narrows Query. Without a playthrough or session, rows are limited
// to this instance.
type Filter struct {
	PlaythroughID string
	SessionID     string
	Names         []string
	Prefix        string
	Since         time.Time
	Limit         int
}

type Client struct {
	db       *sql.DB
	instance string
}

// ConnString builds a lib/pq DSN from the standard PG* variables.
func ConnString() string {
	parts := []string{
		"host=" + envOr("PGHOST", "127.0.0.1"),
		"port=" + envOr("PGPORT", "5432"),
		"user=" + envOr("PGUSER", "lorecrafter"),
	}
	if pw := os.Getenv("PGPASSWORD"); pw != "" {
		parts = append(parts, "password="+pw)
	}
	parts = append(parts, "dbname="+envOr("PGDATABASE", "lorecrafter"), "sslmode="+envOr("PGSSLMODE", "disable"))
	return strings.Join(parts, " ")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// New connects and ensures the schema. An empty connStr falls back to
// ConnString. Rows written by this client are tagged with instance.
func New(connStr, instance string) (*Client, error) {
	if connStr == "" {
		connStr = ConnString()
	}
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create event schema: %w", err)
	}
	return &Client{db: db, instance: instance}, nil
}

func (c *Client) Instance() string { return c.instance }

// Append writes one event. session_id and playthrough_id are lifted out of
// the fields so they can be indexed.
func (c *Client) Append(rec Record) error {
	var fields []byte
	if len(rec.Fields) > 0 {
		b, err := json.Marshal(rec.Fields)
		if err != nil {
			return fmt.Errorf("marshal fields: %w", err)
		}
		fields = b
	}
	_, err := c.db.Exec(
		`INSERT INTO lorecrafter_events (ts, level, name, msg, fields, instance, session_id, playthrough_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.Time, rec.Level, rec.Name, nullable(rec.Message), fields, c.instance,
		nullable(fieldString(rec.Fields, "session_id")),
		nullable(fieldString(rec.Fields, "playthrough_id")),
	)
	return err
}

// Query returns matching events, newest first.
func (c *Client) Query(ctx context.Context, f Filter) ([]EventRow, error) {
	query, args := c.buildQuery(f)
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []EventRow
	for rows.Next() {
		var e EventRow
		var fields []byte
		var msg, session, playthrough sql.NullString
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Level, &e.Event, &msg, &fields, &e.Instance, &session, &playthrough); err != nil {
			return nil, err
		}
		e.Message, e.SessionID, e.PlaythroughID = msg.String, session.String, playthrough.String
		if len(fields) > 0 {
			if err := json.Unmarshal(fields, &e.Fields); err != nil {
				return nil, fmt.Errorf("decode fields of event %d: %w", e.ID, err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (c *Client) buildQuery(f Filter) (string, []interface{}) {
	var (
		where []string
		args  []interface{}
	)
	add := func(cond string, v interface{}) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	switch {
	case f.PlaythroughID != "":
		add("playthrough_id = $%d", f.PlaythroughID)
	case f.SessionID != "":
		add("session_id = $%d", f.SessionID)
	default:
		add("instance = $%d", c.instance)
	}
	if f.PlaythroughID != "" && f.SessionID != "" {
		add("session_id = $%d", f.SessionID)
	}
	if len(f.Names) > 0 {
		add("name = ANY($%d)", pq.Array(f.Names))
	}
	if f.Prefix != "" {
		add("name LIKE $%d", escapeLike(f.Prefix)+"%")
	}
	if !f.Since.IsZero() {
		add("ts >= $%d", f.Since)
	}
	args = append(args, clampLimit(f.Limit))

	query := `SELECT id, ts, level, name, msg, fields, instance, session_id, playthrough_id
		FROM lorecrafter_events
		WHERE ` + strings.Join(where, " AND ") + fmt.Sprintf(`
		ORDER BY ts DESC, id DESC
		LIMIT $%d`, len(args))
	return query, args
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	return min(limit, maxLimit)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func fieldString(fields map[string]interface{}, key string) string {
	s, _ := fields[key].(string)
	return s
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (c *Client) Ping() error {
	return c.db.Ping()
}

func (c *Client) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

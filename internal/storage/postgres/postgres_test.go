package postgres

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"
)

func TestConnStringFromEnv(t *testing.T) {
	t.Setenv("PGHOST", "db.internal")
	t.Setenv("PGPORT", "6543")
	t.Setenv("PGUSER", "lc")
	t.Setenv("PGDATABASE", "lore")
	t.Setenv("PGPASSWORD", "")
	t.Setenv("PGSSLMODE", "")

	want := "host=db.internal port=6543 user=lc dbname=lore sslmode=disable"
	if got := ConnString(); got != want {
		t.Errorf("ConnString() = %q, want %q", got, want)
	}

	t.Setenv("PGPASSWORD", "pw")
	t.Setenv("PGSSLMODE", "require")
	want = "host=db.internal port=6543 user=lc password=pw dbname=lore sslmode=require"
	if got := ConnString(); got != want {
		t.Errorf("ConnString() = %q, want %q", got, want)
	}
}

func TestClampLimit(t *testing.T) {
	cases := map[int]int{0: 200, -5: 200, 50: 50, 20000: 10000}
	for in, want := range cases {
		if got := clampLimit(in); got != want {
			t.Errorf("clampLimit(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestBuildQuery(t *testing.T) {
	c := &Client{instance: "venue-1"}

	tests := []struct {
		name     string
		filter   Filter
		contains []string
		args     int
	}{
		{"instance default", Filter{}, []string{"instance = $1", "LIMIT $2"}, 2},
		{"playthrough", Filter{PlaythroughID: "pt-1", Limit: 5}, []string{"playthrough_id = $1", "LIMIT $2"}, 2},
		{"session", Filter{SessionID: "s-1"}, []string{"session_id = $1"}, 2},
		{"names and prefix", Filter{Names: []string{"scene.entered"}, Prefix: "scene."},
			[]string{"instance = $1", "name = ANY($2)", "name LIKE $3", "LIMIT $4"}, 4},
		{"since", Filter{PlaythroughID: "pt-1", SessionID: "s-1", Since: time.Unix(0, 0)},
			[]string{"playthrough_id = $1", "session_id = $2", "ts >= $3", "LIMIT $4"}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, args := c.buildQuery(tt.filter)
			for _, want := range tt.contains {
				if !strings.Contains(q, want) {
					t.Errorf("query missing %q:\n%s", want, q)
				}
			}
			if len(args) != tt.args {
				t.Errorf("expected %d args, got %d", tt.args, len(args))
			}
		})
	}
}

func TestEscapeLike(t *testing.T) {
	if got := escapeLike(`scene_%\`); got != `scene\_\%\\` {
		t.Errorf("escapeLike = %q", got)
	}
}

// Runs only when LORECRAFTER_TEST_PG points at a reachable database.
func TestAppendAndQuery(t *testing.T) {
	dsn := os.Getenv("LORECRAFTER_TEST_PG")
	if dsn == "" {
		t.Skip("LORECRAFTER_TEST_PG not set")
	}

	instance := "test-" + time.Now().Format("150405.000000")
	c, err := New(dsn, instance)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c.Close()

	pt := "pt-" + instance
	err = c.Append(Record{
		Time:   time.Now().UTC(),
		Level:  "info",
		Name:   "playthrough.started",
		Fields: map[string]interface{}{"scene_id": "avatar_creation", "playthrough_id": pt, "session_id": "s-1"},
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	ctx := context.Background()
	rows, err := c.Query(ctx, Filter{Limit: 10})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(rows) != 1 || rows[0].Event != "playthrough.started" {
		t.Fatalf("unexpected rows %+v", rows)
	}
	if rows[0].PlaythroughID != pt || rows[0].SessionID != "s-1" {
		t.Errorf("ids not lifted out of fields: %+v", rows[0])
	}

	byPrefix, err := c.Query(ctx, Filter{PlaythroughID: pt, Prefix: "scene."})
	if err != nil {
		t.Fatalf("query prefix: %v", err)
	}
	if len(byPrefix) != 0 {
		t.Errorf("expected no scene events, got %d", len(byPrefix))
	}
}

package sqldb

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestOpenSQLiteAppliesSchemaTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chess.db")
	ctx := context.Background()
	db, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if db.Dialect != SQLite {
		t.Fatalf("dialect = %s", db.Dialect)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO players (id, name, score, created_at, updated_at) VALUES (?, ?, 0, 1, 1)`, "p1", "Alice"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	_ = db.Close()

	again, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer again.Close()
	var n int
	if err := again.QueryRowContext(ctx, `SELECT COUNT(*) FROM players`).Scan(&n); err != nil || n != 1 {
		t.Fatalf("count = %d, %v", n, err)
	}
}

func TestRebind(t *testing.T) {
	pg := &DB{Dialect: Postgres}
	if got := pg.Rebind("UPDATE t SET a = ?, b = ? WHERE id = ?"); got != "UPDATE t SET a = $1, b = $2 WHERE id = $3" {
		t.Fatalf("Rebind = %q", got)
	}
	lite := &DB{Dialect: SQLite}
	if got := lite.Rebind("SELECT ?"); got != "SELECT ?" {
		t.Fatalf("sqlite Rebind = %q", got)
	}
}

func TestMillis(t *testing.T) {
	ts := time.Date(2024, 2, 3, 4, 5, 6, 7_000_000, time.FixedZone("x", 3600))
	if got := FromMillis(ToMillis(ts)); !got.Equal(ts) {
		t.Fatalf("millis round trip: %v vs %v", got, ts)
	}
	if _, err := Open(context.Background(), " "); err == nil {
		t.Fatalf("empty dsn should fail")
	}
}

func TestOpenSQLiteFileURIWithQuery(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "chess.db") + "?cache=shared"
	db, err := Open(context.Background(), dsn)
	if err != nil {
		t.Fatalf("Open(%q): %v", dsn, err)
	}
	defer db.Close()
	var n int
	if err := db.QueryRowContext(context.Background(), `SELECT COUNT(*) FROM players`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
}

func TestSQLiteDSN(t *testing.T) {
	cases := map[string]string{
		"data/chess.db":               "data/chess.db?" + sqlitePragmas,
		"sqlite://data/./chess.db":    "data/chess.db?" + sqlitePragmas,
		"file:/tmp/c.db?cache=shared": "file:/tmp/c.db?cache=shared&" + sqlitePragmas,
		"file:/tmp/c.db":              "file:/tmp/c.db?" + sqlitePragmas,
	}
	for in, want := range cases {
		if got := sqliteDSN(in); got != want {
			t.Fatalf("sqliteDSN(%q) = %q, want %q", in, got, want)
		}
	}
}

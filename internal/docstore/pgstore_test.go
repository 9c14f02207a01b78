package docstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Integration tests against a real PostgreSQL. Set TEST_DATABASE_URL to a
// disposable database; the documents table is recreated.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping PostgreSQL integration test in short mode")
	}
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := NewPool(ctx, url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	for _, name := range []string{"000_drop_all.sql", "001_documents.up.sql"} {
		sql, err := os.ReadFile(filepath.Join("..", "..", "migrations", name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if _, err := pool.Exec(ctx, string(sql)); err != nil {
			t.Fatalf("apply %s: %v", name, err)
		}
	}
	return pool
}

func TestPgStore_Contract(t *testing.T) {
	pool := testPool(t)
	runContract(t, func(t *testing.T) Store {
		if _, err := pool.Exec(context.Background(), `TRUNCATE documents`); err != nil {
			t.Fatalf("truncate: %v", err)
		}
		return NewPgStore(pool)
	})
}

func TestWhere_RendersFilters(t *testing.T) {
	cond, args, err := where(CollectionGroup("users").Where("sourceDonor", "d1").After("a/b"))
	if err != nil {
		t.Fatalf("where: %v", err)
	}
	want := `collection = $1 AND data @> $2::jsonb AND path > $3`
	if cond != want {
		t.Errorf("cond = %q, want %q", cond, want)
	}
	if len(args) != 3 || args[0] != "users" || args[1] != `{"sourceDonor":"d1"}` || args[2] != "a/b" {
		t.Errorf("args = %v", args)
	}
}

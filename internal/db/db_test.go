package db_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"

	"github.com/ethanesterson-creator/SignOut/internal/db"
	"github.com/ethanesterson-creator/SignOut/internal/signout/credential"
)

func openMemDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:dbtest_%s?mode=memory&cache=shared&_pragma=busy_timeout(5000)", t.Name())
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestMigrate_Idempotent(t *testing.T) {
	ctx := context.Background()
	conn := openMemDB(t)

	if err := db.Migrate(ctx, conn); err != nil {
		t.Fatalf("first Migrate: %v", err)
	}
	if err := db.Migrate(ctx, conn); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}

	var n int
	if err := conn.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 applied migration, got %d", n)
	}
}

func TestMigrateFS_OrderAndReport(t *testing.T) {
	ctx := context.Background()
	conn := openMemDB(t)
	fsys := fstest.MapFS{
		"m/0002_more.sql": {Data: []byte("ALTER TABLE t ADD COLUMN b TEXT;")},
		"m/0001_t.sql":    {Data: []byte("CREATE TABLE t (a TEXT);")},
		"m/README":        {Data: []byte("ignored")},
	}

	applied, err := db.MigrateFS(ctx, conn, fsys, "m")
	if err != nil {
		t.Fatalf("MigrateFS: %v", err)
	}
	if len(applied) != 2 || applied[0] != "0001_t.sql" || applied[1] != "0002_more.sql" {
		t.Errorf("unexpected applied %v", applied)
	}

	applied, err = db.MigrateFS(ctx, conn, fsys, "m")
	if err != nil || len(applied) != 0 {
		t.Errorf("expected nothing applied on rerun, got %v (%v)", applied, err)
	}
}

func TestMigrateFS_DuplicateVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"m/0001_a.sql": {Data: []byte("SELECT 1;")},
		"m/01_b.sql":   {Data: []byte("SELECT 1;")},
	}
	if _, err := db.MigrateFS(context.Background(), openMemDB(t), fsys, "m"); err == nil {
		t.Fatal("expected duplicate version error")
	}
}

func TestSeedDev_DoesNotOverwrite(t *testing.T) {
	ctx := context.Background()
	conn := openMemDB(t)
	if err := db.Migrate(ctx, conn); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	if err := db.SeedDev(ctx, conn, db.SeedDevOptions{}); err != nil {
		t.Fatalf("SeedDev: %v", err)
	}
	if _, err := conn.Exec("UPDATE staff SET code = '9999' WHERE name = 'Dev Driver'"); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := db.SeedDev(ctx, conn, db.SeedDevOptions{Staff: []credential.Record{{Name: "Dev Driver", Code: "2222", Active: true}}}); err != nil {
		t.Fatalf("SeedDev again: %v", err)
	}

	var code string
	if err := conn.QueryRow("SELECT code FROM staff WHERE name = 'Dev Driver'").Scan(&code); err != nil {
		t.Fatalf("select: %v", err)
	}
	if code != "9999" {
		t.Errorf("expected existing code kept, got %q", code)
	}
}

func TestWorker_CommitRollbackClose(t *testing.T) {
	ctx := context.Background()
	conn := openMemDB(t)
	if _, err := conn.Exec("CREATE TABLE t (v INTEGER)"); err != nil {
		t.Fatalf("create: %v", err)
	}
	w := db.NewWorker(conn)

	if err := w.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "INSERT INTO t VALUES (1)")
		return err
	}); err != nil {
		t.Fatalf("Do commit: %v", err)
	}

	boom := errors.New("boom")
	if err := w.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "INSERT INTO t VALUES (2)"); err != nil {
			return err
		}
		return boom
	}); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	w.Close()
	w.Close()

	var n int
	if err := conn.QueryRow("SELECT COUNT(*) FROM t").Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 committed row, got %d", n)
	}

	if err := w.Do(ctx, func(context.Context, *sql.Tx) error { return nil }); !errors.Is(err, db.ErrWorkerClosed) {
		t.Errorf("expected ErrWorkerClosed, got %v", err)
	}
}

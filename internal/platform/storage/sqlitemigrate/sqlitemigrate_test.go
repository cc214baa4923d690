package sqlitemigrate

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

const accountsUp = `-- +migrate Up
CREATE TABLE accounts (email TEXT PRIMARY KEY, pass_balance INTEGER NOT NULL DEFAULT 0);
-- +migrate Down
DROP TABLE accounts;
`

func TestApplyMigrationsRecordsApplied(t *testing.T) {
	db := openInMemoryDB(t)

	migrations := fstest.MapFS{
		"001_accounts.sql": &fstest.MapFile{Data: []byte(accountsUp)},
	}

	if err := ApplyMigrations(context.Background(), db, migrations, ""); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	if rows := queryInt64(t, db, "SELECT COUNT(*) FROM schema_migrations"); rows != 1 {
		t.Fatalf("expected 1 migration row, got %d", rows)
	}
	if !tableExists(t, db, "accounts") {
		t.Fatal("expected accounts table to exist")
	}
}

func TestApplyMigrationsIsIdempotentAndOrdered(t *testing.T) {
	db := openInMemoryDB(t)

	migrations := fstest.MapFS{
		"002_requests.sql": &fstest.MapFile{
			Data: []byte("-- +migrate Up\nCREATE TABLE pass_transfer_requests (id INTEGER PRIMARY KEY AUTOINCREMENT, email TEXT NOT NULL REFERENCES accounts(email));"),
		},
		"001_accounts.sql": &fstest.MapFile{Data: []byte(accountsUp)},
	}
	for i := 0; i < 2; i++ {
		if err := ApplyMigrations(context.Background(), db, migrations, ""); err != nil {
			t.Fatalf("apply migrations pass %d: %v", i+1, err)
		}
	}

	names, err := Applied(context.Background(), db)
	if err != nil {
		t.Fatalf("applied: %v", err)
	}
	if len(names) != 2 || names[0] != "001_accounts.sql" || names[1] != "002_requests.sql" {
		t.Fatalf("applied = %v", names)
	}
}

func TestApplyMigrationsDoesNotRecordFailedMigration(t *testing.T) {
	db := openInMemoryDB(t)

	bad := fstest.MapFS{
		"001_accounts.sql": &fstest.MapFile{Data: []byte("-- +migrate Up\nCREAT TABLE accounts(email TEXT);")},
	}
	if err := ApplyMigrations(context.Background(), db, bad, ""); err == nil {
		t.Fatal("expected bad migration to fail")
	}
	if rows := queryInt64(t, db, "SELECT COUNT(*) FROM schema_migrations"); rows != 0 {
		t.Fatalf("expected failed migration to stay unrecorded, got %d rows", rows)
	}

	good := fstest.MapFS{
		"001_accounts.sql": &fstest.MapFile{Data: []byte(accountsUp)},
	}
	if err := ApplyMigrations(context.Background(), db, good, ""); err != nil {
		t.Fatalf("apply fixed migration: %v", err)
	}
	if !tableExists(t, db, "accounts") {
		t.Fatal("expected fixed migration to create table")
	}
}

func TestApplyMigrationsRespectsMigrationRoot(t *testing.T) {
	db := openInMemoryDB(t)

	migrations := fstest.MapFS{
		"ledger/001_accounts.sql": &fstest.MapFile{Data: []byte(accountsUp)},
	}
	if err := ApplyMigrations(context.Background(), db, migrations, "ledger"); err != nil {
		t.Fatalf("apply migrations with root: %v", err)
	}

	names, err := Applied(context.Background(), db)
	if err != nil {
		t.Fatalf("applied: %v", err)
	}
	if len(names) != 1 || names[0] != "ledger/001_accounts.sql" {
		t.Fatalf("expected migration key with root path, got %v", names)
	}
}

func TestApplyMigrationsRequiresDB(t *testing.T) {
	if err := ApplyMigrations(context.Background(), nil, fstest.MapFS{}, ""); err == nil {
		t.Fatal("expected nil db error")
	}
}

func TestExtractUpMigration(t *testing.T) {
	got := ExtractUpMigration(accountsUp)
	if want := "\nCREATE TABLE accounts (email TEXT PRIMARY KEY, pass_balance INTEGER NOT NULL DEFAULT 0);\n"; got != want {
		t.Fatalf("up section = %q, want %q", got, want)
	}
	if got := ExtractUpMigration("SELECT 1;"); got != "SELECT 1;" {
		t.Fatalf("plain content = %q", got)
	}
}

func openInMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Fatalf("close db: %v", err)
		}
	})
	return db
}

func queryInt64(t *testing.T, db *sql.DB, query string) int64 {
	t.Helper()
	var value int64
	if err := db.QueryRow(query).Scan(&value); err != nil {
		t.Fatalf("query int value: %v", err)
	}
	return value
}

func tableExists(t *testing.T, db *sql.DB, tableName string) bool {
	t.Helper()
	var name string
	err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name = ?", tableName).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return false
	}
	if err != nil {
		t.Fatalf("check table exists: %v", err)
	}
	return name == tableName
}

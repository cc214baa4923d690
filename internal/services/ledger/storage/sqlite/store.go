// Package sqlite implements ledger persistence on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sqlitemigrate "github.com/fighterspassapp/dp-pass-app/internal/platform/storage/sqlitemigrate"
	"github.com/fighterspassapp/dp-pass-app/internal/services/ledger/account"
	"github.com/fighterspassapp/dp-pass-app/internal/services/ledger/storage"
	"github.com/fighterspassapp/dp-pass-app/internal/services/ledger/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed persistence for accounts, request queues, and
// the notification outbox.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

var (
	_ storage.Store           = (*Store)(nil)
	_ storage.RequestResolver = (*Store)(nil)
	_ storage.OutboxStore     = (*Store)(nil)
)

type execContexter interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type queryRowContexter interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner func(dest ...any) error

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

// Open opens a ledger SQLite store at the provided path and applies
// migrations. Transactions begin IMMEDIATE so concurrent writers serialize
// at BEGIN instead of failing at commit.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_txlock=immediate"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := ensureForeignKeysEnabled(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	store := &Store{sqlDB: sqlDB, now: time.Now}
	if err := sqlitemigrate.ApplyMigrations(context.Background(), sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

// Close closes the underlying SQLite database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return s.sqlDB.PingContext(ctx)
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}

func (s *Store) clock() time.Time {
	if s.now == nil {
		return time.Now().UTC()
	}
	return s.now().UTC()
}

func ensureForeignKeysEnabled(db *sql.DB) error {
	var enabled int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&enabled); err != nil {
		return fmt.Errorf("check sqlite foreign key pragma: %w", err)
	}
	if enabled != 1 {
		return fmt.Errorf("sqlite foreign keys are disabled")
	}
	return nil
}

// requestTable maps a (kind, type) pair to its queue table.
func requestTable(kind account.ResourceKind, requestType account.RequestType) (string, error) {
	switch {
	case kind == account.KindPass && requestType == account.TypeTransfer:
		return "pass_transfer_requests", nil
	case kind == account.KindPass && requestType == account.TypeIncentive:
		return "incentive_pass_requests", nil
	case kind == account.KindCDNA && requestType == account.TypeTransfer:
		return "cdna_transfer_requests", nil
	case kind == account.KindCDNA && requestType == account.TypeIncentive:
		return "cdna_incentive_requests", nil
	}
	return "", fmt.Errorf("unknown request queue %q/%q", kind, requestType)
}

// balanceColumn maps a kind to its accounts column.
func balanceColumn(kind account.ResourceKind) (string, error) {
	switch kind {
	case account.KindPass:
		return "pass_balance", nil
	case account.KindCDNA:
		return "cdna_balance", nil
	}
	return "", fmt.Errorf("unknown resource kind %q", kind)
}

func accountExists(ctx context.Context, q queryRowContexter, email string) (bool, error) {
	var found int
	err := q.QueryRowContext(ctx, "SELECT 1 FROM accounts WHERE email = ?", email).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check account: %w", err)
	}
	return true, nil
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

func isForeignKeyConstraintError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "foreign key constraint failed")
}

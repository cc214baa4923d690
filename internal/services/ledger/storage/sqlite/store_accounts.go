package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/fighterspassapp/dp-pass-app/internal/services/ledger/account"
	"github.com/fighterspassapp/dp-pass-app/internal/services/ledger/core/filter"
	"github.com/fighterspassapp/dp-pass-app/internal/services/ledger/storage"
)

const accountColumns = `email, name, pass_balance, cdna_balance, is_admin, on_probation, password_digest, password_salt`

// GetAccount returns one account by normalized email.
func (s *Store) GetAccount(ctx context.Context, email string) (account.Account, error) {
	if err := s.ready(ctx); err != nil {
		return account.Account{}, err
	}
	email = account.NormalizeEmail(email)
	if email == "" {
		return account.Account{}, fmt.Errorf("email is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, "SELECT "+accountColumns+" FROM accounts WHERE email = ?", email)
	acct, err := scanAccount(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return account.Account{}, storage.ErrNotFound
		}
		return account.Account{}, fmt.Errorf("get account: %w", err)
	}
	return acct, nil
}

// ListAccounts returns accounts matching an AIP-160 filter, ordered by email.
func (s *Store) ListAccounts(ctx context.Context, filterExpr string) ([]account.Account, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	cond, err := filter.ParseAccountFilter(filterExpr)
	if err != nil {
		return nil, fmt.Errorf("account filter: %w", err)
	}

	query := "SELECT " + accountColumns + " FROM accounts"
	if !cond.Empty() {
		query += " WHERE " + cond.Clause
	}
	query += " ORDER BY email ASC"

	rows, err := s.sqlDB.QueryContext(ctx, query, cond.Params...)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []account.Account
	for rows.Next() {
		acct, scanErr := scanAccount(rows.Scan)
		if scanErr != nil {
			return nil, fmt.Errorf("scan account row: %w", scanErr)
		}
		accounts = append(accounts, acct)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate account rows: %w", err)
	}
	return accounts, nil
}

// PutAccountProfile inserts or updates the provisioned fields of an account.
// The stored credential is left untouched.
func (s *Store) PutAccountProfile(ctx context.Context, profile storage.AccountProfile) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	profile.Email = account.NormalizeEmail(profile.Email)
	profile.Name = strings.TrimSpace(profile.Name)
	if profile.Email == "" {
		return fmt.Errorf("email is required")
	}
	if profile.PassBalance < 0 || profile.CDNABalance < 0 {
		return fmt.Errorf("balances must be non-negative")
	}

	now := toMillis(s.clock())
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO accounts (
	email, name, pass_balance, cdna_balance, is_admin, on_probation, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(email) DO UPDATE SET
	name = excluded.name,
	pass_balance = excluded.pass_balance,
	cdna_balance = excluded.cdna_balance,
	is_admin = excluded.is_admin,
	on_probation = excluded.on_probation,
	updated_at = excluded.updated_at
`,
		profile.Email,
		profile.Name,
		profile.PassBalance,
		profile.CDNABalance,
		boolToInt(profile.IsAdmin),
		boolToInt(profile.OnProbation),
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("put account profile: %w", err)
	}
	return nil
}

// AdjustBalance applies delta in one conditional UPDATE so the balance never
// goes negative or past math.MaxInt64.
func (s *Store) AdjustBalance(ctx context.Context, email string, kind account.ResourceKind, delta int64) (int64, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	column, err := balanceColumn(kind)
	if err != nil {
		return 0, err
	}
	email = account.NormalizeEmail(email)

	var balance int64
	err = s.sqlDB.QueryRowContext(ctx, adjustBalanceQuery(column),
		delta, toMillis(s.clock()), email, creditCeiling(delta), delta,
	).Scan(&balance)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("adjust balance: %w", err)
	}
	exists, existsErr := accountExists(ctx, s.sqlDB, email)
	if existsErr != nil {
		return 0, existsErr
	}
	if !exists {
		return 0, storage.ErrNotFound
	}
	return 0, adjustRejected(delta)
}

// adjustBalanceQuery adds a delta to column only when the result stays
// within [0, math.MaxInt64]. The ceiling check comes first so SQLite never
// evaluates an overflowing sum. Args: delta, updated_at, email, ceiling,
// delta.
func adjustBalanceQuery(column string) string {
	return "UPDATE accounts SET " + column + " = " + column + " + ?, updated_at = ? " +
		"WHERE email = ? AND " + column + " <= ? AND " + column + " + ? >= 0 RETURNING " + column
}

// creditCeiling is the largest balance that can take delta without
// overflowing int64.
func creditCeiling(delta int64) int64 {
	if delta <= 0 {
		return math.MaxInt64
	}
	return math.MaxInt64 - delta
}

// adjustRejected names why a conditional update on an existing account
// matched no row.
func adjustRejected(delta int64) error {
	if delta > 0 {
		return storage.ErrBalanceOverflow
	}
	return storage.ErrInsufficientBalance
}

// SetBalance overwrites a balance.
func (s *Store) SetBalance(ctx context.Context, email string, kind account.ResourceKind, value int64) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if value < 0 {
		return fmt.Errorf("balance must be non-negative")
	}
	column, err := balanceColumn(kind)
	if err != nil {
		return err
	}
	return s.updateAccount(ctx, "set balance",
		"UPDATE accounts SET "+column+" = ?, updated_at = ? WHERE email = ?",
		value, toMillis(s.clock()), account.NormalizeEmail(email),
	)
}

// SetProbation sets or clears the probation flag.
func (s *Store) SetProbation(ctx context.Context, email string, onProbation bool) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return s.updateAccount(ctx, "set probation",
		"UPDATE accounts SET on_probation = ?, updated_at = ? WHERE email = ?",
		boolToInt(onProbation), toMillis(s.clock()), account.NormalizeEmail(email),
	)
}

// SetCredential stores a digest and salt when the account has none.
func (s *Store) SetCredential(ctx context.Context, email string, digest string, salt string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if digest == "" || salt == "" {
		return fmt.Errorf("digest and salt are required")
	}
	email = account.NormalizeEmail(email)
	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE accounts
SET password_digest = ?, password_salt = ?, updated_at = ?
WHERE email = ? AND password_digest = '' AND password_salt = ''
`, digest, salt, toMillis(s.clock()), email)
	if err != nil {
		return fmt.Errorf("set credential: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set credential rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}
	exists, err := accountExists(ctx, s.sqlDB, email)
	if err != nil {
		return err
	}
	if !exists {
		return storage.ErrNotFound
	}
	return storage.ErrConflict
}

// ClearCredential removes the stored digest and salt.
func (s *Store) ClearCredential(ctx context.Context, email string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return s.updateAccount(ctx, "clear credential",
		"UPDATE accounts SET password_digest = '', password_salt = '', updated_at = ? WHERE email = ?",
		toMillis(s.clock()), account.NormalizeEmail(email),
	)
}

func (s *Store) updateAccount(ctx context.Context, op string, query string, args ...any) error {
	result, err := s.sqlDB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanAccount(scan scanner) (account.Account, error) {
	var acct account.Account
	var isAdmin, onProbation int
	if err := scan(
		&acct.Email,
		&acct.Name,
		&acct.PassBalance,
		&acct.CDNABalance,
		&isAdmin,
		&onProbation,
		&acct.PasswordDigest,
		&acct.PasswordSalt,
	); err != nil {
		return account.Account{}, err
	}
	acct.IsAdmin = isAdmin != 0
	acct.OnProbation = onProbation != 0
	if err := acct.Validate(); err != nil {
		return account.Account{}, fmt.Errorf("account integrity: %w", err)
	}
	return acct, nil
}

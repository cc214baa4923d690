package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/fighterspassapp/dp-pass-app/internal/services/ledger/account"
	"github.com/fighterspassapp/dp-pass-app/internal/services/ledger/storage"
)

const requestColumns = `id, email, name, amount, reason, created_at`

// InsertRequest appends a request to its queue and returns the assigned id.
func (s *Store) InsertRequest(ctx context.Context, request account.Request) (int64, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	table, err := requestTable(request.Kind, request.Type)
	if err != nil {
		return 0, err
	}
	request.Email = account.NormalizeEmail(request.Email)
	if request.Email == "" {
		return 0, fmt.Errorf("email is required")
	}
	if request.Amount <= 0 {
		return 0, fmt.Errorf("amount must be positive")
	}
	createdAt := request.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.clock()
	}

	var id int64
	err = s.sqlDB.QueryRowContext(ctx,
		"INSERT INTO "+table+" (email, name, amount, reason, created_at) VALUES (?, ?, ?, ?, ?) RETURNING id",
		request.Email,
		strings.TrimSpace(request.Name),
		request.Amount,
		strings.TrimSpace(request.Reason),
		toMillis(createdAt),
	).Scan(&id)
	if err != nil {
		if isForeignKeyConstraintError(err) {
			return 0, storage.ErrNotFound
		}
		return 0, fmt.Errorf("insert %s: %w", table, err)
	}
	return id, nil
}

// GetRequest returns one queued request.
func (s *Store) GetRequest(ctx context.Context, kind account.ResourceKind, requestType account.RequestType, id int64) (account.Request, error) {
	if err := s.ready(ctx); err != nil {
		return account.Request{}, err
	}
	table, err := requestTable(kind, requestType)
	if err != nil {
		return account.Request{}, err
	}

	row := s.sqlDB.QueryRowContext(ctx, "SELECT "+requestColumns+" FROM "+table+" WHERE id = ?", id)
	request, err := scanRequest(row.Scan, kind, requestType)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return account.Request{}, storage.ErrNotFound
		}
		return account.Request{}, fmt.Errorf("get %s: %w", table, err)
	}
	return request, nil
}

// DeleteRequest removes one queued request.
func (s *Store) DeleteRequest(ctx context.Context, kind account.ResourceKind, requestType account.RequestType, id int64) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	table, err := requestTable(kind, requestType)
	if err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", table, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s rows affected: %w", table, err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListRequests returns one queue oldest first.
func (s *Store) ListRequests(ctx context.Context, kind account.ResourceKind, requestType account.RequestType) ([]account.Request, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	table, err := requestTable(kind, requestType)
	if err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(ctx, "SELECT "+requestColumns+" FROM "+table+" ORDER BY created_at ASC, id ASC")
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	defer rows.Close()

	requests := make([]account.Request, 0)
	for rows.Next() {
		request, scanErr := scanRequest(rows.Scan, kind, requestType)
		if scanErr != nil {
			return nil, fmt.Errorf("scan %s row: %w", table, scanErr)
		}
		requests = append(requests, request)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s rows: %w", table, err)
	}
	return requests, nil
}

// LatestRequest returns the newest request an account has in one queue.
func (s *Store) LatestRequest(ctx context.Context, kind account.ResourceKind, requestType account.RequestType, email string) (account.Request, error) {
	if err := s.ready(ctx); err != nil {
		return account.Request{}, err
	}
	table, err := requestTable(kind, requestType)
	if err != nil {
		return account.Request{}, err
	}

	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT "+requestColumns+" FROM "+table+" WHERE email = ? ORDER BY created_at DESC, id DESC LIMIT 1",
		account.NormalizeEmail(email),
	)
	request, err := scanRequest(row.Scan, kind, requestType)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return account.Request{}, storage.ErrNotFound
		}
		return account.Request{}, fmt.Errorf("latest %s: %w", table, err)
	}
	return request, nil
}

// CountRequests returns the number of queued requests.
func (s *Store) CountRequests(ctx context.Context, kind account.ResourceKind, requestType account.RequestType) (int, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	table, err := requestTable(kind, requestType)
	if err != nil {
		return 0, err
	}
	var count int
	if err := s.sqlDB.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return count, nil
}

// ResolveRequest approves a request in one transaction. The row is deleted
// and the signed amount applied together; a debit that would overdraw or a
// credit that would overflow rolls everything back and leaves the request
// queued.
func (s *Store) ResolveRequest(ctx context.Context, kind account.ResourceKind, requestType account.RequestType, id int64) (storage.Resolution, error) {
	if err := s.ready(ctx); err != nil {
		return storage.Resolution{}, err
	}
	table, err := requestTable(kind, requestType)
	if err != nil {
		return storage.Resolution{}, err
	}
	column, err := balanceColumn(kind)
	if err != nil {
		return storage.Resolution{}, err
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return storage.Resolution{}, fmt.Errorf("start resolve transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	row := tx.QueryRowContext(ctx, "DELETE FROM "+table+" WHERE id = ? RETURNING "+requestColumns, id)
	request, err := scanRequest(row.Scan, kind, requestType)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Resolution{}, storage.ErrNotFound
		}
		return storage.Resolution{}, fmt.Errorf("claim %s %d: %w", table, id, err)
	}

	delta := requestType.Sign() * request.Amount
	now := toMillis(s.clock())
	var balance int64
	err = tx.QueryRowContext(ctx, adjustBalanceQuery(column),
		delta, now, request.Email, creditCeiling(delta), delta,
	).Scan(&balance)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return storage.Resolution{}, fmt.Errorf("apply %s %d: %w", table, id, err)
		}
		exists, existsErr := accountExists(ctx, tx, request.Email)
		if existsErr != nil {
			return storage.Resolution{}, existsErr
		}
		if !exists {
			return storage.Resolution{Request: request}, storage.ErrAccountNotFound
		}
		return storage.Resolution{Request: request}, adjustRejected(delta)
	}

	if err := tx.Commit(); err != nil {
		return storage.Resolution{}, fmt.Errorf("commit resolve transaction: %w", err)
	}
	return storage.Resolution{Request: request, Balance: balance}, nil
}

func scanRequest(scan scanner, kind account.ResourceKind, requestType account.RequestType) (account.Request, error) {
	var request account.Request
	var createdAt int64
	if err := scan(
		&request.ID,
		&request.Email,
		&request.Name,
		&request.Amount,
		&request.Reason,
		&createdAt,
	); err != nil {
		return account.Request{}, err
	}
	request.Kind = kind
	request.Type = requestType
	request.CreatedAt = fromMillis(createdAt)
	return request, nil
}

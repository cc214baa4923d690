package domain

import (
	"context"
	"errors"
	"strconv"

	apperrors "github.com/fighterspassapp/dp-pass-app/internal/platform/errors"
	"github.com/fighterspassapp/dp-pass-app/internal/services/ledger/account"
	"github.com/fighterspassapp/dp-pass-app/internal/services/ledger/core/filter"
	"github.com/fighterspassapp/dp-pass-app/internal/services/ledger/storage"
)

// GetAccount returns the current account row.
func (s *Service) GetAccount(ctx context.Context, email string) (account.Account, error) {
	if err := s.ready(); err != nil {
		return account.Account{}, err
	}
	email = account.NormalizeEmail(email)
	acct, err := s.store.GetAccount(ctx, email)
	if err != nil {
		return account.Account{}, accountError(err, email)
	}
	return acct, nil
}

// GetBalance returns one balance of an account.
func (s *Service) GetBalance(ctx context.Context, email string, kind account.ResourceKind) (int64, error) {
	acct, err := s.GetAccount(ctx, email)
	if err != nil {
		return 0, err
	}
	return acct.Balance(kind), nil
}

// Adjust adds delta to a balance and returns the new value. A debit that
// would go negative or a credit that would overflow fails without writing.
func (s *Service) Adjust(ctx context.Context, email string, kind account.ResourceKind, delta int64) (int64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	email = account.NormalizeEmail(email)
	balance, err := s.store.AdjustBalance(ctx, email, kind, delta)
	if err == nil {
		return balance, nil
	}
	if errors.Is(err, storage.ErrInsufficientBalance) {
		current, getErr := s.GetBalance(ctx, email, kind)
		if getErr != nil {
			return 0, getErr
		}
		return 0, apperrors.InsufficientBalance(kind.Label(), current, -delta)
	}
	if errors.Is(err, storage.ErrBalanceOverflow) {
		return 0, balanceOverflow()
	}
	return 0, accountError(err, email)
}

// SetBalance overwrites a balance. Concurrent writes are last-write-wins.
func (s *Service) SetBalance(ctx context.Context, email string, kind account.ResourceKind, value int64) error {
	if err := s.ready(); err != nil {
		return err
	}
	if value < 0 {
		return apperrors.Validation("balance_whole", "balance must be zero or more")
	}
	email = account.NormalizeEmail(email)
	if err := s.store.SetBalance(ctx, email, kind, value); err != nil {
		return accountError(err, email)
	}
	s.logger.InfoContext(ctx, "balance set",
		"email", email,
		"kind", string(kind),
		"balance", strconv.FormatInt(value, 10),
	)
	return nil
}

// SetProbation sets or clears the probation flag.
func (s *Service) SetProbation(ctx context.Context, email string, onProbation bool) error {
	if err := s.ready(); err != nil {
		return err
	}
	email = account.NormalizeEmail(email)
	if err := s.store.SetProbation(ctx, email, onProbation); err != nil {
		return accountError(err, email)
	}
	s.logger.InfoContext(ctx, "probation set", "email", email, "on_probation", onProbation)
	return nil
}

// ListAccounts returns the roster sorted by last name. filterExpr is an
// optional AIP-160 expression over email, name, passes, cdnas, on_probation,
// and is_admin.
func (s *Service) ListAccounts(ctx context.Context, filterExpr string) ([]account.Account, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if _, err := filter.ParseAccountFilter(filterExpr); err != nil {
		return nil, apperrors.WrapWithMetadata(apperrors.CodeValidation, "invalid account filter", map[string]string{
			"Constraint": "filter",
		}, err)
	}
	accounts, err := s.store.ListAccounts(ctx, filterExpr)
	if err != nil {
		return nil, err
	}
	account.SortByLastName(accounts)
	return accounts, nil
}

// RequireAdmin returns the account when it holds the administrator role.
func (s *Service) RequireAdmin(ctx context.Context, email string) (account.Account, error) {
	acct, err := s.GetAccount(ctx, email)
	if err != nil {
		return account.Account{}, err
	}
	if !acct.IsAdmin {
		return account.Account{}, apperrors.PermissionDenied("administrator role required")
	}
	return acct, nil
}

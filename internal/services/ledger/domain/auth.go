package domain

import (
	"context"
	"errors"

	apperrors "github.com/fighterspassapp/dp-pass-app/internal/platform/errors"
	"github.com/fighterspassapp/dp-pass-app/internal/services/ledger/account"
	"github.com/fighterspassapp/dp-pass-app/internal/services/ledger/credential"
	"github.com/fighterspassapp/dp-pass-app/internal/services/ledger/storage"
)

// LoginOutcome distinguishes a completed sign-in from a first-time account.
type LoginOutcome string

const (
	// LoginSignedIn means the password was verified.
	LoginSignedIn LoginOutcome = "signed_in"
	// LoginNeedsCredentialSetup means the account has no password yet.
	LoginNeedsCredentialSetup LoginOutcome = "needs_credential_setup"
)

// LoginResult is the result of a sign-in attempt.
type LoginResult struct {
	Outcome LoginOutcome
	Account account.Account
}

// Login checks an email and password. Accounts without a credential return
// LoginNeedsCredentialSetup instead of an error.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	if err := s.ready(); err != nil {
		return LoginResult{}, err
	}
	email = account.NormalizeEmail(email)
	acct, err := s.store.GetAccount(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return LoginResult{}, apperrors.AuthFailed("unknown_account", "email not found in system")
	}
	if err != nil {
		return LoginResult{}, err
	}
	if !acct.HasCredential() {
		return LoginResult{Outcome: LoginNeedsCredentialSetup, Account: acct}, nil
	}
	stored := credential.Credential{Digest: acct.PasswordDigest, Salt: acct.PasswordSalt}
	if !credential.Verify(credential.NormalizePassword(password), stored) {
		return LoginResult{}, apperrors.AuthFailed("incorrect_password", "incorrect password")
	}
	return LoginResult{Outcome: LoginSignedIn, Account: acct}, nil
}

// SetCredential stores the first password of an account. An empty
// confirmation skips the match check.
func (s *Service) SetCredential(ctx context.Context, email, password, confirmation string) (account.Account, error) {
	if err := s.ready(); err != nil {
		return account.Account{}, err
	}
	if err := credential.CheckPolicy(password, confirmation); err != nil {
		return account.Account{}, err
	}
	acct, err := s.GetAccount(ctx, email)
	if err != nil {
		return account.Account{}, err
	}
	if acct.HasCredential() {
		return account.Account{}, apperrors.Validation("credential_set", "credential already set")
	}
	cred, err := credential.New(password, s.random)
	if err != nil {
		return account.Account{}, err
	}
	err = s.store.SetCredential(ctx, acct.Email, cred.Digest, cred.Salt)
	if errors.Is(err, storage.ErrConflict) {
		return account.Account{}, apperrors.Validation("credential_set", "credential already set")
	}
	if err != nil {
		return account.Account{}, accountError(err, acct.Email)
	}
	acct.PasswordDigest = cred.Digest
	acct.PasswordSalt = cred.Salt
	s.logger.InfoContext(ctx, "credential set", "email", acct.Email)
	return acct, nil
}

// ResetCredential clears a password so the member sets a new one at next
// sign-in.
func (s *Service) ResetCredential(ctx context.Context, email string) error {
	if err := s.ready(); err != nil {
		return err
	}
	email = account.NormalizeEmail(email)
	if err := s.store.ClearCredential(ctx, email); err != nil {
		return accountError(err, email)
	}
	s.logger.InfoContext(ctx, "credential reset", "email", email)
	return nil
}

package session

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	apperrors "github.com/fighterspassapp/dp-pass-app/internal/platform/errors"
	"github.com/fighterspassapp/dp-pass-app/internal/services/ledger/account"
	"github.com/fxamacker/cbor/v2"
)

// AccountLookup resolves a remembered email to its current account row.
type AccountLookup interface {
	GetAccount(ctx context.Context, email string) (account.Account, error)
}

type rememberedIdentity struct {
	Email        string    `cbor:"1,keyasint"`
	RememberedAt time.Time `cbor:"2,keyasint"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("session: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("session: CBOR decoder initialization failed: " + err.Error())
	}
}

// Manager persists the CLI's signed-in identity in a local file. The account
// itself is re-read on every call.
type Manager struct {
	path     string
	accounts AccountLookup
	now      func() time.Time
}

// NewManager creates a manager backed by path.
func NewManager(path string, accounts AccountLookup, now func() time.Time) *Manager {
	if now == nil {
		now = time.Now
	}
	return &Manager{path: path, accounts: accounts, now: now}
}

// Remember stores email as the signed-in identity.
func (m *Manager) Remember(email string) error {
	email = account.NormalizeEmail(email)
	if email == "" {
		return errors.New("session email is required")
	}
	data, err := encMode.Marshal(rememberedIdentity{Email: email, RememberedAt: m.now().UTC()})
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if dir := filepath.Dir(m.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create session dir: %w", err)
		}
	}
	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

// Forget removes the remembered identity. Forgetting nothing is not an error.
func (m *Manager) Forget() error {
	if err := os.Remove(m.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

// Current returns the remembered account. An email whose account no longer
// exists is forgotten and reported as signed out.
func (m *Manager) Current(ctx context.Context) (account.Account, bool, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return account.Account{}, false, nil
		}
		return account.Account{}, false, fmt.Errorf("read session: %w", err)
	}
	var identity rememberedIdentity
	if err := decMode.Unmarshal(data, &identity); err != nil || identity.Email == "" {
		if forgetErr := m.Forget(); forgetErr != nil {
			return account.Account{}, false, forgetErr
		}
		return account.Account{}, false, nil
	}
	acct, err := m.accounts.GetAccount(ctx, identity.Email)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeNotFound) {
			return account.Account{}, false, m.Forget()
		}
		return account.Account{}, false, err
	}
	return acct, true, nil
}

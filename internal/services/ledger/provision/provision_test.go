package provision

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fighterspassapp/dp-pass-app/internal/services/ledger/storage"
	"github.com/fighterspassapp/dp-pass-app/internal/services/ledger/storage/sqlite"
)

const roster = `
accounts:
  - name: Jane Pilot
    email: " Jane@Example.com "
    passes: 3
    cdnas: 1
  - name: Sam Admin
    email: sam@example.com
    is_admin: true
    on_probation: false
`

func TestLoadRoster(t *testing.T) {
	t.Parallel()

	profiles, err := Load(strings.NewReader(roster))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(profiles) != 2 {
		t.Fatalf("profiles = %+v", profiles)
	}
	if profiles[0].Email != "jane@example.com" || profiles[0].PassBalance != 3 || profiles[0].CDNABalance != 1 {
		t.Fatalf("first = %+v", profiles[0])
	}
	if !profiles[1].IsAdmin {
		t.Fatalf("second = %+v", profiles[1])
	}
}

func TestLoadRejectsInvalidRosters(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"missing email": "accounts:\n  - name: X\n",
		"negative":      "accounts:\n  - email: a@example.com\n    passes: -1\n",
		"duplicate":     "accounts:\n  - email: a@example.com\n  - email: A@example.com\n",
		"unknown key":   "accounts:\n  - email: a@example.com\n    password: hunter2\n",
		"fractional":    "accounts:\n  - email: a@example.com\n    passes: 1.5\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if _, err := Load(strings.NewReader(doc)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoadEmptyDocument(t *testing.T) {
	t.Parallel()

	profiles, err := Load(strings.NewReader(""))
	if err != nil || len(profiles) != 0 {
		t.Fatalf("profiles = %v, err = %v", profiles, err)
	}
}

func TestApplyUpsertsWithoutTouchingCredentials(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := sqlite.Open(filepath.Join(dir, "ledger.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	ctx := context.Background()

	path := filepath.Join(dir, "accounts.yaml")
	if err := os.WriteFile(path, []byte(roster), 0o600); err != nil {
		t.Fatalf("write roster: %v", err)
	}
	profiles, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load file: %v", err)
	}
	if n, err := Apply(ctx, store, profiles); err != nil || n != 2 {
		t.Fatalf("apply = %d, %v", n, err)
	}
	if err := store.SetCredential(ctx, "jane@example.com", "digest", "salt"); err != nil {
		t.Fatalf("set credential: %v", err)
	}

	profiles[0].PassBalance = 9
	if _, err := Apply(ctx, store, profiles); err != nil {
		t.Fatalf("reapply: %v", err)
	}
	acct, err := store.GetAccount(ctx, "jane@example.com")
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if acct.PassBalance != 9 || !acct.HasCredential() {
		t.Fatalf("account = %+v", acct)
	}
}

type failingWriter struct{ err error }

func (w failingWriter) PutAccountProfile(context.Context, storage.AccountProfile) error {
	return w.err
}

func TestApplyStopsAtFirstFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("disk full")
	n, err := Apply(context.Background(), failingWriter{err: boom}, []storage.AccountProfile{{Email: "a@example.com"}})
	if !errors.Is(err, boom) || n != 0 {
		t.Fatalf("apply = %d, %v", n, err)
	}
}

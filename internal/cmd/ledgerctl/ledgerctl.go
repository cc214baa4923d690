// Package ledgerctl implements the ledger command-line client used by members
// and administrators on a host with access to the ledger database.
package ledgerctl

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	entrypoint "github.com/fighterspassapp/dp-pass-app/internal/platform/cmd"
	apperrors "github.com/fighterspassapp/dp-pass-app/internal/platform/errors"
	"github.com/fighterspassapp/dp-pass-app/internal/platform/errors/i18n"
	"github.com/fighterspassapp/dp-pass-app/internal/services/ledger/account"
	"github.com/fighterspassapp/dp-pass-app/internal/services/ledger/domain"
	"github.com/fighterspassapp/dp-pass-app/internal/services/ledger/session"
	ledgersqlite "github.com/fighterspassapp/dp-pass-app/internal/services/ledger/storage/sqlite"
	"github.com/fighterspassapp/dp-pass-app/internal/services/notifications/outbox"
)

// Config holds ledgerctl configuration.
type Config struct {
	DBPath       string `env:"DP_PASS_DB_PATH" envDefault:"data/ledger.db"`
	WorkerDBPath string `env:"DP_PASS_WORKER_DB_PATH" envDefault:"data/worker.db"`
	SessionFile  string `env:"DP_PASS_SESSION_FILE"`
	Locale       string `env:"DP_PASS_LOCALE"`
	LogLevel     string `env:"DP_PASS_LOG_LEVEL" envDefault:"warn"`
}

// LoadConfig reads the environment and fills the session file default.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	if strings.TrimSpace(cfg.SessionFile) == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			dir = "."
		}
		cfg.SessionFile = filepath.Join(dir, "dp-pass", "session.cbor")
	}
	return cfg, nil
}

// App runs ledgerctl commands against one configuration.
type App struct {
	cfg    Config
	out    io.Writer
	in     *bufio.Reader
	logger *slog.Logger
}

// NewApp creates an App writing results to out and reading prompts from in.
func NewApp(cfg Config, out io.Writer, in io.Reader) *App {
	if in == nil {
		in = strings.NewReader("")
	}
	return &App{
		cfg:    cfg,
		out:    out,
		in:     bufio.NewReader(in),
		logger: entrypoint.NewLogger(os.Stderr, entrypoint.ServiceLedgerctl, cfg.LogLevel),
	}
}

// Run executes one command line. Help output is not an error.
func (a *App) Run(ctx context.Context, args []string) error {
	err := a.Root().Execute(ctx, args, a.out)
	if stderrors.Is(err, errHelp) {
		return nil
	}
	return err
}

// Root builds the command tree.
func (a *App) Root() *Command {
	return &Command{
		Name:    entrypoint.ServiceLedgerctl,
		Summary: "Manage pass and CDNA balances and requests.",
		Subcommands: []*Command{
			a.provisionCommand(),
			a.loginCommand(),
			a.logoutCommand(),
			a.whoamiCommand(),
			a.setPasswordCommand(),
			a.balanceCommand(),
			a.requestCommand(),
			a.latestCommand(),
			a.pendingCommand(),
			a.approveCommand(),
			a.denyCommand(),
			a.accountsCommand(),
			a.setBalanceCommand(),
			a.setProbationCommand(),
			a.resetCredentialCommand(),
			a.deliveriesCommand(),
		},
	}
}

// ledger is one open database plus the services built on it.
type ledger struct {
	store    *ledgersqlite.Store
	service  *domain.Service
	sessions *session.Manager
}

// withLedger opens the ledger database for the duration of fn.
func (a *App) withLedger(fn func(l ledger) error) error {
	if dir := filepath.Dir(a.cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := ledgersqlite.Open(a.cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open ledger database: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			a.logger.Warn("close ledger database", "error", closeErr)
		}
	}()
	service := domain.NewService(store,
		domain.WithSink(outbox.NewSink(store, nil, nil)),
		domain.WithLogger(a.logger),
	)
	return fn(ledger{
		store:    store,
		service:  service,
		sessions: session.NewManager(a.cfg.SessionFile, service, nil),
	})
}

// withMember runs fn for the signed-in account.
func (a *App) withMember(ctx context.Context, fn func(l ledger, me account.Account) error) error {
	return a.withLedger(func(l ledger) error {
		me, ok, err := l.sessions.Current(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.AuthFailed("session_required", "not signed in")
		}
		return fn(l, me)
	})
}

// withAdmin runs fn when the signed-in account is an administrator.
func (a *App) withAdmin(ctx context.Context, fn func(l ledger, me account.Account) error) error {
	return a.withMember(ctx, func(l ledger, me account.Account) error {
		if _, err := l.service.RequireAdmin(ctx, me.Email); err != nil {
			return err
		}
		return fn(l, me)
	})
}

// prompt returns value when set, otherwise reads one line from input.
func (a *App) prompt(label, value string) (string, error) {
	if value != "" {
		return value, nil
	}
	fmt.Fprintf(a.out, "%s: ", label)
	line, err := a.in.ReadString('\n')
	if err != nil && !stderrors.Is(err, io.EOF) {
		return "", fmt.Errorf("read %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// parseWhole parses a whole-number flag value.
func parseWhole(value, constraint string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0, apperrors.Validation(constraint, fmt.Sprintf("%q is not a whole number", value))
	}
	return n, nil
}

// FormatError renders err for a terminal, localizing domain errors.
func FormatError(err error, locale string) string {
	var appErr *apperrors.Error
	if !stderrors.As(err, &appErr) {
		return err.Error()
	}
	return i18n.GetCatalog(locale).Format(string(appErr.Code), appErr.Metadata)
}

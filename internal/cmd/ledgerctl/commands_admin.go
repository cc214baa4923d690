package ledgerctl

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"

	apperrors "github.com/fighterspassapp/dp-pass-app/internal/platform/errors"
	"github.com/fighterspassapp/dp-pass-app/internal/services/ledger/account"
	"github.com/fighterspassapp/dp-pass-app/internal/services/ledger/domain"
	workersqlite "github.com/fighterspassapp/dp-pass-app/internal/services/worker/storage/sqlite"
	"github.com/spf13/pflag"
)

func (a *App) pendingCommand() *Command {
	var kind, requestType string
	return &Command{
		Name:    "pending",
		Summary: "List a pending request queue, oldest first",
		Flags:   queueFlags("pending", &kind, &requestType),
		Run: func(ctx context.Context, _ []string) error {
			k, t, err := parseQueue(kind, requestType)
			if err != nil {
				return err
			}
			return a.withAdmin(ctx, func(l ledger, _ account.Account) error {
				requests, err := l.service.ListPending(ctx, k, t)
				if err != nil {
					return err
				}
				if len(requests) == 0 {
					fmt.Fprintln(a.out, "No pending requests")
					return nil
				}
				printRequests(a, requests)
				return nil
			})
		},
	}
}

func requestFlags(name string, kind, requestType *string, id *int64) func() *pflag.FlagSet {
	return func() *pflag.FlagSet {
		fs := queueFlags(name, kind, requestType)()
		fs.Int64Var(id, "id", 0, "request id")
		return fs
	}
}

func (a *App) approveCommand() *Command {
	var kind, requestType string
	var id int64
	return &Command{
		Name:    "approve",
		Summary: "Approve a request and apply it to the balance",
		Flags:   requestFlags("approve", &kind, &requestType, &id),
		Run: func(ctx context.Context, _ []string) error {
			k, t, err := parseQueue(kind, requestType)
			if err != nil {
				return err
			}
			return a.withAdmin(ctx, func(l ledger, _ account.Account) error {
				var approval domain.Approval
				if t == account.TypeTransfer {
					approval, err = l.service.ApproveTransfer(ctx, k, id)
				} else {
					approval, err = l.service.ApproveIncentive(ctx, k, id)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Approved #%d for %s. New %s balance: %d\n",
					approval.Request.ID, approval.Request.Name, k.Label(), approval.Balance)
				return nil
			})
		},
	}
}

func (a *App) denyCommand() *Command {
	var kind, requestType string
	var id int64
	return &Command{
		Name:    "deny",
		Summary: "Deny a request without changing any balance",
		Flags:   requestFlags("deny", &kind, &requestType, &id),
		Run: func(ctx context.Context, _ []string) error {
			k, t, err := parseQueue(kind, requestType)
			if err != nil {
				return err
			}
			return a.withAdmin(ctx, func(l ledger, _ account.Account) error {
				if err := l.service.Deny(ctx, k, t, id); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Denied #%d\n", id)
				return nil
			})
		},
	}
}

func (a *App) accountsCommand() *Command {
	var filter string
	return &Command{
		Name:    "accounts",
		Summary: "List accounts sorted by last name",
		Flags: func() *pflag.FlagSet {
			fs := newFlagSet("accounts")
			fs.StringVar(&filter, "filter", "", `filter expression, e.g. 'on_probation = true'`)
			return fs
		},
		Run: func(ctx context.Context, _ []string) error {
			return a.withAdmin(ctx, func(l ledger, _ account.Account) error {
				accounts, err := l.service.ListAccounts(ctx, filter)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(a.out, 2, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "NAME\tEMAIL\tPASSES\tCDNAS\tADMIN\tPROBATION")
				for _, acct := range accounts {
					fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\n", acct.Name, acct.Email, acct.PassBalance, acct.CDNABalance,
						yesNo(acct.IsAdmin), yesNo(acct.OnProbation))
				}
				return tw.Flush()
			})
		},
	}
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func (a *App) setBalanceCommand() *Command {
	var email, kind, value string
	return &Command{
		Name:    "set-balance",
		Summary: "Overwrite a balance",
		Flags: func() *pflag.FlagSet {
			fs := newFlagSet("set-balance")
			fs.StringVar(&email, "email", "", "account email")
			fs.StringVar(&kind, "kind", "pass", "pass or cdna")
			fs.StringVar(&value, "value", "", "new balance (0 or more)")
			return fs
		},
		Run: func(ctx context.Context, _ []string) error {
			k, err := account.ParseResourceKind(kind)
			if err != nil {
				return err
			}
			n, err := parseWhole(value, "balance_whole")
			if err != nil {
				return err
			}
			return a.withAdmin(ctx, func(l ledger, _ account.Account) error {
				if err := l.service.SetBalance(ctx, email, k, n); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "%s balance for %s set to %d\n", k.Label(), account.NormalizeEmail(email), n)
				return nil
			})
		},
	}
}

func (a *App) setProbationCommand() *Command {
	var email, state string
	return &Command{
		Name:    "set-probation",
		Summary: "Put an account on or off probation",
		Flags: func() *pflag.FlagSet {
			fs := newFlagSet("set-probation")
			fs.StringVar(&email, "email", "", "account email")
			fs.StringVar(&state, "on", "true", "true to place on probation, false to lift it")
			return fs
		},
		Run: func(ctx context.Context, _ []string) error {
			on, err := strconv.ParseBool(state)
			if err != nil {
				return apperrors.Validation("probation", fmt.Sprintf("%q is not true or false", state))
			}
			return a.withAdmin(ctx, func(l ledger, _ account.Account) error {
				if err := l.service.SetProbation(ctx, email, on); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Probation for %s: %s\n", account.NormalizeEmail(email), yesNo(on))
				return nil
			})
		},
	}
}

func (a *App) resetCredentialCommand() *Command {
	var email string
	return &Command{
		Name:    "reset-credential",
		Summary: "Clear a password so the member can set a new one",
		Flags: func() *pflag.FlagSet {
			fs := newFlagSet("reset-credential")
			fs.StringVar(&email, "email", "", "account email")
			return fs
		},
		Run: func(ctx context.Context, _ []string) error {
			return a.withAdmin(ctx, func(l ledger, _ account.Account) error {
				if err := l.service.ResetCredential(ctx, email); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Password cleared for %s\n", account.NormalizeEmail(email))
				return nil
			})
		},
	}
}

func (a *App) deliveriesCommand() *Command {
	var limit int
	return &Command{
		Name:    "deliveries",
		Summary: "Show recent notification delivery attempts",
		Flags: func() *pflag.FlagSet {
			fs := newFlagSet("deliveries")
			fs.IntVar(&limit, "limit", 20, "number of attempts to show")
			return fs
		},
		Run: func(ctx context.Context, _ []string) error {
			return a.withAdmin(ctx, func(ledger, account.Account) error {
				store, err := workersqlite.Open(a.cfg.WorkerDBPath)
				if err != nil {
					return fmt.Errorf("open worker database: %w", err)
				}
				defer store.Close()
				attempts, err := store.ListAttempts(ctx, limit)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(a.out, 2, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "TIME\tEVENT\tTYPE\tOUTCOME\tATTEMPT\tERROR")
				for _, attempt := range attempts {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n", attempt.CreatedAt.Local().Format("2006-01-02 15:04:05"),
						attempt.EventID, attempt.EventType, attempt.Outcome, attempt.AttemptCount, attempt.LastError)
				}
				return tw.Flush()
			})
		},
	}
}

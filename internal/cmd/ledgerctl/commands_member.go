package ledgerctl

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/fighterspassapp/dp-pass-app/internal/services/ledger/account"
	"github.com/fighterspassapp/dp-pass-app/internal/services/ledger/domain"
	"github.com/fighterspassapp/dp-pass-app/internal/services/ledger/provision"
	"github.com/spf13/pflag"
)

func newFlagSet(name string) *pflag.FlagSet {
	return pflag.NewFlagSet(name, pflag.ContinueOnError)
}

func (a *App) provisionCommand() *Command {
	var file string
	return &Command{
		Name:    "provision",
		Summary: "Create or update accounts from a YAML roster",
		Flags: func() *pflag.FlagSet {
			fs := newFlagSet("provision")
			fs.StringVarP(&file, "file", "f", "accounts.yaml", "roster file")
			return fs
		},
		Run: func(ctx context.Context, _ []string) error {
			profiles, err := provision.LoadFile(file)
			if err != nil {
				return err
			}
			return a.withLedger(func(l ledger) error {
				n, err := provision.Apply(ctx, l.store, profiles)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "provisioned %d account(s)\n", n)
				return nil
			})
		},
	}
}

func (a *App) loginCommand() *Command {
	var email, password string
	return &Command{
		Name:    "login",
		Summary: "Sign in and remember the account",
		Flags: func() *pflag.FlagSet {
			fs := newFlagSet("login")
			fs.StringVar(&email, "email", "", "account email")
			fs.StringVar(&password, "password", "", "password (prompted when empty)")
			return fs
		},
		Run: func(ctx context.Context, _ []string) error {
			email, err := a.prompt("Email", email)
			if err != nil {
				return err
			}
			return a.withLedger(func(l ledger) error {
				acct, err := l.service.GetAccount(ctx, email)
				if err == nil && !acct.HasCredential() {
					fmt.Fprintln(a.out, "No password is set for this account. Run 'ledgerctl set-password'.")
					return nil
				}
				secret, err := a.prompt("Password", password)
				if err != nil {
					return err
				}
				result, err := l.service.Login(ctx, email, secret)
				if err != nil {
					return err
				}
				if result.Outcome == domain.LoginNeedsCredentialSetup {
					fmt.Fprintln(a.out, "No password is set for this account. Run 'ledgerctl set-password'.")
					return nil
				}
				if err := l.sessions.Remember(result.Account.Email); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Signed in as %s\n", result.Account.Name)
				return nil
			})
		},
	}
}

func (a *App) logoutCommand() *Command {
	return &Command{
		Name:    "logout",
		Summary: "Forget the remembered account",
		Run: func(context.Context, []string) error {
			return a.withLedger(func(l ledger) error {
				if err := l.sessions.Forget(); err != nil {
					return err
				}
				fmt.Fprintln(a.out, "Signed out")
				return nil
			})
		},
	}
}

func (a *App) whoamiCommand() *Command {
	return &Command{
		Name:    "whoami",
		Summary: "Show the signed-in account",
		Run: func(ctx context.Context, _ []string) error {
			return a.withLedger(func(l ledger) error {
				me, ok, err := l.sessions.Current(ctx)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(a.out, "Not signed in")
					return nil
				}
				role := "member"
				if me.IsAdmin {
					role = "administrator"
				}
				fmt.Fprintf(a.out, "%s <%s> (%s)\n", me.Name, me.Email, role)
				return nil
			})
		},
	}
}

func (a *App) setPasswordCommand() *Command {
	var email, password, confirm string
	return &Command{
		Name:    "set-password",
		Summary: "Set the first password of an account and sign in",
		Flags: func() *pflag.FlagSet {
			fs := newFlagSet("set-password")
			fs.StringVar(&email, "email", "", "account email")
			fs.StringVar(&password, "password", "", "new password (prompted when empty)")
			fs.StringVar(&confirm, "confirm", "", "password confirmation (prompted when empty)")
			return fs
		},
		Run: func(ctx context.Context, _ []string) error {
			email, err := a.prompt("Email", email)
			if err != nil {
				return err
			}
			secret, err := a.prompt("Password", password)
			if err != nil {
				return err
			}
			confirmation, err := a.prompt("Confirm password", confirm)
			if err != nil {
				return err
			}
			return a.withLedger(func(l ledger) error {
				acct, err := l.service.SetCredential(ctx, email, secret, confirmation)
				if err != nil {
					return err
				}
				if err := l.sessions.Remember(acct.Email); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Password set. Signed in as %s\n", acct.Name)
				return nil
			})
		},
	}
}

func (a *App) balanceCommand() *Command {
	return &Command{
		Name:    "balance",
		Summary: "Show your pass and CDNA balances",
		Run: func(ctx context.Context, _ []string) error {
			return a.withMember(ctx, func(_ ledger, me account.Account) error {
				fmt.Fprintf(a.out, "Passes: %d\nCDNAs: %d\n", me.PassBalance, me.CDNABalance)
				if me.OnProbation {
					fmt.Fprintln(a.out, "On probation: pass transfers are unavailable")
				}
				return nil
			})
		},
	}
}

func (a *App) requestCommand() *Command {
	var kind, amount, reason string
	kindFlags := func(name string, withReason bool) func() *pflag.FlagSet {
		return func() *pflag.FlagSet {
			fs := newFlagSet(name)
			fs.StringVar(&kind, "kind", "pass", "pass or cdna")
			fs.StringVar(&amount, "amount", "", "whole number to request")
			if withReason {
				fs.StringVar(&reason, "reason", "", "why the incentive is deserved")
			}
			return fs
		}
	}
	return &Command{
		Name:    "request",
		Summary: "Submit a transfer or incentive request",
		Subcommands: []*Command{
			{
				Name:    "transfer",
				Summary: "Request to spend from your balance",
				Flags:   kindFlags("transfer", false),
				Run: func(ctx context.Context, _ []string) error {
					return a.submit(ctx, kind, amount, func(l ledger, me account.Account, k account.ResourceKind, n int64) (account.Request, error) {
						return l.service.SubmitTransfer(ctx, me.Email, k, n)
					})
				},
			},
			{
				Name:    "incentive",
				Summary: "Request an incentive credit",
				Flags:   kindFlags("incentive", true),
				Run: func(ctx context.Context, _ []string) error {
					return a.submit(ctx, kind, amount, func(l ledger, me account.Account, k account.ResourceKind, n int64) (account.Request, error) {
						return l.service.SubmitIncentive(ctx, me.Email, k, n, reason)
					})
				},
			},
		},
	}
}

type submitFunc func(l ledger, me account.Account, kind account.ResourceKind, amount int64) (account.Request, error)

func (a *App) submit(ctx context.Context, rawKind, rawAmount string, submit submitFunc) error {
	kind, err := account.ParseResourceKind(rawKind)
	if err != nil {
		return err
	}
	amount, err := parseWhole(rawAmount, "amount_positive")
	if err != nil {
		return err
	}
	return a.withMember(ctx, func(l ledger, me account.Account) error {
		request, err := submit(l, me, kind, amount)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Submitted %s %s request #%d for %d\n", request.Kind, request.Type, request.ID, request.Amount)
		return nil
	})
}

func (a *App) latestCommand() *Command {
	var kind, requestType string
	return &Command{
		Name:    "latest",
		Summary: "Show your most recent pending request",
		Flags:   queueFlags("latest", &kind, &requestType),
		Run: func(ctx context.Context, _ []string) error {
			k, t, err := parseQueue(kind, requestType)
			if err != nil {
				return err
			}
			return a.withMember(ctx, func(l ledger, me account.Account) error {
				request, found, err := l.service.FindLatestByAccount(ctx, me.Email, k, t)
				if err != nil {
					return err
				}
				if !found {
					fmt.Fprintln(a.out, "No pending request")
					return nil
				}
				printRequests(a, []account.Request{request})
				return nil
			})
		},
	}
}

func queueFlags(name string, kind, requestType *string) func() *pflag.FlagSet {
	return func() *pflag.FlagSet {
		fs := newFlagSet(name)
		fs.StringVar(kind, "kind", "pass", "pass or cdna")
		fs.StringVar(requestType, "type", "transfer", "transfer or incentive")
		return fs
	}
}

func parseQueue(kind, requestType string) (account.ResourceKind, account.RequestType, error) {
	k, err := account.ParseResourceKind(kind)
	if err != nil {
		return "", "", err
	}
	t, err := account.ParseRequestType(requestType)
	if err != nil {
		return "", "", err
	}
	return k, t, nil
}

func printRequests(a *App, requests []account.Request) {
	tw := tabwriter.NewWriter(a.out, 2, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tAMOUNT\tREASON\tCREATED")
	for _, r := range requests {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\n", r.ID, r.Name, r.Email, r.Amount, r.Reason, r.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	tw.Flush()
}

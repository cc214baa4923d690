// Package main runs the ledger command-line client.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fighterspassapp/dp-pass-app/internal/cmd/ledgerctl"
	"github.com/fighterspassapp/dp-pass-app/internal/platform/config"
)

func main() {
	cfg, err := ledgerctl.LoadConfig()
	if err != nil {
		config.Exitf("ledgerctl", "load config: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := ledgerctl.NewApp(cfg, os.Stdout, os.Stdin).Run(ctx, os.Args[1:]); err != nil {
		stop()
		config.Exitf("ledgerctl", "%s", ledgerctl.FormatError(err, cfg.Locale))
	}
}

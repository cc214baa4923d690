// Package ledger parses ledger command flags and starts the ledger service.
package ledger

import (
	"context"
	"errors"
	"flag"
	"os"
	"strings"

	entrypoint "github.com/fighterspassapp/dp-pass-app/internal/platform/cmd"
	server "github.com/fighterspassapp/dp-pass-app/internal/services/ledger/app"
)

// Config holds ledger command configuration.
type Config struct {
	GRPCPort         int    `env:"DP_PASS_LEDGER_GRPC_PORT" envDefault:"8091"`
	HTTPAddr         string `env:"DP_PASS_LEDGER_HTTP_ADDR" envDefault:":8090"`
	DBPath           string `env:"DP_PASS_DB_PATH" envDefault:"data/ledger.db"`
	SessionSecret    string `env:"DP_PASS_SESSION_SECRET"`
	MaxConnections   int    `env:"DP_PASS_LEDGER_MAX_CONNECTIONS" envDefault:"256"`
	StepwiseApproval bool   `env:"DP_PASS_LEDGER_STEPWISE_APPROVAL"`
	LogLevel         string `env:"DP_PASS_LOG_LEVEL" envDefault:"info"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.GRPCPort, "port", cfg.GRPCPort, "The ledger gRPC health server port")
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "The ledger HTTP API address")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The ledger SQLite database path")
	fs.IntVar(&cfg.MaxConnections, "max-connections", cfg.MaxConnections, "Maximum concurrent HTTP connections (0 for unlimited)")
	fs.BoolVar(&cfg.StepwiseApproval, "stepwise-approval", cfg.StepwiseApproval, "Apply approvals as a balance write followed by a request delete")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the ledger server.
func Run(ctx context.Context, cfg Config) error {
	if strings.TrimSpace(cfg.SessionSecret) == "" {
		return errors.New("DP_PASS_SESSION_SECRET is required")
	}
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceLedger, func(context.Context) error {
		return server.Run(ctx, server.Config{
			GRPCPort:         cfg.GRPCPort,
			HTTPAddr:         cfg.HTTPAddr,
			DBPath:           cfg.DBPath,
			SessionSecret:    cfg.SessionSecret,
			MaxConnections:   cfg.MaxConnections,
			StepwiseApproval: cfg.StepwiseApproval,
			Logger:           entrypoint.NewLogger(os.Stderr, entrypoint.ServiceLedger, cfg.LogLevel),
		})
	})
}

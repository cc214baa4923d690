// Package worker parses worker command flags and launches the worker runtime.
package worker

import (
	"context"
	"flag"
	"os"
	"time"

	entrypoint "github.com/fighterspassapp/dp-pass-app/internal/platform/cmd"
	"github.com/fighterspassapp/dp-pass-app/internal/platform/config"
	"github.com/fighterspassapp/dp-pass-app/internal/platform/discovery"
	"github.com/fighterspassapp/dp-pass-app/internal/services/notifications/emailjs"
	workerserver "github.com/fighterspassapp/dp-pass-app/internal/services/worker/app"
)

// Config holds worker command configuration.
type Config struct {
	Port              int           `env:"DP_PASS_WORKER_PORT" envDefault:"8092"`
	LedgerAddr        string        `env:"DP_PASS_WORKER_LEDGER_ADDR"`
	LedgerDBPath      string        `env:"DP_PASS_DB_PATH" envDefault:"data/ledger.db"`
	DBPath            string        `env:"DP_PASS_WORKER_DB_PATH" envDefault:"data/worker.db"`
	Consumer          string        `env:"DP_PASS_WORKER_CONSUMER" envDefault:"worker-notifications"`
	PollInterval      time.Duration `env:"DP_PASS_WORKER_POLL_INTERVAL" envDefault:"2s"`
	LeaseTTL          time.Duration `env:"DP_PASS_WORKER_LEASE_TTL" envDefault:"30s"`
	MaxAttempts       int           `env:"DP_PASS_WORKER_MAX_ATTEMPTS" envDefault:"8"`
	RetryBackoff      time.Duration `env:"DP_PASS_WORKER_RETRY_BACKOFF" envDefault:"5s"`
	RetryMaxDelay     time.Duration `env:"DP_PASS_WORKER_RETRY_MAX_DELAY" envDefault:"5m"`
	DigestInterval    time.Duration `env:"DP_PASS_DIGEST_INTERVAL" envDefault:"168h"`
	GRPCDialTimeout   time.Duration `env:"DP_PASS_WORKER_DIAL_TIMEOUT" envDefault:"2s"`
	NotifyEmails      string        `env:"DP_PASS_NOTIFY_EMAILS"`
	Locale            string        `env:"DP_PASS_LOCALE" envDefault:"en-US"`
	LogLevel          string        `env:"DP_PASS_LOG_LEVEL" envDefault:"info"`
	EmailJSEndpoint   string        `env:"DP_PASS_EMAILJS_ENDPOINT"`
	EmailJSServiceID  string        `env:"DP_PASS_EMAILJS_SERVICE_ID"`
	EmailJSTemplateID string        `env:"DP_PASS_EMAILJS_TEMPLATE_ID"`
	EmailJSPublicKey  string        `env:"DP_PASS_EMAILJS_PUBLIC_KEY"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	cfg.LedgerAddr = discovery.OrDefaultGRPCAddr(cfg.LedgerAddr, discovery.ServiceLedger)
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The worker health gRPC server port")
	fs.StringVar(&cfg.LedgerAddr, "ledger-addr", cfg.LedgerAddr, "The ledger gRPC health address; empty skips the wait")
	fs.StringVar(&cfg.LedgerDBPath, "ledger-db-path", cfg.LedgerDBPath, "The ledger SQLite database path")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The worker SQLite database path")
	fs.StringVar(&cfg.Consumer, "consumer", cfg.Consumer, "Notification outbox consumer name")
	fs.DurationVar(&cfg.PollInterval, "poll-interval", cfg.PollInterval, "Notification outbox poll interval")
	fs.DurationVar(&cfg.LeaseTTL, "lease-ttl", cfg.LeaseTTL, "Notification outbox lease duration")
	fs.IntVar(&cfg.MaxAttempts, "max-attempts", cfg.MaxAttempts, "Maximum delivery attempts before dead-letter")
	fs.DurationVar(&cfg.RetryBackoff, "retry-backoff", cfg.RetryBackoff, "Base retry backoff delay")
	fs.DurationVar(&cfg.RetryMaxDelay, "retry-max-delay", cfg.RetryMaxDelay, "Maximum retry delay")
	fs.DurationVar(&cfg.DigestInterval, "digest-interval", cfg.DigestInterval, "How often pending pass transfers are summarized")
	fs.DurationVar(&cfg.GRPCDialTimeout, "dial-timeout", cfg.GRPCDialTimeout, "gRPC dependency dial timeout")
	fs.StringVar(&cfg.NotifyEmails, "notify-emails", cfg.NotifyEmails, "Comma-separated administrator emails")
	fs.StringVar(&cfg.Locale, "locale", cfg.Locale, "Notification locale")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the worker runtime.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceWorker, func(context.Context) error {
		return workerserver.Run(ctx, workerserver.RuntimeConfig{
			Port:            cfg.Port,
			LedgerAddr:      cfg.LedgerAddr,
			LedgerDBPath:    cfg.LedgerDBPath,
			DBPath:          cfg.DBPath,
			Consumer:        cfg.Consumer,
			PollInterval:    cfg.PollInterval,
			LeaseTTL:        cfg.LeaseTTL,
			MaxAttempts:     cfg.MaxAttempts,
			RetryBackoff:    cfg.RetryBackoff,
			RetryMaxDelay:   cfg.RetryMaxDelay,
			DigestInterval:  cfg.DigestInterval,
			GRPCDialTimeout: cfg.GRPCDialTimeout,
			Recipients:      config.SplitList(cfg.NotifyEmails),
			Locale:          cfg.Locale,
			EmailJS: emailjs.Config{
				Endpoint:   cfg.EmailJSEndpoint,
				ServiceID:  cfg.EmailJSServiceID,
				TemplateID: cfg.EmailJSTemplateID,
				PublicKey:  cfg.EmailJSPublicKey,
			},
			Logger: entrypoint.NewLogger(os.Stderr, entrypoint.ServiceWorker, cfg.LogLevel),
		})
	})
}

// Package app wires the notification worker: it drains the ledger outbox,
// emails administrators, and queues the weekly FalconNet digest.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	platformgrpc "github.com/fighterspassapp/dp-pass-app/internal/platform/grpc"
	"github.com/fighterspassapp/dp-pass-app/internal/platform/timeouts"
	ledgersqlite "github.com/fighterspassapp/dp-pass-app/internal/services/ledger/storage/sqlite"
	"github.com/fighterspassapp/dp-pass-app/internal/services/notifications/emailjs"
	"github.com/fighterspassapp/dp-pass-app/internal/services/notifications/outbox"
	"github.com/fighterspassapp/dp-pass-app/internal/services/notifications/render"
	workerdomain "github.com/fighterspassapp/dp-pass-app/internal/services/worker/domain"
	workersqlite "github.com/fighterspassapp/dp-pass-app/internal/services/worker/storage/sqlite"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

// RuntimeConfig controls worker startup, dependencies, and loop behavior.
type RuntimeConfig struct {
	Port            int
	LedgerAddr      string
	LedgerDBPath    string
	DBPath          string
	Consumer        string
	PollInterval    time.Duration
	LeaseTTL        time.Duration
	MaxAttempts     int
	RetryBackoff    time.Duration
	RetryMaxDelay   time.Duration
	DigestInterval  time.Duration
	GRPCDialTimeout time.Duration
	Recipients      []string
	Locale          string
	EmailJS         emailjs.Config
	Logger          *slog.Logger
}

const (
	defaultWorkerPort = 8092
	defaultWorkerDB   = "data/worker.db"
	defaultLedgerDB   = "data/ledger.db"
)

// Run starts worker runtime dependencies and the background processing loop.
func Run(ctx context.Context, cfg RuntimeConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg = cfg.normalized()
	logger := cfg.Logger

	for _, path := range []string{cfg.DBPath, cfg.LedgerDBPath} {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create storage dir: %w", err)
			}
		}
	}

	// The ledger owns its schema; wait for it before touching the shared file.
	if cfg.LedgerAddr != "" {
		ledgerConn, err := platformgrpc.DialWithHealth(
			ctx,
			cfg.LedgerAddr,
			max(cfg.GRPCDialTimeout, timeouts.HealthWait),
			func(format string, args ...any) { logger.Info(fmt.Sprintf(format, args...)) },
		)
		if err != nil {
			return fmt.Errorf("wait for ledger service: %w", err)
		}
		if closeErr := ledgerConn.Close(); closeErr != nil {
			logger.Warn("close ledger connection", "error", closeErr)
		}
	}

	ledgerStore, err := ledgersqlite.Open(cfg.LedgerDBPath)
	if err != nil {
		return fmt.Errorf("open ledger sqlite store: %w", err)
	}
	defer func() {
		if closeErr := ledgerStore.Close(); closeErr != nil {
			logger.Warn("close ledger sqlite store", "error", closeErr)
		}
	}()

	workerStore, err := workersqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open worker sqlite store: %w", err)
	}
	defer func() {
		if closeErr := workerStore.Close(); closeErr != nil {
			logger.Warn("close worker sqlite store", "error", closeErr)
		}
	}()

	handler := workerdomain.NewEmailHandler(
		newSender(cfg.EmailJS, logger),
		cfg.Recipients,
		message.NewPrinter(language.Make(cfg.Locale)),
	)
	workerLoop := New(
		ledgerStore,
		map[string]EventHandler{
			render.EventRequestSubmitted: handler,
			render.EventWeeklyDigest:     handler,
		},
		workerStore,
		Config{
			Consumer:      cfg.Consumer,
			PollInterval:  cfg.PollInterval,
			LeaseTTL:      cfg.LeaseTTL,
			MaxAttempts:   cfg.MaxAttempts,
			RetryBackoff:  cfg.RetryBackoff,
			RetryMaxDelay: cfg.RetryMaxDelay,
		},
		nil,
	).WithLogger(logger)

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return fmt.Errorf("listen on worker port %d: %w", cfg.Port, err)
	}
	defer listener.Close()

	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus("worker.runtime", grpc_health_v1.HealthCheckResponse_SERVING)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- grpcServer.Serve(listener)
	}()
	defer func() {
		healthServer.Shutdown()
		grpcServer.GracefulStop()
		<-serveErr
	}()

	digest := NewDigest(ledgerStore, outbox.NewSink(ledgerStore, nil, nil), nil)
	digestDone := make(chan struct{})
	go func() {
		defer close(digestDone)
		digest.Run(ctx, cfg.DigestInterval, func(format string, args ...any) {
			logger.Error(fmt.Sprintf(format, args...))
		})
	}()
	defer func() { <-digestDone }()

	logger.Info("worker listening", "addr", listener.Addr().String(), "consumer", cfg.Consumer, "recipients", len(cfg.Recipients))
	return workerLoop.Run(ctx)
}

func (cfg RuntimeConfig) normalized() RuntimeConfig {
	if cfg.Port <= 0 {
		cfg.Port = defaultWorkerPort
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = defaultWorkerDB
	}
	if strings.TrimSpace(cfg.LedgerDBPath) == "" {
		cfg.LedgerDBPath = defaultLedgerDB
	}
	if strings.TrimSpace(cfg.Consumer) == "" {
		cfg.Consumer = defaultConsumer
	}
	if cfg.GRPCDialTimeout <= 0 {
		cfg.GRPCDialTimeout = timeouts.GRPCDial
	}
	if cfg.DigestInterval <= 0 {
		cfg.DigestInterval = defaultDigestInterval
	}
	if strings.TrimSpace(cfg.Locale) == "" {
		cfg.Locale = "en-US"
	}
	cfg.LedgerAddr = strings.TrimSpace(cfg.LedgerAddr)
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return cfg
}

// newSender returns the EmailJS client when credentials are configured and a
// logging sender otherwise.
func newSender(cfg emailjs.Config, logger *slog.Logger) emailjs.Sender {
	if !cfg.Configured() {
		logger.Warn("emailjs is not configured; notifications are logged only")
		return emailjs.LogSender{Logf: func(format string, args ...any) {
			logger.Info(fmt.Sprintf(format, args...))
		}}
	}
	return emailjs.NewClient(cfg, &http.Client{
		Timeout:   timeouts.Notify,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	})
}

// Package app hosts the ledger service: the JSON HTTP API plus a gRPC health
// endpoint that dependent processes wait on.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/fighterspassapp/dp-pass-app/internal/platform/timeouts"
	"github.com/fighterspassapp/dp-pass-app/internal/services/ledger/api/httpapi"
	"github.com/fighterspassapp/dp-pass-app/internal/services/ledger/domain"
	"github.com/fighterspassapp/dp-pass-app/internal/services/ledger/session"
	ledgersqlite "github.com/fighterspassapp/dp-pass-app/internal/services/ledger/storage/sqlite"
	"github.com/fighterspassapp/dp-pass-app/internal/services/notifications/outbox"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/net/netutil"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

const healthServiceName = "ledger.v1.Ledger"

// Config controls ledger startup.
type Config struct {
	GRPCPort int
	HTTPAddr string
	DBPath   string
	// SessionSecret signs bearer tokens.
	SessionSecret string
	// MaxConnections caps concurrent HTTP connections; zero means unlimited.
	MaxConnections   int
	StepwiseApproval bool
	Logger           *slog.Logger
}

// Server hosts the ledger service.
type Server struct {
	listener     net.Listener
	grpcServer   *grpc.Server
	health       *health.Server
	store        *ledgersqlite.Store
	httpListener net.Listener
	httpServer   *http.Server
	logger       *slog.Logger
}

// New opens storage and binds both listeners.
func New(cfg Config) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	issuer, err := session.NewIssuer([]byte(cfg.SessionSecret), nil)
	if err != nil {
		return nil, err
	}

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		return nil, fmt.Errorf("listen on port %d: %w", cfg.GRPCPort, err)
	}
	store, err := openLedgerStore(cfg.DBPath)
	if err != nil {
		_ = listener.Close()
		return nil, err
	}
	httpListener, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		_ = listener.Close()
		_ = store.Close()
		return nil, fmt.Errorf("listen on http addr %s: %w", cfg.HTTPAddr, err)
	}
	if cfg.MaxConnections > 0 {
		httpListener = netutil.LimitListener(httpListener, cfg.MaxConnections)
	}

	opts := []domain.Option{
		domain.WithSink(outbox.NewSink(store, nil, nil)),
		domain.WithLogger(logger),
	}
	if cfg.StepwiseApproval {
		opts = append(opts, domain.WithStepwiseApproval())
	}
	ledger := domain.NewService(store, opts...)
	api := httpapi.New(ledger, issuer, logger)

	httpServer := &http.Server{
		Handler:           otelhttp.NewHandler(api, "ledger.http"),
		ReadHeaderTimeout: timeouts.ReadHeader,
	}

	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(healthServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	return &Server{
		listener:     listener,
		grpcServer:   grpcServer,
		health:       healthServer,
		store:        store,
		httpListener: httpListener,
		httpServer:   httpServer,
		logger:       logger,
	}, nil
}

// Addr returns the gRPC health listener address.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// HTTPAddr returns the HTTP listener address.
func (s *Server) HTTPAddr() string {
	if s == nil || s.httpListener == nil {
		return ""
	}
	return s.httpListener.Addr().String()
}

// Run creates and serves a ledger server until the context ends.
func Run(ctx context.Context, cfg Config) error {
	server, err := New(cfg)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve blocks until the context ends or a listener fails.
func (s *Server) Serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.closeStore()

	s.logger.Info("ledger health listening", "addr", s.Addr())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.grpcServer.Serve(s.listener)
	}()

	s.logger.Info("ledger HTTP listening", "addr", s.HTTPAddr())
	httpErr := make(chan error, 1)
	go func() {
		httpErr <- s.httpServer.Serve(s.httpListener)
	}()

	handleErr := func(err error) error {
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	}
	shutdownGRPC := func() {
		s.health.Shutdown()
		s.grpcServer.GracefulStop()
	}
	shutdownHTTP := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("shutdown HTTP server", "error", err)
		}
	}

	select {
	case <-ctx.Done():
		shutdownHTTP()
		shutdownGRPC()
		return handleErr(<-serveErr)
	case err := <-serveErr:
		shutdownHTTP()
		return handleErr(err)
	case err := <-httpErr:
		shutdownGRPC()
		if handled := handleErr(<-serveErr); handled != nil {
			return handled
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve HTTP: %w", err)
	}
}

func openLedgerStore(path string) (*ledgersqlite.Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = filepath.Join("data", "ledger.db")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := ledgersqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ledger sqlite store: %w", err)
	}
	return store, nil
}

func (s *Server) closeStore() {
	if s == nil || s.store == nil {
		return
	}
	if err := s.store.Close(); err != nil {
		s.logger.Warn("close ledger store", "error", err)
	}
}

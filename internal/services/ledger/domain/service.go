// Package domain implements the ledger use-cases: balances, request queues,
// approvals, and member credentials.
package domain

import (
	"context"
	"crypto/rand"
	"errors"
	"io"
	"log/slog"
	"math"
	"strconv"
	"time"

	apperrors "github.com/fighterspassapp/dp-pass-app/internal/platform/errors"
	"github.com/fighterspassapp/dp-pass-app/internal/platform/timeouts"
	"github.com/fighterspassapp/dp-pass-app/internal/services/ledger/account"
	"github.com/fighterspassapp/dp-pass-app/internal/services/ledger/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/fighterspassapp/dp-pass-app/internal/services/ledger/domain"

// ErrStoreNotConfigured indicates the service is missing persistence wiring.
var ErrStoreNotConfigured = errors.New("ledger store is not configured")

// RequestEvent describes a newly queued request for out-of-band notification.
type RequestEvent struct {
	Kind      account.ResourceKind `json:"request_kind"`
	Type      account.RequestType  `json:"request_type"`
	RequestID int64                `json:"request_id"`
	Email     string               `json:"email"`
	Name      string               `json:"name"`
	Amount    int64                `json:"amount"`
	Reason    string               `json:"reason,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
}

// NotificationSink receives request events. Delivery is fire-and-forget:
// a sink error never fails the submission. Notify runs in-line with the
// submission under a short deadline and should return once ctx is done.
type NotificationSink interface {
	Notify(ctx context.Context, event RequestEvent) error
}

// Option customizes a Service.
type Option func(*Service)

// WithSink sets the notification sink.
func WithSink(sink NotificationSink) Option {
	return func(s *Service) {
		s.sink = sink
	}
}

// WithNotifyTimeout bounds each Notify call. Non-positive values keep the
// default.
func WithNotifyTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		if timeout > 0 {
			s.notifyTimeout = timeout
		}
	}
}

// WithClock sets the time source used for request timestamps.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithRandom sets the entropy source for credential salts.
func WithRandom(random io.Reader) Option {
	return func(s *Service) {
		if random != nil {
			s.random = random
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStepwiseApproval disables the store's atomic resolver and approves
// with separate read, adjust, and delete calls.
func WithStepwiseApproval() Option {
	return func(s *Service) {
		s.stepwise = true
	}
}

// Service orchestrates ledger behavior over a Store.
type Service struct {
	store         storage.Store
	sink          NotificationSink
	notifyTimeout time.Duration
	clock         func() time.Time
	random        io.Reader
	logger        *slog.Logger
	tracer        trace.Tracer
	stepwise      bool
}

// NewService constructs ledger use-cases.
func NewService(store storage.Store, opts ...Option) *Service {
	s := &Service{
		store:         store,
		notifyTimeout: timeouts.NotifySink,
		clock:         time.Now,
		random:        rand.Reader,
		logger:        slog.Default(),
		tracer:        otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) ready() error {
	if s == nil || s.store == nil {
		return ErrStoreNotConfigured
	}
	return nil
}

func (s *Service) now() time.Time {
	return s.clock().UTC()
}

func (s *Service) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, string(apperrors.CodeOf(err)))
	}
	span.End()
}

func requestAttrs(kind account.ResourceKind, requestType account.RequestType, id int64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("ledger.kind", string(kind)),
		attribute.String("ledger.type", string(requestType)),
		attribute.Int64("ledger.request_id", id),
	}
}

// accountError maps a storage lookup failure to a domain error.
func accountError(err error, email string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apperrors.NotFound("account", email)
	}
	return err
}

// creditFits reports whether amount can be added to a non-negative balance
// without passing math.MaxInt64.
func creditFits(current, amount int64) bool {
	return amount <= math.MaxInt64-current
}

func balanceOverflow() error {
	return apperrors.Validation("balance_overflow", "balance would exceed the largest supported value")
}

func requestError(err error, id int64) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apperrors.NotFound("request", strconv.FormatInt(id, 10))
	}
	return err
}

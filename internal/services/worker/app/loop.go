package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cenkalti/backoff/v5"
	ledgerstorage "github.com/fighterspassapp/dp-pass-app/internal/services/ledger/storage"
	workerdomain "github.com/fighterspassapp/dp-pass-app/internal/services/worker/domain"
	workerstorage "github.com/fighterspassapp/dp-pass-app/internal/services/worker/storage"
)

const (
	defaultConsumer      = "worker-notifications"
	defaultPollInterval  = 2 * time.Second
	defaultLeaseTTL      = 30 * time.Second
	defaultBatchSize     = 10
	defaultMaxAttempts   = 8
	defaultRetryBackoff  = 5 * time.Second
	defaultRetryMaxDelay = 5 * time.Minute
	maxLastErrorLength   = 512
)

// EventHandler delivers one leased outbox event.
type EventHandler interface {
	Handle(ctx context.Context, event ledgerstorage.OutboxEvent) error
}

// HandlerFunc adapts a function to EventHandler.
type HandlerFunc func(ctx context.Context, event ledgerstorage.OutboxEvent) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, event ledgerstorage.OutboxEvent) error {
	return f(ctx, event)
}

// Config controls outbox polling and retry behavior.
type Config struct {
	Consumer      string
	PollInterval  time.Duration
	LeaseTTL      time.Duration
	BatchSize     int
	MaxAttempts   int
	RetryBackoff  time.Duration
	RetryMaxDelay time.Duration
}

func (c Config) normalized() Config {
	c.Consumer = strings.TrimSpace(c.Consumer)
	if c.Consumer == "" {
		c.Consumer = defaultConsumer
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.LeaseTTL <= 0 {
		c.LeaseTTL = defaultLeaseTTL
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = defaultRetryBackoff
	}
	if c.RetryMaxDelay < c.RetryBackoff {
		c.RetryMaxDelay = max(defaultRetryMaxDelay, c.RetryBackoff)
	}
	return c
}

// Loop leases outbox events from the ledger store and hands them to the
// registered handler for their event type.
type Loop struct {
	store    ledgerstorage.OutboxStore
	handlers map[string]EventHandler
	attempts workerstorage.AttemptStore
	cfg      Config
	clock    func() time.Time
	logger   *slog.Logger
}

// New constructs a worker loop. A nil attempt store disables the delivery log.
func New(store ledgerstorage.OutboxStore, handlers map[string]EventHandler, attempts workerstorage.AttemptStore, cfg Config, clock func() time.Time) *Loop {
	if clock == nil {
		clock = time.Now
	}
	normalized := make(map[string]EventHandler, len(handlers))
	for eventType, handler := range handlers {
		if handler == nil {
			continue
		}
		normalized[strings.TrimSpace(eventType)] = handler
	}
	return &Loop{
		store:    store,
		handlers: normalized,
		attempts: attempts,
		cfg:      cfg.normalized(),
		clock:    clock,
		logger:   slog.Default(),
	}
}

// WithLogger replaces the loop logger.
func (l *Loop) WithLogger(logger *slog.Logger) *Loop {
	if logger != nil {
		l.logger = logger
	}
	return l
}

// Run polls until ctx is canceled.
func (l *Loop) Run(ctx context.Context) error {
	if l == nil || l.store == nil {
		return errors.New("worker outbox store is not configured")
	}
	ticker := time.NewTicker(l.cfg.PollInterval)
	defer ticker.Stop()
	for {
		if _, err := l.RunOnce(ctx); err != nil && ctx.Err() == nil {
			l.logger.Error("worker poll failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce leases one batch and processes it. It returns the number of events
// handled.
func (l *Loop) RunOnce(ctx context.Context) (int, error) {
	if l == nil || l.store == nil {
		return 0, errors.New("worker outbox store is not configured")
	}
	events, err := l.store.LeaseOutboxEvents(ctx, l.cfg.Consumer, l.cfg.BatchSize, l.clock().UTC(), l.cfg.LeaseTTL)
	if err != nil {
		return 0, fmt.Errorf("lease outbox events: %w", err)
	}
	for _, event := range events {
		if err := l.process(ctx, event); err != nil {
			return 0, err
		}
	}
	return len(events), nil
}

func (l *Loop) process(ctx context.Context, event ledgerstorage.OutboxEvent) error {
	attempt := event.AttemptCount + 1
	handler, ok := l.handlers[event.EventType]
	var handleErr error
	if !ok {
		handleErr = workerdomain.Permanent(fmt.Errorf("no handler for event type %q", event.EventType))
	} else {
		handleErr = handler.Handle(ctx, event)
	}

	now := l.clock().UTC()
	switch {
	case handleErr == nil:
		if err := l.store.MarkOutboxSucceeded(ctx, event.ID, l.cfg.Consumer, now); err != nil {
			return fmt.Errorf("ack outbox event %s: %w", event.ID, err)
		}
		l.record(ctx, event, workerstorage.OutcomeSucceeded, attempt, "", now)
	case workerdomain.IsPermanent(handleErr) || attempt >= l.cfg.MaxAttempts:
		lastError := truncateError(handleErr)
		if err := l.store.MarkOutboxDead(ctx, event.ID, l.cfg.Consumer, lastError, now); err != nil {
			return fmt.Errorf("dead-letter outbox event %s: %w", event.ID, err)
		}
		l.logger.Warn("notification abandoned", "event_id", event.ID, "event_type", event.EventType, "attempt", attempt, "error", handleErr)
		l.record(ctx, event, workerstorage.OutcomeDead, attempt, lastError, now)
	default:
		lastError := truncateError(handleErr)
		next := now.Add(l.retryDelay(attempt))
		if err := l.store.MarkOutboxRetry(ctx, event.ID, l.cfg.Consumer, next, lastError); err != nil {
			return fmt.Errorf("retry outbox event %s: %w", event.ID, err)
		}
		l.logger.Info("notification retry scheduled", "event_id", event.ID, "attempt", attempt, "next_attempt_at", next, "error", handleErr)
		l.record(ctx, event, workerstorage.OutcomeRetry, attempt, lastError, now)
	}
	return nil
}

// retryDelay doubles the base backoff per failed attempt, capped at the
// configured maximum.
func (l *Loop) retryDelay(attempt int) time.Duration {
	policy := &backoff.ExponentialBackOff{
		InitialInterval:     l.cfg.RetryBackoff,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         l.cfg.RetryMaxDelay,
	}
	policy.Reset()
	delay := policy.NextBackOff()
	for i := 1; i < attempt; i++ {
		delay = policy.NextBackOff()
	}
	return delay
}

func (l *Loop) record(ctx context.Context, event ledgerstorage.OutboxEvent, outcome string, attempt int, lastError string, now time.Time) {
	if l.attempts == nil {
		return
	}
	err := l.attempts.RecordAttempt(ctx, workerstorage.DeliveryAttempt{
		EventID:      event.ID,
		EventType:    event.EventType,
		Consumer:     l.cfg.Consumer,
		Outcome:      outcome,
		AttemptCount: attempt,
		LastError:    lastError,
		CreatedAt:    now,
	})
	if err != nil {
		l.logger.Error("record delivery attempt", "event_id", event.ID, "error", err)
	}
}

func truncateError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.TrimSpace(err.Error())
	if len(msg) <= maxLastErrorLength {
		return msg
	}
	cut := maxLastErrorLength
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut]
}

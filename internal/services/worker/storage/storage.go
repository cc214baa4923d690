// Package storage defines the notification worker's delivery log.
package storage

import (
	"context"
	"time"
)

// Delivery outcomes.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeRetry     = "retry"
	OutcomeDead      = "dead"
)

// DeliveryAttempt is one durable record of a notification send.
type DeliveryAttempt struct {
	ID           int64
	EventID      string
	EventType    string
	Consumer     string
	Outcome      string
	AttemptCount int
	LastError    string
	CreatedAt    time.Time
}

// AttemptStore persists delivery attempts.
type AttemptStore interface {
	RecordAttempt(ctx context.Context, attempt DeliveryAttempt) error
	ListAttempts(ctx context.Context, limit int) ([]DeliveryAttempt, error)
}

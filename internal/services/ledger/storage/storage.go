// Package storage defines the persistence contracts of the ledger service.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fighterspassapp/dp-pass-app/internal/services/ledger/account"
)

var (
	// ErrNotFound indicates a requested account, request, or event is missing.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates a write conflicts with the current row state.
	ErrConflict = errors.New("record conflict")
	// ErrInsufficientBalance indicates a conditional debit found too small a balance.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrBalanceOverflow indicates a credit would push a balance past the
	// largest storable integer.
	ErrBalanceOverflow = errors.New("balance overflow")
	// ErrAccountNotFound indicates the account owning a request is gone. It
	// matches ErrNotFound.
	ErrAccountNotFound = fmt.Errorf("account %w", ErrNotFound)
)

// AccountProfile is the provisioned part of an account. Writing a profile
// never touches the stored credential.
type AccountProfile struct {
	Email       string
	Name        string
	PassBalance int64
	CDNABalance int64
	IsAdmin     bool
	OnProbation bool
}

// AccountStore persists accounts, balances, and credentials.
type AccountStore interface {
	GetAccount(ctx context.Context, email string) (account.Account, error)
	// ListAccounts returns accounts matching an AIP-160 filter expression;
	// an empty filter lists everything.
	ListAccounts(ctx context.Context, filter string) ([]account.Account, error)
	PutAccountProfile(ctx context.Context, profile AccountProfile) error
	// AdjustBalance adds delta and returns the new balance. It returns
	// ErrInsufficientBalance instead of letting the balance go negative and
	// ErrBalanceOverflow instead of exceeding math.MaxInt64.
	AdjustBalance(ctx context.Context, email string, kind account.ResourceKind, delta int64) (int64, error)
	SetBalance(ctx context.Context, email string, kind account.ResourceKind, value int64) error
	SetProbation(ctx context.Context, email string, onProbation bool) error
	// SetCredential stores a credential only when none is set; otherwise
	// it returns ErrConflict.
	SetCredential(ctx context.Context, email string, digest string, salt string) error
	ClearCredential(ctx context.Context, email string) error
}

// RequestStore persists queued requests. Each (kind, type) pair is its own
// queue with its own monotonic ids.
type RequestStore interface {
	// InsertRequest stores a request and returns its assigned id.
	InsertRequest(ctx context.Context, request account.Request) (int64, error)
	GetRequest(ctx context.Context, kind account.ResourceKind, requestType account.RequestType, id int64) (account.Request, error)
	DeleteRequest(ctx context.Context, kind account.ResourceKind, requestType account.RequestType, id int64) error
	// ListRequests returns a queue oldest first.
	ListRequests(ctx context.Context, kind account.ResourceKind, requestType account.RequestType) ([]account.Request, error)
	LatestRequest(ctx context.Context, kind account.ResourceKind, requestType account.RequestType, email string) (account.Request, error)
	CountRequests(ctx context.Context, kind account.ResourceKind, requestType account.RequestType) (int, error)
}

// Resolution is the committed result of an atomic approval.
type Resolution struct {
	Request account.Request
	Balance int64
}

// RequestResolver is implemented by stores that can approve a request in a
// single transaction: remove the row, apply the signed amount, and commit,
// or change nothing. Debits that would go negative return
// ErrInsufficientBalance, credits that would overflow return
// ErrBalanceOverflow, and a request whose account is gone returns
// ErrAccountNotFound; in each case the row stays queued.
type RequestResolver interface {
	ResolveRequest(ctx context.Context, kind account.ResourceKind, requestType account.RequestType, id int64) (Resolution, error)
}

// Store is the full ledger persistence boundary.
type Store interface {
	AccountStore
	RequestStore
}

// OutboxStatus identifies one outbox event lifecycle state.
type OutboxStatus string

const (
	// OutboxStatusPending means the event waits for a worker.
	OutboxStatusPending OutboxStatus = "pending"
	// OutboxStatusLeased means a worker holds the event.
	OutboxStatusLeased OutboxStatus = "leased"
	// OutboxStatusSucceeded means the event was delivered.
	OutboxStatusSucceeded OutboxStatus = "succeeded"
	// OutboxStatusDead means delivery was abandoned.
	OutboxStatusDead OutboxStatus = "dead"
)

// OutboxEvent stores one queued notification for the worker.
type OutboxEvent struct {
	ID             string
	EventType      string
	PayloadJSON    string
	DedupeKey      string
	Status         OutboxStatus
	AttemptCount   int
	NextAttemptAt  time.Time
	LeaseOwner     string
	LeaseExpiresAt *time.Time
	LastError      string
	ProcessedAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// OutboxStore persists notification outbox events.
type OutboxStore interface {
	// EnqueueOutboxEvent stores an event; a repeated non-empty dedupe key is
	// silently ignored.
	EnqueueOutboxEvent(ctx context.Context, event OutboxEvent) error
	GetOutboxEvent(ctx context.Context, id string) (OutboxEvent, error)
	LeaseOutboxEvents(ctx context.Context, consumer string, limit int, now time.Time, leaseTTL time.Duration) ([]OutboxEvent, error)
	MarkOutboxSucceeded(ctx context.Context, id string, consumer string, processedAt time.Time) error
	MarkOutboxRetry(ctx context.Context, id string, consumer string, nextAttemptAt time.Time, lastError string) error
	MarkOutboxDead(ctx context.Context, id string, consumer string, lastError string, processedAt time.Time) error
}

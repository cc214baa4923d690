// Package outbox queues ledger notifications in the SQLite outbox for the
// delivery worker.
package outbox

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/fighterspassapp/dp-pass-app/internal/platform/id"
	"github.com/fighterspassapp/dp-pass-app/internal/services/ledger/domain"
	"github.com/fighterspassapp/dp-pass-app/internal/services/ledger/storage"
	"github.com/fighterspassapp/dp-pass-app/internal/services/notifications/render"
	"github.com/zeebo/blake3"
)

// dedupeDomainKey separates outbox dedupe hashes from any other keyed use.
var dedupeDomainKey = [32]byte{
	'd', 'p', '-', 'p', 'a', 's', 's', '.', 'o', 'u', 't', 'b', 'o', 'x', '.',
	'd', 'e', 'd', 'u', 'p', 'e', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// Sink enqueues notification events. It implements domain.NotificationSink.
type Sink struct {
	store storage.OutboxStore
	clock func() time.Time
	newID func() (string, error)
}

var _ domain.NotificationSink = (*Sink)(nil)

// NewSink constructs an outbox sink.
func NewSink(store storage.OutboxStore, clock func() time.Time, newID func() (string, error)) *Sink {
	if clock == nil {
		clock = time.Now
	}
	if newID == nil {
		newID = id.NewID
	}
	return &Sink{store: store, clock: clock, newID: newID}
}

// Notify enqueues one request event. The same request is enqueued at most
// once.
func (s *Sink) Notify(ctx context.Context, event domain.RequestEvent) error {
	key := DedupeKey(
		render.EventRequestSubmitted,
		string(event.Kind),
		string(event.Type),
		strconv.FormatInt(event.RequestID, 10),
		strconv.FormatInt(event.CreatedAt.UnixMilli(), 10),
	)
	return s.enqueue(ctx, render.EventRequestSubmitted, event, key)
}

// EnqueueDigest enqueues one weekly digest. One digest per period is kept.
func (s *Sink) EnqueueDigest(ctx context.Context, payload render.DigestPayload) error {
	key := DedupeKey(render.EventWeeklyDigest, string(payload.Kind), payload.Period)
	return s.enqueue(ctx, render.EventWeeklyDigest, payload, key)
}

func (s *Sink) enqueue(ctx context.Context, eventType string, payload any, dedupeKey string) error {
	if s == nil || s.store == nil {
		return fmt.Errorf("outbox store is not configured")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	eventID, err := s.newID()
	if err != nil {
		return err
	}
	now := s.clock().UTC()
	return s.store.EnqueueOutboxEvent(ctx, storage.OutboxEvent{
		ID:            eventID,
		EventType:     eventType,
		PayloadJSON:   string(body),
		DedupeKey:     dedupeKey,
		Status:        storage.OutboxStatusPending,
		NextAttemptAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
}

// DedupeKey hashes its parts into a stable hex key.
func DedupeKey(parts ...string) string {
	hasher, err := blake3.NewKeyed(dedupeDomainKey[:])
	if err != nil {
		panic("outbox: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	for _, part := range parts {
		_, _ = hasher.Write([]byte(part))
		_, _ = hasher.Write([]byte{0})
	}
	return hex.EncodeToString(hasher.Sum(nil))
}

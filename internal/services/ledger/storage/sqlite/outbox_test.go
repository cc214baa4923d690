package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fighterspassapp/dp-pass-app/internal/services/ledger/storage"
)

func TestOutboxEnqueueLeaseAndAckSucceeded(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	event := storage.OutboxEvent{
		ID:            "evt-1",
		EventType:     "ledger.request_submitted",
		PayloadJSON:   `{"email":"a@example.com"}`,
		DedupeKey:     "dedupe-1",
		NextAttemptAt: now,
		CreatedAt:     now,
	}
	if err := store.EnqueueOutboxEvent(ctx, event); err != nil {
		t.Fatalf("enqueue outbox event: %v", err)
	}

	leased, err := store.LeaseOutboxEvents(ctx, "worker-1", 10, now, 5*time.Minute)
	if err != nil {
		t.Fatalf("lease outbox events: %v", err)
	}
	if len(leased) != 1 {
		t.Fatalf("leased len = %d, want 1", len(leased))
	}
	if leased[0].Status != storage.OutboxStatusLeased || leased[0].LeaseOwner != "worker-1" {
		t.Fatalf("leased = %+v", leased[0])
	}
	if leased[0].LeaseExpiresAt == nil {
		t.Fatal("expected lease expiry")
	}

	// Wrong owner cannot ack.
	if err := store.MarkOutboxSucceeded(ctx, event.ID, "worker-2", now); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for wrong owner, got %v", err)
	}
	if err := store.MarkOutboxSucceeded(ctx, event.ID, "worker-1", now.Add(time.Minute)); err != nil {
		t.Fatalf("ack succeeded: %v", err)
	}

	updated, err := store.GetOutboxEvent(ctx, event.ID)
	if err != nil {
		t.Fatalf("get outbox event: %v", err)
	}
	if updated.Status != storage.OutboxStatusSucceeded {
		t.Fatalf("status = %q, want succeeded", updated.Status)
	}
	if updated.LeaseExpiresAt != nil || updated.ProcessedAt == nil {
		t.Fatalf("lease expiry %v processed %v", updated.LeaseExpiresAt, updated.ProcessedAt)
	}
}

func TestOutboxDedupeKeyIgnoresRepeats(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for _, id := range []string{"evt-1", "evt-2"} {
		if err := store.EnqueueOutboxEvent(ctx, storage.OutboxEvent{
			ID: id, EventType: "ledger.digest", DedupeKey: "week-10", CreatedAt: now,
		}); err != nil {
			t.Fatalf("enqueue %s: %v", id, err)
		}
	}
	if _, err := store.GetOutboxEvent(ctx, "evt-2"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected duplicate to be dropped, got %v", err)
	}

	if err := store.EnqueueOutboxEvent(ctx, storage.OutboxEvent{ID: "evt-1", EventType: "ledger.digest", CreatedAt: now}); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("expected ErrConflict for repeated id, got %v", err)
	}
}

func TestOutboxLeaseRespectsExpiry(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 5, 0, 0, time.UTC)

	if err := store.EnqueueOutboxEvent(ctx, storage.OutboxEvent{ID: "evt-1", EventType: "ledger.request_submitted", CreatedAt: now}); err != nil {
		t.Fatalf("enqueue outbox event: %v", err)
	}
	if leased, err := store.LeaseOutboxEvents(ctx, "worker-1", 1, now, 10*time.Minute); err != nil || len(leased) != 1 {
		t.Fatalf("first lease = %d, %v", len(leased), err)
	}
	if leased, err := store.LeaseOutboxEvents(ctx, "worker-2", 1, now.Add(9*time.Minute), 10*time.Minute); err != nil || len(leased) != 0 {
		t.Fatalf("second lease = %d, %v", len(leased), err)
	}
	leased, err := store.LeaseOutboxEvents(ctx, "worker-2", 1, now.Add(11*time.Minute), 10*time.Minute)
	if err != nil {
		t.Fatalf("third lease: %v", err)
	}
	if len(leased) != 1 || leased[0].LeaseOwner != "worker-2" {
		t.Fatalf("expired lease should be reclaimed, got %+v", leased)
	}
}

func TestOutboxRetryAndDead(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC)

	if err := store.EnqueueOutboxEvent(ctx, storage.OutboxEvent{ID: "evt-1", EventType: "ledger.request_submitted", CreatedAt: now}); err != nil {
		t.Fatalf("enqueue outbox event: %v", err)
	}
	if _, err := store.LeaseOutboxEvents(ctx, "worker-1", 1, now, time.Minute); err != nil {
		t.Fatalf("lease: %v", err)
	}
	retryAt := now.Add(30 * time.Second)
	if err := store.MarkOutboxRetry(ctx, "evt-1", "worker-1", retryAt, " boom "); err != nil {
		t.Fatalf("mark retry: %v", err)
	}

	retried, err := store.GetOutboxEvent(ctx, "evt-1")
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	if retried.Status != storage.OutboxStatusPending || retried.AttemptCount != 1 || retried.LastError != "boom" {
		t.Fatalf("retried = %+v", retried)
	}
	if !retried.NextAttemptAt.Equal(retryAt) {
		t.Fatalf("next attempt = %v, want %v", retried.NextAttemptAt, retryAt)
	}

	if leased, err := store.LeaseOutboxEvents(ctx, "worker-1", 1, now.Add(10*time.Second), time.Minute); err != nil || len(leased) != 0 {
		t.Fatalf("early lease = %d, %v", len(leased), err)
	}
	if leased, err := store.LeaseOutboxEvents(ctx, "worker-1", 1, retryAt, time.Minute); err != nil || len(leased) != 1 {
		t.Fatalf("due lease = %d, %v", len(leased), err)
	}
	if err := store.MarkOutboxDead(ctx, "evt-1", "worker-1", "gave up", retryAt); err != nil {
		t.Fatalf("mark dead: %v", err)
	}
	dead, err := store.GetOutboxEvent(ctx, "evt-1")
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	if dead.Status != storage.OutboxStatusDead || dead.AttemptCount != 2 {
		t.Fatalf("dead = %+v", dead)
	}
	if leased, err := store.LeaseOutboxEvents(ctx, "worker-1", 1, retryAt.Add(time.Hour), time.Minute); err != nil || len(leased) != 0 {
		t.Fatalf("dead events must not lease, got %d, %v", len(leased), err)
	}
}

func TestOutboxLeaseValidatesInput(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	if _, err := store.LeaseOutboxEvents(ctx, "", 1, time.Now(), time.Minute); err == nil {
		t.Fatal("expected error for empty consumer")
	}
	if _, err := store.LeaseOutboxEvents(ctx, "w", 0, time.Now(), time.Minute); err == nil {
		t.Fatal("expected error for zero limit")
	}
	if _, err := store.LeaseOutboxEvents(ctx, "w", 1, time.Now(), 0); err == nil {
		t.Fatal("expected error for zero ttl")
	}
}

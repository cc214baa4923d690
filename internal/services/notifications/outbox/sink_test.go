package outbox

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/fighterspassapp/dp-pass-app/internal/services/ledger/account"
	"github.com/fighterspassapp/dp-pass-app/internal/services/ledger/domain"
	"github.com/fighterspassapp/dp-pass-app/internal/services/ledger/storage"
	"github.com/fighterspassapp/dp-pass-app/internal/services/ledger/storage/sqlite"
	"github.com/fighterspassapp/dp-pass-app/internal/services/notifications/render"
)

func TestDedupeKeyIsStableAndSeparatesParts(t *testing.T) {
	t.Parallel()

	a := DedupeKey("ab", "c")
	if a != DedupeKey("ab", "c") {
		t.Fatal("expected stable key")
	}
	if a == DedupeKey("a", "bc") {
		t.Fatal("expected part boundaries to change the key")
	}
	if len(a) != 64 {
		t.Fatalf("key length = %d, want 64", len(a))
	}
}

func TestNotifyEnqueuesOncePerRequest(t *testing.T) {
	t.Parallel()

	store := openStore(t)
	now := time.Date(2026, 3, 4, 15, 0, 0, 0, time.UTC)
	ids := []string{"evt-1", "evt-2"}
	sink := NewSink(store, func() time.Time { return now }, func() (string, error) {
		next := ids[0]
		ids = ids[1:]
		return next, nil
	})

	event := domain.RequestEvent{
		Kind:      account.KindCDNA,
		Type:      account.TypeTransfer,
		RequestID: 3,
		Email:     "a@example.com",
		Name:      "A",
		Amount:    2,
		CreatedAt: now,
	}
	ctx := context.Background()
	if err := sink.Notify(ctx, event); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if err := sink.Notify(ctx, event); err != nil {
		t.Fatalf("repeat notify: %v", err)
	}

	stored, err := store.GetOutboxEvent(ctx, "evt-1")
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	if stored.EventType != render.EventRequestSubmitted || stored.Status != storage.OutboxStatusPending {
		t.Fatalf("stored = %+v", stored)
	}
	var decoded domain.RequestEvent
	if err := json.Unmarshal([]byte(stored.PayloadJSON), &decoded); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if decoded.RequestID != 3 || decoded.Kind != account.KindCDNA {
		t.Fatalf("decoded = %+v", decoded)
	}
	if _, err := store.GetOutboxEvent(ctx, "evt-2"); err == nil {
		t.Fatal("expected duplicate notification to be dropped")
	}
}

func TestEnqueueDigestDedupesByPeriod(t *testing.T) {
	t.Parallel()

	store := openStore(t)
	ids := []string{"d-1", "d-2", "d-3"}
	sink := NewSink(store, nil, func() (string, error) {
		next := ids[0]
		ids = ids[1:]
		return next, nil
	})
	ctx := context.Background()

	for _, period := range []string{"2026-W10", "2026-W10", "2026-W11"} {
		if err := sink.EnqueueDigest(ctx, render.DigestPayload{Kind: account.KindPass, Count: 2, Period: period}); err != nil {
			t.Fatalf("enqueue digest %s: %v", period, err)
		}
	}
	if _, err := store.GetOutboxEvent(ctx, "d-2"); err == nil {
		t.Fatal("expected second digest in the same period to be dropped")
	}
	if _, err := store.GetOutboxEvent(ctx, "d-3"); err != nil {
		t.Fatalf("expected next period digest: %v", err)
	}
}

func openStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}

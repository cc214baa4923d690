package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fighterspassapp/dp-pass-app/internal/services/ledger/account"
	"github.com/fighterspassapp/dp-pass-app/internal/services/notifications/render"
)

type fakeCounter struct {
	count int
	err   error
	kind  account.ResourceKind
	typ   account.RequestType
}

func (c *fakeCounter) CountRequests(_ context.Context, kind account.ResourceKind, requestType account.RequestType) (int, error) {
	c.kind, c.typ = kind, requestType
	return c.count, c.err
}

type fakeEnqueuer struct {
	payloads []render.DigestPayload
}

func (e *fakeEnqueuer) EnqueueDigest(_ context.Context, payload render.DigestPayload) error {
	e.payloads = append(e.payloads, payload)
	return nil
}

func TestDigestEnqueuesWhenTransfersPending(t *testing.T) {
	t.Parallel()

	counter := &fakeCounter{count: 3}
	enqueuer := &fakeEnqueuer{}
	digest := NewDigest(counter, enqueuer, func() time.Time {
		return time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	})

	queued, err := digest.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if !queued || len(enqueuer.payloads) != 1 {
		t.Fatalf("queued = %v payloads = %v", queued, enqueuer.payloads)
	}
	if counter.kind != account.KindPass || counter.typ != account.TypeTransfer {
		t.Fatalf("counted %s %s", counter.kind, counter.typ)
	}
	got := enqueuer.payloads[0]
	if got.Count != 3 || got.Kind != account.KindPass || got.Period != "2026-W01" {
		t.Fatalf("payload = %+v", got)
	}
}

func TestDigestSkipsEmptyQueue(t *testing.T) {
	t.Parallel()

	enqueuer := &fakeEnqueuer{}
	queued, err := NewDigest(&fakeCounter{}, enqueuer, nil).RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if queued || len(enqueuer.payloads) != 0 {
		t.Fatalf("queued = %v payloads = %v", queued, enqueuer.payloads)
	}
}

func TestDigestPropagatesCountError(t *testing.T) {
	t.Parallel()

	boom := errors.New("db closed")
	_, err := NewDigest(&fakeCounter{err: boom}, &fakeEnqueuer{}, nil).RunOnce(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped count error, got %v", err)
	}
}

func TestISOWeekPeriod(t *testing.T) {
	t.Parallel()

	// 2027-01-01 falls in ISO week 53 of 2026.
	if got := isoWeek(time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)); got != "2026-W53" {
		t.Fatalf("period = %q", got)
	}
}

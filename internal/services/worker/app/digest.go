package app

import (
	"context"
	"fmt"
	"time"

	"github.com/fighterspassapp/dp-pass-app/internal/services/ledger/account"
	"github.com/fighterspassapp/dp-pass-app/internal/services/notifications/render"
)

const defaultDigestInterval = 7 * 24 * time.Hour

// PendingCounter counts pending requests of one queue.
type PendingCounter interface {
	CountRequests(ctx context.Context, kind account.ResourceKind, requestType account.RequestType) (int, error)
}

// DigestEnqueuer queues one digest notification.
type DigestEnqueuer interface {
	EnqueueDigest(ctx context.Context, payload render.DigestPayload) error
}

// Digest queues the weekly reminder about pass transfers awaiting FalconNet
// processing. A period is enqueued at most once.
type Digest struct {
	counter  PendingCounter
	enqueuer DigestEnqueuer
	clock    func() time.Time
}

// NewDigest constructs a digest scheduler.
func NewDigest(counter PendingCounter, enqueuer DigestEnqueuer, clock func() time.Time) *Digest {
	if clock == nil {
		clock = time.Now
	}
	return &Digest{counter: counter, enqueuer: enqueuer, clock: clock}
}

// RunOnce enqueues the digest for the current ISO week when pass transfers are
// pending. It reports whether a digest was enqueued.
func (d *Digest) RunOnce(ctx context.Context) (bool, error) {
	count, err := d.counter.CountRequests(ctx, account.KindPass, account.TypeTransfer)
	if err != nil {
		return false, fmt.Errorf("count pending pass transfers: %w", err)
	}
	if count <= 0 {
		return false, nil
	}
	payload := render.DigestPayload{
		Kind:   account.KindPass,
		Count:  count,
		Period: isoWeek(d.clock()),
	}
	if err := d.enqueuer.EnqueueDigest(ctx, payload); err != nil {
		return false, fmt.Errorf("enqueue digest: %w", err)
	}
	return true, nil
}

// Run checks every interval until ctx is canceled.
func (d *Digest) Run(ctx context.Context, interval time.Duration, logf func(string, ...any)) {
	if interval <= 0 {
		interval = defaultDigestInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := d.RunOnce(ctx); err != nil && ctx.Err() == nil && logf != nil {
			logf("weekly digest: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func isoWeek(t time.Time) string {
	year, week := t.UTC().ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fighterspassapp/dp-pass-app/internal/services/ledger/storage"
)

const outboxColumns = `
	id,
	event_type,
	payload_json,
	dedupe_key,
	status,
	attempt_count,
	next_attempt_at,
	lease_owner,
	lease_expires_at,
	last_error,
	processed_at,
	created_at,
	updated_at`

// EnqueueOutboxEvent stores one pending notification event.
func (s *Store) EnqueueOutboxEvent(ctx context.Context, event storage.OutboxEvent) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return enqueueOutboxEvent(ctx, s.sqlDB, event, s.clock())
}

func enqueueOutboxEvent(ctx context.Context, exec execContexter, event storage.OutboxEvent, now time.Time) error {
	event.ID = strings.TrimSpace(event.ID)
	event.EventType = strings.TrimSpace(event.EventType)
	event.DedupeKey = strings.TrimSpace(event.DedupeKey)
	if event.ID == "" {
		return fmt.Errorf("event id is required")
	}
	if event.EventType == "" {
		return fmt.Errorf("event type is required")
	}
	if strings.TrimSpace(event.PayloadJSON) == "" {
		event.PayloadJSON = "{}"
	}
	if event.Status == "" {
		event.Status = storage.OutboxStatusPending
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	if event.UpdatedAt.IsZero() {
		event.UpdatedAt = event.CreatedAt
	}
	if event.NextAttemptAt.IsZero() {
		event.NextAttemptAt = event.CreatedAt
	}

	_, err := exec.ExecContext(ctx, `
INSERT INTO notification_outbox (
	id, event_type, payload_json, dedupe_key, status, attempt_count,
	next_attempt_at, lease_owner, lease_expires_at, last_error, processed_at,
	created_at, updated_at
) VALUES (?, ?, ?, ?, ?, 0, ?, '', NULL, '', NULL, ?, ?)
ON CONFLICT(dedupe_key) WHERE dedupe_key <> '' DO NOTHING
`,
		event.ID,
		event.EventType,
		event.PayloadJSON,
		event.DedupeKey,
		string(event.Status),
		toMillis(event.NextAttemptAt),
		toMillis(event.CreatedAt),
		toMillis(event.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("enqueue outbox event: %w", err)
	}
	return nil
}

// GetOutboxEvent returns one outbox event by id.
func (s *Store) GetOutboxEvent(ctx context.Context, id string) (storage.OutboxEvent, error) {
	if err := s.ready(ctx); err != nil {
		return storage.OutboxEvent{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return storage.OutboxEvent{}, fmt.Errorf("event id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, "SELECT"+outboxColumns+"\nFROM notification_outbox WHERE id = ?", id)
	event, err := scanOutboxEvent(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.OutboxEvent{}, storage.ErrNotFound
		}
		return storage.OutboxEvent{}, fmt.Errorf("get outbox event: %w", err)
	}
	return event, nil
}

// LeaseOutboxEvents leases due events for one worker. Expired leases are
// reclaimed.
func (s *Store) LeaseOutboxEvents(ctx context.Context, consumer string, limit int, now time.Time, leaseTTL time.Duration) ([]storage.OutboxEvent, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	consumer = strings.TrimSpace(consumer)
	if consumer == "" {
		return nil, fmt.Errorf("consumer is required")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}
	if leaseTTL <= 0 {
		return nil, fmt.Errorf("lease ttl must be greater than zero")
	}
	if now.IsZero() {
		now = s.clock()
	}
	now = now.UTC()
	nowMillis := toMillis(now)
	leaseExpiresAt := toMillis(now.Add(leaseTTL))

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("start lease transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const dueClause = `(
	(status = ? AND next_attempt_at <= ?)
	OR
	(status = ? AND lease_expires_at IS NOT NULL AND lease_expires_at <= ?)
)`

	rows, err := tx.QueryContext(ctx, `
SELECT id
FROM notification_outbox
WHERE `+dueClause+`
ORDER BY next_attempt_at ASC, created_at ASC, id ASC
LIMIT ?
`,
		storage.OutboxStatusPending, nowMillis,
		storage.OutboxStatusLeased, nowMillis,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select lease candidates: %w", err)
	}
	candidateIDs := make([]string, 0, limit)
	for rows.Next() {
		var id string
		if scanErr := rows.Scan(&id); scanErr != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan lease candidate: %w", scanErr)
		}
		candidateIDs = append(candidateIDs, id)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("iterate lease candidates: %w", err)
	}
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("close lease candidates: %w", err)
	}

	leased := make([]storage.OutboxEvent, 0, len(candidateIDs))
	for _, id := range candidateIDs {
		row := tx.QueryRowContext(ctx, `
UPDATE notification_outbox
SET status = ?, lease_owner = ?, lease_expires_at = ?, updated_at = ?
WHERE id = ? AND `+dueClause+`
RETURNING`+outboxColumns,
			storage.OutboxStatusLeased, consumer, leaseExpiresAt, nowMillis,
			id,
			storage.OutboxStatusPending, nowMillis,
			storage.OutboxStatusLeased, nowMillis,
		)
		event, scanErr := scanOutboxEvent(row.Scan)
		if errors.Is(scanErr, sql.ErrNoRows) {
			continue
		}
		if scanErr != nil {
			return nil, fmt.Errorf("lease outbox event %s: %w", id, scanErr)
		}
		leased = append(leased, event)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit lease transaction: %w", err)
	}
	return leased, nil
}

// MarkOutboxSucceeded finishes one leased event.
func (s *Store) MarkOutboxSucceeded(ctx context.Context, id string, consumer string, processedAt time.Time) error {
	if processedAt.IsZero() {
		processedAt = s.clock()
	}
	return s.finishLease(ctx, "mark outbox succeeded", id, consumer, `
status = ?,
lease_owner = '',
lease_expires_at = NULL,
last_error = '',
processed_at = ?,
updated_at = ?`,
		storage.OutboxStatusSucceeded, toMillis(processedAt), toMillis(processedAt),
	)
}

// MarkOutboxRetry returns one leased event to pending with a later attempt time.
func (s *Store) MarkOutboxRetry(ctx context.Context, id string, consumer string, nextAttemptAt time.Time, lastError string) error {
	if nextAttemptAt.IsZero() {
		return fmt.Errorf("next attempt at is required")
	}
	return s.finishLease(ctx, "mark outbox retry", id, consumer, `
status = ?,
attempt_count = attempt_count + 1,
next_attempt_at = ?,
lease_owner = '',
lease_expires_at = NULL,
last_error = ?,
processed_at = NULL,
updated_at = ?`,
		storage.OutboxStatusPending, toMillis(nextAttemptAt), strings.TrimSpace(lastError), toMillis(s.clock()),
	)
}

// MarkOutboxDead abandons one leased event.
func (s *Store) MarkOutboxDead(ctx context.Context, id string, consumer string, lastError string, processedAt time.Time) error {
	if processedAt.IsZero() {
		processedAt = s.clock()
	}
	return s.finishLease(ctx, "mark outbox dead", id, consumer, `
status = ?,
attempt_count = attempt_count + 1,
lease_owner = '',
lease_expires_at = NULL,
last_error = ?,
processed_at = ?,
updated_at = ?`,
		storage.OutboxStatusDead, strings.TrimSpace(lastError), toMillis(processedAt), toMillis(processedAt),
	)
}

// finishLease applies set to an event only while consumer still holds it.
func (s *Store) finishLease(ctx context.Context, op string, id string, consumer string, set string, args ...any) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	consumer = strings.TrimSpace(consumer)
	if id == "" {
		return fmt.Errorf("event id is required")
	}
	if consumer == "" {
		return fmt.Errorf("consumer is required")
	}

	args = append(args, id, storage.OutboxStatusLeased, consumer)
	result, err := s.sqlDB.ExecContext(ctx,
		"UPDATE notification_outbox SET"+set+"\nWHERE id = ? AND status = ? AND lease_owner = ?",
		args...,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanOutboxEvent(scan scanner) (storage.OutboxEvent, error) {
	var (
		event          storage.OutboxEvent
		status         string
		nextAttemptAt  int64
		leaseExpiresAt sql.NullInt64
		processedAt    sql.NullInt64
		createdAt      int64
		updatedAt      int64
	)
	if err := scan(
		&event.ID,
		&event.EventType,
		&event.PayloadJSON,
		&event.DedupeKey,
		&status,
		&event.AttemptCount,
		&nextAttemptAt,
		&event.LeaseOwner,
		&leaseExpiresAt,
		&event.LastError,
		&processedAt,
		&createdAt,
		&updatedAt,
	); err != nil {
		return storage.OutboxEvent{}, err
	}
	event.Status = storage.OutboxStatus(status)
	event.NextAttemptAt = fromMillis(nextAttemptAt)
	if leaseExpiresAt.Valid {
		value := fromMillis(leaseExpiresAt.Int64)
		event.LeaseExpiresAt = &value
	}
	if processedAt.Valid {
		value := fromMillis(processedAt.Int64)
		event.ProcessedAt = &value
	}
	event.CreatedAt = fromMillis(createdAt)
	event.UpdatedAt = fromMillis(updatedAt)
	return event, nil
}

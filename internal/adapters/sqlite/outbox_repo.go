package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/ecoprog/internal/ports/secondary"
)

// OutboxRepository implements secondary.OutboxRepository with SQLite.
// All times are stored as unix milliseconds.
type OutboxRepository struct {
	db DBTX
}

// NewOutboxRepository creates a new SQLite outbox repository.
func NewOutboxRepository(db DBTX) *OutboxRepository {
	return &OutboxRepository{db: db}
}

const signalColumns = `id, signal_type, school_id, payload_json, dedupe_key, status, attempt_count,
	next_attempt_at, lease_owner, lease_expires_at, last_error, processed_at, created_at, updated_at`

// leaseEligible matches pending signals that are due and leases that expired.
const leaseEligible = `((status = 'pending' AND next_attempt_at <= ?)
	OR (status = 'leased' AND lease_expires_at IS NOT NULL AND lease_expires_at <= ?))`

// Enqueue stores a pending signal.
func (r *OutboxRepository) Enqueue(ctx context.Context, signal *secondary.SignalRecord) error {
	now := time.Now().UTC()
	createdAt := signal.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	nextAttemptAt := signal.NextAttemptAt
	if nextAttemptAt.IsZero() {
		nextAttemptAt = createdAt
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO signal_outbox (id, signal_type, school_id, payload_json, dedupe_key, status, attempt_count, next_attempt_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, 'pending', 0, ?, ?, ?)`,
		signal.ID,
		signal.SignalType,
		signal.SchoolID,
		signal.PayloadJSON,
		signal.DedupeKey,
		toMillis(nextAttemptAt),
		toMillis(createdAt),
		toMillis(createdAt),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue signal: %w", err)
	}

	return nil
}

// Lease claims up to limit due signals for one consumer.
// Runs in its own transaction when bound to a *sql.DB; inside a caller's
// transaction the claims commit with it.
func (r *OutboxRepository) Lease(ctx context.Context, consumer string, limit int, now time.Time, ttl time.Duration) ([]*secondary.SignalRecord, error) {
	consumer = strings.TrimSpace(consumer)
	if consumer == "" {
		return nil, fmt.Errorf("consumer is required")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("lease ttl must be greater than zero")
	}
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	beginner, ok := r.db.(txBeginner)
	if !ok {
		return leaseSignals(ctx, r.db, consumer, limit, now, ttl)
	}

	tx, err := beginner.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin lease transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	leased, err := leaseSignals(ctx, tx, consumer, limit, now, ttl)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit lease transaction: %w", err)
	}
	return leased, nil
}

func leaseSignals(ctx context.Context, conn DBTX, consumer string, limit int, now time.Time, ttl time.Duration) ([]*secondary.SignalRecord, error) {
	nowMS := toMillis(now)

	rows, err := conn.QueryContext(ctx,
		`SELECT id FROM signal_outbox WHERE `+leaseEligible+`
		 ORDER BY next_attempt_at ASC, created_at ASC, id ASC
		 LIMIT ?`,
		nowMS, nowMS, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to select lease candidates: %w", err)
	}
	var candidates []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan lease candidate: %w", err)
		}
		candidates = append(candidates, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to iterate lease candidates: %w", err)
	}
	rows.Close()

	leased := make([]*secondary.SignalRecord, 0, len(candidates))
	for _, id := range candidates {
		result, err := conn.ExecContext(ctx,
			`UPDATE signal_outbox
			 SET status = 'leased', lease_owner = ?, lease_expires_at = ?, updated_at = ?
			 WHERE id = ? AND `+leaseEligible,
			consumer, toMillis(now.Add(ttl)), nowMS, id, nowMS, nowMS,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to lease signal %s: %w", id, err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			continue
		}

		row := conn.QueryRowContext(ctx, "SELECT "+signalColumns+" FROM signal_outbox WHERE id = ?", id)
		record, err := scanSignal(row.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan leased signal %s: %w", id, err)
		}
		leased = append(leased, record)
	}

	return leased, nil
}

// MarkSucceeded completes a leased signal.
func (r *OutboxRepository) MarkSucceeded(ctx context.Context, id, consumer string, processedAt time.Time) error {
	if processedAt.IsZero() {
		processedAt = time.Now()
	}
	ms := toMillis(processedAt)

	return r.finishLease(ctx, id, consumer,
		`UPDATE signal_outbox
		 SET status = 'succeeded', lease_owner = '', lease_expires_at = NULL, last_error = '', processed_at = ?, updated_at = ?
		 WHERE id = ? AND status = 'leased' AND lease_owner = ?`,
		ms, ms, id, consumer,
	)
}

// MarkRetry returns a leased signal to pending with a later attempt time.
func (r *OutboxRepository) MarkRetry(ctx context.Context, id, consumer string, nextAttemptAt time.Time, lastError string) error {
	if nextAttemptAt.IsZero() {
		return fmt.Errorf("next attempt time is required")
	}

	return r.finishLease(ctx, id, consumer,
		`UPDATE signal_outbox
		 SET status = 'pending', attempt_count = attempt_count + 1, next_attempt_at = ?,
			lease_owner = '', lease_expires_at = NULL, last_error = ?, processed_at = NULL, updated_at = ?
		 WHERE id = ? AND status = 'leased' AND lease_owner = ?`,
		toMillis(nextAttemptAt), strings.TrimSpace(lastError), toMillis(time.Now()), id, consumer,
	)
}

// MarkDead stops delivering a leased signal.
func (r *OutboxRepository) MarkDead(ctx context.Context, id, consumer, lastError string, processedAt time.Time) error {
	if processedAt.IsZero() {
		processedAt = time.Now()
	}
	ms := toMillis(processedAt)

	return r.finishLease(ctx, id, consumer,
		`UPDATE signal_outbox
		 SET status = 'dead', attempt_count = attempt_count + 1, lease_owner = '', lease_expires_at = NULL,
			last_error = ?, processed_at = ?, updated_at = ?
		 WHERE id = ? AND status = 'leased' AND lease_owner = ?`,
		strings.TrimSpace(lastError), ms, ms, id, consumer,
	)
}

// finishLease runs a lease-guarded update. A signal no longer leased to
// consumer is reported as not found.
func (r *OutboxRepository) finishLease(ctx context.Context, id, consumer, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update signal %s: %w", id, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("signal %s leased to %s %w", id, consumer, secondary.ErrNotFound)
	}
	return nil
}

// List retrieves signals matching the given filters.
func (r *OutboxRepository) List(ctx context.Context, filters secondary.SignalFilters) ([]*secondary.SignalRecord, error) {
	query := "SELECT " + signalColumns + " FROM signal_outbox WHERE 1=1"
	args := []any{}

	if filters.Status != "" {
		query += " AND status = ?"
		args = append(args, filters.Status)
	}

	if filters.SchoolID != "" {
		query += " AND school_id = ?"
		args = append(args, filters.SchoolID)
	}

	query += " ORDER BY created_at ASC, id ASC"

	if filters.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filters.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list signals: %w", err)
	}
	defer rows.Close()

	var list []*secondary.SignalRecord
	for rows.Next() {
		record, err := scanSignal(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan signal: %w", err)
		}
		list = append(list, record)
	}

	return list, rows.Err()
}

func scanSignal(scan func(dest ...any) error) (*secondary.SignalRecord, error) {
	var (
		nextAttemptAt  int64
		leaseExpiresAt sql.NullInt64
		processedAt    sql.NullInt64
		createdAt      int64
		updatedAt      int64
	)

	record := &secondary.SignalRecord{}
	err := scan(&record.ID,
		&record.SignalType,
		&record.SchoolID,
		&record.PayloadJSON,
		&record.DedupeKey,
		&record.Status,
		&record.AttemptCount,
		&nextAttemptAt,
		&record.LeaseOwner,
		&leaseExpiresAt,
		&record.LastError,
		&processedAt,
		&createdAt,
		&updatedAt)
	if err != nil {
		return nil, err
	}

	record.NextAttemptAt = fromMillis(nextAttemptAt)
	record.LeaseExpiresAt = fromNullMillis(leaseExpiresAt)
	record.ProcessedAt = fromNullMillis(processedAt)
	record.CreatedAt = fromMillis(createdAt)
	record.UpdatedAt = fromMillis(updatedAt)

	return record, nil
}

// Ensure OutboxRepository implements the interface.
var _ secondary.OutboxRepository = (*OutboxRepository)(nil)

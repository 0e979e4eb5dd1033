package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotClaimed is returned when a claim attempt finds nothing pending.
var ErrNotClaimed = errors.New("queue entry not claimed")

// EnqueueRecompute inserts a pending entry unless one already exists for
// the same entity. The partial unique index on (entity_type, entity_id)
// WHERE status='pending' makes the existence check and insert atomic;
// a duplicate enqueue is silently ignored. Returns true when a new entry
// was created.
func (db *DB) EnqueueRecompute(ctx context.Context, entityType EntityType, entityID, reason string) (bool, error) {
	now := time.Now()
	result, err := db.ExecContext(ctx, `
		INSERT OR IGNORE INTO recompute_queue
			(id, entity_type, entity_id, reason, status, attempts, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 0, ?, ?)
	`, uuid.New().String(), entityType, entityID, reason, QueuePending, now, now)
	if err != nil {
		return false, err
	}

	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// ClaimNextPending claims the oldest pending entry by transitioning it to
// processing. The conditional UPDATE is the exclusivity guarantee: if two
// workers race for the same entry, exactly one sees a row affected and the
// loser goes back to the SELECT for the next entry. ErrNotClaimed means
// nothing is pending.
func (db *DB) ClaimNextPending(ctx context.Context) (*RecomputeEntry, error) {
	for {
		entry := &RecomputeEntry{}
		var lastError sql.NullString

		err := db.QueryRowContext(ctx, `
			SELECT id, entity_type, entity_id, reason, status, attempts, last_error, created_at, updated_at
			FROM recompute_queue WHERE status = ?
			ORDER BY created_at ASC LIMIT 1
		`, QueuePending).Scan(
			&entry.ID, &entry.EntityType, &entry.EntityID, &entry.Reason,
			&entry.Status, &entry.Attempts, &lastError, &entry.CreatedAt, &entry.UpdatedAt,
		)
		if err == sql.ErrNoRows {
			return nil, ErrNotClaimed
		}
		if err != nil {
			return nil, err
		}
		entry.LastError = StringPtr(lastError)

		result, err := db.ExecContext(ctx, `
			UPDATE recompute_queue
			SET status = ?, attempts = attempts + 1, updated_at = ?
			WHERE id = ? AND status = ?
		`, QueueProcessing, time.Now(), entry.ID, QueuePending)
		if err != nil {
			return nil, err
		}

		rows, _ := result.RowsAffected()
		if rows == 0 {
			// Another worker won this entry; try the next one
			continue
		}

		entry.Status = QueueProcessing
		entry.Attempts++
		return entry, nil
	}
}

// MarkQueueEntryDone marks a processing entry as completed
func (db *DB) MarkQueueEntryDone(ctx context.Context, id string) error {
	_, err := db.ExecContext(ctx, `
		UPDATE recompute_queue SET status = ?, last_error = NULL, updated_at = ?
		WHERE id = ?
	`, QueueDone, time.Now(), id)
	return err
}

// MarkQueueEntryFailed marks an entry as failed with the final error
func (db *DB) MarkQueueEntryFailed(ctx context.Context, id string, cause string) error {
	_, err := db.ExecContext(ctx, `
		UPDATE recompute_queue SET status = ?, last_error = ?, updated_at = ?
		WHERE id = ?
	`, QueueFailed, cause, time.Now(), id)
	return err
}

// ListQueueEntries retrieves queue entries, newest first, optionally
// filtered by status
func (db *DB) ListQueueEntries(ctx context.Context, status QueueStatus, limit int) ([]RecomputeEntry, error) {
	query := `
		SELECT id, entity_type, entity_id, reason, status, attempts, last_error, created_at, updated_at
		FROM recompute_queue
	`
	args := []interface{}{}
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []RecomputeEntry
	for rows.Next() {
		var e RecomputeEntry
		var lastError sql.NullString
		err := rows.Scan(
			&e.ID, &e.EntityType, &e.EntityID, &e.Reason,
			&e.Status, &e.Attempts, &lastError, &e.CreatedAt, &e.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		e.LastError = StringPtr(lastError)
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// GetQueueStats returns entry counts by status
func (db *DB) GetQueueStats(ctx context.Context) (*QueueStats, error) {
	stats := &QueueStats{}
	err := db.QueryRowContext(ctx, `
		SELECT
			COUNT(CASE WHEN status = 'pending' THEN 1 END),
			COUNT(CASE WHEN status = 'processing' THEN 1 END),
			COUNT(CASE WHEN status = 'done' THEN 1 END),
			COUNT(CASE WHEN status = 'failed' THEN 1 END)
		FROM recompute_queue
	`).Scan(&stats.Pending, &stats.Processing, &stats.Done, &stats.Failed)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

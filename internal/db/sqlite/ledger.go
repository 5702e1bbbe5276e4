package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/wardenbot/warden/internal/db"
)

// RecordAndCount appends an activity event and returns the number of events
// for the same (chat, user, category[, fingerprint]) key inside the trailing
// window, the fresh event included. Append and count run in one transaction
// so an ambiguous failure never leaves a half-applied step behind.
func (c *sqliteClient) RecordAndCount(ctx context.Context, chatID, userID int64, category db.Category, window time.Duration, fingerprint string) (int, error) {
	unlock := c.locks.Lock(activityKey(chatID, userID, category, fingerprint))
	defer unlock()

	now := c.now()
	cutoff := now.Add(-window)

	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO activity_events (chat_id, user_id, category, fingerprint, occurred_at)
		VALUES (?, ?, ?, ?, ?)
	`, chatID, userID, category, fingerprint, now.UnixNano()); err != nil {
		return 0, fmt.Errorf("failed to insert activity event: %w", err)
	}

	query := `
		SELECT COUNT(*) FROM activity_events
		WHERE chat_id = ? AND user_id = ? AND category = ? AND occurred_at >= ?
	`
	args := []any{chatID, userID, category, cutoff.UnixNano()}
	if fingerprint != "" {
		query += ` AND fingerprint = ?`
		args = append(args, fingerprint)
	}

	var count int
	if err = tx.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("failed to count activity events: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return count, nil
}

// PruneActivity deletes events strictly older than the retention horizon and
// returns the number of rows removed. Safe to run concurrently with recording.
func (c *sqliteClient) PruneActivity(ctx context.Context, retention time.Duration) (int64, error) {
	horizon := c.now().Add(-retention)
	result, err := c.db.ExecContext(ctx, `DELETE FROM activity_events WHERE occurred_at < ?`, horizon.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to prune activity events: %w", err)
	}
	return result.RowsAffected()
}

func (c *sqliteClient) ClearActivity(ctx context.Context, chatID, userID int64) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM activity_events WHERE chat_id = ? AND user_id = ?`, chatID, userID)
	return err
}

func activityKey(chatID, userID int64, category db.Category, fingerprint string) string {
	return fmt.Sprintf("activity:%d:%d:%s:%s", chatID, userID, category, fingerprint)
}

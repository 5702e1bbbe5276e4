package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/wardenbot/warden/internal/db"
)

type violationRow struct {
	ChatID          int64         `db:"chat_id"`
	UserID          int64         `db:"user_id"`
	Count           int           `db:"count"`
	LastViolationAt sql.NullInt64 `db:"last_violation_at"`
	RestrictedUntil sql.NullInt64 `db:"restricted_until"`
}

func (r *violationRow) toRecord() *db.ViolationRecord {
	record := &db.ViolationRecord{
		ChatID: r.ChatID,
		UserID: r.UserID,
		Count:  r.Count,
	}
	if r.LastViolationAt.Valid {
		record.LastViolationAt = time.Unix(0, r.LastViolationAt.Int64)
	}
	if r.RestrictedUntil.Valid {
		until := time.Unix(0, r.RestrictedUntil.Int64)
		record.RestrictedUntil = &until
	}
	return record
}

// GetViolation returns nil when the user has no record yet.
func (c *sqliteClient) GetViolation(ctx context.Context, chatID, userID int64) (*db.ViolationRecord, error) {
	var row violationRow
	err := c.db.GetContext(ctx, &row, `
		SELECT chat_id, user_id, count, last_violation_at, restricted_until
		FROM violations WHERE chat_id = ? AND user_id = ?
	`, chatID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return row.toRecord(), nil
}

// Escalate assigns the next violation ordinal and stores the resulting
// restriction expiry. The per-key lock plus the transaction guarantee two
// concurrent offenses never observe the same pre-increment count.
func (c *sqliteClient) Escalate(ctx context.Context, chatID, userID int64, durationFor func(ordinal int) time.Duration) (int, time.Duration, error) {
	unlock := c.locks.Lock(violationKey(chatID, userID))
	defer unlock()

	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var count int
	err = tx.GetContext(ctx, &count, `SELECT count FROM violations WHERE chat_id = ? AND user_id = ?`, chatID, userID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, 0, fmt.Errorf("failed to read violation count: %w", err)
	}

	ordinal := count + 1
	duration := durationFor(ordinal)
	now := c.now()
	until := now.Add(duration)

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO violations (chat_id, user_id, count, last_violation_at, restricted_until)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(chat_id, user_id) DO UPDATE SET
		count = excluded.count,
		last_violation_at = excluded.last_violation_at,
		restricted_until = excluded.restricted_until
	`, chatID, userID, ordinal, now.UnixNano(), until.UnixNano()); err != nil {
		return 0, 0, fmt.Errorf("failed to persist violation: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return ordinal, duration, nil
}

// LiftRestriction clears the restriction expiry while keeping the violation
// count, so escalation resumes where it stopped on the next offense.
func (c *sqliteClient) LiftRestriction(ctx context.Context, chatID, userID int64) (bool, error) {
	unlock := c.locks.Lock(violationKey(chatID, userID))
	defer unlock()

	result, err := c.db.ExecContext(ctx, `
		UPDATE violations SET restricted_until = NULL WHERE chat_id = ? AND user_id = ?
	`, chatID, userID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	return affected > 0, err
}

// Pardon removes the whole record. Absence is reported, not raised.
func (c *sqliteClient) Pardon(ctx context.Context, chatID, userID int64) (bool, error) {
	unlock := c.locks.Lock(violationKey(chatID, userID))
	defer unlock()

	result, err := c.db.ExecContext(ctx, `DELETE FROM violations WHERE chat_id = ? AND user_id = ?`, chatID, userID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	return affected > 0, err
}

// TopOffenders orders by count descending, ties broken by insertion order.
// Exempt users are filtered out even when old records survive a late grant.
func (c *sqliteClient) TopOffenders(ctx context.Context, chatID int64, limit int) ([]db.Offender, error) {
	var offenders []db.Offender
	err := c.db.SelectContext(ctx, &offenders, `
		SELECT v.user_id, v.count FROM violations v
		WHERE v.chat_id = ? AND v.count > 0
		AND NOT EXISTS (
			SELECT 1 FROM exemptions e WHERE e.chat_id = v.chat_id AND e.user_id = v.user_id
		)
		ORDER BY v.count DESC, v.rowid ASC
		LIMIT ?
	`, chatID, limit)
	return offenders, err
}

func violationKey(chatID, userID int64) string {
	return fmt.Sprintf("violation:%d:%d", chatID, userID)
}

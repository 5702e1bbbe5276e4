package sqlite

import (
	"context"

	"github.com/wardenbot/warden/internal/db"
)

func (c *sqliteClient) RecordBanEvent(ctx context.Context, event *db.BanEvent) error {
	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = c.now()
	}
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO ban_events (chat_id, user_id, category, ordinal, minutes, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		event.ChatID,
		event.UserID,
		event.Category,
		event.Ordinal,
		event.Minutes,
		event.Reason,
		createdAt.UnixNano(),
	)
	return err
}

func (c *sqliteClient) GetBanStats(ctx context.Context, chatID int64, days int) (*db.BanStats, error) {
	cutoff := c.now().AddDate(0, 0, -days).UnixNano()

	stats := &db.BanStats{
		ByCategory: map[db.Category]int{},
		PeriodDays: days,
	}

	err := c.db.GetContext(ctx, &stats.TotalBans, `
		SELECT COUNT(*) FROM ban_events WHERE chat_id = ? AND created_at > ?
	`, chatID, cutoff)
	if err != nil {
		return nil, err
	}

	var byCategory []struct {
		Category db.Category `db:"category"`
		Count    int         `db:"cnt"`
	}
	err = c.db.SelectContext(ctx, &byCategory, `
		SELECT category, COUNT(*) AS cnt FROM ban_events
		WHERE chat_id = ? AND created_at > ?
		GROUP BY category ORDER BY cnt DESC
	`, chatID, cutoff)
	if err != nil {
		return nil, err
	}
	for _, row := range byCategory {
		stats.ByCategory[row.Category] = row.Count
	}

	err = c.db.SelectContext(ctx, &stats.TopViolators, `
		SELECT user_id, COUNT(*) AS count FROM ban_events
		WHERE chat_id = ? AND created_at > ?
		GROUP BY user_id ORDER BY count DESC LIMIT 5
	`, chatID, cutoff)
	if err != nil {
		return nil, err
	}

	var totalMinutes *int64
	err = c.db.GetContext(ctx, &totalMinutes, `
		SELECT SUM(minutes) FROM ban_events WHERE chat_id = ? AND created_at > ?
	`, chatID, cutoff)
	if err != nil {
		return nil, err
	}
	if totalMinutes != nil {
		stats.TotalMinutes = *totalMinutes
	}
	return stats, nil
}
